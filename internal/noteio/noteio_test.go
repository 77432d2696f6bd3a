package noteio

import (
	"bytes"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"redstonemusic.ai/internal/protocol"
	"redstonemusic.ai/internal/sim/catalogs"
	"redstonemusic.ai/internal/sim/notes"
)

func TestReadJSON_ObjectAndArray(t *testing.T) {
	obj := `{"name":"demo","notes":[
	  {"time_ticks":10,"pitch":3,"instrument":"harp","power":4},
	  {"time_ticks":0,"pitch":24,"instrument":"bell","power":15}
	]}`
	ns, err := ReadJSON(strings.NewReader(obj))
	if err != nil {
		t.Fatalf("ReadJSON object: %v", err)
	}
	if len(ns) != 2 || ns[0].TimeTicks != 10 || ns[1].Instrument != "bell" {
		t.Fatalf("decoded: %+v", ns)
	}

	arr := ` [{"time_ticks":5,"pitch":0,"instrument":"bit","power":1}]`
	ns, err = ReadJSON(strings.NewReader(arr))
	if err != nil {
		t.Fatalf("ReadJSON array: %v", err)
	}
	if len(ns) != 1 || ns[0].Instrument != "bit" {
		t.Fatalf("decoded: %+v", ns)
	}
}

func TestReadJSON_RejectsOutOfRange(t *testing.T) {
	for _, doc := range []string{
		`{"notes":[{"time_ticks":0,"pitch":30,"instrument":"harp","power":4}]}`,
		`{"notes":[{"time_ticks":0,"pitch":3,"instrument":"harp","power":16}]}`,
		`{"notes":[{"time_ticks":0,"pitch":3,"instrument":"trumpet","power":4}]}`,
		`{"notes":[{"pitch":3,"instrument":"harp","power":4}]}`,
		`not json`,
	} {
		if _, err := ReadJSON(strings.NewReader(doc)); err == nil {
			t.Fatalf("expected rejection: %s", doc)
		}
	}
}

func TestWriteJSON_ReadsBack(t *testing.T) {
	in := []notes.PlacedNote{{TimeTicks: 3, Pitch: 7, Instrument: "chime", Power: 9}}
	var buf bytes.Buffer
	if err := WriteJSON(&buf, "x", in); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	out, err := ReadJSON(&buf)
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if len(out) != 1 || out[0] != in[0] {
		t.Fatalf("round trip: %+v", out)
	}
}

func TestSchemaInstrumentsMatchCatalog(t *testing.T) {
	// Every catalog instrument must pass the schema, and only those.
	for _, inst := range catalogs.Instruments() {
		doc := `[{"time_ticks":0,"pitch":0,"instrument":"` + inst + `","power":1}]`
		if err := protocol.Validate(protocol.SchemaNotes, []byte(doc)); err != nil {
			t.Fatalf("instrument %s rejected by schema: %v", inst, err)
		}
	}
}

func TestFoldPitch(t *testing.T) {
	cases := map[int]int{54: 0, 66: 12, 78: 24, 79: 13, 36: 6, 53: 11, 127: 13, 0: 6}
	keys := make([]int, 0, len(cases))
	for k := range cases {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	for _, k := range keys {
		if got := FoldPitch(k); got != cases[k] {
			t.Fatalf("FoldPitch(%d): got %d want %d", k, got, cases[k])
		}
	}
}

func TestVelocityPower(t *testing.T) {
	if got := VelocityPower(0); got != 1 {
		t.Fatalf("vel 0: got %d want 1", got)
	}
	if got := VelocityPower(127); got != 15 {
		t.Fatalf("vel 127: got %d want 15", got)
	}
	if got := VelocityPower(64); got != 8 {
		t.Fatalf("vel 64: got %d want 8", got)
	}
}

func TestReadMIDI(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.mid")

	var tr smf.Track
	tr.Add(0, smf.MetaTempo(120))
	tr.Add(0, midi.NoteOn(0, 66, 127))
	// 960 ticks is one quarter note, 500ms at 120bpm.
	tr.Add(960, midi.NoteOff(0, 66))
	tr.Add(0, midi.NoteOn(9, 36, 64))
	tr.Add(480, midi.NoteOff(9, 36))
	tr.Add(0, midi.NoteOn(1, 40, 30))
	tr.Add(480, midi.NoteOff(1, 40))
	tr.Close(0)

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(960)
	if err := s.Add(tr); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	ns, err := ReadMIDI(path)
	if err != nil {
		t.Fatalf("ReadMIDI: %v", err)
	}
	want := []notes.PlacedNote{
		{TimeTicks: 0, Pitch: 12, Instrument: "harp", Power: 15},
		{TimeTicks: 10, Pitch: 6, Instrument: "bassdrum", Power: 8},
		{TimeTicks: 15, Pitch: 10, Instrument: "bass", Power: 4},
	}
	if len(ns) != len(want) {
		t.Fatalf("notes: got %d want %d (%+v)", len(ns), len(want), ns)
	}
	for i := range want {
		if ns[i] != want[i] {
			t.Fatalf("note %d: got %+v want %+v", i, ns[i], want[i])
		}
	}
	if err := notes.Validate(ns); err != nil {
		t.Fatalf("imported notes invalid: %v", err)
	}
}

func TestReadMIDI_MissingFile(t *testing.T) {
	if _, err := ReadMIDI(filepath.Join(t.TempDir(), "none.mid")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
