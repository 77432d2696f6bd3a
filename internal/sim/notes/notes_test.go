package notes

import "testing"

func TestValidate(t *testing.T) {
	ok := []PlacedNote{{TimeTicks: 0, Pitch: 0, Instrument: "harp", Power: 1}, {TimeTicks: 5, Pitch: 24, Instrument: "pling", Power: 15}}
	if err := Validate(ok); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	bad := []PlacedNote{
		{TimeTicks: -1, Pitch: 0, Instrument: "harp", Power: 8},
		{TimeTicks: 0, Pitch: 25, Instrument: "harp", Power: 8},
		{TimeTicks: 0, Pitch: 3, Instrument: "harp", Power: 0},
		{TimeTicks: 0, Pitch: 3, Instrument: "kazoo", Power: 8},
	}
	for _, n := range bad {
		if err := Validate([]PlacedNote{n}); err == nil {
			t.Fatalf("expected error for %+v", n)
		}
	}
}

func TestSortedByTimeIsStableCopy(t *testing.T) {
	in := []PlacedNote{{TimeTicks: 5, Pitch: 1}, {TimeTicks: 0, Pitch: 2}, {TimeTicks: 5, Pitch: 3}}
	out := SortedByTime(in)
	if out[0].Pitch != 2 || out[1].Pitch != 1 || out[2].Pitch != 3 {
		t.Fatalf("unexpected order: %+v", out)
	}
	if in[0].Pitch != 1 {
		t.Fatalf("input mutated")
	}
}

func TestSpan(t *testing.T) {
	if _, _, ok := Span(nil); ok {
		t.Fatalf("empty span should report !ok")
	}
	min, max, ok := Span([]PlacedNote{{TimeTicks: 40}, {TimeTicks: 3}, {TimeTicks: 17}})
	if !ok || min != 3 || max != 40 {
		t.Fatalf("span: got %d..%d", min, max)
	}
}

func TestOptimize(t *testing.T) {
	in := []PlacedNote{
		{TimeTicks: 0, Pitch: 1, Power: 5},
		{TimeTicks: 1, Pitch: 2, Power: 9}, // louder, replaces tick 0
		{TimeTicks: 2, Pitch: 3, Power: 9}, // 1 tick after kept note, quieter or equal: dropped
		{TimeTicks: 10, Pitch: 4, Power: 3},
		{TimeTicks: 50, Pitch: 5, Power: 3},
	}
	out := Optimize(in, 2, 20)
	if len(out) != 2 {
		t.Fatalf("len: got %d want 2 (%+v)", len(out), out)
	}
	if out[0].Pitch != 2 || out[1].Pitch != 4 {
		t.Fatalf("unexpected notes kept: %+v", out)
	}
	if got := Optimize(in, 0, 0); len(got) != len(in) {
		t.Fatalf("zero interval should keep all notes: got %d", len(got))
	}
}
