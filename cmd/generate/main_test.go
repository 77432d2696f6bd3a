package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"redstonemusic.ai/internal/persistence/format"
	"redstonemusic.ai/internal/sim/engine"
)

func TestParseFormats(t *testing.T) {
	got, err := parseFormats("", "schematic, json,schematic", "litematic")
	if err != nil {
		t.Fatalf("parseFormats: %v", err)
	}
	want := []format.Format{format.Litematic, format.Schematic, format.FlatJSON}
	if len(got) != len(want) {
		t.Fatalf("formats: got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("format %d: got %s want %s", i, got[i], want[i])
		}
	}
	if _, err := parseFormats("mp3", "", "litematic"); err == nil {
		t.Fatalf("expected unknown format error")
	}
}

func TestOutPathFor(t *testing.T) {
	if got := outPathFor("", format.Schematic); got != "" {
		t.Fatalf("empty: got %q", got)
	}
	if got := outPathFor("out/song.litematic", format.Structure); got != "out/song.nbt" {
		t.Fatalf("swap: got %q", got)
	}
}

func TestReadNotes(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "n.json")
	if err := os.WriteFile(p, []byte(`{"notes":[{"time_ticks":0,"pitch":1,"instrument":"harp","power":2}]}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	ns, err := readNotes(p, "")
	if err != nil || len(ns) != 1 {
		t.Fatalf("readNotes: %v %v", ns, err)
	}
	if _, err := readNotes("", ""); err == nil {
		t.Fatalf("expected missing input error")
	}
	if _, err := readNotes(p, "x.mid"); err == nil {
		t.Fatalf("expected conflicting input error")
	}
}

func TestRenderSummary(t *testing.T) {
	out := renderSummary([]engine.Result{
		{Name: "song", Success: true, Format: "litematic", Strategy: "library", FilePath: "/tmp/a.litematic",
			FileSizeBytes: 2048, Dimensions: engine.Dimensions{Width: 29, Height: 8, Length: 20}, NoteBlocksCount: 1200},
		{Name: "Error", Error: "empty input"},
	})
	for _, want := range []string{"song", "litematic (library)", "2.0 kB", "29 x 8 x 20", "1,200", "failed", "empty input"} {
		if !strings.Contains(out, want) {
			t.Fatalf("summary missing %q:\n%s", want, out)
		}
	}
}
