package layout

import (
	"errors"
	"testing"

	"redstonemusic.ai/internal/sim/notes"
)

var defaultCfg = Config{Height: 8, MaxWidth: 256, MaxLength: 256}

func evenlySpaced(n, step int) []notes.PlacedNote {
	out := make([]notes.PlacedNote, n)
	for i := range out {
		out[i] = notes.PlacedNote{TimeTicks: i * step, Pitch: i % 25, Instrument: "harp", Power: 8}
	}
	return out
}

func TestPlan_EmptyInput(t *testing.T) {
	if _, err := Plan(nil, defaultCfg); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
}

func TestPlan_TenEvenlySpacedNotes(t *testing.T) {
	l, err := Plan(evenlySpaced(10, 10), defaultCfg)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if l.Rows != 1 || l.NotesPerRow != 10 || l.MaxDensity != 1 {
		t.Fatalf("partition: rows=%d npr=%d density=%d", l.Rows, l.NotesPerRow, l.MaxDensity)
	}
	if l.Width != 29 || l.Height != 8 || l.Length != 20 {
		t.Fatalf("dims: got %dx%dx%d want 29x8x20", l.Width, l.Height, l.Length)
	}
	if l.EstimatedRedstone != 20 || l.EstimatedRepeaters != 3 {
		t.Fatalf("estimates: redstone=%d repeaters=%d", l.EstimatedRedstone, l.EstimatedRepeaters)
	}
	if l.TotalTicks != 90 {
		t.Fatalf("total ticks: got %d want 90", l.TotalTicks)
	}
}

func TestPlan_DenseBurst(t *testing.T) {
	ns := make([]notes.PlacedNote, 60)
	for i := range ns {
		ns[i] = notes.PlacedNote{TimeTicks: i % 10, Pitch: 1, Instrument: "bass", Power: 4}
	}
	l, err := Plan(ns, defaultCfg)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if l.MaxDensity != 60 || l.NotesPerRow != 50 || l.Rows != 2 {
		t.Fatalf("got density=%d npr=%d rows=%d want 60/50/2", l.MaxDensity, l.NotesPerRow, l.Rows)
	}
}

func TestPlan_Floors(t *testing.T) {
	l, err := Plan([]notes.PlacedNote{{TimeTicks: 7, Instrument: "harp", Power: 1}}, Config{Height: 2, MaxWidth: 256, MaxLength: 256})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if l.Width != MinWidth || l.Length != MinLength || l.Height != MinHeight {
		t.Fatalf("floors: got %dx%dx%d", l.Width, l.Height, l.Length)
	}
	if l.Rows != 1 || l.NotesPerRow != 10 {
		t.Fatalf("single note partition: rows=%d npr=%d", l.Rows, l.NotesPerRow)
	}
}

func TestPlan_ReflowsRowsAcrossWidth(t *testing.T) {
	// 600 notes over 600 ticks: 20 rows -> length 110 saturates at 64.
	ns := evenlySpaced(600, 1)
	l, err := Plan(ns, Config{Height: 6, MaxWidth: 200, MaxLength: 64})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if !l.Reflowed {
		t.Fatalf("expected reflow")
	}
	// density 10 -> npr 30 -> rows 20; width 79+20*3=139; length min(50,64)=50.
	if l.NotesPerRow != 30 || l.Rows != 20 {
		t.Fatalf("partition: npr=%d rows=%d", l.NotesPerRow, l.Rows)
	}
	if l.Width != 139 || l.Length != 50 {
		t.Fatalf("reflow dims: got %dx%d want 139x50", l.Width, l.Length)
	}
}

func TestPlan_RespectsMaxima(t *testing.T) {
	ns := evenlySpaced(2000, 40)
	l, err := Plan(ns, Config{Height: 8, MaxWidth: 128, MaxLength: 96})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if l.Width > 128 || l.Length > 96 {
		t.Fatalf("maxima exceeded: %dx%d", l.Width, l.Length)
	}
	if l.Rows != (len(ns)+l.NotesPerRow-1)/l.NotesPerRow {
		t.Fatalf("rows invariant broken: rows=%d npr=%d", l.Rows, l.NotesPerRow)
	}
}

func TestPlan_Deterministic(t *testing.T) {
	ns := evenlySpaced(137, 3)
	a, _ := Plan(ns, defaultCfg)
	b, _ := Plan(ns, defaultCfg)
	if a != b {
		t.Fatalf("layouts differ: %+v vs %+v", a, b)
	}
}
