package circuit

import (
	"testing"

	"redstonemusic.ai/internal/sim/catalogs"
	"redstonemusic.ai/internal/sim/grid"
	"redstonemusic.ai/internal/sim/layout"
	"redstonemusic.ai/internal/sim/notes"
)

func tenNotes() []notes.PlacedNote {
	out := make([]notes.PlacedNote, 10)
	for i := range out {
		out[i] = notes.PlacedNote{TimeTicks: i * 10, Pitch: i, Instrument: "harp", Power: 8}
	}
	return out
}

func plan(t *testing.T, ns []notes.PlacedNote) layout.Layout {
	t.Helper()
	l, err := layout.Plan(ns, layout.Config{Height: 8, MaxWidth: 256, MaxLength: 256})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	return l
}

func TestBuild_TenNotes(t *testing.T) {
	ns := tenNotes()
	g, st, err := Build(ns, plan(t, ns), DefaultOptions())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	w, h, l := g.Dimensions()
	if w != 29 || h != 8 || l != 20 {
		t.Fatalf("dims: got %dx%dx%d", w, h, l)
	}
	if st.Placed != 10 || st.Skipped != 0 {
		t.Fatalf("stats: %+v", st)
	}
	// Bus sits at y=-1 for the default track height.
	if st.BusLength != 0 {
		t.Fatalf("bus should be clipped: got %d", st.BusLength)
	}
	if st.NonAir < 30 || st.NonAir != g.CountNonAir() {
		t.Fatalf("non-air: stats=%d grid=%d", st.NonAir, g.CountNonAir())
	}

	tes := g.TileEntities()
	if len(tes) != 10 {
		t.Fatalf("tile entities: got %d want 10", len(tes))
	}
	for i, te := range tes {
		if te.Kind != TileKind || te.Powered {
			t.Fatalf("te %d: %+v", i, te)
		}
		if got := g.Get(te.X, te.Y, te.Z); got != catalogs.NoteBlock {
			t.Fatalf("te %d at (%d,%d,%d) sits on state %d", i, te.X, te.Y, te.Z, got)
		}
		if te.X != 10+i || te.Y != DefaultTrackBaseY || te.Z != 2+i%3 {
			t.Fatalf("te %d position: (%d,%d,%d)", i, te.X, te.Y, te.Z)
		}
		if te.Note != i {
			t.Fatalf("te %d note: got %d want %d", i, te.Note, i)
		}
	}

	if g.Get(0, 0, 0) != catalogs.Stone {
		t.Fatalf("base platform missing")
	}
	if g.Get(20, 1, 7) != catalogs.QuartzBlock {
		t.Fatalf("quartz marker missing at x=20")
	}
	if g.Get(25, 1, 17) != catalogs.RedstoneBlock {
		t.Fatalf("power rail missing at back edge")
	}
	if g.Get(5, h-1, l/2) != catalogs.Glowstone || g.Get(18, h-1, l/2) != catalogs.Glowstone {
		t.Fatalf("title strip missing")
	}
	if g.Get(19, h-1, l/2) != catalogs.Air {
		t.Fatalf("title strip too long")
	}
	if g.Get(12, h-2, l/2) != catalogs.SeaLantern || g.Get(13, h-2, l/2) != catalogs.Air {
		t.Fatalf("count strip wrong")
	}
}

func TestBuild_RaisedTrackLaysBus(t *testing.T) {
	ns := tenNotes()
	opts := DefaultOptions()
	opts.TrackBaseY = 4
	g, st, err := Build(ns, plan(t, ns), opts)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if st.BusLength != 10 {
		t.Fatalf("bus blocks: got %d want 10", st.BusLength)
	}
	for x := 10; x <= 19; x++ {
		if got := g.Get(x, 1, 3); got != catalogs.RedstoneWire {
			t.Fatalf("bus at x=%d: got %d", x, got)
		}
	}
	if got := g.Get(10, 3, 2); got != catalogs.OakPlanks {
		t.Fatalf("harp support: got %d", got)
	}
}

func TestBuild_OutOfBoundsPlacementsAreSkipped(t *testing.T) {
	ns := make([]notes.PlacedNote, 50)
	for i := range ns {
		ns[i] = notes.PlacedNote{TimeTicks: i, Pitch: 3, Instrument: "bass", Power: 5}
	}
	l := layout.Layout{Width: 60, Height: 5, Length: 20, Rows: 5, NotesPerRow: 10}
	g, st, err := Build(ns, l, Options{BaseBlock: catalogs.Cobblestone, TrackBaseY: 0})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	// Row 4 starts at z=18; its third lane lands on z=20.
	if st.Skipped != 3 || st.Placed != 47 {
		t.Fatalf("stats: %+v", st)
	}
	if len(g.TileEntities()) != 47 {
		t.Fatalf("tile entities: got %d", len(g.TileEntities()))
	}
	if g.Get(1, 0, 1) != catalogs.Cobblestone {
		t.Fatalf("base block not honoured")
	}
}

func TestBuildRow_SharedVoxelCountsOnce(t *testing.T) {
	g, err := grid.New(30, 6, 20)
	if err != nil {
		t.Fatalf("grid.New: %v", err)
	}
	// Same tick: lanes 0,1,2,0, so the fourth note lands on the first one's voxel.
	row := []notes.PlacedNote{
		{TimeTicks: 5, Pitch: 1, Instrument: "harp", Power: 5},
		{TimeTicks: 5, Pitch: 2, Instrument: "harp", Power: 5},
		{TimeTicks: 5, Pitch: 3, Instrument: "harp", Power: 5},
		{TimeTicks: 5, Pitch: 4, Instrument: "bell", Power: 5},
	}
	placed, skipped, _ := BuildRow(g, row, 0, DefaultTrackBaseY)
	if placed != 3 || skipped != 1 {
		t.Fatalf("placed=%d skipped=%d want 3 and 1", placed, skipped)
	}
	if n := len(g.TileEntities()); n != placed {
		t.Fatalf("tile entities: got %d want %d", n, placed)
	}
	te, ok := g.TileEntityAt(trackMargin, DefaultTrackBaseY, rowBaseZ)
	if !ok || te.Note != 4 || te.Instrument != "bell" {
		t.Fatalf("shared voxel should hold the later note: %+v ok=%v", te, ok)
	}
}

func TestBuild_DropsNotesBeyondRows(t *testing.T) {
	ns := tenNotes()
	l := plan(t, ns)
	l.NotesPerRow = 4
	l.Rows = 2
	_, st, err := Build(ns, l, DefaultOptions())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if st.Placed != 8 {
		t.Fatalf("placed: got %d want 8", st.Placed)
	}
}

func TestBuild_RejectsEmptyLayout(t *testing.T) {
	if _, _, err := Build(tenNotes(), layout.Layout{Width: 20, Height: 5, Length: 20}, DefaultOptions()); err == nil {
		t.Fatalf("expected error for layout without rows")
	}
}

func TestBuild_Deterministic(t *testing.T) {
	ns := make([]notes.PlacedNote, 120)
	for i := range ns {
		ns[i] = notes.PlacedNote{TimeTicks: (i * 37) % 400, Pitch: i % 25, Instrument: catalogs.Instruments()[i%16], Power: 1 + i%15}
	}
	l := plan(t, ns)
	a, _, err := Build(ns, l, DefaultOptions())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	b, _, _ := Build(ns, l, DefaultOptions())
	if a.Digest() != b.Digest() {
		t.Fatalf("digests differ")
	}
	if len(a.TileEntities()) != len(b.TileEntities()) {
		t.Fatalf("tile entity counts differ")
	}
}

func TestNormalizePitch(t *testing.T) {
	for in, want := range map[int]int{0: 0, 24: 24, 25: 0, 30: 5, -1: 24} {
		if got := normalizePitch(in); got != want {
			t.Fatalf("normalizePitch(%d): got %d want %d", in, got, want)
		}
	}
}
