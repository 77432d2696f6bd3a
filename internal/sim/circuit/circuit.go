package circuit

import (
	"fmt"
	"math"
	"strconv"

	"redstonemusic.ai/internal/sim/catalogs"
	"redstonemusic.ai/internal/sim/grid"
	"redstonemusic.ai/internal/sim/layout"
	"redstonemusic.ai/internal/sim/notes"
)

const (
	TileKind = "minecraft:noteblock"
	Title    = "REDSTONE MUSIC"

	DefaultTrackBaseY = 2

	markerSpacing = 10
	rowSpacing    = 4
	rowBaseZ      = 2
	trackMargin   = 10
	trackLanes    = 3
	powerSpacing  = 5
	powerY        = 1
	labelX        = 5
)

type Options struct {
	BaseBlock  uint16
	Decorate   bool
	TrackBaseY int
}

func DefaultOptions() Options {
	return Options{BaseBlock: catalogs.Stone, Decorate: true, TrackBaseY: DefaultTrackBaseY}
}

// Stats counts emitters. Placed is the number of distinct note block voxels;
// Skipped counts notes outside the volume or replaced by a later note on the
// same voxel.
type Stats struct {
	Placed    int `json:"placed"`
	Skipped   int `json:"skipped"`
	BusLength int `json:"bus_length"`
	NonAir    int `json:"non_air"`
}

// Build allocates a grid sized by l and lays out the note device. The steps
// run in a fixed order; later steps may overwrite earlier ones.
func Build(ns []notes.PlacedNote, l layout.Layout, opts Options) (*grid.Grid, Stats, error) {
	var st Stats
	if l.NotesPerRow <= 0 || l.Rows <= 0 {
		return nil, st, fmt.Errorf("layout has no rows: rows=%d notes_per_row=%d", l.Rows, l.NotesPerRow)
	}
	g, err := grid.New(l.Width, l.Height, l.Length)
	if err != nil {
		return nil, st, err
	}

	BasePlatform(g, opts.BaseBlock)

	for r, row := range AssignRows(ns, l) {
		if len(row) == 0 {
			continue
		}
		placed, skipped, bus := BuildRow(g, row, r, opts.TrackBaseY)
		st.Placed += placed
		st.Skipped += skipped
		st.BusLength += bus
	}

	PowerRails(g)
	if opts.Decorate {
		Decorate(g, len(ns))
	}

	st.NonAir = g.CountNonAir()
	return g, st, nil
}

// BasePlatform fills y=0 with base and draws a quartz reference grid on y=1
// every ten blocks.
func BasePlatform(g *grid.Grid, base uint16) {
	g.FillLayer(0, base, nil)
	g.FillLayer(1, catalogs.QuartzBlock, func(x, z int) bool {
		return x%markerSpacing == 0 || z%markerSpacing == 0
	})
}

// AssignRows sorts notes by time and deals them into rows of NotesPerRow.
// Notes past l.Rows are dropped.
func AssignRows(ns []notes.PlacedNote, l layout.Layout) [][]notes.PlacedNote {
	rows := make([][]notes.PlacedNote, l.Rows)
	for i, n := range notes.SortedByTime(ns) {
		r := i / l.NotesPerRow
		if r >= l.Rows {
			break
		}
		rows[r] = append(rows[r], n)
	}
	return rows
}

// NoteX maps a tick onto the row's x axis.
func NoteX(tick, rowMin int, scale float64, width int) int {
	x := trackMargin + int(math.Round(float64(tick-rowMin)*scale))
	return min(x, width-trackMargin)
}

// BuildRow places one row of note blocks, their instrument supports and
// wiring, plus the row bus. row must be time ordered.
func BuildRow(g *grid.Grid, row []notes.PlacedNote, r, baseY int) (placed, skipped, bus int) {
	width, _, _ := g.Dimensions()
	baseZ := rowBaseZ + r*rowSpacing

	rowMin, rowMax, _ := notes.Span(row)
	scale := float64(width-2*trackMargin) / float64(max(rowMax-rowMin, 1))

	minX, maxX := math.MaxInt, math.MinInt
	for k, n := range row {
		x := NoteX(n.TimeTicks, rowMin, scale, width)
		y := baseY
		z := baseZ + k%trackLanes
		minX, maxX = min(minX, x), max(maxX, x)

		if !g.InBounds(x, y, z) {
			skipped++
			continue
		}
		if _, taken := g.TileEntityAt(x, y, z); taken {
			// The later note wins the voxel.
			skipped++
			placed--
		}
		g.Set(x, y, z, catalogs.NoteBlock)
		g.SetTileEntity(grid.TileEntity{
			Kind:       TileKind,
			X:          x,
			Y:          y,
			Z:          z,
			Note:       normalizePitch(n.Pitch),
			Instrument: n.Instrument,
		})
		g.Set(x, y-1, z, catalogs.InstrumentMaterial(n.Instrument))
		g.Set(x, y-2, z, catalogs.RedstoneWire)
		placed++
	}

	if len(row) < 2 {
		return placed, skipped, 0
	}
	busY, busZ := baseY-3, baseZ+1
	for x := minX; x <= maxX; x++ {
		if g.Set(x, busY, busZ, catalogs.RedstoneWire) {
			bus++
		}
	}
	return placed, skipped, bus
}

// PowerRails puts a redstone block every fifth column along the front and
// back edges at y=1.
func PowerRails(g *grid.Grid) {
	width, _, length := g.Dimensions()
	for x := 0; x < width; x += powerSpacing {
		for _, z := range []int{2, length - 3} {
			g.Set(x, powerY, z, catalogs.RedstoneBlock)
		}
	}
}

// Decorate writes one light block per label character near the top. It is a
// marker strip, not lettering.
func Decorate(g *grid.Grid, noteCount int) {
	_, height, length := g.Dimensions()
	z := length / 2
	for i := range Title {
		g.Set(labelX+i, height-1, z, catalogs.Glowstone)
	}
	count := strconv.Itoa(noteCount) + " NOTES"
	for i := range count {
		g.Set(labelX+i, height-2, z, catalogs.SeaLantern)
	}
}

func normalizePitch(p int) int {
	p %= notes.MaxPitch + 1
	if p < 0 {
		p += notes.MaxPitch + 1
	}
	return p
}
