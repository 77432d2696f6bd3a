package layout

import (
	"errors"

	"redstonemusic.ai/internal/sim/notes"
)

var ErrEmptyInput = errors.New("no notes to lay out")

const (
	BucketTicks = 10

	MinWidth  = 20
	MinLength = 20
	MinHeight = 5

	minNotesPerRow = 10
	maxNotesPerRow = 50
	densityFactor  = 3

	rowDepth       = 5
	lengthMargin   = 10
	widthMargin    = 20
	reflowRowWidth = 3
	reflowLength   = 50
)

type Config struct {
	Height    int
	MaxWidth  int
	MaxLength int
}

// Layout is the sizing decision for one generation.
type Layout struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	Length int `json:"length"`

	NotesPerRow int `json:"notes_per_row"`
	Rows        int `json:"rows"`

	// Informational only; the builder does not enforce them.
	EstimatedRedstone  int `json:"estimated_redstone"`
	EstimatedRepeaters int `json:"estimated_repeaters"`

	TotalTicks int `json:"total_ticks"`
	NoteCount  int `json:"note_count"`
	MaxDensity int `json:"max_density"`

	// Reflowed is set when length hit MaxLength and rows were spread across
	// the width instead.
	Reflowed bool `json:"reflowed,omitempty"`
}

func (l Layout) Volume() int { return l.Width * l.Height * l.Length }

// MaxDensity is the largest number of notes falling into one ten-tick bucket.
func MaxDensity(ns []notes.PlacedNote) int {
	buckets := map[int]int{}
	best := 0
	for _, n := range ns {
		b := floorDiv(n.TimeTicks, BucketTicks)
		buckets[b]++
		if buckets[b] > best {
			best = buckets[b]
		}
	}
	if best < 1 {
		best = 1
	}
	return best
}

// Plan sizes the volume and partitions notes into rows. It is pure: equal
// inputs give equal layouts.
func Plan(ns []notes.PlacedNote, cfg Config) (Layout, error) {
	if len(ns) == 0 {
		return Layout{}, ErrEmptyInput
	}

	density := MaxDensity(ns)
	perRow := clamp(density*densityFactor, minNotesPerRow, maxNotesPerRow)
	rows := (len(ns) + perRow - 1) / perRow

	first, last, _ := notes.Span(ns)
	totalTicks := last - first

	width := min(totalTicks/BucketTicks+widthMargin, cfg.MaxWidth)
	length := min(rows*rowDepth+lengthMargin, cfg.MaxLength)

	reflowed := false
	if length >= cfg.MaxLength && width < cfg.MaxWidth {
		width = min(width+rows*reflowRowWidth, cfg.MaxWidth)
		length = min(reflowLength, cfg.MaxLength)
		reflowed = true
	}

	return Layout{
		Width:              max(width, MinWidth),
		Height:             max(cfg.Height, MinHeight),
		Length:             max(length, MinLength),
		NotesPerRow:        perRow,
		Rows:               rows,
		EstimatedRedstone:  len(ns) * 2,
		EstimatedRepeaters: len(ns)/5 + 1,
		TotalTicks:         totalTicks,
		NoteCount:          len(ns),
		MaxDensity:         density,
		Reflowed:           reflowed,
	}, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
