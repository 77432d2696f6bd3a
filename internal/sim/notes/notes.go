package notes

import (
	"fmt"
	"sort"

	"redstonemusic.ai/internal/sim/catalogs"
)

const (
	MaxPitch = 24
	MinPower = 1
	MaxPower = 15
)

// PlacedNote is one note block trigger produced by the pitch/instrument
// mapper. TimeTicks is in game ticks (20 per second).
type PlacedNote struct {
	TimeTicks  int    `json:"time_ticks"`
	Pitch      int    `json:"pitch"`
	Instrument string `json:"instrument"`
	Power      int    `json:"power"`
}

// Validate checks every note and reports the first offending index.
func Validate(ns []PlacedNote) error {
	for i, n := range ns {
		switch {
		case n.TimeTicks < 0:
			return fmt.Errorf("note %d: negative time_ticks %d", i, n.TimeTicks)
		case n.Pitch < 0 || n.Pitch > MaxPitch:
			return fmt.Errorf("note %d: pitch %d outside [0,%d]", i, n.Pitch, MaxPitch)
		case n.Power < MinPower || n.Power > MaxPower:
			return fmt.Errorf("note %d: power %d outside [%d,%d]", i, n.Power, MinPower, MaxPower)
		case !catalogs.IsInstrument(n.Instrument):
			return fmt.Errorf("note %d: unknown instrument %q", i, n.Instrument)
		}
	}
	return nil
}

// SortedByTime returns a time-ordered copy; notes sharing a tick keep their
// input order.
func SortedByTime(ns []PlacedNote) []PlacedNote {
	out := make([]PlacedNote, len(ns))
	copy(out, ns)
	sort.SliceStable(out, func(i, j int) bool { return out[i].TimeTicks < out[j].TimeTicks })
	return out
}

// Span returns the first and last tick. ok is false for no notes.
func Span(ns []PlacedNote) (min, max int, ok bool) {
	if len(ns) == 0 {
		return 0, 0, false
	}
	min, max = ns[0].TimeTicks, ns[0].TimeTicks
	for _, n := range ns[1:] {
		if n.TimeTicks < min {
			min = n.TimeTicks
		}
		if n.TimeTicks > max {
			max = n.TimeTicks
		}
	}
	return min, max, true
}

// Optimize thins a note list for circuit building. Notes closer than
// minInterval ticks to the last kept note are merged into it, the louder one
// winning (ties keep the earlier note). With maxTicks > 0, notes after
// maxTicks are dropped.
func Optimize(ns []PlacedNote, minInterval, maxTicks int) []PlacedNote {
	sorted := SortedByTime(ns)
	out := make([]PlacedNote, 0, len(sorted))
	for _, n := range sorted {
		if len(out) > 0 {
			last := &out[len(out)-1]
			if n.TimeTicks-last.TimeTicks < minInterval {
				if n.Power > last.Power {
					*last = n
				}
				continue
			}
		}
		out = append(out, n)
	}
	if maxTicks > 0 {
		kept := out[:0]
		for _, n := range out {
			if n.TimeTicks <= maxTicks {
				kept = append(kept, n)
			}
		}
		out = kept
	}
	return out
}
