package noteio

import (
	"math"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"redstonemusic.ai/internal/sim/notes"
)

const (
	// MicrosPerTick is one game tick (1/20 s).
	MicrosPerTick = 50_000

	// BaseKey is the MIDI key of note block pitch 0 (F#3).
	BaseKey = 54

	drumChannel = 9
)

// ReadMIDI converts every note-on event of an SMF into a placed note. Tempo
// changes are honored; the absolute time is rounded down to a game tick.
func ReadMIDI(path string) ([]notes.PlacedNote, error) {
	var out []notes.PlacedNote
	rd := smf.ReadTracks(path).Do(func(ev smf.TrackEvent) {
		var ch, key, vel uint8
		if !midi.Message(ev.Message).GetNoteStart(&ch, &key, &vel) {
			return
		}
		out = append(out, FromMIDI(ev.AbsMicroSeconds, ch, key, vel))
	})
	if err := rd.Error(); err != nil {
		return nil, err
	}
	return notes.SortedByTime(out), nil
}

// FromMIDI maps one MIDI note start onto the note block range.
func FromMIDI(absMicros int64, ch, key, vel uint8) notes.PlacedNote {
	return notes.PlacedNote{
		TimeTicks:  int(absMicros / MicrosPerTick),
		Pitch:      FoldPitch(int(key)),
		Instrument: instrumentFor(ch, key),
		Power:      VelocityPower(vel),
	}
}

// FoldPitch shifts key by octaves until it lands in [0,24] above BaseKey.
func FoldPitch(key int) int {
	p := key - BaseKey
	for p < 0 {
		p += 12
	}
	for p > notes.MaxPitch {
		p -= 12
	}
	return p
}

// VelocityPower maps velocity 0..127 to signal strength 1..15.
func VelocityPower(vel uint8) int {
	p := int(float64(vel)/127*14) + 1
	return max(notes.MinPower, min(notes.MaxPower, p))
}

func keyFrequency(key uint8) float64 {
	return 440 * math.Pow(2, (float64(key)-69)/12)
}

func instrumentFor(ch, key uint8) string {
	if ch == drumChannel {
		switch {
		case key < 40:
			return "bassdrum"
		case key < 50:
			return "snare"
		default:
			return "hat"
		}
	}
	switch f := keyFrequency(key); {
	case f < 150:
		return "bass"
	case f < 250:
		return "didgeridoo"
	case f < 350:
		return "guitar"
	case f < 450:
		return "harp"
	case f < 550:
		return "bell"
	case f < 650:
		return "flute"
	default:
		return "pling"
	}
}
