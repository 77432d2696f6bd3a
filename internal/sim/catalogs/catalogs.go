package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Block palette indices. The order is part of every artifact written, so new
// states are only ever appended.
const (
	Air uint16 = iota
	Stone
	OakPlanks
	Glass
	QuartzBlock
	IronBlock
	NoteBlock
	RedstoneWire
	RepeaterSouth
	RepeaterWest
	RepeaterNorth
	RepeaterEast
	RedstoneBlock
	RedstoneTorch
	WallTorchNorth
	WallTorchSouth
	WallTorchWest
	WallTorchEast
	Lever
	Glowstone
	SeaLantern
	RedstoneLamp
	Piston
	StickyPiston
	Observer
	Cobblestone
)

var palette = [...]string{
	Air:            "minecraft:air",
	Stone:          "minecraft:stone",
	OakPlanks:      "minecraft:oak_planks",
	Glass:          "minecraft:glass",
	QuartzBlock:    "minecraft:quartz_block",
	IronBlock:      "minecraft:iron_block",
	NoteBlock:      "minecraft:note_block",
	RedstoneWire:   "minecraft:redstone_wire",
	RepeaterSouth:  "minecraft:repeater[facing=south,delay=1,locked=false,powered=false]",
	RepeaterWest:   "minecraft:repeater[facing=west,delay=1,locked=false,powered=false]",
	RepeaterNorth:  "minecraft:repeater[facing=north,delay=1,locked=false,powered=false]",
	RepeaterEast:   "minecraft:repeater[facing=east,delay=1,locked=false,powered=false]",
	RedstoneBlock:  "minecraft:redstone_block",
	RedstoneTorch:  "minecraft:redstone_torch[lit=true]",
	WallTorchNorth: "minecraft:redstone_wall_torch[facing=north,lit=true]",
	WallTorchSouth: "minecraft:redstone_wall_torch[facing=south,lit=true]",
	WallTorchWest:  "minecraft:redstone_wall_torch[facing=west,lit=true]",
	WallTorchEast:  "minecraft:redstone_wall_torch[facing=east,lit=true]",
	Lever:          "minecraft:lever[face=wall,facing=north,powered=false]",
	Glowstone:      "minecraft:glowstone",
	SeaLantern:     "minecraft:sea_lantern",
	RedstoneLamp:   "minecraft:redstone_lamp[lit=false]",
	Piston:         "minecraft:piston[extended=false,facing=up]",
	StickyPiston:   "minecraft:sticky_piston[extended=false,facing=up]",
	Observer:       "minecraft:observer[facing=up,powered=false]",
	Cobblestone:    "minecraft:cobblestone",
}

var (
	index         = buildIndex()
	paletteDigest = computeDigest()
)

// instrumentMaterial selects the block placed under a note block. In game the
// material under a note block decides its timbre; here it only has to be
// stable per instrument.
var instrumentMaterial = map[string]uint16{
	"harp":           OakPlanks,
	"bass":           Stone,
	"snare":          QuartzBlock,
	"hat":            Glass,
	"bassdrum":       Stone,
	"bell":           QuartzBlock,
	"flute":          OakPlanks,
	"chime":          Glass,
	"guitar":         OakPlanks,
	"xylophone":      QuartzBlock,
	"iron_xylophone": QuartzBlock,
	"cow_bell":       QuartzBlock,
	"didgeridoo":     Stone,
	"bit":            Stone,
	"banjo":          OakPlanks,
	"pling":          Glowstone,
}

func buildIndex() map[string]uint16 {
	m := make(map[string]uint16, len(palette))
	for i, s := range palette {
		m[s] = uint16(i)
	}
	return m
}

func computeDigest() string {
	sum := sha256.Sum256([]byte(strings.Join(palette[:], "\n")))
	return hex.EncodeToString(sum[:])
}

// Palette returns a copy of the ordered block-state catalog.
func Palette() []string {
	out := make([]string, len(palette))
	copy(out, palette[:])
	return out
}

func Size() int { return len(palette) }

// Digest is the sha256 of the palette, hex encoded.
func Digest() string { return paletteDigest }

// IndexOf returns the palette index of an exact block-state string.
func IndexOf(state string) (uint16, bool) {
	idx, ok := index[state]
	return idx, ok
}

// NameOf returns the block-state string stored at idx.
func NameOf(idx uint16) (string, bool) {
	if int(idx) >= len(palette) {
		return "", false
	}
	return palette[idx], true
}

// Lookup resolves a config-style block name ("stone", "minecraft:stone" or a
// full state string) to a palette index. Bare names match the first state
// with that block id.
func Lookup(name string) (uint16, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, false
	}
	if idx, ok := index[name]; ok {
		return idx, true
	}
	if !strings.Contains(name, ":") {
		name = "minecraft:" + name
	}
	for i, s := range palette {
		if ParseState(s).Name == name {
			return uint16(i), true
		}
	}
	return 0, false
}

// InstrumentMaterial returns the support block for an instrument, oak planks
// for anything unknown.
func InstrumentMaterial(instrument string) uint16 {
	if m, ok := instrumentMaterial[instrument]; ok {
		return m
	}
	return OakPlanks
}

// Instruments lists the instrument ids with a material mapping, sorted.
func Instruments() []string {
	out := make([]string, 0, len(instrumentMaterial))
	for k := range instrumentMaterial {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func IsInstrument(id string) bool {
	_, ok := instrumentMaterial[id]
	return ok
}

type BlockState struct {
	Name       string
	Properties map[string]string
}

// ParseState splits "minecraft:repeater[facing=south,delay=1]" into the block
// id and its properties. Properties is nil for plain ids.
func ParseState(s string) BlockState {
	open := strings.IndexByte(s, '[')
	if open < 0 || !strings.HasSuffix(s, "]") {
		return BlockState{Name: s}
	}
	bs := BlockState{Name: s[:open], Properties: map[string]string{}}
	for _, kv := range strings.Split(s[open+1:len(s)-1], ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		bs.Properties[k] = v
	}
	return bs
}
