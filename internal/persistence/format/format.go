package format

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"redstonemusic.ai/internal/sim/catalogs"
	"redstonemusic.ai/internal/sim/grid"
)

type Format int

const (
	Litematic Format = iota
	Schematic
	Structure
	FlatJSON
)

// DataVersion is the Minecraft data version stamped into NBT outputs (1.18.2).
const DataVersion = 2975

var All = []Format{Litematic, Schematic, Structure, FlatJSON}

func (f Format) String() string {
	switch f {
	case Litematic:
		return "litematic"
	case Schematic:
		return "schematic"
	case Structure:
		return "structure"
	case FlatJSON:
		return "json"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

func (f Format) Ext() string {
	switch f {
	case Litematic:
		return ".litematic"
	case Schematic:
		return ".schematic"
	case Structure:
		return ".nbt"
	default:
		return ".json"
	}
}

// Gzipped reports whether the container is gzip compressed NBT.
func (f Format) Gzipped() bool { return f != FlatJSON }

// ParseFormat accepts a format name or file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "litematic", "litematica":
		return Litematic, nil
	case "schematic", "schem", "sponge":
		return Schematic, nil
	case "structure", "nbt":
		return Structure, nil
	case "json", "flatjson", "flat_json":
		return FlatJSON, nil
	}
	return 0, fmt.Errorf("unknown format %q", s)
}

type Meta struct {
	Author      string
	Name        string
	Description string
	Timestamp   time.Time
}

// Document is everything a strategy needs to encode one artifact.
type Document struct {
	Grid    *grid.Grid
	Palette []string
	Meta    Meta

	IncludeTileEntities bool

	// Listing caps for the Structure and FlatJSON block/tile lists; 0 means
	// unlimited.
	MaxListedBlocks       int
	MaxListedTileEntities int
}

func (d *Document) validate() error {
	if d == nil || d.Grid == nil {
		return errors.New("document has no grid")
	}
	if len(d.Palette) == 0 {
		return errors.New("document has no palette")
	}
	for i, b := range d.Grid.Blocks {
		if int(b) >= len(d.Palette) {
			return fmt.Errorf("block %d uses palette index %d, palette has %d entries", i, b, len(d.Palette))
		}
	}
	return nil
}

func (d *Document) tileEntities(capped bool) []grid.TileEntity {
	if !d.IncludeTileEntities {
		return nil
	}
	tes := d.Grid.TileEntities()
	if capped && d.MaxListedTileEntities > 0 && len(tes) > d.MaxListedTileEntities {
		tes = tes[:d.MaxListedTileEntities]
	}
	return tes
}

// fits reports whether the grid fits the size fields of f's header:
// Schematic stores each dimension as a short, Litematic the volume as an int.
func (d *Document) fits(f Format) error {
	w, h, l := d.Grid.Dimensions()
	switch f {
	case Schematic:
		if w > math.MaxInt16 || h > math.MaxInt16 || l > math.MaxInt16 {
			return fmt.Errorf("%w: schematic dimensions %dx%dx%d exceed %d", ErrTooLarge, w, h, l, math.MaxInt16)
		}
	case Litematic:
		if v := d.Grid.Volume(); v > math.MaxInt32 {
			return fmt.Errorf("%w: litematic volume %d exceeds %d", ErrTooLarge, v, math.MaxInt32)
		}
	}
	return nil
}

// listedVoxels returns the buffer indices a block list carries. Note blocks
// and voxels holding one of tes come first, then the remaining non-air voxels,
// each group in buffer order, until MaxListedBlocks is reached. truncated
// reports whether non-air voxels were left out.
func (d *Document) listedVoxels(tes []grid.TileEntity) (idx []int, truncated bool) {
	g := d.Grid
	limit := d.MaxListedBlocks
	full := func() bool { return limit > 0 && len(idx) >= limit }

	first := make(map[int]bool, len(tes))
	for _, te := range tes {
		if i := g.Index(te.X, te.Y, te.Z); i != grid.Invalid && g.Blocks[i] != catalogs.Air {
			first[i] = true
		}
	}
	for i, b := range g.Blocks {
		if b == catalogs.NoteBlock {
			first[i] = true
		}
	}

	for i := range g.Blocks {
		if !first[i] {
			continue
		}
		if full() {
			return idx, true
		}
		idx = append(idx, i)
	}
	for i, b := range g.Blocks {
		if b == catalogs.Air || first[i] {
			continue
		}
		if full() {
			return idx, true
		}
		idx = append(idx, i)
	}
	return idx, false
}

var (
	ErrAllStrategiesFailed = errors.New("all serialization strategies failed")
	ErrVerification        = errors.New("artifact verification failed")
	ErrTooLarge            = errors.New("grid too large for format")
)

// StrategyError records why one strategy did not produce a verified file.
type StrategyError struct {
	Strategy string
	Stage    string // "encode", "verify" or "commit"
	Err      error
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Strategy, e.Stage, e.Err)
}

func (e *StrategyError) Unwrap() error { return e.Err }
