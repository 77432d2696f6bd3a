package format

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Tnze/go-mc/nbt"
	"github.com/klauspost/compress/gzip"

	"redstonemusic.ai/internal/sim/catalogs"
	"redstonemusic.ai/internal/sim/encoding"
	"redstonemusic.ai/internal/sim/grid"
)

// Summary describes a decoded artifact.
type Summary struct {
	Format       Format `json:"-"`
	FormatName   string `json:"format"`
	Strategy     string `json:"strategy"` // "nbt", "legacy" or "json"
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Length       int    `json:"length"`
	PaletteSize  int    `json:"palette_size"`
	NonAir       int    `json:"non_air"`
	TileEntities int    `json:"tile_entities"`
}

// FormatForPath guesses a format from the file extension.
func FormatForPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// Inspect decodes the artifact at path and summarizes it.
func Inspect(path string, f Format) (Summary, error) {
	sum := Summary{Format: f, FormatName: f.String()}
	in, err := os.Open(path)
	if err != nil {
		return sum, err
	}
	defer in.Close()

	if f == FlatJSON {
		var fd FlatDocument
		if err := json.NewDecoder(in).Decode(&fd); err != nil {
			return sum, fmt.Errorf("decode %s: %w", path, err)
		}
		ids, err := encoding.DecodeRLE(fd.BlockDataRLE, fd.Size[0]*fd.Size[1]*fd.Size[2])
		if err != nil {
			return sum, fmt.Errorf("block_data_rle: %w", err)
		}
		sum.Strategy = "json"
		sum.Width, sum.Height, sum.Length = fd.Size[0], fd.Size[1], fd.Size[2]
		sum.PaletteSize = len(fd.Palette)
		sum.NonAir = countNonAir(ids, fd.Palette)
		sum.TileEntities = len(fd.TileEntities)
		return sum, nil
	}

	zr, err := gzip.NewReader(in)
	if err != nil {
		return sum, fmt.Errorf("decode %s: %w", path, err)
	}
	defer zr.Close()
	br := bufio.NewReader(zr)

	if head, _ := br.Peek(len(RawMagic)); bytes.Equal(head, RawMagic) {
		g, pal, err := ReadRawDump(br)
		if err != nil {
			return sum, err
		}
		sum.Strategy = "legacy"
		sum.Width, sum.Height, sum.Length = g.Dimensions()
		sum.PaletteSize = len(pal)
		sum.NonAir = countNonAir(g.Blocks, pal)
		return sum, nil
	}

	sum.Strategy = "nbt"
	switch f {
	case Litematic:
		g, pal, tiles, err := decodeLitematic(br)
		if err != nil {
			return sum, err
		}
		sum.Width, sum.Height, sum.Length = g.Dimensions()
		sum.PaletteSize = len(pal)
		sum.NonAir = countNonAir(g.Blocks, pal)
		sum.TileEntities = tiles
	case Schematic:
		var sf SchematicFile
		if _, err := nbt.NewDecoder(br).Decode(&sf); err != nil {
			return sum, fmt.Errorf("decode schematic: %w", err)
		}
		pal := make([]string, sf.PaletteMax)
		for name, idx := range sf.Palette {
			if int(idx) < len(pal) {
				pal[idx] = name
			}
		}
		ids := make([]uint16, len(sf.BlockData))
		for i, b := range sf.BlockData {
			ids[i] = uint16(b)
		}
		sum.Width, sum.Height, sum.Length = int(sf.Width), int(sf.Height), int(sf.Length)
		sum.PaletteSize = len(pal)
		sum.NonAir = countNonAir(ids, pal)
		sum.TileEntities = len(sf.BlockEntities)
	case Structure:
		var sf StructureFile
		if _, err := nbt.NewDecoder(br).Decode(&sf); err != nil {
			return sum, fmt.Errorf("decode structure: %w", err)
		}
		if len(sf.Size) == 3 {
			sum.Width, sum.Height, sum.Length = int(sf.Size[0]), int(sf.Size[1]), int(sf.Size[2])
		}
		sum.PaletteSize = len(sf.Palette)
		sum.NonAir = len(sf.Blocks)
		for _, b := range sf.Blocks {
			if b.NBT != nil {
				sum.TileEntities++
			}
		}
	}
	return sum, nil
}

// ReadLitematic decodes a litematic artifact back into a grid and its
// palette. Tile entities are reattached.
func ReadLitematic(path string) (*grid.Grid, []string, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer in.Close()
	zr, err := gzip.NewReader(in)
	if err != nil {
		return nil, nil, err
	}
	defer zr.Close()
	g, pal, _, err := decodeLitematic(zr)
	return g, pal, err
}

func decodeLitematic(r io.Reader) (*grid.Grid, []string, int, error) {
	var lf LitematicFile
	if _, err := nbt.NewDecoder(r).Decode(&lf); err != nil {
		return nil, nil, 0, fmt.Errorf("decode litematic: %w", err)
	}
	if len(lf.Regions) != 1 {
		return nil, nil, 0, fmt.Errorf("litematic: expected 1 region, got %d", len(lf.Regions))
	}
	var reg LitematicRegion
	for _, r := range lf.Regions {
		reg = r
	}
	g, err := grid.New(int(reg.Size.X), int(reg.Size.Y), int(reg.Size.Z))
	if err != nil {
		return nil, nil, 0, err
	}
	pal := make([]string, len(reg.BlockStatePalette))
	for i, e := range reg.BlockStatePalette {
		pal[i] = stateString(e)
	}
	words := make([]uint64, len(reg.BlockStates))
	for i, w := range reg.BlockStates {
		words[i] = uint64(w)
	}
	ids, err := encoding.Unpack(words, encoding.BitsPerBlock(len(pal)), g.Volume())
	if err != nil {
		return nil, nil, 0, fmt.Errorf("litematic block states: %w", err)
	}
	copy(g.Blocks, ids)
	for _, te := range reg.TileEntities {
		g.SetTileEntity(grid.TileEntity{
			Kind:       te.ID,
			X:          int(te.X),
			Y:          int(te.Y),
			Z:          int(te.Z),
			Note:       int(te.Note),
			Instrument: te.Instrument,
			Powered:    te.Powered,
		})
	}
	return g, pal, len(reg.TileEntities), nil
}

func stateString(e PaletteEntry) string {
	if len(e.Properties) == 0 {
		return e.Name
	}
	var b strings.Builder
	b.WriteString(e.Name)
	b.WriteByte('[')
	for i, k := range propertyOrder(e) {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k + "=" + e.Properties[k])
	}
	b.WriteByte(']')
	return b.String()
}

// propertyOrder keeps the catalog's property order when the state is known,
// sorted order otherwise.
func propertyOrder(e PaletteEntry) []string {
	for _, s := range catalogs.Palette() {
		bs := catalogs.ParseState(s)
		if bs.Name != e.Name || len(bs.Properties) != len(e.Properties) {
			continue
		}
		keys := stateKeys(s)
		match := true
		for _, k := range keys {
			if bs.Properties[k] != e.Properties[k] {
				match = false
				break
			}
		}
		if match {
			return keys
		}
	}
	return sortedKeys(e.Properties)
}

func stateKeys(s string) []string {
	open := strings.IndexByte(s, '[')
	if open < 0 || !strings.HasSuffix(s, "]") {
		return nil
	}
	var keys []string
	for _, kv := range strings.Split(s[open+1:len(s)-1], ",") {
		if k, _, ok := strings.Cut(kv, "="); ok {
			keys = append(keys, k)
		}
	}
	return keys
}

func countNonAir(ids []uint16, palette []string) int {
	n := 0
	for _, id := range ids {
		if int(id) < len(palette) && palette[id] == "minecraft:air" {
			continue
		}
		n++
	}
	return n
}
