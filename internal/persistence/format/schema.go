package format

import (
	"redstonemusic.ai/internal/sim/catalogs"
	"redstonemusic.ai/internal/sim/encoding"
	"redstonemusic.ai/internal/sim/grid"
)

// NBT document shapes shared by the library and hand-rolled encoders, and by
// readers decoding artifacts back.

type Vec3 struct {
	X int32 `nbt:"x"`
	Y int32 `nbt:"y"`
	Z int32 `nbt:"z"`
}

type PaletteEntry struct {
	Name       string            `nbt:"Name"`
	Properties map[string]string `nbt:"Properties,omitempty"`
}

type TileNBT struct {
	ID         string `nbt:"id"`
	X          int32  `nbt:"x"`
	Y          int32  `nbt:"y"`
	Z          int32  `nbt:"z"`
	Note       int8   `nbt:"note"`
	Instrument string `nbt:"instrument"`
	Powered    bool   `nbt:"powered"`
}

type LitematicFile struct {
	Version              int32                      `nbt:"Version"`
	MinecraftDataVersion int32                      `nbt:"MinecraftDataVersion"`
	Metadata             LitematicMeta              `nbt:"Metadata"`
	Regions              map[string]LitematicRegion `nbt:"Regions"`
}

type LitematicMeta struct {
	Author        string `nbt:"Author"`
	Description   string `nbt:"Description"`
	Name          string `nbt:"Name"`
	RegionCount   int32  `nbt:"RegionCount"`
	TimeCreated   int64  `nbt:"TimeCreated"`
	TimeModified  int64  `nbt:"TimeModified"`
	TotalBlocks   int32  `nbt:"TotalBlocks"`
	TotalVolume   int32  `nbt:"TotalVolume"`
	EnclosingSize Vec3   `nbt:"EnclosingSize"`
}

type LitematicRegion struct {
	Position          Vec3           `nbt:"Position"`
	Size              Vec3           `nbt:"Size"`
	BlockStatePalette []PaletteEntry `nbt:"BlockStatePalette"`
	BlockStates       []int64        `nbt:"BlockStates"`
	TileEntities      []TileNBT      `nbt:"TileEntities"`
	Entities          []TileNBT      `nbt:"Entities"`
	PendingBlockTicks []TileNBT      `nbt:"PendingBlockTicks"`
}

type SchematicFile struct {
	Version       int32            `nbt:"Version"`
	DataVersion   int32            `nbt:"DataVersion"`
	Width         int16            `nbt:"Width"`
	Height        int16            `nbt:"Height"`
	Length        int16            `nbt:"Length"`
	PaletteMax    int32            `nbt:"PaletteMax"`
	Palette       map[string]int32 `nbt:"Palette"`
	BlockData     []byte           `nbt:"BlockData"`
	BlockEntities []TileNBT        `nbt:"BlockEntities"`
	Metadata      SchematicMeta    `nbt:"Metadata"`
}

type SchematicMeta struct {
	Author string `nbt:"Author"`
	Name   string `nbt:"Name"`
	Date   int64  `nbt:"Date"`
}

type StructureFile struct {
	DataVersion int32            `nbt:"DataVersion"`
	Size        []int32          `nbt:"size" nbt_type:"list"`
	Palette     []PaletteEntry   `nbt:"palette"`
	Blocks      []StructureBlock `nbt:"blocks"`
	Entities    []TileNBT        `nbt:"entities"`
}

type StructureBlock struct {
	Pos   []int32  `nbt:"pos" nbt_type:"list"`
	State int32    `nbt:"state"`
	NBT   *TileNBT `nbt:"nbt,omitempty"`
}

const (
	litematicVersion = 5
	schematicVersion = 2
	regionName       = "RedstoneMusic"
)

func tileToNBT(te grid.TileEntity) TileNBT {
	return TileNBT{
		ID:         te.Kind,
		X:          int32(te.X),
		Y:          int32(te.Y),
		Z:          int32(te.Z),
		Note:       int8(te.Note),
		Instrument: te.Instrument,
		Powered:    te.Powered,
	}
}

func tilesToNBT(tes []grid.TileEntity) []TileNBT {
	out := make([]TileNBT, 0, len(tes))
	for _, te := range tes {
		out = append(out, tileToNBT(te))
	}
	return out
}

func paletteEntries(states []string) []PaletteEntry {
	out := make([]PaletteEntry, len(states))
	for i, s := range states {
		bs := catalogs.ParseState(s)
		out[i] = PaletteEntry{Name: bs.Name, Properties: bs.Properties}
	}
	return out
}

func litematicRegionName(doc *Document) string {
	if doc.Meta.Name != "" {
		return doc.Meta.Name
	}
	return regionName
}

func buildLitematic(doc *Document) LitematicFile {
	g := doc.Grid
	w, h, l := g.Dimensions()
	size := Vec3{X: int32(w), Y: int32(h), Z: int32(l)}
	ts := doc.Meta.Timestamp.UnixMilli()

	bits := encoding.BitsPerBlock(len(doc.Palette))
	words := encoding.Pack(g.Blocks, bits)
	states := make([]int64, len(words))
	for i, wd := range words {
		states[i] = int64(wd)
	}

	return LitematicFile{
		Version:              litematicVersion,
		MinecraftDataVersion: DataVersion,
		Metadata: LitematicMeta{
			Author:        doc.Meta.Author,
			Description:   doc.Meta.Description,
			Name:          doc.Meta.Name,
			RegionCount:   1,
			TimeCreated:   ts,
			TimeModified:  ts,
			TotalBlocks:   int32(g.CountNonAir()),
			TotalVolume:   int32(g.Volume()),
			EnclosingSize: size,
		},
		Regions: map[string]LitematicRegion{
			litematicRegionName(doc): {
				Size:              size,
				BlockStatePalette: paletteEntries(doc.Palette),
				BlockStates:       states,
				TileEntities:      tilesToNBT(doc.tileEntities(false)),
				Entities:          []TileNBT{},
				PendingBlockTicks: []TileNBT{},
			},
		},
	}
}

func buildSchematic(doc *Document) SchematicFile {
	g := doc.Grid
	w, h, l := g.Dimensions()
	pal := make(map[string]int32, len(doc.Palette))
	for i, s := range doc.Palette {
		pal[s] = int32(i)
	}
	data := make([]byte, len(g.Blocks))
	for i, b := range g.Blocks {
		data[i] = byte(b & 0xFF)
	}
	return SchematicFile{
		Version:       schematicVersion,
		DataVersion:   DataVersion,
		Width:         int16(w),
		Height:        int16(h),
		Length:        int16(l),
		PaletteMax:    int32(len(doc.Palette)),
		Palette:       pal,
		BlockData:     data,
		BlockEntities: tilesToNBT(doc.tileEntities(false)),
		Metadata: SchematicMeta{
			Author: doc.Meta.Author,
			Name:   doc.Meta.Name,
			Date:   doc.Meta.Timestamp.UnixMilli(),
		},
	}
}

func buildStructure(doc *Document) StructureFile {
	g := doc.Grid
	w, h, l := g.Dimensions()

	tes := doc.tileEntities(true)
	tiles := make(map[int]TileNBT, len(tes))
	for _, te := range tes {
		tiles[g.Index(te.X, te.Y, te.Z)] = tileToNBT(te)
	}

	listed, _ := doc.listedVoxels(tes)
	blocks := make([]StructureBlock, 0, len(listed))
	for _, i := range listed {
		x, y, z, _ := g.Coords(i)
		sb := StructureBlock{Pos: []int32{int32(x), int32(y), int32(z)}, State: int32(g.Blocks[i])}
		if te, ok := tiles[i]; ok {
			sb.NBT = &te
		}
		blocks = append(blocks, sb)
	}

	return StructureFile{
		DataVersion: DataVersion,
		Size:        []int32{int32(w), int32(h), int32(l)},
		Palette:     paletteEntries(doc.Palette),
		Blocks:      blocks,
		Entities:    []TileNBT{},
	}
}
