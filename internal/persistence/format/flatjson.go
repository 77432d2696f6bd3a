package format

import (
	"time"

	"redstonemusic.ai/internal/sim/encoding"
	"redstonemusic.ai/internal/sim/grid"
)

const (
	flatFormatVersion = 1
	Generator         = "redstonemusic"
)

type FlatDocument struct {
	FormatVersion int      `json:"format_version"`
	Generator     string   `json:"generator"`
	Metadata      FlatMeta `json:"metadata"`
	Size          [3]int   `json:"size"`
	BitsPerBlock  int      `json:"bits_per_block"`
	Palette       []string `json:"palette"`

	Blocks          []FlatBlock       `json:"blocks"`
	BlocksTruncated bool              `json:"blocks_truncated"`
	TileEntities    []grid.TileEntity `json:"tile_entities"`

	// BlockDataRLE is the full block buffer as base64 varint (id, run) pairs.
	BlockDataRLE string `json:"block_data_rle"`
}

type FlatMeta struct {
	Author      string `json:"author"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Created     string `json:"created"`
	TotalBlocks int    `json:"total_blocks"`
	TotalVolume int    `json:"total_volume"`
}

type FlatBlock struct {
	X     int `json:"x"`
	Y     int `json:"y"`
	Z     int `json:"z"`
	State int `json:"state"`
}

func buildFlat(doc *Document) FlatDocument {
	g := doc.Grid
	w, h, l := g.Dimensions()
	nonAir := g.CountNonAir()

	tes := doc.tileEntities(true)
	if tes == nil {
		tes = []grid.TileEntity{}
	}

	listed, truncated := doc.listedVoxels(tes)
	blocks := make([]FlatBlock, 0, len(listed))
	for _, i := range listed {
		x, y, z, _ := g.Coords(i)
		blocks = append(blocks, FlatBlock{X: x, Y: y, Z: z, State: int(g.Blocks[i])})
	}

	return FlatDocument{
		FormatVersion: flatFormatVersion,
		Generator:     Generator,
		Metadata: FlatMeta{
			Author:      doc.Meta.Author,
			Name:        doc.Meta.Name,
			Description: doc.Meta.Description,
			Created:     doc.Meta.Timestamp.UTC().Format(time.RFC3339),
			TotalBlocks: nonAir,
			TotalVolume: g.Volume(),
		},
		Size:            [3]int{w, h, l},
		BitsPerBlock:    encoding.BitsPerBlock(len(doc.Palette)),
		Palette:         append([]string(nil), doc.Palette...),
		Blocks:          blocks,
		BlocksTruncated: truncated,
		TileEntities:    tes,
		BlockDataRLE:    encoding.EncodeRLE(g.Blocks),
	}
}
