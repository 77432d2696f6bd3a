package format

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"redstonemusic.ai/internal/sim/grid"
)

// RawMagic opens a legacy v1 block dump.
var RawMagic = []byte("RSMUSIC1")

// RawStrategy is the last resort. Gzip formats get a legacy v1 block dump:
// magic, width/height/length as uint32, palette as length-prefixed strings,
// then one little-endian uint16 per voxel. FlatJSON gets compact JSON.
type RawStrategy struct{}

func (RawStrategy) Name() string { return "raw" }

func (RawStrategy) Supports(Format) bool { return true }

func (RawStrategy) Encode(w io.Writer, f Format, doc *Document) error {
	if err := doc.validate(); err != nil {
		return err
	}
	if f == FlatJSON {
		return json.NewEncoder(w).Encode(buildFlat(doc))
	}
	return writeGzip(w, func(bw io.Writer) error {
		return writeRawDump(bw, doc)
	})
}

func writeRawDump(w io.Writer, doc *Document) error {
	width, height, length := doc.Grid.Dimensions()
	var hdr bytes.Buffer
	hdr.Write(RawMagic)
	for _, d := range []int{width, height, length, len(doc.Palette)} {
		_ = binary.Write(&hdr, binary.LittleEndian, uint32(d))
	}
	for _, s := range doc.Palette {
		_ = binary.Write(&hdr, binary.LittleEndian, uint16(len(s)))
		hdr.WriteString(s)
	}
	if _, err := w.Write(hdr.Bytes()); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, doc.Grid.Blocks)
}

// ReadRawDump decodes a decompressed legacy v1 block dump.
func ReadRawDump(r io.Reader) (*grid.Grid, []string, error) {
	br := bufio.NewReader(r)
	magic := make([]byte, len(RawMagic))
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, nil, err
	}
	if !bytes.Equal(magic, RawMagic) {
		return nil, nil, errors.New("not a legacy block dump")
	}
	var dims [4]uint32
	if err := binary.Read(br, binary.LittleEndian, &dims); err != nil {
		return nil, nil, fmt.Errorf("header: %w", err)
	}
	palette := make([]string, dims[3])
	for i := range palette {
		var n uint16
		if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
			return nil, nil, fmt.Errorf("palette %d: %w", i, err)
		}
		b := make([]byte, n)
		if _, err := io.ReadFull(br, b); err != nil {
			return nil, nil, fmt.Errorf("palette %d: %w", i, err)
		}
		palette[i] = string(b)
	}
	g, err := grid.New(int(dims[0]), int(dims[1]), int(dims[2]))
	if err != nil {
		return nil, nil, err
	}
	if err := binary.Read(br, binary.LittleEndian, g.Blocks); err != nil {
		return nil, nil, fmt.Errorf("blocks: %w", err)
	}
	return g, palette, nil
}
