package format

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sort"
)

const (
	tagEnd byte = iota
	tagByte
	tagShort
	tagInt
	tagLong
	tagFloat
	tagDouble
	tagByteArray
	tagString
	tagList
	tagCompound
	tagIntArray
	tagLongArray
)

// tagWriter emits big-endian NBT. The first error sticks; later calls are
// no-ops and Flush reports it.
type tagWriter struct {
	w   *bufio.Writer
	err error
	buf [8]byte
}

func newTagWriter(w io.Writer) *tagWriter {
	return &tagWriter{w: bufio.NewWriterSize(w, 64*1024)}
}

func (t *tagWriter) raw(p []byte) {
	if t.err != nil {
		return
	}
	_, t.err = t.w.Write(p)
}

func (t *tagWriter) u8(v byte) { t.raw([]byte{v}) }

func (t *tagWriter) u16(v uint16) {
	binary.BigEndian.PutUint16(t.buf[:2], v)
	t.raw(t.buf[:2])
}

func (t *tagWriter) u32(v uint32) {
	binary.BigEndian.PutUint32(t.buf[:4], v)
	t.raw(t.buf[:4])
}

func (t *tagWriter) u64(v uint64) {
	binary.BigEndian.PutUint64(t.buf[:8], v)
	t.raw(t.buf[:8])
}

func (t *tagWriter) str(s string) {
	if len(s) > math.MaxUint16 {
		if t.err == nil {
			t.err = fmt.Errorf("nbt: string too long (%d bytes)", len(s))
		}
		return
	}
	t.u16(uint16(len(s)))
	t.raw([]byte(s))
}

func (t *tagWriter) head(typ byte, name string) {
	t.u8(typ)
	t.str(name)
}

func (t *tagWriter) Compound(name string) { t.head(tagCompound, name) }
func (t *tagWriter) End()                 { t.u8(tagEnd) }

func (t *tagWriter) Byte(name string, v int8) {
	t.head(tagByte, name)
	t.u8(byte(v))
}

func (t *tagWriter) Bool(name string, v bool) {
	var b int8
	if v {
		b = 1
	}
	t.Byte(name, b)
}

func (t *tagWriter) Short(name string, v int16) {
	t.head(tagShort, name)
	t.u16(uint16(v))
}

func (t *tagWriter) Int(name string, v int32) {
	t.head(tagInt, name)
	t.u32(uint32(v))
}

func (t *tagWriter) Long(name string, v int64) {
	t.head(tagLong, name)
	t.u64(uint64(v))
}

func (t *tagWriter) Str(name, v string) {
	t.head(tagString, name)
	t.str(v)
}

func (t *tagWriter) ByteArray(name string, v []byte) {
	t.head(tagByteArray, name)
	t.u32(uint32(len(v)))
	t.raw(v)
}

func (t *tagWriter) LongArray(name string, v []int64) {
	t.head(tagLongArray, name)
	t.u32(uint32(len(v)))
	for _, x := range v {
		t.u64(uint64(x))
	}
}

// List writes a list header; the caller then writes n unnamed payloads.
func (t *tagWriter) List(name string, elem byte, n int) {
	t.head(tagList, name)
	t.u8(elem)
	t.u32(uint32(n))
}

func (t *tagWriter) IntList(name string, v []int32) {
	t.List(name, tagInt, len(v))
	for _, x := range v {
		t.u32(uint32(x))
	}
}

func (t *tagWriter) Flush() error {
	if t.err != nil {
		return t.err
	}
	return t.w.Flush()
}

// Payload writers for compound list elements; each closes its own compound.

func (t *tagWriter) vec3(name string, v Vec3) {
	t.Compound(name)
	t.Int("x", v.X)
	t.Int("y", v.Y)
	t.Int("z", v.Z)
	t.End()
}

func (t *tagWriter) tileBody(te TileNBT) {
	t.Str("id", te.ID)
	t.Int("x", te.X)
	t.Int("y", te.Y)
	t.Int("z", te.Z)
	t.Byte("note", te.Note)
	t.Str("instrument", te.Instrument)
	t.Bool("powered", te.Powered)
	t.End()
}

func (t *tagWriter) tiles(name string, tes []TileNBT) {
	t.List(name, tagCompound, len(tes))
	for _, te := range tes {
		t.tileBody(te)
	}
}

func (t *tagWriter) palette(name string, entries []PaletteEntry) {
	t.List(name, tagCompound, len(entries))
	for _, e := range entries {
		t.Str("Name", e.Name)
		if len(e.Properties) > 0 {
			t.Compound("Properties")
			for _, k := range sortedKeys(e.Properties) {
				t.Str(k, e.Properties[k])
			}
			t.End()
		}
		t.End()
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// HandRolledStrategy writes the same NBT documents as LibraryStrategy with a
// local tag writer.
type HandRolledStrategy struct{}

func (HandRolledStrategy) Name() string { return "handrolled" }

func (HandRolledStrategy) Supports(f Format) bool { return f.Gzipped() }

func (HandRolledStrategy) Encode(w io.Writer, f Format, doc *Document) error {
	if err := doc.validate(); err != nil {
		return err
	}
	if err := doc.fits(f); err != nil {
		return err
	}
	return writeGzip(w, func(bw io.Writer) error {
		t := newTagWriter(bw)
		switch f {
		case Litematic:
			writeLitematic(t, buildLitematic(doc))
		case Schematic:
			writeSchematic(t, buildSchematic(doc))
		case Structure:
			writeStructure(t, buildStructure(doc))
		default:
			return fmt.Errorf("handrolled: unsupported format %s", f)
		}
		return t.Flush()
	})
}

func writeLitematic(t *tagWriter, lf LitematicFile) {
	t.Compound("")
	t.Int("Version", lf.Version)
	t.Int("MinecraftDataVersion", lf.MinecraftDataVersion)

	m := lf.Metadata
	t.Compound("Metadata")
	t.Str("Author", m.Author)
	t.Str("Description", m.Description)
	t.Str("Name", m.Name)
	t.Int("RegionCount", m.RegionCount)
	t.Long("TimeCreated", m.TimeCreated)
	t.Long("TimeModified", m.TimeModified)
	t.Int("TotalBlocks", m.TotalBlocks)
	t.Int("TotalVolume", m.TotalVolume)
	t.vec3("EnclosingSize", m.EnclosingSize)
	t.End()

	t.Compound("Regions")
	for _, name := range sortedKeys(lf.Regions) {
		r := lf.Regions[name]
		t.Compound(name)
		t.vec3("Position", r.Position)
		t.vec3("Size", r.Size)
		t.palette("BlockStatePalette", r.BlockStatePalette)
		t.LongArray("BlockStates", r.BlockStates)
		t.tiles("TileEntities", r.TileEntities)
		t.tiles("Entities", r.Entities)
		t.tiles("PendingBlockTicks", r.PendingBlockTicks)
		t.End()
	}
	t.End()

	t.End()
}

func writeSchematic(t *tagWriter, sf SchematicFile) {
	t.Compound("")
	t.Int("Version", sf.Version)
	t.Int("DataVersion", sf.DataVersion)
	t.Short("Width", sf.Width)
	t.Short("Height", sf.Height)
	t.Short("Length", sf.Length)
	t.Int("PaletteMax", sf.PaletteMax)

	t.Compound("Palette")
	for _, k := range sortedKeys(sf.Palette) {
		t.Int(k, sf.Palette[k])
	}
	t.End()

	t.ByteArray("BlockData", sf.BlockData)
	t.tiles("BlockEntities", sf.BlockEntities)

	t.Compound("Metadata")
	t.Str("Author", sf.Metadata.Author)
	t.Str("Name", sf.Metadata.Name)
	t.Long("Date", sf.Metadata.Date)
	t.End()

	t.End()
}

func writeStructure(t *tagWriter, sf StructureFile) {
	t.Compound("")
	t.Int("DataVersion", sf.DataVersion)
	t.IntList("size", sf.Size)
	t.palette("palette", sf.Palette)

	t.List("blocks", tagCompound, len(sf.Blocks))
	for _, b := range sf.Blocks {
		t.IntList("pos", b.Pos)
		t.Int("state", b.State)
		if b.NBT != nil {
			t.Compound("nbt")
			t.tileBody(*b.NBT)
		}
		t.End()
	}

	t.tiles("entities", sf.Entities)
	t.End()
}
