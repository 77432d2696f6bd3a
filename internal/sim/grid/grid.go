package grid

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// Invalid is returned by Index for coordinates outside the volume.
const Invalid = -1

// TileEntity is positioned metadata attached to a note block.
type TileEntity struct {
	Kind       string `json:"id"`
	X          int    `json:"x"`
	Y          int    `json:"y"`
	Z          int    `json:"z"`
	Note       int    `json:"note"`
	Instrument string `json:"instrument"`
	Powered    bool   `json:"powered"`
}

// Grid is a dense width*height*length volume of palette indices, laid out
// x-fastest then z then y. It is owned by a single generation and is not safe
// for concurrent use.
type Grid struct {
	width, height, length int

	Blocks []uint16

	tiles  []TileEntity
	tileAt map[int]int // block index -> position in tiles
}

func New(width, height, length int) (*Grid, error) {
	if width <= 0 || height <= 0 || length <= 0 {
		return nil, fmt.Errorf("grid dimensions must be positive: %dx%dx%d", width, height, length)
	}
	return &Grid{
		width:  width,
		height: height,
		length: length,
		Blocks: make([]uint16, width*height*length),
		tileAt: map[int]int{},
	}, nil
}

func (g *Grid) Dimensions() (width, height, length int) {
	return g.width, g.height, g.length
}

func (g *Grid) Volume() int { return len(g.Blocks) }

func (g *Grid) InBounds(x, y, z int) bool {
	return x >= 0 && x < g.width && y >= 0 && y < g.height && z >= 0 && z < g.length
}

// Index maps a coordinate to its buffer offset, or Invalid.
func (g *Grid) Index(x, y, z int) int {
	if !g.InBounds(x, y, z) {
		return Invalid
	}
	return (y*g.length+z)*g.width + x
}

// Coords is the inverse of Index.
func (g *Grid) Coords(i int) (x, y, z int, ok bool) {
	if i < 0 || i >= len(g.Blocks) {
		return 0, 0, 0, false
	}
	x = i % g.width
	z = (i / g.width) % g.length
	y = i / (g.width * g.length)
	return x, y, z, true
}

// Get returns the state at (x,y,z); air outside the volume.
func (g *Grid) Get(x, y, z int) uint16 {
	i := g.Index(x, y, z)
	if i == Invalid {
		return 0
	}
	return g.Blocks[i]
}

// Set writes a state and reports whether the coordinate was inside the
// volume. Replacing a voxel with a different state drops its tile entity.
func (g *Grid) Set(x, y, z int, b uint16) bool {
	i := g.Index(x, y, z)
	if i == Invalid {
		return false
	}
	if g.Blocks[i] == b {
		return true
	}
	g.Blocks[i] = b
	g.dropTile(i)
	return true
}

// FillLayer sets every voxel of plane y that keep accepts.
func (g *Grid) FillLayer(y int, b uint16, keep func(x, z int) bool) {
	if y < 0 || y >= g.height {
		return
	}
	for z := 0; z < g.length; z++ {
		for x := 0; x < g.width; x++ {
			if keep == nil || keep(x, z) {
				g.Set(x, y, z, b)
			}
		}
	}
}

func (g *Grid) CountNonAir() int {
	n := 0
	for _, b := range g.Blocks {
		if b != 0 {
			n++
		}
	}
	return n
}

// SetTileEntity attaches te to its voxel, replacing any entity already there.
func (g *Grid) SetTileEntity(te TileEntity) bool {
	i := g.Index(te.X, te.Y, te.Z)
	if i == Invalid {
		return false
	}
	if pos, ok := g.tileAt[i]; ok {
		g.tiles[pos] = te
		return true
	}
	g.tileAt[i] = len(g.tiles)
	g.tiles = append(g.tiles, te)
	return true
}

// TileEntities returns the entities in placement order.
func (g *Grid) TileEntities() []TileEntity {
	out := make([]TileEntity, len(g.tiles))
	copy(out, g.tiles)
	return out
}

func (g *Grid) TileEntityAt(x, y, z int) (TileEntity, bool) {
	i := g.Index(x, y, z)
	if i == Invalid {
		return TileEntity{}, false
	}
	pos, ok := g.tileAt[i]
	if !ok {
		return TileEntity{}, false
	}
	return g.tiles[pos], true
}

func (g *Grid) dropTile(i int) {
	pos, ok := g.tileAt[i]
	if !ok {
		return
	}
	delete(g.tileAt, i)
	g.tiles = append(g.tiles[:pos], g.tiles[pos+1:]...)
	for k, p := range g.tileAt {
		if p > pos {
			g.tileAt[k] = p - 1
		}
	}
}

// Digest hashes dimensions and block buffer; equal grids have equal digests.
func (g *Grid) Digest() string {
	h := sha256.New()
	var tmp [8]byte
	for _, d := range []int{g.width, g.height, g.length} {
		binary.LittleEndian.PutUint32(tmp[:4], uint32(d))
		h.Write(tmp[:4])
	}
	for _, v := range g.Blocks {
		binary.LittleEndian.PutUint16(tmp[:2], v)
		h.Write(tmp[:2])
	}
	return hex.EncodeToString(h.Sum(nil))
}
