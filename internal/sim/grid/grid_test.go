package grid

import "testing"

func TestIndexCoordsBijection(t *testing.T) {
	g, err := New(7, 5, 9)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if g.Volume() != 7*5*9 || len(g.Blocks) != g.Volume() {
		t.Fatalf("volume: got %d want %d", g.Volume(), 7*5*9)
	}
	seen := make(map[int]bool, g.Volume())
	for y := 0; y < 5; y++ {
		for z := 0; z < 9; z++ {
			for x := 0; x < 7; x++ {
				i := g.Index(x, y, z)
				if i < 0 || i >= g.Volume() {
					t.Fatalf("Index(%d,%d,%d) out of range: %d", x, y, z, i)
				}
				if seen[i] {
					t.Fatalf("Index(%d,%d,%d) collides: %d", x, y, z, i)
				}
				seen[i] = true
				gx, gy, gz, ok := g.Coords(i)
				if !ok || gx != x || gy != y || gz != z {
					t.Fatalf("Coords(%d): got (%d,%d,%d,%v) want (%d,%d,%d)", i, gx, gy, gz, ok, x, y, z)
				}
			}
		}
	}
	if g.Index(1, 2, 3) != (2*9+3)*7+1 {
		t.Fatalf("row-major layout mismatch")
	}
}

func TestIndexRejectsOutOfRange(t *testing.T) {
	g, _ := New(4, 4, 4)
	for _, c := range [][3]int{{-1, 0, 0}, {0, -1, 0}, {0, 0, -1}, {4, 0, 0}, {0, 4, 0}, {0, 0, 4}} {
		if i := g.Index(c[0], c[1], c[2]); i != Invalid {
			t.Fatalf("Index(%v): got %d want Invalid", c, i)
		}
	}
	if _, _, _, ok := g.Coords(64); ok {
		t.Fatalf("Coords past end should fail")
	}
	if g.Set(9, 9, 9, 3) {
		t.Fatalf("Set out of range should report false")
	}
	if g.Get(-1, 0, 0) != 0 {
		t.Fatalf("Get out of range should read air")
	}
}

func TestNewRejectsEmptyVolume(t *testing.T) {
	if _, err := New(0, 5, 5); err == nil {
		t.Fatalf("expected error for zero width")
	}
}

func TestTileEntities_OnePerVoxel(t *testing.T) {
	g, _ := New(8, 8, 8)
	g.Set(1, 2, 3, 6)
	g.SetTileEntity(TileEntity{Kind: "minecraft:noteblock", X: 1, Y: 2, Z: 3, Note: 4, Instrument: "harp"})
	g.SetTileEntity(TileEntity{Kind: "minecraft:noteblock", X: 1, Y: 2, Z: 3, Note: 9, Instrument: "bell"})
	if n := len(g.TileEntities()); n != 1 {
		t.Fatalf("tile entities: got %d want 1", n)
	}
	te, ok := g.TileEntityAt(1, 2, 3)
	if !ok || te.Note != 9 || te.Instrument != "bell" {
		t.Fatalf("replacement not applied: %+v", te)
	}
	if g.SetTileEntity(TileEntity{X: 8, Y: 0, Z: 0}) {
		t.Fatalf("out of range tile entity accepted")
	}
}

func TestSetDropsTileEntityOnOverwrite(t *testing.T) {
	g, _ := New(8, 8, 8)
	for x := 0; x < 3; x++ {
		g.Set(x, 2, 2, 6)
		g.SetTileEntity(TileEntity{X: x, Y: 2, Z: 2, Note: x})
	}
	g.Set(1, 2, 2, 6) // same state keeps the entity
	if n := len(g.TileEntities()); n != 3 {
		t.Fatalf("tile entities: got %d want 3", n)
	}
	g.Set(1, 2, 2, 1)
	tiles := g.TileEntities()
	if len(tiles) != 2 || tiles[0].X != 0 || tiles[1].X != 2 {
		t.Fatalf("unexpected tiles after overwrite: %+v", tiles)
	}
	if te, ok := g.TileEntityAt(2, 2, 2); !ok || te.Note != 2 {
		t.Fatalf("index of later entity not maintained: %+v %v", te, ok)
	}
}

func TestFillLayerAndDigest(t *testing.T) {
	a, _ := New(10, 3, 10)
	b, _ := New(10, 3, 10)
	a.FillLayer(0, 1, nil)
	b.FillLayer(0, 1, nil)
	if a.CountNonAir() != 100 {
		t.Fatalf("non-air: got %d want 100", a.CountNonAir())
	}
	if a.Digest() != b.Digest() {
		t.Fatalf("equal grids should share a digest")
	}
	b.FillLayer(1, 4, func(x, z int) bool { return x == 0 })
	if b.CountNonAir() != 110 {
		t.Fatalf("non-air after partial fill: got %d want 110", b.CountNonAir())
	}
	if a.Digest() == b.Digest() {
		t.Fatalf("different grids should not share a digest")
	}
	a.FillLayer(7, 1, nil) // out of range plane is a no-op
}
