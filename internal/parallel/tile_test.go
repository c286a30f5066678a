package parallel

import (
	"math"
	"testing"
)

// =============================================================================
// Tile Tests
// =============================================================================

func TestTile_Constants(t *testing.T) {
	if TileWidth != 32 || TileHeight != 32 {
		t.Errorf("tile size = %dx%d, want 32x32", TileWidth, TileHeight)
	}
	if TilePixels != 1024 {
		t.Errorf("TilePixels = %d, want 1024", TilePixels)
	}
	if ChunkSize != 1024 {
		t.Errorf("ChunkSize = %d, want 1024", ChunkSize)
	}
}

func TestTile_Bounds(t *testing.T) {
	tests := []struct {
		name         string
		tile         Tile
		wantX, wantY int
		wantW, wantH int
	}{
		{"first tile", Tile{X: 0, Y: 0, Width: 32, Height: 32}, 0, 0, 32, 32},
		{"second row", Tile{X: 0, Y: 1, Width: 32, Height: 32}, 0, 32, 32, 32},
		{"edge tile", Tile{X: 3, Y: 2, Width: 4, Height: 4}, 96, 64, 4, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y, w, h := tt.tile.Bounds()
			if x != tt.wantX || y != tt.wantY || w != tt.wantW || h != tt.wantH {
				t.Errorf("Bounds() = (%d, %d, %d, %d), want (%d, %d, %d, %d)",
					x, y, w, h, tt.wantX, tt.wantY, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestTile_Contains(t *testing.T) {
	tile := Tile{X: 1, Y: 1, Width: 32, Height: 16}

	tests := []struct {
		x, y int
		want bool
	}{
		{32, 32, true},
		{63, 47, true},
		{64, 32, false},
		{32, 48, false},
		{31, 40, false},
	}
	for _, tt := range tests {
		if got := tile.Contains(tt.x, tt.y); got != tt.want {
			t.Errorf("Contains(%d, %d) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestTileBox(t *testing.T) {
	// 100x100 image, second tile column, first row.
	b := tileBox(32, 0, 32, 32, 100, 100)

	want := Box{L: 0.32, R: 0.64, T: 1, B: 0.68}
	if !near(b.L, want.L) || !near(b.R, want.R) || !near(b.T, want.T) || !near(b.B, want.B) {
		t.Errorf("tileBox = %+v, want %+v", b, want)
	}
	if b.B >= b.T {
		t.Errorf("bottom %v should be below top %v", b.B, b.T)
	}
}

func TestPixelCenter(t *testing.T) {
	tests := []struct {
		col, row      int
		width, height int
		wantX, wantY  float32
	}{
		{0, 0, 100, 100, 0.005, 0.995},
		{50, 50, 100, 100, 0.505, 0.495},
		{99, 99, 100, 100, 0.995, 0.005},
		{0, 0, 2, 2, 0.25, 0.75},
	}
	for _, tt := range tests {
		x, y := PixelCenter(tt.col, tt.row, tt.width, tt.height)
		if !near(x, tt.wantX) || !near(y, tt.wantY) {
			t.Errorf("PixelCenter(%d, %d) = (%v, %v), want (%v, %v)",
				tt.col, tt.row, x, y, tt.wantX, tt.wantY)
		}
	}
}

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-5
}

// =============================================================================
// TileGrid Tests
// =============================================================================

func TestTileGrid_Create(t *testing.T) {
	tests := []struct {
		name           string
		width, height  int
		tilesX, tilesY int
	}{
		{"exact", 64, 64, 2, 2},
		{"partial", 100, 100, 4, 4},
		{"single pixel", 1, 1, 1, 1},
		{"wide", 1024, 32, 32, 1},
		{"HD", 1920, 1080, 60, 34},
		{"zero", 0, 10, 0, 0},
		{"negative", -1, 10, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewTileGrid(tt.width, tt.height)
			if g.TilesX() != tt.tilesX || g.TilesY() != tt.tilesY {
				t.Errorf("tiles = %dx%d, want %dx%d", g.TilesX(), g.TilesY(), tt.tilesX, tt.tilesY)
			}
			if g.TileCount() != tt.tilesX*tt.tilesY {
				t.Errorf("TileCount() = %d, want %d", g.TileCount(), tt.tilesX*tt.tilesY)
			}
		})
	}
}

func TestTileGrid_CoversEveryPixelOnce(t *testing.T) {
	for _, size := range [][2]int{{100, 100}, {33, 65}, {32, 32}, {1, 70}} {
		w, h := size[0], size[1]
		g := NewTileGrid(w, h)

		seen := make([]int, w*h)
		g.ForEach(func(tile *Tile) {
			x0, y0, tw, th := tile.Bounds()
			for y := y0; y < y0+th; y++ {
				for x := x0; x < x0+tw; x++ {
					seen[y*w+x]++
				}
			}
		})
		for i, n := range seen {
			if n != 1 {
				t.Fatalf("%dx%d: pixel %d covered %d times", w, h, i, n)
			}
		}
	}
}

func TestTileGrid_EdgeTiles(t *testing.T) {
	g := NewTileGrid(100, 70)

	last := g.TileAt(3, 2)
	if last == nil {
		t.Fatal("TileAt(3, 2) = nil")
	}
	if last.Width != 4 || last.Height != 6 {
		t.Errorf("edge tile = %dx%d, want 4x6", last.Width, last.Height)
	}
	if !near(last.Box.R, 1) || !near(last.Box.B, 0) {
		t.Errorf("edge tile box = %+v, want R=1 B=0", last.Box)
	}
}

func TestTileGrid_TileAt(t *testing.T) {
	g := NewTileGrid(100, 100)

	if g.TileAt(-1, 0) != nil || g.TileAt(4, 0) != nil || g.TileAt(0, 4) != nil {
		t.Error("out-of-range TileAt should return nil")
	}
	tile := g.TileAtPixel(40, 70)
	if tile == nil || tile.X != 1 || tile.Y != 2 {
		t.Errorf("TileAtPixel(40, 70) = %+v, want tile (1, 2)", tile)
	}
	if g.TileAtPixel(100, 0) != nil {
		t.Error("TileAtPixel outside image should return nil")
	}
}

func TestTileGrid_TilesInRect(t *testing.T) {
	g := NewTileGrid(100, 100)

	tests := []struct {
		name       string
		x, y, w, h int
		want       int
	}{
		{"inside one tile", 1, 1, 10, 10, 1},
		{"spanning four", 20, 20, 20, 20, 4},
		{"whole image", 0, 0, 100, 100, 16},
		{"clipped", -50, -50, 60, 60, 1},
		{"outside", 200, 200, 10, 10, 0},
		{"empty", 10, 10, 0, 5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := g.TilesInRect(tt.x, tt.y, tt.w, tt.h)
			if len(got) != tt.want {
				t.Errorf("TilesInRect = %d tiles, want %d", len(got), tt.want)
			}
		})
	}
}

func TestTileGrid_Resize(t *testing.T) {
	g := NewTileGrid(64, 64)
	first := g.TileAt(0, 0)

	g.Resize(64, 64)
	if g.TileAt(0, 0) != first {
		t.Error("Resize to the same size should keep tiles")
	}

	g.Resize(200, 100)
	if g.Width() != 200 || g.Height() != 100 || g.TileCount() != 7*4 {
		t.Errorf("after Resize: %dx%d with %d tiles", g.Width(), g.Height(), g.TileCount())
	}
}

// =============================================================================
// ScratchPool Tests
// =============================================================================

func TestScratchPool(t *testing.T) {
	p := NewScratchPool(0)
	if p.Lanes() != 1 {
		t.Errorf("Lanes() = %d, want 1", p.Lanes())
	}

	p = NewScratchPool(4)
	s := p.Get()
	if s == nil || s.group.Lanes() != 4 {
		t.Fatal("scratch group should have 4 lanes")
	}
	p.Put(s)
	p.Put(nil)
}
