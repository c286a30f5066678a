package parallel

// TileGrid partitions an image into tiles.
//
// Tiles are stored in a flat row-major slice: index = ty * tilesX + tx.
// Edge tiles may be smaller than the full tile size. Tiles never overlap and
// together cover every pixel exactly once.
//
// Thread safety: TileGrid is read-only after construction except for
// Resize, which must not run concurrently with rendering.
type TileGrid struct {
	tiles  []Tile
	tilesX int
	tilesY int
	width  int
	height int
}

// NewTileGrid creates a tile grid for a width x height image.
// A non-positive dimension yields an empty grid.
func NewTileGrid(width, height int) *TileGrid {
	g := &TileGrid{}
	g.Resize(width, height)
	return g
}

// Resize rebuilds the grid for new dimensions. Unchanged dimensions are a
// no-op.
func (g *TileGrid) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		g.tiles, g.tilesX, g.tilesY, g.width, g.height = nil, 0, 0, 0, 0
		return
	}
	if g.width == width && g.height == height && g.tiles != nil {
		return
	}

	g.width = width
	g.height = height
	g.tilesX = (width + TileWidth - 1) / TileWidth
	g.tilesY = (height + TileHeight - 1) / TileHeight
	g.tiles = make([]Tile, g.tilesX*g.tilesY)

	for ty := range g.tilesY {
		for tx := range g.tilesX {
			tileW := min(TileWidth, width-tx*TileWidth)
			tileH := min(TileHeight, height-ty*TileHeight)

			g.tiles[ty*g.tilesX+tx] = Tile{
				X:      tx,
				Y:      ty,
				Width:  tileW,
				Height: tileH,
				Box:    tileBox(tx*TileWidth, ty*TileHeight, tileW, tileH, width, height),
			}
		}
	}
}

// TileAt returns the tile at tile coordinates (tx, ty), or nil if out of
// bounds.
func (g *TileGrid) TileAt(tx, ty int) *Tile {
	if tx < 0 || tx >= g.tilesX || ty < 0 || ty >= g.tilesY {
		return nil
	}
	return &g.tiles[ty*g.tilesX+tx]
}

// TileAtPixel returns the tile containing pixel (px, py), or nil if the
// pixel is outside the image.
func (g *TileGrid) TileAtPixel(px, py int) *Tile {
	if px < 0 || px >= g.width || py < 0 || py >= g.height {
		return nil
	}
	return g.TileAt(px/TileWidth, py/TileHeight)
}

// TilesInRect returns all tiles that intersect the pixel rectangle.
// The rectangle is clipped to the image; nil is returned when nothing
// remains.
func (g *TileGrid) TilesInRect(x, y, w, h int) []*Tile {
	if w <= 0 || h <= 0 {
		return nil
	}

	x1 := max(x, 0)
	y1 := max(y, 0)
	x2 := min(x+w, g.width)
	y2 := min(y+h, g.height)
	if x1 >= x2 || y1 >= y2 {
		return nil
	}

	tx1, ty1 := x1/TileWidth, y1/TileHeight
	tx2, ty2 := (x2-1)/TileWidth, (y2-1)/TileHeight

	result := make([]*Tile, 0, (tx2-tx1+1)*(ty2-ty1+1))
	for ty := ty1; ty <= ty2; ty++ {
		for tx := tx1; tx <= tx2; tx++ {
			result = append(result, &g.tiles[ty*g.tilesX+tx])
		}
	}
	return result
}

// TileCount returns the total number of tiles.
func (g *TileGrid) TileCount() int {
	return len(g.tiles)
}

// TilesX returns the number of tile columns.
func (g *TileGrid) TilesX() int {
	return g.tilesX
}

// TilesY returns the number of tile rows.
func (g *TileGrid) TilesY() int {
	return g.tilesY
}

// Width returns the image width in pixels.
func (g *TileGrid) Width() int {
	return g.width
}

// Height returns the image height in pixels.
func (g *TileGrid) Height() int {
	return g.height
}

// ForEach calls fn for each tile in row-major order.
func (g *TileGrid) ForEach(fn func(tile *Tile)) {
	for i := range g.tiles {
		fn(&g.tiles[i])
	}
}
