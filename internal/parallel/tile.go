// Package parallel implements the tile-parallel circle rasterizer.
//
// The image is divided into 32x32 pixel tiles that are rendered
// independently. For every tile a group of lanes walks the particle list in
// chunks of ChunkSize indices, narrows each chunk to the circles that touch
// the tile (conservative test, compaction, exact test, compaction) and then
// blends those circles into privately held pixel accumulators in ascending
// index order. Each accumulator is written back to the shared image exactly
// once, so no two goroutines ever write the same pixel during a pass.
//
// Thread safety: a Rasterizer renders one frame at a time. Tiles within a
// frame run concurrently on the WorkerPool.
package parallel

// Tile and chunk sizes.
const (
	// TileWidth is the width of a tile in pixels.
	TileWidth = 32

	// TileHeight is the height of a tile in pixels.
	TileHeight = 32

	// TilePixels is the number of pixels in a full tile.
	TilePixels = TileWidth * TileHeight

	// ChunkSize is the number of particle indices filtered together.
	ChunkSize = 1024
)

// Box is an axis-aligned rectangle in normalized image space.
// Y grows upward: B is the bottom edge and T the top edge.
type Box struct {
	L, R, B, T float32
}

// Tile is a rectangular block of image pixels rendered by one job.
//
// Edge tiles may be smaller than TileWidth x TileHeight when the image is
// not evenly divisible by the tile size.
type Tile struct {
	// X is the tile column index (0-based).
	X int

	// Y is the tile row index (0-based, row 0 at the top of the image).
	Y int

	// Width is the actual width in pixels.
	Width int

	// Height is the actual height in pixels.
	Height int

	// Box is the tile's footprint in normalized coordinates.
	Box Box
}

// Bounds returns the pixel bounds of this tile in image space.
// Returns (x, y, width, height) where x,y is the top-left pixel.
func (t *Tile) Bounds() (x, y, w, h int) {
	return t.X * TileWidth, t.Y * TileHeight, t.Width, t.Height
}

// Contains returns true if the image pixel (cx, cy) is within this tile.
func (t *Tile) Contains(cx, cy int) bool {
	x, y := t.X*TileWidth, t.Y*TileHeight
	return cx >= x && cx < x+t.Width &&
		cy >= y && cy < y+t.Height
}

// PixelCount returns the number of pixels covered by the tile.
func (t *Tile) PixelCount() int {
	return t.Width * t.Height
}

// tileBox maps a pixel rectangle to normalized space.
func tileBox(x, y, w, h, width, height int) Box {
	invW := 1 / float32(width)
	invH := 1 / float32(height)
	return Box{
		L: float32(x) * invW,
		R: float32(x+w) * invW,
		T: 1 - float32(y)*invH,
		B: 1 - float32(y+h)*invH,
	}
}

// PixelCenter returns the normalized center of pixel (col, row) of a
// width x height image. Row 0 is the top row, so y decreases with row.
func PixelCenter(col, row, width, height int) (float32, float32) {
	return (float32(col) + 0.5) / float32(width),
		1 - (float32(row)+0.5)/float32(height)
}
