package parallel

import (
	"math/bits"
	"sync/atomic"
)

// Coverage records which tiles received at least one circle during a
// render pass, as an atomic bitmap with one bit per tile.
//
// Tile jobs mark their own bit concurrently; readers run after the pass
// has returned.
type Coverage struct {
	words  []atomic.Uint64
	tilesX int
	tilesY int
}

// NewCoverage creates an empty coverage map for a tilesX x tilesY grid.
// Returns nil if either dimension is not positive.
func NewCoverage(tilesX, tilesY int) *Coverage {
	if tilesX <= 0 || tilesY <= 0 {
		return nil
	}
	total := tilesX * tilesY
	return &Coverage{
		words:  make([]atomic.Uint64, (total+63)/64),
		tilesX: tilesX,
		tilesY: tilesY,
	}
}

// Mark sets the bit of tile (tx, ty). Out-of-range tiles are ignored.
func (c *Coverage) Mark(tx, ty int) {
	if tx < 0 || tx >= c.tilesX || ty < 0 || ty >= c.tilesY {
		return
	}
	idx := ty*c.tilesX + tx
	c.words[idx/64].Or(1 << (idx & 63))
}

// Covered reports whether tile (tx, ty) is marked.
func (c *Coverage) Covered(tx, ty int) bool {
	if tx < 0 || tx >= c.tilesX || ty < 0 || ty >= c.tilesY {
		return false
	}
	idx := ty*c.tilesX + tx
	return c.words[idx/64].Load()&(1<<(idx&63)) != 0
}

// Reset clears every bit.
func (c *Coverage) Reset() {
	for i := range c.words {
		c.words[i].Store(0)
	}
}

// Count returns the number of marked tiles.
func (c *Coverage) Count() int {
	n := 0
	for i := range c.words {
		n += bits.OnesCount64(c.words[i].Load())
	}
	return n
}

// ForEach calls fn for every marked tile in row-major order.
func (c *Coverage) ForEach(fn func(tx, ty int)) {
	if fn == nil {
		return
	}
	for w := range c.words {
		word := c.words[w].Load()
		for word != 0 {
			bit := bits.TrailingZeros64(word)
			idx := w*64 + bit
			fn(idx%c.tilesX, idx/c.tilesX)
			word &^= 1 << bit
		}
	}
}
