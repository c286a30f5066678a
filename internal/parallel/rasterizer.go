package parallel

import (
	"sync/atomic"

	"github.com/chewxy/math32"

	"github.com/gogpu/circles/internal/shade"
	"github.com/gogpu/circles/particle"
)

// Strategy identifies how a frame was rasterized.
type Strategy uint8

const (
	// StrategyTiled is the tile-parallel, compaction-based rasterizer.
	StrategyTiled Strategy = iota

	// StrategySmallScene rasterizes circle by circle over each circle's
	// bounding box, skipping tiling and filtering. It is selected below
	// Config.FallbackThreshold particles. Circles are not dispatched
	// concurrently: each circle's pass finishes before the next starts, so
	// overlapping circles blend in index order.
	StrategySmallScene
)

// String returns the strategy name.
func (s Strategy) String() string {
	switch s {
	case StrategyTiled:
		return "tiled"
	case StrategySmallScene:
		return "small-scene"
	default:
		return "unknown"
	}
}

// DefaultFallbackThreshold is the particle count below which Render uses
// StrategySmallScene.
const DefaultFallbackThreshold = 5

// Config configures a Rasterizer.
type Config struct {
	// Workers is the number of pool goroutines. 0 means GOMAXPROCS.
	Workers int

	// Lanes is the number of cooperating lanes per tile. 0 means 1.
	Lanes int

	// FallbackThreshold selects StrategySmallScene for scenes with fewer
	// particles. 0 disables the fallback; negative means the default.
	FallbackThreshold int
}

// Stats describes one rasterization pass.
type Stats struct {
	Strategy Strategy
	Tiles    int
	Chunks   int

	// Candidates is the total number of (tile, circle) pairs shaded.
	Candidates int64

	// Covered is the number of tiles that received at least one circle.
	Covered int
}

// Rasterizer renders particle views into a float RGBA image.
//
// The image is a []float32 of width*height*4 values, row-major, row 0 at
// the top. Rasterizer never allocates image memory; it renders in place.
type Rasterizer struct {
	grid      *TileGrid
	coverage  *Coverage
	pool      *WorkerPool
	scratch   *ScratchPool
	width     int
	height    int
	threshold int
}

// NewRasterizer creates a rasterizer for a width x height image.
// Returns nil if width or height is <= 0.
func NewRasterizer(width, height int, cfg Config) *Rasterizer {
	if width <= 0 || height <= 0 {
		return nil
	}
	threshold := cfg.FallbackThreshold
	if threshold < 0 {
		threshold = DefaultFallbackThreshold
	}
	grid := NewTileGrid(width, height)
	return &Rasterizer{
		grid:      grid,
		coverage:  NewCoverage(grid.TilesX(), grid.TilesY()),
		pool:      NewWorkerPool(cfg.Workers),
		scratch:   NewScratchPool(cfg.Lanes),
		width:     width,
		height:    height,
		threshold: threshold,
	}
}

// Width returns the image width in pixels.
func (r *Rasterizer) Width() int { return r.width }

// Height returns the image height in pixels.
func (r *Rasterizer) Height() int { return r.height }

// TileCount returns the number of tiles.
func (r *Rasterizer) TileCount() int { return r.grid.TileCount() }

// Grid returns the tile grid.
func (r *Rasterizer) Grid() *TileGrid { return r.grid }

// Coverage returns the tiles touched by the most recent Render.
func (r *Rasterizer) Coverage() *Coverage { return r.coverage }

// Pool returns the worker pool. Integrators share it between frames.
func (r *Rasterizer) Pool() *WorkerPool { return r.pool }

// Lanes returns the number of lanes per tile group.
func (r *Rasterizer) Lanes() int { return r.scratch.Lanes() }

// Strategy returns the strategy Render uses for n particles.
func (r *Rasterizer) Strategy(n int) Strategy {
	if n < r.threshold {
		return StrategySmallScene
	}
	return StrategyTiled
}

// Clear fills every pixel with the background of params, one job per tile.
func (r *Rasterizer) Clear(pix []float32, params shade.Params) {
	if len(pix) < r.width*r.height*4 {
		return
	}
	tiles := r.grid.tiles
	r.pool.Dispatch(len(tiles), func(i int) {
		x0, y0, w, h := tiles[i].Bounds()
		for row := y0; row < y0+h; row++ {
			c := params.Background(row, r.height)
			off := (row*r.width + x0) * 4
			for col := range w {
				p := pix[off+col*4 : off+col*4+4 : off+col*4+4]
				p[0], p[1], p[2], p[3] = c.R, c.G, c.B, c.A
			}
		}
	})
}

// Render blends every particle of v into pix in ascending index order,
// using the strategy chosen by Strategy(v.Len()).
func (r *Rasterizer) Render(pix []float32, v particle.View, params shade.Params) Stats {
	if r.Strategy(v.Len()) == StrategySmallScene {
		return r.RenderSmallScene(pix, v, params)
	}
	return r.RenderTiled(pix, v, params)
}

// RenderTiled rasterizes with one job per tile. Each job loads its pixels
// into private accumulators, filters and shades every chunk, and writes
// each pixel back once.
func (r *Rasterizer) RenderTiled(pix []float32, v particle.View, params shade.Params) Stats {
	stats := Stats{Strategy: StrategyTiled, Tiles: r.grid.TileCount()}
	if len(pix) < r.width*r.height*4 {
		return stats
	}

	r.coverage.Reset()
	tiles := r.grid.tiles
	var candidates atomic.Int64
	r.pool.Dispatch(len(tiles), func(i int) {
		if k := r.renderTile(&tiles[i], pix, v, params); k > 0 {
			r.coverage.Mark(tiles[i].X, tiles[i].Y)
			candidates.Add(int64(k))
		}
	})

	stats.Chunks = Chunks(v.Len()) * len(tiles)
	stats.Candidates = candidates.Load()
	stats.Covered = r.coverage.Count()
	slogger().Debug("parallel: rasterized",
		"strategy", stats.Strategy,
		"particles", v.Len(),
		"tiles", stats.Tiles,
		"lanes", r.Lanes(),
		"candidates", stats.Candidates,
		"covered", stats.Covered)
	return stats
}

// renderTile renders one tile and returns the number of definite
// candidates it shaded.
func (r *Rasterizer) renderTile(t *Tile, pix []float32, v particle.View, params shade.Params) int {
	s := r.scratch.Get()
	defer r.scratch.Put(s)

	x0, y0, w, h := t.Bounds()
	count := w * h
	acc := s.acc[:count]
	cx := s.cx[:count]
	cy := s.cy[:count]

	for row := range h {
		off := ((y0+row)*r.width + x0) * 4
		for col := range w {
			p := pix[off+col*4 : off+col*4+4 : off+col*4+4]
			k := row*w + col
			acc[k] = shade.Color{R: p[0], G: p[1], B: p[2], A: p[3]}
			cx[k], cy[k] = PixelCenter(x0+col, y0+row, r.width, r.height)
		}
	}

	n := v.Len()
	var candidates int
	g := s.group
	g.Run(func(lane int) {
		lo, hi := g.Block(lane, count)
		for base := 0; base < n; base += ChunkSize {
			k := filterChunk(lane, s, t.Box, base, v)
			if lane == 0 {
				candidates += k
			}
			for _, idx := range s.definite[:k] {
				for p := lo; p < hi; p++ {
					params.Shade(&acc[p], cx[p], cy[p], v, int(idx))
				}
			}
		}
	})

	for row := range h {
		off := ((y0+row)*r.width + x0) * 4
		for col := range w {
			c := acc[row*w+col]
			p := pix[off+col*4 : off+col*4+4 : off+col*4+4]
			p[0], p[1], p[2], p[3] = c.R, c.G, c.B, c.A
		}
	}
	return candidates
}

// RenderSmallScene rasterizes circle by circle. For each circle, in index
// order, the tiles under its pixel bounding box are shaded in parallel
// directly in pix, and the next circle starts only after the previous
// circle's pass completes, so overlapping circles still blend in index
// order.
func (r *Rasterizer) RenderSmallScene(pix []float32, v particle.View, params shade.Params) Stats {
	stats := Stats{Strategy: StrategySmallScene}
	if len(pix) < r.width*r.height*4 {
		return stats
	}

	r.coverage.Reset()
	fw, fh := float32(r.width), float32(r.height)
	for i := range v.Len() {
		x, y, rad := v.Circle(i)

		px0 := clampPixel(math32.Floor((x-rad)*fw), r.width)
		px1 := clampPixel(math32.Ceil((x+rad)*fw), r.width)
		py0 := clampPixel(math32.Floor((1-(y+rad))*fh), r.height)
		py1 := clampPixel(math32.Ceil((1-(y-rad))*fh), r.height)

		tiles := r.grid.TilesInRect(px0, py0, px1-px0, py1-py0)
		if len(tiles) == 0 {
			continue
		}
		stats.Tiles += len(tiles)
		stats.Candidates += int64(len(tiles))

		r.pool.Dispatch(len(tiles), func(k int) {
			if r.shadeCircleInTile(tiles[k], px0, py0, px1, py1, pix, v, i, params) {
				r.coverage.Mark(tiles[k].X, tiles[k].Y)
			}
		})
	}
	stats.Covered = r.coverage.Count()

	slogger().Debug("parallel: rasterized",
		"strategy", stats.Strategy,
		"particles", v.Len(),
		"tiles", stats.Tiles)
	return stats
}

// shadeCircleInTile shades circle i over the intersection of the pixel
// rectangle [x0,x1) x [y0,y1) and tile t. It reports whether any pixel
// was shaded.
func (r *Rasterizer) shadeCircleInTile(t *Tile, x0, y0, x1, y1 int, pix []float32, v particle.View, i int, params shade.Params) bool {
	tx, ty, tw, th := t.Bounds()

	cx0, cy0 := max(x0, tx), max(y0, ty)
	cx1, cy1 := min(x1, tx+tw), min(y1, ty+th)

	shaded := false
	for row := cy0; row < cy1; row++ {
		for col := cx0; col < cx1; col++ {
			off := (row*r.width + col) * 4
			p := pix[off : off+4 : off+4]
			acc := shade.Color{R: p[0], G: p[1], B: p[2], A: p[3]}
			px, py := PixelCenter(col, row, r.width, r.height)
			if params.Shade(&acc, px, py, v, i) {
				p[0], p[1], p[2], p[3] = acc.R, acc.G, acc.B, acc.A
				shaded = true
			}
		}
	}
	return shaded
}

// clampPixel converts a pixel coordinate to int, clamped to [0, limit].
func clampPixel(f float32, limit int) int {
	if f <= 0 {
		return 0
	}
	if f >= float32(limit) {
		return limit
	}
	return int(f)
}

// Close stops the worker pool. The rasterizer must not be used afterwards.
func (r *Rasterizer) Close() {
	r.pool.Close()
}
