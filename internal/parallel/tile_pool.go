package parallel

import (
	"sync"

	"github.com/gogpu/circles/internal/scan"
	"github.com/gogpu/circles/internal/shade"
)

// Scratch is the per-tile working memory of one lane group: flag and
// prefix-sum arrays for both compaction stages, the probable and definite
// candidate lists, the pixel accumulators and the lane group itself.
//
// Candidate lists are rebuilt for every (tile, chunk) pair and never
// outlive a tile job.
type Scratch struct {
	flags    [ChunkSize]uint32
	sums     [ChunkSize]uint32
	probable [ChunkSize]uint32

	exact    [ChunkSize]uint32
	exactSum [ChunkSize]uint32
	definite [ChunkSize]uint32

	acc    [TilePixels]shade.Color
	cx, cy [TilePixels]float32
	group  *scan.Group
}

// ScratchPool reuses Scratch buffers across tiles and frames via sync.Pool.
//
// Thread safety: ScratchPool is safe for concurrent use.
type ScratchPool struct {
	pool  sync.Pool
	lanes int
}

// NewScratchPool creates a pool whose scratch groups run lanes lanes.
func NewScratchPool(lanes int) *ScratchPool {
	if lanes < 1 {
		lanes = 1
	}
	p := &ScratchPool{lanes: lanes}
	p.pool.New = func() any {
		return &Scratch{group: scan.NewGroup(lanes)}
	}
	return p
}

// Lanes returns the lane count of pooled scratch groups.
func (p *ScratchPool) Lanes() int {
	return p.lanes
}

// Get retrieves scratch memory. Contents are unspecified; every stage
// writes before it reads.
func (p *ScratchPool) Get() *Scratch {
	return p.pool.Get().(*Scratch)
}

// Put returns scratch memory to the pool. Nil is a no-op.
func (p *ScratchPool) Put(s *Scratch) {
	if s == nil {
		return
	}
	p.pool.Put(s)
}
