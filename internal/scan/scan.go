// Package scan implements a parallel inclusive prefix sum over a bounded
// group of cooperating lanes.
//
// A Group runs a fixed number of lanes as goroutines. Lanes share a cyclic
// Barrier, and every group-wide collective (InclusiveSum) must be entered by
// all lanes with the same arguments. The protocol has two phases separated
// by barriers:
//
//  1. local: each lane scans its contiguous block of the input and publishes
//     the block total;
//  2. combine: after the barrier each lane adds the totals of all lower lanes
//     to its block, then waits again so that every sum is visible to every
//     lane before any lane reads the result.
//
// With a single lane no goroutines are started and the barrier is a no-op,
// which makes the sequential and parallel paths share one implementation.
package scan

import "sync"

// Barrier is a reusable barrier for a fixed number of lanes.
//
// Wait blocks until every lane has called Wait for the current phase.
// A Barrier for one lane never blocks.
type Barrier struct {
	mu      sync.Mutex
	cond    *sync.Cond
	lanes   int
	waiting int
	phase   uint64
}

// NewBarrier creates a barrier for lanes participants.
// Values below 1 are treated as 1.
func NewBarrier(lanes int) *Barrier {
	if lanes < 1 {
		lanes = 1
	}
	b := &Barrier{lanes: lanes}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Wait blocks until all lanes reach the barrier.
func (b *Barrier) Wait() {
	if b.lanes == 1 {
		return
	}
	b.mu.Lock()
	phase := b.phase
	b.waiting++
	if b.waiting == b.lanes {
		b.waiting = 0
		b.phase++
		b.mu.Unlock()
		b.cond.Broadcast()
		return
	}
	for phase == b.phase {
		b.cond.Wait()
	}
	b.mu.Unlock()
}

// Group is a bounded set of cooperating lanes.
//
// A Group is not safe for use by more than one Run at a time.
type Group struct {
	lanes   int
	barrier *Barrier
	totals  []uint32
}

// NewGroup creates a group of lanes lanes. Values below 1 are treated as 1.
func NewGroup(lanes int) *Group {
	if lanes < 1 {
		lanes = 1
	}
	return &Group{
		lanes:   lanes,
		barrier: NewBarrier(lanes),
		totals:  make([]uint32, lanes),
	}
}

// Lanes returns the number of lanes in the group.
func (g *Group) Lanes() int {
	return g.lanes
}

// Run executes fn once per lane and returns after every lane returns.
// Lane 0 runs on the calling goroutine.
func (g *Group) Run(fn func(lane int)) {
	if g.lanes == 1 {
		fn(0)
		return
	}
	var wg sync.WaitGroup
	wg.Add(g.lanes - 1)
	for lane := 1; lane < g.lanes; lane++ {
		go func() {
			defer wg.Done()
			fn(lane)
		}()
	}
	fn(0)
	wg.Wait()
}

// Sync is a group-wide barrier. Every lane must call it.
func (g *Group) Sync() {
	g.barrier.Wait()
}

// Block returns the half-open range [lo, hi) of an n-element array owned
// by lane. Blocks are contiguous and ordered by lane, so concatenating them
// in lane order yields the whole array.
func (g *Group) Block(lane, n int) (lo, hi int) {
	per := (n + g.lanes - 1) / g.lanes
	lo = min(lane*per, n)
	hi = min(lo+per, n)
	return lo, hi
}

// InclusiveSum writes the inclusive prefix sum of flags[:n] into sums[:n]
// and returns the total. It is a collective: every lane of a running group
// must call it with the same slices and n. On return every element of sums
// is visible to every lane.
func (g *Group) InclusiveSum(lane int, flags, sums []uint32, n int) uint32 {
	lo, hi := g.Block(lane, n)

	var acc uint32
	for i := lo; i < hi; i++ {
		acc += flags[i]
		sums[i] = acc
	}
	g.totals[lane] = acc
	g.barrier.Wait()

	var offset, total uint32
	for l, t := range g.totals {
		if l < lane {
			offset += t
		}
		total += t
	}
	if offset != 0 {
		for i := lo; i < hi; i++ {
			sums[i] += offset
		}
	}
	g.barrier.Wait()

	return total
}

// Inclusive computes the inclusive prefix sum of flags into sums on the
// calling goroutine and returns the total. len(sums) must be at least
// len(flags).
func Inclusive(flags, sums []uint32) uint32 {
	var acc uint32
	for i, f := range flags {
		acc += f
		sums[i] = acc
	}
	return acc
}
