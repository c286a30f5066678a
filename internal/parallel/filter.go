package parallel

import "github.com/gogpu/circles/particle"

// mayTouch is the conservative test: the circle's center lies inside the
// tile box grown by the radius on every side. Corners are over-included,
// which is fine; no touching circle is ever rejected.
func mayTouch(b Box, x, y, r float32) bool {
	return x >= b.L-r && x <= b.R+r &&
		y >= b.B-r && y <= b.T+r
}

// touches is the exact test: the point of the box closest to the center is
// within the radius.
func touches(b Box, x, y, r float32) bool {
	cx := min(max(x, b.L), b.R)
	cy := min(max(y, b.B), b.T)
	dx := cx - x
	dy := cy - y
	return dx*dx+dy*dy <= r*r
}

// filterChunk narrows particles [base, base+ChunkSize) to those whose disk
// intersects box and leaves them in s.definite in ascending index order.
// It returns the number of definite candidates.
//
// filterChunk is a collective: every lane of s.group must call it with the
// same arguments. Lane work is split by scan.Group.Block, and the group
// barriers inside InclusiveSum and Sync order the stages:
//
//	conservative flags -> scan -> scatter probable -> sync ->
//	exact flags -> scan -> scatter definite -> sync
//
// Indices past the end of the particle list are flagged 0.
func filterChunk(lane int, s *Scratch, box Box, base int, v particle.View) int {
	g := s.group
	n := v.Len()

	lo, hi := g.Block(lane, ChunkSize)
	for i := lo; i < hi; i++ {
		var f uint32
		if idx := base + i; idx < n {
			if x, y, r := v.Circle(idx); mayTouch(box, x, y, r) {
				f = 1
			}
		}
		s.flags[i] = f
	}

	probable := int(g.InclusiveSum(lane, s.flags[:], s.sums[:], ChunkSize))
	if probable == 0 {
		return 0
	}
	for i := lo; i < hi; i++ {
		if s.flags[i] != 0 {
			s.probable[s.sums[i]-1] = uint32(base + i) //nolint:gosec // index < particle count
		}
	}
	g.Sync()

	plo, phi := g.Block(lane, probable)
	for k := plo; k < phi; k++ {
		var f uint32
		if x, y, r := v.Circle(int(s.probable[k])); touches(box, x, y, r) {
			f = 1
		}
		s.exact[k] = f
	}

	definite := int(g.InclusiveSum(lane, s.exact[:], s.exactSum[:], probable))
	if definite == 0 {
		return 0
	}
	for k := plo; k < phi; k++ {
		if s.exact[k] != 0 {
			s.definite[s.exactSum[k]-1] = s.probable[k]
		}
	}
	g.Sync()

	return definite
}

// FilterTile returns every particle index whose circle intersects box, in
// ascending order, by running the chunked two-stage filter over the whole
// particle list with the scratch group's lanes.
//
// The rasterizer fuses this loop with shading; FilterTile exists for
// callers that only need candidate lists.
func FilterTile(box Box, v particle.View, s *Scratch) []uint32 {
	var out []uint32
	n := v.Len()
	for base := 0; base < n; base += ChunkSize {
		var count int
		s.group.Run(func(lane int) {
			c := filterChunk(lane, s, box, base, v)
			if lane == 0 {
				count = c
			}
		})
		out = append(out, s.definite[:count]...)
	}
	return out
}

// Chunks returns the number of filter iterations needed for n particles.
func Chunks(n int) int {
	return (n + ChunkSize - 1) / ChunkSize
}
