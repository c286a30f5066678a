package scene

import (
	"cmp"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/chewxy/math32"

	"github.com/gogpu/circles/internal/sim"
	"github.com/gogpu/circles/particle"
)

const (
	patternGrid  = 40
	hypnosisGrid = 32
)

// Options tunes scene generation.
type Options struct {
	// Particles overrides the particle count of resizable scenes. 0 keeps
	// the scene default.
	Particles int

	// Seed makes random scenes reproducible.
	Seed uint64
}

// Load builds the initial particle store of scene id.
//
// Random scenes are sorted far to near by depth (z descending), so index
// order, which is blend order, is back to front.
func Load(id ID, opts Options) (*particle.Store, error) {
	if !id.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrUnknownScene, id)
	}

	n := id.DefaultParticles()
	if opts.Particles > 0 && id.Resizable() {
		n = opts.Particles
	}
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x6a09e667f3bcc909)) //nolint:gosec // reproducible scenes

	var s *particle.Store
	switch id {
	case RGB, RGBY:
		s = primaries(n)
	case Rand10K:
		s = randomCircles(rng, n, 0.02, 0.06)
	case Rand100K:
		s = randomCircles(rng, n, 0.004, 0.016)
	case Rand1M:
		s = randomCircles(rng, n, 0.001, 0.005)
	case Random:
		s = randomCircles(rng, n, 0.01, 0.04)
	case BigLittle:
		s = bigLittle(rng, n, true)
	case LittleBig:
		s = bigLittle(rng, n, false)
	case Pattern:
		s = pattern()
	case BouncingBalls:
		s = bouncingBalls(rng, n)
	case Hypnosis:
		s = hypnosis()
	case Fireworks:
		s = fireworks(rng)
	case Snow:
		s = snowflakes(rng, n)
	case SnowSingle:
		s = particle.New(1)
		s.SetPosition(0, particle.Vec3{X: 0.5, Y: 0.5})
		s.SetRadius(0, 0.1)
		s.SetColor(0, particle.Vec3{X: 1, Y: 1, Z: 1})
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("scene %v: %w", id, err)
	}
	return s, nil
}

// primaries returns the red, green, blue (and yellow) reference circles.
func primaries(n int) *particle.Store {
	s := particle.New(n)
	centers := []particle.Vec3{
		{X: 0.4, Y: 0.5, Z: 0.75},
		{X: 0.5, Y: 0.5, Z: 0.5},
		{X: 0.6, Y: 0.5, Z: 0.25},
		{X: 0.72, Y: 0.5, Z: 0.25},
	}
	colors := []particle.Vec3{
		{X: 1},
		{Y: 1},
		{Z: 1},
		{X: 1, Y: 1},
	}
	for i := range n {
		s.SetPosition(i, centers[i])
		s.SetColor(i, colors[i])
		s.SetRadius(i, 0.3)
	}
	return s
}

// randomCircles returns n circles with uniform centers and depths, random
// colors and radii in [minR, minR+spanR), sorted far to near.
func randomCircles(rng *rand.Rand, n int, minR, spanR float32) *particle.Store {
	s := particle.New(n)
	for i := range n {
		s.SetPosition(i, particle.Vec3{X: rng.Float32(), Y: rng.Float32(), Z: rng.Float32()})
		s.SetColor(i, particle.Vec3{X: rng.Float32(), Y: rng.Float32(), Z: rng.Float32()})
		s.SetRadius(i, minR+spanR*rng.Float32())
	}
	return sortFarToNear(s)
}

// bigLittle returns a tenth large circles and the rest small ones. With
// bigFirst the large circles are at the back.
func bigLittle(rng *rand.Rand, n int, bigFirst bool) *particle.Store {
	big := max(n/10, 1)
	if n == 0 {
		big = 0
	}
	s := particle.New(n)
	for i := range n {
		isBig := i < big
		if !bigFirst {
			isBig = i >= n-big
		}
		r := 0.004 + 0.01*rng.Float32()
		if isBig {
			r = 0.08 + 0.12*rng.Float32()
		}
		s.SetPosition(i, particle.Vec3{X: rng.Float32(), Y: rng.Float32(), Z: float32(n-i) / float32(n)})
		s.SetColor(i, particle.Vec3{X: rng.Float32(), Y: rng.Float32(), Z: rng.Float32()})
		s.SetRadius(i, r)
	}
	return s
}

// pattern returns a grid of slightly overlapping circles shaded by
// position.
func pattern() *particle.Store {
	s := particle.New(patternGrid * patternGrid)
	cell := float32(1) / patternGrid
	for iy := range patternGrid {
		for ix := range patternGrid {
			i := iy*patternGrid + ix
			x := (float32(ix) + 0.5) * cell
			y := (float32(iy) + 0.5) * cell
			s.SetPosition(i, particle.Vec3{X: x, Y: y, Z: 0.5})
			s.SetColor(i, particle.Vec3{X: x, Y: y, Z: 1 - x})
			s.SetRadius(i, 0.6*cell)
		}
	}
	return s
}

// bouncingBalls returns n balls spread along x and dropped from random
// heights in the upper half.
func bouncingBalls(rng *rand.Rand, n int) *particle.Store {
	s := particle.New(n)
	r := min(float32(0.1), 0.4/float32(max(n, 1)))
	for i := range n {
		x := (float32(i) + 0.5) / float32(n)
		s.SetPosition(i, particle.Vec3{X: x, Y: 0.5 + 0.45*rng.Float32()})
		s.SetColor(i, particle.Vec3{X: rng.Float32(), Y: rng.Float32(), Z: rng.Float32()})
		s.SetRadius(i, r)
	}
	return s
}

// hypnosis returns a grid whose radii are staggered along the diagonals so
// the growth and reset of each circle reads as traveling rings.
func hypnosis() *particle.Store {
	s := particle.New(hypnosisGrid * hypnosisGrid)
	cell := float32(1) / hypnosisGrid
	span := float32(sim.HypnosisCutoff - sim.HypnosisReset)
	for iy := range hypnosisGrid {
		for ix := range hypnosisGrid {
			i := iy*hypnosisGrid + ix
			phase := float32((ix+iy)%hypnosisGrid) / hypnosisGrid
			shadeV := float32((ix+iy)%2)*0.6 + 0.2
			s.SetPosition(i, particle.Vec3{
				X: (float32(ix) + 0.5) * cell,
				Y: (float32(iy) + 0.5) * cell,
			})
			s.SetColor(i, particle.Vec3{X: shadeV, Y: shadeV * 0.5, Z: 1 - shadeV})
			s.SetRadius(i, sim.HypnosisReset+phase*span)
		}
	}
	return s
}

// fireworks returns the firework centers followed by their sparks, each
// spark on its center's rim moving outward.
func fireworks(rng *rand.Rand) *particle.Store {
	s := particle.New(sim.NumFireworks * (sim.SparksPerFirework + 1))
	for f := range sim.NumFireworks {
		c := particle.Vec3{X: 0.2 + 0.6*rng.Float32(), Y: 0.2 + 0.6*rng.Float32()}
		col := particle.Vec3{X: 0.5 + 0.5*rng.Float32(), Y: 0.5 + 0.5*rng.Float32(), Z: 0.5 + 0.5*rng.Float32()}
		r := 0.02 + 0.03*rng.Float32()
		s.SetPosition(f, c)
		s.SetColor(f, col)
		s.SetRadius(f, r)

		for k := range sim.SparksPerFirework {
			i := sim.NumFireworks + f*sim.SparksPerFirework + k
			sin, cos := math32.Sincos(float32(k) * 2 * math32.Pi / sim.SparksPerFirework)
			s.SetPosition(i, particle.Vec3{X: c.X + cos*r, Y: c.Y + sin*r})
			s.SetVelocity(i, particle.Vec3{X: cos / 5, Y: sin / 5})
			s.SetColor(i, col)
			s.SetRadius(i, 0.01)
		}
	}
	return s
}

// snowflakes returns n flakes spread over and above the image, larger when
// nearer, sorted far to near.
func snowflakes(rng *rand.Rand, n int) *particle.Store {
	s := particle.New(n)
	for i := range n {
		z := rng.Float32()
		s.SetPosition(i, particle.Vec3{X: rng.Float32(), Y: 1.35 * rng.Float32(), Z: z})
		s.SetColor(i, particle.Vec3{X: 1, Y: 1, Z: 1})
		s.SetRadius(i, 0.004+0.012*(1-z))
	}
	return sortFarToNear(s)
}

// sortFarToNear reorders s by depth, largest z first. Ties keep their
// original order.
func sortFarToNear(s *particle.Store) *particle.Store {
	n := s.Len()
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(s.Position(b).Z, s.Position(a).Z)
	})

	out := particle.New(n)
	for dst, src := range order {
		out.SetPosition(dst, s.Position(src))
		out.SetVelocity(dst, s.Velocity(src))
		out.SetColor(dst, s.Color(src))
		out.SetRadius(dst, s.Radius(src))
	}
	return out
}
