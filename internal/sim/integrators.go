package sim

import (
	"github.com/chewxy/math32"

	"github.com/gogpu/circles/internal/noise"
	"github.com/gogpu/circles/particle"
)

// Bouncing balls.
const (
	BallGravity = -2.8
	BallDrag    = -0.8
	restEpsilon = 1e-5
)

// Fireworks layout: NumFireworks centers at indices [0, NumFireworks),
// followed by SparksPerFirework sparks for each firework.
const (
	NumFireworks      = 15
	SparksPerFirework = 20
	SparkMaxDistance  = 0.25
	sparkSpeed        = 0.2
)

// Hypnosis.
const (
	HypnosisCutoff = 0.5
	HypnosisReset  = 0.02
	HypnosisGrowth = 0.01
)

// Snow drift.
const (
	SnowGravity  = -1.8
	SnowDrag     = 2
	snowNoiseX   = 7.5
	snowNoiseY   = 5
	snowRespawnY = 1.35
)

// bounce applies gravity to a ball and reflects it off y = 0 with drag.
// A ball at rest (zero y velocity at y = 0) is left unchanged.
//
// Below the floor a falling ball's velocity converges to the sink velocity
// BallGravity*Timestep/(1-BallDrag), where the bounce no longer changes it
// and the ball would sink one step at a time. A ball that reaches it is put
// at rest on the floor.
func bounce(s *particle.Store, i int) {
	p := s.Position(i)
	v := s.Velocity(i)
	if v.Y == 0 && p.Y == 0 {
		return
	}

	oldV := v.Y
	oldY := p.Y
	if p.Y < 0 && oldV < 0 {
		v.Y *= BallDrag
	}
	v.Y += BallGravity * Timestep
	p.Y += v.Y * Timestep

	// sink velocity reached
	if math32.Abs(v.Y-oldV) < restEpsilon && oldY < 0 && p.Y < 0 {
		v.Y = 0
		p.Y = 0
	}

	s.SetPosition(i, p)
	s.SetVelocity(i, v)
}

// firework moves spark i and respawns it on its center's rim once it has
// traveled past SparkMaxDistance. Centers are not updated.
func firework(s *particle.Store, i int) {
	if i < NumFireworks {
		return
	}
	f := (i - NumFireworks) / SparksPerFirework
	spark := (i - NumFireworks) % SparksPerFirework
	if f >= NumFireworks {
		return
	}

	center := s.Position(f)
	p := s.Position(i)
	v := s.Velocity(i)

	p.X += v.X * Timestep
	p.Y += v.Y * Timestep

	dx := p.X - center.X
	dy := p.Y - center.Y
	if math32.Sqrt(dx*dx+dy*dy) > SparkMaxDistance {
		angle := float32(spark) * 2 * math32.Pi / SparksPerFirework
		sin, cos := math32.Sincos(angle)
		r := s.Radius(f)

		p = particle.Vec3{X: center.X + cos*r, Y: center.Y + sin*r}
		v = particle.Vec3{X: cos * sparkSpeed, Y: sin * sparkSpeed}
	}

	s.SetPosition(i, p)
	s.SetVelocity(i, v)
}

// hypnosis grows the radius of i and resets it past HypnosisCutoff.
func hypnosis(s *particle.Store, i int) {
	r := s.Radius(i)
	if r > HypnosisCutoff {
		s.SetRadius(i, HypnosisReset)
		return
	}
	s.SetRadius(i, r+HypnosisGrowth)
}

// snow drifts flake i. Position moves with the current velocity before the
// velocity is updated. Flakes that leave through the left, right or bottom
// edge reappear above the top edge with a noise-chosen x and horizontal
// velocity.
func snow(s *particle.Store, t *noise.Tables, i int) {
	p := s.Position(i)
	v := s.Velocity(i)
	r := s.Radius(i)

	scale := min(max(1-p.Z, 0.1), 1)

	nx, ny := t.Cell2(10*p.X, 10*p.Y, 255*p.Z, i)
	nx *= snowNoiseX
	ny *= snowNoiseY

	dragX := -SnowDrag * v.X
	dragY := -SnowDrag * v.Y

	p.X += v.X * Timestep
	p.Y += v.Y * Timestep

	v.X += scale * (nx + dragX) * Timestep
	v.Y += scale * (SnowGravity + ny + dragY) * Timestep

	if p.Y+r < 0 || p.X+r < 0 || p.X-r > 1 {
		nx, ny = t.Cell2(255*p.X, 255*p.Y, 255*p.Z, i)
		p.X = 0.5 + 0.5*nx
		p.Y = snowRespawnY + r
		v.X = 2 * ny
		v.Y = 0
	}

	s.SetPosition(i, p)
	s.SetVelocity(i, v)
}
