package sim

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/gogpu/circles/internal/noise"
	"github.com/gogpu/circles/internal/parallel"
	"github.com/gogpu/circles/particle"
)

func approx(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-5
}

// =============================================================================
// Bouncing Balls Tests
// =============================================================================

func TestBounce_RestIsIdempotent(t *testing.T) {
	s := particle.New(1)
	s.SetRadius(0, 0.05)
	s.SetPosition(0, particle.Vec3{X: 0.3})

	for range 10 {
		Advance(BouncingBalls, s, nil, nil)
	}
	if p, v := s.Position(0), s.Velocity(0); p != (particle.Vec3{X: 0.3}) || v != (particle.Vec3{}) {
		t.Errorf("rest ball moved: p=%+v v=%+v", p, v)
	}
}

func TestBounce_Gravity(t *testing.T) {
	s := particle.New(1)
	s.SetRadius(0, 0.05)
	s.SetPosition(0, particle.Vec3{Y: 0.5})

	Advance(BouncingBalls, s, nil, nil)

	wantV := float32(BallGravity) * Timestep
	if v := s.Velocity(0); !approx(v.Y, wantV) {
		t.Errorf("v.Y = %v, want %v", v.Y, wantV)
	}
	if p := s.Position(0); !approx(p.Y, 0.5+wantV*Timestep) {
		t.Errorf("p.Y = %v, want %v", p.Y, 0.5+wantV*Timestep)
	}
}

func TestBounce_ReflectsBelowFloor(t *testing.T) {
	s := particle.New(1)
	s.SetRadius(0, 0.05)
	s.SetPosition(0, particle.Vec3{Y: -0.01})
	s.SetVelocity(0, particle.Vec3{Y: -1})

	Advance(BouncingBalls, s, nil, nil)

	want := float32(-1*BallDrag) + BallGravity*Timestep
	if v := s.Velocity(0); !approx(v.Y, want) {
		t.Errorf("v.Y = %v, want %v", v.Y, want)
	}
	if v := s.Velocity(0); v.Y <= 0 {
		t.Error("ball should move upward after bounce")
	}
}

func TestBounce_BelowFloorSnap(t *testing.T) {
	sink := float32(BallGravity) * Timestep / (1 - BallDrag)
	tests := []struct {
		name     string
		y, vy    float32
		wantRest bool
	}{
		{"sink velocity", -0.001, sink, true},
		{"deep at sink velocity", -0.5, sink, true},
		{"slow fall", -0.001, -0.02, false},
		{"slow rise", -0.001, 0.005, false},
		{"fast fall", -0.001, -0.5, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := particle.New(1)
			s.SetRadius(0, 0.05)
			s.SetPosition(0, particle.Vec3{Y: tt.y})
			s.SetVelocity(0, particle.Vec3{Y: tt.vy})

			Advance(BouncingBalls, s, nil, nil)

			p, v := s.Position(0), s.Velocity(0)
			rest := p.Y == 0 && v.Y == 0
			if rest != tt.wantRest {
				t.Errorf("rest = %v, want %v (p.Y=%v v.Y=%v)", rest, tt.wantRest, p.Y, v.Y)
			}
		})
	}
}

func TestBounce_SinkingBallSettles(t *testing.T) {
	s := particle.New(1)
	s.SetRadius(0, 0.05)
	s.SetPosition(0, particle.Vec3{Y: -0.001})
	s.SetVelocity(0, particle.Vec3{Y: -0.03})

	for range 60 {
		Advance(BouncingBalls, s, nil, nil)
	}
	if p, v := s.Position(0), s.Velocity(0); p.Y != 0 || v.Y != 0 {
		t.Errorf("ball did not settle: p.Y=%v v.Y=%v", p.Y, v.Y)
	}
}

func TestBounce_StaysAboveFloorOverTime(t *testing.T) {
	s := particle.New(1)
	s.SetRadius(0, 0.05)
	s.SetPosition(0, particle.Vec3{Y: 0.8})

	for range 2000 {
		Advance(BouncingBalls, s, nil, nil)
		if p := s.Position(0); p.Y < -0.2 || p.Y > 0.81 {
			t.Fatalf("ball escaped: y = %v", p.Y)
		}
	}
}

// =============================================================================
// Fireworks Tests
// =============================================================================

func fireworkStore() *particle.Store {
	n := NumFireworks * (SparksPerFirework + 1)
	s := particle.New(n)
	for f := range NumFireworks {
		s.SetPosition(f, particle.Vec3{X: 0.5, Y: 0.5})
		s.SetRadius(f, 0.05)
	}
	for i := NumFireworks; i < n; i++ {
		s.SetPosition(i, particle.Vec3{X: 0.5, Y: 0.5})
		s.SetVelocity(i, particle.Vec3{X: 0.1})
		s.SetRadius(i, 0.01)
	}
	return s
}

func TestFireworks_CentersFixed(t *testing.T) {
	s := fireworkStore()
	s.SetVelocity(0, particle.Vec3{X: 1, Y: 1})

	Advance(Fireworks, s, nil, nil)

	if p := s.Position(0); p != (particle.Vec3{X: 0.5, Y: 0.5}) {
		t.Errorf("center moved to %+v", p)
	}
}

func TestFireworks_SparkMoves(t *testing.T) {
	s := fireworkStore()
	Advance(Fireworks, s, nil, nil)

	if p := s.Position(NumFireworks); !approx(p.X, 0.5+0.1*Timestep) {
		t.Errorf("spark x = %v, want %v", p.X, 0.5+0.1*Timestep)
	}
}

func TestFireworks_Respawn(t *testing.T) {
	s := fireworkStore()

	// Spark 5 of firework 2, beyond the max distance.
	i := NumFireworks + 2*SparksPerFirework + 5
	s.SetPosition(i, particle.Vec3{X: 0.9, Y: 0.5})

	Advance(Fireworks, s, nil, nil)

	// angle = 2*pi*5/20 = pi/2
	p, v := s.Position(i), s.Velocity(i)
	if !approx(p.X, 0.5) || !approx(p.Y, 0.55) || p.Z != 0 {
		t.Errorf("respawn position = %+v, want (0.5, 0.55, 0)", p)
	}
	if !approx(v.X, 0) || !approx(v.Y, 0.2) {
		t.Errorf("respawn velocity = %+v, want (0, 0.2)", v)
	}
}

// =============================================================================
// Hypnosis Tests
// =============================================================================

func TestHypnosis(t *testing.T) {
	tests := []struct {
		radius, want float32
	}{
		{0.02, 0.03},
		{0.5, 0.51},
		{0.51, 0.02},
		{3, 0.02},
	}
	for _, tt := range tests {
		s := particle.New(1)
		s.SetRadius(0, tt.radius)
		Advance(Hypnosis, s, nil, nil)
		if got := s.Radius(0); !approx(got, tt.want) {
			t.Errorf("radius %v -> %v, want %v", tt.radius, got, tt.want)
		}
	}
}

// =============================================================================
// Snow Tests
// =============================================================================

func snowStore(n int, seed uint64) *particle.Store {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	s := particle.New(n)
	for i := range n {
		s.SetPosition(i, particle.Vec3{X: rng.Float32(), Y: rng.Float32(), Z: rng.Float32()})
		s.SetRadius(i, 0.01+0.02*rng.Float32())
	}
	return s
}

func TestSnow_Respawn(t *testing.T) {
	tables := noise.Generate(1)
	s := particle.New(1)
	s.SetRadius(0, 0.02)
	s.SetPosition(0, particle.Vec3{X: 0.5, Y: -0.5, Z: 0.3})

	Advance(Snow, s, tables, nil)

	p, v := s.Position(0), s.Velocity(0)
	if !approx(p.Y, 1.35+0.02) {
		t.Errorf("respawn y = %v, want %v", p.Y, 1.37)
	}
	if p.X < 0 || p.X > 1 {
		t.Errorf("respawn x = %v, want in [0,1]", p.X)
	}
	if v.Y != 0 || v.X < -2 || v.X > 2 {
		t.Errorf("respawn velocity = %+v", v)
	}
}

func TestSnow_Step(t *testing.T) {
	tables := noise.Generate(1)
	s := particle.New(1)
	s.SetRadius(0, 0.02)
	s.SetPosition(0, particle.Vec3{X: 0.5, Y: 0.5, Z: 0.5})
	s.SetVelocity(0, particle.Vec3{X: 0.3, Y: -0.6})

	Advance(Snow, s, tables, nil)

	// Position steps with the old velocity.
	if p := s.Position(0); !approx(p.X, 0.5+0.3*Timestep) || !approx(p.Y, 0.5-0.6*Timestep) {
		t.Errorf("position = %+v, want step with the old velocity", p)
	}

	// Force scaling is 1 - z = 0.5; drag opposes each velocity component.
	nx, ny := tables.Cell2(5, 5, 127.5, 0)
	wantX := 0.3 + 0.5*(nx*7.5-SnowDrag*0.3)*Timestep
	wantY := -0.6 + 0.5*(SnowGravity+ny*5+SnowDrag*0.6)*Timestep
	if v := s.Velocity(0); !approx(v.X, wantX) || !approx(v.Y, wantY) {
		t.Errorf("velocity = %+v, want (%v, %v)", v, wantX, wantY)
	}
}

// Drag on each axis opposes that axis' velocity only.
func TestSnow_DragPerAxis(t *testing.T) {
	tables := noise.Generate(1)
	nx, ny := tables.Cell2(5, 5, 127.5, 0)

	tests := []struct {
		name         string
		vx, vy       float32
		wantX, wantY float32
	}{
		{"vertical only", 0, -0.6,
			0.5 * nx * 7.5 * Timestep,
			-0.6 + 0.5*(SnowGravity+ny*5+SnowDrag*0.6)*Timestep},
		{"horizontal only", 0.4, 0,
			0.4 + 0.5*(nx*7.5-SnowDrag*0.4)*Timestep,
			0.5 * (SnowGravity + ny*5) * Timestep},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := particle.New(1)
			s.SetRadius(0, 0.02)
			s.SetPosition(0, particle.Vec3{X: 0.5, Y: 0.5, Z: 0.5})
			s.SetVelocity(0, particle.Vec3{X: tt.vx, Y: tt.vy})

			Advance(Snow, s, tables, nil)

			if v := s.Velocity(0); !approx(v.X, tt.wantX) || !approx(v.Y, tt.wantY) {
				t.Errorf("velocity = %+v, want (%v, %v)", v, tt.wantX, tt.wantY)
			}
		})
	}
}

func TestSnow_NilTablesIsNoop(t *testing.T) {
	s := snowStore(4, 9)
	before := s.Clone()
	Advance(Snow, s, nil, nil)
	for i := range s.Len() {
		if s.Position(i) != before.Position(i) {
			t.Fatal("snow without tables should not move particles")
		}
	}
}

// =============================================================================
// Advance Tests
// =============================================================================

func TestAdvance_ParallelMatchesSequential(t *testing.T) {
	tables := noise.Generate(7)
	pool := parallel.NewWorkerPool(4)
	defer pool.Close()

	for _, kind := range []Kind{BouncingBalls, Hypnosis, Snow} {
		t.Run(kind.String(), func(t *testing.T) {
			a := snowStore(3*BatchSize+17, 11)
			b := a.Clone()
			for range 5 {
				Advance(kind, a, tables, Sequential{})
				Advance(kind, b, tables, pool)
			}
			for i := range a.Len() {
				if a.Position(i) != b.Position(i) || a.Velocity(i) != b.Velocity(i) || a.Radius(i) != b.Radius(i) {
					t.Fatalf("particle %d differs", i)
				}
			}
		})
	}
}

func TestAdvance_NoneIsNoop(t *testing.T) {
	s := snowStore(10, 5)
	before := s.Clone()
	Advance(None, s, nil, nil)
	for i := range s.Len() {
		if s.Position(i) != before.Position(i) {
			t.Fatal("None should not move particles")
		}
	}
}

func TestKind_String(t *testing.T) {
	tests := map[Kind]string{
		None:          "none",
		BouncingBalls: "bouncing-balls",
		Fireworks:     "fireworks",
		Hypnosis:      "hypnosis",
		Snow:          "snow",
		Kind(99):      "unknown",
	}
	for k, want := range tests {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}

func BenchmarkAdvance_Snow(b *testing.B) {
	tables := noise.Generate(1)
	s := snowStore(100_000, 1)
	pool := parallel.NewWorkerPool(0)
	defer pool.Close()

	b.ReportAllocs()
	for b.Loop() {
		Advance(Snow, s, tables, pool)
	}
}
