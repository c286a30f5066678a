package scene

import (
	"errors"
	"testing"

	"github.com/gogpu/circles/internal/shade"
	"github.com/gogpu/circles/internal/sim"
)

func TestParse(t *testing.T) {
	for i, name := range Names() {
		id, err := Parse(name)
		if err != nil {
			t.Fatalf("Parse(%q): %v", name, err)
		}
		if int(id) != i || id.String() != name {
			t.Errorf("Parse(%q) = %v, want %d", name, id, i)
		}
	}

	if id, err := Parse("  SnowSingle "); err != nil || id != SnowSingle {
		t.Errorf("Parse is not case-insensitive: %v, %v", id, err)
	}

	for _, bad := range []string{"", "rand10", "circles", "snow2"} {
		if _, err := Parse(bad); !errors.Is(err, ErrUnknownScene) {
			t.Errorf("Parse(%q) error = %v, want ErrUnknownScene", bad, err)
		}
	}
}

func TestID_Properties(t *testing.T) {
	tests := []struct {
		id         ID
		snow       bool
		integrator sim.Kind
	}{
		{RGB, false, sim.None},
		{Rand1M, false, sim.None},
		{BouncingBalls, false, sim.BouncingBalls},
		{Hypnosis, false, sim.Hypnosis},
		{Fireworks, false, sim.Fireworks},
		{Snow, true, sim.Snow},
		{SnowSingle, true, sim.Snow},
	}
	for _, tt := range tests {
		t.Run(tt.id.String(), func(t *testing.T) {
			if tt.id.IsSnow() != tt.snow {
				t.Errorf("IsSnow() = %v, want %v", tt.id.IsSnow(), tt.snow)
			}
			wantPolicy := shade.PolicyFlat
			if tt.snow {
				wantPolicy = shade.PolicySnow
			}
			if tt.id.Policy() != wantPolicy {
				t.Errorf("Policy() = %v, want %v", tt.id.Policy(), wantPolicy)
			}
			if tt.id.Integrator() != tt.integrator {
				t.Errorf("Integrator() = %v, want %v", tt.id.Integrator(), tt.integrator)
			}
		})
	}

	if ID(200).Valid() || ID(200).String() != "ID(200)" {
		t.Error("out-of-range ID should be invalid")
	}
}

func TestLoad_AllScenes(t *testing.T) {
	for _, name := range Names() {
		id, _ := Parse(name)
		if id == Rand1M && testing.Short() {
			continue
		}
		t.Run(name, func(t *testing.T) {
			s, err := Load(id, Options{Seed: 1})
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if s.Len() != id.DefaultParticles() {
				t.Errorf("Len() = %d, want %d", s.Len(), id.DefaultParticles())
			}
			if err := s.Validate(); err != nil {
				t.Errorf("Validate: %v", err)
			}
		})
	}
}

func TestLoad_Particles(t *testing.T) {
	s, err := Load(Random, Options{Particles: 123})
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 123 {
		t.Errorf("Len() = %d, want 123", s.Len())
	}

	// Fixed-layout scenes ignore the override.
	s, err = Load(Fireworks, Options{Particles: 5})
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != sim.NumFireworks*(sim.SparksPerFirework+1) {
		t.Errorf("fireworks Len() = %d", s.Len())
	}
}

func TestLoad_Deterministic(t *testing.T) {
	a, _ := Load(Rand10K, Options{Seed: 42, Particles: 500})
	b, _ := Load(Rand10K, Options{Seed: 42, Particles: 500})
	c, _ := Load(Rand10K, Options{Seed: 43, Particles: 500})

	same := true
	for i := range a.Len() {
		if a.Position(i) != b.Position(i) || a.Radius(i) != b.Radius(i) {
			t.Fatalf("particle %d differs for equal seeds", i)
		}
		if a.Position(i) != c.Position(i) {
			same = false
		}
	}
	if same {
		t.Error("different seeds produced identical scenes")
	}
}

func TestLoad_SortedFarToNear(t *testing.T) {
	for _, id := range []ID{Rand10K, Snow, Random} {
		s, err := Load(id, Options{Seed: 3, Particles: 2000})
		if err != nil {
			t.Fatal(err)
		}
		for i := 1; i < s.Len(); i++ {
			if s.Position(i).Z > s.Position(i-1).Z {
				t.Fatalf("%v: particle %d nearer than %d is drawn first", id, i-1, i)
			}
		}
	}
}

func TestLoad_Fireworks(t *testing.T) {
	s, _ := Load(Fireworks, Options{Seed: 9})

	for f := range sim.NumFireworks {
		c := s.Position(f)
		for k := range sim.SparksPerFirework {
			p := s.Position(sim.NumFireworks + f*sim.SparksPerFirework + k)
			dx, dy := p.X-c.X, p.Y-c.Y
			d2 := dx*dx + dy*dy
			r := s.Radius(f)
			if d2 > r*r*1.0001 || d2 < r*r*0.9999 {
				t.Fatalf("spark %d of firework %d is not on the rim", k, f)
			}
		}
	}
}

func TestLoad_Primaries(t *testing.T) {
	s, _ := Load(RGB, Options{})
	if c := s.Color(0); c.X != 1 || c.Y != 0 || c.Z != 0 {
		t.Errorf("first circle color = %+v, want red", c)
	}
	if c := s.Color(2); c.Z != 1 {
		t.Errorf("third circle color = %+v, want blue", c)
	}
}

func TestLoad_Invalid(t *testing.T) {
	if _, err := Load(ID(99), Options{}); !errors.Is(err, ErrUnknownScene) {
		t.Errorf("Load(99) error = %v, want ErrUnknownScene", err)
	}
}
