// Package particle holds the particle store shared by the integrators and the
// rasterizer.
//
// Particles live in parallel flat arrays indexed 0..N-1. The index of a
// particle is significant: it defines the order in which circles are blended
// into the image, so particles are never reordered or removed once loaded.
//
// Ownership: the Store owns the memory. During a frame the rasterizer holds a
// read-only View, and the integrator for the active scene mutates the Store
// directly during its own pass. The two never overlap in time.
package particle

import (
	"errors"
	"fmt"
)

// Component counts per particle in each flat buffer.
const (
	PositionStride = 3
	VelocityStride = 3
	ColorStride    = 3
)

// ErrBufferMismatch is returned when a buffer length does not match the
// particle count.
var ErrBufferMismatch = errors.New("particle: buffer length does not match particle count")

// ErrInvalidRadius is returned when a particle radius is not strictly positive.
var ErrInvalidRadius = errors.New("particle: radius must be positive")

// Vec3 is a three-component float32 vector.
type Vec3 struct {
	X, Y, Z float32
}

// Store is the flat, index-ordered particle storage.
//
// Position X and Y are normalized to [0,1]; Z is a depth hint where smaller
// values are closer to the viewer.
type Store struct {
	n          int
	positions  []float32
	velocities []float32
	colors     []float32
	radii      []float32
}

// New allocates a zeroed store for n particles.
func New(n int) *Store {
	if n < 0 {
		n = 0
	}
	return &Store{
		n:          n,
		positions:  make([]float32, n*PositionStride),
		velocities: make([]float32, n*VelocityStride),
		colors:     make([]float32, n*ColorStride),
		radii:      make([]float32, n),
	}
}

// FromBuffers wraps externally produced flat buffers without copying.
// The buffers must hold exactly n particles and every radius must be
// positive; otherwise ErrBufferMismatch or ErrInvalidRadius is returned.
func FromBuffers(n int, positions, velocities, colors, radii []float32) (*Store, error) {
	s := &Store{
		n:          n,
		positions:  positions,
		velocities: velocities,
		colors:     colors,
		radii:      radii,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the buffer lengths against the particle count and the
// radius invariant.
func (s *Store) Validate() error {
	if s.n < 0 {
		return fmt.Errorf("%w: negative count %d", ErrBufferMismatch, s.n)
	}
	checks := []struct {
		name   string
		got    int
		stride int
	}{
		{"position", len(s.positions), PositionStride},
		{"velocity", len(s.velocities), VelocityStride},
		{"color", len(s.colors), ColorStride},
		{"radius", len(s.radii), 1},
	}
	for _, c := range checks {
		if c.got != s.n*c.stride {
			return fmt.Errorf("%w: %s buffer has %d floats, want %d",
				ErrBufferMismatch, c.name, c.got, s.n*c.stride)
		}
	}
	for i, r := range s.radii {
		if !(r > 0) {
			return fmt.Errorf("%w: particle %d has radius %g", ErrInvalidRadius, i, r)
		}
	}
	return nil
}

// Len returns the number of particles.
func (s *Store) Len() int {
	return s.n
}

// Position returns the position of particle i.
func (s *Store) Position(i int) Vec3 {
	p := s.positions[i*PositionStride : i*PositionStride+3 : i*PositionStride+3]
	return Vec3{p[0], p[1], p[2]}
}

// SetPosition updates the position of particle i.
func (s *Store) SetPosition(i int, v Vec3) {
	p := s.positions[i*PositionStride : i*PositionStride+3 : i*PositionStride+3]
	p[0], p[1], p[2] = v.X, v.Y, v.Z
}

// Velocity returns the velocity of particle i.
func (s *Store) Velocity(i int) Vec3 {
	v := s.velocities[i*VelocityStride : i*VelocityStride+3 : i*VelocityStride+3]
	return Vec3{v[0], v[1], v[2]}
}

// SetVelocity updates the velocity of particle i.
func (s *Store) SetVelocity(i int, v Vec3) {
	p := s.velocities[i*VelocityStride : i*VelocityStride+3 : i*VelocityStride+3]
	p[0], p[1], p[2] = v.X, v.Y, v.Z
}

// Color returns the RGB color of particle i.
func (s *Store) Color(i int) Vec3 {
	c := s.colors[i*ColorStride : i*ColorStride+3 : i*ColorStride+3]
	return Vec3{c[0], c[1], c[2]}
}

// SetColor updates the RGB color of particle i.
func (s *Store) SetColor(i int, c Vec3) {
	p := s.colors[i*ColorStride : i*ColorStride+3 : i*ColorStride+3]
	p[0], p[1], p[2] = c.X, c.Y, c.Z
}

// Radius returns the radius of particle i.
func (s *Store) Radius(i int) float32 {
	return s.radii[i]
}

// SetRadius updates the radius of particle i.
func (s *Store) SetRadius(i int, r float32) {
	s.radii[i] = r
}

// Positions exposes the packed position buffer (x,y,z per particle).
func (s *Store) Positions() []float32 { return s.positions }

// Velocities exposes the packed velocity buffer.
func (s *Store) Velocities() []float32 { return s.velocities }

// Colors exposes the packed color buffer.
func (s *Store) Colors() []float32 { return s.colors }

// Radii exposes the radius buffer.
func (s *Store) Radii() []float32 { return s.radii }

// View returns a read-only view of the store.
func (s *Store) View() View {
	return View{s: s}
}

// Clone returns a deep copy of the store.
func (s *Store) Clone() *Store {
	return &Store{
		n:          s.n,
		positions:  append([]float32(nil), s.positions...),
		velocities: append([]float32(nil), s.velocities...),
		colors:     append([]float32(nil), s.colors...),
		radii:      append([]float32(nil), s.radii...),
	}
}

// View is a read-only borrow of a Store. It is what the rasterizer sees.
type View struct {
	s *Store
}

// Len returns the number of particles, or 0 for a zero View.
func (v View) Len() int {
	if v.s == nil {
		return 0
	}
	return v.s.n
}

// Position returns the position of particle i.
func (v View) Position(i int) Vec3 { return v.s.Position(i) }

// Color returns the RGB color of particle i.
func (v View) Color(i int) Vec3 { return v.s.Color(i) }

// Radius returns the radius of particle i.
func (v View) Radius(i int) float32 { return v.s.radii[i] }

// Circle returns the center x, y and radius of particle i in one call.
// This is the hot accessor used by the tile filter.
func (v View) Circle(i int) (x, y, r float32) {
	p := v.s.positions[i*PositionStride:]
	return p[0], p[1], v.s.radii[i]
}
