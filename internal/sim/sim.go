// Package sim advances particle stores by one fixed timestep.
//
// Every integrator is an independent per-particle map: a step for index i
// reads and writes only slot i (fireworks sparks additionally read their
// firework's center, which is never written). Advance therefore splits the
// store into batches and runs them concurrently.
package sim

import (
	"github.com/gogpu/circles/internal/noise"
	"github.com/gogpu/circles/particle"
)

// Timestep is the fixed simulation step in seconds.
const Timestep float32 = 1.0 / 60

// BatchSize is the number of particles advanced by one job.
const BatchSize = 4096

// Kind selects an integrator.
type Kind uint8

const (
	// None leaves particles untouched (static scenes).
	None Kind = iota

	// BouncingBalls applies gravity and bounces balls off the floor.
	BouncingBalls

	// Fireworks moves sparks away from their firework center and
	// respawns those that travel too far.
	Fireworks

	// Hypnosis grows every radius and resets it past a cutoff.
	Hypnosis

	// Snow drifts flakes with cell noise, drag and gravity.
	Snow
)

// String returns the integrator name.
func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case BouncingBalls:
		return "bouncing-balls"
	case Fireworks:
		return "fireworks"
	case Hypnosis:
		return "hypnosis"
	case Snow:
		return "snow"
	default:
		return "unknown"
	}
}

// Dispatcher runs fn(0) .. fn(n-1), possibly concurrently, and returns
// when all calls have returned. *parallel.WorkerPool satisfies it.
type Dispatcher interface {
	Dispatch(n int, fn func(i int))
}

// Sequential is a Dispatcher that runs jobs in order on the caller's
// goroutine.
type Sequential struct{}

// Dispatch runs fn(0) .. fn(n-1) in order.
func (Sequential) Dispatch(n int, fn func(i int)) {
	for i := range n {
		fn(i)
	}
}

// Advance moves every particle of s forward by one Timestep using the
// integrator kind. tables is required by Snow and ignored otherwise; a nil
// d runs sequentially.
func Advance(kind Kind, s *particle.Store, tables *noise.Tables, d Dispatcher) {
	step := stepper(kind, s, tables)
	if step == nil {
		return
	}
	if d == nil {
		d = Sequential{}
	}

	n := s.Len()
	batches := (n + BatchSize - 1) / BatchSize
	d.Dispatch(batches, func(b int) {
		end := min((b+1)*BatchSize, n)
		for i := b * BatchSize; i < end; i++ {
			step(i)
		}
	})
}

// stepper binds the per-particle step of kind to s. It returns nil when
// kind has nothing to do.
func stepper(kind Kind, s *particle.Store, tables *noise.Tables) func(i int) {
	switch kind {
	case BouncingBalls:
		return func(i int) { bounce(s, i) }
	case Fireworks:
		return func(i int) { firework(s, i) }
	case Hypnosis:
		return func(i int) { hypnosis(s, i) }
	case Snow:
		if tables == nil {
			return nil
		}
		return func(i int) { snow(s, tables, i) }
	default:
		return nil
	}
}
