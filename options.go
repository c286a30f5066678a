package circles

import (
	"strings"

	"github.com/gogpu/circles/config"
	"github.com/gogpu/circles/internal/device"
	"github.com/gogpu/circles/internal/parallel"
)

// Defaults used when no option overrides them.
const (
	// DefaultLanes is the number of cooperating lanes per tile.
	DefaultLanes = 4

	// DefaultMaxPixels is the largest accepted width*height (4096x4096).
	DefaultMaxPixels = 1 << 24

	// DefaultSeed seeds random scenes and the noise tables.
	DefaultSeed = 1
)

// Option configures a Renderer during creation.
//
// Example:
//
//	r, err := circles.New(800, 600, "snow",
//		circles.WithWorkers(8),
//		circles.WithParticles(20_000),
//	)
type Option func(*options)

// options holds optional configuration for Renderer creation.
type options struct {
	workers   int
	lanes     int
	fallback  int
	backend   string
	maxPixels int
	particles int
	seed      uint64
}

// defaultOptions returns the default renderer options.
func defaultOptions() options {
	return options{
		lanes:     DefaultLanes,
		fallback:  -1, // parallel.DefaultFallbackThreshold
		backend:   device.BackendNone,
		maxPixels: DefaultMaxPixels,
		seed:      DefaultSeed,
	}
}

func (o *options) rasterConfig() parallel.Config {
	return parallel.Config{
		Workers:           o.workers,
		Lanes:             o.lanes,
		FallbackThreshold: o.fallback,
	}
}

// WithWorkers sets the number of worker goroutines. 0 means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithLanes sets the number of cooperating lanes per tile. Lanes split the
// filter scans and the tile's pixels; 1 runs each tile on a single
// goroutine.
func WithLanes(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.lanes = n
		}
	}
}

// WithFallbackThreshold sets the particle count below which circles are
// drawn one by one instead of through the tiled filter. 0 disables the
// fallback; a negative value restores the default.
func WithFallbackThreshold(n int) Option {
	return func(o *options) {
		o.fallback = n
	}
}

// WithDevice selects the device backend: "none" (default) keeps everything
// on the host, "noop" stages frames through the wgpu noop backend and
// "vulkan" rasterizes with the tile kernel on a Vulkan adapter.
func WithDevice(backend string) Option {
	return func(o *options) {
		o.backend = strings.ToLower(strings.TrimSpace(backend))
	}
}

// WithMaxPixels sets the pixel budget. New fails with ErrResourceExhausted
// for larger images.
func WithMaxPixels(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxPixels = n
		}
	}
}

// WithParticles overrides the particle count of resizable scenes.
func WithParticles(n int) Option {
	return func(o *options) {
		o.particles = n
	}
}

// WithSeed seeds random scenes and the noise tables.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.seed = seed
	}
}

// ConfigOptions translates a loaded configuration into renderer options.
func ConfigOptions(c *config.Config) []Option {
	return []Option{
		WithWorkers(c.Render.Workers),
		WithLanes(c.Render.Lanes),
		WithFallbackThreshold(c.Render.FallbackThreshold),
		WithMaxPixels(c.Render.MaxPixels),
		WithDevice(c.Device.Backend),
		WithParticles(c.Scene.Particles),
		WithSeed(c.Scene.Seed),
	}
}
