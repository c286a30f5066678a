package circles

import (
	"errors"
	"fmt"

	"github.com/gogpu/circles/internal/device"
	"github.com/gogpu/circles/internal/noise"
	"github.com/gogpu/circles/internal/parallel"
	"github.com/gogpu/circles/internal/shade"
	"github.com/gogpu/circles/internal/sim"
	"github.com/gogpu/circles/particle"
	"github.com/gogpu/circles/scene"
)

// FrameStats describes the most recent Render.
type FrameStats struct {
	Frame     int
	Particles int
	Strategy  string
	Tiles     int
	Chunks    int
	Covered   int

	// Candidates counts (tile, circle) pairs shaded.
	Candidates int64
}

// Renderer runs the Advance, Clear, Render, Image frame sequence for one
// scene.
//
// Thread safety: Renderer is not safe for concurrent use. Its internal
// work is parallel; calls must come from one goroutine.
type Renderer struct {
	id      scene.ID
	store   *particle.Store
	tables  *noise.Tables
	params  shade.Params
	raster  *parallel.Rasterizer
	session *device.Session

	pix []float32
	out *Image

	// onDevice is set when the last Render ran the device tile kernel.
	onDevice bool

	state  FrameState
	frame  int
	stats  FrameStats
	closed bool
}

// New loads the named scene and creates a width x height renderer for it.
// An unknown scene name returns scene.ErrUnknownScene.
func New(width, height int, sceneName string, opts ...Option) (*Renderer, error) {
	id, err := scene.Parse(sceneName)
	if err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	store, err := scene.Load(id, scene.Options{Particles: o.particles, Seed: o.seed})
	if err != nil {
		return nil, err
	}
	return newRenderer(width, height, id, store, o)
}

// NewFromStore creates a renderer for an externally loaded particle store.
// The store's buffers must match its particle count. The scene id selects
// the shading policy, background and integrator.
func NewFromStore(width, height int, id scene.ID, store *particle.Store, opts ...Option) (*Renderer, error) {
	if !id.Valid() {
		return nil, fmt.Errorf("%w: %v", scene.ErrUnknownScene, id)
	}
	if store == nil {
		return nil, fmt.Errorf("circles: nil particle store: %w", particle.ErrBufferMismatch)
	}
	if err := store.Validate(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return newRenderer(width, height, id, store, o)
}

func newRenderer(width, height int, id scene.ID, store *particle.Store, o options) (*Renderer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	if pixels := int64(width) * int64(height); pixels > int64(o.maxPixels) {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrResourceExhausted, width, height, o.maxPixels)
	}

	r := &Renderer{
		id:     id,
		store:  store,
		tables: noise.Generate(int64(o.seed)), //nolint:gosec // seed bits reinterpreted
		params: shade.NewParams(id.Policy()),
		raster: parallel.NewRasterizer(width, height, o.rasterConfig()),
	}

	// Device buffers come before the host image.
	if o.backend != "" && o.backend != device.BackendNone {
		if err := r.openDevice(o.backend); err != nil {
			r.raster.Close()
			return nil, err
		}
	}
	r.pix = make([]float32, width*height*4)
	r.out = NewImage(width, height)

	Logger().Info("circles: renderer created",
		"scene", id,
		"particles", store.Len(),
		"width", width,
		"height", height,
		"workers", r.raster.Pool().Workers(),
		"lanes", r.raster.Lanes(),
		"strategy", r.raster.Strategy(store.Len()),
		"device", r.DeviceName())
	return r, nil
}

func (r *Renderer) openDevice(backend string) error {
	s, err := device.Open(backend)
	if err != nil {
		return fmt.Errorf("open device: %w", err)
	}
	if err := s.Allocate(r.store.Len(), r.raster.Width(), r.raster.Height()); err != nil {
		s.Close()
		if errors.Is(err, device.ErrResourceExhausted) {
			return fmt.Errorf("%w: %w", ErrResourceExhausted, err)
		}
		return err
	}
	if err := s.CompileKernel(); err != nil {
		s.Close()
		return err
	}
	if err := s.UploadParticles(r.store); err != nil {
		s.Close()
		return err
	}
	r.session = s
	return nil
}

// Scene returns the scene identifier.
func (r *Renderer) Scene() scene.ID { return r.id }

// Store returns the particle store. It must not be modified while a frame
// is between Clear and Image.
func (r *Renderer) Store() *particle.Store { return r.store }

// Width returns the image width in pixels.
func (r *Renderer) Width() int { return r.raster.Width() }

// Height returns the image height in pixels.
func (r *Renderer) Height() int { return r.raster.Height() }

// State returns the current frame state.
func (r *Renderer) State() FrameState { return r.state }

// Stats returns statistics of the most recent Render.
func (r *Renderer) Stats() FrameStats { return r.stats }

// DeviceName returns the name of the device adapter, or "none".
func (r *Renderer) DeviceName() string {
	if r.session == nil {
		return device.BackendNone
	}
	return r.session.Info().Name
}

func (r *Renderer) begin(op frameOp) error {
	if r.closed {
		return ErrClosed
	}
	return r.state.check(op)
}

// Advance moves the scene forward one fixed timestep. Static scenes are
// unchanged.
func (r *Renderer) Advance() error {
	if err := r.begin(opAdvance); err != nil {
		return err
	}
	kind := r.id.Integrator()
	if kind != sim.None {
		sim.Advance(kind, r.store, r.tables, r.raster.Pool())
		if r.session != nil {
			if err := r.session.UploadParticles(r.store); err != nil {
				return fmt.Errorf("upload particles: %w", err)
			}
		}
	}
	r.state = StateIdle
	return nil
}

// Clear fills the image with the scene background.
func (r *Renderer) Clear() error {
	if err := r.begin(opClear); err != nil {
		return err
	}
	r.raster.Clear(r.pix, r.params)
	r.state = StateCleared
	return nil
}

// StrategyDevice is the FrameStats strategy of frames rasterized by the
// device tile kernel.
const StrategyDevice = "device"

// Render blends every particle into the cleared image in index order. On a
// device that executes compute work the tile kernel rasterizes the frame;
// otherwise the host rasterizer does.
func (r *Renderer) Render() error {
	if err := r.begin(opRender); err != nil {
		return err
	}
	if r.session != nil && r.session.Executes() && r.session.KernelReady() {
		return r.renderDevice()
	}

	r.onDevice = false
	st := r.raster.Render(r.pix, r.store.View(), r.params)
	r.stats = FrameStats{
		Frame:      r.frame,
		Particles:  r.store.Len(),
		Strategy:   st.Strategy.String(),
		Tiles:      st.Tiles,
		Chunks:     st.Chunks,
		Covered:    st.Covered,
		Candidates: st.Candidates,
	}
	r.state = StateRasterized
	return nil
}

func (r *Renderer) renderDevice() error {
	n := r.store.Len()
	if err := r.session.Dispatch(r.pix, n, kernelPolicy(r.params.Policy)); err != nil {
		return fmt.Errorf("dispatch tile kernel: %w", err)
	}
	tiles := r.raster.TileCount()
	r.stats = FrameStats{
		Frame:     r.frame,
		Particles: n,
		Strategy:  StrategyDevice,
		Tiles:     tiles,
		Chunks:    parallel.Chunks(n) * tiles,
	}
	r.onDevice = true
	r.state = StateRasterized
	return nil
}

func kernelPolicy(p shade.Policy) uint32 {
	if p == shade.PolicySnow {
		return device.PolicySnow
	}
	return device.PolicyFlat
}

// Image reads back the rendered frame. The returned Image is owned by the
// renderer and is overwritten by the next frame's Image call.
func (r *Renderer) Image() (*Image, error) {
	if err := r.begin(opImage); err != nil {
		return nil, err
	}
	if r.state == StateReadBack {
		return r.out, nil
	}

	if r.session != nil {
		if !r.onDevice {
			if err := r.session.Publish(r.pix); err != nil {
				return nil, fmt.Errorf("publish frame: %w", err)
			}
		}
		if err := r.session.ReadBack(r.out.Pix); err != nil {
			return nil, fmt.Errorf("read back frame: %w", err)
		}
	} else {
		copy(r.out.Pix, r.pix)
	}
	r.out.clampColors()

	Logger().Debug("circles: frame",
		"frame", r.frame,
		"strategy", r.stats.Strategy,
		"covered", r.stats.Covered,
		"candidates", r.stats.Candidates)
	r.frame++
	r.state = StateReadBack
	return r.out, nil
}

// Frame runs Advance, Clear, Render and Image.
func (r *Renderer) Frame() (*Image, error) {
	if err := r.Advance(); err != nil {
		return nil, err
	}
	if err := r.Clear(); err != nil {
		return nil, err
	}
	if err := r.Render(); err != nil {
		return nil, err
	}
	return r.Image()
}

// Close releases the worker pool and the device session. Close is
// idempotent.
func (r *Renderer) Close() {
	if r.closed {
		return
	}
	r.closed = true
	r.raster.Close()
	r.session.Close()
	r.session = nil
}
