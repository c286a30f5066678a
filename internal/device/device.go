// Package device runs frames on a GPU: adapter selection, particle and
// image buffers, the tile kernel compute pipeline and frame read-back.
//
// On a backend that executes (vulkan) the tile kernel rasterizes the frame
// with Dispatch and ReadBack returns the device result. The noop backend
// accepts every command but runs none; there the CPU rasterizer in
// internal/parallel produces the pixels and Publish stages them through
// device memory, which is what headless runs and tests use.
package device

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Registers the noop backend with hal.
	_ "github.com/gogpu/wgpu/hal/noop"
)

// Backend names accepted by Open.
const (
	BackendNone   = "none"
	BackendNoop   = "noop"
	BackendVulkan = "vulkan"
)

var (
	// ErrResourceExhausted is returned when a buffer exceeds the device
	// limits or cannot be allocated.
	ErrResourceExhausted = errors.New("device: resource exhausted")

	// ErrNoAdapter is returned when the backend exposes no adapters.
	ErrNoAdapter = errors.New("device: no adapter available")

	// ErrUnknownBackend is returned by Open for an unsupported backend name.
	ErrUnknownBackend = errors.New("device: unknown backend")

	// ErrNotAllocated is returned when buffers are used before Allocate.
	ErrNotAllocated = errors.New("device: buffers not allocated")

	// ErrClosed is returned by operations on a closed session.
	ErrClosed = errors.New("device: session closed")

	// ErrNoKernel is returned by Dispatch when the tile kernel pipeline
	// is not available.
	ErrNoKernel = errors.New("device: tile kernel not ready")
)

// variant maps a backend name to the hal backend variant.
func variant(name string) (gputypes.Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case BackendNoop:
		return gputypes.BackendEmpty, nil
	case BackendVulkan:
		return gputypes.BackendVulkan, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
}

// AdapterInfo describes one adapter exposed by a backend.
type AdapterInfo struct {
	Name       string
	Vendor     string
	DeviceType string
	Backend    string
	Driver     string
}

func adapterInfo(a *hal.ExposedAdapter) AdapterInfo {
	return AdapterInfo{
		Name:       a.Info.Name,
		Vendor:     a.Info.Vendor,
		DeviceType: a.Info.DeviceType.String(),
		Backend:    a.Info.Backend.String(),
		Driver:     a.Info.Driver,
	}
}

// Session is an open device with its queue and the buffers of one
// renderer.
//
// Thread safety: Session is not safe for concurrent use. The renderer
// calls it between frame phases only.
type Session struct {
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	backend  gputypes.Backend
	limits   gputypes.Limits
	info     AdapterInfo
	adapters []AdapterInfo

	buffers    *Buffers
	kernel     *kernel
	dispatches int
	closed     bool
}

// Enumerate lists the adapters of a backend without opening a device.
func Enumerate(backend string) ([]AdapterInfo, error) {
	instance, exposed, err := enumerate(backend)
	if err != nil {
		return nil, err
	}
	defer instance.Destroy()

	infos := make([]AdapterInfo, len(exposed))
	for i := range exposed {
		infos[i] = adapterInfo(&exposed[i])
	}
	return infos, nil
}

func enumerate(backend string) (hal.Instance, []hal.ExposedAdapter, error) {
	v, err := variant(backend)
	if err != nil {
		return nil, nil, err
	}
	b, ok := hal.GetBackend(v)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s not registered", ErrUnknownBackend, backend)
	}
	instance, err := b.CreateInstance(&hal.InstanceDescriptor{})
	if err != nil {
		return nil, nil, fmt.Errorf("create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, nil, ErrNoAdapter
	}
	return instance, adapters, nil
}

// Open creates a session on the named backend. Discrete GPUs are preferred,
// then integrated GPUs, then whatever the backend lists first.
func Open(backend string) (*Session, error) {
	v, err := variant(backend)
	if err != nil {
		return nil, err
	}
	instance, exposed, err := enumerate(backend)
	if err != nil {
		return nil, err
	}

	infos := make([]AdapterInfo, len(exposed))
	for i := range exposed {
		infos[i] = adapterInfo(&exposed[i])
		slogger().Info("device: adapter",
			"index", i,
			"name", infos[i].Name,
			"vendor", infos[i].Vendor,
			"type", infos[i].DeviceType,
			"backend", infos[i].Backend,
			"driver", infos[i].Driver)
	}

	selected := pick(exposed)
	limits := gputypes.DefaultLimits()
	open, err := exposed[selected].Adapter.Open(gputypes.Features(0), limits)
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("open device: %w", err)
	}

	s := &Session{
		instance: instance,
		device:   open.Device,
		queue:    open.Queue,
		backend:  v,
		limits:   limits,
		info:     infos[selected],
		adapters: infos,
	}
	slogger().Info("device: opened", "adapter", s.info.Name, "backend", s.info.Backend)
	return s, nil
}

// pick returns the index of the preferred adapter.
func pick(adapters []hal.ExposedAdapter) int {
	for _, want := range []gputypes.DeviceType{gputypes.DeviceTypeDiscreteGPU, gputypes.DeviceTypeIntegratedGPU} {
		for i := range adapters {
			if adapters[i].Info.DeviceType == want {
				return i
			}
		}
	}
	return 0
}

// Info returns the selected adapter.
func (s *Session) Info() AdapterInfo { return s.info }

// Adapters returns every adapter the backend exposed.
func (s *Session) Adapters() []AdapterInfo { return s.adapters }

// Limits returns the limits the device was opened with.
func (s *Session) Limits() gputypes.Limits { return s.limits }

// Buffers returns the allocated buffers, or nil before Allocate.
func (s *Session) Buffers() *Buffers { return s.buffers }

// Close waits for the device, releases every buffer and the kernel
// pipeline and destroys the device. Close is idempotent.
func (s *Session) Close() {
	if s == nil || s.closed {
		return
	}
	s.closed = true

	if err := s.device.WaitIdle(); err != nil {
		slogger().Warn("device: wait idle", "err", err)
	}
	s.release()
	s.destroyKernel(s.kernel)
	s.kernel = nil
	s.device.Destroy()
	s.instance.Destroy()
	slogger().Debug("device: closed", "adapter", s.info.Name)
}
