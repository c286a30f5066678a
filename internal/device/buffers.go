package device

import (
	"encoding/binary"
	"fmt"
	"math"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/circles/particle"
)

// Buffers is the device memory of one renderer: the kernel's frame
// parameters, particle attributes, the image and a mappable staging copy of
// the image.
type Buffers struct {
	frame     hal.Buffer
	positions hal.Buffer
	colors    hal.Buffer
	radii     hal.Buffer
	image     hal.Buffer
	staging   hal.Buffer

	// bindings is the tile kernel bind group, created by the first Dispatch.
	bindings hal.BindGroup

	particles int
	width     int
	height    int

	// encode is reused by every upload to avoid per-frame allocations.
	encode []byte
}

// Particles returns the particle capacity.
func (b *Buffers) Particles() int { return b.particles }

// ImageSize returns the image dimensions in pixels.
func (b *Buffers) ImageSize() (width, height int) { return b.width, b.height }

// ImageBytes returns the size of the image buffer in bytes.
func (b *Buffers) ImageBytes() uint64 { return imageBytes(b.width, b.height) }

// Workgroups returns the tile kernel dispatch size: one workgroup per tile.
func (b *Buffers) Workgroups() (x, y uint32) {
	x = uint32((b.width + KernelTileSize - 1) / KernelTileSize)   //nolint:gosec // dimensions validated positive
	y = uint32((b.height + KernelTileSize - 1) / KernelTileSize) //nolint:gosec // dimensions validated positive
	return x, y
}

// frameParamsSize is the size of the kernel's Frame uniform.
const frameParamsSize = 16

// frameParams encodes the Frame uniform {width, height, count, policy}.
func (b *Buffers) frameParams(count int, policy uint32) []byte {
	var buf [frameParamsSize]byte
	binary.LittleEndian.PutUint32(buf[0:], uint32(b.width))  //nolint:gosec // dimensions validated positive
	binary.LittleEndian.PutUint32(buf[4:], uint32(b.height)) //nolint:gosec // dimensions validated positive
	binary.LittleEndian.PutUint32(buf[8:], uint32(count))    //nolint:gosec // count bounded by MaxBufferSize
	binary.LittleEndian.PutUint32(buf[12:], policy)
	return buf[:]
}

// bindEntries returns the tile kernel bind group entries, one per
// kernelBindings entry, in binding order.
func (b *Buffers) bindEntries() ([]gputypes.BindGroupEntry, error) {
	bound := map[uint32]struct {
		buf  hal.Buffer
		size uint64
	}{
		0: {b.frame, frameParamsSize},
		1: {b.positions, floatBytes(b.particles * particle.PositionStride)},
		2: {b.colors, floatBytes(b.particles * particle.ColorStride)},
		3: {b.radii, floatBytes(b.particles)},
		4: {b.image, b.ImageBytes()},
	}
	if len(bound) != len(kernelBindings) {
		return nil, fmt.Errorf("device: %d buffers for %d kernel bindings", len(bound), len(kernelBindings))
	}

	entries := make([]gputypes.BindGroupEntry, 0, len(kernelBindings))
	for _, kb := range kernelBindings {
		r, ok := bound[kb.binding]
		if !ok || r.buf == nil {
			return nil, fmt.Errorf("device: no buffer for kernel binding %d (%s)", kb.binding, kb.decl)
		}
		entries = append(entries, gputypes.BindGroupEntry{
			Binding:  kb.binding,
			Resource: gputypes.BufferBinding{Buffer: r.buf.NativeHandle(), Offset: 0, Size: r.size},
		})
	}
	return entries, nil
}

func imageBytes(w, h int) uint64 {
	return uint64(w) * uint64(h) * 4 * 4 //nolint:gosec // dimensions validated positive
}

// floatBytes returns the byte size of n float32 values, with a floor of one
// value because zero-sized buffers are invalid on most backends.
func floatBytes(n int) uint64 {
	return uint64(max(n, 1)) * 4 //nolint:gosec // n >= 0
}

// Allocate creates the buffers for n particles and a width x height image,
// releasing any previous allocation. A buffer larger than the device's
// MaxBufferSize, or one the device refuses, yields ErrResourceExhausted.
func (s *Session) Allocate(n, width, height int) error {
	if s.closed {
		return ErrClosed
	}
	if n < 0 || width <= 0 || height <= 0 {
		return fmt.Errorf("device: invalid allocation n=%d size=%dx%d", n, width, height)
	}

	specs := []struct {
		label string
		size  uint64
		usage gputypes.BufferUsage
	}{
		{"frame_params", frameParamsSize, gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst},
		{"particle_positions", floatBytes(n * particle.PositionStride), gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst},
		{"particle_colors", floatBytes(n * particle.ColorStride), gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst},
		{"particle_radii", floatBytes(n), gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst},
		{"image", imageBytes(width, height), gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst},
		{"image_staging", imageBytes(width, height), gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst},
	}
	for _, sp := range specs {
		if sp.size > s.limits.MaxBufferSize {
			return fmt.Errorf("%w: %s needs %d bytes, device limit is %d",
				ErrResourceExhausted, sp.label, sp.size, s.limits.MaxBufferSize)
		}
	}

	s.release()

	created := make([]hal.Buffer, 0, len(specs))
	for _, sp := range specs {
		buf, err := s.device.CreateBuffer(&hal.BufferDescriptor{
			Label: sp.label,
			Size:  sp.size,
			Usage: sp.usage,
		})
		if err != nil {
			for _, c := range created {
				s.device.DestroyBuffer(c)
			}
			return fmt.Errorf("create %s: %w: %w", sp.label, ErrResourceExhausted, err)
		}
		created = append(created, buf)
	}

	s.buffers = &Buffers{
		frame:     created[0],
		positions: created[1],
		colors:    created[2],
		radii:     created[3],
		image:     created[4],
		staging:   created[5],
		particles: n,
		width:     width,
		height:    height,
	}
	slogger().Debug("device: allocated",
		"particles", n,
		"width", width,
		"height", height,
		"image_bytes", specs[4].size)
	return nil
}

// release destroys the current buffers, if any.
func (s *Session) release() {
	b := s.buffers
	if b == nil {
		return
	}
	if b.bindings != nil {
		s.device.DestroyBindGroup(b.bindings)
	}
	for _, buf := range []hal.Buffer{b.frame, b.positions, b.colors, b.radii, b.image, b.staging} {
		if buf != nil {
			s.device.DestroyBuffer(buf)
		}
	}
	s.buffers = nil
}

// UploadParticles mirrors the positions, colors and radii of store into the
// particle buffers. Velocities stay host-side.
func (s *Session) UploadParticles(store *particle.Store) error {
	b, err := s.allocated()
	if err != nil {
		return err
	}
	if store.Len() != b.particles {
		return fmt.Errorf("%w: store has %d particles, buffers hold %d",
			particle.ErrBufferMismatch, store.Len(), b.particles)
	}
	if store.Len() == 0 {
		return nil
	}

	uploads := []struct {
		label string
		buf   hal.Buffer
		data  []float32
	}{
		{"particle_positions", b.positions, store.Positions()},
		{"particle_colors", b.colors, store.Colors()},
		{"particle_radii", b.radii, store.Radii()},
	}
	for _, u := range uploads {
		if err := s.queue.WriteBuffer(u.buf, 0, b.encodeFloats(u.data)); err != nil {
			return fmt.Errorf("write %s: %w", u.label, err)
		}
	}
	return nil
}

// Publish writes a rendered frame into the image buffer and stages it for
// ReadBack. Queues that batch copies into command buffers copy image to
// staging on the device; the others receive the frame in staging directly.
func (s *Session) Publish(pix []float32) error {
	b, err := s.allocated()
	if err != nil {
		return err
	}
	if want := b.width * b.height * 4; len(pix) != want {
		return fmt.Errorf("device: publish %d floats, image holds %d", len(pix), want)
	}

	data := b.encodeFloats(pix)
	if err := s.queue.WriteBuffer(b.image, 0, data); err != nil {
		return fmt.Errorf("write image: %w", err)
	}

	if !s.queue.SupportsCommandBufferCopies() {
		if err := s.queue.WriteBuffer(b.staging, 0, data); err != nil {
			return fmt.Errorf("write image_staging: %w", err)
		}
		return nil
	}
	return s.copyToStaging(b)
}

func (s *Session) copyToStaging(b *Buffers) error {
	encoder, err := s.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "readback"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("readback"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}
	encoder.CopyBufferToBuffer(b.image, b.staging, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: b.ImageBytes()},
	})
	cmd, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer s.device.FreeCommandBuffer(cmd)

	if _, err := s.queue.Submit([]hal.CommandBuffer{cmd}); err != nil {
		return fmt.Errorf("submit readback: %w", err)
	}
	if err := s.device.WaitIdle(); err != nil {
		return fmt.Errorf("wait readback: %w", err)
	}
	return nil
}

// ReadBack maps the staging buffer and decodes the published frame into
// dst, which must hold width*height*4 floats.
func (s *Session) ReadBack(dst []float32) error {
	b, err := s.allocated()
	if err != nil {
		return err
	}
	if want := b.width * b.height * 4; len(dst) != want {
		return fmt.Errorf("device: read back into %d floats, image holds %d", len(dst), want)
	}

	size := b.ImageBytes()
	mapping, err := s.device.MapBuffer(b.staging, 0, size)
	if err != nil {
		return fmt.Errorf("map image_staging: %w", err)
	}
	raw := unsafe.Slice((*byte)(mapping.Ptr), size) //nolint:gosec // mapping covers size bytes
	decodeFloats(dst, raw)
	if err := s.device.UnmapBuffer(b.staging); err != nil {
		return fmt.Errorf("unmap image_staging: %w", err)
	}
	return nil
}

func (s *Session) allocated() (*Buffers, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if s.buffers == nil {
		return nil, ErrNotAllocated
	}
	return s.buffers, nil
}

// encodeFloats serializes v as little-endian float32 into the reusable
// encode buffer. The result is valid until the next call.
func (b *Buffers) encodeFloats(v []float32) []byte {
	need := len(v) * 4
	if cap(b.encode) < need {
		b.encode = make([]byte, need)
	}
	buf := b.encode[:need]
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeFloats(dst []float32, raw []byte) {
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
}
