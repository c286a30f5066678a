package device

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// tileKernelWGSL is the tile filter-and-shade compute kernel.
//
//go:embed shaders/tile.wgsl
var tileKernelWGSL string

// Kernel workgroup geometry. TileSize and ChunkSize match internal/parallel.
const (
	KernelTileSize      = 32
	KernelChunkSize     = 1024
	KernelWorkgroupSize = 256
)

// kernelEntryPoint is the compute entry point of the tile kernel.
const kernelEntryPoint = "main"

// Kernel policies, matching frame.policy in the kernel.
const (
	PolicyFlat uint32 = 0
	PolicySnow uint32 = 1
)

// kernelBinding is one group(0) binding of the tile kernel.
type kernelBinding struct {
	binding uint32
	decl    string
	kind    gputypes.BufferBindingType
}

// kernelBindings lists the kernel's bindings in order. Buffers.bindEntries
// returns one buffer per entry.
var kernelBindings = []kernelBinding{
	{0, "var<uniform> frame", gputypes.BufferBindingTypeUniform},
	{1, "var<storage, read> positions", gputypes.BufferBindingTypeReadOnlyStorage},
	{2, "var<storage, read> colors", gputypes.BufferBindingTypeReadOnlyStorage},
	{3, "var<storage, read> radii", gputypes.BufferBindingTypeReadOnlyStorage},
	{4, "var<storage, read_write> image", gputypes.BufferBindingTypeStorage},
}

// kernel is the compiled tile kernel and its compute pipeline.
type kernel struct {
	module     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.ComputePipeline
}

// TileKernelSource returns the WGSL source of the tile kernel.
func TileKernelSource() string { return tileKernelWGSL }

// CompileTileKernel compiles the tile kernel to SPIR-V words.
func CompileTileKernel() ([]uint32, error) {
	spirvBytes, err := naga.Compile(tileKernelWGSL)
	if err != nil {
		return nil, fmt.Errorf("compile tile kernel: %w", err)
	}

	// SPIR-V is little-endian 32-bit words
	spirv := make([]uint32, len(spirvBytes)/4)
	for i := range spirv {
		spirv[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return spirv, nil
}

// checkKernelBindings reports a binding of kernelBindings that src does not
// declare.
func checkKernelBindings(src string) error {
	for _, b := range kernelBindings {
		want := fmt.Sprintf("@group(0) @binding(%d) %s", b.binding, b.decl)
		if !strings.Contains(src, want) {
			return fmt.Errorf("device: tile kernel does not declare %q", want)
		}
	}
	return nil
}

// CompileKernel builds the tile kernel's shader module and compute
// pipeline.
//
// The kernel is compiled to SPIR-V with naga. When naga rejects it the
// module is created from the WGSL source instead and the backend compiles
// it. A kernel that cannot be built either way is not fatal: CompileKernel
// logs a warning, leaves KernelReady false and returns nil. Pipeline
// objects the device refuses are an error.
func (s *Session) CompileKernel() error {
	if s.closed {
		return ErrClosed
	}
	if s.kernel != nil {
		return nil
	}
	if err := checkKernelBindings(tileKernelWGSL); err != nil {
		return err
	}

	source := hal.ShaderSource{}
	if spirv, err := CompileTileKernel(); err != nil {
		slogger().Warn("device: tile kernel falls back to WGSL", "err", err)
		source.WGSL = tileKernelWGSL
	} else {
		source.SPIRV = spirv
	}

	module, err := s.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "tile_kernel",
		Source: source,
	})
	if err != nil {
		if source.SPIRV == nil {
			slogger().Warn("device: tile kernel unavailable", "err", err)
			return nil
		}
		return fmt.Errorf("create tile kernel module: %w", err)
	}

	k := &kernel{module: module}
	if err := s.createPipeline(k); err != nil {
		s.destroyKernel(k)
		return err
	}
	s.kernel = k
	slogger().Debug("device: tile kernel ready",
		"spirv_words", len(source.SPIRV),
		"bindings", len(kernelBindings))
	return nil
}

func (s *Session) createPipeline(k *kernel) error {
	entries := make([]gputypes.BindGroupLayoutEntry, len(kernelBindings))
	for i, b := range kernelBindings {
		entries[i] = gputypes.BindGroupLayoutEntry{
			Binding:    b.binding,
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: b.kind},
		}
	}

	bindLayout, err := s.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   "tile_kernel_bind_layout",
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("create tile kernel bind group layout: %w", err)
	}
	k.bindLayout = bindLayout

	pipeLayout, err := s.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "tile_kernel_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{bindLayout},
	})
	if err != nil {
		return fmt.Errorf("create tile kernel pipeline layout: %w", err)
	}
	k.pipeLayout = pipeLayout

	pipeline, err := s.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:   "tile_kernel_pipeline",
		Layout:  pipeLayout,
		Compute: hal.ComputeState{Module: k.module, EntryPoint: kernelEntryPoint},
	})
	if err != nil {
		return fmt.Errorf("create tile kernel compute pipeline: %w", err)
	}
	k.pipeline = pipeline
	return nil
}

func (s *Session) destroyKernel(k *kernel) {
	if k == nil {
		return
	}
	if k.pipeline != nil {
		s.device.DestroyComputePipeline(k.pipeline)
	}
	if k.pipeLayout != nil {
		s.device.DestroyPipelineLayout(k.pipeLayout)
	}
	if k.bindLayout != nil {
		s.device.DestroyBindGroupLayout(k.bindLayout)
	}
	if k.module != nil {
		s.device.DestroyShaderModule(k.module)
	}
}

// KernelReady reports whether the tile kernel pipeline exists.
func (s *Session) KernelReady() bool { return s.kernel != nil && s.kernel.pipeline != nil }

// Executes reports whether dispatches on this session run the kernel. The
// noop backend accepts every command but executes none.
func (s *Session) Executes() bool { return s.backend != gputypes.BackendEmpty }

// Dispatch rasterizes count particles into the image on the device. pix is
// the cleared frame; it is uploaded as the kernel's starting image. One
// workgroup runs per tile. On queues that record copies the result is
// staged for ReadBack in the same submission.
func (s *Session) Dispatch(pix []float32, count int, policy uint32) error {
	b, err := s.allocated()
	if err != nil {
		return err
	}
	if !s.KernelReady() {
		return ErrNoKernel
	}
	if count != b.particles {
		return fmt.Errorf("device: dispatch %d particles, buffers hold %d", count, b.particles)
	}
	if want := b.width * b.height * 4; len(pix) != want {
		return fmt.Errorf("device: dispatch %d floats, image holds %d", len(pix), want)
	}

	if err := s.queue.WriteBuffer(b.frame, 0, b.frameParams(count, policy)); err != nil {
		return fmt.Errorf("write frame params: %w", err)
	}
	if err := s.queue.WriteBuffer(b.image, 0, b.encodeFloats(pix)); err != nil {
		return fmt.Errorf("write image: %w", err)
	}
	if err := s.bind(b); err != nil {
		return err
	}

	encoder, err := s.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "tile_kernel_encoder"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("tile_kernel"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}

	gx, gy := b.Workgroups()
	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "tile_pass"})
	pass.SetPipeline(s.kernel.pipeline)
	pass.SetBindGroup(0, b.bindings, nil)
	pass.Dispatch(gx, gy, 1)
	pass.End()

	if s.queue.SupportsCommandBufferCopies() {
		encoder.CopyBufferToBuffer(b.image, b.staging, []hal.BufferCopy{
			{SrcOffset: 0, DstOffset: 0, Size: b.ImageBytes()},
		})
	}
	cmd, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer s.device.FreeCommandBuffer(cmd)

	if _, err := s.queue.Submit([]hal.CommandBuffer{cmd}); err != nil {
		return fmt.Errorf("submit tile kernel: %w", err)
	}
	if err := s.device.WaitIdle(); err != nil {
		return fmt.Errorf("wait tile kernel: %w", err)
	}
	s.dispatches++

	slogger().Debug("device: dispatched",
		"workgroups_x", gx,
		"workgroups_y", gy,
		"particles", count,
		"policy", policy)
	return nil
}

// Dispatches returns the number of completed Dispatch calls.
func (s *Session) Dispatches() int { return s.dispatches }

// bind creates the kernel bind group for b on first use.
func (s *Session) bind(b *Buffers) error {
	if b.bindings != nil {
		return nil
	}
	entries, err := b.bindEntries()
	if err != nil {
		return err
	}
	group, err := s.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   "tile_kernel_bind",
		Layout:  s.kernel.bindLayout,
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("create tile kernel bind group: %w", err)
	}
	b.bindings = group
	return nil
}
