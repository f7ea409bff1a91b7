// Package wgpu_engine renders retained-mode UI drawing commands with
// WebGPU. A Renderer owns all GPU state: compiled geometry, textures,
// the layer stack, and one pipeline variant per program and target
// configuration, baked up front.
package wgpu_engine

import (
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/cogentcore/webgpu/wgpu"
	"honnef.co/go/veneer"
	"honnef.co/go/veneer/vmath"
)

func logger() *slog.Logger { return veneer.Logger() }

// Options configures a Renderer.
type Options struct {
	// TargetFormat is the texture format of the render target views
	// handed to BeginFrame.
	TargetFormat wgpu.TextureFormat
	// Loader, when set, is consulted before the built-in TGA decoder
	// when loading textures from files.
	Loader veneer.TextureLoader
	// Profile enables CPU frame profiling; results are available from
	// Profile after each frame.
	Profile bool
}

// Renderer translates drawing commands into WebGPU API calls. It is
// not safe for concurrent use; all methods must be called from the
// thread driving the host's render loop.
type Renderer struct {
	dev   *wgpu.Device
	queue *wgpu.Queue
	opts  Options

	pipelines *pipelineSet
	sampler   *wgpu.Sampler
	uniforms  *uniformAllocator
	// uniformBindGroup binds the uniform arena once; draws select
	// their slot with a dynamic offset.
	uniformBindGroup *wgpu.BindGroup

	geometry       geometryArena
	layers         layerStack
	fullscreenQuad veneer.GeometryHandle

	viewportWidth  int
	viewportHeight int
	projection     vmath.Mat4
	userTransform  *vmath.Mat4

	// uniformState mirrors the shader uniform block. Programs stage
	// their fields here; the next draw uploads the block into a fresh
	// slot if anything changed.
	uniformState  shaderUniforms
	uniformOffset uint32
	uniformValid  bool

	// activeProgram and the bound source view persist across draws so
	// that full-screen passes can bind a post-process buffer once and
	// then draw with the postprocess texture sentinel.
	activeProgram program
	boundSource   *wgpu.TextureView
	boundMask     *wgpu.TextureView
	blend         blendMode
	blendConstant float32

	scissor scissorState
	// scissorOverride constrains intermediate filter passes to a
	// sub-rectangle of the post-process buffers, independent of the
	// user scissor.
	scissorOverride *image.Rectangle
	clip            clipState

	drawTarget *renderTarget
	drawKind   targetKind
	// hostTargetView is non-nil only while compositing onto the view
	// handed to BeginFrame.
	hostTargetView *wgpu.TextureView

	pass activePass

	frame     *frameState
	profiler  *Profiler
	startTime time.Time
	released  bool
}

// frameState is the per-frame snapshot: the host references retained
// at BeginFrame, released exactly once at EndFrame.
type frameState struct {
	hostView *wgpu.TextureView
	group    *ProfilerGroup
}

// New creates a Renderer on the given device and queue. The caller
// must call SetViewport before the first frame and Release when done.
func New(dev *wgpu.Device, queue *wgpu.Queue, opts Options) (*Renderer, error) {
	if opts.TargetFormat == wgpu.TextureFormatUndefined {
		opts.TargetFormat = wgpu.TextureFormatBGRA8Unorm
	}

	pipelines, err := newPipelineSet(dev, opts.TargetFormat)
	if err != nil {
		return nil, err
	}

	r := &Renderer{
		dev:       dev,
		queue:     queue,
		opts:      opts,
		pipelines: pipelines,
		startTime: time.Now(),
	}
	if opts.Profile {
		r.profiler = NewProfiler()
	}
	r.layers.newLayer = r.newLayerTarget
	r.layers.newPostprocess = r.newPostprocessTarget

	r.sampler, err = dev.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "texture sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		r.Release()
		return nil, fmt.Errorf("creating sampler: %w", err)
	}

	r.uniforms, err = newUniformAllocator(dev, queue)
	if err != nil {
		r.Release()
		return nil, fmt.Errorf("creating uniform buffer: %w", err)
	}
	r.uniformBindGroup, err = dev.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "uniform bind group",
		Layout: pipelines.uniformLayout,
		Entries: []wgpu.BindGroupEntry{
			{
				Binding: 0,
				Buffer:  r.uniforms.buf,
				Offset:  0,
				Size:    uint64(uniformsSize),
			},
		},
	})
	if err != nil {
		r.Release()
		return nil, fmt.Errorf("creating uniform bind group: %w", err)
	}

	r.fullscreenQuad = r.CompileGeometry(fullscreenQuadMesh())
	if r.fullscreenQuad.IsZero() {
		r.Release()
		return nil, fmt.Errorf("creating fullscreen quad")
	}

	r.projection = vmath.Identity()
	r.uniformState.Transform = r.projection
	return r, nil
}

// fullscreenQuadMesh covers the entire target in normalized device
// coordinates, with texture coordinates mapping the top left of the
// source to the top left of the target.
func fullscreenQuadMesh() ([]veneer.Vertex, []uint32) {
	white := [4]uint8{255, 255, 255, 255}
	vertices := []veneer.Vertex{
		{Pos: [2]float32{-1, 1}, Color: white, UV: [2]float32{0, 0}},
		{Pos: [2]float32{1, 1}, Color: white, UV: [2]float32{1, 0}},
		{Pos: [2]float32{1, -1}, Color: white, UV: [2]float32{1, 1}},
		{Pos: [2]float32{-1, -1}, Color: white, UV: [2]float32{0, 1}},
	}
	indices := []uint32{0, 1, 2, 0, 2, 3}
	return vertices, indices
}

// SetViewport sets the dimensions, in pixels, of the render targets
// handed to BeginFrame. Must not be called between BeginFrame and
// EndFrame.
func (r *Renderer) SetViewport(width, height int) {
	if r.frame != nil {
		panic("SetViewport called during a frame")
	}
	r.viewportWidth = width
	r.viewportHeight = height
	r.projection = vmath.Ortho(0, float32(width), float32(height), 0, -10000, 10000)
	r.applyTransform()
}

// SetTransform sets the transform applied to subsequent geometry, on
// top of the viewport projection. nil resets to projection only.
func (r *Renderer) SetTransform(transform *vmath.Mat4) {
	r.userTransform = transform
	r.applyTransform()
}

func (r *Renderer) applyTransform() {
	m := r.projection
	if r.userTransform != nil {
		m = m.Mul(*r.userTransform)
	}
	if m != r.uniformState.Transform {
		r.uniformState.Transform = m
		r.uniformValid = false
	}
}

// EnableScissorRegion enables or disables scissoring. Disabling takes
// effect immediately; enabling is assumed to be followed by a
// SetScissorRegion call.
func (r *Renderer) EnableScissorRegion(enable bool) {
	if !enable {
		r.scissor = scissorState{}
	}
}

// SetScissorRegion restricts subsequent draws to region, given in
// viewport pixels.
func (r *Renderer) SetScissorRegion(region image.Rectangle) {
	r.scissor = scissorState{valid: true, rect: region}
}

// Profile returns the profiling results of completed frames. Only
// valid until the next call.
func (r *Renderer) Profile() []ProfilerResult {
	return r.profiler.Collect()
}

// Release frees all GPU resources owned by the renderer. It must not
// be called during a frame, and at most once.
func (r *Renderer) Release() {
	if r.released {
		panic("Release called twice")
	}
	if r.frame != nil {
		panic("Release called during a frame")
	}
	r.released = true

	r.geometry.releaseAll()
	r.layers.destroyTargets()
	if r.uniformBindGroup != nil {
		r.uniformBindGroup.Release()
		r.uniformBindGroup = nil
	}
	if r.uniforms != nil {
		r.uniforms.release()
		r.uniforms = nil
	}
	if r.sampler != nil {
		r.sampler.Release()
		r.sampler = nil
	}
	if r.pipelines != nil {
		r.pipelines.release()
		r.pipelines = nil
	}
}
