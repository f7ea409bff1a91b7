package wgpu_engine

import (
	"fmt"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	"honnef.co/go/veneer"
)

const (
	layerFormat        = wgpu.TextureFormatRGBA8Unorm
	depthStencilFormat = wgpu.TextureFormatDepth24PlusStencil8
	msaaSampleCount    = 4
)

// targetKind distinguishes the three attachment configurations draws
// can land in. Pipelines are immutable, so every configuration needs
// its own variant.
type targetKind uint8

const (
	// targetLayer is a multisampled layer with the shared
	// depth/stencil attachment.
	targetLayer targetKind = iota
	// targetScratch is a single-sampled post-process buffer without
	// depth/stencil.
	targetScratch
	// targetHost is the host's render target view.
	targetHost
)

type blendMode uint8

const (
	// blendBlend is premultiplied alpha blending, the default for all
	// geometry draws.
	blendBlend blendMode = iota
	// blendReplace writes source values unchanged.
	blendReplace
	// blendConstant scales the source by the blend constant,
	// discarding the destination. Used by the opacity filter.
	blendConstant
)

type stencilMode uint8

const (
	// stencilNone neither tests nor writes the stencil buffer.
	stencilNone stencilMode = iota
	// stencilTest passes fragments whose stencil value equals the
	// reference value.
	stencilTest
	// stencilWrite replaces covered stencil values with the reference
	// value, with color writes disabled.
	stencilWrite
	// stencilIncrement increments covered stencil values, with color
	// writes disabled.
	stencilIncrement
)

type pipelineKey struct {
	prog    program
	target  targetKind
	blend   blendMode
	stencil stencilMode
}

type pipelineSet struct {
	module        *wgpu.ShaderModule
	uniformLayout *wgpu.BindGroupLayout
	textureLayout *wgpu.BindGroupLayout
	maskLayout    *wgpu.BindGroupLayout
	layouts       [3]*wgpu.PipelineLayout // indexed by bindSlots
	pipelines     map[pipelineKey]*wgpu.RenderPipeline

	hostFormat wgpu.TextureFormat
}

var vertexLayout = wgpu.VertexBufferLayout{
	ArrayStride: uint64(vertexStride),
	StepMode:    wgpu.VertexStepModeVertex,
	Attributes: []wgpu.VertexAttribute{
		{Format: wgpu.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
		{Format: wgpu.VertexFormatUnorm8x4, Offset: 8, ShaderLocation: 1},
		{Format: wgpu.VertexFormatFloat32x2, Offset: 12, ShaderLocation: 2},
	},
}

const vertexStride = unsafe.Sizeof(veneer.Vertex{})

var premultipliedBlend = wgpu.BlendState{
	Color: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorOne,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
	Alpha: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorOne,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
}

var constantBlend = wgpu.BlendState{
	Color: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorConstant,
		DstFactor: wgpu.BlendFactorZero,
		Operation: wgpu.BlendOperationAdd,
	},
	Alpha: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorConstant,
		DstFactor: wgpu.BlendFactorZero,
		Operation: wgpu.BlendOperationAdd,
	},
}

func newPipelineSet(dev *wgpu.Device, hostFormat wgpu.TextureFormat) (*pipelineSet, error) {
	module, err := dev.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: "veneer shaders",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: shaderSource,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("compiling shader module: %w", err)
	}

	ps := &pipelineSet{
		module:     module,
		hostFormat: hostFormat,
		pipelines:  make(map[pipelineKey]*wgpu.RenderPipeline),
	}

	ps.uniformLayout, err = dev.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "uniform bind group layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:             wgpu.BufferBindingTypeUniform,
					HasDynamicOffset: true,
					MinBindingSize:   uint64(uniformsSize),
				},
			},
		},
	})
	if err != nil {
		ps.release()
		return nil, fmt.Errorf("creating uniform bind group layout: %w", err)
	}
	ps.textureLayout, err = dev.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "texture bind group layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Sampler: wgpu.SamplerBindingLayout{
					Type: wgpu.SamplerBindingTypeFiltering,
				},
			},
		},
	})
	if err != nil {
		ps.release()
		return nil, fmt.Errorf("creating texture bind group layout: %w", err)
	}
	ps.maskLayout, err = dev.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "mask bind group layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
		},
	})
	if err != nil {
		ps.release()
		return nil, fmt.Errorf("creating mask bind group layout: %w", err)
	}

	groups := [3][]*wgpu.BindGroupLayout{
		bindNone:    {ps.uniformLayout},
		bindTexture: {ps.uniformLayout, ps.textureLayout},
		bindMask:    {ps.uniformLayout, ps.textureLayout, ps.maskLayout},
	}
	for i, g := range groups {
		ps.layouts[i], err = dev.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
			BindGroupLayouts: g,
		})
		if err != nil {
			ps.release()
			return nil, fmt.Errorf("creating pipeline layout: %w", err)
		}
	}

	if err := ps.buildVariants(dev); err != nil {
		ps.release()
		return nil, err
	}
	return ps, nil
}

// buildVariants bakes every pipeline a frame can need. Geometry
// programs draw into layers with optional stencil testing; the color
// program additionally writes clip masks; post-process programs draw
// into single-sampled scratch buffers; passthrough also composites
// layers and blits to the host target.
func (ps *pipelineSet) buildVariants(dev *wgpu.Device) error {
	type variant struct {
		prog     program
		target   targetKind
		blends   []blendMode
		stencils []stencilMode
	}
	geometryStencils := []stencilMode{stencilNone, stencilTest}
	var variants []variant
	for _, prog := range []program{programColor, programTexture, programGradient, programCreation} {
		variants = append(variants, variant{prog, targetLayer, []blendMode{blendBlend}, geometryStencils})
	}
	variants = append(variants,
		// Clip mask writes render geometry with color writes masked.
		variant{programColor, targetLayer, []blendMode{blendBlend}, []stencilMode{stencilWrite, stencilIncrement}},
		// Layer compositing.
		variant{programPassthrough, targetLayer, []blendMode{blendBlend, blendReplace}, []stencilMode{stencilNone}},
		// Filter passes.
		variant{programPassthrough, targetScratch, []blendMode{blendBlend, blendReplace, blendConstant}, []stencilMode{stencilNone}},
		variant{programColorMatrix, targetScratch, []blendMode{blendReplace}, []stencilMode{stencilNone}},
		variant{programBlendMask, targetScratch, []blendMode{blendReplace}, []stencilMode{stencilNone}},
		variant{programBlur, targetScratch, []blendMode{blendReplace}, []stencilMode{stencilNone}},
		variant{programDropShadow, targetScratch, []blendMode{blendReplace}, []stencilMode{stencilNone}},
		// Final blit into the host's render target.
		variant{programPassthrough, targetHost, []blendMode{blendBlend}, []stencilMode{stencilNone}},
	)

	for _, v := range variants {
		for _, blend := range v.blends {
			for _, stencil := range v.stencils {
				key := pipelineKey{v.prog, v.target, blend, stencil}
				p, err := ps.buildPipeline(dev, key)
				if err != nil {
					return fmt.Errorf("creating %s pipeline: %w", v.prog, err)
				}
				ps.pipelines[key] = p
			}
		}
	}
	return nil
}

func stencilFace(mode stencilMode) wgpu.StencilFaceState {
	switch mode {
	case stencilTest:
		return wgpu.StencilFaceState{
			Compare:     wgpu.CompareFunctionEqual,
			FailOp:      wgpu.StencilOperationKeep,
			DepthFailOp: wgpu.StencilOperationKeep,
			PassOp:      wgpu.StencilOperationKeep,
		}
	case stencilWrite:
		return wgpu.StencilFaceState{
			Compare:     wgpu.CompareFunctionAlways,
			FailOp:      wgpu.StencilOperationKeep,
			DepthFailOp: wgpu.StencilOperationKeep,
			PassOp:      wgpu.StencilOperationReplace,
		}
	case stencilIncrement:
		return wgpu.StencilFaceState{
			Compare:     wgpu.CompareFunctionAlways,
			FailOp:      wgpu.StencilOperationKeep,
			DepthFailOp: wgpu.StencilOperationKeep,
			PassOp:      wgpu.StencilOperationIncrementClamp,
		}
	default:
		return wgpu.StencilFaceState{
			Compare:     wgpu.CompareFunctionAlways,
			FailOp:      wgpu.StencilOperationKeep,
			DepthFailOp: wgpu.StencilOperationKeep,
			PassOp:      wgpu.StencilOperationKeep,
		}
	}
}

func (ps *pipelineSet) buildPipeline(dev *wgpu.Device, key pipelineKey) (*wgpu.RenderPipeline, error) {
	spec := programSpecs[key.prog]

	format := layerFormat
	if key.target == targetHost {
		format = ps.hostFormat
	}
	target := wgpu.ColorTargetState{
		Format:    format,
		WriteMask: wgpu.ColorWriteMaskAll,
	}
	switch key.blend {
	case blendBlend:
		target.Blend = &premultipliedBlend
	case blendConstant:
		target.Blend = &constantBlend
	}
	if key.stencil == stencilWrite || key.stencil == stencilIncrement {
		target.WriteMask = 0
	}

	var depthStencil *wgpu.DepthStencilState
	sampleCount := uint32(1)
	if key.target == targetLayer {
		sampleCount = msaaSampleCount
		face := stencilFace(key.stencil)
		depthStencil = &wgpu.DepthStencilState{
			Format:            depthStencilFormat,
			DepthWriteEnabled: false,
			DepthCompare:      wgpu.CompareFunctionAlways,
			StencilFront:      face,
			StencilBack:       face,
			StencilReadMask:   0xFFFFFFFF,
			StencilWriteMask:  0xFFFFFFFF,
		}
	}

	return dev.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  spec.name,
		Layout: ps.layouts[spec.bindings],
		Vertex: wgpu.VertexState{
			Module:     ps.module,
			EntryPoint: spec.vsEntry,
			Buffers:    []wgpu.VertexBufferLayout{vertexLayout},
		},
		Fragment: &wgpu.FragmentState{
			Module:     ps.module,
			EntryPoint: spec.fsEntry,
			Targets:    []wgpu.ColorTargetState{target},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		DepthStencil: depthStencil,
		Multisample: wgpu.MultisampleState{
			Count: sampleCount,
			Mask:  0xFFFFFFFF,
		},
	})
}

func (ps *pipelineSet) get(key pipelineKey) *wgpu.RenderPipeline {
	p, ok := ps.pipelines[key]
	if !ok {
		panic(fmt.Sprintf("no pipeline variant for program %s, target %d, blend %d, stencil %d",
			key.prog, key.target, key.blend, key.stencil))
	}
	return p
}

func (ps *pipelineSet) release() {
	for _, p := range ps.pipelines {
		p.Release()
	}
	ps.pipelines = nil
	for _, l := range ps.layouts {
		if l != nil {
			l.Release()
		}
	}
	for _, l := range []*wgpu.BindGroupLayout{ps.uniformLayout, ps.textureLayout, ps.maskLayout} {
		if l != nil {
			l.Release()
		}
	}
	if ps.module != nil {
		ps.module.Release()
		ps.module = nil
	}
}
