package wgpu_engine

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"honnef.co/go/veneer"
)

// renderTarget is one drawable surface: either a multisampled layer
// with the shared depth/stencil attachment, or a single-sampled
// post-process buffer that can additionally be sampled and copied
// from.
type renderTarget struct {
	width, height uint32
	sampleCount   uint32

	// tex is retained only for targets that serve as copy sources or
	// destinations; layer color buffers drop theirs after creating
	// the view.
	tex  *wgpu.Texture
	view *wgpu.TextureView
	// depthStencil is shared by every layer of the stack. Only the
	// first layer owns it; the others hold a borrowed reference.
	depthStencil     *wgpu.TextureView
	ownsDepthStencil bool
}

func (rt *renderTarget) destroy() {
	if rt.view != nil {
		rt.view.Release()
		rt.view = nil
	}
	if rt.tex != nil {
		rt.tex.Release()
		rt.tex = nil
	}
	if rt.depthStencil != nil && rt.ownsDepthStencil {
		rt.depthStencil.Release()
	}
	rt.depthStencil = nil
}

const (
	postprocessPrimary = iota
	postprocessSecondary
	postprocessBlendMask
	postprocessTemp
	postprocessCount
)

// layerStack manages the stack of layers a frame draws into, plus the
// lazily allocated post-process scratch buffers. Layer targets are
// pooled: popping a layer keeps its target for the next push at the
// same depth, and everything is torn down wholesale when the viewport
// changes size.
type layerStack struct {
	width, height int
	// depth counts the active layers; targets beyond it are pooled.
	depth   int
	targets []*renderTarget

	postprocess [postprocessCount]*renderTarget

	newLayer       func(width, height int, sharedDepthStencil *wgpu.TextureView) (*renderTarget, error)
	newPostprocess func(width, height int) (*renderTarget, error)
}

func (s *layerStack) beginFrame(width, height int) error {
	if s.depth != 0 {
		panic("layer stack not empty at frame start")
	}
	if width != s.width || height != s.height {
		s.width = width
		s.height = height
		s.destroyTargets()
	}
	_, err := s.push()
	return err
}

func (s *layerStack) endFrame() {
	if s.depth != 1 {
		panic(fmt.Sprintf("%d layers left on the stack at frame end", s.depth))
	}
	s.pop()
}

func (s *layerStack) push() (veneer.LayerHandle, error) {
	if s.depth == len(s.targets) {
		// The stencil buffer is shared across all layers; the first
		// layer creates it.
		var shared *wgpu.TextureView
		if len(s.targets) > 0 {
			shared = s.targets[0].depthStencil
		}
		rt, err := s.newLayer(s.width, s.height, shared)
		if err != nil {
			return 0, err
		}
		s.targets = append(s.targets, rt)
	}
	s.depth++
	return s.topHandle(), nil
}

func (s *layerStack) pop() {
	if s.depth <= 0 {
		panic("popping empty layer stack")
	}
	s.depth--
}

func (s *layerStack) layer(h veneer.LayerHandle) *renderTarget {
	if int(h) < 0 || int(h) >= s.depth {
		panic(fmt.Sprintf("layer handle %d out of range", h))
	}
	return s.targets[h]
}

func (s *layerStack) top() *renderTarget {
	return s.layer(s.topHandle())
}

func (s *layerStack) topHandle() veneer.LayerHandle {
	if s.depth <= 0 {
		panic("empty layer stack")
	}
	return veneer.LayerHandle(s.depth - 1)
}

func (s *layerStack) ensurePostprocess(index int) (*renderTarget, error) {
	if s.postprocess[index] == nil {
		rt, err := s.newPostprocess(s.width, s.height)
		if err != nil {
			return nil, err
		}
		s.postprocess[index] = rt
	}
	return s.postprocess[index], nil
}

func (s *layerStack) swapPostprocess() {
	s.postprocess[postprocessPrimary], s.postprocess[postprocessSecondary] =
		s.postprocess[postprocessSecondary], s.postprocess[postprocessPrimary]
}

func (s *layerStack) destroyTargets() {
	if s.depth != 0 {
		panic("destroying render targets mid-frame")
	}
	for _, rt := range s.targets {
		rt.destroy()
	}
	s.targets = s.targets[:0]
	for i, rt := range s.postprocess {
		if rt != nil {
			rt.destroy()
			s.postprocess[i] = nil
		}
	}
}

func (r *Renderer) newLayerTarget(width, height int, sharedDepthStencil *wgpu.TextureView) (*renderTarget, error) {
	tex, err := r.dev.CreateTexture(&wgpu.TextureDescriptor{
		Label: "layer",
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   msaaSampleCount,
		Dimension:     wgpu.TextureDimension2D,
		Format:        layerFormat,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return nil, fmt.Errorf("creating layer texture: %w", err)
	}
	defer tex.Release()
	view, err := tex.CreateView(nil)
	if err != nil {
		return nil, fmt.Errorf("creating layer view: %w", err)
	}

	rt := &renderTarget{
		width:        uint32(width),
		height:       uint32(height),
		sampleCount:  msaaSampleCount,
		view:         view,
		depthStencil: sharedDepthStencil,
	}
	if sharedDepthStencil == nil {
		dsTex, err := r.dev.CreateTexture(&wgpu.TextureDescriptor{
			Label: "layer depth/stencil",
			Size: wgpu.Extent3D{
				Width:              uint32(width),
				Height:             uint32(height),
				DepthOrArrayLayers: 1,
			},
			MipLevelCount: 1,
			SampleCount:   msaaSampleCount,
			Dimension:     wgpu.TextureDimension2D,
			Format:        depthStencilFormat,
			Usage:         wgpu.TextureUsageRenderAttachment,
		})
		if err != nil {
			view.Release()
			return nil, fmt.Errorf("creating depth/stencil texture: %w", err)
		}
		defer dsTex.Release()
		dsView, err := dsTex.CreateView(nil)
		if err != nil {
			view.Release()
			return nil, fmt.Errorf("creating depth/stencil view: %w", err)
		}
		rt.depthStencil = dsView
		rt.ownsDepthStencil = true
	}
	return rt, nil
}

func (r *Renderer) newPostprocessTarget(width, height int) (*renderTarget, error) {
	tex, err := r.dev.CreateTexture(&wgpu.TextureDescriptor{
		Label: "postprocess buffer",
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        layerFormat,
		Usage: wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding |
			wgpu.TextureUsageCopySrc | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("creating postprocess texture: %w", err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("creating postprocess view: %w", err)
	}
	// Post-process buffers keep their texture around; layer snapshots
	// are copied out of them region by region.
	return &renderTarget{
		width:       uint32(width),
		height:      uint32(height),
		sampleCount: 1,
		tex:         tex,
		view:        view,
	}, nil
}

// retargetTopLayer points subsequent draws at the top of the layer
// stack.
func (r *Renderer) retargetTopLayer() {
	r.drawTarget = r.layers.top()
	r.drawKind = targetLayer
}

// PushLayer pushes a fresh transparent layer onto the stack. All
// subsequent geometry renders into it until it is popped or another
// layer is pushed.
func (r *Renderer) PushLayer() veneer.LayerHandle {
	if r.frame == nil {
		panic("PushLayer outside a frame")
	}
	handle, err := r.layers.push()
	if err != nil {
		logger().Error("pushing layer", "error", err)
		return r.layers.topHandle()
	}
	r.retargetTopLayer()
	// New layers start out fully transparent.
	r.clearTarget(r.drawTarget, wgpu.Color{})
	return handle
}

// PopLayer removes the top layer. Drawing continues on the layer
// below.
func (r *Renderer) PopLayer() {
	if r.frame == nil {
		panic("PopLayer outside a frame")
	}
	r.endActivePass()
	r.layers.pop()
	r.retargetTopLayer()
}
