package wgpu_engine

import (
	"fmt"
	"math/bits"
	"os"

	"github.com/cogentcore/webgpu/wgpu"
	"honnef.co/go/veneer"
	"honnef.co/go/veneer/internal/tga"
)

// LoadTexture loads the named texture file. The configured loader
// callback is consulted first; without one, or when it reports it
// doesn't handle the name, the file is read from disk and decoded as
// an uncompressed TGA image.
func (r *Renderer) LoadTexture(name string) (veneer.TextureHandle, error) {
	var pixels []byte
	var width, height uint32
	var err error
	if r.opts.Loader != nil {
		pixels, width, height, err = r.opts.Loader(name)
		if err != nil {
			return veneer.TextureHandle{}, fmt.Errorf("loading texture %q: %w", name, err)
		}
	}
	if pixels == nil {
		data, err := os.ReadFile(name)
		if err != nil {
			return veneer.TextureHandle{}, fmt.Errorf("loading texture %q: %w", name, err)
		}
		pixels, width, height, err = tga.Decode(data)
		if err != nil {
			return veneer.TextureHandle{}, fmt.Errorf("decoding texture %q: %w", name, err)
		}
	}
	return r.GenerateTexture(pixels, width, height)
}

// GenerateTexture creates a texture from premultiplied RGBA pixels,
// generating a full mip chain. With nil pixels it creates an empty
// single-level texture that can serve as a copy destination, as used
// for layer snapshots.
func (r *Renderer) GenerateTexture(pixels []byte, width, height uint32) (veneer.TextureHandle, error) {
	if width == 0 || height == 0 {
		return veneer.TextureHandle{}, fmt.Errorf("invalid texture dimensions %dx%d", width, height)
	}
	if pixels != nil && len(pixels) != int(width)*int(height)*4 {
		return veneer.TextureHandle{}, fmt.Errorf("have %d bytes of pixel data, expected %d", len(pixels), width*height*4)
	}

	mipCount := uint32(1)
	if pixels != nil {
		mipCount = uint32(bits.Len32(max(width, height)))
	}
	tex, err := r.dev.CreateTexture(&wgpu.TextureDescriptor{
		Label: "texture",
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: mipCount,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        layerFormat,
		Usage: wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst |
			wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return veneer.TextureHandle{}, fmt.Errorf("creating texture: %w", err)
	}

	if pixels != nil {
		r.queue.WriteTexture(
			&wgpu.ImageCopyTexture{
				Texture:  tex,
				MipLevel: 0,
				Origin:   wgpu.Origin3D{},
				Aspect:   wgpu.TextureAspectAll,
			},
			pixels,
			&wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  width * 4,
				RowsPerImage: height,
			},
			&wgpu.Extent3D{
				Width:              width,
				Height:             height,
				DepthOrArrayLayers: 1,
			},
		)
		if err := r.generateMips(tex, width, height, mipCount); err != nil {
			tex.Release()
			return veneer.TextureHandle{}, err
		}
	}

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return veneer.TextureHandle{}, fmt.Errorf("creating texture view: %w", err)
	}
	return veneer.TextureHandle{Texture: tex, View: view}, nil
}

// generateMips fills mip levels 1..n by repeatedly downsampling the
// previous level with a bilinear full-screen draw.
func (r *Renderer) generateMips(tex *wgpu.Texture, width, height, mipCount uint32) error {
	mipView := func(level uint32) (*wgpu.TextureView, error) {
		return tex.CreateView(&wgpu.TextureViewDescriptor{
			Label:           "mip level",
			Format:          layerFormat,
			Dimension:       wgpu.TextureViewDimension2D,
			BaseMipLevel:    level,
			MipLevelCount:   1,
			BaseArrayLayer:  0,
			ArrayLayerCount: 1,
			Aspect:          wgpu.TextureAspectAll,
		})
	}

	prev, err := mipView(0)
	if err != nil {
		return fmt.Errorf("creating mip view: %w", err)
	}
	defer func() { prev.Release() }()

	// Mip generation must not inherit, or disturb, whatever pass is
	// in flight.
	r.endActivePass()
	saved := r.saveDrawState()
	defer r.restoreDrawState(saved)

	for level := uint32(1); level < mipCount; level++ {
		cur, err := mipView(level)
		if err != nil {
			return fmt.Errorf("creating mip view: %w", err)
		}
		target := &renderTarget{
			width:       max(width>>level, 1),
			height:      max(height>>level, 1),
			sampleCount: 1,
			view:        cur,
		}
		r.drawTarget = target
		r.drawKind = targetScratch
		r.activeProgram = programPassthrough
		r.boundSource = prev
		r.blend = blendReplace
		r.drawFullscreenQuad()
		r.endActivePass()

		prev.Release()
		prev = cur
	}
	return nil
}

// drawState is the subset of renderer state that full-screen helper
// passes clobber.
type drawState struct {
	target  *renderTarget
	kind    targetKind
	program program
	source  *wgpu.TextureView
	mask    *wgpu.TextureView
	blend   blendMode
}

func (r *Renderer) saveDrawState() drawState {
	return drawState{
		target:  r.drawTarget,
		kind:    r.drawKind,
		program: r.activeProgram,
		source:  r.boundSource,
		mask:    r.boundMask,
		blend:   r.blend,
	}
}

func (r *Renderer) restoreDrawState(s drawState) {
	r.drawTarget = s.target
	r.drawKind = s.kind
	r.activeProgram = s.program
	r.boundSource = s.source
	r.boundMask = s.mask
	r.blend = s.blend
}

// ReleaseTexture frees a texture created by LoadTexture or
// GenerateTexture. Sentinel handles are ignored.
func (r *Renderer) ReleaseTexture(texture veneer.TextureHandle) {
	if texture.IsZero() || texture.IsPostprocess() {
		logger().Warn("releasing sentinel texture handle")
		return
	}
	if texture.View != nil {
		texture.View.Release()
	}
	if texture.Texture != nil {
		texture.Texture.Release()
	}
}
