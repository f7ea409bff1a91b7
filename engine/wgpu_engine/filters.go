package wgpu_engine

import (
	"errors"
	"image"
	"math"

	"github.com/cogentcore/webgpu/wgpu"
	"honnef.co/go/color"
	"honnef.co/go/curve"
	"honnef.co/go/veneer"
	"honnef.co/go/veneer/gfx"
	"honnef.co/go/veneer/vmath"
)

var errEmptyRegion = errors.New("scissor region is empty")

// CompileFilter compiles a named filter. Unknown names are logged and
// return nil, which renderFilters skips.
func (r *Renderer) CompileFilter(name string, params veneer.Params) gfx.Filter {
	value := func(def float32) float32 { return veneer.Param(params, "value", def) }
	switch name {
	case "opacity":
		return gfx.Passthrough{BlendFactor: value(1)}
	case "blur":
		return gfx.Blur{Sigma: veneer.Param[float32](params, "sigma", 0)}
	case "drop-shadow":
		shadow := veneer.Param(params, "color", [4]float32{0, 0, 0, 1})
		if c := veneer.Param[*color.Color](params, "color", nil); c != nil {
			shadow = gfx.Premul32(c)
		}
		return gfx.DropShadow{
			Sigma:  veneer.Param[float32](params, "sigma", 0),
			Offset: veneer.Param(params, "offset", curve.Vec2{}),
			Color:  shadow,
		}
	case "brightness":
		return gfx.ColorMatrix{Matrix: gfx.BrightnessMatrix(value(1))}
	case "contrast":
		return gfx.ColorMatrix{Matrix: gfx.ContrastMatrix(value(1))}
	case "invert":
		return gfx.ColorMatrix{Matrix: gfx.InvertMatrix(value(0))}
	case "grayscale":
		return gfx.ColorMatrix{Matrix: gfx.GrayscaleMatrix(value(0))}
	case "sepia":
		return gfx.ColorMatrix{Matrix: gfx.SepiaMatrix(value(0))}
	case "hue-rotate":
		// The value is an angle in degrees.
		return gfx.ColorMatrix{Matrix: gfx.HueRotateMatrix(value(0) * (math.Pi / 180))}
	case "saturate":
		return gfx.ColorMatrix{Matrix: gfx.SaturateMatrix(value(1))}
	default:
		logger().Warn("unknown filter", "name", name)
		return nil
	}
}

// ReleaseFilter frees a compiled filter. Filters hold no GPU
// resources, so this only exists for API symmetry.
func (r *Renderer) ReleaseFilter(filter gfx.Filter) {}

// CompositeLayers draws the source layer onto the destination layer,
// after applying the given filter chain to a copy of it. Source and
// destination may be the same layer.
func (r *Renderer) CompositeLayers(source, destination veneer.LayerHandle, blend veneer.BlendMode, filters []gfx.Filter) {
	if r.frame != nil {
		g := r.frame.group.Nest("composite")
		defer g.End()
	}
	r.blitLayerToPostprocessPrimary(source)
	r.renderFilters(filters)
	primary := r.layers.postprocess[postprocessPrimary]
	if primary == nil {
		return
	}

	saved := r.saveDrawState()
	clipWas := r.clip.enabled
	r.clip.enabled = false

	r.drawTarget = r.layers.layer(destination)
	r.drawKind = targetLayer
	r.activeProgram = programPassthrough
	r.boundSource = primary.view
	switch blend {
	case veneer.BlendModeReplace:
		r.blend = blendReplace
	default:
		r.blend = blendBlend
	}
	r.drawFullscreenQuad()
	r.endActivePass()

	r.clip.enabled = clipWas
	r.restoreDrawState(saved)
	// Rendering continues on the top layer regardless of where we
	// composited to.
	r.retargetTopLayer()
}

// SaveLayerAsTexture copies the scissor region of the top layer into
// a new texture. The scissor region must be enabled.
func (r *Renderer) SaveLayerAsTexture() (veneer.TextureHandle, error) {
	if !r.scissor.valid {
		panic("SaveLayerAsTexture without a scissor region")
	}
	full := image.Rect(0, 0, r.viewportWidth, r.viewportHeight)
	bounds := clampScissor(r.scissor.rect, full)
	if bounds.Empty() {
		return veneer.TextureHandle{}, errEmptyRegion
	}

	handle, err := r.GenerateTexture(nil, uint32(bounds.Dx()), uint32(bounds.Dy()))
	if err != nil {
		return veneer.TextureHandle{}, err
	}

	r.blitLayerToPostprocessPrimary(r.layers.topHandle())
	primary := r.layers.postprocess[postprocessPrimary]
	if primary == nil {
		r.ReleaseTexture(handle)
		return veneer.TextureHandle{}, errors.New("no resolved layer to copy from")
	}

	enc, err := r.dev.CreateCommandEncoder(nil)
	if err != nil {
		r.ReleaseTexture(handle)
		return veneer.TextureHandle{}, err
	}
	enc.CopyTextureToTexture(
		&wgpu.ImageCopyTexture{
			Texture: primary.tex,
			Origin:  wgpu.Origin3D{X: uint32(bounds.Min.X), Y: uint32(bounds.Min.Y)},
			Aspect:  wgpu.TextureAspectAll,
		},
		&wgpu.ImageCopyTexture{
			Texture: handle.Texture,
			Aspect:  wgpu.TextureAspectAll,
		},
		&wgpu.Extent3D{
			Width:              uint32(bounds.Dx()),
			Height:             uint32(bounds.Dy()),
			DepthOrArrayLayers: 1,
		},
	)
	cmd, err := enc.Finish(nil)
	enc.Release()
	if err != nil {
		r.ReleaseTexture(handle)
		return veneer.TextureHandle{}, err
	}
	r.queue.Submit(cmd)
	cmd.Release()
	return handle, nil
}

// SaveLayerAsMaskImage snapshots the top layer into the blend mask
// buffer and returns the filter that applies it.
func (r *Renderer) SaveLayerAsMaskImage() (gfx.Filter, error) {
	r.blitLayerToPostprocessPrimary(r.layers.topHandle())
	primary := r.layers.postprocess[postprocessPrimary]
	if primary == nil {
		return nil, errors.New("no resolved layer to snapshot")
	}
	mask, err := r.layers.ensurePostprocess(postprocessBlendMask)
	if err != nil {
		return nil, err
	}

	saved := r.saveDrawState()
	r.drawTarget = mask
	r.drawKind = targetScratch
	r.activeProgram = programPassthrough
	r.boundSource = primary.view
	r.blend = blendReplace
	r.drawFullscreenQuad()
	r.endActivePass()
	r.restoreDrawState(saved)

	return gfx.MaskImage{}, nil
}

// renderFilters applies the filter chain to the primary post-process
// buffer, leaving the result in it.
func (r *Renderer) renderFilters(filters []gfx.Filter) {
	if len(filters) == 0 {
		return
	}
	saved := r.saveDrawState()
	defer r.restoreDrawState(saved)
	defer func() { r.scissorOverride = nil }()

	for _, f := range filters {
		switch f := f.(type) {
		case nil:
			// CompileFilter already complained.
		case gfx.Passthrough:
			r.blendConstant = f.BlendFactor
			r.postprocessPass(programPassthrough, blendConstant, nil)
		case gfx.Blur:
			r.renderBlur(f.Sigma)
		case gfx.DropShadow:
			r.renderDropShadow(f)
		case gfx.ColorMatrix:
			r.uniformState.ColorMatrix = f.Matrix
			r.uniformValid = false
			r.postprocessPass(programColorMatrix, blendReplace, nil)
		case gfx.MaskImage:
			mask, err := r.layers.ensurePostprocess(postprocessBlendMask)
			if err != nil {
				logger().Error("creating blend mask buffer", "error", err)
				continue
			}
			r.boundMask = mask.view
			r.postprocessPass(programBlendMask, blendReplace, nil)
		default:
			logger().Warn("unknown filter", "filter", f)
		}
	}
}

// postprocessPass samples the primary buffer into the secondary one
// with the given program and swaps the two, so that the result is the
// new primary. A non-nil region restricts both sampling and drawing
// to that rectangle.
func (r *Renderer) postprocessPass(prog program, blend blendMode, region *image.Rectangle) {
	primary, err := r.layers.ensurePostprocess(postprocessPrimary)
	if err != nil {
		logger().Error("creating postprocess buffer", "error", err)
		return
	}
	secondary, err := r.layers.ensurePostprocess(postprocessSecondary)
	if err != nil {
		logger().Error("creating postprocess buffer", "error", err)
		return
	}
	rect := image.Rect(0, 0, int(primary.width), int(primary.height))
	if region != nil {
		rect = *region
	}
	r.blitQuad(secondary, prog, blend, rect, rect, primary.view)
	r.layers.swapPostprocess()
}

// blitQuad draws a quad into dst with positions covering dstRect and
// texture coordinates covering srcRect of srcView.
func (r *Renderer) blitQuad(dst *renderTarget, prog program, blend blendMode, dstRect, srcRect image.Rectangle, srcView *wgpu.TextureView) {
	r.drawTarget = dst
	r.drawKind = targetScratch
	r.activeProgram = prog
	r.boundSource = srcView
	r.blend = blend
	scissor := dstRect
	r.scissorOverride = &scissor
	r.drawQuad(dstRect, dst.width, dst.height, srcRect, dst.width, dst.height)
	r.scissorOverride = nil
}

const (
	blurTapCount  = 7
	blurWeightLen = (blurTapCount + 1) / 2
	// Sigmas above this need downscaled passes to keep the kernel
	// small.
	maxSinglePassSigma = 3.0
	maxBlurPassLevel   = 10
)

// sigmaToParameters splits a desired blur strength into a number of
// halving downscale passes and the sigma for the final fixed-size
// kernel.
func sigmaToParameters(desired float32) (passLevel int, sigma float32) {
	passLevel = vmath.Clamp(vmath.Log2Int(int(desired*(2/maxSinglePassSigma))), 0, maxBlurPassLevel)
	sigma = vmath.Clamp(desired/float32(int(1)<<passLevel), 0, maxSinglePassSigma)
	return passLevel, sigma
}

// blurWeights computes the one-sided gaussian kernel, normalized so
// that the full kernel sums to one. Tiny sigmas degenerate to the
// identity.
func blurWeights(sigma float32) [blurWeightLen]float32 {
	var weights [blurWeightLen]float32
	if vmath.Abs32(sigma) < 0.1 {
		weights[0] = 1
		return weights
	}
	for i := range weights {
		x := float32(i)
		weights[i] = vmath.Exp32(-x*x/(2*sigma*sigma)) / (float32(math.Sqrt(2*math.Pi)) * sigma)
	}
	var sum float32
	for i, w := range weights {
		if i == 0 {
			sum += w
		} else {
			sum += 2 * w
		}
	}
	for i := range weights {
		weights[i] /= sum
	}
	return weights
}

// halveRect halves a rectangle's coordinates, keeping it at least one
// pixel in each dimension.
func halveRect(rect image.Rectangle) image.Rectangle {
	return image.Rect(
		rect.Min.X/2,
		rect.Min.Y/2,
		rect.Min.X/2+max(rect.Dx()/2, 1),
		rect.Min.Y/2+max(rect.Dy()/2, 1),
	)
}

// stageTexCoordLimits clamps sampling to rect, inset by half a texel
// so bilinear filtering doesn't bleed in neighboring pixels.
func (r *Renderer) stageTexCoordLimits(rect image.Rectangle, width, height uint32) {
	w, h := float32(width), float32(height)
	r.uniformState.TexCoordMin = [2]float32{
		(float32(rect.Min.X) + 0.5) / w,
		(float32(rect.Min.Y) + 0.5) / h,
	}
	r.uniformState.TexCoordMax = [2]float32{
		(float32(rect.Max.X) - 0.5) / w,
		(float32(rect.Max.Y) - 0.5) / h,
	}
	r.uniformValid = false
}

// renderBlur gaussian-blurs the scissored region of the primary
// buffer: downscale by half per pass level, separable blur in x and
// y, then upscale back to the original size.
func (r *Renderer) renderBlur(desiredSigma float32) {
	primary, err := r.layers.ensurePostprocess(postprocessPrimary)
	if err != nil {
		logger().Error("creating postprocess buffer", "error", err)
		return
	}
	if _, err := r.layers.ensurePostprocess(postprocessSecondary); err != nil {
		logger().Error("creating postprocess buffer", "error", err)
		return
	}

	passLevel, sigma := sigmaToParameters(desiredSigma)

	full := image.Rect(0, 0, int(primary.width), int(primary.height))
	region := full
	if r.scissor.valid {
		region = clampScissor(r.scissor.rect, full)
	}
	if region.Empty() {
		return
	}

	src := region
	for i := 0; i < passLevel; i++ {
		dst := halveRect(src)
		primary := r.layers.postprocess[postprocessPrimary]
		secondary := r.layers.postprocess[postprocessSecondary]
		r.blitQuad(secondary, programPassthrough, blendReplace, dst, src, primary.view)
		r.layers.swapPostprocess()
		src = dst
	}

	r.uniformState.Weights = blurWeights(sigma)
	r.stageTexCoordLimits(src, primary.width, primary.height)

	r.uniformState.TexelOffset = [2]float32{1 / float32(primary.width), 0}
	r.uniformValid = false
	r.postprocessPass(programBlur, blendReplace, &src)

	r.uniformState.TexelOffset = [2]float32{0, 1 / float32(primary.height)}
	r.uniformValid = false
	r.postprocessPass(programBlur, blendReplace, &src)

	if src != region {
		cur := r.layers.postprocess[postprocessPrimary]
		next := r.layers.postprocess[postprocessSecondary]
		r.stageTexCoordLimits(src, cur.width, cur.height)
		r.blitQuad(next, programPassthrough, blendReplace, region, src, cur.view)
		r.layers.swapPostprocess()
	}
}

// renderDropShadow draws a blurred, tinted copy of the primary buffer
// behind it.
func (r *Renderer) renderDropShadow(f gfx.DropShadow) {
	primary, err := r.layers.ensurePostprocess(postprocessPrimary)
	if err != nil {
		logger().Error("creating postprocess buffer", "error", err)
		return
	}
	secondary, err := r.layers.ensurePostprocess(postprocessSecondary)
	if err != nil {
		logger().Error("creating postprocess buffer", "error", err)
		return
	}
	temp, err := r.layers.ensurePostprocess(postprocessTemp)
	if err != nil {
		logger().Error("creating postprocess buffer", "error", err)
		return
	}

	full := image.Rect(0, 0, int(primary.width), int(primary.height))
	region := full
	if r.scissor.valid {
		region = clampScissor(r.scissor.rect, full)
	}

	// Keep the unshadowed image around; the blur passes below chew
	// through both ping-pong buffers.
	r.blitQuad(temp, programPassthrough, blendReplace, full, full, primary.view)

	r.uniformState.Color = f.Color
	r.stageTexCoordLimits(region, primary.width, primary.height)
	offset := image.Pt(int(f.Offset.X), int(f.Offset.Y))
	r.blitQuad(secondary, programDropShadow, blendReplace,
		full, full.Sub(offset), primary.view)
	r.layers.swapPostprocess()

	if f.Sigma >= 0.5 {
		r.renderBlur(f.Sigma)
	}

	// Original image over the shadow.
	cur := r.layers.postprocess[postprocessPrimary]
	r.blitQuad(cur, programPassthrough, blendBlend, full, full, temp.view)
}
