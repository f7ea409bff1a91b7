package wgpu_engine

import (
	"image"

	"github.com/cogentcore/webgpu/wgpu"
	"honnef.co/go/curve"
	"honnef.co/go/veneer"
)

// passTarget describes the attachments of a render pass.
type passTarget struct {
	view          *wgpu.TextureView
	resolve       *wgpu.TextureView
	depthStencil  *wgpu.TextureView
	width, height uint32
	kind          targetKind
}

type releaser interface {
	Release()
}

// activePass is the pass currently recording draws. Passes are opened
// lazily by draws and closed whenever the target changes, an
// attachment needs clearing, or the frame ends. Closing a pass
// submits it.
type activePass struct {
	encoder *wgpu.CommandEncoder
	pass    *wgpu.RenderPassEncoder
	target  passTarget

	pipeline      *wgpu.RenderPipeline
	scissor       image.Rectangle
	stencilRef    uint32
	hasStencilRef bool
	blendConst    float32
	hasBlendConst bool

	// retained holds transient bind groups until the pass has been
	// submitted.
	retained []releaser
}

type scissorState struct {
	valid bool
	rect  image.Rectangle
}

func (r *Renderer) layerTarget(rt *renderTarget) passTarget {
	return passTarget{
		view:         rt.view,
		depthStencil: rt.depthStencil,
		width:        rt.width,
		height:       rt.height,
		kind:         targetLayer,
	}
}

func (r *Renderer) scratchTarget(rt *renderTarget) passTarget {
	return passTarget{
		view:   rt.view,
		width:  rt.width,
		height: rt.height,
		kind:   targetScratch,
	}
}

// currentTarget returns the target subsequent draws render into: the
// host view during the final blit, a post-process buffer during
// filter passes, and the top layer otherwise.
func (r *Renderer) currentTarget() passTarget {
	if r.hostTargetView != nil {
		return passTarget{
			view:   r.hostTargetView,
			width:  uint32(r.viewportWidth),
			height: uint32(r.viewportHeight),
			kind:   targetHost,
		}
	}
	if r.drawKind == targetScratch {
		return r.scratchTarget(r.drawTarget)
	}
	return r.layerTarget(r.drawTarget)
}

// matches reports whether the open pass already renders into t. The
// resolve attachment is part of the identity: a pass opened without
// one never performs the multisample resolve, so asking for a resolve
// on the same view still needs a fresh pass.
func (p *activePass) matches(t passTarget) bool {
	return p.pass != nil && p.target.view == t.view && p.target.resolve == t.resolve
}

// ensurePass returns a render pass targeting t, reusing the active
// one when it already targets the same attachments and no clear was
// requested. Returns nil if the device refused to create an encoder;
// the failure has been logged and the draw should be dropped.
func (r *Renderer) ensurePass(t passTarget, clearColor *wgpu.Color, clearStencil bool) *wgpu.RenderPassEncoder {
	if r.pass.matches(t) && clearColor == nil && !clearStencil {
		return r.pass.pass
	}
	r.endActivePass()

	enc, err := r.dev.CreateCommandEncoder(nil)
	if err != nil {
		logger().Error("creating command encoder", "error", err)
		return nil
	}

	color := wgpu.RenderPassColorAttachment{
		View:    t.view,
		LoadOp:  wgpu.LoadOpLoad,
		StoreOp: wgpu.StoreOpStore,
	}
	if t.resolve != nil {
		color.ResolveTarget = t.resolve
	}
	if clearColor != nil {
		color.LoadOp = wgpu.LoadOpClear
		color.ClearValue = *clearColor
	}
	desc := wgpu.RenderPassDescriptor{
		Label:            "draw pass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{color},
	}
	if t.depthStencil != nil {
		ds := wgpu.RenderPassDepthStencilAttachment{
			View:              t.depthStencil,
			DepthLoadOp:       wgpu.LoadOpLoad,
			DepthStoreOp:      wgpu.StoreOpStore,
			StencilLoadOp:     wgpu.LoadOpLoad,
			StencilStoreOp:    wgpu.StoreOpStore,
			StencilClearValue: 0,
		}
		if clearStencil {
			ds.StencilLoadOp = wgpu.LoadOpClear
		}
		desc.DepthStencilAttachment = &ds
	}
	pass := enc.BeginRenderPass(&desc)
	r.pass = activePass{
		encoder: enc,
		pass:    pass,
		target:  t,
		scissor: image.Rect(0, 0, int(t.width), int(t.height)),
	}
	return pass
}

// endActivePass closes and submits the active pass, if any.
func (r *Renderer) endActivePass() {
	if r.pass.pass == nil {
		return
	}
	r.pass.pass.End()
	r.pass.pass.Release()
	cmd, err := r.pass.encoder.Finish(nil)
	if err != nil {
		logger().Error("finishing command encoder", "error", err)
	} else {
		r.queue.Submit(cmd)
		cmd.Release()
	}
	r.pass.encoder.Release()
	for _, res := range r.pass.retained {
		res.Release()
	}
	r.pass = activePass{}
}

// clearTarget opens a pass that clears rt to the given color and
// leaves it active for subsequent draws.
func (r *Renderer) clearTarget(rt *renderTarget, color wgpu.Color) {
	var t passTarget
	if rt.sampleCount > 1 {
		t = r.layerTarget(rt)
	} else {
		t = r.scratchTarget(rt)
	}
	r.ensurePass(t, &color, false)
}

// clampScissor intersects region with the bounds rectangle, the way
// scissor rectangles must be clamped to the target before being
// handed to the API.
func clampScissor(region, bounds image.Rectangle) image.Rectangle {
	return region.Intersect(bounds)
}

// passScissorRect computes the scissor rectangle to apply for a draw
// into t. User scissoring only constrains layer rendering; filter
// passes install an explicit override instead.
func (r *Renderer) passScissorRect(t passTarget) image.Rectangle {
	full := image.Rect(0, 0, int(t.width), int(t.height))
	if r.scissorOverride != nil {
		return clampScissor(*r.scissorOverride, full)
	}
	if t.kind == targetLayer && r.scissor.valid {
		return clampScissor(r.scissor.rect, full)
	}
	return full
}

func (r *Renderer) applyScissor(rect image.Rectangle) {
	if rect == r.pass.scissor {
		return
	}
	r.pass.scissor = rect
	if rect.Empty() {
		// An empty scissor still needs a valid rectangle; a
		// zero-sized one at the origin discards everything.
		r.pass.pass.SetScissorRect(0, 0, 0, 0)
		return
	}
	r.pass.pass.SetScissorRect(
		uint32(rect.Min.X), uint32(rect.Min.Y),
		uint32(rect.Dx()), uint32(rect.Dy()),
	)
}

// BeginFrame starts rendering a frame into target, which must have
// the viewport's dimensions and the configured target format. The
// caller keeps ownership of the view and must keep it alive until
// EndFrame returns.
func (r *Renderer) BeginFrame(target *wgpu.TextureView) error {
	if r.frame != nil {
		panic("BeginFrame without matching EndFrame")
	}
	if r.viewportWidth == 0 || r.viewportHeight == 0 {
		panic("BeginFrame before SetViewport")
	}
	group := r.profiler.Start("frame")
	if err := r.layers.beginFrame(r.viewportWidth, r.viewportHeight); err != nil {
		group.End()
		return err
	}
	r.frame = &frameState{hostView: target, group: group}

	r.uniforms.reset()
	r.uniformValid = false
	r.activeProgram = programColor
	r.boundSource = nil
	r.boundMask = nil
	r.blend = blendBlend
	r.clip = clipState{}
	r.scissor = scissorState{}
	r.scissorOverride = nil
	r.retargetTopLayer()
	r.SetTransform(nil)

	// The base layer starts out opaque black; pushed layers start out
	// transparent.
	r.clearTarget(r.drawTarget, wgpu.Color{A: 1})
	return nil
}

// EndFrame completes the frame: the base layer is resolved and
// composited onto the target view handed to BeginFrame.
func (r *Renderer) EndFrame() {
	if r.frame == nil {
		panic("EndFrame without matching BeginFrame")
	}
	g := r.frame.group.Nest("present")

	r.blitLayerToPostprocessPrimary(r.layers.topHandle())
	if primary := r.layers.postprocess[postprocessPrimary]; primary != nil {
		r.hostTargetView = r.frame.hostView
		r.activeProgram = programPassthrough
		r.boundSource = primary.view
		r.blend = blendBlend
		// The blit covers the whole target, but the caller's view may
		// hold arbitrary contents. Clear rather than load.
		r.ensurePass(r.currentTarget(), &wgpu.Color{}, false)
		r.drawFullscreenQuad()
		r.endActivePass()
		r.hostTargetView = nil
	}
	g.End()

	r.layers.endFrame()
	r.frame.group.End()
	r.frame = nil
}

// blitLayerToPostprocessPrimary resolves the multisampled layer into
// the primary post-process buffer.
func (r *Renderer) blitLayerToPostprocessPrimary(layer veneer.LayerHandle) {
	primary, err := r.layers.ensurePostprocess(postprocessPrimary)
	if err != nil {
		logger().Error("creating postprocess buffer", "error", err)
		return
	}
	src := r.layers.layer(layer)
	t := r.layerTarget(src)
	t.resolve = primary.view
	// A fresh pass with a resolve attachment and no draws performs
	// the multisample resolve.
	r.ensurePass(t, nil, false)
	r.endActivePass()
}

// RenderGeometry draws previously compiled geometry, offset by
// translation. A zero texture handle renders with vertex colors only;
// TexturePostprocess keeps the currently bound program and source.
func (r *Renderer) RenderGeometry(handle veneer.GeometryHandle, translation curve.Vec2, texture veneer.TextureHandle) {
	rec, ok := r.geometry.get(handle)
	if !ok {
		logger().Warn("rendering unknown geometry", "handle", handle)
		return
	}
	switch {
	case texture.IsPostprocess():
		// Keep the program and source installed by the current
		// full-screen pass.
	case texture.IsZero():
		r.activeProgram = programColor
	default:
		r.activeProgram = programTexture
		r.boundSource = texture.View
	}
	r.stageTranslation(translation)
	r.draw(rec)
}

func (r *Renderer) stageTranslation(translation curve.Vec2) {
	tr := [2]float32{float32(translation.X), float32(translation.Y)}
	if r.uniformState.Translate != tr {
		r.uniformState.Translate = tr
		r.uniformValid = false
	}
}

// draw records one draw call into the current target, opening a pass
// if necessary.
func (r *Renderer) draw(rec *geometryRecord) {
	if !r.uniformValid {
		offset, ok := r.uniforms.write(&r.uniformState)
		if !ok {
			// Arena exhausted. Submitting the active pass makes every
			// written slot safe to recycle.
			r.endActivePass()
			r.uniforms.reset()
			offset, _ = r.uniforms.write(&r.uniformState)
		}
		r.uniformOffset = offset
		r.uniformValid = true
	}

	t := r.currentTarget()
	pass := r.ensurePass(t, nil, false)
	if pass == nil {
		return
	}

	stencil := stencilNone
	var stencilRef uint32
	if t.kind == targetLayer {
		switch {
		case r.clip.writing:
			stencil = r.clip.writeMode
			stencilRef = r.clip.writeRef
		case r.clip.enabled:
			stencil = stencilTest
			stencilRef = r.clip.ref
		}
	}

	pipe := r.pipelines.get(pipelineKey{
		prog:    r.activeProgram,
		target:  t.kind,
		blend:   r.blend,
		stencil: stencil,
	})
	if pipe != r.pass.pipeline {
		pass.SetPipeline(pipe)
		r.pass.pipeline = pipe
	}

	r.applyScissor(r.passScissorRect(t))

	if stencil != stencilNone {
		if !r.pass.hasStencilRef || r.pass.stencilRef != stencilRef {
			pass.SetStencilReference(stencilRef)
			r.pass.stencilRef = stencilRef
			r.pass.hasStencilRef = true
		}
	}
	if r.blend == blendConstant {
		if !r.pass.hasBlendConst || r.pass.blendConst != r.blendConstant {
			c := float64(r.blendConstant)
			pass.SetBlendConstant(&wgpu.Color{R: c, G: c, B: c, A: c})
			r.pass.blendConst = r.blendConstant
			r.pass.hasBlendConst = true
		}
	}

	pass.SetBindGroup(0, r.uniformBindGroup, []uint32{r.uniformOffset})

	binds := programSpecs[r.activeProgram].bindings
	if binds >= bindTexture {
		if r.boundSource == nil {
			logger().Warn("drawing textured program without a source texture")
			return
		}
		group, err := r.dev.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  "source texture",
			Layout: r.pipelines.textureLayout,
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, TextureView: r.boundSource},
				{Binding: 1, Sampler: r.sampler},
			},
		})
		if err != nil {
			logger().Error("creating texture bind group", "error", err)
			return
		}
		r.pass.retained = append(r.pass.retained, group)
		pass.SetBindGroup(1, group, nil)
	}
	if binds == bindMask {
		if r.boundMask == nil {
			logger().Warn("drawing mask program without a mask texture")
			return
		}
		group, err := r.dev.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  "mask texture",
			Layout: r.pipelines.maskLayout,
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, TextureView: r.boundMask},
			},
		})
		if err != nil {
			logger().Error("creating mask bind group", "error", err)
			return
		}
		r.pass.retained = append(r.pass.retained, group)
		pass.SetBindGroup(2, group, nil)
	}

	pass.SetVertexBuffer(0, rec.vertexBuf, 0, wgpu.WholeSize)
	pass.SetIndexBuffer(rec.indexBuf, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	pass.DrawIndexed(rec.indexCount, 1, 0, 0, 0)
}

// drawFullscreenQuad draws the persistent quad covering the whole
// target with the currently staged program state.
func (r *Renderer) drawFullscreenQuad() {
	rec, ok := r.geometry.get(r.fullscreenQuad)
	if !ok {
		return
	}
	r.stageTranslation(curve.Vec2{})
	r.draw(rec)
}

// drawQuad draws a transient quad with positions covering dst, in
// target pixels, sampling uv from src given in source pixels. Both
// rectangles are converted against their respective target sizes.
func (r *Renderer) drawQuad(dst image.Rectangle, dstW, dstH uint32, src image.Rectangle, srcW, srcH uint32) {
	toNDC := func(x, y int) (float32, float32) {
		return 2*float32(x)/float32(dstW) - 1, 1 - 2*float32(y)/float32(dstH)
	}
	toUV := func(x, y int) (float32, float32) {
		return float32(x) / float32(srcW), float32(y) / float32(srcH)
	}
	white := [4]uint8{255, 255, 255, 255}
	var verts [4]veneer.Vertex
	corners := [4][2]int{
		{dst.Min.X, dst.Min.Y},
		{dst.Max.X, dst.Min.Y},
		{dst.Max.X, dst.Max.Y},
		{dst.Min.X, dst.Max.Y},
	}
	uvs := [4][2]int{
		{src.Min.X, src.Min.Y},
		{src.Max.X, src.Min.Y},
		{src.Max.X, src.Max.Y},
		{src.Min.X, src.Max.Y},
	}
	for i := range verts {
		x, y := toNDC(corners[i][0], corners[i][1])
		u, v := toUV(uvs[i][0], uvs[i][1])
		verts[i] = veneer.Vertex{Pos: [2]float32{x, y}, Color: white, UV: [2]float32{u, v}}
	}
	indices := []uint32{0, 1, 2, 0, 2, 3}

	handle := r.CompileGeometry(verts[:], indices)
	if handle.IsZero() {
		return
	}
	rec, _ := r.geometry.get(handle)
	r.stageTranslation(curve.Vec2{})
	r.draw(rec)
	r.ReleaseGeometry(handle)
}
