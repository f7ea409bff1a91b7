package wgpu_engine

import (
	"fmt"

	"honnef.co/go/curve"
	"honnef.co/go/veneer"
)

// clipState tracks the stencil-based clip mask. While enabled, draws
// into layers only pass where the stencil equals ref. During
// RenderToClipMask the state switches to writing mode and draws
// update the stencil instead of testing it.
type clipState struct {
	enabled bool
	ref     uint32

	writing   bool
	writeMode stencilMode
	writeRef  uint32
}

// transition updates the state for a mask operation and returns the
// stencil mode to draw the mask geometry with, the stencil reference
// for that draw, and whether the stencil buffer must be cleared
// first.
func (c *clipState) transition(op veneer.ClipMaskOperation) (mode stencilMode, writeRef uint32, clear bool) {
	switch op {
	case veneer.ClipMaskSet:
		// Fresh mask; subsequent draws pass inside the geometry.
		c.ref = 1
		return stencilWrite, 1, true
	case veneer.ClipMaskSetInverse:
		// Fresh mask; subsequent draws pass outside the geometry.
		c.ref = 0
		return stencilWrite, 1, true
	case veneer.ClipMaskIntersect:
		c.ref++
		return stencilIncrement, 0, false
	default:
		panic(fmt.Sprintf("unhandled clip mask operation %d", op))
	}
}

// EnableClipMask enables or disables clipping of layer draws to the
// mask built with RenderToClipMask.
func (r *Renderer) EnableClipMask(enable bool) {
	r.clip.enabled = enable
}

// RenderToClipMask draws geometry into the clip mask instead of the
// current layer. The clip mask must be enabled.
func (r *Renderer) RenderToClipMask(op veneer.ClipMaskOperation, geometry veneer.GeometryHandle, translation curve.Vec2) {
	if !r.clip.enabled {
		panic("RenderToClipMask with the clip mask disabled")
	}

	mode, writeRef, clear := r.clip.transition(op)
	if clear {
		t := r.currentTarget()
		if t.kind != targetLayer {
			panic("RenderToClipMask outside of layer rendering")
		}
		r.ensurePass(t, nil, true)
	}

	savedBlend := r.blend
	r.blend = blendBlend
	r.clip.writing = true
	r.clip.writeMode = mode
	r.clip.writeRef = writeRef
	r.RenderGeometry(geometry, translation, veneer.TextureHandle{})
	r.clip.writing = false
	r.blend = savedBlend
}
