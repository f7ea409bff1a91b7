package wgpu_engine

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"honnef.co/go/curve"
	"honnef.co/go/veneer/vmath"
)

func TestSetViewportProjection(t *testing.T) {
	r := &Renderer{}
	r.SetViewport(800, 600)

	// Top left of the viewport maps to the top left of NDC.
	tl := r.uniformState.Transform.MulVec4([4]float32{0, 0, 0, 1})
	assert.InDelta(t, -1, tl[0], 1e-6)
	assert.InDelta(t, 1, tl[1], 1e-6)
	br := r.uniformState.Transform.MulVec4([4]float32{800, 600, 0, 1})
	assert.InDelta(t, 1, br[0], 1e-6)
	assert.InDelta(t, -1, br[1], 1e-6)
}

func TestSetTransformDirtyCache(t *testing.T) {
	r := &Renderer{}
	r.SetViewport(800, 600)

	m := vmath.Diag(2, 2, 1, 1)
	r.uniformValid = true
	r.SetTransform(&m)
	assert.False(t, r.uniformValid, "a new transform must invalidate the uniform slot")
	assert.Equal(t, r.projection.Mul(m), r.uniformState.Transform)

	// Re-applying the same transform must not invalidate.
	r.uniformValid = true
	m2 := m
	r.SetTransform(&m2)
	assert.True(t, r.uniformValid)

	r.SetTransform(nil)
	assert.False(t, r.uniformValid)
	assert.Equal(t, r.projection, r.uniformState.Transform)
}

func TestStageTranslationDirtyCache(t *testing.T) {
	r := &Renderer{}
	r.stageTranslation(curve.Vec2{X: 10, Y: 20})
	assert.False(t, r.uniformValid)
	assert.Equal(t, [2]float32{10, 20}, r.uniformState.Translate)

	r.uniformValid = true
	r.stageTranslation(curve.Vec2{X: 10, Y: 20})
	assert.True(t, r.uniformValid, "an unchanged translation must not invalidate")
}

func TestFullscreenQuadMesh(t *testing.T) {
	verts, indices := fullscreenQuadMesh()
	assert.Len(t, verts, 4)
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, indices)
	// The top left corner in NDC samples the top left of the source.
	assert.Equal(t, [2]float32{-1, 1}, verts[0].Pos)
	assert.Equal(t, [2]float32{0, 0}, verts[0].UV)
	assert.Equal(t, [2]float32{1, -1}, verts[2].Pos)
	assert.Equal(t, [2]float32{1, 1}, verts[2].UV)
}

func TestPassScissorRect(t *testing.T) {
	r := &Renderer{}
	r.SetViewport(800, 600)
	layer := passTarget{width: 800, height: 600, kind: targetLayer}
	scratch := passTarget{width: 800, height: 600, kind: targetScratch}

	full := image.Rect(0, 0, 800, 600)
	assert.Equal(t, full, r.passScissorRect(layer))

	r.SetScissorRegion(image.Rect(-50, 100, 900, 200))
	assert.Equal(t, image.Rect(0, 100, 800, 200), r.passScissorRect(layer),
		"user scissor is clamped to the target")
	assert.Equal(t, full, r.passScissorRect(scratch),
		"user scissor does not constrain filter passes")

	override := image.Rect(10, 10, 20, 20)
	r.scissorOverride = &override
	assert.Equal(t, override, r.passScissorRect(scratch))
	r.scissorOverride = nil

	r.EnableScissorRegion(false)
	assert.Equal(t, full, r.passScissorRect(layer))
}
