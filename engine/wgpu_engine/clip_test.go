package wgpu_engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"honnef.co/go/veneer"
)

func TestClipStateSet(t *testing.T) {
	var c clipState
	mode, writeRef, clear := c.transition(veneer.ClipMaskSet)
	assert.Equal(t, stencilWrite, mode)
	assert.Equal(t, uint32(1), writeRef)
	assert.True(t, clear, "a fresh mask must clear the previous one")
	assert.Equal(t, uint32(1), c.ref, "draws must pass inside the mask")
}

func TestClipStateSetInverse(t *testing.T) {
	var c clipState
	mode, writeRef, clear := c.transition(veneer.ClipMaskSetInverse)
	assert.Equal(t, stencilWrite, mode)
	assert.Equal(t, uint32(1), writeRef)
	assert.True(t, clear)
	assert.Equal(t, uint32(0), c.ref, "draws must pass outside the mask")
}

func TestClipStateIntersect(t *testing.T) {
	var c clipState
	c.transition(veneer.ClipMaskSet)
	for i := 0; i < 2; i++ {
		mode, _, clear := c.transition(veneer.ClipMaskIntersect)
		assert.Equal(t, stencilIncrement, mode)
		assert.False(t, clear, "intersection accumulates into the existing mask")
	}
	assert.Equal(t, uint32(3), c.ref)
}

func TestClipStateSetResetsIntersections(t *testing.T) {
	var c clipState
	c.transition(veneer.ClipMaskSet)
	c.transition(veneer.ClipMaskIntersect)
	c.transition(veneer.ClipMaskSet)
	assert.Equal(t, uint32(1), c.ref)
}
