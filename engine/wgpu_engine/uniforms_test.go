package wgpu_engine

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

// The WGSL Uniforms struct dictates these offsets; the Go struct must
// agree byte for byte or draws read garbage.
func TestUniformLayout(t *testing.T) {
	var u shaderUniforms

	assert.Equal(t, uintptr(0), unsafe.Offsetof(u.Transform))
	assert.Equal(t, uintptr(64), unsafe.Offsetof(u.Translate))
	assert.Equal(t, uintptr(72), unsafe.Offsetof(u.Func))
	assert.Equal(t, uintptr(76), unsafe.Offsetof(u.NumStops))
	assert.Equal(t, uintptr(80), unsafe.Offsetof(u.P))
	assert.Equal(t, uintptr(88), unsafe.Offsetof(u.V))
	assert.Equal(t, uintptr(96), unsafe.Offsetof(u.Dimensions))
	assert.Equal(t, uintptr(104), unsafe.Offsetof(u.Value))
	assert.Equal(t, uintptr(112), unsafe.Offsetof(u.TexelOffset))
	assert.Equal(t, uintptr(120), unsafe.Offsetof(u.TexCoordMin))
	assert.Equal(t, uintptr(128), unsafe.Offsetof(u.TexCoordMax))
	assert.Equal(t, uintptr(144), unsafe.Offsetof(u.Color))
	assert.Equal(t, uintptr(160), unsafe.Offsetof(u.Weights))
	assert.Equal(t, uintptr(176), unsafe.Offsetof(u.ColorMatrix))
	assert.Equal(t, uintptr(240), unsafe.Offsetof(u.StopColors))
	assert.Equal(t, uintptr(496), unsafe.Offsetof(u.StopPositions))

	assert.Equal(t, uintptr(560), uniformsSize)
	// Uniform binding sizes must be 16-byte multiples.
	assert.Zero(t, uniformsSize%16)
	// Every variant shares the one block, so the block must fit a
	// dynamic-offset slot.
	assert.LessOrEqual(t, uniformsSize, uniformStride)
	assert.Zero(t, uniformStride%256)
}

func TestUniformStopCapacity(t *testing.T) {
	var u shaderUniforms
	assert.Equal(t, 16, len(u.StopColors))
	assert.Equal(t, 16, len(u.StopPositions)*len(u.StopPositions[0]))
}
