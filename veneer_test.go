package veneer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParam(t *testing.T) {
	p := Params{"sigma": float32(3), "repeating": true}
	assert.Equal(t, float32(3), Param[float32](p, "sigma", 0))
	assert.True(t, Param(p, "repeating", false))
	assert.Equal(t, float32(1), Param[float32](p, "missing", 1))
	// A value of the wrong type falls back to the default.
	assert.Equal(t, 7, Param(p, "sigma", 7))
}

func TestTextureHandleSentinels(t *testing.T) {
	assert.True(t, TextureHandle{}.IsZero())
	assert.False(t, TexturePostprocess.IsZero())
	assert.True(t, TexturePostprocess.IsPostprocess())
	assert.False(t, TextureHandle{}.IsPostprocess())
}

func TestSetLogger(t *testing.T) {
	assert.NotNil(t, Logger())
	SetLogger(nil)
	assert.NotNil(t, Logger(), "nil restores the silent default")
}
