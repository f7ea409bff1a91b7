package wgpu_engine

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"honnef.co/go/veneer"
	"honnef.co/go/veneer/gfx"
)

func TestBlurWeightsNormalized(t *testing.T) {
	for _, sigma := range []float32{0.5, 1, 2, 3} {
		w := blurWeights(sigma)
		sum := w[0]
		for _, x := range w[1:] {
			sum += 2 * x
		}
		assert.InDelta(t, 1.0, sum, 1e-5, "sigma %v", sigma)
		for i := 1; i < len(w); i++ {
			assert.Less(t, w[i], w[i-1], "weights must fall off from the center")
		}
	}
}

func TestBlurWeightsTinySigma(t *testing.T) {
	w := blurWeights(0.05)
	assert.Equal(t, [blurWeightLen]float32{1, 0, 0, 0}, w, "tiny sigmas must degenerate to the identity")
}

func TestSigmaToParameters(t *testing.T) {
	// Small sigmas blur in a single full-resolution pass.
	level, sigma := sigmaToParameters(2)
	assert.Equal(t, 0, level)
	assert.Equal(t, float32(2), sigma)

	// Large sigmas downscale first and keep the per-pass sigma
	// bounded.
	level, sigma = sigmaToParameters(48)
	assert.Greater(t, level, 0)
	assert.LessOrEqual(t, sigma, float32(maxSinglePassSigma))

	// The pass level is capped.
	level, _ = sigmaToParameters(1e12)
	assert.Equal(t, maxBlurPassLevel, level)
}

func TestHalveRect(t *testing.T) {
	assert.Equal(t, image.Rect(10, 5, 30, 15), halveRect(image.Rect(20, 10, 60, 30)))
	// Degenerate rectangles keep at least one pixel.
	assert.Equal(t, image.Rect(0, 0, 1, 1), halveRect(image.Rect(0, 0, 1, 1)))
}

func TestClampScissor(t *testing.T) {
	bounds := image.Rect(0, 0, 800, 600)
	assert.Equal(t, image.Rect(0, 0, 800, 600), clampScissor(image.Rect(-10, -10, 900, 700), bounds))
	assert.Equal(t, image.Rect(100, 100, 200, 200), clampScissor(image.Rect(100, 100, 200, 200), bounds))
	assert.True(t, clampScissor(image.Rect(900, 700, 1000, 800), bounds).Empty())
}

func TestCompileFilter(t *testing.T) {
	r := &Renderer{}

	f := r.CompileFilter("opacity", veneer.Params{"value": float32(0.5)})
	assert.Equal(t, gfx.Passthrough{BlendFactor: 0.5}, f)

	f = r.CompileFilter("blur", veneer.Params{"sigma": float32(4)})
	assert.Equal(t, gfx.Blur{Sigma: 4}, f)

	f = r.CompileFilter("grayscale", veneer.Params{"value": float32(1)})
	cm, ok := f.(gfx.ColorMatrix)
	assert.True(t, ok)
	assert.Equal(t, gfx.GrayscaleMatrix(1), cm.Matrix)

	assert.Nil(t, r.CompileFilter("vignette", nil))
}

func TestCompileShader(t *testing.T) {
	r := &Renderer{}

	s := r.CompileShader("linear-gradient", veneer.Params{
		"repeating":       true,
		"color_stop_list": []gfx.ColorStop{{Position: 0}, {Position: 1}},
	})
	g, ok := s.(gfx.Gradient)
	assert.True(t, ok)
	assert.Equal(t, gfx.GradientRepeatingLinear, g.Func)
	assert.Len(t, g.Stops, 2)

	s = r.CompileShader("shader", veneer.Params{"value": "creation"})
	_, ok = s.(gfx.Creation)
	assert.True(t, ok)

	assert.Nil(t, r.CompileShader("shader", veneer.Params{"value": "warp"}))
	assert.Nil(t, r.CompileShader("noise", nil))
}
