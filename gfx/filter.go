package gfx

import (
	"math"

	"honnef.co/go/curve"
	"honnef.co/go/veneer/vmath"
)

// Filter is a compiled visual filter, applied to a layer when it is
// composited. Filters are immutable once compiled.
type Filter interface {
	isFilter()
}

// Passthrough copies the layer, scaled by a constant blend factor.
// It implements the opacity filter.
type Passthrough struct {
	BlendFactor float32
}

// Blur applies a gaussian blur with the given standard deviation, in
// pixels.
type Blur struct {
	Sigma float32
}

// DropShadow draws a blurred, tinted copy of the layer's alpha
// channel behind the layer itself.
type DropShadow struct {
	Sigma  float32
	Offset curve.Vec2
	Color  [4]float32 // premultiplied
}

// ColorMatrix transforms each pixel's unpremultiplied color by a 4x4
// matrix with a constant term in the last column.
type ColorMatrix struct {
	Matrix vmath.Mat4
}

// MaskImage multiplies the layer by the alpha channel of the saved
// blend mask.
type MaskImage struct{}

func (Passthrough) isFilter() {}
func (Blur) isFilter()        {}
func (DropShadow) isFilter()  {}
func (ColorMatrix) isFilter() {}
func (MaskImage) isFilter()   {}

// BrightnessMatrix scales all color channels by value.
func BrightnessMatrix(value float32) vmath.Mat4 {
	return vmath.Diag(value, value, value, 1)
}

// ContrastMatrix scales color channels around the midpoint gray.
func ContrastMatrix(value float32) vmath.Mat4 {
	grayness := 0.5 - 0.5*value
	m := vmath.Diag(value, value, value, 1)
	m.SetCol(3, [4]float32{grayness, grayness, grayness, 1})
	return m
}

// InvertMatrix inverts color channels, interpolated by value in
// [0, 1].
func InvertMatrix(value float32) vmath.Mat4 {
	value = vmath.Clamp(value, 0, 1)
	inverted := 1 - 2*value
	m := vmath.Diag(inverted, inverted, inverted, 1)
	m.SetCol(3, [4]float32{value, value, value, 1})
	return m
}

// GrayscaleMatrix mixes color channels towards their luminance,
// interpolated by value.
func GrayscaleMatrix(value float32) vmath.Mat4 {
	rev := 1 - value
	gray := [3]float32{value * 0.2126, value * 0.7152, value * 0.0722}
	return vmath.FromRows(
		[4]float32{gray[0] + rev, gray[1], gray[2], 0},
		[4]float32{gray[0], gray[1] + rev, gray[2], 0},
		[4]float32{gray[0], gray[1], gray[2] + rev, 0},
		[4]float32{0, 0, 0, 1},
	)
}

// SepiaMatrix mixes color channels towards sepia tones, interpolated
// by value.
func SepiaMatrix(value float32) vmath.Mat4 {
	rev := 1 - value
	rMix := [3]float32{value * 0.393, value * 0.769, value * 0.189}
	gMix := [3]float32{value * 0.349, value * 0.686, value * 0.168}
	bMix := [3]float32{value * 0.272, value * 0.534, value * 0.131}
	return vmath.FromRows(
		[4]float32{rMix[0] + rev, rMix[1], rMix[2], 0},
		[4]float32{gMix[0], gMix[1] + rev, gMix[2], 0},
		[4]float32{bMix[0], bMix[1], bMix[2] + rev, 0},
		[4]float32{0, 0, 0, 1},
	)
}

// HueRotateMatrix rotates hues by the given angle in radians.
//
// Coefficients from https://www.w3.org/TR/filter-effects-1/#attr-valuedef-type-huerotate.
func HueRotateMatrix(angle float32) vmath.Mat4 {
	s := float32(math.Sin(float64(angle)))
	c := float32(math.Cos(float64(angle)))
	return vmath.FromRows(
		[4]float32{0.213 + 0.787*c - 0.213*s, 0.715 - 0.715*c - 0.715*s, 0.072 - 0.072*c + 0.928*s, 0},
		[4]float32{0.213 - 0.213*c + 0.143*s, 0.715 + 0.285*c + 0.140*s, 0.072 - 0.072*c - 0.283*s, 0},
		[4]float32{0.213 - 0.213*c - 0.787*s, 0.715 - 0.715*c + 0.715*s, 0.072 + 0.928*c + 0.072*s, 0},
		[4]float32{0, 0, 0, 1},
	)
}

// SaturateMatrix adjusts saturation, with 0 fully desaturated and 1
// unchanged.
func SaturateMatrix(value float32) vmath.Mat4 {
	return vmath.FromRows(
		[4]float32{0.213 + 0.787*value, 0.715 - 0.715*value, 0.072 - 0.072*value, 0},
		[4]float32{0.213 - 0.213*value, 0.715 + 0.285*value, 0.072 - 0.072*value, 0},
		[4]float32{0.213 - 0.213*value, 0.715 - 0.715*value, 0.072 + 0.928*value, 0},
		[4]float32{0, 0, 0, 1},
	)
}
