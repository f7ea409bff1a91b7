package gfx

import (
	"math"

	"honnef.co/go/curve"
)

// MaxGradientStops is the maximum number of color stops a gradient
// can carry. Longer stop lists are truncated.
const MaxGradientStops = 16

// GradientFunc selects the gradient shape evaluated by the gradient
// shader. The repeating variants tile the stop range instead of
// clamping to it.
type GradientFunc int32

const (
	GradientLinear GradientFunc = iota
	GradientRadial
	GradientConic
	GradientRepeatingLinear
	GradientRepeatingRadial
	GradientRepeatingConic
)

// ColorStop is one gradient stop. Position is a plain number along
// the gradient axis; Color is premultiplied RGBA.
type ColorStop struct {
	Position float32
	Color    [4]float32
}

// ShaderEffect is a compiled shader effect, rendered with
// RenderShader. Effects are immutable once compiled.
type ShaderEffect interface {
	isShaderEffect()
}

// Gradient evaluates a color gradient across the geometry's texture
// coordinates. P and V parameterize the gradient axis; their meaning
// depends on Func.
type Gradient struct {
	Func  GradientFunc
	P     [2]float32
	V     [2]float32
	Stops []ColorStop
}

// Creation renders a time-animated procedural effect across the
// geometry, scaled to the given dimensions.
type Creation struct {
	Dimensions [2]float32
}

func (Gradient) isShaderEffect() {}
func (Creation) isShaderEffect() {}

func clampStops(stops []ColorStop) []ColorStop {
	if len(stops) > MaxGradientStops {
		stops = stops[:MaxGradientStops]
	}
	out := make([]ColorStop, len(stops))
	copy(out, stops)
	return out
}

// LinearGradient builds a gradient running from p0 to p1.
func LinearGradient(p0, p1 curve.Point, repeating bool, stops []ColorStop) Gradient {
	fn := GradientLinear
	if repeating {
		fn = GradientRepeatingLinear
	}
	v := p1.Sub(p0)
	return Gradient{
		Func:  fn,
		P:     [2]float32{float32(p0.X), float32(p0.Y)},
		V:     [2]float32{float32(v.X), float32(v.Y)},
		Stops: clampStops(stops),
	}
}

// RadialGradient builds a gradient radiating from center with the
// given per-axis radius.
func RadialGradient(center curve.Point, radius curve.Vec2, repeating bool, stops []ColorStop) Gradient {
	fn := GradientRadial
	if repeating {
		fn = GradientRepeatingRadial
	}
	return Gradient{
		Func:  fn,
		P:     [2]float32{float32(center.X), float32(center.Y)},
		V:     [2]float32{float32(1 / radius.X), float32(1 / radius.Y)},
		Stops: clampStops(stops),
	}
}

// ConicGradient builds a gradient sweeping around center, starting at
// the given angle in radians.
func ConicGradient(center curve.Point, angle float32, repeating bool, stops []ColorStop) Gradient {
	fn := GradientConic
	if repeating {
		fn = GradientRepeatingConic
	}
	return Gradient{
		Func:  fn,
		P:     [2]float32{float32(center.X), float32(center.Y)},
		V:     [2]float32{float32(math.Cos(float64(angle))), float32(math.Sin(float64(angle)))},
		Stops: clampStops(stops),
	}
}
