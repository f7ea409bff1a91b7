package gfx

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"honnef.co/go/curve"
)

func TestLinearGradient(t *testing.T) {
	stops := []ColorStop{
		{Position: 0, Color: [4]float32{1, 0, 0, 1}},
		{Position: 1, Color: [4]float32{0, 0, 1, 1}},
	}
	g := LinearGradient(curve.Point{X: 10, Y: 20}, curve.Point{X: 110, Y: 70}, false, stops)
	assert.Equal(t, GradientLinear, g.Func)
	assert.Equal(t, [2]float32{10, 20}, g.P)
	// The gradient vector is the difference of the two points.
	assert.Equal(t, [2]float32{100, 50}, g.V)
	assert.Equal(t, stops, g.Stops)

	g = LinearGradient(curve.Point{X: 0, Y: 0}, curve.Point{X: 1, Y: 0}, true, stops)
	assert.Equal(t, GradientRepeatingLinear, g.Func)
}

func TestRadialGradient(t *testing.T) {
	g := RadialGradient(curve.Point{X: 50, Y: 50}, curve.Vec2{X: 2, Y: 4}, false, nil)
	assert.Equal(t, GradientRadial, g.Func)
	assert.Equal(t, [2]float32{50, 50}, g.P)
	// The vector holds the reciprocal radius per axis.
	assert.Equal(t, [2]float32{0.5, 0.25}, g.V)

	g = RadialGradient(curve.Point{X: 0, Y: 0}, curve.Vec2{X: 1, Y: 1}, true, nil)
	assert.Equal(t, GradientRepeatingRadial, g.Func)
}

func TestConicGradient(t *testing.T) {
	g := ConicGradient(curve.Point{X: 1, Y: 2}, math.Pi/2, false, nil)
	assert.Equal(t, GradientConic, g.Func)
	assert.InDelta(t, 0, g.V[0], 1e-6)
	assert.InDelta(t, 1, g.V[1], 1e-6)

	g = ConicGradient(curve.Point{X: 1, Y: 2}, 0, true, nil)
	assert.Equal(t, GradientRepeatingConic, g.Func)
	assert.InDelta(t, 1, g.V[0], 1e-6)
	assert.InDelta(t, 0, g.V[1], 1e-6)
}

func TestStopClamping(t *testing.T) {
	stops := make([]ColorStop, MaxGradientStops+5)
	for i := range stops {
		stops[i] = ColorStop{Position: float32(i), Color: [4]float32{float32(i), 0, 0, 1}}
	}
	g := LinearGradient(curve.Point{X: 0, Y: 0}, curve.Point{X: 1, Y: 0}, false, stops)
	assert.Len(t, g.Stops, MaxGradientStops)
	// Truncation keeps the leading stops in order.
	for i, stop := range g.Stops {
		assert.Equal(t, float32(i), stop.Position)
	}

	// The compiled gradient owns its stop list.
	stops[0].Position = 99
	assert.Equal(t, float32(0), g.Stops[0].Position)
}
