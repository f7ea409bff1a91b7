package wgpu_engine

import (
	"time"

	"honnef.co/go/curve"
	"honnef.co/go/veneer"
	"honnef.co/go/veneer/gfx"
)

// CompileShader compiles a named shader effect. Unknown names are
// logged and return nil.
func (r *Renderer) CompileShader(name string, params veneer.Params) gfx.ShaderEffect {
	repeating := veneer.Param(params, "repeating", false)
	stops := veneer.Param[[]gfx.ColorStop](params, "color_stop_list", nil)
	switch name {
	case "linear-gradient":
		return gfx.LinearGradient(
			veneer.Param(params, "p0", curve.Point{}),
			veneer.Param(params, "p1", curve.Point{}),
			repeating, stops,
		)
	case "radial-gradient":
		return gfx.RadialGradient(
			veneer.Param(params, "center", curve.Point{}),
			veneer.Param(params, "radius", curve.Vec2{X: 1, Y: 1}),
			repeating, stops,
		)
	case "conic-gradient":
		return gfx.ConicGradient(
			veneer.Param(params, "center", curve.Point{}),
			veneer.Param[float32](params, "angle", 0),
			repeating, stops,
		)
	case "shader":
		if value := veneer.Param(params, "value", ""); value != "creation" {
			logger().Warn("unknown shader", "value", value)
			return nil
		}
		dim := veneer.Param(params, "dimensions", curve.Vec2{})
		return gfx.Creation{Dimensions: [2]float32{float32(dim.X), float32(dim.Y)}}
	default:
		logger().Warn("unknown shader", "name", name)
		return nil
	}
}

// ReleaseShader frees a compiled shader effect. Effects hold no GPU
// resources, so this only exists for API symmetry.
func (r *Renderer) ReleaseShader(shader gfx.ShaderEffect) {}

// RenderShader draws geometry with a compiled shader effect instead
// of a texture or vertex colors.
func (r *Renderer) RenderShader(shader gfx.ShaderEffect, geometry veneer.GeometryHandle, translation curve.Vec2) {
	rec, ok := r.geometry.get(geometry)
	if !ok {
		logger().Warn("rendering unknown geometry", "handle", geometry)
		return
	}

	switch s := shader.(type) {
	case gfx.Gradient:
		u := &r.uniformState
		u.Func = int32(s.Func)
		u.NumStops = int32(min(len(s.Stops), gfx.MaxGradientStops))
		u.P = s.P
		u.V = s.V
		u.StopColors = [gfx.MaxGradientStops][4]float32{}
		u.StopPositions = [maxGradientStopVecs][4]float32{}
		for i, stop := range s.Stops[:u.NumStops] {
			u.StopColors[i] = stop.Color
			u.StopPositions[i/4][i%4] = stop.Position
		}
		r.uniformValid = false
		r.activeProgram = programGradient
	case gfx.Creation:
		u := &r.uniformState
		u.Dimensions = s.Dimensions
		u.Value = float32(time.Since(r.startTime).Seconds())
		r.uniformValid = false
		r.activeProgram = programCreation
	default:
		logger().Warn("rendering unknown shader effect", "shader", shader)
		return
	}

	r.stageTranslation(translation)
	r.draw(rec)
}
