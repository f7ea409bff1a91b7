// Package veneer translates the drawing commands of a retained-mode 2D
// UI library into WebGPU API calls. It renders textured and colored
// triangle meshes into a stack of multisampled layers, applies stencil
// clip masks and post-process filters, and composites the result into
// a render target owned by the host application, without disturbing
// the host's own rendering.
//
// The WebGPU implementation lives in engine/wgpu_engine.
package veneer

import (
	"structs"

	"github.com/cogentcore/webgpu/wgpu"
)

// Vertex is the on-wire vertex format for compiled geometry. Colors
// are premultiplied 8-bit RGBA.
type Vertex struct {
	_ structs.HostLayout

	Pos   [2]float32
	Color [4]uint8
	UV    [2]float32
}

// GeometryHandle identifies geometry compiled by CompileGeometry. The
// zero value is not a valid handle. Handles are generation-checked:
// using a handle after releasing it is detected and ignored.
type GeometryHandle struct {
	Index      uint32
	Generation uint32
}

func (h GeometryHandle) IsZero() bool {
	return h == GeometryHandle{}
}

// TextureHandle identifies a texture. Aside from the two sentinels,
// it wraps the texture and its sampleable view directly.
type TextureHandle struct {
	Texture  *wgpu.Texture
	View     *wgpu.TextureView
	sentinel uint8
}

const sentinelPostprocess = 1

// TexturePostprocess tells RenderGeometry to sample whatever texture
// is already bound, used when drawing full-screen passes over
// post-process buffers.
var TexturePostprocess = TextureHandle{sentinel: sentinelPostprocess}

// The zero TextureHandle means "no texture": geometry renders with
// vertex colors only.

func (h TextureHandle) IsZero() bool {
	return h == TextureHandle{}
}

// IsPostprocess reports whether h is the TexturePostprocess sentinel.
func (h TextureHandle) IsPostprocess() bool {
	return h.sentinel == sentinelPostprocess
}

// LayerHandle identifies a layer on the render layer stack. Layer 0 is
// the base layer that exists for the whole frame.
type LayerHandle int

// ClipMaskOperation selects how RenderToClipMask combines geometry
// with the active clip mask.
type ClipMaskOperation int

const (
	// ClipMaskSet clears the mask, then sets it to the rendered
	// geometry.
	ClipMaskSet ClipMaskOperation = iota
	// ClipMaskSetInverse clears the mask, then sets it to everything
	// except the rendered geometry.
	ClipMaskSetInverse
	// ClipMaskIntersect intersects the existing mask with the rendered
	// geometry.
	ClipMaskIntersect
)

// BlendMode controls how CompositeLayers writes the source layer onto
// the destination layer.
type BlendMode int

const (
	// BlendModeBlend alpha-blends the source over the destination.
	BlendModeBlend BlendMode = iota
	// BlendModeReplace overwrites the destination.
	BlendModeReplace
)

// TextureLoader decodes an image file into premultiplied RGBA pixels.
// Hosts can install one to supplement the built-in TGA decoder.
type TextureLoader func(name string) (pixels []byte, width, height uint32, err error)
