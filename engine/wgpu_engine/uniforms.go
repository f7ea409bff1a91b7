package wgpu_engine

import (
	"structs"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	"honnef.co/go/safeish"
	"honnef.co/go/veneer/vmath"
)

// shaderUniforms is the single uniform block shared by every
// pipeline, bound at group 0, binding 0. All programs read the
// leading transform and translation; the remaining fields are only
// meaningful for the program that wrote them. The layout mirrors the
// WGSL Uniforms struct; uniforms_test.go verifies the offsets.
type shaderUniforms struct {
	_ structs.HostLayout

	Transform   vmath.Mat4
	Translate   [2]float32
	Func        int32
	NumStops    int32
	P           [2]float32
	V           [2]float32
	Dimensions  [2]float32
	Value       float32
	_           float32
	TexelOffset [2]float32
	TexCoordMin [2]float32
	TexCoordMax [2]float32
	_           [2]float32
	Color       [4]float32
	Weights     [4]float32
	ColorMatrix vmath.Mat4
	// Stop colors and positions are packed into vec4s to satisfy
	// uniform array stride rules; position i lives at [i/4][i%4].
	StopColors    [maxGradientStopVecs * 4][4]float32
	StopPositions [maxGradientStopVecs][4]float32
}

const maxGradientStopVecs = 4

const uniformsSize = unsafe.Sizeof(shaderUniforms{})

// Dynamic offsets into a uniform buffer must be aligned to 256 bytes.
const uniformStride = (uniformsSize + 255) &^ 255

const uniformBufferSlots = 512

// uniformAllocator bump-allocates per-draw uniform slots out of one
// buffer. Slots are written with Queue.WriteBuffer and bound with a
// dynamic offset, so a single render pass can carry many draws with
// distinct uniform values.
type uniformAllocator struct {
	queue *wgpu.Queue
	buf   *wgpu.Buffer
	next  uint32
}

func newUniformAllocator(dev *wgpu.Device, queue *wgpu.Queue) (*uniformAllocator, error) {
	buf, err := dev.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "uniform arena",
		Size:  uint64(uniformStride) * uniformBufferSlots,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	return &uniformAllocator{
		queue: queue,
		buf:   buf,
	}, nil
}

// write uploads u into the next free slot and returns its dynamic
// offset. ok is false when the buffer is exhausted; the caller must
// submit outstanding work, reset, and retry.
func (a *uniformAllocator) write(u *shaderUniforms) (offset uint32, ok bool) {
	if a.next >= uniformBufferSlots {
		return 0, false
	}
	offset = a.next * uint32(uniformStride)
	a.next++
	data := safeish.SliceCast[[]byte](unsafe.Slice(u, 1))
	if err := a.queue.WriteBuffer(a.buf, uint64(offset), data); err != nil {
		logger().Error("uniform upload failed", "error", err)
	}
	return offset, true
}

// reset recycles all slots. Only valid once previously written slots
// are no longer referenced by unsubmitted work.
func (a *uniformAllocator) reset() {
	a.next = 0
}

func (a *uniformAllocator) release() {
	a.buf.Release()
	a.buf = nil
}

func castBytes[T any](vs []T) []byte {
	return safeish.SliceCast[[]byte](vs)
}
