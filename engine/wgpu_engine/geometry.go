package wgpu_engine

import (
	"github.com/cogentcore/webgpu/wgpu"
	"honnef.co/go/veneer"
)

type geometryRecord struct {
	vertexBuf  *wgpu.Buffer
	indexBuf   *wgpu.Buffer
	indexCount uint32
	generation uint32
	live       bool
}

// geometryArena stores compiled geometry in a slot arena. Handles
// carry the slot's generation so that stale handles, including ones
// whose slot has been reused, are recognized instead of resolving to
// unrelated geometry.
type geometryArena struct {
	records []geometryRecord
	free    []uint32
}

func (a *geometryArena) alloc() (uint32, *geometryRecord) {
	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		return idx, &a.records[idx]
	}
	a.records = append(a.records, geometryRecord{})
	return uint32(len(a.records) - 1), &a.records[len(a.records)-1]
}

func (a *geometryArena) insert(vertexBuf, indexBuf *wgpu.Buffer, indexCount uint32) veneer.GeometryHandle {
	idx, rec := a.alloc()
	rec.vertexBuf = vertexBuf
	rec.indexBuf = indexBuf
	rec.indexCount = indexCount
	rec.live = true
	return veneer.GeometryHandle{
		// Index is offset by one so the zero handle stays invalid.
		Index:      idx + 1,
		Generation: rec.generation,
	}
}

func (a *geometryArena) get(h veneer.GeometryHandle) (*geometryRecord, bool) {
	if h.IsZero() || h.Index > uint32(len(a.records)) {
		return nil, false
	}
	rec := &a.records[h.Index-1]
	if !rec.live || rec.generation != h.Generation {
		return nil, false
	}
	return rec, true
}

func (a *geometryArena) release(h veneer.GeometryHandle) bool {
	rec, ok := a.get(h)
	if !ok {
		return false
	}
	if rec.vertexBuf != nil {
		rec.vertexBuf.Release()
	}
	if rec.indexBuf != nil {
		rec.indexBuf.Release()
	}
	*rec = geometryRecord{generation: rec.generation + 1}
	a.free = append(a.free, h.Index-1)
	return true
}

// releaseAll frees every live record. Used during renderer teardown.
func (a *geometryArena) releaseAll() {
	for i := range a.records {
		rec := &a.records[i]
		if !rec.live {
			continue
		}
		if rec.vertexBuf != nil {
			rec.vertexBuf.Release()
		}
		if rec.indexBuf != nil {
			rec.indexBuf.Release()
		}
		*rec = geometryRecord{generation: rec.generation + 1}
	}
	a.records = nil
	a.free = nil
}

// CompileGeometry uploads a triangle mesh and returns a handle for
// rendering it. The zero handle is returned when buffer creation
// fails.
func (r *Renderer) CompileGeometry(vertices []veneer.Vertex, indices []uint32) veneer.GeometryHandle {
	vbuf, err := r.dev.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "geometry vertices",
		Size:  uint64(len(vertices)) * uint64(vertexStride),
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		logger().Error("creating vertex buffer", "error", err)
		return veneer.GeometryHandle{}
	}
	ibuf, err := r.dev.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "geometry indices",
		Size:  uint64(len(indices)) * 4,
		Usage: wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		// Don't leak the vertex buffer on partial failure.
		vbuf.Release()
		logger().Error("creating index buffer", "error", err)
		return veneer.GeometryHandle{}
	}
	if err := r.queue.WriteBuffer(vbuf, 0, castBytes(vertices)); err != nil {
		logger().Error("uploading vertices", "error", err)
	}
	if err := r.queue.WriteBuffer(ibuf, 0, castBytes(indices)); err != nil {
		logger().Error("uploading indices", "error", err)
	}
	return r.geometry.insert(vbuf, ibuf, uint32(len(indices)))
}

// ReleaseGeometry frees the buffers behind handle. Unknown or stale
// handles are logged and ignored.
func (r *Renderer) ReleaseGeometry(handle veneer.GeometryHandle) {
	if !r.geometry.release(handle) {
		logger().Warn("releasing unknown geometry", "index", handle.Index, "generation", handle.Generation)
	}
}
