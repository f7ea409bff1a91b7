package wgpu_engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"honnef.co/go/veneer"
)

func TestGeometryArenaInsertGet(t *testing.T) {
	var a geometryArena
	h := a.insert(nil, nil, 6)
	assert.False(t, h.IsZero())

	rec, ok := a.get(h)
	assert.True(t, ok)
	assert.Equal(t, uint32(6), rec.indexCount)
}

func TestGeometryArenaZeroHandle(t *testing.T) {
	var a geometryArena
	a.insert(nil, nil, 3)
	_, ok := a.get(veneer.GeometryHandle{})
	assert.False(t, ok)
}

func TestGeometryArenaStaleHandle(t *testing.T) {
	var a geometryArena
	h := a.insert(nil, nil, 3)
	assert.True(t, a.release(h))

	_, ok := a.get(h)
	assert.False(t, ok, "released handle must not resolve")
	assert.False(t, a.release(h), "double release must be rejected")
}

func TestGeometryArenaSlotReuse(t *testing.T) {
	var a geometryArena
	h1 := a.insert(nil, nil, 3)
	a.release(h1)

	h2 := a.insert(nil, nil, 9)
	// The slot is reused, but the generation moved on.
	assert.Equal(t, h1.Index, h2.Index)
	assert.NotEqual(t, h1.Generation, h2.Generation)

	_, ok := a.get(h1)
	assert.False(t, ok, "stale handle must not resolve to the reused slot")
	rec, ok := a.get(h2)
	assert.True(t, ok)
	assert.Equal(t, uint32(9), rec.indexCount)
}

func TestGeometryArenaOutOfRange(t *testing.T) {
	var a geometryArena
	_, ok := a.get(veneer.GeometryHandle{Index: 42, Generation: 0})
	assert.False(t, ok)
}

func TestGeometryArenaReleaseAll(t *testing.T) {
	var a geometryArena
	h1 := a.insert(nil, nil, 3)
	h2 := a.insert(nil, nil, 6)
	a.releaseAll()

	_, ok := a.get(h1)
	assert.False(t, ok)
	_, ok = a.get(h2)
	assert.False(t, ok)
}
