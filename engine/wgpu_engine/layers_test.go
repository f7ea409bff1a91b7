package wgpu_engine

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"honnef.co/go/veneer"
)

// testLayerStack returns a stack whose targets carry no GPU
// resources, plus counters for created layers and scratch buffers.
func testLayerStack() (*layerStack, *int, *int) {
	layers := 0
	scratch := 0
	s := &layerStack{
		newLayer: func(width, height int, shared *wgpu.TextureView) (*renderTarget, error) {
			layers++
			return &renderTarget{
				width:            uint32(width),
				height:           uint32(height),
				sampleCount:      msaaSampleCount,
				ownsDepthStencil: shared == nil,
			}, nil
		},
		newPostprocess: func(width, height int) (*renderTarget, error) {
			scratch++
			return &renderTarget{
				width:       uint32(width),
				height:      uint32(height),
				sampleCount: 1,
			}, nil
		},
	}
	return s, &layers, &scratch
}

func TestLayerStackFrameBracket(t *testing.T) {
	s, created, _ := testLayerStack()
	require.NoError(t, s.beginFrame(800, 600))
	assert.Equal(t, 1, s.depth)
	assert.Equal(t, veneer.LayerHandle(0), s.topHandle())
	assert.Equal(t, 1, *created)

	s.endFrame()
	assert.Equal(t, 0, s.depth)
}

func TestLayerStackPoolReuse(t *testing.T) {
	s, created, _ := testLayerStack()
	require.NoError(t, s.beginFrame(800, 600))

	h, err := s.push()
	require.NoError(t, err)
	assert.Equal(t, veneer.LayerHandle(1), h)
	s.pop()

	// Pushing again at the same depth reuses the pooled target.
	h, err = s.push()
	require.NoError(t, err)
	assert.Equal(t, veneer.LayerHandle(1), h)
	assert.Equal(t, 2, *created)
	s.pop()

	s.endFrame()

	// The next frame at the same size reuses the pool too.
	require.NoError(t, s.beginFrame(800, 600))
	assert.Equal(t, 2, *created)
	s.endFrame()
}

func TestLayerStackSharedDepthStencil(t *testing.T) {
	var sharedSeen []*wgpu.TextureView
	s := &layerStack{
		newLayer: func(width, height int, shared *wgpu.TextureView) (*renderTarget, error) {
			sharedSeen = append(sharedSeen, shared)
			return &renderTarget{ownsDepthStencil: shared == nil}, nil
		},
		newPostprocess: func(width, height int) (*renderTarget, error) {
			return &renderTarget{}, nil
		},
	}
	require.NoError(t, s.beginFrame(100, 100))
	_, err := s.push()
	require.NoError(t, err)

	// The first layer creates the depth/stencil buffer, later layers
	// receive the first layer's.
	require.Len(t, sharedSeen, 2)
	assert.Nil(t, sharedSeen[0])
	assert.True(t, s.targets[0].ownsDepthStencil)
	assert.False(t, s.targets[1].ownsDepthStencil)

	s.pop()
	s.endFrame()
}

func TestLayerStackResizeInvalidates(t *testing.T) {
	s, created, scratch := testLayerStack()
	require.NoError(t, s.beginFrame(800, 600))
	_, err := s.ensurePostprocess(postprocessPrimary)
	require.NoError(t, err)
	assert.Equal(t, 1, *scratch)
	s.endFrame()

	// A resize throws away pooled layers and scratch buffers.
	require.NoError(t, s.beginFrame(1024, 768))
	assert.Equal(t, 2, *created)
	assert.Equal(t, uint32(1024), s.top().width)

	_, err = s.ensurePostprocess(postprocessPrimary)
	require.NoError(t, err)
	assert.Equal(t, 2, *scratch)
	s.endFrame()
}

func TestLayerStackPostprocessSwap(t *testing.T) {
	s, _, _ := testLayerStack()
	require.NoError(t, s.beginFrame(64, 64))

	p, err := s.ensurePostprocess(postprocessPrimary)
	require.NoError(t, err)
	q, err := s.ensurePostprocess(postprocessSecondary)
	require.NoError(t, err)

	s.swapPostprocess()
	assert.Same(t, p, s.postprocess[postprocessSecondary])
	assert.Same(t, q, s.postprocess[postprocessPrimary])

	s.endFrame()
}

func TestLayerStackMisuse(t *testing.T) {
	s, _, _ := testLayerStack()
	require.NoError(t, s.beginFrame(10, 10))

	assert.Panics(t, func() { s.beginFrame(10, 10) }, "nested frame brackets")
	assert.Panics(t, func() { s.layer(veneer.LayerHandle(5)) }, "out-of-range layer handle")

	s.endFrame()
	assert.Panics(t, func() { s.pop() }, "pop on empty stack")
	assert.Panics(t, func() { s.endFrame() }, "double end")
}

// testRenderer returns a Renderer whose layer stack allocates no GPU
// resources. Operations that record passes still need a device; tests
// using this stay on the CPU side.
func testRenderer(t *testing.T) *Renderer {
	t.Helper()
	s, _, _ := testLayerStack()
	r := &Renderer{viewportWidth: 800, viewportHeight: 600}
	r.layers.newLayer = s.newLayer
	r.layers.newPostprocess = s.newPostprocess
	return r
}

func TestLayerRetargeting(t *testing.T) {
	r := testRenderer(t)
	require.NoError(t, r.layers.beginFrame(800, 600))
	r.frame = &frameState{}
	r.retargetTopLayer()

	base := r.drawTarget
	require.Same(t, r.layers.top(), base)
	assert.Equal(t, targetLayer, r.drawKind)

	// Pushing a layer points subsequent draws at the new top, not at
	// the layer below.
	_, err := r.layers.push()
	require.NoError(t, err)
	r.retargetTopLayer()
	assert.NotSame(t, base, r.drawTarget)
	assert.Same(t, r.layers.top(), r.drawTarget)

	// Popping routes drawing back to the layer below, not at the
	// pooled target that was just popped.
	r.drawKind = targetScratch
	r.PopLayer()
	assert.Same(t, base, r.drawTarget)
	assert.Equal(t, targetLayer, r.drawKind)

	r.frame = nil
	r.layers.endFrame()
}

func TestLayerOpsOutsideFrame(t *testing.T) {
	r := testRenderer(t)
	assert.Panics(t, func() { r.PushLayer() })
	assert.Panics(t, func() { r.PopLayer() })
}
