package tga

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTGA(w, h int, bpp int, descriptor byte, pixels []byte) []byte {
	hdr := make([]byte, 18)
	hdr[2] = 2 // uncompressed true-color
	hdr[12] = byte(w)
	hdr[13] = byte(w >> 8)
	hdr[14] = byte(h)
	hdr[15] = byte(h >> 8)
	hdr[16] = byte(bpp)
	hdr[17] = descriptor
	return append(hdr, pixels...)
}

func TestDecodeBGRAToRGBA(t *testing.T) {
	// One pixel, stored BGRA: blue=10, green=20, red=30, alpha=255.
	data := makeTGA(1, 1, 32, 1<<5, []byte{10, 20, 30, 255})
	pixels, w, h, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), w)
	assert.Equal(t, uint32(1), h)
	assert.Equal(t, []byte{30, 20, 10, 255}, pixels)
}

func TestDecodePremultipliesAlpha(t *testing.T) {
	data := makeTGA(1, 1, 32, 1<<5, []byte{255, 255, 255, 128})
	pixels, _, _, err := Decode(data)
	require.NoError(t, err)
	// 255 * 128 / 255 = 128.
	assert.Equal(t, []byte{128, 128, 128, 128}, pixels)
}

func TestDecode24BitOpaque(t *testing.T) {
	data := makeTGA(2, 1, 24, 1<<5, []byte{
		10, 20, 30,
		40, 50, 60,
	})
	pixels, w, h, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), w)
	assert.Equal(t, uint32(1), h)
	assert.Equal(t, []byte{
		30, 20, 10, 255,
		60, 50, 40, 255,
	}, pixels)
}

func TestDecodeFlipsBottomUpRows(t *testing.T) {
	// Descriptor bit 5 unset: rows are stored bottom-up. The first
	// stored row is the bottom of the image.
	data := makeTGA(1, 2, 24, 0, []byte{
		0, 0, 1, // bottom row, red=1
		0, 0, 2, // top row, red=2
	})
	pixels, _, _, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, byte(2), pixels[0], "top output row should be the last stored row")
	assert.Equal(t, byte(1), pixels[4])

	// With bit 5 set the stored order is already top-down.
	data = makeTGA(1, 2, 24, 1<<5, []byte{
		0, 0, 1,
		0, 0, 2,
	})
	pixels, _, _, err = Decode(data)
	require.NoError(t, err)
	assert.Equal(t, byte(1), pixels[0])
	assert.Equal(t, byte(2), pixels[4])
}

func TestDecodeRejections(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"short header", make([]byte, 10)},
		{"color-mapped data type", func() []byte {
			d := makeTGA(1, 1, 32, 0, []byte{0, 0, 0, 0})
			d[2] = 1
			return d
		}()},
		{"run-length encoded", func() []byte {
			d := makeTGA(1, 1, 32, 0, []byte{0, 0, 0, 0})
			d[2] = 10
			return d
		}()},
		{"16-bit depth", makeTGA(1, 1, 16, 0, []byte{0, 0})},
		{"truncated pixel data", makeTGA(4, 4, 32, 0, []byte{1, 2, 3})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := Decode(tt.data)
			assert.Error(t, err)
		})
	}
}
