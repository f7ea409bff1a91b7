// Package tga decodes uncompressed true-color TGA images into
// premultiplied RGBA pixels, the built-in fallback for texture
// loading.
package tga

import (
	"encoding/binary"
	"fmt"
)

const headerSize = 18

type header struct {
	idLength       uint8
	colorMapType   uint8
	dataType       uint8
	colorMapOrigin uint16
	colorMapLength uint16
	colorMapDepth  uint8
	xOrigin        uint16
	yOrigin        uint16
	width          uint16
	height         uint16
	bitsPerPixel   uint8
	descriptor     uint8
}

func parseHeader(data []byte) header {
	return header{
		idLength:       data[0],
		colorMapType:   data[1],
		dataType:       data[2],
		colorMapOrigin: binary.LittleEndian.Uint16(data[3:]),
		colorMapLength: binary.LittleEndian.Uint16(data[5:]),
		colorMapDepth:  data[7],
		xOrigin:        binary.LittleEndian.Uint16(data[8:]),
		yOrigin:        binary.LittleEndian.Uint16(data[10:]),
		width:          binary.LittleEndian.Uint16(data[12:]),
		height:         binary.LittleEndian.Uint16(data[14:]),
		bitsPerPixel:   data[16],
		descriptor:     data[17],
	}
}

// Decode converts TGA file contents to premultiplied RGBA, row order
// top to bottom. Only uncompressed true-color images with 24 or 32
// bits per pixel are supported.
func Decode(data []byte) (pixels []byte, width, height uint32, err error) {
	if len(data) < headerSize {
		return nil, 0, 0, fmt.Errorf("tga: file shorter than header (%d bytes)", len(data))
	}
	hdr := parseHeader(data)

	if hdr.dataType != 2 {
		return nil, 0, 0, fmt.Errorf("tga: unsupported data type %d, only 24/32-bit uncompressed RGB is supported", hdr.dataType)
	}
	if hdr.bitsPerPixel != 24 && hdr.bitsPerPixel != 32 {
		return nil, 0, 0, fmt.Errorf("tga: unsupported color depth %d, only 24 and 32 bits per pixel are supported", hdr.bitsPerPixel)
	}

	w := int(hdr.width)
	h := int(hdr.height)
	bytesPerPixel := int(hdr.bitsPerPixel) / 8
	offset := headerSize + int(hdr.idLength)
	if len(data) < offset+w*h*bytesPerPixel {
		return nil, 0, 0, fmt.Errorf("tga: truncated image data")
	}
	src := data[offset:]

	out := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		// Bit 5 of the descriptor marks a top-to-bottom row order;
		// otherwise rows are stored bottom-up and need flipping.
		srcY := h - y - 1
		if hdr.descriptor&(1<<5) != 0 {
			srcY = y
		}
		for x := 0; x < w; x++ {
			read := (srcY*w + x) * bytesPerPixel
			write := (y*w + x) * 4

			b := src[read+0]
			g := src[read+1]
			r := src[read+2]
			a := byte(255)
			if bytesPerPixel == 4 {
				a = src[read+3]
			}
			out[write+0] = byte(int(r) * int(a) / 255)
			out[write+1] = byte(int(g) * int(a) / 255)
			out[write+2] = byte(int(b) * int(a) / 255)
			out[write+3] = a
		}
	}
	return out, uint32(w), uint32(h), nil
}
