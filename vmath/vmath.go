// Package vmath provides the small amount of linear algebra the
// renderer needs: 4x4 matrices in the memory layout the GPU expects,
// and a handful of scalar helpers.
package vmath

import (
	"math"
	"math/bits"
	"structs"

	"golang.org/x/exp/constraints"
)

// Mat4 is a 4x4 float32 matrix in column-major order, matching the
// layout of a WGSL mat4x4<f32>.
type Mat4 struct {
	_ structs.HostLayout

	Cols [16]float32
}

// Identity returns the identity matrix.
func Identity() Mat4 {
	return Diag(1, 1, 1, 1)
}

// Diag returns a diagonal matrix.
func Diag(x, y, z, w float32) Mat4 {
	var m Mat4
	m.Cols[0] = x
	m.Cols[5] = y
	m.Cols[10] = z
	m.Cols[15] = w
	return m
}

// FromRows builds a matrix from four rows.
func FromRows(r0, r1, r2, r3 [4]float32) Mat4 {
	var m Mat4
	rows := [4][4]float32{r0, r1, r2, r3}
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			m.Cols[c*4+r] = rows[r][c]
		}
	}
	return m
}

// At returns the element at row r, column c.
func (m Mat4) At(r, c int) float32 {
	return m.Cols[c*4+r]
}

// SetCol replaces column c.
func (m *Mat4) SetCol(c int, v [4]float32) {
	copy(m.Cols[c*4:c*4+4], v[:])
}

// Mul returns m * other.
func (m Mat4) Mul(other Mat4) Mat4 {
	var out Mat4
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += m.At(r, k) * other.At(k, c)
			}
			out.Cols[c*4+r] = sum
		}
	}
	return out
}

// MulVec4 returns m * v.
func (m Mat4) MulVec4(v [4]float32) [4]float32 {
	var out [4]float32
	for r := 0; r < 4; r++ {
		out[r] = m.At(r, 0)*v[0] + m.At(r, 1)*v[1] + m.At(r, 2)*v[2] + m.At(r, 3)*v[3]
	}
	return out
}

// Ortho returns an orthographic projection mapping x from [left,
// right] and y from [bottom, top] to normalized device coordinates,
// with depth mapped to WebGPU's [0, 1] range.
func Ortho(left, right, bottom, top, near, far float32) Mat4 {
	m := Identity()
	m.Cols[0] = 2 / (right - left)
	m.Cols[5] = 2 / (top - bottom)
	m.Cols[10] = 1 / (far - near)
	m.Cols[12] = -(right + left) / (right - left)
	m.Cols[13] = -(top + bottom) / (top - bottom)
	m.Cols[14] = -near / (far - near)
	return m
}

// Clamp limits v to the range [lo, hi].
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func Abs32(f float32) float32 {
	return float32(math.Abs(float64(f)))
}

func Exp32(f float32) float32 {
	return float32(math.Exp(float64(f)))
}

// Log2Int returns the floor of the base-2 logarithm of v, or 0 for
// v < 1.
func Log2Int(v int) int {
	if v < 1 {
		return 0
	}
	return bits.Len(uint(v)) - 1
}

// AlignUp rounds len up to the next multiple of alignment, which must
// be a power of two.
func AlignUp(len int, alignment int) int {
	return (len + alignment - 1) & -alignment
}
