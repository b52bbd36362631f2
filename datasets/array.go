package datasets

import (
	"fmt"

	"github.com/gomlx/gomlx/pkg/core/tensors"
)

// Array stores a dense tensor in a flat contiguous buffer, row-major, with
// the first dimension indexing samples.
type Array struct {
	Data  []float32
	Shape []int
}

// NewArray allocates a zeroed array with the given shape.
func NewArray(shape ...int) *Array {
	size := 1
	for _, d := range shape {
		size *= d
	}
	return &Array{
		Data:  make([]float32, size),
		Shape: append([]int(nil), shape...),
	}
}

// FromBytes builds an array from raw 8-bit values, converting each byte to
// float32 without scaling.
func FromBytes(raw []byte, shape ...int) (*Array, error) {
	a := NewArray(shape...)
	if len(a.Data) != len(raw) {
		return nil, fmt.Errorf("cannot reshape %d values into %v", len(raw), shape)
	}
	for i, v := range raw {
		a.Data[i] = float32(v)
	}
	return a, nil
}

// Len returns the number of samples (the first dimension).
func (a *Array) Len() int {
	if len(a.Shape) == 0 {
		return 0
	}
	return a.Shape[0]
}

// SampleSize returns the number of values per sample.
func (a *Array) SampleSize() int {
	size := 1
	for _, d := range a.Shape[1:] {
		size *= d
	}
	return size
}

// Sample returns the values of sample i. The returned slice aliases the array.
func (a *Array) Sample(i int) []float32 {
	n := a.SampleSize()
	return a.Data[i*n : (i+1)*n]
}

// SetSample copies values into sample i.
func (a *Array) SetSample(i int, values []float32) error {
	if i < 0 || i >= a.Len() {
		return fmt.Errorf("sample index %d out of range [0, %d): %w", i, a.Len(), ErrCapacityExceeded)
	}
	n := a.SampleSize()
	if len(values) != n {
		return fmt.Errorf("sample has %d values, expected %d", len(values), n)
	}
	copy(a.Data[i*n:], values)
	return nil
}

// Concat stacks arrays along the sample dimension. All arrays must share the
// per-sample shape; sampleShape is used when parts is empty.
func Concat(sampleShape []int, parts ...*Array) (*Array, error) {
	total := 0
	for i, p := range parts {
		if !equalShape(p.Shape[1:], sampleShape) {
			return nil, fmt.Errorf("inconsistent sample shape at part %d: expected %v, got %v", i, sampleShape, p.Shape[1:])
		}
		total += p.Len()
	}
	out := NewArray(append([]int{total}, sampleShape...)...)
	pos := 0
	for _, p := range parts {
		pos += copy(out.Data[pos:], p.Data)
	}
	return out, nil
}

// Tensor converts the array to a gomlx tensor with the same shape.
func (a *Array) Tensor() *tensors.Tensor {
	return tensors.FromFlatDataAndDimensions(a.Data, a.Shape...)
}

func equalShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
