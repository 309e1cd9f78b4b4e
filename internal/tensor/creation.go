package tensor

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Zeros creates a zero-filled tensor.
//
// Example:
//
//	grad := tensor.Zeros(tensor.Shape{27 * 16, 32}, tensor.Float32, tensor.CPU)
func Zeros(shape Shape, dtype DataType, device Device) *RawTensor {
	raw, err := NewRaw(shape, dtype, device)
	if err != nil {
		panic(err) // Callers pass validated shapes
	}
	return raw
}

// ZerosLike creates a zero-filled tensor with the shape, dtype and device of t.
func ZerosLike(t *RawTensor) *RawTensor {
	return Zeros(t.Shape(), t.DType(), t.Device())
}

// FromFloat32 creates a float32 tensor from a Go slice.
// The slice is copied into the tensor's memory.
func FromFloat32(data []float32, shape Shape) (*RawTensor, error) {
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}
	raw, err := NewRaw(shape, Float32, CPU)
	if err != nil {
		return nil, err
	}
	copy(raw.AsFloat32(), data)
	return raw, nil
}

// FromInt64 creates an int64 tensor from a Go slice.
// The slice is copied into the tensor's memory.
func FromInt64(data []int64, shape Shape) (*RawTensor, error) {
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}
	raw, err := NewRaw(shape, Int64, CPU)
	if err != nil {
		return nil, err
	}
	copy(raw.AsInt64(), data)
	return raw, nil
}

// Normal creates a float32 tensor with values drawn from N(mean, std²).
//
// A nil src uses gonum's global source.
func Normal(shape Shape, mean, std float64, src rand.Source) *RawTensor {
	t := Zeros(shape, Float32, CPU)
	dist := distuv.Normal{Mu: mean, Sigma: std, Src: src}
	data := t.AsFloat32()
	for i := range data {
		data[i] = float32(dist.Rand())
	}
	return t
}
