// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the dense tensors that carry sparse features,
// convolution weights, and gradients.
//
// Tensors are untyped buffers with a shape, a data type, and a device tag.
// Views created by Reshape share storage with their source.
//
//	features, err := tensor.FromFloat32(values, tensor.Shape{nActive, 16})
package tensor

import (
	"golang.org/x/exp/rand"

	"github.com/born-ml/sparseconv/internal/tensor"
)

// RawTensor is a shaped, typed buffer.
type RawTensor = tensor.RawTensor

// Shape is a tensor's dimensions.
type Shape = tensor.Shape

// DataType identifies the element type.
type DataType = tensor.DataType

// Device identifies where a tensor's storage lives.
type Device = tensor.Device

// Supported data types.
const (
	Float32 = tensor.Float32
	Float64 = tensor.Float64
	Int64   = tensor.Int64
)

// Supported devices.
const (
	CPU  = tensor.CPU
	CUDA = tensor.CUDA
)

// NewRaw allocates a zeroed tensor.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype, device)
}

// Zeros allocates a zeroed tensor and panics on an invalid shape.
func Zeros(shape Shape, dtype DataType, device Device) *RawTensor {
	return tensor.Zeros(shape, dtype, device)
}

// ZerosLike allocates a zeroed tensor with t's layout.
func ZerosLike(t *RawTensor) *RawTensor {
	return tensor.ZerosLike(t)
}

// FromFloat32 copies data into a new float32 tensor.
func FromFloat32(data []float32, shape Shape) (*RawTensor, error) {
	return tensor.FromFloat32(data, shape)
}

// FromInt64 copies data into a new int64 tensor.
func FromInt64(data []int64, shape Shape) (*RawTensor, error) {
	return tensor.FromInt64(data, shape)
}

// Normal draws a float32 tensor from N(mean, std²).
func Normal(shape Shape, mean, std float64, src rand.Source) *RawTensor {
	return tensor.Normal(shape, mean, std, src)
}
