// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the submanifold sparse convolution layers and the
// containers used to stack and checkpoint them.
package nn

import (
	"golang.org/x/exp/rand"

	"github.com/born-ml/sparseconv/internal/nn"
	"github.com/born-ml/sparseconv/internal/sparse"
	"github.com/born-ml/sparseconv/internal/tensor"
)

// Module interface defines the common interface for all sparse layers.
type Module = nn.Module

// Parameter represents a trainable parameter.
type Parameter = nn.Parameter

// NewParameter creates a new parameter with the given name and tensor.
func NewParameter(name string, t *tensor.RawTensor) *Parameter {
	return nn.NewParameter(name, t)
}

// CollectGrads stores the gradients computed by autodiff.Backward on the
// matching parameters.
func CollectGrads(params []*Parameter, grads map[*tensor.RawTensor]*tensor.RawTensor) error {
	return nn.CollectGrads(params, grads)
}

// Layers

// SubmanifoldConvolution is a sparse convolution that keeps the active sites.
type SubmanifoldConvolution[E sparse.Engine] = nn.SubmanifoldConvolution[E]

// ValidConvolution is SubmanifoldConvolution under its historical name.
type ValidConvolution[E sparse.Engine] = nn.ValidConvolution[E]

// Option configures a convolution layer.
type Option = nn.Option

// WithStats routes profiling counts to stats.
func WithStats(stats sparse.Stats) Option {
	return nn.WithStats(stats)
}

// WithSource sets the random source for weight initialization.
func WithSource(src rand.Source) Option {
	return nn.WithSource(src)
}

// WithName sets the parameter name prefix.
func WithName(name string) Option {
	return nn.WithName(name)
}

// NewSubmanifoldConvolution creates a submanifold convolution layer.
//
// filterSize is an int (same extent along every dimension), a []int, a
// sparse.Size, or an int64 tensor with one entry per dimension.
//
// Example:
//
//	engine := autodiff.New(sparse.NewMockEngine())
//	conv := nn.NewSubmanifoldConvolution(3, 16, 32, 3, true, engine)  // 3D, 16->32 channels, 3x3x3 filter, bias
func NewSubmanifoldConvolution[E sparse.Engine](
	dimension, inChannels, outChannels int,
	filterSize any,
	useBias bool,
	engine E,
	opts ...Option,
) *SubmanifoldConvolution[E] {
	return nn.NewSubmanifoldConvolution(dimension, inChannels, outChannels, filterSize, useBias, engine, opts...)
}

// NewValidConvolution creates a ValidConvolution layer.
func NewValidConvolution[E sparse.Engine](
	dimension, inChannels, outChannels int,
	filterSize any,
	useBias bool,
	engine E,
	opts ...Option,
) *ValidConvolution[E] {
	return nn.NewValidConvolution(dimension, inChannels, outChannels, filterSize, useBias, engine, opts...)
}

// Containers

// Sequential chains modules.
type Sequential = nn.Sequential

// NewSequential creates a Sequential container.
func NewSequential(modules ...Module) *Sequential {
	return nn.NewSequential(modules...)
}

// Checkpoints

// SaveModule writes a module's parameters to a SafeTensors file.
func SaveModule(path string, module Module) error {
	return nn.SaveModule(path, module)
}

// LoadModule loads parameters from a SafeTensors file and returns the stored
// module description.
func LoadModule(path string, module Module) (string, error) {
	return nn.LoadModule(path, module)
}
