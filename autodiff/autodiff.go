// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides reverse-mode differentiation for sparse
// convolution stacks.
//
// Engine wraps any sparse.Engine and records reshape and convolution calls on
// a gradient tape while recording is enabled.
//
// Example:
//
//	engine := autodiff.New(sparse.NewMockEngine())
//	conv := nn.NewSubmanifoldConvolution(3, 16, 32, 3, true, engine)
//
//	engine.Tape().StartRecording()
//	out, err := conv.Forward(input)
//	grads, err := autodiff.Backward(engine, out.Features, gradOutput)
package autodiff

import (
	"github.com/born-ml/sparseconv/internal/autodiff"
	"github.com/born-ml/sparseconv/internal/autodiff/ops"
	"github.com/born-ml/sparseconv/internal/sparse"
	"github.com/born-ml/sparseconv/internal/tensor"
)

// Engine is the autodiff-enabled engine.
type Engine[E sparse.Engine] = autodiff.Engine[E]

// GradientTape records operations for backward computation.
type GradientTape = autodiff.GradientTape

// BackwardCapable is implemented by engines that own a gradient tape.
type BackwardCapable = autodiff.BackwardCapable

// ErrNotRecorded is returned when backward starts from a tensor no recorded
// operation produced.
var ErrNotRecorded = autodiff.ErrNotRecorded

// ErrModified is returned by Backward when a tensor saved during the forward
// pass was written in place before the backward pass ran.
var ErrModified = ops.ErrModified

// New creates an autodiff engine wrapping the given engine.
func New[E sparse.Engine](engine E) *Engine[E] {
	return autodiff.New(engine)
}

// Backward computes gradients of output with respect to every recorded input.
// A nil outputGrad seeds the pass with ones.
func Backward(engine BackwardCapable, output, outputGrad *tensor.RawTensor) (map[*tensor.RawTensor]*tensor.RawTensor, error) {
	return autodiff.Backward(engine, output, outputGrad)
}
