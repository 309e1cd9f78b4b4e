// Package ops defines the differentiable operations recorded on a gradient tape.
//
// Each operation keeps what its backward pass needs from the forward pass:
//   - ReshapeOp: the original shape of a viewed tensor
//   - SubmanifoldConvolutionOp: input features, spatial size, weight, bias,
//     filter size and metadata, released once its backward pass has run
package ops

import (
	"errors"

	"github.com/born-ml/sparseconv/internal/tensor"
)

// ErrReleased is returned when Backward runs on an operation whose saved
// forward state has already been released.
var ErrReleased = errors.New("operation state already released")

// ErrModified is returned when a tensor saved for backward was written in
// place between the forward pass and Backward.
var ErrModified = errors.New("tensor saved for backward was modified in place")

// Operation represents a differentiable operation in the computation graph.
// Each operation records its inputs and output during the forward pass,
// and computes input gradients during the backward pass.
type Operation interface {
	// Backward computes gradients for inputs given the output gradient.
	// Returns one gradient per entry of Inputs(); entries may be nil when
	// no gradient flows to that input.
	Backward(outputGrad *tensor.RawTensor) ([]*tensor.RawTensor, error)

	// Inputs returns the input tensors for this operation.
	Inputs() []*tensor.RawTensor

	// Output returns the output tensor produced by this operation.
	Output() *tensor.RawTensor
}

// Releaser is implemented by operations that hold saved forward state.
type Releaser interface {
	// Release drops the saved forward state.
	Release()
}
