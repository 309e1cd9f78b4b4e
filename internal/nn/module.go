// Package nn implements sparse neural network modules.
//
// This package provides:
//   - Module interface: Base interface for sparse layers
//   - Parameter: Trainable parameters with gradient collection
//   - SubmanifoldConvolution / ValidConvolution: Sparse convolution that keeps
//     the active-site set, delegating all numeric work to a sparse.Engine
//   - Sequential: Container for stacking layers
//   - Initialization: HeNormal, Zeros
package nn

import (
	"github.com/born-ml/sparseconv/internal/sparse"
	"github.com/born-ml/sparseconv/internal/tensor"
)

// Module is the base interface for sparse neural network components.
//
// Modules can be composed to build complex architectures:
//
//	model := nn.NewSequential(
//	    nn.NewSubmanifoldConvolution(3, 1, 16, 3, false, engine),
//	    nn.NewSubmanifoldConvolution(3, 16, 32, 3, true, engine),
//	)
type Module interface {
	// Forward computes the output of the module for a sparse input.
	Forward(input *sparse.Tensor) (*sparse.Tensor, error)

	// Parameters returns all trainable parameters of this module.
	Parameters() []*Parameter

	// InputSpatialSize returns the input spatial size needed to produce
	// an output of the given spatial size.
	InputSpatialSize(outputSize sparse.Size) sparse.Size

	// StateDict returns a map of parameter names to raw tensors.
	StateDict() map[string]*tensor.RawTensor

	// LoadStateDict copies parameters from a state dictionary.
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error

	// String returns a one-line description of the module.
	String() string
}
