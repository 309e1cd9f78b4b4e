package sparse

import (
	"github.com/born-ml/sparseconv/internal/tensor"
)

// Engine is the external sparse convolution capability.
//
// Implementations own the rule-book construction and the gather/scatter
// products; layers treat them as a black box. Both convolution calls must be
// deterministic for identical metadata.
//
// Implementations:
//   - MockEngine: naive centre-tap reference used by tests and the CLI demo
//   - autodiff.Engine: decorator that records operations on a gradient tape
type Engine interface {
	// Name returns the engine name.
	Name() string

	// Reshape returns a view of t with the given shape.
	// Layers use it to present the 2-D weight parameter as
	// [filterVolume, nIn, nOut] without copying.
	Reshape(t *tensor.RawTensor, shape tensor.Shape) (*tensor.RawTensor, error)

	// SubmanifoldConvolutionForward computes output features for the active
	// sites described by m.
	//
	//   input:  [nActive, nIn]
	//   weight: [filterVolume, nIn, nOut]
	//   bias:   [nOut] or nil
	//   output: [nActive, nOut]
	//
	// The second return value is the number of multiply-add operations performed.
	SubmanifoldConvolutionForward(
		spatialSize *tensor.RawTensor,
		filterSize Size,
		m Metadata,
		input, weight, bias *tensor.RawTensor,
	) (*tensor.RawTensor, float64, error)

	// SubmanifoldConvolutionBackward computes the gradient with respect to the
	// input features and accumulates weight and bias gradients into gradWeight
	// (shape of weight) and gradBias (shape [nOut], or nil without bias).
	SubmanifoldConvolutionBackward(
		spatialSize *tensor.RawTensor,
		filterSize Size,
		m Metadata,
		input, gradOutput, weight, gradWeight, gradBias *tensor.RawTensor,
	) (*tensor.RawTensor, error)
}

// ReshapeView implements Engine.Reshape for engines whose memory is a plain
// RawTensor buffer.
func ReshapeView(t *tensor.RawTensor, shape tensor.Shape) (*tensor.RawTensor, error) {
	return t.Reshape(shape)
}
