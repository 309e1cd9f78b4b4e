package ops

import (
	"fmt"

	"github.com/born-ml/sparseconv/internal/sparse"
	"github.com/born-ml/sparseconv/internal/tensor"
)

// SubmanifoldConvolutionOp records a submanifold sparse convolution for autodiff.
//
// Forward: output = engine.SubmanifoldConvolutionForward(input, weight, bias)
//
// Backward (gradients, all computed by the engine):
//   - d_input:  [nActive, nIn]
//   - d_weight: [filterVolume, nIn, nOut], accumulated into a zeroed buffer
//   - d_bias:   [nOut], accumulated into a zeroed buffer; nil without bias
//
// Metadata, spatial size and filter size are structural and receive no gradient.
//
// The saved state must stay valid until Backward has run; Release drops it.
// Calling Backward without the matching forward state returns ErrReleased.
// Writing to the saved input, weight or bias in place before Backward (an
// optimizer step, a state dict load) makes Backward return ErrModified.
type SubmanifoldConvolutionOp struct {
	engine      sparse.Engine
	spatialSize *tensor.RawTensor
	filterSize  sparse.Size
	metadata    sparse.Metadata
	input       *tensor.RawTensor
	weight      *tensor.RawTensor
	bias        *tensor.RawTensor
	output      *tensor.RawTensor
	saved       [3]savedTensor // input, weight, bias
	released    bool
}

// NewSubmanifoldConvolutionOp creates a new SubmanifoldConvolution operation.
// bias may be nil.
func NewSubmanifoldConvolutionOp(
	engine sparse.Engine,
	spatialSize *tensor.RawTensor,
	filterSize sparse.Size,
	metadata sparse.Metadata,
	input, weight, bias, output *tensor.RawTensor,
) *SubmanifoldConvolutionOp {
	return &SubmanifoldConvolutionOp{
		engine:      engine,
		spatialSize: spatialSize,
		filterSize:  filterSize.Clone(),
		metadata:    metadata,
		input:       input,
		weight:      weight,
		bias:        bias,
		output:      output,
		saved:       [3]savedTensor{save(input), save(weight), save(bias)},
	}
}

// Inputs returns the input tensors: features, weight and bias (nil without bias).
func (op *SubmanifoldConvolutionOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input, op.weight, op.bias}
}

// Output returns the output tensor.
func (op *SubmanifoldConvolutionOp) Output() *tensor.RawTensor {
	return op.output
}

// Backward computes gradients for the input features, weight and bias.
//
// This is pure orchestration - the engine does the numeric work.
func (op *SubmanifoldConvolutionOp) Backward(outputGrad *tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if op.released {
		return nil, ErrReleased
	}
	for i, name := range [3]string{"input", "weight", "bias"} {
		if err := op.saved[i].check(name); err != nil {
			return nil, fmt.Errorf("submanifold convolution backward: %w", err)
		}
	}

	gradWeight := tensor.ZerosLike(op.weight)
	var gradBias *tensor.RawTensor
	if op.bias != nil {
		gradBias = tensor.ZerosLike(op.bias)
	}

	gradInput, err := op.engine.SubmanifoldConvolutionBackward(
		op.spatialSize,
		op.filterSize,
		op.metadata,
		op.input,
		outputGrad,
		op.weight,
		gradWeight,
		gradBias,
	)
	if err != nil {
		return nil, fmt.Errorf("submanifold convolution backward (%s): %w", op.engine.Name(), err)
	}

	return []*tensor.RawTensor{gradInput, gradWeight, gradBias}, nil
}

// Release drops the saved forward state.
func (op *SubmanifoldConvolutionOp) Release() {
	op.spatialSize = nil
	op.metadata = nil
	op.input = nil
	op.saved = [3]savedTensor{}
	op.released = true
}

// Released reports whether Release has been called.
func (op *SubmanifoldConvolutionOp) Released() bool {
	return op.released
}
