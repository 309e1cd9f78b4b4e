package ops

import (
	"fmt"

	"github.com/born-ml/sparseconv/internal/tensor"
)

// ReshapeOp records a reshape (view) operation for autodiff.
//
// Forward: output = Reshape(input, newShape)
//
// Backward:
//   - d_input: Reshape(d_output, input.shape())
//
// Layers present their 2-D weight parameter to the engine as a 3-D view;
// this op routes the view's gradient back to the parameter.
type ReshapeOp struct {
	input     *tensor.RawTensor
	output    *tensor.RawTensor
	origShape tensor.Shape
}

// NewReshapeOp creates a new Reshape operation.
func NewReshapeOp(input, output *tensor.RawTensor) *ReshapeOp {
	return &ReshapeOp{
		input:     input,
		output:    output,
		origShape: input.Shape().Clone(),
	}
}

// Inputs returns the input tensors.
func (op *ReshapeOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the output tensor.
func (op *ReshapeOp) Output() *tensor.RawTensor {
	return op.output
}

// Backward reshapes the output gradient back to the input shape.
func (op *ReshapeOp) Backward(outputGrad *tensor.RawTensor) ([]*tensor.RawTensor, error) {
	inputGrad, err := outputGrad.Reshape(op.origShape)
	if err != nil {
		return nil, fmt.Errorf("reshape backward: %w", err)
	}
	return []*tensor.RawTensor{inputGrad}, nil
}
