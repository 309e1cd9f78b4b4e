// Package autodiff adds gradient tracking to a sparse convolution engine using
// the decorator pattern.
//
// Engine wraps any sparse.Engine and records each Reshape and
// SubmanifoldConvolution call on a GradientTape. Walking the tape in reverse
// hands each recorded convolution back to the wrapped engine's backward routine.
//
// Usage:
//
//	engine := autodiff.New(sparse.NewMockEngine())
//	conv := nn.NewSubmanifoldConvolution(3, 16, 32, 3, true, engine)
//
//	engine.Tape().StartRecording()
//	out, err := conv.Forward(input)
//	grads, err := autodiff.Backward(engine, out.Features, nil)
package autodiff

import (
	"github.com/born-ml/sparseconv/internal/autodiff/ops"
	"github.com/born-ml/sparseconv/internal/sparse"
	"github.com/born-ml/sparseconv/internal/tensor"
)

// Verify that Engine implements sparse.Engine.
var _ sparse.Engine = (*Engine[*sparse.MockEngine])(nil)

// Engine wraps a sparse.Engine and records operations in a GradientTape.
//
// Type parameter E must satisfy the sparse.Engine interface.
type Engine[E sparse.Engine] struct {
	inner E             // Wrapped engine
	tape  *GradientTape // Records operations for backpropagation
}

// New creates a new Engine wrapping the given engine.
func New[E sparse.Engine](engine E) *Engine[E] {
	return &Engine[E]{
		inner: engine,
		tape:  NewGradientTape(),
	}
}

// Tape returns the gradient tape for manual control.
func (e *Engine[E]) Tape() *GradientTape {
	return e.tape
}

// Inner returns the wrapped engine for direct access.
func (e *Engine[E]) Inner() E {
	return e.inner
}

// Name returns the engine name.
func (e *Engine[E]) Name() string {
	return "Autodiff(" + e.inner.Name() + ")"
}

// Reshape reshapes a tensor and records the operation.
//
// The view must be recorded: the convolution records its gradient against the
// view, and ReshapeOp carries it back to the parameter the optimizer updates.
func (e *Engine[E]) Reshape(t *tensor.RawTensor, shape tensor.Shape) (*tensor.RawTensor, error) {
	result, err := e.inner.Reshape(t, shape)
	if err != nil {
		return nil, err
	}

	if e.tape.IsRecording() {
		e.tape.Record(ops.NewReshapeOp(t, result))
	}

	return result, nil
}

// SubmanifoldConvolutionForward runs the wrapped engine and records the operation.
func (e *Engine[E]) SubmanifoldConvolutionForward(
	spatialSize *tensor.RawTensor,
	filterSize sparse.Size,
	m sparse.Metadata,
	input, weight, bias *tensor.RawTensor,
) (*tensor.RawTensor, float64, error) {
	output, madds, err := e.inner.SubmanifoldConvolutionForward(spatialSize, filterSize, m, input, weight, bias)
	if err != nil {
		return nil, 0, err
	}

	if e.tape.IsRecording() {
		op := ops.NewSubmanifoldConvolutionOp(e.inner, spatialSize, filterSize, m, input, weight, bias, output)
		e.tape.Record(op)
	}

	return output, madds, nil
}

// SubmanifoldConvolutionBackward delegates to the wrapped engine without recording.
func (e *Engine[E]) SubmanifoldConvolutionBackward(
	spatialSize *tensor.RawTensor,
	filterSize sparse.Size,
	m sparse.Metadata,
	input, gradOutput, weight, gradWeight, gradBias *tensor.RawTensor,
) (*tensor.RawTensor, error) {
	return e.inner.SubmanifoldConvolutionBackward(spatialSize, filterSize, m, input, gradOutput, weight, gradWeight, gradBias)
}
