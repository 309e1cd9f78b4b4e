package autodiff

import (
	"fmt"

	"github.com/born-ml/sparseconv/internal/tensor"
)

// BackwardCapable is implemented by engines that own a gradient tape.
// Engine implements this interface.
type BackwardCapable interface {
	// GetTape returns the gradient tape for backward computation.
	GetTape() *GradientTape
}

// GetTape returns the gradient tape (implements BackwardCapable interface).
func (e *Engine[E]) GetTape() *GradientTape {
	return e.tape
}

// Backward computes gradients for output using the engine's tape.
//
// A nil outputGrad seeds the backward pass with ones, which is the gradient of
// sum(output).
//
// Example:
//
//	engine := autodiff.New(sparse.NewMockEngine())
//	engine.Tape().StartRecording()
//	out, _ := conv.Forward(input)
//	grads, err := autodiff.Backward(engine, out.Features, nil)
//	gradWeight := grads[conv.Weight().Tensor()]
func Backward(engine BackwardCapable, output, outputGrad *tensor.RawTensor) (map[*tensor.RawTensor]*tensor.RawTensor, error) {
	tape := engine.GetTape()
	if tape.NumOps() == 0 {
		return nil, fmt.Errorf("backward: no operations recorded (did you forget to call Tape().StartRecording()?)")
	}

	if outputGrad == nil {
		if output.DType() != tensor.Float32 {
			return nil, fmt.Errorf("backward: unsupported dtype %s (only float32 supported)", output.DType())
		}
		outputGrad = tensor.ZerosLike(output)
		tensor.Fill(outputGrad, 1)
	}

	return tape.Backward(output, outputGrad)
}
