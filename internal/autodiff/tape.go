package autodiff

import (
	"errors"
	"fmt"

	"github.com/born-ml/sparseconv/internal/autodiff/ops"
	"github.com/born-ml/sparseconv/internal/tensor"
)

// ErrNotRecorded is returned when Backward starts from a tensor that no
// recorded operation produced.
var ErrNotRecorded = errors.New("tensor was not produced by a recorded operation")

// GradientTape records operations during the forward pass and computes
// gradients during the backward pass using reverse-mode automatic differentiation.
//
// Usage:
//
//	tape := NewGradientTape()
//	tape.StartRecording()
//	// ... perform operations ...
//	gradients, err := tape.Backward(output, outputGrad)
type GradientTape struct {
	operations []ops.Operation // Recorded operations (in execution order)
	recording  bool            // Whether tape is currently recording
}

// NewGradientTape creates a new gradient tape.
func NewGradientTape() *GradientTape {
	return &GradientTape{
		operations: make([]ops.Operation, 0, 16),
		recording:  false,
	}
}

// StartRecording enables operation recording.
func (t *GradientTape) StartRecording() {
	t.recording = true
}

// StopRecording disables operation recording.
func (t *GradientTape) StopRecording() {
	t.recording = false
}

// IsRecording returns true if the tape is currently recording operations.
func (t *GradientTape) IsRecording() bool {
	return t.recording
}

// Record adds an operation to the tape.
// Only records if the tape is currently recording.
func (t *GradientTape) Record(op ops.Operation) {
	if t.recording {
		t.operations = append(t.operations, op)
	}
}

// Clear releases the saved state of every recorded operation and empties the tape.
// Recording state is preserved.
func (t *GradientTape) Clear() {
	for _, op := range t.operations {
		if r, ok := op.(ops.Releaser); ok {
			r.Release()
		}
	}
	t.operations = t.operations[:0]
}

// NumOps returns the number of recorded operations.
func (t *GradientTape) NumOps() int {
	return len(t.operations)
}

// Backward computes gradients for all inputs by walking the tape in reverse,
// starting from output with gradient outputGrad.
//
// Algorithm:
//  1. Seed the gradient map with outputGrad for output
//  2. Walk operations in reverse order
//  3. For each operation with an incoming gradient, compute input gradients
//  4. Accumulate gradients when the same tensor is used multiple times
//  5. Release the operation's saved forward state
//
// Returns a map from RawTensor to its accumulated gradient.
func (t *GradientTape) Backward(output, outputGrad *tensor.RawTensor) (map[*tensor.RawTensor]*tensor.RawTensor, error) {
	if !t.produced(output) {
		return nil, ErrNotRecorded
	}
	if !outputGrad.Shape().Equal(output.Shape()) {
		return nil, fmt.Errorf("backward: gradient shape %v does not match output %v", outputGrad.Shape(), output.Shape())
	}

	// Stop recording during backward pass to prevent recording gradient operations
	wasRecording := t.recording
	t.recording = false
	defer func() {
		t.recording = wasRecording
	}()

	grads := make(map[*tensor.RawTensor]*tensor.RawTensor)
	grads[output] = outputGrad

	for i := len(t.operations) - 1; i >= 0; i-- {
		op := t.operations[i]
		opOutputGrad, hasGrad := grads[op.Output()]
		if !hasGrad {
			continue
		}

		inputGrads, err := op.Backward(opOutputGrad)
		if err != nil {
			return nil, fmt.Errorf("backward: op %d: %w", i, err)
		}
		accumulateGrads(op.Inputs(), inputGrads, grads)

		if r, ok := op.(ops.Releaser); ok {
			r.Release()
		}
	}

	return grads, nil
}

// produced reports whether a recorded operation has output as its result.
func (t *GradientTape) produced(output *tensor.RawTensor) bool {
	for _, op := range t.operations {
		if op.Output() == output {
			return true
		}
	}
	return false
}

// accumulateGrads accumulates gradients for each input tensor.
func accumulateGrads(
	inputs []*tensor.RawTensor,
	inputGrads []*tensor.RawTensor,
	grads map[*tensor.RawTensor]*tensor.RawTensor,
) {
	for j, input := range inputs {
		if j >= len(inputGrads) {
			break
		}
		inputGrad := inputGrads[j]
		if input == nil || inputGrad == nil {
			continue
		}
		if existing, ok := grads[input]; ok {
			grads[input] = tensor.Add(existing, inputGrad)
		} else {
			grads[input] = inputGrad
		}
	}
}
