package nn

import (
	"fmt"

	"github.com/born-ml/sparseconv/internal/tensor"
)

// Parameter represents a trainable parameter in a neural network.
//
// The layer that owns a parameter only reads it; the optimizer is the only
// writer of its values.
//
// Example:
//
//	weight := nn.NewParameter("weight", weightTensor)
//	w := weight.Tensor()
//	grad := weight.Grad() // nil until gradients are collected
type Parameter struct {
	name   string            // Parameter name (e.g., "weight", "bias")
	tensor *tensor.RawTensor // The parameter tensor
	grad   *tensor.RawTensor // Gradient tensor (collected after the backward pass)
}

// NewParameter creates a new trainable parameter.
//
// The parameter tensor should be initialized before creating the Parameter.
func NewParameter(name string, t *tensor.RawTensor) *Parameter {
	return &Parameter{
		name:   name,
		tensor: t,
		grad:   nil, // Gradient allocated on first backward pass
	}
}

// Name returns the parameter name.
func (p *Parameter) Name() string {
	return p.name
}

// Tensor returns the parameter tensor.
func (p *Parameter) Tensor() *tensor.RawTensor {
	return p.tensor
}

// Shape returns the parameter shape.
func (p *Parameter) Shape() tensor.Shape {
	return p.tensor.Shape()
}

// Grad returns the gradient tensor.
//
// Returns nil if no gradient has been computed yet (before backward pass).
func (p *Parameter) Grad() *tensor.RawTensor {
	return p.grad
}

// SetGrad sets the gradient tensor.
func (p *Parameter) SetGrad(grad *tensor.RawTensor) {
	p.grad = grad
}

// AccumulateGrad adds grad to the stored gradient, allocating it on first use.
func (p *Parameter) AccumulateGrad(grad *tensor.RawTensor) error {
	if !grad.Shape().Equal(p.tensor.Shape()) {
		return fmt.Errorf("%s: gradient shape %v does not match parameter %v", p.name, grad.Shape(), p.tensor.Shape())
	}
	if p.grad == nil {
		p.grad = grad.Copy()
		return nil
	}
	tensor.AddInPlace(p.grad, grad)
	return nil
}

// ZeroGrad clears the gradient tensor.
//
// This should be called before each training iteration to avoid
// accumulating gradients from previous iterations.
func (p *Parameter) ZeroGrad() {
	p.grad = nil
}

// CollectGrads moves gradients computed by a backward pass into params.
// Parameters that did not take part in the pass are left untouched.
//
// Example:
//
//	grads, err := autodiff.Backward(engine, out.Features, nil)
//	err = nn.CollectGrads(model.Parameters(), grads)
func CollectGrads(params []*Parameter, grads map[*tensor.RawTensor]*tensor.RawTensor) error {
	for _, p := range params {
		g, ok := grads[p.tensor]
		if !ok || g == nil {
			continue
		}
		if err := p.AccumulateGrad(g); err != nil {
			return err
		}
	}
	return nil
}
