// Package optim implements optimization algorithms for training sparse networks.
//
// Optimizers are the only writers of layer parameters: layers read weights
// during Forward, the optimizer updates them between steps.
//
// Example usage:
//
//	optimizer := optim.NewSGD(model.Parameters(), optim.SGDConfig{LR: 0.01})
//
//	for step := range steps {
//	    engine.Tape().StartRecording()
//	    out, err := model.Forward(input)
//	    grads, err := autodiff.Backward(engine, out.Features, gradOutput)
//	    err = nn.CollectGrads(model.Parameters(), grads)
//
//	    optimizer.Step()
//	    optimizer.ZeroGrad()
//	    engine.Tape().Clear()
//	}
package optim

// Optimizer is the base interface for all optimization algorithms.
type Optimizer interface {
	// Step applies the collected parameter gradients.
	// Parameters without a gradient are skipped.
	Step()

	// ZeroGrad clears all parameter gradients.
	ZeroGrad()

	// GetLR returns the current learning rate.
	GetLR() float32
}

// Config is the base configuration for all optimizers.
type Config struct {
	LR float32 // Learning rate
}
