package nn

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/born-ml/sparseconv/internal/sparse"
	"github.com/born-ml/sparseconv/internal/tensor"
)

// Sequential is a container module that chains multiple modules together.
//
// Each module's output becomes the next module's input, creating a
// sequential pipeline of transformations.
//
// Example:
//
//	model := nn.NewSequential(
//	    nn.NewSubmanifoldConvolution(3, 1, 16, 3, false, engine),
//	    nn.NewSubmanifoldConvolution(3, 16, 16, 3, false, engine),
//	)
//
//	output, err := model.Forward(input)
type Sequential struct {
	modules []Module
}

// NewSequential creates a new Sequential container.
func NewSequential(modules ...Module) *Sequential {
	return &Sequential{
		modules: modules,
	}
}

// Forward applies all modules in sequence.
// The first failing module stops the chain.
func (s *Sequential) Forward(input *sparse.Tensor) (*sparse.Tensor, error) {
	output := input

	for i, module := range s.modules {
		var err error
		output, err = module.Forward(output)
		if err != nil {
			return nil, fmt.Errorf("module %d (%s): %w", i, module, err)
		}
	}

	return output, nil
}

// InputSpatialSize folds InputSpatialSize through the modules from last to first.
func (s *Sequential) InputSpatialSize(outputSize sparse.Size) sparse.Size {
	size := outputSize
	for i := len(s.modules) - 1; i >= 0; i-- {
		size = s.modules[i].InputSpatialSize(size)
	}
	return size
}

// Parameters returns all trainable parameters from all modules.
func (s *Sequential) Parameters() []*Parameter {
	var params []*Parameter

	for _, module := range s.modules {
		params = append(params, module.Parameters()...)
	}

	return params
}

// Add appends a module to the sequence.
func (s *Sequential) Add(module Module) {
	s.modules = append(s.modules, module)
}

// Len returns the number of modules in the sequence.
func (s *Sequential) Len() int {
	return len(s.modules)
}

// Module returns the module at the given index.
//
// Panics if index is out of bounds.
func (s *Sequential) Module(index int) Module {
	if index < 0 || index >= len(s.modules) {
		panic("Sequential.Module: index out of bounds")
	}
	return s.modules[index]
}

// String lists the modules, one per line.
func (s *Sequential) String() string {
	var b strings.Builder
	b.WriteString("Sequential(")
	for i, module := range s.modules {
		fmt.Fprintf(&b, "\n  (%d) %s", i, module)
	}
	if len(s.modules) > 0 {
		b.WriteString("\n")
	}
	b.WriteString(")")
	return b.String()
}

// StateDict returns a map of parameter names to raw tensors.
//
// Parameters are prefixed with their module index (e.g., "0.weight", "1.bias").
func (s *Sequential) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor)

	for i, module := range s.modules {
		for name, raw := range module.StateDict() {
			stateDict[fmt.Sprintf("%d.%s", i, name)] = raw
		}
	}

	return stateDict
}

// LoadStateDict loads parameters from a state dictionary.
//
// Parameters should be prefixed with their module index (e.g., "0.weight", "0.bias").
// Keys that no module claims are reported as an error, so a checkpoint from a
// different architecture does not load silently.
func (s *Sequential) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	perModule := make([]map[string]*tensor.RawTensor, len(s.modules))
	var unexpected []string

	for key, raw := range stateDict {
		prefix, name, ok := strings.Cut(key, ".")
		i, err := strconv.Atoi(prefix)
		if !ok || err != nil || i < 0 || i >= len(s.modules) || len(s.modules[i].Parameters()) == 0 {
			unexpected = append(unexpected, key)
			continue
		}
		if perModule[i] == nil {
			perModule[i] = make(map[string]*tensor.RawTensor)
		}
		perModule[i][name] = raw
	}
	if len(unexpected) > 0 {
		sort.Strings(unexpected)
		return fmt.Errorf("unexpected keys in state dict: %s", strings.Join(unexpected, ", "))
	}

	for i, module := range s.modules {
		if len(module.Parameters()) == 0 {
			continue
		}
		moduleStateDict := perModule[i]
		if moduleStateDict == nil {
			moduleStateDict = map[string]*tensor.RawTensor{}
		}
		if err := module.LoadStateDict(moduleStateDict); err != nil {
			return fmt.Errorf("failed to load module %d: %w", i, err)
		}
	}

	return nil
}
