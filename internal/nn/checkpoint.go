package nn

import (
	"fmt"

	"github.com/born-ml/sparseconv/internal/serialization"
)

// metadataDescription is the SafeTensors metadata key holding the module description.
const metadataDescription = "description"

// SaveModule writes the module's parameters to a SafeTensors file.
//
// The module's String() is stored under the "description" metadata key so a
// file can be matched to the architecture that produced it.
//
// Example:
//
//	err := nn.SaveModule("model.safetensors", model)
func SaveModule(path string, module Module) error {
	meta := map[string]string{
		metadataDescription: module.String(),
	}
	if err := serialization.WriteSafeTensors(path, module.StateDict(), meta); err != nil {
		return fmt.Errorf("failed to save module: %w", err)
	}
	return nil
}

// LoadModule reads parameters from a SafeTensors file into a pre-constructed
// module with the same architecture.
//
// Returns the stored description.
func LoadModule(path string, module Module) (string, error) {
	stateDict, meta, err := serialization.ReadSafeTensors(path)
	if err != nil {
		return "", fmt.Errorf("failed to read module: %w", err)
	}
	if err := module.LoadStateDict(stateDict); err != nil {
		return "", fmt.Errorf("failed to load module state: %w", err)
	}
	return meta[metadataDescription], nil
}
