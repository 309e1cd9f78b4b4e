package nn

import (
	"math"

	"golang.org/x/exp/rand"

	"github.com/born-ml/sparseconv/internal/tensor"
)

// HeNormal draws weights from N(0, 2/fanIn).
//
// For a sparse convolution fanIn = inChannels * filterVolume, so the standard
// deviation is sqrt(2 / (inChannels * filterVolume)).
//
// A nil src uses gonum's global random source.
func HeNormal(fanIn int, shape tensor.Shape, src rand.Source) *tensor.RawTensor {
	std := math.Sqrt(2.0 / float64(fanIn))
	return tensor.Normal(shape, 0, std, src)
}

// Zeros creates a float32 tensor filled with zeros.
//
// This is commonly used for bias initialization.
func Zeros(shape tensor.Shape) *tensor.RawTensor {
	return tensor.Zeros(shape, tensor.Float32, tensor.CPU)
}
