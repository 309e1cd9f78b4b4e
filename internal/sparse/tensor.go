package sparse

import (
	"fmt"

	"github.com/born-ml/sparseconv/internal/tensor"
)

// Metadata is the engine-owned description of which sites are active and how
// they are connected. Layers never look inside it; they only pass it along.
type Metadata interface {
	// Dimension returns the number of spatial dimensions the metadata indexes.
	Dimension() int
}

// Tensor groups a feature matrix with the metadata and spatial size it lives on.
//
// Features has shape [nActive, nPlanes]. Metadata and SpatialSize are shared by
// reference between a layer's input and output: a submanifold convolution does
// not change the active set.
type Tensor struct {
	Features    *tensor.RawTensor
	Metadata    Metadata
	SpatialSize *tensor.RawTensor // 1-D int64, one extent per dimension
}

// NewTensor creates a sparse tensor wrapper.
func NewTensor(features *tensor.RawTensor, metadata Metadata, spatialSize *tensor.RawTensor) *Tensor {
	return &Tensor{
		Features:    features,
		Metadata:    metadata,
		SpatialSize: spatialSize,
	}
}

// WithFeatures returns a new wrapper holding features and sharing t's
// metadata and spatial size by reference.
func (t *Tensor) WithFeatures(features *tensor.RawTensor) *Tensor {
	return &Tensor{
		Features:    features,
		Metadata:    t.Metadata,
		SpatialSize: t.SpatialSize,
	}
}

// NumActive returns the number of active sites (feature rows).
func (t *Tensor) NumActive() int {
	if t.Features == nil {
		return 0
	}
	return t.Features.Dim(0)
}

// NumPlanes returns the number of feature channels (feature columns).
func (t *Tensor) NumPlanes() int {
	if t.Features == nil {
		return 0
	}
	return t.Features.Dim(1)
}

// Empty reports whether the feature matrix holds no elements.
func (t *Tensor) Empty() bool {
	return t.Features == nil || t.Features.NumElements() == 0
}

// Size returns the spatial size as a Size.
func (t *Tensor) Size() Size {
	if t.SpatialSize == nil {
		return nil
	}
	s := make(Size, 0, t.SpatialSize.NumElements())
	for _, e := range t.SpatialSize.AsInt64() {
		s = append(s, int(e))
	}
	return s
}

// String returns a short description of the tensor.
func (t *Tensor) String() string {
	return fmt.Sprintf("SparseTensor(active=%d, planes=%d, spatial_size=%v)",
		t.NumActive(), t.NumPlanes(), t.Size())
}
