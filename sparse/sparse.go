// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package sparse defines sparse tensors and the engine contract that sparse
// convolution layers delegate to.
//
// A sparse tensor is a feature matrix with one row per active site, an
// opaque Metadata handle owned by the engine, and the spatial extent of the
// grid. The Engine performs all convolution arithmetic; MockEngine is a
// small reference engine for tests and demos.
//
//	engine := sparse.NewMockEngine()
//	input := sparse.NewTensor(features, sparse.NewMockMetadata(2, nActive), sparse.Size{64, 64}.ToTensor())
package sparse

import (
	"github.com/born-ml/sparseconv/internal/sparse"
	"github.com/born-ml/sparseconv/internal/tensor"
)

// Size is a per-dimension spatial or filter extent.
type Size = sparse.Size

// ParseSize expands an integer, list, Size, or int64 tensor into a Size of
// the given dimension.
func ParseSize(dimension int, v any) (Size, error) {
	return sparse.ParseSize(dimension, v)
}

// Metadata is the engine's opaque description of the active sites.
type Metadata = sparse.Metadata

// Tensor is a sparse tensor.
type Tensor = sparse.Tensor

// NewTensor assembles a sparse tensor.
func NewTensor(features *tensor.RawTensor, metadata Metadata, spatialSize *tensor.RawTensor) *Tensor {
	return sparse.NewTensor(features, metadata, spatialSize)
}

// Engine computes sparse convolutions.
type Engine = sparse.Engine

// ReshapeView returns a view of t with a new shape.
func ReshapeView(t *tensor.RawTensor, shape tensor.Shape) (*tensor.RawTensor, error) {
	return sparse.ReshapeView(t, shape)
}

// Profiling

// Stats receives profiling counts from layers.
type Stats = sparse.Stats

// StatsSnapshot is a point-in-time copy of Counters.
type StatsSnapshot = sparse.StatsSnapshot

// Counters accumulates profiling counts and is safe for concurrent use.
type Counters = sparse.Counters

// NopStats discards all counts.
type NopStats = sparse.NopStats

// NewCounters creates zeroed counters.
func NewCounters() *Counters {
	return sparse.NewCounters()
}

// Reference engine

// MockEngine is a reference engine that applies only the centre filter tap.
type MockEngine = sparse.MockEngine

// MockMetadata is the metadata understood by MockEngine.
type MockMetadata = sparse.MockMetadata

// ForwardCall records the arguments of one MockEngine forward call.
type ForwardCall = sparse.ForwardCall

// NewMockEngine creates a reference engine.
func NewMockEngine() *MockEngine {
	return sparse.NewMockEngine()
}

// NewMockMetadata describes nActive sites in a grid of the given dimension.
func NewMockMetadata(dimension, nActive int) *MockMetadata {
	return sparse.NewMockMetadata(dimension, nActive)
}

// Errors returned by ParseSize and engines.
var (
	ErrInvalidSize      = sparse.ErrInvalidSize
	ErrMetadataMismatch = sparse.ErrMetadataMismatch
	ErrShapeMismatch    = sparse.ErrShapeMismatch
)
