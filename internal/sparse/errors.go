package sparse

import "errors"

// Sentinel errors returned by size parsing and engines.
var (
	// ErrInvalidSize indicates a malformed filter or spatial size.
	ErrInvalidSize = errors.New("invalid size")

	// ErrMetadataMismatch indicates metadata of a type the engine does not own.
	ErrMetadataMismatch = errors.New("metadata not produced by this engine")

	// ErrShapeMismatch indicates tensors whose shapes disagree with the metadata.
	ErrShapeMismatch = errors.New("shape mismatch")
)
