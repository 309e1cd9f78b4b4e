package serialization

import "errors"

// Common errors.
var (
	ErrOffsetOverlap     = errors.New("tensor offsets overlap")
	ErrOutOfBounds       = errors.New("tensor extends beyond data section")
	ErrNegativeOffset    = errors.New("negative offset or size")
	ErrHeaderTooLarge    = errors.New("header exceeds maximum size")
	ErrUnsupportedDType  = errors.New("unsupported dtype")
	ErrSizeMismatch      = errors.New("tensor byte size does not match shape")
	ErrInvalidShape      = errors.New("invalid tensor shape")
	ErrWriterClosed      = errors.New("writer is closed")
	ErrInvalidTensorName = errors.New("invalid tensor name")
)

// MaxHeaderSize bounds the JSON header a reader accepts.
const MaxHeaderSize = 100 << 20
