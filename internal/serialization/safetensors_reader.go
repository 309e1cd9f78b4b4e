package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/born-ml/sparseconv/internal/tensor"
)

// ReadSafeTensors reads every tensor and the string metadata from a SafeTensors file.
func ReadSafeTensors(path string) (map[string]*tensor.RawTensor, map[string]string, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model loading
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		_ = file.Close() // Read-only, close error carries no data loss
	}()

	return DecodeSafeTensors(file)
}

// DecodeSafeTensors reads a SafeTensors stream.
func DecodeSafeTensors(r io.Reader) (map[string]*tensor.RawTensor, map[string]string, error) {
	var headerSize uint64
	if err := binary.Read(r, binary.LittleEndian, &headerSize); err != nil {
		return nil, nil, fmt.Errorf("failed to read header size: %w", err)
	}
	if headerSize > MaxHeaderSize {
		return nil, nil, fmt.Errorf("%w: %d bytes", ErrHeaderTooLarge, headerSize)
	}

	headerJSON := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerJSON); err != nil {
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}

	var rawHeader map[string]json.RawMessage
	if err := json.Unmarshal(headerJSON, &rawHeader); err != nil {
		return nil, nil, fmt.Errorf("failed to parse header: %w", err)
	}

	var metadata map[string]string
	entries := make(map[string]SafeTensorHeader, len(rawHeader))
	for name, msg := range rawHeader {
		if name == metadataKey {
			if err := json.Unmarshal(msg, &metadata); err != nil {
				return nil, nil, fmt.Errorf("failed to parse metadata: %w", err)
			}
			continue
		}
		var h SafeTensorHeader
		if err := json.Unmarshal(msg, &h); err != nil {
			return nil, nil, fmt.Errorf("failed to parse tensor %s: %w", name, err)
		}
		entries[name] = h
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read data section: %w", err)
	}

	if err := validateOffsets(entries, int64(len(data))); err != nil {
		return nil, nil, err
	}

	tensors := make(map[string]*tensor.RawTensor, len(entries))
	for name, h := range entries {
		raw, err := decodeTensor(name, h, data)
		if err != nil {
			return nil, nil, err
		}
		tensors[name] = raw
	}

	return tensors, metadata, nil
}

// decodeTensor copies one tensor out of the data section.
func decodeTensor(name string, h SafeTensorHeader, data []byte) (*tensor.RawTensor, error) {
	dtype, err := dtypeFromSafeTensors(h.DType)
	if err != nil {
		return nil, fmt.Errorf("tensor %s: %w", name, err)
	}

	byteSize, err := shapeByteSize(h.Shape, dtype.Size())
	if err != nil {
		return nil, fmt.Errorf("tensor %s: %w", name, err)
	}
	start, end := h.DataOffsets[0], h.DataOffsets[1]
	if end-start != byteSize {
		return nil, fmt.Errorf("%w: tensor %s has %d bytes, shape %v needs %d",
			ErrSizeMismatch, name, end-start, h.Shape, byteSize)
	}

	shape := make(tensor.Shape, len(h.Shape))
	for i, dim := range h.Shape {
		shape[i] = int(dim)
	}

	raw, err := tensor.NewRaw(shape, dtype, tensor.CPU)
	if err != nil {
		return nil, fmt.Errorf("tensor %s: %w", name, err)
	}
	copy(raw.Data(), data[start:end])

	return raw, nil
}

// shapeByteSize returns the byte size a shape needs, rejecting negative
// dimensions and sizes that overflow int64.
func shapeByteSize(shape []int64, elemSize int) (int64, error) {
	n := int64(elemSize)
	for i, dim := range shape {
		if dim < 0 {
			return 0, fmt.Errorf("%w: dimension %d is %d", ErrInvalidShape, i, dim)
		}
		if dim != 0 && n > math.MaxInt64/dim {
			return 0, fmt.Errorf("%w: %v overflows", ErrInvalidShape, shape)
		}
		n *= dim
	}
	return n, nil
}

// validateOffsets checks every tensor lies inside the data section and that no
// two tensors overlap.
func validateOffsets(entries map[string]SafeTensorHeader, dataSize int64) error {
	type span struct {
		name       string
		start, end int64
	}

	spans := make([]span, 0, len(entries))
	for name, h := range entries {
		start, end := h.DataOffsets[0], h.DataOffsets[1]
		if start < 0 || end < start {
			return fmt.Errorf("%w: tensor %s [%d, %d)", ErrNegativeOffset, name, start, end)
		}
		if end > dataSize {
			return fmt.Errorf("%w: tensor %s ends at %d, data section is %d bytes", ErrOutOfBounds, name, end, dataSize)
		}
		spans = append(spans, span{name, start, end})
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	for i := 1; i < len(spans); i++ {
		if spans[i].start < spans[i-1].end {
			return fmt.Errorf("%w: %s and %s", ErrOffsetOverlap, spans[i-1].name, spans[i].name)
		}
	}

	return nil
}
