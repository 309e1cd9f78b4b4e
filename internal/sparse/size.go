// Package sparse defines the sparse tensor wrapper, the size descriptors and the
// engine capability that sparse convolution layers delegate to.
//
// The engine owns everything numeric: rule-book construction, the active-site
// metadata and the gather/scatter matrix products. Layers only validate shapes,
// own parameters and pass tensors across the Engine boundary.
package sparse

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/born-ml/sparseconv/internal/tensor"
)

// Size holds one extent per spatial dimension (a filter size or a spatial size).
type Size []int

// ParseSize converts v into a Size with exactly dimension extents.
//
// Accepted forms:
//   - int: the value is repeated for every dimension (3 -> [3, 3, 3] for dimension 3)
//   - []int or Size: used as is, its length must equal dimension
//   - *tensor.RawTensor of Int64: read element-wise, length must equal dimension
func ParseSize(dimension int, v any) (Size, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension %d", ErrInvalidSize, dimension)
	}

	var s Size
	switch x := v.(type) {
	case int:
		s = make(Size, dimension)
		for i := range s {
			s[i] = x
		}
	case Size:
		s = append(Size(nil), x...)
	case []int:
		s = append(Size(nil), x...)
	case *tensor.RawTensor:
		if x == nil || x.DType() != tensor.Int64 {
			return nil, fmt.Errorf("%w: expected int64 tensor", ErrInvalidSize)
		}
		for _, e := range x.AsInt64() {
			s = append(s, int(e))
		}
	default:
		return nil, fmt.Errorf("%w: unsupported type %T", ErrInvalidSize, v)
	}

	if len(s) != dimension {
		return nil, fmt.Errorf("%w: got %d extents for dimension %d", ErrInvalidSize, len(s), dimension)
	}
	for i, e := range s {
		if e <= 0 {
			return nil, fmt.Errorf("%w: extent %d at index %d must be > 0", ErrInvalidSize, e, i)
		}
	}
	return s, nil
}

// Dimension returns the number of spatial dimensions.
func (s Size) Dimension() int {
	return len(s)
}

// Volume returns the product of all extents.
func (s Size) Volume() int {
	v := 1
	for _, e := range s {
		v *= e
	}
	return v
}

// Uniform reports whether every extent is equal.
func (s Size) Uniform() bool {
	if len(s) == 0 {
		return true
	}
	for _, e := range s[1:] {
		if e != s[0] {
			return false
		}
	}
	return true
}

// Equal checks if two sizes are equal.
func (s Size) Equal(other Size) bool {
	return tensor.Shape(s).Equal(tensor.Shape(other))
}

// Clone returns a copy of the size.
func (s Size) Clone() Size {
	return append(Size(nil), s...)
}

// String formats the size compactly: "3" when uniform, "(3,5)" otherwise.
func (s Size) String() string {
	if len(s) == 0 {
		return "()"
	}
	if s.Uniform() {
		return strconv.Itoa(s[0])
	}
	parts := make([]string, len(s))
	for i, e := range s {
		parts[i] = strconv.Itoa(e)
	}
	return "(" + strings.Join(parts, ",") + ")"
}

// ToTensor returns the size as a 1-D int64 tensor, the spatial-size descriptor
// representation carried by Tensor.
func (s Size) ToTensor() *tensor.RawTensor {
	data := make([]int64, len(s))
	for i, e := range s {
		data[i] = int64(e)
	}
	raw, err := tensor.FromInt64(data, tensor.Shape{len(s)})
	if err != nil {
		panic(err) // Length always matches
	}
	return raw
}
