package tensor

import (
	"fmt"

	"github.com/born-ml/sparseconv/internal/parallel"
)

// parallelConfig splits float32 element-wise loops over large tensors.
var parallelConfig = parallel.DefaultConfig()

// Add returns a + b as a new tensor. Shapes must match exactly.
func Add(a, b *RawTensor) *RawTensor {
	out := a.Copy()
	AddInPlace(out, b)
	return out
}

// AddInPlace accumulates src into dst element-wise.
func AddInPlace(dst, src *RawTensor) {
	checkSameLayout("add", dst, src)
	defer dst.MarkModified()
	switch dst.DType() {
	case Float32:
		d, s := dst.AsFloat32(), src.AsFloat32()
		parallel.ForChunks(len(d), func(start, end int) {
			for i := start; i < end; i++ {
				d[i] += s[i]
			}
		}, parallelConfig)
	case Float64:
		d, s := dst.AsFloat64(), src.AsFloat64()
		for i := range d {
			d[i] += s[i]
		}
	case Int64:
		d, s := dst.AsInt64(), src.AsInt64()
		for i := range d {
			d[i] += s[i]
		}
	}
}

// Axpy computes y += alpha*x in place. Only floating point tensors are supported.
func Axpy(alpha float32, x, y *RawTensor) {
	checkSameLayout("axpy", y, x)
	defer y.MarkModified()
	switch y.DType() {
	case Float32:
		xd, yd := x.AsFloat32(), y.AsFloat32()
		parallel.ForChunks(len(yd), func(start, end int) {
			for i := start; i < end; i++ {
				yd[i] += alpha * xd[i]
			}
		}, parallelConfig)
	case Float64:
		xd, yd := x.AsFloat64(), y.AsFloat64()
		a := float64(alpha)
		for i := range yd {
			yd[i] += a * xd[i]
		}
	default:
		panic(fmt.Sprintf("axpy: unsupported dtype %s", y.DType()))
	}
}

// Scale multiplies every element of t by alpha in place.
func Scale(alpha float32, t *RawTensor) {
	defer t.MarkModified()
	switch t.DType() {
	case Float32:
		d := t.AsFloat32()
		parallel.ForChunks(len(d), func(start, end int) {
			for i := start; i < end; i++ {
				d[i] *= alpha
			}
		}, parallelConfig)
	case Float64:
		d := t.AsFloat64()
		a := float64(alpha)
		for i := range d {
			d[i] *= a
		}
	default:
		panic(fmt.Sprintf("scale: unsupported dtype %s", t.DType()))
	}
}

// Fill sets every element of a float32 tensor to value.
func Fill(t *RawTensor, value float32) {
	defer t.MarkModified()
	d := t.AsFloat32()
	for i := range d {
		d[i] = value
	}
}

func checkSameLayout(op string, a, b *RawTensor) {
	if a.DType() != b.DType() {
		panic(fmt.Sprintf("%s: dtype mismatch %s vs %s", op, a.DType(), b.DType()))
	}
	if !a.Shape().Equal(b.Shape()) {
		panic(fmt.Sprintf("%s: shape mismatch %v vs %v", op, a.Shape(), b.Shape()))
	}
}
