package sparse

import (
	"fmt"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/sparseconv/internal/tensor"
)

// Verify that MockEngine implements Engine.
var _ Engine = (*MockEngine)(nil)

// MockMetadata is the metadata produced for MockEngine: a dimension and an
// active-site count, with no neighbourhood information.
type MockMetadata struct {
	dimension int
	nActive   int
}

// NewMockMetadata creates metadata for nActive isolated sites.
func NewMockMetadata(dimension, nActive int) *MockMetadata {
	return &MockMetadata{dimension: dimension, nActive: nActive}
}

// Dimension implements Metadata.
func (m *MockMetadata) Dimension() int {
	return m.dimension
}

// NumActive returns the number of active sites.
func (m *MockMetadata) NumActive() int {
	return m.nActive
}

// ForwardCall captures the arguments of one SubmanifoldConvolutionForward call.
type ForwardCall struct {
	SpatialSize *tensor.RawTensor
	FilterSize  Size
	Metadata    Metadata
	Input       *tensor.RawTensor
	Weight      *tensor.RawTensor
	Bias        *tensor.RawTensor
}

// MockEngine is a naive engine for testing.
//
// Every active site is treated as isolated, so only the centre filter tap
// contributes:
//
//	output = input · weight[centre] + bias
//
// It is a correctness oracle for the plumbing around an engine, not a sparse
// convolution kernel.
type MockEngine struct {
	mu            sync.Mutex
	forwardCalls  int
	backwardCalls int
	lastForward   *ForwardCall
}

// NewMockEngine creates a new MockEngine.
func NewMockEngine() *MockEngine {
	return &MockEngine{}
}

// Name returns the engine name.
func (e *MockEngine) Name() string {
	return "mock"
}

// Reshape implements Engine.
func (e *MockEngine) Reshape(t *tensor.RawTensor, shape tensor.Shape) (*tensor.RawTensor, error) {
	return ReshapeView(t, shape)
}

// ForwardCalls returns how many forward calls the engine served.
func (e *MockEngine) ForwardCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.forwardCalls
}

// BackwardCalls returns how many backward calls the engine served.
func (e *MockEngine) BackwardCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.backwardCalls
}

// LastForward returns the arguments of the most recent forward call, or nil.
func (e *MockEngine) LastForward() *ForwardCall {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastForward
}

// CentreTap returns the row-major index of the centre offset of a filter.
func CentreTap(filterSize Size) int {
	idx := 0
	for _, f := range filterSize {
		idx = idx*f + (f-1)/2
	}
	return idx
}

// SubmanifoldConvolutionForward implements Engine.
func (e *MockEngine) SubmanifoldConvolutionForward(
	spatialSize *tensor.RawTensor,
	filterSize Size,
	m Metadata,
	input, weight, bias *tensor.RawTensor,
) (*tensor.RawTensor, float64, error) {
	e.mu.Lock()
	e.forwardCalls++
	e.lastForward = &ForwardCall{
		SpatialSize: spatialSize,
		FilterSize:  filterSize,
		Metadata:    m,
		Input:       input,
		Weight:      weight,
		Bias:        bias,
	}
	e.mu.Unlock()

	nActive, nIn, nOut, err := e.check(filterSize, m, input, weight)
	if err != nil {
		return nil, 0, err
	}
	if nActive == 0 {
		return tensor.Zeros(tensor.Shape{0, nOut}, tensor.Float32, input.Device()), 0, nil
	}

	in := denseFrom(input, nActive, nIn)
	w := tapFrom(weight, CentreTap(filterSize), nIn, nOut)

	var out mat.Dense
	out.Mul(in, w)
	if bias != nil {
		b := bias.AsFloat32()
		for i := 0; i < nActive; i++ {
			for j := 0; j < nOut; j++ {
				out.Set(i, j, out.At(i, j)+float64(b[j]))
			}
		}
	}

	return rawFrom(&out, nActive, nOut), float64(nActive * nIn * nOut), nil
}

// SubmanifoldConvolutionBackward implements Engine.
func (e *MockEngine) SubmanifoldConvolutionBackward(
	spatialSize *tensor.RawTensor,
	filterSize Size,
	m Metadata,
	input, gradOutput, weight, gradWeight, gradBias *tensor.RawTensor,
) (*tensor.RawTensor, error) {
	e.mu.Lock()
	e.backwardCalls++
	e.mu.Unlock()

	nActive, nIn, nOut, err := e.check(filterSize, m, input, weight)
	if err != nil {
		return nil, err
	}
	if !gradWeight.Shape().Equal(weight.Shape()) {
		return nil, fmt.Errorf("%w: grad weight %v, weight %v", ErrShapeMismatch, gradWeight.Shape(), weight.Shape())
	}
	if nActive == 0 {
		return tensor.Zeros(tensor.Shape{0, nIn}, tensor.Float32, input.Device()), nil
	}
	if gradOutput.Dim(0) != nActive || gradOutput.Dim(1) != nOut {
		return nil, fmt.Errorf("%w: grad output %v, want [%d %d]", ErrShapeMismatch, gradOutput.Shape(), nActive, nOut)
	}

	tap := CentreTap(filterSize)
	in := denseFrom(input, nActive, nIn)
	gOut := denseFrom(gradOutput, nActive, nOut)
	w := tapFrom(weight, tap, nIn, nOut)

	// dInput = dOutput · W[centre]ᵀ
	var gIn mat.Dense
	gIn.Mul(gOut, w.T())

	// dW[centre] += inputᵀ · dOutput
	var gW mat.Dense
	gW.Mul(in.T(), gOut)
	dw := gradWeight.AsFloat32()[tap*nIn*nOut : (tap+1)*nIn*nOut]
	for i := 0; i < nIn; i++ {
		for j := 0; j < nOut; j++ {
			dw[i*nOut+j] += float32(gW.At(i, j))
		}
	}

	if gradBias != nil {
		db := gradBias.AsFloat32()
		for j := 0; j < nOut; j++ {
			db[j] += float32(mat.Sum(gOut.ColView(j)))
		}
	}

	return rawFrom(&gIn, nActive, nIn), nil
}

// check validates the arguments shared by forward and backward and returns
// (nActive, nIn, nOut).
func (e *MockEngine) check(filterSize Size, m Metadata, input, weight *tensor.RawTensor) (int, int, int, error) {
	meta, ok := m.(*MockMetadata)
	if !ok {
		return 0, 0, 0, fmt.Errorf("%w: got %T", ErrMetadataMismatch, m)
	}
	if len(weight.Shape()) != 3 {
		return 0, 0, 0, fmt.Errorf("%w: weight must be 3-D, got %v", ErrShapeMismatch, weight.Shape())
	}
	fv, nIn, nOut := weight.Dim(0), weight.Dim(1), weight.Dim(2)
	if fv != filterSize.Volume() {
		return 0, 0, 0, fmt.Errorf("%w: weight has %d taps, filter size %v has volume %d",
			ErrShapeMismatch, fv, filterSize, filterSize.Volume())
	}
	if meta.nActive > 0 && (input.Dim(0) != meta.nActive || input.Dim(1) != nIn) {
		return 0, 0, 0, fmt.Errorf("%w: input %v, want [%d %d]", ErrShapeMismatch, input.Shape(), meta.nActive, nIn)
	}
	return meta.nActive, nIn, nOut, nil
}

// denseFrom copies a float32 [rows, cols] tensor into a gonum matrix.
func denseFrom(t *tensor.RawTensor, rows, cols int) *mat.Dense {
	src := t.AsFloat32()
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = float64(src[i])
	}
	return mat.NewDense(rows, cols, data)
}

// tapFrom copies one [nIn, nOut] tap of a [taps, nIn, nOut] weight into a gonum matrix.
func tapFrom(weight *tensor.RawTensor, tap, nIn, nOut int) *mat.Dense {
	src := weight.AsFloat32()[tap*nIn*nOut : (tap+1)*nIn*nOut]
	data := make([]float64, nIn*nOut)
	for i := range data {
		data[i] = float64(src[i])
	}
	return mat.NewDense(nIn, nOut, data)
}

// rawFrom copies a gonum matrix into a new float32 tensor.
func rawFrom(m *mat.Dense, rows, cols int) *tensor.RawTensor {
	out := tensor.Zeros(tensor.Shape{rows, cols}, tensor.Float32, tensor.CPU)
	dst := out.AsFloat32()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			dst[i*cols+j] = float32(m.At(i, j))
		}
	}
	return out
}
