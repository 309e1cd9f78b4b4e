package nn

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"github.com/born-ml/sparseconv/internal/autodiff"
	"github.com/born-ml/sparseconv/internal/autodiff/ops"
	"github.com/born-ml/sparseconv/internal/sparse"
	"github.com/born-ml/sparseconv/internal/tensor"
)

// newInput builds a sparse tensor with nActive sites and nPlanes channels.
func newInput(t *testing.T, dimension, nActive, nPlanes int) *sparse.Tensor {
	t.Helper()
	features := tensor.Zeros(tensor.Shape{nActive, nPlanes}, tensor.Float32, tensor.CPU)
	data := features.AsFloat32()
	for i := range data {
		data[i] = float32(i%7) - 3
	}
	spatial := make(sparse.Size, dimension)
	for i := range spatial {
		spatial[i] = 16
	}
	return sparse.NewTensor(features, sparse.NewMockMetadata(dimension, nActive), spatial.ToTensor())
}

// TestSubmanifoldConvolution_Creation tests layer creation.
func TestSubmanifoldConvolution_Creation(t *testing.T) {
	engine := sparse.NewMockEngine()

	conv := NewSubmanifoldConvolution(3, 16, 32, 3, true, engine)

	assert.Equal(t, 3, conv.Dimension())
	assert.Equal(t, 16, conv.InChannels())
	assert.Equal(t, 32, conv.OutChannels())
	assert.Equal(t, sparse.Size{3, 3, 3}, conv.FilterSize())
	assert.Equal(t, 27, conv.FilterVolume())

	assert.Equal(t, tensor.Shape{27 * 16, 32}, conv.Weight().Shape())
	require.NotNil(t, conv.Bias())
	assert.Equal(t, tensor.Shape{32}, conv.Bias().Shape())
	assert.Len(t, conv.Parameters(), 2)
	assert.Same(t, engine, conv.Engine())
}

func TestSubmanifoldConvolution_NoBias(t *testing.T) {
	conv := NewSubmanifoldConvolution(2, 4, 8, []int{3, 5}, false, sparse.NewMockEngine())

	assert.Nil(t, conv.Bias())
	assert.Len(t, conv.Parameters(), 1)
	assert.Equal(t, tensor.Shape{15 * 4, 8}, conv.Weight().Shape())
	assert.NotContains(t, conv.StateDict(), "bias")
}

func TestSubmanifoldConvolution_WeightInit(t *testing.T) {
	conv := NewSubmanifoldConvolution(3, 8, 64, 3, true, sparse.NewMockEngine(), WithSource(rand.NewSource(1)))

	data := conv.Weight().Tensor().AsFloat32()
	var sum, sumSq float64
	for _, v := range data {
		sum += float64(v)
		sumSq += float64(v) * float64(v)
	}
	n := float64(len(data))
	mean := sum / n
	std := math.Sqrt(sumSq/n - mean*mean)

	want := math.Sqrt(2.0 / (8 * 27))
	assert.InDelta(t, 0, mean, 0.01)
	assert.InDelta(t, want, std, want*0.05)

	for _, v := range conv.Bias().Tensor().AsFloat32() {
		assert.Zero(t, v)
	}
}

func TestSubmanifoldConvolution_SeededInitIsReproducible(t *testing.T) {
	a := NewSubmanifoldConvolution(2, 2, 2, 3, false, sparse.NewMockEngine(), WithSource(rand.NewSource(42)))
	b := NewSubmanifoldConvolution(2, 2, 2, 3, false, sparse.NewMockEngine(), WithSource(rand.NewSource(42)))

	assert.Equal(t, a.Weight().Tensor().AsFloat32(), b.Weight().Tensor().AsFloat32())
}

func TestSubmanifoldConvolution_InvalidArgsPanic(t *testing.T) {
	engine := sparse.NewMockEngine()

	assert.Panics(t, func() { NewSubmanifoldConvolution(3, 0, 4, 3, false, engine) })
	assert.Panics(t, func() { NewSubmanifoldConvolution(3, 4, -1, 3, false, engine) })
	assert.Panics(t, func() { NewSubmanifoldConvolution(3, 4, 4, []int{3, 3}, false, engine) })
	assert.Panics(t, func() { NewSubmanifoldConvolution(2, 4, 4, 0, false, engine) })
	assert.Panics(t, func() { NewSubmanifoldConvolution(0, 4, 4, 3, false, engine) })
}

func TestSubmanifoldConvolution_ForwardSharesStructure(t *testing.T) {
	engine := sparse.NewMockEngine()
	conv := NewSubmanifoldConvolution(3, 4, 6, 3, true, engine)
	input := newInput(t, 3, 5, 4)

	output, err := conv.Forward(input)
	require.NoError(t, err)

	assert.Same(t, input.SpatialSize, output.SpatialSize)
	assert.Same(t, input.Metadata.(*sparse.MockMetadata), output.Metadata.(*sparse.MockMetadata))
	assert.NotSame(t, input.Features, output.Features)
	assert.Equal(t, tensor.Shape{5, 6}, output.Features.Shape())
}

func TestSubmanifoldConvolution_ForwardDelegation(t *testing.T) {
	engine := sparse.NewMockEngine()
	conv := NewSubmanifoldConvolution(2, 3, 2, []int{3, 5}, true, engine)
	input := newInput(t, 2, 4, 3)

	_, err := conv.Forward(input)
	require.NoError(t, err)

	call := engine.LastForward()
	require.NotNil(t, call)
	assert.Same(t, input.SpatialSize, call.SpatialSize)
	assert.Same(t, input.Features, call.Input)
	assert.Same(t, conv.Bias().Tensor(), call.Bias)
	assert.Equal(t, sparse.Size{3, 5}, call.FilterSize)

	// The engine sees a [filterVolume, nIn, nOut] view of the parameter.
	assert.Equal(t, tensor.Shape{15, 3, 2}, call.Weight.Shape())
	assert.True(t, call.Weight.SharesBuffer(conv.Weight().Tensor()))
}

func TestSubmanifoldConvolution_ForwardValues(t *testing.T) {
	engine := sparse.NewMockEngine()
	conv := NewSubmanifoldConvolution(1, 2, 1, 3, true, engine)

	// Centre tap weight = [[2], [3]], bias = 1.
	w := conv.Weight().Tensor().AsFloat32()
	for i := range w {
		w[i] = 100
	}
	tap := sparse.CentreTap(conv.FilterSize())
	w[tap*2], w[tap*2+1] = 2, 3
	conv.Bias().Tensor().AsFloat32()[0] = 1

	features, err := tensor.FromFloat32([]float32{1, 1, 0, 2}, tensor.Shape{2, 2})
	require.NoError(t, err)
	input := sparse.NewTensor(features, sparse.NewMockMetadata(1, 2), sparse.Size{8}.ToTensor())

	output, err := conv.Forward(input)
	require.NoError(t, err)

	assert.Equal(t, []float32{6, 7}, output.Features.AsFloat32())
}

func TestSubmanifoldConvolution_ChannelMismatchPanics(t *testing.T) {
	engine := sparse.NewMockEngine()
	conv := NewSubmanifoldConvolution(3, 4, 6, 3, false, engine)

	for _, planes := range []int{1, 3, 5, 8} {
		input := newInput(t, 3, 2, planes)
		assert.Panics(t, func() { _, _ = conv.Forward(input) }, "planes=%d", planes)
	}
	assert.Zero(t, engine.ForwardCalls(), "engine must not be called on a precondition failure")
}

func TestSubmanifoldConvolution_EmptyInput(t *testing.T) {
	engine := sparse.NewMockEngine()
	conv := NewSubmanifoldConvolution(2, 4, 6, 3, false, engine)

	// Zero rows with a mismatched column count is still accepted.
	features := tensor.Zeros(tensor.Shape{0, 9}, tensor.Float32, tensor.CPU)
	input := sparse.NewTensor(features, sparse.NewMockMetadata(2, 0), sparse.Size{4, 4}.ToTensor())

	output, err := conv.Forward(input)
	require.NoError(t, err)
	assert.Equal(t, 0, output.NumActive())
	assert.Equal(t, 1, engine.ForwardCalls())
}

func TestSubmanifoldConvolution_EngineErrorReturned(t *testing.T) {
	conv := NewSubmanifoldConvolution(2, 4, 6, 3, false, sparse.NewMockEngine())
	input := newInput(t, 2, 3, 4)
	input.Metadata = sparse.NewMockMetadata(2, 7) // disagrees with the feature rows

	_, err := conv.Forward(input)
	assert.ErrorIs(t, err, sparse.ErrShapeMismatch)
}

func TestSubmanifoldConvolution_Stats(t *testing.T) {
	stats := sparse.NewCounters()
	engine := sparse.NewMockEngine()
	a := NewSubmanifoldConvolution(3, 4, 6, 3, false, engine, WithStats(stats))
	b := NewSubmanifoldConvolution(3, 6, 2, 3, true, engine, WithStats(stats))

	h, err := a.Forward(newInput(t, 3, 5, 4))
	require.NoError(t, err)
	_, err = b.Forward(h)
	require.NoError(t, err)

	snap := stats.Snapshot()
	assert.InDelta(t, 5*4*6+5*6*2, snap.MultiplyAdds, 1e-9)
	assert.Equal(t, int64(5*6+5*2), snap.HiddenStates)
}

func TestSubmanifoldConvolution_String(t *testing.T) {
	engine := sparse.NewMockEngine()

	assert.Equal(t, "SubmanifoldConvolution 16->32 C3",
		NewSubmanifoldConvolution(3, 16, 32, 3, false, engine).String())
	assert.Equal(t, "SubmanifoldConvolution 1->8 C(3,5)",
		NewSubmanifoldConvolution(2, 1, 8, []int{3, 5}, false, engine).Describe())
	assert.Equal(t, "ValidConvolution 2->2 C(1,3,3)",
		NewValidConvolution(3, 2, 2, []int{1, 3, 3}, false, engine).String())
}

func TestSubmanifoldConvolution_InputSpatialSizeIsIdentity(t *testing.T) {
	conv := NewSubmanifoldConvolution(3, 1, 1, 3, false, sparse.NewMockEngine())

	for _, size := range []sparse.Size{{1, 1, 1}, {16, 16, 16}, {7, 31, 127}} {
		assert.Equal(t, size, conv.InputSpatialSize(size))
	}
}

func TestValidConvolution_SameBehavior(t *testing.T) {
	sub := NewSubmanifoldConvolution(2, 3, 4, 3, true, sparse.NewMockEngine(), WithSource(rand.NewSource(5)))
	valid := NewValidConvolution(2, 3, 4, 3, true, sparse.NewMockEngine(), WithSource(rand.NewSource(5)))
	input := newInput(t, 2, 6, 3)

	a, err := sub.Forward(input)
	require.NoError(t, err)
	b, err := valid.Forward(input)
	require.NoError(t, err)

	assert.Equal(t, a.Features.AsFloat32(), b.Features.AsFloat32())
	assert.Equal(t, "ValidConvolution", valid.Label())
}

func TestSubmanifoldConvolution_Backward(t *testing.T) {
	engine := autodiff.New(sparse.NewMockEngine())
	conv := NewSubmanifoldConvolution(2, 3, 2, 3, true, engine)
	input := newInput(t, 2, 4, 3)

	engine.Tape().StartRecording()
	output, err := conv.Forward(input)
	require.NoError(t, err)

	grads, err := autodiff.Backward(engine, output.Features, nil)
	require.NoError(t, err)
	require.NoError(t, CollectGrads(conv.Parameters(), grads))

	gradW := conv.Weight().Grad()
	require.NotNil(t, gradW)
	assert.Equal(t, conv.Weight().Shape(), gradW.Shape())

	// Bias gradient of sum(output) is the number of active sites per channel.
	assert.Equal(t, []float32{4, 4}, conv.Bias().Grad().AsFloat32())

	gradIn := grads[input.Features]
	require.NotNil(t, gradIn)
	assert.Equal(t, input.Features.Shape(), gradIn.Shape())

	// Only the centre tap of the mock engine receives gradient: column sums of the input.
	tap := sparse.CentreTap(conv.FilterSize())
	in := input.Features.AsFloat32()
	g := gradW.AsFloat32()
	for i := 0; i < 3; i++ {
		var colSum float32
		for r := 0; r < 4; r++ {
			colSum += in[r*3+i]
		}
		for o := 0; o < 2; o++ {
			assert.InDelta(t, colSum, g[(tap*3+i)*2+o], 1e-5)
		}
	}

	assert.Equal(t, 1, engine.Inner().BackwardCalls())
}

func TestSubmanifoldConvolution_BackwardWithoutBias(t *testing.T) {
	engine := autodiff.New(sparse.NewMockEngine())
	conv := NewSubmanifoldConvolution(1, 2, 2, 3, false, engine)

	engine.Tape().StartRecording()
	output, err := conv.Forward(newInput(t, 1, 3, 2))
	require.NoError(t, err)

	grads, err := autodiff.Backward(engine, output.Features, nil)
	require.NoError(t, err)
	require.NoError(t, CollectGrads(conv.Parameters(), grads))

	assert.NotNil(t, conv.Weight().Grad())
	assert.Nil(t, conv.Bias())
}

func TestSubmanifoldConvolution_BackwardAfterWeightUpdateFails(t *testing.T) {
	engine := autodiff.New(sparse.NewMockEngine())
	conv := NewSubmanifoldConvolution(1, 1, 1, 1, true, engine)
	fresh := NewSubmanifoldConvolution(1, 1, 1, 1, true, engine)

	engine.Tape().StartRecording()
	output, err := conv.Forward(newInput(t, 1, 2, 1))
	require.NoError(t, err)

	// Loading new weights between forward and backward invalidates the saved state.
	require.NoError(t, conv.LoadStateDict(fresh.StateDict()))

	_, err = autodiff.Backward(engine, output.Features, nil)
	require.ErrorIs(t, err, ops.ErrModified)
	assert.Contains(t, err.Error(), "weight")
	assert.Zero(t, engine.Inner().BackwardCalls())
}
