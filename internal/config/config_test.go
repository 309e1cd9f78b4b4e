package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/sparseconv/internal/nn"
	"github.com/born-ml/sparseconv/internal/sparse"
	"github.com/born-ml/sparseconv/internal/tensor"
)

const twoLayers = `
dimension: 2
seed: 7
stats: true
layers:
  - type: submanifold
    in: 3
    out: 16
    filter: 3
  - name: head
    type: valid
    in: 16
    out: 8
    filter: [3, 5]
    bias: true
`

func TestParse(t *testing.T) {
	n, err := Parse([]byte(twoLayers))
	require.NoError(t, err)

	assert.Equal(t, 2, n.Dimension)
	require.NotNil(t, n.Seed)
	assert.Equal(t, uint64(7), *n.Seed)
	assert.True(t, n.Stats)
	require.Len(t, n.Layers, 2)
	assert.Equal(t, Filter{3}, n.Layers[0].Filter)
	assert.Equal(t, Filter{3, 5}, n.Layers[1].Filter)
	assert.True(t, n.Layers[1].Bias)
	assert.Equal(t, 3, n.InChannels())
	assert.Equal(t, 8, n.OutChannels())
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		msg  string
	}{
		{"no dimension", "layers: [{type: valid, in: 1, out: 1, filter: 1}]", "dimension must be positive"},
		{"no layers", "dimension: 2", "no layers"},
		{"unknown type", "dimension: 1\nlayers: [{type: dense, in: 1, out: 1, filter: 1}]", `unknown type "dense"`},
		{"zero channels", "dimension: 1\nlayers: [{type: valid, in: 0, out: 1, filter: 1}]", "invalid channels"},
		{"missing filter", "dimension: 1\nlayers: [{type: valid, in: 1, out: 1}]", "missing filter"},
		{"filter arity", "dimension: 3\nlayers: [{type: valid, in: 1, out: 1, filter: [3, 3]}]", "layer 0"},
		{
			"broken chain",
			"dimension: 1\nlayers: [{type: valid, in: 1, out: 4, filter: 3}, {type: valid, in: 2, out: 1, filter: 3}]",
			"in=2 does not match previous out=4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestParse_BadFilterNode(t *testing.T) {
	_, err := Parse([]byte("dimension: 1\nlayers: [{type: valid, in: 1, out: 1, filter: {a: 1}}]"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected integer or list")
}

func TestParse_UnknownKey(t *testing.T) {
	_, err := Parse([]byte("dimension: 1\nlayers: [{type: valid, in: 1, out: 1, filter: 1, biass: true}]"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
	assert.Contains(t, err.Error(), "biass")

	_, err = Parse([]byte("dimension: 1\nseeds: 3\nlayers: [{type: valid, in: 1, out: 1, filter: 1}]"))
	assert.ErrorContains(t, err, "seeds")
}

func TestParse_Empty(t *testing.T) {
	_, err := Parse(nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte("dimension: [\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "net.yaml")
	require.NoError(t, os.WriteFile(path, []byte(twoLayers), 0o600))

	n, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, n.Layers, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestBuild(t *testing.T) {
	n, err := Parse([]byte(twoLayers))
	require.NoError(t, err)

	engine := sparse.NewMockEngine()
	stats := sparse.NewCounters()
	seq, err := Build(n, engine, stats)
	require.NoError(t, err)
	require.Equal(t, 2, seq.Len())

	first, ok := seq.Module(0).(*nn.SubmanifoldConvolution[*sparse.MockEngine])
	require.True(t, ok)
	assert.Equal(t, sparse.Size{3, 3}, first.FilterSize())
	assert.Nil(t, first.Bias())
	assert.Equal(t, "submanifold0.weight", first.Weight().Name())

	second := seq.Module(1).(*nn.ValidConvolution[*sparse.MockEngine])
	assert.Equal(t, sparse.Size{3, 5}, second.FilterSize())
	assert.Equal(t, "head.bias", second.Bias().Name())
	assert.Contains(t, second.String(), "ValidConvolution")

	features := tensor.Zeros(tensor.Shape{4, 3}, tensor.Float32, tensor.CPU)
	input := sparse.NewTensor(features, sparse.NewMockMetadata(2, 4), sparse.Size{10, 10}.ToTensor())
	_, err = seq.Forward(input)
	require.NoError(t, err)

	snap := stats.Snapshot()
	assert.Equal(t, int64(4*16+4*8), snap.HiddenStates)
	assert.InDelta(t, float64(4*3*16+4*16*8), snap.MultiplyAdds, 1e-9)
}

func TestBuild_Seeded(t *testing.T) {
	n, err := Parse([]byte(twoLayers))
	require.NoError(t, err)

	a, err := Build(n, sparse.NewMockEngine(), nil)
	require.NoError(t, err)
	b, err := Build(n, sparse.NewMockEngine(), nil)
	require.NoError(t, err)

	for i, p := range a.Parameters() {
		assert.Equal(t, p.Tensor().AsFloat32(), b.Parameters()[i].Tensor().AsFloat32())
	}
}

func TestBuild_StatsDisabled(t *testing.T) {
	n, err := Parse([]byte(twoLayers))
	require.NoError(t, err)
	n.Stats = false

	stats := sparse.NewCounters()
	seq, err := Build(n, sparse.NewMockEngine(), stats)
	require.NoError(t, err)

	features := tensor.Zeros(tensor.Shape{2, 3}, tensor.Float32, tensor.CPU)
	_, err = seq.Forward(sparse.NewTensor(features, sparse.NewMockMetadata(2, 2), sparse.Size{4, 4}.ToTensor()))
	require.NoError(t, err)
	assert.Zero(t, stats.Snapshot().HiddenStates)
}
