package main

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/sparseconv/internal/config"
	"github.com/born-ml/sparseconv/internal/nn"
	"github.com/born-ml/sparseconv/internal/sparse"
)

const network = `
dimension: 2
seed: 3
stats: true
layers:
  - type: submanifold
    in: 2
    out: 4
    filter: 3
  - type: valid
    in: 4
    out: 1
    filter: [1, 3]
    bias: true
`

func writeNetwork(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "net.yaml")
	require.NoError(t, os.WriteFile(path, []byte(network), 0o600))
	return path
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRun_Version(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"version"}, &out, discard()))
	assert.Equal(t, "scn "+version+"\n", out.String())
}

func TestRun_Usage(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(nil, &out, discard()))
	assert.Contains(t, out.String(), "Commands:")

	err := run([]string{"serve"}, &out, discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown command "serve"`)
}

func TestRun_Describe(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"describe", "-config", writeNetwork(t)}, &out, discard()))

	text := out.String()
	assert.Contains(t, text, "dimension: 2")
	assert.Contains(t, text, "SubmanifoldConvolution 2->4 C3")
	assert.Contains(t, text, "ValidConvolution 4->1")
	assert.Contains(t, text, "valid1.bias")
	// 9*2*4 + 3*4*1 + 1
	assert.Contains(t, text, "parameters: 85")
}

func TestRun_DescribeRequiresConfig(t *testing.T) {
	err := run([]string{"describe"}, io.Discard, discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "-config is required")
}

func TestRun_Demo(t *testing.T) {
	path := writeNetwork(t)
	save := filepath.Join(t.TempDir(), "out.safetensors")

	var out bytes.Buffer
	err := run([]string{"demo", "-config", path, "-steps", "3", "-sites", "5", "-save", save}, &out, discard())
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "step   0")
	assert.Contains(t, text, "step   2")
	// Three steps over 5 sites: 5*2*4 + 5*4*1 multiply-adds each.
	assert.Contains(t, text, "multiply-adds: 180")
	assert.Contains(t, text, "hidden states: 75")

	n, err := config.Load(path)
	require.NoError(t, err)
	model, err := config.Build(n, sparse.NewMockEngine(), nil)
	require.NoError(t, err)
	desc, err := nn.LoadModule(save, model)
	require.NoError(t, err)
	assert.Equal(t, model.String(), desc)
}

func TestRun_DemoInvalidFlags(t *testing.T) {
	err := run([]string{"demo", "-config", writeNetwork(t), "-extent", "0"}, io.Discard, discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid steps")
}
