// Package config loads YAML descriptions of submanifold convolution stacks.
//
// A network file looks like:
//
//	dimension: 2
//	seed: 42
//	stats: true
//	layers:
//	  - type: submanifold
//	    in: 3
//	    out: 16
//	    filter: 3
//	  - type: valid
//	    in: 16
//	    out: 8
//	    filter: [3, 5]
//	    bias: true
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/exp/rand"
	"gopkg.in/yaml.v3"

	"github.com/born-ml/sparseconv/internal/nn"
	"github.com/born-ml/sparseconv/internal/sparse"
)

// Layer types accepted in a network file.
const (
	LayerSubmanifold = "submanifold"
	LayerValid       = "valid"
)

// ErrInvalidConfig is returned when a network description fails validation.
var ErrInvalidConfig = errors.New("invalid network config")

// Network is a parsed network description.
type Network struct {
	Dimension int     `yaml:"dimension"`
	Seed      *uint64 `yaml:"seed,omitempty"`
	Stats     bool    `yaml:"stats"`
	Layers    []Layer `yaml:"layers"`
}

// Layer describes one convolution layer.
type Layer struct {
	Name   string `yaml:"name,omitempty"`
	Type   string `yaml:"type"`
	In     int    `yaml:"in"`
	Out    int    `yaml:"out"`
	Filter Filter `yaml:"filter"`
	Bias   bool   `yaml:"bias"`
}

// Filter is a filter size given either as a single integer or as a list
// with one entry per spatial dimension.
type Filter []int

// UnmarshalYAML accepts both `filter: 3` and `filter: [3, 5]`.
func (f *Filter) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var n int
		if err := node.Decode(&n); err != nil {
			return fmt.Errorf("filter: %w", err)
		}
		*f = Filter{n}
		return nil
	case yaml.SequenceNode:
		var list []int
		if err := node.Decode(&list); err != nil {
			return fmt.Errorf("filter: %w", err)
		}
		*f = list
		return nil
	default:
		return fmt.Errorf("filter: expected integer or list at line %d", node.Line)
	}
}

// size returns the filter in the form sparse.ParseSize expects. A single
// entry is expanded to every dimension.
func (f Filter) size() any {
	if len(f) == 1 {
		return f[0]
	}
	return []int(f)
}

// Load reads and validates a network description from path.
func Load(path string) (*Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a network description.
// Unknown keys are rejected.
func Parse(data []byte) (*Network, error) {
	var n Network
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&n); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}
	return &n, nil
}

// Validate checks the description without building anything.
//
// Channel counts must chain: each layer's in equals the previous layer's out.
func (n *Network) Validate() error {
	if n.Dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive, got %d", ErrInvalidConfig, n.Dimension)
	}
	if len(n.Layers) == 0 {
		return fmt.Errorf("%w: no layers", ErrInvalidConfig)
	}

	for i, l := range n.Layers {
		switch l.Type {
		case LayerSubmanifold, LayerValid:
		default:
			return fmt.Errorf("%w: layer %d: unknown type %q", ErrInvalidConfig, i, l.Type)
		}
		if l.In <= 0 || l.Out <= 0 {
			return fmt.Errorf("%w: layer %d: invalid channels in=%d, out=%d", ErrInvalidConfig, i, l.In, l.Out)
		}
		if len(l.Filter) == 0 {
			return fmt.Errorf("%w: layer %d: missing filter", ErrInvalidConfig, i)
		}
		if _, err := sparse.ParseSize(n.Dimension, l.Filter.size()); err != nil {
			return fmt.Errorf("%w: layer %d: %w", ErrInvalidConfig, i, err)
		}
		if i > 0 && n.Layers[i-1].Out != l.In {
			return fmt.Errorf("%w: layer %d: in=%d does not match previous out=%d",
				ErrInvalidConfig, i, l.In, n.Layers[i-1].Out)
		}
	}
	return nil
}

// InChannels returns the channel count the first layer expects.
func (n *Network) InChannels() int {
	return n.Layers[0].In
}

// OutChannels returns the channel count the last layer produces.
func (n *Network) OutChannels() int {
	return n.Layers[len(n.Layers)-1].Out
}

// Build constructs the described stack on engine.
//
// stats receives profiling counts when the description enables them;
// a nil stats disables profiling regardless.
func Build[E sparse.Engine](n *Network, engine E, stats sparse.Stats) (*nn.Sequential, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}

	var src rand.Source
	if n.Seed != nil {
		src = rand.NewSource(*n.Seed)
	}

	seq := nn.NewSequential()
	for i, l := range n.Layers {
		name := l.Name
		if name == "" {
			name = fmt.Sprintf("%s%d", l.Type, i)
		}
		opts := []nn.Option{nn.WithName(name)}
		if src != nil {
			opts = append(opts, nn.WithSource(src))
		}
		if n.Stats && stats != nil {
			opts = append(opts, nn.WithStats(stats))
		}

		switch l.Type {
		case LayerSubmanifold:
			seq.Add(nn.NewSubmanifoldConvolution(n.Dimension, l.In, l.Out, l.Filter.size(), l.Bias, engine, opts...))
		case LayerValid:
			seq.Add(nn.NewValidConvolution(n.Dimension, l.In, l.Out, l.Filter.size(), l.Bias, engine, opts...))
		}
	}
	return seq, nil
}
