package nn

import (
	"fmt"

	"golang.org/x/exp/rand"

	"github.com/born-ml/sparseconv/internal/sparse"
	"github.com/born-ml/sparseconv/internal/tensor"
)

const (
	submanifoldLabel = "SubmanifoldConvolution"
	validLabel       = "ValidConvolution"
)

// Option configures a sparse convolution layer.
type Option func(*layerOptions)

type layerOptions struct {
	stats sparse.Stats
	src   rand.Source
	name  string
}

// WithStats sets the sink that receives multiply-add and hidden-state counts
// after every forward pass. Without it the counts are discarded.
func WithStats(stats sparse.Stats) Option {
	return func(o *layerOptions) {
		o.stats = stats
	}
}

// WithSource sets the random source used for weight initialization.
func WithSource(src rand.Source) Option {
	return func(o *layerOptions) {
		o.src = src
	}
}

// WithName sets the prefix of the layer's parameter names
// ("<name>.weight", "<name>.bias"). The name is for display only: state dict
// keys stay "weight" and "bias", so checkpoints do not depend on layer names.
func WithName(name string) Option {
	return func(o *layerOptions) {
		o.name = name
	}
}

// SubmanifoldConvolution is a sparse convolution that preserves the set of
// active sites: output features live on exactly the input's sites, so the
// output shares the input's metadata and spatial size.
//
// The layer holds the parameters and validates shapes; the engine does all
// numeric work.
//
// Shapes:
//
//	Input features:  [nActive, in_channels]
//	Weight:          [filter_volume * in_channels, out_channels]
//	Weight (engine): [filter_volume, in_channels, out_channels] view
//	Bias:            [out_channels] or nil
//	Output features: [nActive, out_channels]
//
// Example:
//
//	// 3-D, 16 -> 32 channels, 3x3x3 filter, no bias
//	conv := nn.NewSubmanifoldConvolution(3, 16, 32, 3, false, engine)
//	out, err := conv.Forward(input)
type SubmanifoldConvolution[E sparse.Engine] struct {
	label        string
	dimension    int
	inChannels   int
	outChannels  int
	filterSize   sparse.Size
	filterVolume int

	weight *Parameter // [filter_volume * in_channels, out_channels]
	bias   *Parameter // [out_channels] or nil

	engine E
	stats  sparse.Stats
}

// ValidConvolution is the same layer under its historical name.
type ValidConvolution[E sparse.Engine] = SubmanifoldConvolution[E]

// NewSubmanifoldConvolution creates a submanifold sparse convolution layer.
//
// Parameters:
//   - dimension: Number of spatial dimensions
//   - inChannels, outChannels: Feature planes in and out
//   - filterSize: int (same extent in every dimension), []int or sparse.Size
//   - useBias: Whether to include a bias term
//   - engine: Sparse convolution engine doing the numeric work
//
// Initialization:
//   - Weights: He normal, std = sqrt(2 / (inChannels * filterVolume))
//   - Bias: Zeros
//
// Panics on malformed arguments.
func NewSubmanifoldConvolution[E sparse.Engine](
	dimension, inChannels, outChannels int,
	filterSize any,
	useBias bool,
	engine E,
	opts ...Option,
) *SubmanifoldConvolution[E] {
	return newConvolution(submanifoldLabel, dimension, inChannels, outChannels, filterSize, useBias, engine, opts)
}

// NewValidConvolution creates a ValidConvolution, identical in behavior to
// NewSubmanifoldConvolution.
func NewValidConvolution[E sparse.Engine](
	dimension, inChannels, outChannels int,
	filterSize any,
	useBias bool,
	engine E,
	opts ...Option,
) *ValidConvolution[E] {
	return newConvolution(validLabel, dimension, inChannels, outChannels, filterSize, useBias, engine, opts)
}

func newConvolution[E sparse.Engine](
	label string,
	dimension, inChannels, outChannels int,
	filterSize any,
	useBias bool,
	engine E,
	opts []Option,
) *SubmanifoldConvolution[E] {
	if inChannels <= 0 || outChannels <= 0 {
		panic(fmt.Sprintf("submanifold: invalid channels in=%d, out=%d", inChannels, outChannels))
	}
	size, err := sparse.ParseSize(dimension, filterSize)
	if err != nil {
		panic(fmt.Sprintf("submanifold: %v", err))
	}

	o := layerOptions{
		stats: sparse.NopStats{},
		name:  label,
	}
	for _, opt := range opts {
		opt(&o)
	}

	filterVolume := size.Volume()

	weight := HeNormal(inChannels*filterVolume, tensor.Shape{filterVolume * inChannels, outChannels}, o.src)
	weightParam := NewParameter(o.name+".weight", weight)

	var biasParam *Parameter
	if useBias {
		biasParam = NewParameter(o.name+".bias", Zeros(tensor.Shape{outChannels}))
	}

	return &SubmanifoldConvolution[E]{
		label:        label,
		dimension:    dimension,
		inChannels:   inChannels,
		outChannels:  outChannels,
		filterSize:   size,
		filterVolume: filterVolume,
		weight:       weightParam,
		bias:         biasParam,
		engine:       engine,
		stats:        o.stats,
	}
}

// Forward performs the forward pass.
//
// Input features must have in_channels columns, or no elements at all.
// A mismatch is a programming error and panics before the engine is called.
//
// The returned tensor shares input's Metadata and SpatialSize by reference.
// Engine failures are returned as errors.
func (c *SubmanifoldConvolution[E]) Forward(input *sparse.Tensor) (*sparse.Tensor, error) {
	if input == nil || input.Features == nil {
		panic("submanifold: nil input")
	}
	if !input.Empty() && input.NumPlanes() != c.inChannels {
		panic(fmt.Sprintf("submanifold: input channels %d != expected %d", input.NumPlanes(), c.inChannels))
	}

	weightView, err := c.engine.Reshape(
		c.weight.Tensor(),
		tensor.Shape{c.filterVolume, c.inChannels, c.outChannels},
	)
	if err != nil {
		return nil, fmt.Errorf("submanifold: weight view: %w", err)
	}

	var bias *tensor.RawTensor
	if c.bias != nil {
		bias = c.bias.Tensor()
	}

	features, multiplyAdds, err := c.engine.SubmanifoldConvolutionForward(
		input.SpatialSize,
		c.filterSize,
		input.Metadata,
		input.Features,
		weightView,
		bias,
	)
	if err != nil {
		return nil, fmt.Errorf("submanifold: %s forward: %w", c.engine.Name(), err)
	}

	c.stats.AddMultiplyAdds(multiplyAdds)
	c.stats.AddHiddenStates(features.NumElements())

	return input.WithFeatures(features), nil
}

// InputSpatialSize returns outputSize: submanifold convolution preserves
// spatial size.
func (c *SubmanifoldConvolution[E]) InputSpatialSize(outputSize sparse.Size) sparse.Size {
	return outputSize
}

// Parameters returns all trainable parameters.
func (c *SubmanifoldConvolution[E]) Parameters() []*Parameter {
	if c.bias != nil {
		return []*Parameter{c.weight, c.bias}
	}
	return []*Parameter{c.weight}
}

// String returns a one-line description, e.g. "SubmanifoldConvolution 16->32 C3"
// or "SubmanifoldConvolution 16->32 C(3,5)".
func (c *SubmanifoldConvolution[E]) String() string {
	return fmt.Sprintf("%s %d->%d C%s", c.label, c.inChannels, c.outChannels, c.filterSize)
}

// Describe is an alias for String.
func (c *SubmanifoldConvolution[E]) Describe() string {
	return c.String()
}

// Label returns the layer name used in descriptions.
func (c *SubmanifoldConvolution[E]) Label() string {
	return c.label
}

// Dimension returns the number of spatial dimensions.
func (c *SubmanifoldConvolution[E]) Dimension() int {
	return c.dimension
}

// InChannels returns the number of input channels.
func (c *SubmanifoldConvolution[E]) InChannels() int {
	return c.inChannels
}

// OutChannels returns the number of output channels.
func (c *SubmanifoldConvolution[E]) OutChannels() int {
	return c.outChannels
}

// FilterSize returns a copy of the filter extents.
func (c *SubmanifoldConvolution[E]) FilterSize() sparse.Size {
	return c.filterSize.Clone()
}

// FilterVolume returns the product of the filter extents.
func (c *SubmanifoldConvolution[E]) FilterVolume() int {
	return c.filterVolume
}

// Weight returns the weight parameter.
func (c *SubmanifoldConvolution[E]) Weight() *Parameter {
	return c.weight
}

// Bias returns the bias parameter, or nil when the layer has no bias.
func (c *SubmanifoldConvolution[E]) Bias() *Parameter {
	return c.bias
}

// Engine returns the engine the layer delegates to.
func (c *SubmanifoldConvolution[E]) Engine() E {
	return c.engine
}

// StateDict returns the parameters keyed "weight" and "bias", independent of
// the name set with WithName.
func (c *SubmanifoldConvolution[E]) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor)
	stateDict["weight"] = c.weight.Tensor()
	if c.bias != nil {
		stateDict["bias"] = c.bias.Tensor()
	}
	return stateDict
}

// LoadStateDict copies parameters from a state dictionary keyed "weight" and
// "bias". Missing or unexpected keys are errors.
func (c *SubmanifoldConvolution[E]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	for key := range stateDict {
		if key != "weight" && (key != "bias" || c.bias == nil) {
			return fmt.Errorf("unexpected %s in state dict", key)
		}
	}
	if err := loadInto(c.weight, stateDict["weight"], "weight"); err != nil {
		return err
	}
	if c.bias != nil {
		if err := loadInto(c.bias, stateDict["bias"], "bias"); err != nil {
			return err
		}
	}
	return nil
}

// loadInto validates raw against p and copies its values.
func loadInto(p *Parameter, raw *tensor.RawTensor, key string) error {
	if raw == nil {
		return fmt.Errorf("missing %s in state dict", key)
	}
	if !raw.Shape().Equal(p.Shape()) {
		return fmt.Errorf("%s shape mismatch: expected %v, got %v", key, p.Shape(), raw.Shape())
	}
	if raw.DType() != tensor.Float32 {
		return fmt.Errorf("%s dtype mismatch: expected float32, got %v", key, raw.DType())
	}
	copy(p.Tensor().AsFloat32(), raw.AsFloat32())
	p.Tensor().MarkModified()
	return nil
}
