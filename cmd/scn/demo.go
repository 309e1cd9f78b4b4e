package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/exp/rand"

	"github.com/born-ml/sparseconv/internal/autodiff"
	"github.com/born-ml/sparseconv/internal/config"
	"github.com/born-ml/sparseconv/internal/nn"
	"github.com/born-ml/sparseconv/internal/optim"
	"github.com/born-ml/sparseconv/internal/sparse"
	"github.com/born-ml/sparseconv/internal/tensor"
)

type demoOptions struct {
	config   string
	steps    int
	sites    int
	extent   int
	lr       float64
	momentum float64
	seed     uint64
	save     string
}

func demo(args []string, stdout io.Writer, logger *slog.Logger) error {
	var o demoOptions
	fs := flag.NewFlagSet("demo", flag.ContinueOnError)
	fs.SetOutput(stdout)
	fs.StringVar(&o.config, "config", "", "network YAML file")
	fs.IntVar(&o.steps, "steps", 10, "number of training steps")
	fs.IntVar(&o.sites, "sites", 64, "number of active sites in the synthetic input")
	fs.IntVar(&o.extent, "extent", 32, "spatial extent along every dimension")
	fs.Float64Var(&o.lr, "lr", 0.01, "learning rate")
	fs.Float64Var(&o.momentum, "momentum", 0.9, "SGD momentum")
	fs.Uint64Var(&o.seed, "seed", 1, "seed for the synthetic input")
	fs.StringVar(&o.save, "save", "", "write trained parameters to this SafeTensors file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if o.config == "" {
		return errors.New("demo: -config is required")
	}
	if o.steps < 0 || o.sites < 0 || o.extent <= 0 {
		return fmt.Errorf("demo: invalid steps=%d sites=%d extent=%d", o.steps, o.sites, o.extent)
	}

	network, err := config.Load(o.config)
	if err != nil {
		return err
	}

	engine := autodiff.New(sparse.NewMockEngine())
	counters := sparse.NewCounters()
	model, err := config.Build(network, engine, counters)
	if err != nil {
		return err
	}
	logger.Info("model built", "engine", engine.Name(), "layers", model.Len())

	input := syntheticInput(network, o)
	optimizer := optim.NewSGD(model.Parameters(), optim.SGDConfig{
		LR:       float32(o.lr),
		Momentum: float32(o.momentum),
	})

	for step := range o.steps {
		loss, err := trainStep(engine, model, optimizer, input)
		if err != nil {
			return fmt.Errorf("step %d: %w", step, err)
		}
		fmt.Fprintf(stdout, "step %3d  loss %.6f\n", step, loss)
	}

	snap := counters.Snapshot()
	fmt.Fprintf(stdout, "multiply-adds: %.0f\n", snap.MultiplyAdds)
	fmt.Fprintf(stdout, "hidden states: %d\n", snap.HiddenStates)

	if o.save != "" {
		if err := nn.SaveModule(o.save, model); err != nil {
			return err
		}
		logger.Info("parameters saved", "path", o.save)
	}
	return nil
}

func syntheticInput(network *config.Network, o demoOptions) *sparse.Tensor {
	src := rand.NewSource(o.seed)
	features := tensor.Normal(tensor.Shape{o.sites, network.InChannels()}, 0, 1, src)

	spatial := make(sparse.Size, network.Dimension)
	for i := range spatial {
		spatial[i] = o.extent
	}
	return sparse.NewTensor(features, sparse.NewMockMetadata(network.Dimension, o.sites), spatial.ToTensor())
}

// trainStep fits the output towards zero under a mean squared loss.
func trainStep[E sparse.Engine](
	engine *autodiff.Engine[E],
	model *nn.Sequential,
	optimizer optim.Optimizer,
	input *sparse.Tensor,
) (float32, error) {
	tape := engine.Tape()
	tape.StartRecording()
	defer tape.Clear()

	out, err := model.Forward(input)
	if err != nil {
		return 0, err
	}

	values := out.Features.AsFloat32()
	if len(values) == 0 {
		return 0, nil
	}
	grad := tensor.ZerosLike(out.Features)
	g := grad.AsFloat32()
	n := float32(len(values))
	var loss float32
	for i, v := range values {
		loss += v * v / n
		g[i] = 2 * v / n
	}

	grads, err := autodiff.Backward(engine, out.Features, grad)
	if err != nil {
		return 0, err
	}
	if err := nn.CollectGrads(model.Parameters(), grads); err != nil {
		return 0, err
	}

	optimizer.Step()
	optimizer.ZeroGrad()
	return loss, nil
}
