package main

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/born-ml/sparseconv/internal/config"
	"github.com/born-ml/sparseconv/internal/sparse"
)

func describe(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("describe", flag.ContinueOnError)
	fs.SetOutput(stdout)
	path := fs.String("config", "", "network YAML file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return errors.New("describe: -config is required")
	}

	network, err := config.Load(*path)
	if err != nil {
		return err
	}
	seq, err := config.Build(network, sparse.NewMockEngine(), nil)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "dimension: %d\n", network.Dimension)
	fmt.Fprintln(stdout, seq.String())

	var total int
	for _, p := range seq.Parameters() {
		fmt.Fprintf(stdout, "  %-24s %v\n", p.Name(), p.Shape())
		total += p.Tensor().NumElements()
	}
	fmt.Fprintf(stdout, "parameters: %d\n", total)
	return nil
}
