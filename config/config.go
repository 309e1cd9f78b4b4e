// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package config loads YAML descriptions of submanifold convolution stacks
// and builds them on an engine.
package config

import (
	"github.com/born-ml/sparseconv/internal/config"
	"github.com/born-ml/sparseconv/internal/nn"
	"github.com/born-ml/sparseconv/internal/sparse"
)

// Network is a parsed network description.
type Network = config.Network

// Layer describes one convolution layer.
type Layer = config.Layer

// Filter is a filter size given as an integer or a list.
type Filter = config.Filter

// ErrInvalidConfig is returned when a description fails validation.
var ErrInvalidConfig = config.ErrInvalidConfig

// Load reads and validates a network description.
func Load(path string) (*Network, error) {
	return config.Load(path)
}

// Parse decodes and validates a network description.
func Parse(data []byte) (*Network, error) {
	return config.Parse(data)
}

// Build constructs the described stack on engine.
func Build[E sparse.Engine](n *Network, engine E, stats sparse.Stats) (*nn.Sequential, error) {
	return config.Build(n, engine, stats)
}
