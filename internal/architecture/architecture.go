// Package architecture describes classifier architectures as configuration.
// Layer stacks are data consumed by an external training component; this
// package only validates them and infers the shapes they imply.
package architecture

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed presets.yaml
var presetsYAML []byte

// LayerType names a layer kind.
type LayerType string

const (
	LayerConv2D     LayerType = "conv2d"
	LayerPool       LayerType = "pool"
	LayerDropout    LayerType = "dropout"
	LayerFlatten    LayerType = "flatten"
	LayerDense      LayerType = "dense"
	LayerActivation LayerType = "activation"
)

// Data formats understood by the training component.
const (
	ChannelsFirst = "channels_first"
	ChannelsLast  = "channels_last"
)

// Losses supported by Validate.
const (
	LossBinary      = "binary_crossentropy"
	LossCategorical = "categorical_crossentropy"
)

const defaultOptimizer = "rmsprop"

var (
	optimizers  = []string{"rmsprop", "adam", "adadelta"}
	activations = []string{"", "linear", "relu", "sigmoid", "softmax", "tanh"}
)

// Layer is one entry of a sequential stack. Only the fields relevant to
// Type are read.
type Layer struct {
	Type       LayerType `yaml:"type"`
	Filters    int       `yaml:"filters,omitempty"`
	Kernel     int       `yaml:"kernel,omitempty"`
	Padding    string    `yaml:"padding,omitempty"`
	Activation string    `yaml:"activation,omitempty"`
	Pool       string    `yaml:"pool,omitempty"`
	PoolSize   int       `yaml:"pool_size,omitempty"`
	Rate       float64   `yaml:"rate,omitempty"`
	Units      int       `yaml:"units,omitempty"`
	MaxNorm    float64   `yaml:"max_norm,omitempty"`
}

// Architecture is a named sequential model definition.
type Architecture struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description,omitempty"`
	DataFormat  string  `yaml:"data_format"`
	Loss        string  `yaml:"loss"`
	Optimizer   string  `yaml:"optimizer,omitempty"`
	Layers      []Layer `yaml:"layers"`
}

type document struct {
	Architectures []Architecture `yaml:"architectures"`
}

var presets map[string]Architecture

func init() {
	archs, err := Parse(presetsYAML)
	if err != nil {
		// Embedded file, only a broken build can get here.
		panic("failed to parse embedded presets.yaml: " + err.Error())
	}
	presets = make(map[string]Architecture, len(archs))
	for _, a := range archs {
		presets[a.Name] = a
	}
}

// Names returns the preset names in sorted order.
func Names() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Presets returns all built-in architectures sorted by name.
func Presets() []Architecture {
	out := make([]Architecture, 0, len(presets))
	for _, name := range Names() {
		out = append(out, presets[name].clone())
	}
	return out
}

// Get returns a copy of the named preset.
func Get(name string) (Architecture, bool) {
	a, ok := presets[name]
	if !ok {
		return Architecture{}, false
	}
	return a.clone(), true
}

// Parse decodes a YAML document with a top-level "architectures" list,
// applies defaults and validates every entry. Names must be unique.
func Parse(data []byte) ([]Architecture, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse architectures: %w", err)
	}
	if len(doc.Architectures) == 0 {
		return nil, errors.New("no architectures defined")
	}

	seen := make(map[string]bool, len(doc.Architectures))
	out := make([]Architecture, 0, len(doc.Architectures))
	for _, a := range doc.Architectures {
		if seen[a.Name] {
			return nil, fmt.Errorf("architecture %q defined more than once", a.Name)
		}
		seen[a.Name] = true

		a = a.withDefaults()
		if err := a.Validate(); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// LoadFile reads and parses a YAML architectures file.
func LoadFile(path string) ([]Architecture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read architectures file: %w", err)
	}
	return Parse(data)
}

// withDefaults fills the data format and falls back to rmsprop for an
// empty or unsupported optimizer.
func (a Architecture) withDefaults() Architecture {
	if a.DataFormat == "" {
		a.DataFormat = ChannelsLast
	}
	if !slices.Contains(optimizers, a.Optimizer) {
		a.Optimizer = defaultOptimizer
	}
	for i := range a.Layers {
		l := &a.Layers[i]
		if l.Type == LayerConv2D && l.Padding == "" {
			l.Padding = "valid"
		}
		if l.Type == LayerPool && l.Pool == "" {
			l.Pool = "max"
		}
	}
	return a
}

func (a Architecture) clone() Architecture {
	a.Layers = slices.Clone(a.Layers)
	return a
}

// WithConvolutions overrides the number of feature maps and the kernel size
// of every convolution. Zero keeps the current value.
func (a Architecture) WithConvolutions(featureMaps, kernel int) Architecture {
	a = a.clone()
	for i := range a.Layers {
		if a.Layers[i].Type != LayerConv2D {
			continue
		}
		if featureMaps > 0 {
			a.Layers[i].Filters = featureMaps
		}
		if kernel > 0 {
			a.Layers[i].Kernel = kernel
		}
	}
	return a
}

// Validate checks the definition for internal consistency, including that
// the output layer matches the loss.
func (a Architecture) Validate() error {
	if a.Name == "" {
		return errors.New("architecture name is required")
	}
	if a.DataFormat != ChannelsFirst && a.DataFormat != ChannelsLast {
		return fmt.Errorf("%s: unknown data format %q", a.Name, a.DataFormat)
	}
	if len(a.Layers) == 0 {
		return fmt.Errorf("%s: no layers", a.Name)
	}

	for i, l := range a.Layers {
		if err := l.validate(); err != nil {
			return fmt.Errorf("%s: layer %d (%s): %w", a.Name, i, l.Type, err)
		}
	}

	return a.validateOutput()
}

func (l Layer) validate() error {
	if !slices.Contains(activations, l.Activation) {
		return fmt.Errorf("unknown activation %q", l.Activation)
	}

	switch l.Type {
	case LayerConv2D:
		if l.Filters <= 0 || l.Kernel <= 0 {
			return fmt.Errorf("filters and kernel must be positive, got %d and %d", l.Filters, l.Kernel)
		}
		if l.Padding != "valid" && l.Padding != "same" {
			return fmt.Errorf("unknown padding %q", l.Padding)
		}
	case LayerPool:
		if l.PoolSize <= 0 {
			return fmt.Errorf("pool size must be positive, got %d", l.PoolSize)
		}
		if l.Pool != "max" && l.Pool != "average" {
			return fmt.Errorf("unknown pooling %q", l.Pool)
		}
	case LayerDropout:
		if l.Rate < 0 || l.Rate >= 1 {
			return fmt.Errorf("dropout rate must be in [0,1), got %v", l.Rate)
		}
	case LayerDense:
		if l.Units <= 0 {
			return fmt.Errorf("units must be positive, got %d", l.Units)
		}
		if l.MaxNorm < 0 {
			return fmt.Errorf("max norm must not be negative, got %v", l.MaxNorm)
		}
	case LayerActivation:
		if l.Activation == "" {
			return errors.New("activation layer without activation")
		}
	case LayerFlatten:
	default:
		return fmt.Errorf("unknown layer type %q", l.Type)
	}
	return nil
}

func (a Architecture) validateOutput() error {
	last := -1
	for i, l := range a.Layers {
		if l.Type == LayerDense {
			last = i
		}
	}
	if last < 0 {
		return fmt.Errorf("%s: no dense output layer", a.Name)
	}

	units := a.Layers[last].Units
	activation := a.Layers[last].Activation
	for _, l := range a.Layers[last+1:] {
		switch l.Type {
		case LayerActivation:
			activation = l.Activation
		case LayerDropout:
		default:
			return fmt.Errorf("%s: %s layer after the output layer", a.Name, l.Type)
		}
	}

	switch a.Loss {
	case LossBinary:
		if units != 1 || activation != "sigmoid" {
			return fmt.Errorf("%s: %s needs 1 sigmoid output unit, got %d %s", a.Name, a.Loss, units, activation)
		}
	case LossCategorical:
		if units < 2 || activation != "softmax" {
			return fmt.Errorf("%s: %s needs at least 2 softmax output units, got %d %s", a.Name, a.Loss, units, activation)
		}
	default:
		return fmt.Errorf("%s: unknown loss %q", a.Name, a.Loss)
	}
	return nil
}
