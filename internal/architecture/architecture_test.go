package architecture

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestPresets_AllValid(t *testing.T) {
	want := []string{"chicago", "denver", "newyork", "phoenix", "seattle"}
	if got := Names(); !slices.Equal(got, want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}

	for _, a := range Presets() {
		t.Run(a.Name, func(t *testing.T) {
			if err := a.Validate(); err != nil {
				t.Errorf("Validate() error = %v", err)
			}
			if _, err := a.Shapes(32, 6); err != nil {
				t.Errorf("Shapes(32, 6) error = %v", err)
			}
		})
	}
}

func TestGet_ReturnsCopy(t *testing.T) {
	a, ok := Get("chicago")
	if !ok {
		t.Fatal("chicago preset missing")
	}
	a.Layers[0].Filters = 999

	b, _ := Get("chicago")
	if b.Layers[0].Filters == 999 {
		t.Error("modifying a returned preset changed the registry")
	}

	if _, ok := Get("boston"); ok {
		t.Error("expected unknown preset to be missing")
	}
}

func TestShapes_Chicago(t *testing.T) {
	a, _ := Get("chicago")

	shapes, err := a.Shapes(32, 6)
	if err != nil {
		t.Fatalf("Shapes() error = %v", err)
	}

	want := [][]int{
		{32, 30, 30},
		{32, 15, 15},
		{32, 13, 13},
		{32, 6, 6},
		{1152},
		{128},
		{2},
	}
	if len(shapes) != len(want) {
		t.Fatalf("got %d shapes, want %d", len(shapes), len(want))
	}
	for i := range want {
		if !slices.Equal(shapes[i].Output, want[i]) {
			t.Errorf("layer %d output = %v, want %v", i, shapes[i].Output, want[i])
		}
	}

	params, err := a.ParamCount(32, 6)
	if err != nil {
		t.Fatalf("ParamCount() error = %v", err)
	}
	if params != 158850 {
		t.Errorf("ParamCount() = %d, want 158850", params)
	}
}

func TestShapes_SeattleChannelsLast(t *testing.T) {
	a, _ := Get("seattle")

	shapes, err := a.Shapes(32, 6)
	if err != nil {
		t.Fatalf("Shapes() error = %v", err)
	}
	if got := shapes[0].Output; !slices.Equal(got, []int{32, 32, 32}) {
		t.Errorf("first conv output = %v, want [32 32 32]", got)
	}
	if got := shapes[2].Output; !slices.Equal(got, []int{16, 16, 32}) {
		t.Errorf("pool output = %v, want [16 16 32]", got)
	}
	if got := shapes[len(shapes)-1].Output; !slices.Equal(got, []int{1}) {
		t.Errorf("output = %v, want [1]", got)
	}

	params, _ := a.ParamCount(32, 6)
	if want := 4832 + 25632 + 1048704 + 129; params != want {
		t.Errorf("ParamCount() = %d, want %d", params, want)
	}
}

func TestShapes_Phoenix(t *testing.T) {
	a, _ := Get("phoenix")
	params, err := a.ParamCount(32, 6)
	if err != nil {
		t.Fatalf("ParamCount() error = %v", err)
	}
	if params != 12290 {
		t.Errorf("ParamCount() = %d, want 12290", params)
	}
}

func TestShapes_TooSmallInput(t *testing.T) {
	doc := `
architectures:
  - name: deep-valid
    data_format: channels_first
    loss: categorical_crossentropy
    layers:
      - {type: conv2d, filters: 8, kernel: 3}
      - {type: conv2d, filters: 8, kernel: 3}
      - {type: pool, pool_size: 2}
      - {type: conv2d, filters: 8, kernel: 3}
      - {type: conv2d, filters: 8, kernel: 3}
      - {type: pool, pool_size: 2}
      - {type: conv2d, filters: 8, kernel: 3}
      - {type: conv2d, filters: 8, kernel: 3}
      - {type: pool, pool_size: 2}
      - {type: flatten}
      - {type: dense, units: 2, activation: softmax}
`
	archs, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if _, err := archs[0].Shapes(32, 6); err == nil || !strings.Contains(err.Error(), "too small") {
		t.Errorf("Shapes(32) error = %v, want too small", err)
	}
	if _, err := archs[0].Shapes(64, 6); err != nil {
		t.Errorf("Shapes(64) error = %v", err)
	}
}

func TestShapes_InvalidInput(t *testing.T) {
	a, _ := Get("denver")
	if _, err := a.Shapes(0, 6); err == nil {
		t.Error("expected error for zero input size")
	}
}

func TestParse_Defaults(t *testing.T) {
	doc := `
architectures:
  - name: tiny
    loss: binary_crossentropy
    optimizer: sgd
    layers:
      - {type: conv2d, filters: 4, kernel: 3}
      - {type: pool, pool_size: 2}
      - {type: flatten}
      - {type: dense, units: 1}
      - {type: activation, activation: sigmoid}
`
	archs, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	a := archs[0]
	if a.DataFormat != ChannelsLast {
		t.Errorf("DataFormat = %q, want %q", a.DataFormat, ChannelsLast)
	}
	if a.Optimizer != "rmsprop" {
		t.Errorf("Optimizer = %q, want rmsprop", a.Optimizer)
	}
	if a.Layers[0].Padding != "valid" {
		t.Errorf("Padding = %q, want valid", a.Layers[0].Padding)
	}
	if a.Layers[1].Pool != "max" {
		t.Errorf("Pool = %q, want max", a.Layers[1].Pool)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", `architectures: []`},
		{"duplicate name", `
architectures:
  - {name: a, loss: categorical_crossentropy, layers: [{type: flatten}, {type: dense, units: 2, activation: softmax}]}
  - {name: a, loss: categorical_crossentropy, layers: [{type: flatten}, {type: dense, units: 2, activation: softmax}]}
`},
		{"binary loss with two units", `
architectures:
  - {name: a, loss: binary_crossentropy, layers: [{type: flatten}, {type: dense, units: 2, activation: softmax}]}
`},
		{"categorical loss with sigmoid", `
architectures:
  - {name: a, loss: categorical_crossentropy, layers: [{type: flatten}, {type: dense, units: 1, activation: sigmoid}]}
`},
		{"unknown loss", `
architectures:
  - {name: a, loss: hinge, layers: [{type: flatten}, {type: dense, units: 2, activation: softmax}]}
`},
		{"bad dropout", `
architectures:
  - {name: a, loss: categorical_crossentropy, layers: [{type: dropout, rate: 1.5}, {type: flatten}, {type: dense, units: 2, activation: softmax}]}
`},
		{"unknown layer", `
architectures:
  - {name: a, loss: categorical_crossentropy, layers: [{type: lstm}, {type: flatten}, {type: dense, units: 2, activation: softmax}]}
`},
		{"unknown activation", `
architectures:
  - {name: a, loss: categorical_crossentropy, layers: [{type: flatten}, {type: dense, units: 2, activation: swish}]}
`},
		{"conv after output", `
architectures:
  - {name: a, loss: categorical_crossentropy, layers: [{type: flatten}, {type: dense, units: 2, activation: softmax}, {type: conv2d, filters: 1, kernel: 1}]}
`},
		{"unknown data format", `
architectures:
  - {name: a, data_format: nchw, loss: categorical_crossentropy, layers: [{type: flatten}, {type: dense, units: 2, activation: softmax}]}
`},
		{"not yaml", `architectures: [`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.doc)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestWithConvolutions(t *testing.T) {
	a, _ := Get("newyork")
	b := a.WithConvolutions(64, 5)

	for i, l := range b.Layers {
		if l.Type != LayerConv2D {
			continue
		}
		if l.Filters != 64 || l.Kernel != 5 {
			t.Errorf("layer %d = %d filters / kernel %d, want 64 / 5", i, l.Filters, l.Kernel)
		}
	}
	if a.Layers[0].Filters != 32 {
		t.Error("WithConvolutions modified the receiver")
	}

	c := a.WithConvolutions(0, 0)
	if c.Layers[0].Filters != 32 || c.Layers[0].Kernel != 3 {
		t.Error("zero overrides should keep the preset values")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archs.yaml")
	doc := `
architectures:
  - name: custom
    loss: categorical_crossentropy
    layers:
      - {type: flatten}
      - {type: dense, units: 3, activation: softmax}
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	archs, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if len(archs) != 1 || archs[0].Name != "custom" {
		t.Errorf("LoadFile() = %+v", archs)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
