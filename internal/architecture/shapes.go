package architecture

import "fmt"

// LayerShape is the output of one layer for a given input.
type LayerShape struct {
	Layer  Layer
	Output []int
	Params int
}

// Shapes infers per-layer output shapes and parameter counts for a square
// input of the given side and channel count. Shapes follow DataFormat.
func (a Architecture) Shapes(inputSize, channels int) ([]LayerShape, error) {
	if inputSize <= 0 || channels <= 0 {
		return nil, fmt.Errorf("input size and channels must be positive, got %d and %d", inputSize, channels)
	}

	c, h, w := channels, inputSize, inputSize
	flat := 0
	out := make([]LayerShape, 0, len(a.Layers))

	for i, l := range a.Layers {
		params := 0
		switch l.Type {
		case LayerConv2D:
			if flat > 0 {
				return nil, fmt.Errorf("%s: layer %d: convolution after flatten", a.Name, i)
			}
			if l.Padding == "valid" {
				h, w = h-l.Kernel+1, w-l.Kernel+1
			}
			params = (l.Kernel*l.Kernel*c + 1) * l.Filters
			c = l.Filters
		case LayerPool:
			if flat > 0 {
				return nil, fmt.Errorf("%s: layer %d: pooling after flatten", a.Name, i)
			}
			h, w = h/l.PoolSize, w/l.PoolSize
		case LayerFlatten:
			if flat == 0 {
				flat = c * h * w
			}
		case LayerDense:
			if flat == 0 {
				return nil, fmt.Errorf("%s: layer %d: dense layer before flatten", a.Name, i)
			}
			params = (flat + 1) * l.Units
			flat = l.Units
		case LayerDropout, LayerActivation:
		}

		if h <= 0 || w <= 0 {
			return nil, fmt.Errorf("%s: layer %d (%s): input of %d is too small, output would be %dx%d",
				a.Name, i, l.Type, inputSize, h, w)
		}

		out = append(out, LayerShape{Layer: l, Output: a.shape(flat, c, h, w), Params: params})
	}
	return out, nil
}

// ParamCount returns the number of trainable parameters for the input.
func (a Architecture) ParamCount(inputSize, channels int) (int, error) {
	shapes, err := a.Shapes(inputSize, channels)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, s := range shapes {
		total += s.Params
	}
	return total, nil
}

func (a Architecture) shape(flat, c, h, w int) []int {
	if flat > 0 {
		return []int{flat}
	}
	if a.DataFormat == ChannelsFirst {
		return []int{c, h, w}
	}
	return []int{h, w, c}
}
