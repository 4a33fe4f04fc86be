package preprocess

const (
	// SourceSize is the spatial size of every raw sample (LFW images are 250x250).
	SourceSize = 250
	// CropSize is the side of the centered region kept before downsampling.
	CropSize = 128
	// Channels is two stacked RGB images.
	Channels = 6
	// DefaultDownsampleSize is the output resolution used when none is configured.
	DefaultDownsampleSize = 32

	maxPixelValue = 255.0
)

// Label is the target value of a pair. The loader uses 1 for same person
// and 0 for different people; preprocessing never looks at it.
type Label int

// RawSample is a channel-first uint8 tensor, Pix[(c*Height+y)*Width+x].
type RawSample struct {
	Channels int
	Height   int
	Width    int
	Pix      []uint8
}

// NewRawSample allocates a zeroed 6x250x250 sample.
func NewRawSample() RawSample {
	return RawSample{
		Channels: Channels,
		Height:   SourceSize,
		Width:    SourceSize,
		Pix:      make([]uint8, Channels*SourceSize*SourceSize),
	}
}

// At returns the value at channel c, row y, column x.
func (s RawSample) At(c, y, x int) uint8 {
	return s.Pix[(c*s.Height+y)*s.Width+x]
}

// Set stores v at channel c, row y, column x.
func (s RawSample) Set(c, y, x int, v uint8) {
	s.Pix[(c*s.Height+y)*s.Width+x] = v
}

// Shape returns (channels, height, width).
func (s RawSample) Shape() []int {
	return []int{s.Channels, s.Height, s.Width}
}

func (s RawSample) checkShape(channels, height, width int) error {
	if s.Channels != channels || s.Height != height || s.Width != width || len(s.Pix) != channels*height*width {
		return &ShapeError{
			Index: -1,
			Got:   []int{s.Channels, s.Height, s.Width, len(s.Pix)},
			Want:  []int{channels, height, width, channels * height * width},
		}
	}
	return nil
}

// Sample is a cleaned, channel-last tensor of shape (Size, Size, 6) with
// values in [0, 1]. Pix[(y*Size+x)*Channels+c].
type Sample struct {
	Size int
	Pix  []float64
}

// At returns the value at row y, column x, channel c.
func (s Sample) At(y, x, c int) float64 {
	return s.Pix[(y*s.Size+x)*Channels+c]
}

// Shape returns (height, width, channels).
func (s Sample) Shape() []int {
	return []int{s.Size, s.Size, Channels}
}

// RawSplit is one side of the raw dataset (train or test).
type RawSplit struct {
	Samples []RawSample
	Labels  []Label
}

// Split is one side of the cleaned dataset.
type Split struct {
	Samples []Sample
	Labels  []Label
}
