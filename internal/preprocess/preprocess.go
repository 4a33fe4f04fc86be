// Package preprocess turns raw LFW-style image pairs into normalized,
// fixed-size tensors ready for a same-person classifier.
package preprocess

import (
	"errors"
	"fmt"
	"image"
	"sort"
	"sync"

	"golang.org/x/image/draw"
)

// Options configures Clean.
type Options struct {
	// DownsampleSize is the output side in pixels. Zero means DefaultDownsampleSize.
	DownsampleSize int
	// Workers bounds the number of samples processed in parallel. Values below 2 run sequentially.
	Workers int
	// Interpolation names the resize kernel, see Interpolations. Empty means "catmullrom".
	Interpolation string
	// Progress, if set, is called once for every finished sample.
	Progress func()
}

// DefaultInterpolation is the resize kernel used when none is configured.
const DefaultInterpolation = "catmullrom"

var interpolators = map[string]draw.Interpolator{
	"catmullrom":     draw.CatmullRom,
	"bilinear":       draw.BiLinear,
	"approxbilinear": draw.ApproxBiLinear,
	"nearest":        draw.NearestNeighbor,
}

// Interpolations returns the supported resize kernel names.
func Interpolations() []string {
	names := make([]string, 0, len(interpolators))
	for name := range interpolators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (o Options) withDefaults() Options {
	if o.DownsampleSize == 0 {
		o.DownsampleSize = DefaultDownsampleSize
	}
	if o.Interpolation == "" {
		o.Interpolation = DefaultInterpolation
	}
	if o.Workers < 1 {
		o.Workers = 1
	}
	return o
}

func (o Options) interpolator() (draw.Interpolator, error) {
	if o.DownsampleSize <= 0 {
		return nil, fmt.Errorf("downsample size must be positive, got %d", o.DownsampleSize)
	}
	interp, ok := interpolators[o.Interpolation]
	if !ok {
		return nil, fmt.Errorf("unknown interpolation %q (supported: %v)", o.Interpolation, Interpolations())
	}
	return interp, nil
}

// Clean crops, downsamples and normalizes every sample of both splits.
// All inputs are validated before any work starts, so a malformed dataset
// fails without partial output. Labels are returned as given.
func Clean(train, test RawSplit, opts Options) (Split, Split, error) {
	opts = opts.withDefaults()
	interp, err := opts.interpolator()
	if err != nil {
		return Split{}, Split{}, err
	}
	if err := validateSplit("train", train); err != nil {
		return Split{}, Split{}, err
	}
	if err := validateSplit("test", test); err != nil {
		return Split{}, Split{}, err
	}

	trainSamples, err := cleanSamples(train.Samples, opts, interp)
	if err != nil {
		return Split{}, Split{}, fmt.Errorf("clean train split: %w", err)
	}
	testSamples, err := cleanSamples(test.Samples, opts, interp)
	if err != nil {
		return Split{}, Split{}, fmt.Errorf("clean test split: %w", err)
	}

	return Split{Samples: trainSamples, Labels: train.Labels},
		Split{Samples: testSamples, Labels: test.Labels},
		nil
}

func validateSplit(name string, split RawSplit) error {
	if len(split.Samples) != len(split.Labels) {
		return &LengthMismatchError{Split: name, Samples: len(split.Samples), Labels: len(split.Labels)}
	}
	for i, s := range split.Samples {
		if err := s.checkShape(Channels, SourceSize, SourceSize); err != nil {
			var se *ShapeError
			if errors.As(err, &se) {
				se.Split = name
				se.Index = i
			}
			return err
		}
	}
	return nil
}

// cleanSamples keeps output order by index whatever the worker count.
func cleanSamples(samples []RawSample, opts Options, interp draw.Interpolator) ([]Sample, error) {
	out := make([]Sample, len(samples))
	done := func() {
		if opts.Progress != nil {
			opts.Progress()
		}
	}

	if opts.Workers <= 1 {
		for i, s := range samples {
			cleaned, err := cropAndDownsample(s, opts.DownsampleSize, interp)
			if err != nil {
				return nil, fmt.Errorf("sample %d: %w", i, err)
			}
			out[i] = cleaned
			done()
		}
		return out, nil
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	sem := make(chan struct{}, opts.Workers)

	for i := range samples {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			cleaned, err := cropAndDownsample(samples[i], opts.DownsampleSize, interp)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("sample %d: %w", i, err)
				}
				mu.Unlock()
				return
			}
			out[i] = cleaned
			done()
		}(i)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// Crop extracts the centered 128x128 region of a 6x250x250 sample,
// rows and columns [61, 189), keeping all channels.
func Crop(sample RawSample) (RawSample, error) {
	if err := sample.checkShape(Channels, SourceSize, SourceSize); err != nil {
		return RawSample{}, err
	}

	margin := (SourceSize - CropSize) / 2
	out := RawSample{
		Channels: Channels,
		Height:   CropSize,
		Width:    CropSize,
		Pix:      make([]uint8, Channels*CropSize*CropSize),
	}
	for c := range Channels {
		for y := range CropSize {
			src := ((c*SourceSize)+y+margin)*SourceSize + margin
			dst := (c*CropSize + y) * CropSize
			copy(out.Pix[dst:dst+CropSize], sample.Pix[src:src+CropSize])
		}
	}
	return out, nil
}

// CropAndDownsample center-crops a raw sample, resizes both RGB halves to
// size x size with Catmull-Rom and returns them channel-last in [0, 1].
func CropAndDownsample(sample RawSample, size int) (Sample, error) {
	if size <= 0 {
		return Sample{}, fmt.Errorf("downsample size must be positive, got %d", size)
	}
	return cropAndDownsample(sample, size, draw.CatmullRom)
}

func cropAndDownsample(sample RawSample, size int, interp draw.Interpolator) (Sample, error) {
	cropped, err := Crop(sample)
	if err != nil {
		return Sample{}, err
	}

	var halves [2]*image.RGBA
	for i := range halves {
		src, err := rgbImage(cropped, i*3)
		if err != nil {
			return Sample{}, err
		}
		dst := image.NewRGBA(image.Rect(0, 0, size, size))
		interp.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
		halves[i] = dst
	}

	out := Sample{Size: size, Pix: make([]float64, size*size*Channels)}
	for i, img := range halves {
		for y := range size {
			for x := range size {
				p := img.PixOffset(x, y)
				o := (y*size+x)*Channels + i*3
				out.Pix[o+0] = float64(img.Pix[p+0])
				out.Pix[o+1] = float64(img.Pix[p+1])
				out.Pix[o+2] = float64(img.Pix[p+2])
			}
		}
	}

	normalize(out.Pix)
	return out, nil
}

// Face returns the cropped CropSize x CropSize image of one face of a pair
// (0 = left, 1 = right).
func Face(sample RawSample, face int) (*image.RGBA, error) {
	if face != 0 && face != 1 {
		return nil, fmt.Errorf("face must be 0 or 1, got %d", face)
	}
	cropped, err := Crop(sample)
	if err != nil {
		return nil, err
	}
	return rgbImage(cropped, face*3)
}

// rgbImage builds an opaque RGBA image from channels [first, first+3) of a cropped sample.
func rgbImage(s RawSample, first int) (*image.RGBA, error) {
	if first < 0 || first+3 > s.Channels || s.Height != CropSize || s.Width != CropSize || len(s.Pix) != s.Channels*s.Height*s.Width {
		return nil, &ShapeError{
			Index: -1,
			Got:   []int{s.Channels - first, s.Height, s.Width},
			Want:  []int{3, CropSize, CropSize},
		}
	}

	img := image.NewRGBA(image.Rect(0, 0, s.Width, s.Height))
	for y := range s.Height {
		for x := range s.Width {
			p := img.PixOffset(x, y)
			img.Pix[p+0] = s.At(first, y, x)
			img.Pix[p+1] = s.At(first+1, y, x)
			img.Pix[p+2] = s.At(first+2, y, x)
			img.Pix[p+3] = 0xff
		}
	}
	return img, nil
}

// normalize scales 0-255 values into [0, 1]. Applied once per sample.
func normalize(pix []float64) {
	for i := range pix {
		pix[i] /= maxPixelValue
	}
}
