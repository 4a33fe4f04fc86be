package dataset

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sync"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"

	"github.com/kozaktomas/in-your-face/internal/preprocess"
)

// LoadOptions configures Load.
type LoadOptions struct {
	Workers  int
	Progress func()
}

// Load decodes every pair into a raw split, keeping manifest order.
func Load(ctx context.Context, pairs []Pair, opts LoadOptions) (preprocess.RawSplit, error) {
	workers := max(opts.Workers, 1)
	samples := make([]preprocess.RawSample, len(pairs))
	labels := make([]preprocess.Label, len(pairs))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	sem := make(chan struct{}, workers)

	for i, p := range pairs {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return preprocess.RawSplit{}, err
		}

		wg.Add(1)
		go func(i int, p Pair) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if ctx.Err() != nil {
				return
			}
			sample, err := LoadSample(p.Left, p.Right)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("pair %d: %w", i, err)
				}
				mu.Unlock()
				return
			}
			samples[i] = sample
			labels[i] = p.Label
			if opts.Progress != nil {
				opts.Progress()
			}
		}(i, p)
	}
	wg.Wait()

	if firstErr != nil {
		return preprocess.RawSplit{}, firstErr
	}
	if err := ctx.Err(); err != nil {
		return preprocess.RawSplit{}, err
	}
	return preprocess.RawSplit{Samples: samples, Labels: labels}, nil
}

// LoadSample decodes two 250x250 images and stacks them channel-first into
// a 6x250x250 raw sample.
func LoadSample(left, right string) (preprocess.RawSample, error) {
	sample := preprocess.NewRawSample()
	for i, path := range []string{left, right} {
		img, err := decodeFile(path)
		if err != nil {
			return preprocess.RawSample{}, err
		}
		if err := pack(sample, img, i*3); err != nil {
			return preprocess.RawSample{}, fmt.Errorf("%s: %w", path, err)
		}
	}
	return sample, nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return img, nil
}

// pack writes the RGB channels of img into channels [first, first+3) of sample.
func pack(sample preprocess.RawSample, img image.Image, first int) error {
	b := img.Bounds()
	if b.Dx() != preprocess.SourceSize || b.Dy() != preprocess.SourceSize {
		return &preprocess.ShapeError{
			Index: -1,
			Got:   []int{3, b.Dy(), b.Dx()},
			Want:  []int{3, preprocess.SourceSize, preprocess.SourceSize},
		}
	}

	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)

	for y := range b.Dy() {
		for x := range b.Dx() {
			p := rgba.PixOffset(x, y)
			sample.Set(first, y, x, rgba.Pix[p+0])
			sample.Set(first+1, y, x, rgba.Pix[p+1])
			sample.Set(first+2, y, x, rgba.Pix[p+2])
		}
	}
	return nil
}
