package fingerprint

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/kozaktomas/in-your-face/internal/preprocess"
)

func TestHammingDistance(t *testing.T) {
	tests := []struct {
		name     string
		hash1    uint64
		hash2    uint64
		expected int
	}{
		{"identical", 0x0, 0x0, 0},
		{"completely different", 0xFFFFFFFFFFFFFFFF, 0x0, 64},
		{"one bit different", 0x1, 0x0, 1},
		{"four bits different", 0xF, 0x0, 4},
		{"half different", 0xFFFFFFFF00000000, 0x0, 32},
		{"alternating", 0xAAAAAAAAAAAAAAAA, 0x5555555555555555, 64},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := HammingDistance(tc.hash1, tc.hash2)
			if result != tc.expected {
				t.Errorf("HammingDistance(%x, %x) = %d; want %d",
					tc.hash1, tc.hash2, result, tc.expected)
			}
		})
	}
}

func TestSimilar(t *testing.T) {
	tests := []struct {
		name      string
		a         FaceHash
		b         FaceHash
		threshold int
		expected  bool
	}{
		{"identical with threshold 0", FaceHash{}, FaceHash{}, 0, true},
		{"both within threshold", FaceHash{PHash: 0x3F, DHash: 0x1}, FaceHash{}, 6, true},
		{"pHash too far", FaceHash{PHash: 0x7F}, FaceHash{}, 6, false},
		{"dHash too far", FaceHash{DHash: 0xFF}, FaceHash{}, 6, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Similar(tc.a, tc.b, tc.threshold); got != tc.expected {
				t.Errorf("Similar(%v, %v, %d) = %v; want %v", tc.a, tc.b, tc.threshold, got, tc.expected)
			}
		})
	}
}

func TestHashConsistency(t *testing.T) {
	img := createGradientImage(128, 128)
	h1 := Hash(img)
	h2 := Hash(img)
	if h1 != h2 {
		t.Errorf("Hash should be consistent: %v vs %v", h1, h2)
	}
	if h1.PHash == 0 && h1.DHash == 0 {
		t.Error("Gradient image should produce non-zero hashes")
	}
}

func TestDHashDecreasingGradient(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 90, 80))
	for y := range 80 {
		for x := range 90 {
			v := uint8(255 - x*2)
			img.SetRGBA(x, y, color.RGBA{v, v, v, 255})
		}
	}
	if got := computeDHash(img); got != math.MaxUint64 {
		t.Errorf("computeDHash() = %064b; want all bits set", got)
	}
}

func TestHashSample(t *testing.T) {
	sample := preprocess.NewRawSample()
	for y := range preprocess.SourceSize {
		for x := range preprocess.SourceSize {
			for c := range 3 {
				sample.Set(c, y, x, uint8(x))
				sample.Set(c+3, y, x, uint8(255-x))
			}
		}
	}

	hashes, err := HashSample(sample)
	if err != nil {
		t.Fatalf("HashSample() error = %v", err)
	}
	if hashes[0] == hashes[1] {
		t.Errorf("opposite gradients should hash differently, both %v", hashes[0])
	}
	if hashes[0].DHash != 0 || hashes[1].DHash != math.MaxUint64 {
		t.Errorf("unexpected dHashes %016x / %016x", hashes[0].DHash, hashes[1].DHash)
	}

	again, _ := HashSample(sample)
	if again != hashes {
		t.Errorf("HashSample not deterministic: %v vs %v", hashes, again)
	}
}

func TestHashSplitShapeError(t *testing.T) {
	bad := preprocess.RawSample{Channels: 6, Height: 10, Width: 10, Pix: make([]uint8, 600)}
	_, err := HashSplit([]preprocess.RawSample{preprocess.NewRawSample(), bad})
	if !errors.Is(err, preprocess.ErrShape) {
		t.Errorf("HashSplit() error = %v, want ErrShape", err)
	}
}

func TestFindOverlap(t *testing.T) {
	train := [][2]FaceHash{
		{{PHash: 0xFF00, DHash: 0x0F}, {PHash: 0x1234, DHash: 0x5678}},
		{{PHash: 0xAAAA, DHash: 0xBBBB}, {PHash: 0xFF01, DHash: 0x0F}},
	}
	test := [][2]FaceHash{
		{{PHash: 0xFFFFFFFF00000000, DHash: 0xFFFF}, {PHash: 0xFF01, DHash: 0x0F}},
		{{PHash: 0xFF00, DHash: 0x0F}, {PHash: 0x0F0F0F0F0F0F0F0F}},
	}

	matches := FindOverlap(train, test, 2)
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d: %+v", len(matches), matches)
	}

	// Exact match wins over the one-bit neighbour.
	want := []Match{
		{TestIndex: 0, TestFace: 1, TrainIndex: 1, TrainFace: 1, Distance: 0},
		{TestIndex: 1, TestFace: 0, TrainIndex: 0, TrainFace: 0, Distance: 0},
	}
	for i := range want {
		if matches[i] != want[i] {
			t.Errorf("match %d = %+v; want %+v", i, matches[i], want[i])
		}
	}

	if got := FindOverlap(train, nil, 2); len(got) != 0 {
		t.Errorf("expected no matches for empty test split, got %d", len(got))
	}
}

func TestToGrayscale(t *testing.T) {
	img := createTestImage(10, 10, color.RGBA{255, 0, 0, 255})

	gray := toGrayscale(img)

	if len(gray) != 10 || len(gray[0]) != 10 {
		t.Fatalf("Grayscale should be 10x10, got %dx%d", len(gray), len(gray[0]))
	}

	// Red should convert to approximately 0.299 * 255 = 76.245
	expectedLuma := 0.299 * 255
	tolerance := 1.0
	if gray[0][0] < expectedLuma-tolerance || gray[0][0] > expectedLuma+tolerance {
		t.Errorf("Red pixel luma should be ~%.2f, got %.2f", expectedLuma, gray[0][0])
	}
}

func TestComputeDCTConstant(t *testing.T) {
	gray := make([][]float64, 8)
	for i := range gray {
		gray[i] = []float64{1, 1, 1, 1, 1, 1, 1, 1}
	}
	dct := computeDCT(gray)
	if math.Abs(dct[0][0]-64) > 1e-9 {
		t.Errorf("DC term = %f; want 64", dct[0][0])
	}
	for u := range 8 {
		for v := range 8 {
			if (u != 0 || v != 0) && math.Abs(dct[u][v]) > 1e-9 {
				t.Errorf("dct[%d][%d] = %g; want 0", u, v, dct[u][v])
			}
		}
	}
}

func TestComputeMedian(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		expected float64
	}{
		{"odd count", []float64{1, 2, 3, 4, 5}, 3},
		{"even count", []float64{1, 2, 3, 4}, 2.5},
		{"single value", []float64{42}, 42},
		{"unsorted", []float64{5, 1, 3, 2, 4}, 3},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := computeMedian(tc.values)
			if result != tc.expected {
				t.Errorf("computeMedian(%v) = %f; want %f", tc.values, result, tc.expected)
			}
		})
	}
}

// Helper functions

func createTestImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func createGradientImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			gray := uint8((x + y) * 255 / (width + height))
			img.Set(x, y, color.RGBA{gray, gray, gray, 255})
		}
	}
	return img
}
