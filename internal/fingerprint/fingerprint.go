// Package fingerprint computes perceptual hashes of face crops so that the
// same photograph can be recognised in both the train and the test split.
package fingerprint

import (
	"fmt"
	"image"
	"math"
	"sort"

	"golang.org/x/image/draw"

	"github.com/kozaktomas/in-your-face/internal/preprocess"
)

// DefaultThreshold is the maximum Hamming distance, for both hashes, at
// which two faces count as the same photograph.
const DefaultThreshold = 6

// FaceHash holds the perceptual hashes of one face.
type FaceHash struct {
	PHash uint64
	DHash uint64
}

func (h FaceHash) String() string {
	return fmt.Sprintf("%016x:%016x", h.PHash, h.DHash)
}

// Hash computes pHash and dHash of an image.
func Hash(img image.Image) FaceHash {
	return FaceHash{PHash: computePHash(img), DHash: computeDHash(img)}
}

// HashSample hashes both faces of a raw sample after the center crop.
func HashSample(sample preprocess.RawSample) ([2]FaceHash, error) {
	var out [2]FaceHash
	for face := range out {
		img, err := preprocess.Face(sample, face)
		if err != nil {
			return out, err
		}
		out[face] = Hash(img)
	}
	return out, nil
}

// HashSplit hashes every sample of a split.
func HashSplit(samples []preprocess.RawSample) ([][2]FaceHash, error) {
	out := make([][2]FaceHash, len(samples))
	for i, s := range samples {
		h, err := HashSample(s)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		out[i] = h
	}
	return out, nil
}

// HammingDistance computes the Hamming distance between two 64-bit hashes.
func HammingDistance(hash1, hash2 uint64) int {
	xor := hash1 ^ hash2
	distance := 0
	for xor != 0 {
		distance++
		xor &= xor - 1 // Clear lowest set bit
	}
	return distance
}

// Similar reports whether both hashes of a and b are within threshold.
func Similar(a, b FaceHash, threshold int) bool {
	return HammingDistance(a.PHash, b.PHash) <= threshold &&
		HammingDistance(a.DHash, b.DHash) <= threshold
}

// computePHash computes a 64-bit perceptual hash from the low frequencies
// of a 32x32 DCT.
func computePHash(img image.Image) uint64 {
	gray := toGrayscale(resizeImage(img, 32, 32))
	dct := computeDCT(gray)

	// Top-left 8x8 block without the DC term, plus dct[8][0] for the 64th bit.
	lowFreq := make([]float64, 0, 64)
	for u := range 8 {
		for v := range 8 {
			if u == 0 && v == 0 {
				continue
			}
			lowFreq = append(lowFreq, dct[u][v])
		}
	}
	lowFreq = append(lowFreq, dct[8][0])

	median := computeMedian(lowFreq)

	var hash uint64
	for i, v := range lowFreq {
		if v > median {
			hash |= 1 << (63 - i)
		}
	}
	return hash
}

// computeDHash compares horizontally adjacent pixels of a 9x8 thumbnail.
func computeDHash(img image.Image) uint64 {
	gray := toGrayscale(resizeImage(img, 9, 8))

	var hash uint64
	bit := 63
	for y := range 8 {
		for x := range 8 {
			if gray[y][x] > gray[y][x+1] {
				hash |= 1 << bit
			}
			bit--
		}
	}
	return hash
}

func resizeImage(img image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// toGrayscale returns luma values indexed [y][x].
func toGrayscale(img *image.RGBA) [][]float64 {
	b := img.Bounds()
	gray := make([][]float64, b.Dy())
	for y := range b.Dy() {
		gray[y] = make([]float64, b.Dx())
		for x := range b.Dx() {
			p := img.PixOffset(b.Min.X+x, b.Min.Y+y)
			// ITU-R BT.601 luma formula.
			gray[y][x] = 0.299*float64(img.Pix[p]) + 0.587*float64(img.Pix[p+1]) + 0.114*float64(img.Pix[p+2])
		}
	}
	return gray
}

// computeDCT computes the 2D DCT-II of a square matrix, rows first and then
// columns.
func computeDCT(gray [][]float64) [][]float64 {
	size := len(gray)

	cosTable := make([][]float64, size)
	for i := range cosTable {
		cosTable[i] = make([]float64, size)
		for j := range size {
			cosTable[i][j] = math.Cos(math.Pi * float64(i) * (2*float64(j) + 1) / (2 * float64(size)))
		}
	}

	rows := make([][]float64, size)
	for y := range size {
		rows[y] = make([]float64, size)
		for v := range size {
			var sum float64
			for x := range size {
				sum += gray[y][x] * cosTable[v][x]
			}
			rows[y][v] = sum
		}
	}

	dct := make([][]float64, size)
	for u := range size {
		dct[u] = make([]float64, size)
		for v := range size {
			var sum float64
			for y := range size {
				sum += rows[y][v] * cosTable[u][y]
			}
			dct[u][v] = sum
		}
	}
	return dct
}

func computeMedian(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}
