package database

import (
	"time"

	"github.com/kozaktomas/in-your-face/internal/preprocess"
)

// Split names one side of a stored dataset.
type Split string

const (
	SplitTrain Split = "train"
	SplitTest  Split = "test"
)

// Valid reports whether s is a known split.
func (s Split) Valid() bool {
	return s == SplitTrain || s == SplitTest
}

// MaxVectorDim is the largest vector pgvector stores; at 6 channels this
// allows downsample sizes up to 51.
const MaxVectorDim = 16000

// StoredDataset represents a cleaned dataset stored in the database
type StoredDataset struct {
	ID             string
	Name           string
	DownsampleSize int
	Interpolation  string
	TrainCount     int
	TestCount      int
	CreatedAt      time.Time
}

// SampleDim returns the flattened length of one sample of this dataset.
func (d StoredDataset) SampleDim() int {
	return d.DownsampleSize * d.DownsampleSize * preprocess.Channels
}

// StoredSample represents one cleaned sample and its label
type StoredSample struct {
	DatasetID string
	Split     Split
	Index     int
	Label     int
	Pixels    []float32 // channel-last, same layout as preprocess.Sample.Pix
}

// ToStored converts a cleaned split into rows ready for SaveSplit.
func ToStored(datasetID string, split Split, cleaned preprocess.Split) []StoredSample {
	out := make([]StoredSample, len(cleaned.Samples))
	for i, s := range cleaned.Samples {
		pixels := make([]float32, len(s.Pix))
		for j, v := range s.Pix {
			pixels[j] = float32(v)
		}
		out[i] = StoredSample{
			DatasetID: datasetID,
			Split:     split,
			Index:     i,
			Label:     int(cleaned.Labels[i]),
			Pixels:    pixels,
		}
	}
	return out
}

// FromStored rebuilds a cleaned split from rows ordered by index.
func FromStored(size int, rows []StoredSample) preprocess.Split {
	out := preprocess.Split{
		Samples: make([]preprocess.Sample, len(rows)),
		Labels:  make([]preprocess.Label, len(rows)),
	}
	for i, r := range rows {
		pix := make([]float64, len(r.Pixels))
		for j, v := range r.Pixels {
			pix[j] = float64(v)
		}
		out.Samples[i] = preprocess.Sample{Size: size, Pix: pix}
		out.Labels[i] = preprocess.Label(r.Label)
	}
	return out
}
