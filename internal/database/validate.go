package database

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a dataset does not exist.
var ErrNotFound = errors.New("dataset not found")

// ValidateSplit checks rows before they are written: known split, pixel
// length matching the dataset and within the pgvector limit, indexes 0..n-1.
func ValidateSplit(ds *StoredDataset, split Split, samples []StoredSample) error {
	if !split.Valid() {
		return fmt.Errorf("unknown split %q", split)
	}
	dim := ds.SampleDim()
	if dim <= 0 || dim > MaxVectorDim {
		return fmt.Errorf("sample dimension %d outside (0, %d], use a smaller downsample size", dim, MaxVectorDim)
	}
	for i, s := range samples {
		if s.Index != i {
			return fmt.Errorf("sample %d has index %d", i, s.Index)
		}
		if len(s.Pixels) != dim {
			return fmt.Errorf("sample %d has %d values, want %d", i, len(s.Pixels), dim)
		}
	}
	return nil
}
