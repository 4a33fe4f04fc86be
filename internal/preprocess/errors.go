package preprocess

import (
	"errors"
	"fmt"
)

var (
	// ErrShape matches any *ShapeError.
	ErrShape = errors.New("shape mismatch")
	// ErrLengthMismatch matches any *LengthMismatchError.
	ErrLengthMismatch = errors.New("samples and labels differ in length")
)

// ShapeError reports a tensor whose dimensions do not match what the
// pipeline expects. Index is -1 when the tensor is not part of a split.
type ShapeError struct {
	Split string
	Index int
	Got   []int
	Want  []int
}

func (e *ShapeError) Error() string {
	if e.Split != "" && e.Index >= 0 {
		return fmt.Sprintf("%s sample %d: shape %v, want %v", e.Split, e.Index, e.Got, e.Want)
	}
	return fmt.Sprintf("shape %v, want %v", e.Got, e.Want)
}

func (e *ShapeError) Is(target error) bool {
	return target == ErrShape
}

// LengthMismatchError reports a split whose sample and label counts differ.
type LengthMismatchError struct {
	Split   string
	Samples int
	Labels  int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("%s split: %d samples but %d labels", e.Split, e.Samples, e.Labels)
}

func (e *LengthMismatchError) Is(target error) bool {
	return target == ErrLengthMismatch
}
