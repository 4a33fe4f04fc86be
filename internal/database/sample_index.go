package database

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/coder/hnsw"
)

// Neighbor is a search hit of SampleIndex.
type Neighbor struct {
	Sample   *StoredSample
	Distance float64 // cosine distance
}

// SampleIndex is an in-memory HNSW graph over the pixels of stored samples,
// keyed by sample index within one split.
type SampleIndex struct {
	graph   *hnsw.Graph[int]
	samples map[int]*StoredSample
	dim     int
	mu      sync.RWMutex
}

// NewSampleIndex creates a new empty index.
func NewSampleIndex() *SampleIndex {
	return &SampleIndex{samples: make(map[int]*StoredSample)}
}

// Build replaces the index contents with samples. All samples must have the
// same number of values. All-zero samples have no cosine direction, so they
// are kept for Get but never returned by Search.
func (h *SampleIndex) Build(samples []StoredSample) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.graph = nil
	h.dim = 0
	h.samples = make(map[int]*StoredSample)
	if len(samples) == 0 {
		return nil
	}

	g := hnsw.NewGraph[int]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors) // Standard HNSW formula
	g.EfSearch = HNSWEfSearch
	g.Distance = hnsw.CosineDistance

	dim := len(samples[0].Pixels)
	byIndex := make(map[int]*StoredSample, len(samples))
	for i := range samples {
		s := &samples[i]
		if len(s.Pixels) != dim {
			return fmt.Errorf("sample %d has %d values, expected %d", s.Index, len(s.Pixels), dim)
		}
		byIndex[s.Index] = s
		if isZero(s.Pixels) {
			continue
		}
		g.Add(hnsw.MakeNode(s.Index, s.Pixels))
	}

	h.graph = g
	h.samples = byIndex
	h.dim = dim
	return nil
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// Search returns up to k samples closest to query, nearest first. Samples
// with an index in exclude are skipped.
func (h *SampleIndex) Search(query []float32, k int, exclude ...int) ([]Neighbor, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.graph == nil {
		return nil, errors.New("index not initialized")
	}
	if len(query) != h.dim {
		return nil, fmt.Errorf("query has %d values, index expects %d", len(query), h.dim)
	}
	if isZero(query) {
		return nil, errors.New("query is an all-zero sample")
	}
	if h.graph.Len() == 0 {
		return nil, nil
	}

	nodes := h.graph.Search(query, k+len(exclude)*HNSWSearchMultiplier)

	out := make([]Neighbor, 0, len(nodes))
	for _, n := range nodes {
		if slices.Contains(exclude, n.Key) {
			continue
		}
		out = append(out, Neighbor{Sample: h.samples[n.Key], Distance: CosineDistance(query, n.Value)})
	}
	slices.SortStableFunc(out, func(a, b Neighbor) int {
		return cmp.Compare(a.Distance, b.Distance)
	})
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

// Get returns the sample with the given index, or nil.
func (h *SampleIndex) Get(index int) *StoredSample {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.samples[index]
}

// Count returns the number of indexed samples.
func (h *SampleIndex) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.samples)
}
