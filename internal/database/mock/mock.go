// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/in-your-face/internal/database"
)

type splitKey struct {
	id    string
	split database.Split
}

// MockDatasetStore is an in-memory implementation of database.DatasetWriter
type MockDatasetStore struct {
	mu       sync.RWMutex
	datasets map[string]*database.StoredDataset
	samples  map[splitKey][]database.StoredSample

	// Error injection
	CreateError error
	SaveError   error
	LoadError   error
	DeleteError error
}

var _ database.DatasetWriter = (*MockDatasetStore)(nil)

// NewMockDatasetStore creates a new empty mock store
func NewMockDatasetStore() *MockDatasetStore {
	return &MockDatasetStore{
		datasets: make(map[string]*database.StoredDataset),
		samples:  make(map[splitKey][]database.StoredSample),
	}
}

func (m *MockDatasetStore) CreateDataset(ctx context.Context, ds *database.StoredDataset) (string, error) {
	if m.CreateError != nil {
		return "", m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.datasets {
		if existing.Name == ds.Name {
			return "", fmt.Errorf("create dataset: name %q already exists", ds.Name)
		}
	}
	if ds.ID == "" {
		ds.ID = uuid.New().String()
	}
	ds.CreatedAt = time.Now()
	stored := *ds
	m.datasets[ds.ID] = &stored
	return ds.ID, nil
}

func (m *MockDatasetStore) GetDataset(ctx context.Context, id string) (*database.StoredDataset, error) {
	if m.LoadError != nil {
		return nil, m.LoadError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	ds, ok := m.datasets[id]
	if !ok {
		return nil, nil
	}
	out := *ds
	return &out, nil
}

func (m *MockDatasetStore) GetDatasetByName(ctx context.Context, name string) (*database.StoredDataset, error) {
	if m.LoadError != nil {
		return nil, m.LoadError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ds := range m.datasets {
		if ds.Name == name {
			out := *ds
			return &out, nil
		}
	}
	return nil, nil
}

func (m *MockDatasetStore) ListDatasets(ctx context.Context) ([]database.StoredDataset, error) {
	if m.LoadError != nil {
		return nil, m.LoadError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]database.StoredDataset, 0, len(m.datasets))
	for _, ds := range m.datasets {
		out = append(out, *ds)
	}
	slices.SortFunc(out, func(a, b database.StoredDataset) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		if a.Name < b.Name {
			return -1
		}
		if a.Name > b.Name {
			return 1
		}
		return 0
	})
	return out, nil
}

func (m *MockDatasetStore) LoadSplit(ctx context.Context, id string, split database.Split) ([]database.StoredSample, error) {
	if m.LoadError != nil {
		return nil, m.LoadError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.samples[splitKey{id, split}]), nil
}

func (m *MockDatasetStore) Count(ctx context.Context) (int, error) {
	if m.LoadError != nil {
		return 0, m.LoadError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.datasets), nil
}

func (m *MockDatasetStore) SaveSplit(ctx context.Context, id string, split database.Split, samples []database.StoredSample) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	ds, ok := m.datasets[id]
	if !ok {
		return fmt.Errorf("%w: %s", database.ErrNotFound, id)
	}
	if err := database.ValidateSplit(ds, split, samples); err != nil {
		return err
	}

	m.samples[splitKey{id, split}] = slices.Clone(samples)
	switch split {
	case database.SplitTrain:
		ds.TrainCount = len(samples)
	case database.SplitTest:
		ds.TestCount = len(samples)
	}
	return nil
}

func (m *MockDatasetStore) DeleteDataset(ctx context.Context, id string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.datasets[id]; !ok {
		return fmt.Errorf("%w: %s", database.ErrNotFound, id)
	}
	delete(m.datasets, id)
	delete(m.samples, splitKey{id, database.SplitTrain})
	delete(m.samples, splitKey{id, database.SplitTest})
	return nil
}
