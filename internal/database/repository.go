package database

import (
	"context"
)

// DatasetReader provides read-only access to stored datasets
type DatasetReader interface {
	// GetDataset retrieves a dataset by ID, returns nil if not found
	GetDataset(ctx context.Context, id string) (*StoredDataset, error)
	// GetDatasetByName retrieves a dataset by its unique name, returns nil if not found
	GetDatasetByName(ctx context.Context, name string) (*StoredDataset, error)
	// ListDatasets returns all datasets, newest first
	ListDatasets(ctx context.Context) ([]StoredDataset, error)
	// LoadSplit returns the samples of one split ordered by index
	LoadSplit(ctx context.Context, id string, split Split) ([]StoredSample, error)
	// Count returns the number of stored datasets
	Count(ctx context.Context) (int, error)
}

// DatasetWriter provides write access to stored datasets
type DatasetWriter interface {
	DatasetReader

	// CreateDataset stores dataset metadata and returns its ID. An empty ID is generated.
	CreateDataset(ctx context.Context, ds *StoredDataset) (string, error)

	// SaveSplit replaces all samples of one split in a single transaction
	// and updates the dataset's sample count.
	SaveSplit(ctx context.Context, id string, split Split, samples []StoredSample) error

	// DeleteDataset removes a dataset and its samples
	DeleteDataset(ctx context.Context, id string) error
}
