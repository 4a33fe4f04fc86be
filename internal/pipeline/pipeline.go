// Package pipeline loads face-pair manifests, cleans them and optionally
// stores the result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/kozaktomas/in-your-face/internal/database"
	"github.com/kozaktomas/in-your-face/internal/dataset"
	"github.com/kozaktomas/in-your-face/internal/fingerprint"
	"github.com/kozaktomas/in-your-face/internal/preprocess"
)

// Manifest formats.
const (
	FormatCSV = "csv"
	FormatLFW = "lfw"
)

// Config describes one pipeline run.
type Config struct {
	TrainManifest string
	TestManifest  string
	Format        string
	Root          string
	LoadWorkers   int
	Preprocess    preprocess.Options
	// SaveAs stores the cleaned dataset under this name. Empty skips storing.
	SaveAs string
	// OnLoaded is called once per decoded pair.
	OnLoaded func()
	// CheckOverlap hashes every face and reports test faces whose
	// photograph also appears in the train split.
	CheckOverlap     bool
	OverlapThreshold int
}

// Report is the outcome of Run.
type Report struct {
	Train      preprocess.Split
	Test       preprocess.Split
	TrainStats preprocess.Summary
	TestStats  preprocess.Summary
	DatasetID  string
	Overlap    []fingerprint.Match
}

// ReadPairs reads a manifest file in the given format.
func ReadPairs(path, format, root string) ([]dataset.Pair, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()

	switch format {
	case FormatCSV, "":
		return dataset.ReadManifestCSV(f, root)
	case FormatLFW:
		return dataset.ReadLFWPairs(f, root)
	default:
		return nil, fmt.Errorf("unknown manifest format %q", format)
	}
}

// Run loads both splits, cleans them and, when SaveAs is set, writes them
// to store.
func Run(ctx context.Context, cfg Config, store database.DatasetWriter) (*Report, error) {
	if cfg.SaveAs != "" {
		if store == nil {
			return nil, errors.New("saving requires a database")
		}
		existing, err := store.GetDatasetByName(ctx, cfg.SaveAs)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, fmt.Errorf("dataset %q already exists (%s)", cfg.SaveAs, existing.ID)
		}
		if dim := storedDataset(cfg).SampleDim(); dim > database.MaxVectorDim {
			return nil, fmt.Errorf("samples of %d values exceed the storable %d, use a smaller downsample size", dim, database.MaxVectorDim)
		}
	}

	train, err := loadSplit(ctx, cfg, cfg.TrainManifest)
	if err != nil {
		return nil, fmt.Errorf("train split: %w", err)
	}
	test, err := loadSplit(ctx, cfg, cfg.TestManifest)
	if err != nil {
		return nil, fmt.Errorf("test split: %w", err)
	}

	cleanTrain, cleanTest, err := preprocess.Clean(train, test, cfg.Preprocess)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Train:      cleanTrain,
		Test:       cleanTest,
		TrainStats: preprocess.Stats(cleanTrain.Samples),
		TestStats:  preprocess.Stats(cleanTest.Samples),
	}

	if cfg.CheckOverlap {
		report.Overlap, err = overlap(train, test, cfg.OverlapThreshold)
		if err != nil {
			return nil, err
		}
	}

	if cfg.SaveAs != "" {
		id, err := save(ctx, store, cfg, cleanTrain, cleanTest)
		if err != nil {
			return nil, err
		}
		report.DatasetID = id
	}
	return report, nil
}

func loadSplit(ctx context.Context, cfg Config, manifest string) (preprocess.RawSplit, error) {
	if manifest == "" {
		return preprocess.RawSplit{}, nil
	}
	pairs, err := ReadPairs(manifest, cfg.Format, cfg.Root)
	if err != nil {
		return preprocess.RawSplit{}, err
	}
	return dataset.Load(ctx, pairs, dataset.LoadOptions{Workers: cfg.LoadWorkers, Progress: cfg.OnLoaded})
}

func overlap(train, test preprocess.RawSplit, threshold int) ([]fingerprint.Match, error) {
	if threshold <= 0 {
		threshold = fingerprint.DefaultThreshold
	}
	trainHashes, err := fingerprint.HashSplit(train.Samples)
	if err != nil {
		return nil, fmt.Errorf("hash train split: %w", err)
	}
	testHashes, err := fingerprint.HashSplit(test.Samples)
	if err != nil {
		return nil, fmt.Errorf("hash test split: %w", err)
	}
	return fingerprint.FindOverlap(trainHashes, testHashes, threshold), nil
}

// storedDataset describes the dataset cfg would store, with preprocessing
// defaults filled in.
func storedDataset(cfg Config) *database.StoredDataset {
	size := cfg.Preprocess.DownsampleSize
	if size == 0 {
		size = preprocess.DefaultDownsampleSize
	}
	interpolation := cfg.Preprocess.Interpolation
	if interpolation == "" {
		interpolation = preprocess.DefaultInterpolation
	}
	return &database.StoredDataset{Name: cfg.SaveAs, DownsampleSize: size, Interpolation: interpolation}
}

func save(ctx context.Context, store database.DatasetWriter, cfg Config, train, test preprocess.Split) (string, error) {
	id, err := store.CreateDataset(ctx, storedDataset(cfg))
	if err != nil {
		return "", err
	}

	if err := store.SaveSplit(ctx, id, database.SplitTrain, database.ToStored(id, database.SplitTrain, train)); err != nil {
		return "", errors.Join(fmt.Errorf("save train split: %w", err), store.DeleteDataset(ctx, id))
	}
	if err := store.SaveSplit(ctx, id, database.SplitTest, database.ToStored(id, database.SplitTest, test)); err != nil {
		return "", errors.Join(fmt.Errorf("save test split: %w", err), store.DeleteDataset(ctx, id))
	}
	return id, nil
}
