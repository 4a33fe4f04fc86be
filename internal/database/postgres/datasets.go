package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/in-your-face/internal/database"
)

// DatasetRepository provides PostgreSQL-backed storage for cleaned datasets
type DatasetRepository struct {
	pool *Pool
}

// NewDatasetRepository creates a new PostgreSQL dataset repository
func NewDatasetRepository(pool *Pool) *DatasetRepository {
	return &DatasetRepository{pool: pool}
}

var _ database.DatasetWriter = (*DatasetRepository)(nil)

const datasetColumns = `id, name, downsample_size, interpolation, train_count, test_count, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDataset(row rowScanner) (*database.StoredDataset, error) {
	var ds database.StoredDataset
	err := row.Scan(&ds.ID, &ds.Name, &ds.DownsampleSize, &ds.Interpolation, &ds.TrainCount, &ds.TestCount, &ds.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &ds, nil
}

func (r *DatasetRepository) CreateDataset(ctx context.Context, ds *database.StoredDataset) (string, error) {
	if ds.ID == "" {
		ds.ID = uuid.New().String()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO datasets (id, name, downsample_size, interpolation)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, ds.ID, ds.Name, ds.DownsampleSize, ds.Interpolation).Scan(&ds.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("create dataset: %w", err)
	}
	return ds.ID, nil
}

func (r *DatasetRepository) GetDataset(ctx context.Context, id string) (*database.StoredDataset, error) {
	ds, err := scanDataset(r.pool.QueryRow(ctx, `SELECT `+datasetColumns+` FROM datasets WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get dataset: %w", err)
	}
	return ds, nil
}

func (r *DatasetRepository) GetDatasetByName(ctx context.Context, name string) (*database.StoredDataset, error) {
	ds, err := scanDataset(r.pool.QueryRow(ctx, `SELECT `+datasetColumns+` FROM datasets WHERE name = $1`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get dataset by name: %w", err)
	}
	return ds, nil
}

func (r *DatasetRepository) ListDatasets(ctx context.Context) ([]database.StoredDataset, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+datasetColumns+` FROM datasets ORDER BY created_at DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	defer rows.Close()

	var out []database.StoredDataset
	for rows.Next() {
		ds, err := scanDataset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dataset: %w", err)
		}
		out = append(out, *ds)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate datasets: %w", err)
	}
	return out, nil
}

func (r *DatasetRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM datasets").Scan(&count); err != nil {
		return 0, fmt.Errorf("count datasets: %w", err)
	}
	return count, nil
}

func (r *DatasetRepository) LoadSplit(ctx context.Context, id string, split database.Split) ([]database.StoredSample, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT idx, label, pixels
		FROM samples
		WHERE dataset_id = $1 AND split = $2
		ORDER BY idx
	`, id, string(split))
	if err != nil {
		return nil, fmt.Errorf("load split: %w", err)
	}
	defer rows.Close()

	var out []database.StoredSample
	for rows.Next() {
		s := database.StoredSample{DatasetID: id, Split: split}
		var vec pgvector.Vector
		if err := rows.Scan(&s.Index, &s.Label, &vec); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		s.Pixels = vec.Slice()
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate samples: %w", err)
	}
	return out, nil
}

func (r *DatasetRepository) SaveSplit(ctx context.Context, id string, split database.Split, samples []database.StoredSample) error {
	ds, err := r.GetDataset(ctx, id)
	if err != nil {
		return err
	}
	if ds == nil {
		return fmt.Errorf("%w: %s", database.ErrNotFound, id)
	}
	if err := database.ValidateSplit(ds, split, samples); err != nil {
		return err
	}

	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM samples WHERE dataset_id = $1 AND split = $2`, id, string(split)); err != nil {
		return fmt.Errorf("clear split: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO samples (dataset_id, split, idx, label, pixels)
		VALUES ($1, $2, $3, $4, $5::vector)
	`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, s := range samples {
		if _, err := stmt.ExecContext(ctx, id, string(split), s.Index, s.Label, pgvector.NewVector(s.Pixels)); err != nil {
			return fmt.Errorf("insert sample %d: %w", s.Index, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE datasets SET
			train_count = CASE WHEN $2::text = 'train' THEN $3 ELSE train_count END,
			test_count = CASE WHEN $2::text = 'test' THEN $3 ELSE test_count END
		WHERE id = $1
	`, id, string(split), len(samples)); err != nil {
		return fmt.Errorf("update sample count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *DatasetRepository) DeleteDataset(ctx context.Context, id string) error {
	res, err := r.pool.Exec(ctx, `DELETE FROM datasets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete dataset: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete dataset: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", database.ErrNotFound, id)
	}
	return nil
}
