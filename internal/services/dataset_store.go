package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"salespulse/internal/dataprocessing"
	"salespulse/internal/infrastructure"
)

// DatasetLoader decodes a dataset file.
type DatasetLoader interface {
	Load(ctx context.Context, path string) (*dataprocessing.Dataset, error)
}

// DatasetStore holds the current dataset. The first Get loads it; concurrent
// loads of the same path collapse into one. Loaded datasets are never
// mutated, so readers share them without locking.
type DatasetStore struct {
	loader  DatasetLoader
	path    string
	logger  *slog.Logger
	metrics *infrastructure.BusinessMetrics

	mu      sync.RWMutex
	current *dataprocessing.Dataset
	group   singleflight.Group
}

// NewDatasetStore creates a store for the dataset at path.
func NewDatasetStore(loader DatasetLoader, path string, logger *slog.Logger, metrics *infrastructure.BusinessMetrics) *DatasetStore {
	return &DatasetStore{
		loader:  loader,
		path:    path,
		logger:  infrastructure.WithComponent(logger, "dataset_store"),
		metrics: metrics,
	}
}

// Path returns the configured dataset path.
func (s *DatasetStore) Path() string {
	return s.path
}

// Get returns the loaded dataset, loading it on first use.
func (s *DatasetStore) Get(ctx context.Context) (*dataprocessing.Dataset, error) {
	if ds := s.Current(); ds != nil {
		return ds, nil
	}
	return s.load(ctx, "load")
}

// Reload re-reads the dataset and swaps it in. On failure the previous
// dataset stays active.
func (s *DatasetStore) Reload(ctx context.Context) (*dataprocessing.Dataset, error) {
	return s.load(ctx, "reload")
}

// Current returns the loaded dataset without loading, or nil.
func (s *DatasetStore) Current() *dataprocessing.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *DatasetStore) load(ctx context.Context, key string) (*dataprocessing.Dataset, error) {
	// The load is shared by every waiting caller, so no single caller may cancel it.
	loadCtx := context.WithoutCancel(ctx)
	v, err, shared := s.group.Do(key, func() (interface{}, error) {
		// A caller that waited on a concurrent load finds the result here.
		if key == "load" {
			if ds := s.Current(); ds != nil {
				return ds, nil
			}
		}

		ds, err := s.loader.Load(loadCtx, s.path)
		s.metrics.RecordDatasetLoad(loadCtx, datasetRows(ds), err)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.current = ds
		s.mu.Unlock()
		return ds, nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "dataset load failed",
			slog.String("path", s.path),
			slog.String("trigger", key),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %w", ErrDatasetUnavailable, err)
	}

	ds := v.(*dataprocessing.Dataset)
	s.logger.DebugContext(ctx, "dataset ready",
		slog.String("trigger", key),
		slog.Int("rows", len(ds.Rows)),
		slog.Bool("shared", shared))
	return ds, nil
}

func datasetRows(ds *dataprocessing.Dataset) int {
	if ds == nil {
		return 0
	}
	return len(ds.Rows)
}
