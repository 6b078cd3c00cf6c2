package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/samirrijal/trafficmap/internal/core/domain"
	"github.com/samirrijal/trafficmap/internal/core/ports"
	"github.com/samirrijal/trafficmap/internal/pkg/metrics"
)

const datasetSummaryKey = "dataset:summary"

// DatasetService owns the base dataset. It is loaded once and shared
// read-only by every session.
type DatasetService struct {
	source ports.DatasetSource
	cache  ports.CacheService

	mu       sync.RWMutex
	table    domain.Table
	loaded   bool
	loadedAt time.Time
}

// NewDatasetService creates a new DatasetService.
func NewDatasetService(source ports.DatasetSource, cache ports.CacheService) *DatasetService {
	return &DatasetService{source: source, cache: cache}
}

// NewStaticDatasetService wraps an already loaded table.
func NewStaticDatasetService(table domain.Table) *DatasetService {
	table.InUTC()
	return &DatasetService{table: table, loaded: true, loadedAt: time.Now()}
}

// Load reads the dataset from its source and replaces the in-memory table.
func (s *DatasetService) Load(ctx context.Context) error {
	if s.source == nil {
		return fmt.Errorf("load dataset: %w", domain.ErrDatasetUnavailable)
	}

	start := time.Now()
	table, err := s.source.Load(ctx)
	if err != nil {
		return fmt.Errorf("load dataset from %s: %w", s.source.Describe(), err)
	}
	table.InUTC()

	s.mu.Lock()
	s.table = table
	s.loaded = true
	s.loadedAt = time.Now()
	s.mu.Unlock()

	if s.cache != nil {
		_ = s.cache.Delete(ctx, datasetSummaryKey)
	}

	metrics.DatasetRows.Set(float64(len(table)))
	slog.Info("dataset loaded",
		"source", s.source.Describe(),
		"rows", len(table),
		"took", time.Since(start).String(),
	)
	return nil
}

// Table returns the base dataset. Callers must not modify it.
func (s *DatasetService) Table() (domain.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return nil, domain.ErrDatasetUnavailable
	}
	return s.table, nil
}

// Loaded reports whether the dataset is in memory and when it was read.
func (s *DatasetService) Loaded() (bool, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded, s.loadedAt
}

// Summary describes the base dataset.
func (s *DatasetService) Summary(ctx context.Context) (*domain.Summary, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, datasetSummaryKey); err == nil {
			var sum domain.Summary
			if err := json.Unmarshal(data, &sum); err == nil {
				metrics.CacheHits.WithLabelValues("dataset_summary").Inc()
				return &sum, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("dataset_summary").Inc()
	}

	table, err := s.Table()
	if err != nil {
		return nil, err
	}
	sum := Summarize(table)

	// The dataset only changes on Load, which drops this key.
	if s.cache != nil {
		if data, err := json.Marshal(sum); err == nil {
			_ = s.cache.Set(ctx, datasetSummaryKey, data, 3600)
		}
	}

	return sum, nil
}
