//go:build !(cgo && duckdb)

package dataset

import (
	"context"
	"errors"

	"github.com/samirrijal/trafficmap/internal/core/domain"
)

// ErrParquetUnsupported is returned by binaries built without DuckDB.
var ErrParquetUnsupported = errors.New("parquet support requires building with CGO_ENABLED=1 -tags duckdb")

// ParquetSource is a placeholder for builds without the duckdb tag.
type ParquetSource struct {
	path string
}

func NewParquetSource(path string) *ParquetSource {
	return &ParquetSource{path: path}
}

func (s *ParquetSource) Describe() string { return "parquet:" + s.path }

func (s *ParquetSource) Load(context.Context) (domain.Table, error) {
	return nil, ErrParquetUnsupported
}
