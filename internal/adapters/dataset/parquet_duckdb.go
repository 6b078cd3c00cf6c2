//go:build cgo && duckdb

package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/samirrijal/trafficmap/internal/core/domain"
	"github.com/samirrijal/trafficmap/internal/pkg/metrics"
)

// ParquetSource reads a Parquet trace export through an in-process DuckDB.
type ParquetSource struct {
	path string
}

func NewParquetSource(path string) *ParquetSource {
	return &ParquetSource{path: path}
}

func (s *ParquetSource) Describe() string { return "parquet:" + s.path }

// Load flattens the nested location struct when the file has one.
func (s *ParquetSource) Load(ctx context.Context) (domain.Table, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	defer db.Close()

	src := "read_parquet('" + strings.ReplaceAll(s.path, "'", "''") + "')"

	nested, err := hasColumn(ctx, db, src, "location")
	if err != nil {
		return nil, err
	}
	latExpr, lonExpr := "latitude", "longitude"
	if nested {
		latExpr, lonExpr = "location.latitude", "location.longitude"
	}

	query := fmt.Sprintf(
		`SELECT CAST("time" AS TIMESTAMP), CAST(speed AS DOUBLE), CAST(%s AS DOUBLE), CAST(%s AS DOUBLE) FROM %s`,
		latExpr, lonExpr, src,
	)
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query parquet: %w", err)
	}
	defer rows.Close()

	var (
		table   domain.Table
		dropped int
	)
	for rows.Next() {
		var (
			ts            sql.NullTime
			speed, la, lo sql.NullFloat64
		)
		if err := rows.Scan(&ts, &speed, &la, &lo); err != nil {
			return nil, err
		}
		rec := domain.Record{Time: ts.Time, Speed: speed.Float64, Latitude: la.Float64, Longitude: lo.Float64}
		if !ts.Valid || !speed.Valid || !la.Valid || !lo.Valid || !rec.Valid() {
			dropped++
			continue
		}
		table = append(table, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if dropped > 0 {
		metrics.RowsDropped.WithLabelValues("parquet").Add(float64(dropped))
		slog.Warn("dropped malformed rows", "source", s.Describe(), "dropped", dropped)
	}
	return table, nil
}

func hasColumn(ctx context.Context, db *sql.DB, src, name string) (bool, error) {
	rows, err := db.QueryContext(ctx, "DESCRIBE SELECT * FROM "+src)
	if err != nil {
		return false, fmt.Errorf("describe parquet: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return false, err
	}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return false, err
		}
		if col, ok := vals[0].(string); ok && strings.EqualFold(col, name) {
			return true, nil
		}
	}
	return false, rows.Err()
}
