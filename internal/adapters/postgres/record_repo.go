package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/trafficmap/internal/core/domain"
	"github.com/samirrijal/trafficmap/internal/pkg/metrics"
)

const recordsTable = "traffic_records"

// RecordRepo implements ports.RecordRepository on the traffic_records table.
type RecordRepo struct {
	db *DB
}

func NewRecordRepo(db *DB) *RecordRepo {
	return &RecordRepo{db: db}
}

func (r *RecordRepo) Describe() string { return "postgres:" + recordsTable }

// Load returns all records in insertion order. Rows with NULL columns or
// out-of-range coordinates are skipped.
func (r *RecordRepo) Load(ctx context.Context) (domain.Table, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT time, speed, latitude, longitude
		FROM traffic_records
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		table   domain.Table
		dropped int
	)
	for rows.Next() {
		var (
			ts       *time.Time
			speed    *float64
			lat, lon *float64
		)
		if err := rows.Scan(&ts, &speed, &lat, &lon); err != nil {
			return nil, err
		}
		if ts == nil || speed == nil || lat == nil || lon == nil {
			dropped++
			continue
		}
		rec := domain.Record{Time: *ts, Speed: *speed, Latitude: *lat, Longitude: *lon}
		if !rec.Valid() {
			dropped++
			continue
		}
		table = append(table, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if dropped > 0 {
		metrics.RowsDropped.WithLabelValues("postgres").Add(float64(dropped))
		slog.Warn("dropped malformed rows", "source", r.Describe(), "dropped", dropped)
	}
	return table, nil
}

// InsertBatch bulk-loads records with COPY and returns the number written.
func (r *RecordRepo) InsertBatch(ctx context.Context, records domain.Table) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}
	n, err := r.db.Pool.CopyFrom(ctx,
		pgx.Identifier{recordsTable},
		[]string{"time", "speed", "latitude", "longitude"},
		pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
			rec := records[i]
			return []any{rec.Time, rec.Speed, rec.Latitude, rec.Longitude}, nil
		}),
	)
	if err != nil {
		return n, fmt.Errorf("copy %s: %w", recordsTable, err)
	}
	return n, nil
}

func (r *RecordRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM traffic_records`).Scan(&n)
	return n, err
}

// Truncate removes every record. Used by the ingestor's replace mode.
func (r *RecordRepo) Truncate(ctx context.Context) error {
	_, err := r.db.Pool.Exec(ctx, `TRUNCATE traffic_records RESTART IDENTITY`)
	return err
}
