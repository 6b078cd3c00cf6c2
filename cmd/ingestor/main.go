package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/samirrijal/trafficmap/internal/adapters/dataset"
	"github.com/samirrijal/trafficmap/internal/adapters/postgres"
	"github.com/samirrijal/trafficmap/internal/pkg/config"
	"github.com/samirrijal/trafficmap/internal/pkg/logging"
)

const batchSize = 10000

// ingestor copies a CSV or Parquet trace export into traffic_records.
//
//	ingestor <file> [replace]
func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: ingestor <file.csv|file.parquet> [replace]")
	}
	path := os.Args[1]
	replace := len(os.Args) > 2 && os.Args[2] == "replace"

	cfg, err := config.Load("trafficmap-ingestor")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx := context.Background()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()
	repo := postgres.NewRecordRepo(db)

	kind := cfg.Dataset.Source
	if kind == "postgres" {
		kind = ""
	}
	source, err := dataset.FileSource(kind, path)
	if err != nil {
		log.Fatalf("source: %v", err)
	}

	start := time.Now()
	table, err := source.Load(ctx)
	if err != nil {
		log.Fatalf("load %s: %v", source.Describe(), err)
	}
	slog.Info("source loaded", "source", source.Describe(), "rows", len(table), "took", time.Since(start).String())

	if replace {
		if err := repo.Truncate(ctx); err != nil {
			log.Fatalf("truncate: %v", err)
		}
		slog.Info("existing records removed")
	}

	var written int64
	for off := 0; off < len(table); off += batchSize {
		end := off + batchSize
		if end > len(table) {
			end = len(table)
		}
		n, err := repo.InsertBatch(ctx, table[off:end])
		if err != nil {
			log.Fatalf("insert batch at %d: %v", off, err)
		}
		written += n
		slog.Info("batch copied", "rows", n, "total", written)
	}

	total, err := repo.Count(ctx)
	if err != nil {
		log.Fatalf("count: %v", err)
	}
	slog.Info("ingestion complete", "written", written, "table_rows", total, "took", time.Since(start).String())
}
