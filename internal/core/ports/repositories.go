package ports

import (
	"context"
	"time"

	"github.com/samirrijal/trafficmap/internal/core/domain"
)

// DatasetSource loads the read-only base dataset.
type DatasetSource interface {
	// Load returns every well-formed record in source order.
	Load(ctx context.Context) (domain.Table, error)
	// Describe names the source for logs and the readiness report.
	Describe() string
}

// RecordRepository persists records in a database.
type RecordRepository interface {
	DatasetSource
	InsertBatch(ctx context.Context, records domain.Table) (int64, error)
	Count(ctx context.Context) (int64, error)
}

// SessionStore persists per-session working sets.
type SessionStore interface {
	Get(ctx context.Context, id string) (*domain.Session, error)
	Put(ctx context.Context, session *domain.Session, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}
