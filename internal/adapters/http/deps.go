package http

import (
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/trafficmap/internal/adapters/postgres"
	"github.com/samirrijal/trafficmap/internal/adapters/valkey"
	"github.com/samirrijal/trafficmap/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
// NATS, DB and Cache are optional.
type Dependencies struct {
	Dataset  *usecases.DatasetService
	Sessions *usecases.SessionService
	Views    *usecases.ViewService
	NATS     *nats.Conn
	DB       *postgres.DB
	Cache    *valkey.Cache
}
