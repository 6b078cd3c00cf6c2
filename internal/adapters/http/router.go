package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/trafficmap/internal/pkg/metrics"
)

const (
	openAPIPath    = "api/openapi.yaml"
	requestTimeout = 15 * time.Second
)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Rate limiting: 300 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, 429, "rate_limited", "too many requests, please try again later")
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	// ETag for conditional caching
	app.Use(ETagMiddleware())

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")
	v1.Get("/dataset", timeout.NewWithContext(DatasetHandler(deps), requestTimeout))
	v1.Post("/controls", timeout.NewWithContext(ControlsHandler(deps), requestTimeout))

	sessions := v1.Group("/sessions")
	sessions.Post("/", timeout.NewWithContext(CreateSessionHandler(deps), requestTimeout))
	sessions.Get("/:id", timeout.NewWithContext(GetSessionHandler(deps), requestTimeout))
	sessions.Delete("/:id", timeout.NewWithContext(DeleteSessionHandler(deps), requestTimeout))
	sessions.Post("/:id/generate", timeout.NewWithContext(GenerateHandler(deps), requestTimeout))
	sessions.Post("/:id/refine", timeout.NewWithContext(RefineHandler(deps), requestTimeout))
	sessions.Post("/:id/reset", timeout.NewWithContext(ResetHandler(deps), requestTimeout))
	sessions.Get("/:id/table", timeout.NewWithContext(TableHandler(deps), requestTimeout))
	sessions.Get("/:id/map", timeout.NewWithContext(MapHandler(deps), requestTimeout))
	sessions.Get("/:id/summary", timeout.NewWithContext(SessionSummaryHandler(deps), requestTimeout))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// API documentation (Swagger UI)
	SetupDocs(app, openAPIPath)

	// WebSocket relay needs NATS
	if deps.NATS != nil {
		app.Use("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
	}
}
