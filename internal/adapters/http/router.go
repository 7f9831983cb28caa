package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/routegate/internal/pkg/metrics"
)

// legacyRoutes are the unversioned paths kept for existing clients.
var legacyRoutes = []DeprecatedRoute{
	{Path: "/combined", Alternative: "/v1/route"},
	{Path: "/get_incidents", Alternative: "/v1/incidents"},
}

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	app.Use(recover.New())

	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
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

	app.Use(DeprecationMiddleware(legacyRoutes))

	// Health & readiness, no timeout
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	rt := deps.requestTimeout()

	v1 := app.Group("/v1")
	v1.Post("/route", timeout.NewWithContext(RouteHandler(deps), rt))
	v1.Get("/incidents", timeout.NewWithContext(IncidentsHandler(deps), rt))
	v1.Get("/debug/payload", LastPayloadHandler(deps))

	app.Post("/combined", timeout.NewWithContext(RouteHandler(deps), rt))
	app.Post("/get_incidents", timeout.NewWithContext(IncidentsHandler(deps), rt))

	app.Post("/graphql", timeout.NewWithContext(GraphQLHandler(deps), rt))

	// API documentation (Swagger UI)
	SetupDocs(app, deps.OpenAPIPath)

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
