package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/samirrijal/routegate/internal/adapters/debugsink"
	"github.com/samirrijal/routegate/internal/adapters/http"
	natsadapter "github.com/samirrijal/routegate/internal/adapters/nats"
	"github.com/samirrijal/routegate/internal/adapters/postgres"
	"github.com/samirrijal/routegate/internal/adapters/tomtom"
	"github.com/samirrijal/routegate/internal/adapters/valhalla"
	"github.com/samirrijal/routegate/internal/adapters/valkey"
	"github.com/samirrijal/routegate/internal/core/usecases"
	"github.com/samirrijal/routegate/internal/pkg/config"
	"github.com/samirrijal/routegate/internal/pkg/logging"
	"github.com/samirrijal/routegate/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("routegate-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup("routegate-api", envOr("LOG_LEVEL", "info"), envOr("LOG_FORMAT", "json"))
	for _, w := range cfg.Warnings() {
		slog.Warn("config", "warning", w)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	deps := &http.Dependencies{
		RequestTimeout: time.Duration(cfg.Server.RequestTimeout) * time.Second,
	}

	// Debug sinks for the outgoing routing payload
	sinks := debugsink.NewFanout(cfg.Debug.Timeout)
	if cfg.Debug.Enabled(config.SinkFile) {
		sinks.Add(config.SinkFile, debugsink.NewFile(cfg.Debug.FilePath))
	}
	if cfg.Debug.Enabled(config.SinkValkey) {
		cache, err := valkey.New(cfg.Valkey.Addr, cfg.Debug.Timeout)
		if err != nil {
			slog.Warn("valkey unavailable, debug sink disabled", "error", err)
		} else {
			defer cache.Close()
			kv := debugsink.NewKeyValue(cache, cfg.Debug.ValkeyKey, cfg.Debug.TTL)
			deps.Cache = cache
			deps.Payloads = kv
			sinks.Add(config.SinkValkey, kv)
		}
	}
	if cfg.Debug.Enabled(config.SinkPostgres) {
		db, err := postgres.New(ctx, cfg.Database.DSN(), "routegate-api")
		if err != nil {
			slog.Warn("database unavailable, debug sink disabled", "error", err)
		} else {
			defer db.Close()
			repo := postgres.NewPayloadRepo(db, "routegate-api")
			// Postgres keeps the payload beyond the valkey TTL, so it wins.
			deps.DB = db
			deps.Payloads = repo
			sinks.Add(config.SinkPostgres, repo)
		}
	}

	routeOpts := []usecases.RouteOption{usecases.WithPrecision(cfg.Router.Precision)}
	if sinks.Len() > 0 {
		routeOpts = append(routeOpts, usecases.WithPayloadRecorder(sinks))
	}

	// Route events
	if cfg.NATS.Enabled {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable, route events disabled", "error", err)
		} else {
			defer pub.Close()
			deps.NATS = pub.Conn()
			routeOpts = append(routeOpts, usecases.WithEventPublisher(pub))
		}
	}

	// Upstreams
	traffic := tomtom.NewClient(cfg.Traffic.BaseURL, cfg.Traffic.APIKey,
		tomtom.WithLanguage(cfg.Traffic.Language),
		tomtom.WithTimeout(cfg.Traffic.Timeout),
	)
	router := valhalla.NewClient(cfg.Router.URL,
		valhalla.WithTimeout(cfg.Router.Timeout),
		valhalla.WithTransport(cfg.Router.MaxIdleConns, cfg.Router.IdleConnTimeout),
	)

	incidentSvc := usecases.NewIncidentService(traffic)
	deps.Incidents = incidentSvc
	deps.Routes = usecases.NewRouteService(incidentSvc, router, routeOpts...)

	slog.Info("routegate configured",
		"router_url", cfg.Router.URL,
		"traffic_base_url", cfg.Traffic.BaseURL,
		"debug_sinks", cfg.Debug.Sinks,
		"nats", cfg.NATS.Enabled,
	)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "RouteGate API",
	})
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
		MaxAge:       3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
