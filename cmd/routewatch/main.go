// Command routewatch follows the route event stream and logs every computed
// route. It is a durable JetStream consumer, so events published while it
// was down are delivered on restart.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	natsadapter "github.com/samirrijal/routegate/internal/adapters/nats"
	"github.com/samirrijal/routegate/internal/core/domain"
	"github.com/samirrijal/routegate/internal/pkg/config"
	"github.com/samirrijal/routegate/internal/pkg/logging"
)

func main() {
	cfg, err := config.Load("routegate-routewatch")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "info"
	}
	logging.Setup("routegate-routewatch", level, "json")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL, "routewatch")
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer sub.Close()

	err = sub.SubscribeRouteComputed(ctx, func(ctx context.Context, ev *domain.RouteComputed) error {
		slog.Info("route computed",
			"event_id", ev.ID,
			"request_id", ev.RequestID,
			"route_id", ev.RouteID,
			"costing", ev.Costing,
			"live_traffic", ev.LiveTraffic,
			"exclusions", ev.ExclusionCount,
			"coordinates", ev.CoordinateCount,
			"length_m", ev.LengthMeters,
			"duration_ms", ev.DurationMillis,
		)
		return nil
	})
	if err != nil {
		log.Fatalf("subscribe: %v", err)
	}

	slog.Info("routewatch started", "subject", natsadapter.RouteEventsSubject)
	<-ctx.Done()
	slog.Info("routewatch stopped")
}
