package http

import (
	"context"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/routegate/internal/adapters/postgres"
	"github.com/samirrijal/routegate/internal/adapters/valkey"
	"github.com/samirrijal/routegate/internal/core/domain"
	"github.com/samirrijal/routegate/internal/core/usecases"
)

// PayloadStore returns the most recently recorded routing payload.
type PayloadStore interface {
	Last(ctx context.Context) (*domain.RoutingPayload, time.Time, error)
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Routes    *usecases.RouteService
	Incidents *usecases.IncidentService
	NATS      *nats.Conn
	DB        *postgres.DB
	Cache     *valkey.Cache
	Payloads  PayloadStore

	// OpenAPIPath is served at /docs/openapi.yaml. Empty means api/openapi.yaml.
	OpenAPIPath string

	// RequestTimeout bounds each routing request, outbound calls included.
	// Zero means 30s.
	RequestTimeout time.Duration
}

func (d *Dependencies) requestTimeout() time.Duration {
	if d.RequestTimeout > 0 {
		return d.RequestTimeout
	}
	return 30 * time.Second
}
