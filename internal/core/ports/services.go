package ports

import (
	"context"
	"errors"

	"github.com/samirrijal/routegate/internal/core/domain"
)

// IncidentProvider fetches currently active traffic incidents inside a bounding box.
type IncidentProvider interface {
	Incidents(ctx context.Context, bbox domain.BoundingBox) ([]domain.Incident, error)
}

// RoutingEngine computes a route for a composed routing payload.
// A non-success status must surface as *domain.UpstreamError.
type RoutingEngine interface {
	Route(ctx context.Context, payload *domain.RoutingPayload) (*domain.TripResponse, error)
}

// PayloadRecorder keeps a diagnostic copy of the last outgoing routing payload.
// Implementations are best-effort; the pipeline never fails because of them.
type PayloadRecorder interface {
	Record(ctx context.Context, payload *domain.RoutingPayload) error
}

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishRouteComputed(ctx context.Context, event *domain.RouteComputed) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeRouteComputed(ctx context.Context, handler func(ctx context.Context, event *domain.RouteComputed) error) error
}

// ErrKeyNotFound is returned by KeyValueStore.Get for a missing or expired key.
var ErrKeyNotFound = errors.New("key not found")

// KeyValueStore is the subset of a cache client the debug sink needs.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
}
