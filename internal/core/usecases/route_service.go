package usecases

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/routegate/internal/core/domain"
	"github.com/samirrijal/routegate/internal/core/ports"
	"github.com/samirrijal/routegate/internal/pkg/geospatial"
	"github.com/samirrijal/routegate/internal/pkg/logging"
	"github.com/samirrijal/routegate/internal/pkg/metrics"
	"github.com/samirrijal/routegate/internal/pkg/polyline"
)

var tracer = otel.Tracer("github.com/samirrijal/routegate/internal/core/usecases")

// RouteService aggregates traffic incidents and the routing engine into a
// single decoded route.
type RouteService struct {
	incidents *IncidentService
	engine    ports.RoutingEngine
	recorder  ports.PayloadRecorder
	events    ports.EventPublisher
	precision int
	now       func() time.Time
}

// RouteOption customises a RouteService.
type RouteOption func(*RouteService)

// WithPayloadRecorder installs a sink for the outgoing routing payload.
func WithPayloadRecorder(r ports.PayloadRecorder) RouteOption {
	return func(s *RouteService) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithEventPublisher publishes a RouteComputed event after every successful route.
func WithEventPublisher(p ports.EventPublisher) RouteOption {
	return func(s *RouteService) { s.events = p }
}

// WithPrecision overrides the polyline precision of the routing engine's shapes.
func WithPrecision(precision int) RouteOption {
	return func(s *RouteService) { s.precision = precision }
}

// NewRouteService creates a new RouteService. Without options the payload
// recorder is a no-op and no events are published.
func NewRouteService(incidents *IncidentService, engine ports.RoutingEngine, opts ...RouteOption) *RouteService {
	s := &RouteService{
		incidents: incidents,
		engine:    engine,
		recorder:  nopRecorder{},
		precision: polyline.DefaultPrecision,
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Route fetches incidents (when liveTraffic is set), asks the routing engine
// to avoid them and decodes the returned shape. Any failure aborts the request.
func (s *RouteService) Route(ctx context.Context, req *domain.RouteRequest, bbox domain.BoundingBox, liveTraffic bool) (*domain.RouteDetails, error) {
	ctx, span := tracer.Start(ctx, "RouteService.Route")
	defer span.End()
	span.SetAttributes(
		attribute.Bool("routegate.live_traffic", liveTraffic),
		attribute.String("routegate.costing", req.Costing),
		attribute.Int("routegate.locations", len(req.Locations)),
	)

	details, excluded, err := s.route(ctx, req, bbox, liveTraffic)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("routegate.exclusions", excluded),
		attribute.Int("routegate.coordinates", len(details.Coordinates)),
	)
	return details, nil
}

func (s *RouteService) route(ctx context.Context, req *domain.RouteRequest, bbox domain.BoundingBox, liveTraffic bool) (*domain.RouteDetails, int, error) {
	start := s.now()
	log := logging.FromContext(ctx)

	if err := req.Validate(); err != nil {
		return nil, 0, err
	}

	exclude := []domain.GeoPoint{}
	if liveTraffic {
		points, err := s.incidents.FetchExclusions(ctx, bbox)
		if err != nil {
			return nil, 0, &domain.StageError{Stage: domain.StageIncidents, Err: err}
		}
		exclude = points
	}

	payload := domain.NewRoutingPayload(req, exclude)

	if err := s.recorder.Record(ctx, payload); err != nil {
		log.Warn("record routing payload", "error", err)
	}

	resp, err := s.engine.Route(ctx, payload)
	if err != nil {
		return nil, 0, &domain.StageError{Stage: domain.StageRoute, Err: err}
	}

	shape, err := resp.FirstShape()
	if err != nil {
		return nil, 0, &domain.StageError{Stage: domain.StageRoute, Err: err}
	}

	decoded, err := polyline.Decode(shape, s.precision)
	if err != nil {
		metrics.PolylineDecodeErrors.Inc()
		return nil, 0, &domain.StageError{Stage: domain.StageDecode, Err: err}
	}

	details := &domain.RouteDetails{
		Coordinates: polyline.ToLonLat(decoded),
		Polyline:    shape,
	}

	log.Debug("route computed",
		"costing", req.Costing,
		"live_traffic", liveTraffic,
		"exclusions", len(exclude),
		"coordinates", len(details.Coordinates),
	)

	s.publish(ctx, req, liveTraffic, len(exclude), details, start)
	return details, len(exclude), nil
}

func (s *RouteService) publish(ctx context.Context, req *domain.RouteRequest, liveTraffic bool, excluded int, details *domain.RouteDetails, start time.Time) {
	if s.events == nil {
		return
	}
	now := s.now()
	event := &domain.RouteComputed{
		ID:              uuid.NewString(),
		RequestID:       logging.RequestIDFromContext(ctx),
		RouteID:         req.ID,
		Costing:         req.Costing,
		LiveTraffic:     liveTraffic,
		ExclusionCount:  excluded,
		CoordinateCount: len(details.Coordinates),
		LengthMeters:    geospatial.PathLength(details.Coordinates),
		Origin:          req.Locations[0],
		Destination:     req.Locations[len(req.Locations)-1],
		ComputedAt:      now.UTC(),
		DurationMillis:  now.Sub(start).Milliseconds(),
	}
	if err := s.events.PublishRouteComputed(ctx, event); err != nil {
		logging.FromContext(ctx).Warn("publish route event", "error", err)
	}
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, *domain.RoutingPayload) error { return nil }
