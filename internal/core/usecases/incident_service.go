package usecases

import (
	"context"

	"github.com/samirrijal/routegate/internal/core/domain"
	"github.com/samirrijal/routegate/internal/core/ports"
	"github.com/samirrijal/routegate/internal/pkg/metrics"
)

// IncidentService turns provider incidents into exclusion points.
type IncidentService struct {
	provider ports.IncidentProvider
}

// NewIncidentService creates a new IncidentService.
func NewIncidentService(provider ports.IncidentProvider) *IncidentService {
	return &IncidentService{provider: provider}
}

// FetchExclusions returns one exclusion point per point incident and one per
// vertex of every line-string incident, in provider order.
func (s *IncidentService) FetchExclusions(ctx context.Context, bbox domain.BoundingBox) ([]domain.GeoPoint, error) {
	if err := bbox.Validate(); err != nil {
		return nil, err
	}

	incidents, err := s.provider.Incidents(ctx, bbox)
	if err != nil {
		return nil, err
	}

	points := make([]domain.GeoPoint, 0, len(incidents))
	for _, inc := range incidents {
		points = append(points, inc.ExclusionPoints()...)
	}

	metrics.ExclusionPoints.Observe(float64(len(points)))
	return points, nil
}
