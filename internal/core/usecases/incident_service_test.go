package usecases

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/routegate/internal/core/domain"
)

type stubProvider struct {
	calls     int
	bbox      domain.BoundingBox
	incidents []domain.Incident
	err       error
}

func (s *stubProvider) Incidents(ctx context.Context, bbox domain.BoundingBox) ([]domain.Incident, error) {
	s.calls++
	s.bbox = bbox
	return s.incidents, s.err
}

var testBBox = domain.BoundingBox{MinLon: 10.0, MinLat: 50.0, MaxLon: 10.1, MaxLat: 50.1}

func TestFetchExclusions_PointIncident(t *testing.T) {
	provider := &stubProvider{incidents: []domain.Incident{
		{Type: "Feature", IconCategory: 6, Geometry: domain.PointGeometry(domain.GeoPoint{Lat: 50.05, Lon: 10.05})},
	}}

	points, err := NewIncidentService(provider).FetchExclusions(context.Background(), testBBox)
	require.NoError(t, err)
	assert.Equal(t, testBBox, provider.bbox)
	assert.Equal(t, []domain.GeoPoint{{Lat: 50.05, Lon: 10.05}}, points)
}

func TestFetchExclusions_LineStringKeepsVertexOrder(t *testing.T) {
	line := []domain.GeoPoint{
		{Lat: 50.03, Lon: 10.03},
		{Lat: 50.01, Lon: 10.01},
		{Lat: 50.02, Lon: 10.02},
		{Lat: 50.04, Lon: 10.04},
	}
	provider := &stubProvider{incidents: []domain.Incident{
		{Geometry: domain.PointGeometry(domain.GeoPoint{Lat: 50.09, Lon: 10.09})},
		{Geometry: domain.LineStringGeometry(line)},
	}}

	points, err := NewIncidentService(provider).FetchExclusions(context.Background(), testBBox)
	require.NoError(t, err)

	want := append([]domain.GeoPoint{{Lat: 50.09, Lon: 10.09}}, line...)
	if diff := cmp.Diff(want, points); diff != "" {
		t.Errorf("exclusion points mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchExclusions_NoIncidents(t *testing.T) {
	points, err := NewIncidentService(&stubProvider{}).FetchExclusions(context.Background(), testBBox)
	require.NoError(t, err)
	assert.NotNil(t, points)
	assert.Empty(t, points)
}

func TestFetchExclusions_ProviderError(t *testing.T) {
	upstream := &domain.UpstreamError{Upstream: domain.UpstreamTraffic, StatusCode: 403, Body: "Forbidden"}

	_, err := NewIncidentService(&stubProvider{err: upstream}).FetchExclusions(context.Background(), testBBox)
	var ue *domain.UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, 403, ue.StatusCode)
}

func TestFetchExclusions_InvalidBBox(t *testing.T) {
	provider := &stubProvider{}
	bbox := domain.BoundingBox{MinLon: 10.1, MinLat: 50.0, MaxLon: 10.0, MaxLat: 50.1}

	_, err := NewIncidentService(provider).FetchExclusions(context.Background(), bbox)
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve), "expected ValidationError, got %v", err)
	assert.Zero(t, provider.calls)
}
