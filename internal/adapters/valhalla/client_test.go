package valhalla_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/routegate/internal/adapters/valhalla"
	"github.com/samirrijal/routegate/internal/core/domain"
)

func testPayload() *domain.RoutingPayload {
	req := &domain.RouteRequest{
		Locations: []domain.GeoPoint{
			{Lat: 50.01, Lon: 10.01},
			{Lat: 50.09, Lon: 10.09},
		},
		Costing:        "auto",
		CostingOptions: json.RawMessage(`{"auto":{"use_tolls":0.5,"name":"<a&b>"}}`),
		Units:          "kilometers",
		ID:             "route-1",
	}
	return domain.NewRoutingPayload(req, []domain.GeoPoint{{Lat: 50.05, Lon: 10.05}})
}

func TestRoute_PostsPayload(t *testing.T) {
	var got []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/route", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		got, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"trip":{"legs":[{"shape":"_p~iF~ps|U"}],"units":"kilometers"}}`))
	}))
	defer srv.Close()

	resp, err := valhalla.NewClient(srv.URL+"/route").Route(context.Background(), testPayload())
	require.NoError(t, err)

	shape, err := resp.FirstShape()
	require.NoError(t, err)
	assert.Equal(t, "_p~iF~ps|U", shape)

	want := `{"locations":[{"lat":50.01,"lon":10.01},{"lat":50.09,"lon":10.09}],` +
		`"costing":"auto","costing_options":{"auto":{"use_tolls":0.5,"name":"<a&b>"}},` +
		`"units":"kilometers","id":"route-1","exclude_locations":[{"lat":50.05,"lon":10.05}]}`
	assert.Equal(t, want, string(got))
}

func TestRoute_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error_code":171,"error":"No suitable edges near location"}`))
	}))
	defer srv.Close()

	_, err := valhalla.NewClient(srv.URL).Route(context.Background(), testPayload())
	var ue *domain.UpstreamError
	require.True(t, errors.As(err, &ue), "expected UpstreamError, got %v", err)
	assert.Equal(t, http.StatusBadRequest, ue.StatusCode)
	assert.Contains(t, ue.Body, "No suitable edges")
}

func TestRoute_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>oops</html>`))
	}))
	defer srv.Close()

	_, err := valhalla.NewClient(srv.URL).Route(context.Background(), testPayload())
	var se *domain.ResponseShapeError
	require.True(t, errors.As(err, &se), "expected ResponseShapeError, got %v", err)
}

func TestRoute_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := valhalla.NewClient(url).Route(context.Background(), testPayload())
	var ue *domain.UpstreamError
	require.True(t, errors.As(err, &ue), "expected UpstreamError, got %v", err)
	assert.True(t, ue.Transport())
}

func TestMarshalPayload_EmptyExclusions(t *testing.T) {
	req := &domain.RouteRequest{
		Locations: []domain.GeoPoint{{Lat: 1, Lon: 2}, {Lat: 3, Lon: 4}},
		Costing:   "pedestrian",
	}
	b, err := valhalla.MarshalPayload(domain.NewRoutingPayload(req, nil))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"exclude_locations":[]`)
	assert.Contains(t, string(b), `"costing_options":{}`)
}

func TestMarshalPayload_CostingOptionsCompactedInOrder(t *testing.T) {
	req := &domain.RouteRequest{
		Locations:      []domain.GeoPoint{{Lat: 1, Lon: 2}, {Lat: 3, Lon: 4}},
		Costing:        "truck",
		CostingOptions: json.RawMessage("{\n  \"truck\": {\"width\": 2.5, \"axle_load\": 9},\n  \"auto\": {}\n}"),
	}
	b, err := valhalla.MarshalPayload(domain.NewRoutingPayload(req, nil))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"costing_options":{"truck":{"width":2.5,"axle_load":9},"auto":{}}`)
}
