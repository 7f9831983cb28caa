package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	handler "github.com/samirrijal/routegate/internal/adapters/http"
	"github.com/samirrijal/routegate/internal/core/domain"
	"github.com/samirrijal/routegate/internal/core/usecases"
	"github.com/samirrijal/routegate/internal/pkg/polyline"
)

// ---- Fakes ----

type fakeProvider struct {
	calls     int
	bbox      domain.BoundingBox
	incidents []domain.Incident
	err       error
}

func (f *fakeProvider) Incidents(ctx context.Context, bbox domain.BoundingBox) ([]domain.Incident, error) {
	f.calls++
	f.bbox = bbox
	return f.incidents, f.err
}

type fakeEngine struct {
	calls int
	got   *domain.RoutingPayload
	resp  *domain.TripResponse
	err   error
}

func (f *fakeEngine) Route(ctx context.Context, p *domain.RoutingPayload) (*domain.TripResponse, error) {
	f.calls++
	f.got = p
	return f.resp, f.err
}

type fakePayloads struct {
	payload *domain.RoutingPayload
	err     error
}

func (f *fakePayloads) Last(ctx context.Context) (*domain.RoutingPayload, time.Time, error) {
	return f.payload, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), f.err
}

// ---- Test helpers ----

var routePoints = []polyline.LatLng{{Lat: 50.01, Lng: 10.01}, {Lat: 50.09, Lng: 10.09}}

func tripWithShape(shape string) *domain.TripResponse {
	return &domain.TripResponse{Trip: &domain.Trip{Legs: []domain.Leg{{Shape: &shape}}}}
}

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func makeDeps(provider *fakeProvider, engine *fakeEngine) *handler.Dependencies {
	incidents := usecases.NewIncidentService(provider)
	return &handler.Dependencies{
		Incidents: incidents,
		Routes:    usecases.NewRouteService(incidents, engine),
	}
}

const routeBody = `{"locations":[{"lat":50.01,"lon":10.01},{"lat":50.09,"lon":10.09}],"costing":"auto","units":"kilometers","id":"r1"}`

const bboxQuery = "min_lon=10.0&min_lat=50.0&max_lon=10.1&max_lat=50.1"

func doRequest(t *testing.T, app *fiber.App, method, path, body string) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, b
}

func decodeAPIError(t *testing.T, body []byte) handler.APIError {
	t.Helper()
	var apiErr handler.APIError
	if err := json.Unmarshal(body, &apiErr); err != nil {
		t.Fatalf("decode error body %q: %v", body, err)
	}
	return apiErr
}

// ---- Route handler tests ----

func TestRoute_ExcludesIncidentPoints(t *testing.T) {
	provider := &fakeProvider{incidents: []domain.Incident{
		{Geometry: domain.PointGeometry(domain.GeoPoint{Lat: 50.05, Lon: 10.05})},
	}}
	engine := &fakeEngine{resp: tripWithShape(polyline.Encode(routePoints, 6))}
	app := setupApp(makeDeps(provider, engine))

	status, body := doRequest(t, app, "POST", "/v1/route?"+bboxQuery, routeBody)
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}

	want := domain.BoundingBox{MinLon: 10.0, MinLat: 50.0, MaxLon: 10.1, MaxLat: 50.1}
	if provider.bbox != want {
		t.Errorf("provider bbox = %+v, want %+v", provider.bbox, want)
	}
	if len(engine.got.ExcludeLocations) != 1 || engine.got.ExcludeLocations[0] != (domain.GeoPoint{Lat: 50.05, Lon: 10.05}) {
		t.Errorf("exclude_locations = %+v", engine.got.ExcludeLocations)
	}

	var resp struct {
		RouteDetails struct {
			Coordinates [][2]float64 `json:"coordinates"`
			Polyline    string       `json:"polyline"`
		} `json:"route_details"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatal(err)
	}
	wantCoords := [][2]float64{{10.01, 50.01}, {10.09, 50.09}}
	if len(resp.RouteDetails.Coordinates) != len(wantCoords) {
		t.Fatalf("expected %d coordinates, got %d", len(wantCoords), len(resp.RouteDetails.Coordinates))
	}
	for i, c := range wantCoords {
		if resp.RouteDetails.Coordinates[i] != c {
			t.Errorf("coordinate %d = %v, want %v", i, resp.RouteDetails.Coordinates[i], c)
		}
	}
	if resp.RouteDetails.Polyline != polyline.Encode(routePoints, 6) {
		t.Errorf("unexpected polyline %q", resp.RouteDetails.Polyline)
	}
}

func TestRoute_LiveTrafficDisabled(t *testing.T) {
	provider := &fakeProvider{}
	engine := &fakeEngine{resp: tripWithShape(polyline.Encode(routePoints, 6))}
	app := setupApp(makeDeps(provider, engine))

	status, body := doRequest(t, app, "POST", "/v1/route?"+bboxQuery+"&live_traffic=false", routeBody)
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	if provider.calls != 0 {
		t.Errorf("expected no incident lookups, got %d", provider.calls)
	}
	if engine.got.ExcludeLocations == nil || len(engine.got.ExcludeLocations) != 0 {
		t.Errorf("expected empty exclude_locations, got %#v", engine.got.ExcludeLocations)
	}
}

func TestRoute_LegacyPathIsDeprecatedAlias(t *testing.T) {
	engine := &fakeEngine{resp: tripWithShape(polyline.Encode(routePoints, 6))}
	app := setupApp(makeDeps(&fakeProvider{}, engine))

	req := httptest.NewRequest("POST", "/combined?"+bboxQuery, strings.NewReader(routeBody))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Deprecation") != "true" {
		t.Error("expected Deprecation header on legacy path")
	}
	if !strings.Contains(resp.Header.Get("Link"), "/v1/route") {
		t.Errorf("expected successor link, got %q", resp.Header.Get("Link"))
	}
}

func TestRoute_RouterStatusPassedThrough(t *testing.T) {
	engine := &fakeEngine{err: &domain.UpstreamError{
		Upstream:   domain.UpstreamRouter,
		StatusCode: 400,
		Body:       `{"error":"No suitable edges near location"}`,
	}}
	app := setupApp(makeDeps(&fakeProvider{}, engine))

	status, body := doRequest(t, app, "POST", "/v1/route?"+bboxQuery+"&live_traffic=false", routeBody)
	if status != 400 {
		t.Fatalf("expected 400, got %d", status)
	}
	apiErr := decodeAPIError(t, body)
	if apiErr.Code != "upstream_error" {
		t.Errorf("expected upstream_error, got %s", apiErr.Code)
	}
	if apiErr.Stage != domain.StageRoute {
		t.Errorf("expected stage %q, got %q", domain.StageRoute, apiErr.Stage)
	}
	if !strings.Contains(apiErr.Message, "No suitable edges") {
		t.Errorf("expected router body in message, got %q", apiErr.Message)
	}
}

func TestRoute_TrafficStatusAbortsRequest(t *testing.T) {
	provider := &fakeProvider{err: &domain.UpstreamError{Upstream: domain.UpstreamTraffic, StatusCode: 403, Body: "Forbidden"}}
	engine := &fakeEngine{}
	app := setupApp(makeDeps(provider, engine))

	status, body := doRequest(t, app, "POST", "/v1/route?"+bboxQuery, routeBody)
	if status != 403 {
		t.Fatalf("expected 403, got %d", status)
	}
	if engine.calls != 0 {
		t.Error("routing engine must not be called after an incident failure")
	}
	if got := decodeAPIError(t, body).Stage; got != domain.StageIncidents {
		t.Errorf("expected stage %q, got %q", domain.StageIncidents, got)
	}
}

func TestRoute_TransportFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
		code string
	}{
		{"unreachable", errors.New("connection refused"), 502, "bad_gateway"},
		{"timeout", context.DeadlineExceeded, 504, "upstream_timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &fakeEngine{err: &domain.UpstreamError{Upstream: domain.UpstreamRouter, Err: tt.err}}
			app := setupApp(makeDeps(&fakeProvider{}, engine))

			status, body := doRequest(t, app, "POST", "/v1/route?"+bboxQuery+"&live_traffic=false", routeBody)
			if status != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, status)
			}
			if got := decodeAPIError(t, body).Code; got != tt.code {
				t.Errorf("expected %s, got %s", tt.code, got)
			}
		})
	}
}

func TestRoute_MissingShapeIsInternalError(t *testing.T) {
	engine := &fakeEngine{resp: &domain.TripResponse{Trip: &domain.Trip{}}}
	app := setupApp(makeDeps(&fakeProvider{}, engine))

	status, body := doRequest(t, app, "POST", "/v1/route?"+bboxQuery+"&live_traffic=false", routeBody)
	if status != 500 {
		t.Fatalf("expected 500, got %d", status)
	}
	if got := decodeAPIError(t, body).Code; got != "internal_error" {
		t.Errorf("expected internal_error, got %s", got)
	}
}

func TestRoute_CorruptShapeIsInternalError(t *testing.T) {
	engine := &fakeEngine{resp: tripWithShape("_p~iF~ps|U_")}
	app := setupApp(makeDeps(&fakeProvider{}, engine))

	status, body := doRequest(t, app, "POST", "/v1/route?"+bboxQuery+"&live_traffic=false", routeBody)
	if status != 500 {
		t.Fatalf("expected 500, got %d", status)
	}
	if got := decodeAPIError(t, body).Stage; got != domain.StageDecode {
		t.Errorf("expected stage %q, got %q", domain.StageDecode, got)
	}
}

func TestRoute_BadRequests(t *testing.T) {
	tests := []struct {
		name  string
		query string
		body  string
	}{
		{"missing bbox", "", routeBody},
		{"non-numeric bbox", "min_lon=x&min_lat=50&max_lon=10.1&max_lat=50.1", routeBody},
		{"bad live_traffic", bboxQuery + "&live_traffic=maybe", routeBody},
		{"invalid json", bboxQuery, `{"locations":`},
		{"single location", bboxQuery, `{"locations":[{"lat":50,"lon":10}],"costing":"auto"}`},
		{"latitude out of range", bboxQuery, `{"locations":[{"lat":91,"lon":10},{"lat":50,"lon":10}],"costing":"auto"}`},
		{"missing costing", bboxQuery, `{"locations":[{"lat":50,"lon":10},{"lat":50.1,"lon":10.1}]}`},
		{"inverted bbox", "min_lon=10.1&min_lat=50.0&max_lon=10.0&max_lat=50.1", routeBody},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &fakeEngine{}
			app := setupApp(makeDeps(&fakeProvider{}, engine))

			status, body := doRequest(t, app, "POST", "/v1/route?"+tt.query, tt.body)
			if status != 400 {
				t.Fatalf("expected 400, got %d: %s", status, body)
			}
			if got := decodeAPIError(t, body).Code; got != "bad_request" {
				t.Errorf("expected bad_request, got %s", got)
			}
			if engine.calls != 0 {
				t.Error("routing engine must not be called for a bad request")
			}
		})
	}
}

// ---- Incident handler tests ----

func TestIncidents_FlattensGeometries(t *testing.T) {
	provider := &fakeProvider{incidents: []domain.Incident{
		{Geometry: domain.PointGeometry(domain.GeoPoint{Lat: 50.05, Lon: 10.05})},
		{Geometry: domain.LineStringGeometry([]domain.GeoPoint{
			{Lat: 50.01, Lon: 10.01},
			{Lat: 50.02, Lon: 10.02},
		})},
	}}
	app := setupApp(makeDeps(provider, &fakeEngine{}))

	for _, tc := range []struct{ method, path string }{
		{"GET", "/v1/incidents?" + bboxQuery},
		{"POST", "/get_incidents?" + bboxQuery},
	} {
		status, body := doRequest(t, app, tc.method, tc.path, "")
		if status != 200 {
			t.Fatalf("%s %s: expected 200, got %d: %s", tc.method, tc.path, status, body)
		}
		var points []domain.GeoPoint
		if err := json.Unmarshal(body, &points); err != nil {
			t.Fatal(err)
		}
		want := []domain.GeoPoint{{Lat: 50.05, Lon: 10.05}, {Lat: 50.01, Lon: 10.01}, {Lat: 50.02, Lon: 10.02}}
		if len(points) != len(want) {
			t.Fatalf("expected %d points, got %d", len(want), len(points))
		}
		for i := range want {
			if points[i] != want[i] {
				t.Errorf("point %d = %+v, want %+v", i, points[i], want[i])
			}
		}
	}
}

func TestIncidents_EmptyIsArray(t *testing.T) {
	app := setupApp(makeDeps(&fakeProvider{}, &fakeEngine{}))

	status, body := doRequest(t, app, "GET", "/v1/incidents?"+bboxQuery, "")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if strings.TrimSpace(string(body)) != "[]" {
		t.Errorf("expected [], got %s", body)
	}
}

// ---- Debug payload ----

func TestLastPayload(t *testing.T) {
	deps := makeDeps(&fakeProvider{}, &fakeEngine{})
	app := setupApp(deps)

	status, _ := doRequest(t, app, "GET", "/v1/debug/payload", "")
	if status != 404 {
		t.Fatalf("expected 404 without a payload store, got %d", status)
	}

	deps.Payloads = &fakePayloads{err: domain.ErrNoPayload}
	app = setupApp(deps)
	status, _ = doRequest(t, app, "GET", "/v1/debug/payload", "")
	if status != 404 {
		t.Fatalf("expected 404 before any payload, got %d", status)
	}

	req := &domain.RouteRequest{
		Locations: []domain.GeoPoint{{Lat: 1, Lon: 2}, {Lat: 3, Lon: 4}},
		Costing:   "auto",
	}
	deps.Payloads = &fakePayloads{payload: domain.NewRoutingPayload(req, nil)}
	app = setupApp(deps)
	status, body := doRequest(t, app, "GET", "/v1/debug/payload", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if !strings.Contains(string(body), `"exclude_locations":[]`) {
		t.Errorf("unexpected body %s", body)
	}
}

// ---- Health ----

func TestHealthAndReady(t *testing.T) {
	app := setupApp(makeDeps(&fakeProvider{}, &fakeEngine{}))

	status, _ := doRequest(t, app, "GET", "/v1/health", "")
	if status != 200 {
		t.Fatalf("health: expected 200, got %d", status)
	}

	// Nothing optional configured: still ready.
	status, body := doRequest(t, app, "GET", "/v1/ready", "")
	if status != 200 {
		t.Fatalf("ready: expected 200, got %d: %s", status, body)
	}
	if !strings.Contains(string(body), `"database":"not configured"`) {
		t.Errorf("unexpected ready body %s", body)
	}
}

// ---- GraphQL ----

func TestGraphQL_RouteMutation(t *testing.T) {
	engine := &fakeEngine{resp: tripWithShape(polyline.Encode(routePoints, 6))}
	app := setupApp(makeDeps(&fakeProvider{}, engine))

	query := `mutation {
		route(min_lon: 10.0, min_lat: 50.0, max_lon: 10.1, max_lat: 50.1, live_traffic: false,
			request: {locations: [{lat: 50.01, lon: 10.01}, {lat: 50.09, lon: 10.09}], costing: "auto", costing_options: "{\"auto\":{\"use_tolls\":0}}"}) {
			coordinates
			polyline
		}
	}`
	payload, _ := json.Marshal(map[string]string{"query": query})

	status, body := doRequest(t, app, "POST", "/graphql", string(payload))
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}

	var result struct {
		Data struct {
			Route struct {
				Coordinates [][]float64 `json:"coordinates"`
				Polyline    string      `json:"polyline"`
			} `json:"route"`
		} `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatal(err)
	}
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %+v", result.Errors)
	}
	if len(result.Data.Route.Coordinates) != 2 {
		t.Fatalf("expected 2 coordinates, got %d", len(result.Data.Route.Coordinates))
	}
	if got := string(engine.got.CostingOptions); got != `{"auto":{"use_tolls":0}}` {
		t.Errorf("costing_options = %s", got)
	}
}

func TestGraphQL_IncidentsQuery(t *testing.T) {
	provider := &fakeProvider{incidents: []domain.Incident{
		{Geometry: domain.PointGeometry(domain.GeoPoint{Lat: 50.05, Lon: 10.05})},
	}}
	app := setupApp(makeDeps(provider, &fakeEngine{}))

	payload, _ := json.Marshal(map[string]string{
		"query": `{ incidents(min_lon: 10.0, min_lat: 50.0, max_lon: 10.1, max_lat: 50.1) { lat lon } }`,
	})
	status, body := doRequest(t, app, "POST", "/graphql", string(payload))
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if !strings.Contains(string(body), `"incidents":[{"lat":50.05,"lon":10.05}]`) {
		t.Errorf("unexpected body %s", body)
	}
}
