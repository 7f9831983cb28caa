package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// RouteRequest is the caller's routing request. CostingOptions is forwarded
// to the routing engine byte-for-byte and never interpreted here.
type RouteRequest struct {
	Locations      []GeoPoint      `json:"locations"`
	Costing        string          `json:"costing"`
	CostingOptions json.RawMessage `json:"costing_options"`
	Units          string          `json:"units"`
	ID             string          `json:"id"`
}

// Validate checks the request before any upstream is contacted.
func (r *RouteRequest) Validate() error {
	if len(r.Locations) < 2 {
		return &ValidationError{Field: "locations", Reason: fmt.Sprintf("at least 2 locations required, got %d", len(r.Locations))}
	}
	for i, loc := range r.Locations {
		if err := loc.Validate(); err != nil {
			return prefixField(fmt.Sprintf("locations[%d].", i), err)
		}
	}
	if r.Costing == "" {
		return &ValidationError{Field: "costing", Reason: "costing is required"}
	}
	opts := bytes.TrimSpace(r.CostingOptions)
	if len(opts) > 0 && !bytes.Equal(opts, []byte("null")) {
		if opts[0] != '{' || !json.Valid(opts) {
			return &ValidationError{Field: "costing_options", Reason: "costing_options must be a JSON object"}
		}
	}
	return nil
}

// RoutingPayload is the body sent to the routing engine: the request fields
// verbatim plus the points to route around.
type RoutingPayload struct {
	Locations        []GeoPoint      `json:"locations"`
	Costing          string          `json:"costing"`
	CostingOptions   json.RawMessage `json:"costing_options"`
	Units            string          `json:"units"`
	ID               string          `json:"id"`
	ExcludeLocations []GeoPoint      `json:"exclude_locations"`
}

// NewRoutingPayload composes the downstream request. A nil exclusion list is
// sent as an empty array.
func NewRoutingPayload(req *RouteRequest, exclude []GeoPoint) *RoutingPayload {
	if exclude == nil {
		exclude = []GeoPoint{}
	}
	opts := req.CostingOptions
	if len(bytes.TrimSpace(opts)) == 0 || bytes.Equal(bytes.TrimSpace(opts), []byte("null")) {
		opts = json.RawMessage("{}")
	}
	return &RoutingPayload{
		Locations:        req.Locations,
		Costing:          req.Costing,
		CostingOptions:   opts,
		Units:            req.Units,
		ID:               req.ID,
		ExcludeLocations: exclude,
	}
}

// TripResponse mirrors the part of the routing engine response we read.
// Pointers let extraction tell a missing field from an empty one.
type TripResponse struct {
	Trip *Trip `json:"trip"`
}

// Trip is a routed journey split into legs.
type Trip struct {
	Legs    []Leg        `json:"legs"`
	Summary *TripSummary `json:"summary,omitempty"`
	Units   string       `json:"units,omitempty"`
}

// Leg carries the encoded geometry of one section of a trip.
type Leg struct {
	Shape *string `json:"shape"`
}

// TripSummary is the routing engine's distance and time summary.
type TripSummary struct {
	Length float64 `json:"length"`
	Time   float64 `json:"time"`
}

// FirstShape returns trip.legs[0].shape or a ResponseShapeError naming the missing field.
func (r *TripResponse) FirstShape() (string, error) {
	switch {
	case r == nil || r.Trip == nil:
		return "", &ResponseShapeError{Upstream: UpstreamRouter, Path: "trip"}
	case len(r.Trip.Legs) == 0:
		return "", &ResponseShapeError{Upstream: UpstreamRouter, Path: "trip.legs[0]"}
	case r.Trip.Legs[0].Shape == nil:
		return "", &ResponseShapeError{Upstream: UpstreamRouter, Path: "trip.legs[0].shape"}
	}
	return *r.Trip.Legs[0].Shape, nil
}

// RouteDetails is the decoded route. Coordinates is always the exact decode of Polyline.
type RouteDetails struct {
	Coordinates [][2]float64 `json:"coordinates"` // [lon, lat]
	Polyline    string       `json:"polyline"`
}

// RouteResponse is the inbound endpoint's success body.
type RouteResponse struct {
	RouteDetails *RouteDetails `json:"route_details"`
}

// RouteComputed is published after a route was returned to a caller.
type RouteComputed struct {
	ID              string    `json:"id"`
	RequestID       string    `json:"request_id,omitempty"`
	RouteID         string    `json:"route_id,omitempty"`
	Costing         string    `json:"costing"`
	LiveTraffic     bool      `json:"live_traffic"`
	ExclusionCount  int       `json:"exclusion_count"`
	CoordinateCount int       `json:"coordinate_count"`
	LengthMeters    float64   `json:"length_m"`
	Origin          GeoPoint  `json:"origin"`
	Destination     GeoPoint  `json:"destination"`
	ComputedAt      time.Time `json:"computed_at"`
	DurationMillis  int64     `json:"duration_ms"`
}
