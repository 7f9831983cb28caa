package domain

import (
	"fmt"
	"math"
	"strconv"
)

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate checks that the point lies inside the WGS 84 coordinate ranges.
func (p GeoPoint) Validate() error {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) || p.Lat < -90 || p.Lat > 90 {
		return &ValidationError{Field: "lat", Reason: fmt.Sprintf("latitude %v outside [-90, 90]", p.Lat)}
	}
	if math.IsNaN(p.Lon) || math.IsInf(p.Lon, 0) || p.Lon < -180 || p.Lon > 180 {
		return &ValidationError{Field: "lon", Reason: fmt.Sprintf("longitude %v outside [-180, 180]", p.Lon)}
	}
	return nil
}

// BoundingBox scopes the incident query. It is built per request and never stored.
type BoundingBox struct {
	MinLon float64 `json:"min_lon"`
	MinLat float64 `json:"min_lat"`
	MaxLon float64 `json:"max_lon"`
	MaxLat float64 `json:"max_lat"`
}

// Validate checks coordinate ranges and that the minimum corner does not exceed the maximum.
func (b BoundingBox) Validate() error {
	if err := (GeoPoint{Lat: b.MinLat, Lon: b.MinLon}).Validate(); err != nil {
		return prefixField("min_", err)
	}
	if err := (GeoPoint{Lat: b.MaxLat, Lon: b.MaxLon}).Validate(); err != nil {
		return prefixField("max_", err)
	}
	if b.MinLon > b.MaxLon {
		return &ValidationError{Field: "min_lon", Reason: "min_lon must not exceed max_lon"}
	}
	if b.MinLat > b.MaxLat {
		return &ValidationError{Field: "min_lat", Reason: "min_lat must not exceed max_lat"}
	}
	return nil
}

// String renders the box as "minLon,minLat,maxLon,maxLat".
func (b BoundingBox) String() string {
	return formatCoord(b.MinLon) + "," + formatCoord(b.MinLat) + "," +
		formatCoord(b.MaxLon) + "," + formatCoord(b.MaxLat)
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func prefixField(prefix string, err error) error {
	if ve, ok := err.(*ValidationError); ok {
		return &ValidationError{Field: prefix + ve.Field, Reason: ve.Reason}
	}
	return err
}
