package tomtom

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/samirrijal/routegate/internal/core/domain"
)

// --- JSON types for the Traffic Incident Details v5 response ---

type incidentDetailsResponse struct {
	Incidents []apiIncident `json:"incidents"`
}

type apiIncident struct {
	Type       string             `json:"type"`
	Geometry   apiGeometry        `json:"geometry"`
	Properties apiIncidentDetails `json:"properties"`
}

type apiIncidentDetails struct {
	IconCategory int `json:"iconCategory"`
}

type apiGeometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// toDomain classifies the geometry by the shape of its coordinate payload:
// a nested array is a line string, a flat [lon, lat] pair is a point.
func (g apiGeometry) toDomain() (domain.IncidentGeometry, error) {
	raw := bytes.TrimSpace(g.Coordinates)
	if len(raw) == 0 || raw[0] != '[' {
		return domain.IncidentGeometry{}, errors.New("coordinates must be an array")
	}

	inner := bytes.TrimSpace(raw[1:])
	if len(inner) > 0 && inner[0] == '[' {
		var line [][]float64
		if err := json.Unmarshal(raw, &line); err != nil {
			return domain.IncidentGeometry{}, fmt.Errorf("line string: %w", err)
		}
		if len(line) == 0 {
			return domain.IncidentGeometry{}, errors.New("line string has no vertices")
		}
		vertices := make([]domain.GeoPoint, 0, len(line))
		for i, c := range line {
			p, err := lonLat(c)
			if err != nil {
				return domain.IncidentGeometry{}, fmt.Errorf("vertex %d: %w", i, err)
			}
			vertices = append(vertices, p)
		}
		return domain.LineStringGeometry(vertices), nil
	}

	var pair []float64
	if err := json.Unmarshal(raw, &pair); err != nil {
		return domain.IncidentGeometry{}, fmt.Errorf("point: %w", err)
	}
	p, err := lonLat(pair)
	if err != nil {
		return domain.IncidentGeometry{}, err
	}
	return domain.PointGeometry(p), nil
}

// lonLat converts a GeoJSON position; a trailing altitude is ignored.
func lonLat(c []float64) (domain.GeoPoint, error) {
	if len(c) < 2 {
		return domain.GeoPoint{}, fmt.Errorf("position needs lon and lat, got %d values", len(c))
	}
	return domain.GeoPoint{Lon: c[0], Lat: c[1]}, nil
}
