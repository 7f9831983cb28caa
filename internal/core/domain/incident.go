package domain

// GeometryKind tags the variant held by an IncidentGeometry.
type GeometryKind int

const (
	GeometryPoint GeometryKind = iota + 1
	GeometryLineString
)

func (k GeometryKind) String() string {
	switch k {
	case GeometryPoint:
		return "Point"
	case GeometryLineString:
		return "LineString"
	}
	return "Unknown"
}

// IncidentGeometry is either a single point or a line string.
// Points holds exactly one element for GeometryPoint.
type IncidentGeometry struct {
	Kind   GeometryKind
	Points []GeoPoint
}

// PointGeometry builds a point variant.
func PointGeometry(p GeoPoint) IncidentGeometry {
	return IncidentGeometry{Kind: GeometryPoint, Points: []GeoPoint{p}}
}

// LineStringGeometry builds a line string variant.
func LineStringGeometry(vertices []GeoPoint) IncidentGeometry {
	return IncidentGeometry{Kind: GeometryLineString, Points: vertices}
}

// Incident is a traffic incident reported by the provider. Only the
// geometry feeds routing; Type and IconCategory are carried for callers.
type Incident struct {
	Type         string
	IconCategory int
	Geometry     IncidentGeometry
}

// ExclusionPoints returns the points the routing engine must avoid for this
// incident: the point itself, or every vertex of a line string in order.
func (i Incident) ExclusionPoints() []GeoPoint {
	switch i.Geometry.Kind {
	case GeometryPoint:
		if len(i.Geometry.Points) == 0 {
			return nil
		}
		return []GeoPoint{i.Geometry.Points[0]}
	case GeometryLineString:
		out := make([]GeoPoint, len(i.Geometry.Points))
		copy(out, i.Geometry.Points)
		return out
	}
	return nil
}
