// Package geospatial holds great-circle helpers for decoded route shapes.
package geospatial

import "math"

const earthRadiusKm = 6371.0

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c * 1000 // meters
}

// PathLength sums the great-circle length in meters of a path given as
// [lon, lat] pairs. Fewer than two points have zero length.
func PathLength(path [][2]float64) float64 {
	var total float64
	for i := 1; i < len(path); i++ {
		prev, cur := path[i-1], path[i]
		total += Haversine(prev[1], prev[0], cur[1], cur[0])
	}
	return total
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
