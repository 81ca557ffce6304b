package util

import (
	"math"
)

// DistanceMeters calculates the great-circle distance between two geographic
// points using the Haversine formula.
// Parameters: lat1, lon1, lat2, lon2 in degrees
// Returns: distance in meters
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusM = 6371000.0 // Earth's radius in meters

	lat1Rad := degToRad(lat1)
	lon1Rad := degToRad(lon1)
	lat2Rad := degToRad(lat2)
	lon2Rad := degToRad(lon2)

	dLat := lat2Rad - lat1Rad
	dLon := lon2Rad - lon1Rad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusM * c
}

// BoundingBox returns the min/max latitude and longitude of a box that
// contains every point within radiusMeters of the centre. Longitude spread
// widens with latitude; near the poles the box degenerates to the full
// longitude range.
func BoundingBox(lat, lon, radiusMeters float64) (minLat, maxLat, minLon, maxLon float64) {
	const earthRadiusM = 6371000.0

	latDelta := radToDeg(radiusMeters / earthRadiusM)
	minLat = lat - latDelta
	maxLat = lat + latDelta

	cosLat := math.Cos(degToRad(lat))
	if cosLat < 1e-10 {
		return minLat, maxLat, -180, 180
	}
	lonDelta := radToDeg(radiusMeters / (earthRadiusM * cosLat))
	minLon = lon - lonDelta
	maxLon = lon + lonDelta
	return minLat, maxLat, minLon, maxLon
}

// degToRad converts degrees to radians
func degToRad(deg float64) float64 {
	return deg * (math.Pi / 180.0)
}

// radToDeg converts radians to degrees
func radToDeg(rad float64) float64 {
	return rad * (180.0 / math.Pi)
}
