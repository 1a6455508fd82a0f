package services

import (
	"math"
	"time"
)

// CalculateLateness classifies a mark against the session cutoff. Pure
// function of the two timestamps: marks at or before the cutoff are on time;
// late marks round minutes up, so cutoff+61s is 2 minutes late.
func CalculateLateness(markedAt, cutoff time.Time) (isLate bool, minutesLate int) {
	if !markedAt.After(cutoff) {
		return false, 0
	}
	seconds := markedAt.Sub(cutoff).Seconds()
	return true, int(math.Ceil(seconds / 60.0))
}

const earthRadiusMeters = 6371000.0

// HaversineDistance returns the great-circle distance in meters between two
// coordinates.
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	rad := func(deg float64) float64 { return deg * math.Pi / 180.0 }

	dLat := rad(lat2 - lat1)
	dLon := rad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}
