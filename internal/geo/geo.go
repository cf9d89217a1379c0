// Package geo provides great-circle distance and clock-time helpers.
//
// Distances use the haversine formula on WGS-84 coordinates. Clock times
// within a day are represented as minutes since midnight, the unit every
// scheduling computation in the solver and rerouter works in.
package geo

import (
	"fmt"
	"math"

	"lastmile-route-service/internal/domain"
)

// EarthRadiusKm is the mean radius of Earth in kilometers.
const EarthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance between two points in
// kilometers.
func HaversineKm(a, b domain.Location) float64 {
	dLat := degToRad(b.Lat - a.Lat)
	dLng := degToRad(b.Lng - a.Lng)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)

	h := sinLat*sinLat +
		math.Cos(degToRad(a.Lat))*math.Cos(degToRad(b.Lat))*sinLng*sinLng

	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h))
}

// TravelMinutes estimates direct travel time between two points at a
// constant average speed.
func TravelMinutes(a, b domain.Location, avgSpeedKmh float64) float64 {
	return HaversineKm(a, b) / avgSpeedKmh * 60.0
}

// ParseClock converts an "HH:MM" or "HH:MM:SS" clock string to minutes
// since midnight.
func ParseClock(s string) (float64, error) {
	var h, m, sec int
	if _, err := fmt.Sscanf(s, "%d:%d:%d", &h, &m, &sec); err != nil {
		sec = 0
		if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
			return 0, fmt.Errorf("parse clock %q: %w", s, err)
		}
	}
	if h < 0 || h > 23 || m < 0 || m > 59 || sec < 0 || sec > 59 {
		return 0, fmt.Errorf("parse clock %q: out of range", s)
	}
	return float64(h)*60 + float64(m) + float64(sec)/60, nil
}

// FormatClock converts minutes since midnight to an "HH:MM" clock string.
// Fractional minutes are truncated; values past midnight wrap.
func FormatClock(min float64) string {
	total := int(min) % (24 * 60)
	if total < 0 {
		total += 24 * 60
	}
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

func degToRad(deg float64) float64 {
	return deg * (math.Pi / 180.0)
}
