package distance

import (
	"lastmile-route-service/internal/domain"
	"lastmile-route-service/internal/geo"
	"lastmile-route-service/internal/ports"
)

// HaversineMatrix computes an NxN great-circle distance matrix with
// travel time estimated at a constant average speed. It is pure and
// never fails, which is what makes the builder's fallback total:
// deterministic for a given location list, symmetric, zero diagonals.
func HaversineMatrix(locs []domain.Location, avgSpeedKmh float64) *ports.Matrix {
	n := len(locs)
	dist := make([][]float64, n)
	timeMin := make([][]float64, n)
	for i := 0; i < n; i++ {
		dist[i] = make([]float64, n)
		timeMin[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := geo.HaversineKm(locs[i], locs[j])
			t := d / avgSpeedKmh * 60.0
			dist[i][j], dist[j][i] = d, d
			timeMin[i][j], timeMin[j][i] = t, t
		}
	}

	return &ports.Matrix{DistKm: dist, TimeMin: timeMin, Fallback: true}
}
