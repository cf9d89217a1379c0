package ports

import (
	"context"

	"lastmile-route-service/internal/domain"
)

// Matrix holds pairwise travel distances (km) and times (minutes) for an
// ordered location list. Index 0 is always the depot. Both matrices are
// symmetric with zero diagonals. Fallback marks a matrix produced by the
// haversine estimate rather than the external routing service; downstream
// components may log the degradation but must treat it as authoritative.
type Matrix struct {
	DistKm   [][]float64
	TimeMin  [][]float64
	Fallback bool
}

// N returns the number of locations the matrix covers.
func (m *Matrix) N() int { return len(m.DistKm) }

// Contract for building a travel matrix over an ordered location list.
type MatrixBuilder interface {
	// Build returns NxN distance and time matrices for locs.
	// It must be total: when the primary strategy is unavailable the
	// implementation falls back to a pure estimate instead of failing.
	Build(ctx context.Context, locs []domain.Location) (*Matrix, error)
}
