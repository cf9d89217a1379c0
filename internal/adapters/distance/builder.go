package distance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"lastmile-route-service/internal/domain"
	"lastmile-route-service/internal/platform/obs"
	"lastmile-route-service/internal/ports"
)

// MatrixCache stores external matrix responses keyed by location-list
// digest. A nil cache disables caching; fallback matrices are never
// cached because they are cheaper to recompute than to fetch.
type MatrixCache interface {
	Get(ctx context.Context, key string) (*ports.Matrix, error)
	Put(ctx context.Context, key string, m *ports.Matrix, ttl time.Duration) error
}

// Builder implements ports.MatrixBuilder.
//
// Primary strategy: one batched external matrix call. Fallback strategy:
// haversine distances with a constant average speed. Fallback triggers:
//   - no external client configured (no API key),
//   - location count above the external per-request cap,
//   - external call error of any kind,
//   - external call exceeding the configured timeout.
type Builder struct {
	client      *ORSMatrixClient // nil when no credential is configured
	cache       MatrixCache
	locationCap int
	timeout     time.Duration
	avgSpeedKmh float64
	cacheTTL    time.Duration
}

type BuilderOptions struct {
	Client      *ORSMatrixClient
	Cache       MatrixCache
	LocationCap int
	Timeout     time.Duration
	AvgSpeedKmh float64
	CacheTTL    time.Duration
}

func NewBuilder(opts BuilderOptions) *Builder {
	if opts.LocationCap <= 0 {
		opts.LocationCap = 49
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.AvgSpeedKmh <= 0 {
		opts.AvgSpeedKmh = 40.0
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 15 * time.Minute
	}
	return &Builder{
		client:      opts.Client,
		cache:       opts.Cache,
		locationCap: opts.LocationCap,
		timeout:     opts.Timeout,
		avgSpeedKmh: opts.AvgSpeedKmh,
		cacheTTL:    opts.CacheTTL,
	}
}

// Build returns NxN distance (km) and time (minutes) matrices for locs.
// locs[0] is the depot by convention. The only error paths are malformed
// inputs; strategy failures degrade to the haversine fallback instead.
func (b *Builder) Build(ctx context.Context, locs []domain.Location) (_ *ports.Matrix, err error) {
	defer obs.Time(ctx, "matrix.Build")(&err)

	if len(locs) == 0 {
		return nil, errors.New("build matrix: empty location list")
	}
	for i, l := range locs {
		if !l.Valid() {
			return nil, fmt.Errorf("build matrix: location %d out of range (%f, %f)", i, l.Lat, l.Lng)
		}
	}

	if b.client == nil {
		return HaversineMatrix(locs, b.avgSpeedKmh), nil
	}
	if len(locs) > b.locationCap {
		log.Printf("matrix: n=%d exceeds external cap=%d, using haversine fallback", len(locs), b.locationCap)
		return HaversineMatrix(locs, b.avgSpeedKmh), nil
	}

	key := CacheKey(locs)
	if b.cache != nil {
		cached, cerr := b.cache.Get(ctx, key)
		if cerr != nil {
			log.Printf("matrix cache read failed: %v", cerr)
		} else if cached != nil {
			return cached, nil
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	m, err := b.client.FetchMatrix(callCtx, locs)
	if err != nil {
		log.Printf("matrix: external call failed (%v), using haversine fallback", err)
		return HaversineMatrix(locs, b.avgSpeedKmh), nil
	}

	if b.cache != nil {
		if cerr := b.cache.Put(ctx, key, m, b.cacheTTL); cerr != nil {
			log.Printf("matrix cache write failed: %v", cerr)
		}
	}

	return m, nil
}
