package services

import (
	"context"
	"sort"
	"sync"

	"lastmile-route-service/internal/domain"
	"lastmile-route-service/internal/ports"
)

type memDepotRepo struct {
	nextID int64
	depots map[int64]*domain.Depot
}

func newMemDepotRepo() *memDepotRepo {
	return &memDepotRepo{depots: make(map[int64]*domain.Depot)}
}

func (r *memDepotRepo) GetDepot(_ context.Context, id int64) (*domain.Depot, error) {
	d, ok := r.depots[id]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (r *memDepotRepo) CreateDepot(_ context.Context, d *domain.Depot) (int64, error) {
	r.nextID++
	cp := *d
	cp.ID = r.nextID
	r.depots[cp.ID] = &cp
	return cp.ID, nil
}

type memVehicleRepo struct {
	nextID   int64
	vehicles map[int64]*domain.Vehicle
}

func newMemVehicleRepo() *memVehicleRepo {
	return &memVehicleRepo{vehicles: make(map[int64]*domain.Vehicle)}
}

func (r *memVehicleRepo) GetVehicle(_ context.Context, id int64) (*domain.Vehicle, error) {
	v, ok := r.vehicles[id]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

func (r *memVehicleRepo) ListVehicles(_ context.Context) ([]*domain.Vehicle, error) {
	ids := make([]int64, 0, len(r.vehicles))
	for id := range r.vehicles {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]*domain.Vehicle, 0, len(ids))
	for _, id := range ids {
		cp := *r.vehicles[id]
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memVehicleRepo) ListVehiclesByIDs(_ context.Context, ids []int64) ([]*domain.Vehicle, error) {
	var out []*domain.Vehicle
	for _, id := range ids {
		if v, ok := r.vehicles[id]; ok {
			cp := *v
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memVehicleRepo) CreateVehicle(_ context.Context, v *domain.Vehicle) (int64, error) {
	r.nextID++
	cp := *v
	cp.ID = r.nextID
	r.vehicles[cp.ID] = &cp
	return cp.ID, nil
}

type memStopRepo struct {
	nextID int64
	stops  map[int64]*domain.Stop
}

func newMemStopRepo() *memStopRepo {
	return &memStopRepo{stops: make(map[int64]*domain.Stop)}
}

func (r *memStopRepo) GetStop(_ context.Context, id int64) (*domain.Stop, error) {
	s, ok := r.stops[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *memStopRepo) ListStops(_ context.Context) ([]*domain.Stop, error) {
	ids := make([]int64, 0, len(r.stops))
	for id := range r.stops {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]*domain.Stop, 0, len(ids))
	for _, id := range ids {
		cp := *r.stops[id]
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memStopRepo) ListStopsByIDs(_ context.Context, ids []int64) ([]*domain.Stop, error) {
	var out []*domain.Stop
	for _, id := range ids {
		if s, ok := r.stops[id]; ok {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memStopRepo) CreateStop(_ context.Context, s *domain.Stop) (int64, error) {
	r.nextID++
	cp := *s
	cp.ID = r.nextID
	r.stops[cp.ID] = &cp
	return cp.ID, nil
}

type memRouteRepo struct {
	nextID int64
	routes map[int64]*domain.Route
	stops  map[int64][]domain.RouteStop
}

func newMemRouteRepo() *memRouteRepo {
	return &memRouteRepo{
		routes: make(map[int64]*domain.Route),
		stops:  make(map[int64][]domain.RouteStop),
	}
}

func (r *memRouteRepo) SaveRoutePlans(_ context.Context, plans []ports.RoutePlan) ([]int64, error) {
	ids := make([]int64, 0, len(plans))
	for _, p := range plans {
		r.nextID++
		route := p.Route
		route.ID = r.nextID
		r.routes[route.ID] = &route

		stops := make([]domain.RouteStop, len(p.Stops))
		copy(stops, p.Stops)
		for i := range stops {
			stops[i].RouteID = route.ID
		}
		r.stops[route.ID] = stops
		ids = append(ids, route.ID)
	}
	return ids, nil
}

func (r *memRouteRepo) GetRoute(_ context.Context, id int64) (*domain.Route, error) {
	rt, ok := r.routes[id]
	if !ok {
		return nil, nil
	}
	cp := *rt
	return &cp, nil
}

func (r *memRouteRepo) ListRouteStops(_ context.Context, routeID int64) ([]*domain.RouteStop, error) {
	stops := r.stops[routeID]
	out := make([]*domain.RouteStop, 0, len(stops))
	for i := range stops {
		cp := stops[i]
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

func (r *memRouteRepo) UpdateArrivals(_ context.Context, routeID int64, stops []domain.RouteStop) error {
	updated := make([]domain.RouteStop, len(stops))
	copy(updated, stops)
	r.stops[routeID] = updated
	return nil
}

// staticMatrixBuilder serves a deep copy of a fixed matrix on every call.
type staticMatrixBuilder struct {
	m *ports.Matrix
}

func (b *staticMatrixBuilder) Build(_ context.Context, _ []domain.Location) (*ports.Matrix, error) {
	return &ports.Matrix{
		DistKm:   cloneMatrix(b.m.DistKm),
		TimeMin:  cloneMatrix(b.m.TimeMin),
		Fallback: b.m.Fallback,
	}, nil
}

// capturePublisher records published events for assertions.
type capturePublisher struct {
	mu     sync.Mutex
	events []domain.RerouteEvent
}

func (p *capturePublisher) Publish(_ int64, ev domain.RerouteEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *capturePublisher) published() []domain.RerouteEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.RerouteEvent(nil), p.events...)
}
