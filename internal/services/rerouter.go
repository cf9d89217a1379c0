package services

import (
	"context"
	"fmt"
	"sync"

	"lastmile-route-service/internal/domain"
	"lastmile-route-service/internal/geo"
	"lastmile-route-service/internal/platform/obs"
	"lastmile-route-service/internal/ports"
)

// Rerouter recomputes a route's ETAs after traffic events. The stop
// sequence and vehicle assignment never change; only arrival times do.
// Updates for the same route are serialized so concurrent events cannot
// interleave their read-modify-write cycles.
type Rerouter struct {
	depots     ports.DepotRepository
	vehicles   ports.VehicleRepository
	stops      ports.StopRepository
	routes     ports.RouteRepository
	matrix     ports.MatrixBuilder
	publisher  ports.RoutePublisher
	serviceMin float64

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewRerouter(
	depots ports.DepotRepository,
	vehicles ports.VehicleRepository,
	stops ports.StopRepository,
	routes ports.RouteRepository,
	matrix ports.MatrixBuilder,
	publisher ports.RoutePublisher,
	serviceMin float64,
) *Rerouter {
	if serviceMin <= 0 {
		serviceMin = DefaultServiceTimeMin
	}
	return &Rerouter{
		depots:     depots,
		vehicles:   vehicles,
		stops:      stops,
		routes:     routes,
		matrix:     matrix,
		publisher:  publisher,
		serviceMin: serviceMin,
		locks:      make(map[int64]*sync.Mutex),
	}
}

func (r *Rerouter) routeLock(routeID int64) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[routeID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[routeID] = l
	}
	return l
}

// Reroute applies the traffic events to the route's travel times,
// recomputes and persists every downstream ETA, and broadcasts the
// updated schedule. On error the stored route is left untouched and
// nothing is published.
func (r *Rerouter) Reroute(ctx context.Context, routeID int64, events []domain.TrafficEvent) (ev *domain.RerouteEvent, err error) {
	defer obs.Time(ctx, "reroute.run")(&err)

	for _, e := range events {
		if e.DelayFactor <= 0 {
			return nil, &ValidationError{Msg: "delay_factor must be positive"}
		}
	}

	lock := r.routeLock(routeID)
	lock.Lock()
	defer lock.Unlock()

	route, err := r.routes.GetRoute(ctx, routeID)
	if err != nil {
		return nil, fmt.Errorf("reroute: load route %d: %w", routeID, err)
	}
	if route == nil {
		return nil, &NotFoundError{Resource: "route", ID: routeID}
	}

	routeStops, err := r.routes.ListRouteStops(ctx, routeID)
	if err != nil {
		return nil, fmt.Errorf("reroute: load route stops: %w", err)
	}
	if len(routeStops) == 0 {
		return nil, &NotFoundError{Resource: "route stops", ID: routeID}
	}

	vehicle, err := r.vehicles.GetVehicle(ctx, route.VehicleID)
	if err != nil {
		return nil, fmt.Errorf("reroute: load vehicle %d: %w", route.VehicleID, err)
	}
	if vehicle == nil {
		return nil, &NotFoundError{Resource: "vehicle", ID: route.VehicleID}
	}

	depot, err := r.depots.GetDepot(ctx, vehicle.DepotID)
	if err != nil {
		return nil, fmt.Errorf("reroute: load depot %d: %w", vehicle.DepotID, err)
	}
	if depot == nil {
		return nil, &NotFoundError{Resource: "depot", ID: vehicle.DepotID}
	}

	stopIDs := make([]int64, len(routeStops))
	for i, rs := range routeStops {
		stopIDs[i] = rs.StopID
	}
	stops, err := r.stops.ListStopsByIDs(ctx, stopIDs)
	if err != nil {
		return nil, fmt.Errorf("reroute: load stops: %w", err)
	}
	if missing := missingID(stopIDs, stopIDsOf(stops)); missing != 0 {
		return nil, &NotFoundError{Resource: "stop", ID: missing}
	}

	locs := make([]domain.Location, 0, len(stops)+1)
	locs = append(locs, depot.Location)
	for _, st := range stops {
		locs = append(locs, st.Location)
	}

	m, err := r.matrix.Build(ctx, locs)
	if err != nil {
		return nil, fmt.Errorf("reroute: %w: %v", ErrMatrixUnavailable, err)
	}

	// Stop id -> matrix index; the depot edge endpoint maps to index 0.
	idx := map[int64]int{domain.DepotStopID: 0}
	for i, rs := range routeStops {
		idx[rs.StopID] = i + 1
	}
	timeMin := cloneMatrix(m.TimeMin)
	applyDelayFactors(timeMin, idx, events)

	seq := make([]int, len(routeStops))
	for i := range routeStops {
		seq[i] = i + 1
	}
	arrivals := ComputeArrivals(seq, timeMin, depot.OpenMin, r.serviceMin)

	byID := make(map[int64]*domain.Stop, len(stops))
	for _, st := range stops {
		byID[st.ID] = st
	}

	updated := make([]domain.RouteStop, len(routeStops))
	event := &domain.RerouteEvent{RouteID: routeID}
	for k, rs := range routeStops {
		st := byID[rs.StopID]
		updated[k] = domain.RouteStop{
			RouteID:           routeID,
			StopID:            rs.StopID,
			Sequence:          rs.Sequence,
			PlannedArrival:    geo.FormatClock(arrivals[k]),
			PlannedArrivalMin: arrivals[k] - depot.OpenMin,
		}
		event.Stops = append(event.Stops, domain.RerouteStop{
			StopID:            rs.StopID,
			Sequence:          rs.Sequence,
			PlannedArrival:    updated[k].PlannedArrival,
			PlannedArrivalMin: updated[k].PlannedArrivalMin,
			Lat:               st.Location.Lat,
			Lng:               st.Location.Lng,
			Late:              arrivals[k] > st.LatestMin,
		})
	}

	if err := r.routes.UpdateArrivals(ctx, routeID, updated); err != nil {
		return nil, fmt.Errorf("reroute: update arrivals: %w", err)
	}

	r.publisher.Publish(routeID, *event)
	return event, nil
}

// applyDelayFactors scales travel times on the named edges, both
// directions. Edges referencing stop ids outside the route are skipped;
// overlapping events on the same edge resolve to the maximum factor.
func applyDelayFactors(timeMin [][]float64, idx map[int64]int, events []domain.TrafficEvent) {
	type edge struct{ a, b int }
	factors := make(map[edge]float64)

	for _, ev := range events {
		i, ok := idx[ev.FromStopID]
		if !ok {
			continue
		}
		j, ok := idx[ev.ToStopID]
		if !ok || i == j {
			continue
		}
		if i > j {
			i, j = j, i
		}
		e := edge{i, j}
		if ev.DelayFactor > factors[e] {
			factors[e] = ev.DelayFactor
		}
	}

	for e, f := range factors {
		timeMin[e.a][e.b] *= f
		timeMin[e.b][e.a] *= f
	}
}

func cloneMatrix(m [][]float64) [][]float64 {
	out := make([][]float64, len(m))
	for i, row := range m {
		out[i] = append([]float64(nil), row...)
	}
	return out
}

func stopIDsOf(ss []*domain.Stop) []int64 {
	ids := make([]int64, len(ss))
	for i, s := range ss {
		ids[i] = s.ID
	}
	return ids
}
