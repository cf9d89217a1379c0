package services

import (
	"context"
	"fmt"
	"time"

	"lastmile-route-service/internal/domain"
	"lastmile-route-service/internal/geo"
	"lastmile-route-service/internal/platform/obs"
	"lastmile-route-service/internal/ports"
)

// OptimizeRequest names the entities one optimization run plans over.
type OptimizeRequest struct {
	DepotID    int64   `json:"depot_id"`
	VehicleIDs []int64 `json:"vehicle_ids"`
	StopIDs    []int64 `json:"stop_ids"`
	Date       string  `json:"date"`
}

// Optimizer loads the requested entities, builds the travel matrix,
// solves, and persists the resulting route plans. It runs inside a
// dispatcher worker; the context carries the solve deadline.
type Optimizer struct {
	depots     ports.DepotRepository
	vehicles   ports.VehicleRepository
	stops      ports.StopRepository
	routes     ports.RouteRepository
	matrix     ports.MatrixBuilder
	serviceMin float64
}

func NewOptimizer(
	depots ports.DepotRepository,
	vehicles ports.VehicleRepository,
	stops ports.StopRepository,
	routes ports.RouteRepository,
	matrix ports.MatrixBuilder,
	serviceMin float64,
) *Optimizer {
	if serviceMin <= 0 {
		serviceMin = DefaultServiceTimeMin
	}
	return &Optimizer{
		depots:     depots,
		vehicles:   vehicles,
		stops:      stops,
		routes:     routes,
		matrix:     matrix,
		serviceMin: serviceMin,
	}
}

// Validate checks the request shape before a job is created. Failures
// here are the caller's fault and never reach the queue.
func (o *Optimizer) Validate(req OptimizeRequest) error {
	if req.DepotID <= 0 {
		return &ValidationError{Msg: "depot_id is required"}
	}
	if len(req.VehicleIDs) == 0 {
		return &ValidationError{Msg: "vehicle_ids must not be empty"}
	}
	if len(req.StopIDs) == 0 {
		return &ValidationError{Msg: "stop_ids must not be empty"}
	}
	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		return &ValidationError{Msg: "date must be YYYY-MM-DD"}
	}
	return nil
}

// Run executes one optimization end to end and returns the persisted
// summary. Errors map to job failure reasons via FailureReason.
func (o *Optimizer) Run(ctx context.Context, req OptimizeRequest) (res *domain.OptimizeResult, err error) {
	defer obs.Time(ctx, "optimize.run")(&err)

	depot, err := o.depots.GetDepot(ctx, req.DepotID)
	if err != nil {
		return nil, fmt.Errorf("optimize: load depot %d: %w", req.DepotID, err)
	}
	if depot == nil {
		return nil, &NotFoundError{Resource: "depot", ID: req.DepotID}
	}

	vehicles, err := o.vehicles.ListVehiclesByIDs(ctx, req.VehicleIDs)
	if err != nil {
		return nil, fmt.Errorf("optimize: load vehicles: %w", err)
	}
	if missing := missingID(req.VehicleIDs, vehicleIDs(vehicles)); missing != 0 {
		return nil, &NotFoundError{Resource: "vehicle", ID: missing}
	}

	stops, err := o.stops.ListStopsByIDs(ctx, req.StopIDs)
	if err != nil {
		return nil, fmt.Errorf("optimize: load stops: %w", err)
	}
	if missing := missingID(req.StopIDs, stopIDsOf(stops)); missing != 0 {
		return nil, &NotFoundError{Resource: "stop", ID: missing}
	}

	locs := make([]domain.Location, 0, len(stops)+1)
	locs = append(locs, depot.Location)
	for _, st := range stops {
		if !st.Location.Valid() {
			return nil, &ValidationError{Msg: fmt.Sprintf("stop %d has invalid coordinates", st.ID)}
		}
		locs = append(locs, st.Location)
	}

	m, err := o.matrix.Build(ctx, locs)
	if err != nil {
		return nil, fmt.Errorf("optimize: %w: %v", ErrMatrixUnavailable, err)
	}

	solverStops := make([]SolverStop, len(stops))
	for i, st := range stops {
		solverStops[i] = SolverStop{
			ID:          st.ID,
			Idx:         i + 1, // depot occupies matrix index 0
			WeightKg:    st.PackageWeightKg,
			EarliestMin: st.EarliestMin,
			LatestMin:   st.LatestMin,
		}
	}
	solverVehicles := make([]SolverVehicle, len(vehicles))
	for i, v := range vehicles {
		solverVehicles[i] = SolverVehicle{ID: v.ID, CapacityKg: v.CapacityKg}
	}

	sol, err := NewSolver(solverStops, solverVehicles, m, depot.OpenMin, o.serviceMin).Solve(ctx)
	if err != nil {
		return nil, err
	}

	plans := make([]ports.RoutePlan, 0, len(sol.Routes))
	for _, r := range sol.Routes {
		plan := ports.RoutePlan{
			Route: domain.Route{
				VehicleID:       r.VehicleID,
				Date:            req.Date,
				TotalDistanceKm: r.DistanceKm,
				TotalTimeMin:    r.TimeMin,
			},
		}
		for k, st := range r.Stops {
			plan.Stops = append(plan.Stops, domain.RouteStop{
				StopID:            st.ID,
				Sequence:          k,
				PlannedArrival:    geo.FormatClock(r.Arrivals[k]),
				PlannedArrivalMin: r.Arrivals[k] - depot.OpenMin,
			})
		}
		plans = append(plans, plan)
	}

	routeIDs, err := o.routes.SaveRoutePlans(ctx, plans)
	if err != nil {
		return nil, fmt.Errorf("optimize: save route plans: %w", err)
	}

	return &domain.OptimizeResult{
		RouteIDs:         routeIDs,
		TotalDistanceKm:  sol.TotalDistanceKm,
		GreedyDistanceKm: sol.GreedyDistanceKm,
		ImprovementPct:   sol.ImprovementPct,
		NumRoutes:        len(routeIDs),
	}, nil
}

// missingID returns the first requested id absent from found, or 0.
func missingID(requested, found []int64) int64 {
	have := make(map[int64]struct{}, len(found))
	for _, id := range found {
		have[id] = struct{}{}
	}
	for _, id := range requested {
		if _, ok := have[id]; !ok {
			return id
		}
	}
	return 0
}

func vehicleIDs(vs []*domain.Vehicle) []int64 {
	ids := make([]int64, len(vs))
	for i, v := range vs {
		ids[i] = v.ID
	}
	return ids
}
