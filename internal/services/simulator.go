package services

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"lastmile-route-service/internal/domain"
	"lastmile-route-service/internal/ports"
)

// cityBox bounds random stop placement for a demo scenario.
type cityBox struct {
	latMin, latMax float64
	lngMin, lngMax float64
}

var cityBoxes = map[string]cityBox{
	"seattle": {47.50, 47.70, -122.42, -122.25},
	"la":      {33.93, 34.15, -118.45, -118.15},
	"nyc":     {40.63, 40.85, -74.05, -73.85},
}

// serviceWindows are the window presets assigned round-robin-free at
// random: morning, midday, afternoon, all day. Minutes since midnight.
var serviceWindows = [][2]float64{
	{540, 720},
	{600, 840},
	{720, 1020},
	{480, 1080},
}

var capacityPresets = []float64{200, 300, 500}

// SimulationRequest seeds a demo scenario in one of the preset cities.
// A non-zero Seed makes the generated scenario reproducible.
type SimulationRequest struct {
	City        string `json:"city"`
	NumStops    int    `json:"num_stops"`
	NumVehicles int    `json:"num_vehicles"`
	Seed        int64  `json:"seed"`
}

// SimulationResult lists the entities a scenario created, ready to be
// fed into an optimization request.
type SimulationResult struct {
	DepotID    int64   `json:"depot_id"`
	VehicleIDs []int64 `json:"vehicle_ids"`
	StopIDs    []int64 `json:"stop_ids"`
}

// Simulator creates demo depots, vehicles, and stops, and fabricates
// traffic events against existing routes.
type Simulator struct {
	depots   ports.DepotRepository
	vehicles ports.VehicleRepository
	stops    ports.StopRepository
	routes   ports.RouteRepository
}

func NewSimulator(
	depots ports.DepotRepository,
	vehicles ports.VehicleRepository,
	stops ports.StopRepository,
	routes ports.RouteRepository,
) *Simulator {
	return &Simulator{depots: depots, vehicles: vehicles, stops: stops, routes: routes}
}

// Start seeds a scenario: one depot at the city center, vehicles with
// preset capacities, and stops scattered across the city's bounding box
// with random windows and package weights.
func (s *Simulator) Start(ctx context.Context, req SimulationRequest) (*SimulationResult, error) {
	if req.City == "" {
		req.City = "seattle"
	}
	box, ok := cityBoxes[req.City]
	if !ok {
		return nil, &ValidationError{Msg: fmt.Sprintf("unknown city %q", req.City)}
	}
	if req.NumStops <= 0 {
		req.NumStops = 10
	}
	if req.NumVehicles <= 0 {
		req.NumVehicles = 3
	}

	seed := req.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	depotID, err := s.depots.CreateDepot(ctx, &domain.Depot{
		Name: fmt.Sprintf("%s depot", req.City),
		Location: domain.Location{
			Lat: (box.latMin + box.latMax) / 2,
			Lng: (box.lngMin + box.lngMax) / 2,
		},
		OpenMin:  480,
		CloseMin: 1080,
	})
	if err != nil {
		return nil, fmt.Errorf("simulation: create depot: %w", err)
	}

	res := &SimulationResult{DepotID: depotID}

	for i := 0; i < req.NumVehicles; i++ {
		id, err := s.vehicles.CreateVehicle(ctx, &domain.Vehicle{
			DepotID:    depotID,
			CapacityKg: capacityPresets[rng.Intn(len(capacityPresets))],
			DriverName: fmt.Sprintf("driver-%d", i+1),
		})
		if err != nil {
			return nil, fmt.Errorf("simulation: create vehicle: %w", err)
		}
		res.VehicleIDs = append(res.VehicleIDs, id)
	}

	for i := 0; i < req.NumStops; i++ {
		win := serviceWindows[rng.Intn(len(serviceWindows))]
		id, err := s.stops.CreateStop(ctx, &domain.Stop{
			Address: fmt.Sprintf("simulated stop %d, %s", i+1, req.City),
			Location: domain.Location{
				Lat: box.latMin + rng.Float64()*(box.latMax-box.latMin),
				Lng: box.lngMin + rng.Float64()*(box.lngMax-box.lngMin),
			},
			EarliestMin:     win[0],
			LatestMin:       win[1],
			PackageWeightKg: 1 + rng.Float64()*24,
			Status:          domain.StopPending,
		})
		if err != nil {
			return nil, fmt.Errorf("simulation: create stop: %w", err)
		}
		res.StopIDs = append(res.StopIDs, id)
	}

	return res, nil
}

// InjectTraffic fabricates a delay on one randomly chosen leg of an
// existing route, depot leg included. Factor is uniform in [1.5, 3.0).
func (s *Simulator) InjectTraffic(ctx context.Context, routeID int64, seed int64) ([]domain.TrafficEvent, error) {
	routeStops, err := s.routes.ListRouteStops(ctx, routeID)
	if err != nil {
		return nil, fmt.Errorf("simulation: load route stops: %w", err)
	}
	if len(routeStops) == 0 {
		return nil, &NotFoundError{Resource: "route stops", ID: routeID}
	}

	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	// Legs: depot -> first stop, then stop -> stop.
	leg := rng.Intn(len(routeStops))
	from := domain.DepotStopID
	if leg > 0 {
		from = routeStops[leg-1].StopID
	}

	return []domain.TrafficEvent{{
		FromStopID:  from,
		ToStopID:    routeStops[leg].StopID,
		DelayFactor: 1.5 + rng.Float64()*1.5,
	}}, nil
}
