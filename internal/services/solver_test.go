package services

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"lastmile-route-service/internal/domain"
	"lastmile-route-service/internal/geo"
	"lastmile-route-service/internal/ports"
)

func haversineTestMatrix(locs []domain.Location) *ports.Matrix {
	n := len(locs)
	m := &ports.Matrix{
		DistKm:  make([][]float64, n),
		TimeMin: make([][]float64, n),
	}
	for i := 0; i < n; i++ {
		m.DistKm[i] = make([]float64, n)
		m.TimeMin[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			m.DistKm[i][j] = geo.HaversineKm(locs[i], locs[j])
			m.TimeMin[i][j] = geo.TravelMinutes(locs[i], locs[j], 40)
		}
	}
	return m
}

func TestSolveSingleVehicleTwoStops(t *testing.T) {
	// Depot in downtown Seattle, two nearby stops with identical windows.
	locs := []domain.Location{
		{Lat: 47.6062, Lng: -122.3321},
		{Lat: 47.6205, Lng: -122.3493},
		{Lat: 47.6038, Lng: -122.3001},
	}
	stops := []SolverStop{
		{ID: 1, Idx: 1, WeightKg: 5, EarliestMin: 540, LatestMin: 660},
		{ID: 2, Idx: 2, WeightKg: 5, EarliestMin: 540, LatestMin: 660},
	}
	vehicles := []SolverVehicle{{ID: 10, CapacityKg: 100}}

	s := NewSolver(stops, vehicles, haversineTestMatrix(locs), 480, 5)
	sol, err := s.Solve(context.Background())
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}

	if len(sol.Routes) != 1 {
		t.Fatalf("got %d routes, want 1", len(sol.Routes))
	}
	r := sol.Routes[0]
	if r.VehicleID != 10 {
		t.Fatalf("route assigned to vehicle %d, want 10", r.VehicleID)
	}
	// Stop 1 is nearer the depot, so nearest-neighbor visits it first.
	if r.Stops[0].ID != 1 || r.Stops[1].ID != 2 {
		t.Fatalf("visit order %d,%d, want 1,2", r.Stops[0].ID, r.Stops[1].ID)
	}
	for k, arr := range r.Arrivals {
		st := r.Stops[k]
		if arr < st.EarliestMin || arr > st.LatestMin {
			t.Fatalf("stop %d arrival %.1f outside window [%.0f,%.0f]",
				st.ID, arr, st.EarliestMin, st.LatestMin)
		}
	}
	if sol.TotalDistanceKm <= 0 {
		t.Fatalf("total distance %.3f, want > 0", sol.TotalDistanceKm)
	}
}

func TestSolveCapacityForcesUnassigned(t *testing.T) {
	// Three 6 kg stops, two 10 kg vehicles: each vehicle carries one
	// stop and the third cannot be placed.
	locs := []domain.Location{
		{Lat: 47.6062, Lng: -122.3321},
		{Lat: 47.6100, Lng: -122.3200},
		{Lat: 47.6150, Lng: -122.3400},
		{Lat: 47.5950, Lng: -122.3100},
	}
	stops := []SolverStop{
		{ID: 1, Idx: 1, WeightKg: 6, EarliestMin: 480, LatestMin: 1080},
		{ID: 2, Idx: 2, WeightKg: 6, EarliestMin: 480, LatestMin: 1080},
		{ID: 3, Idx: 3, WeightKg: 6, EarliestMin: 480, LatestMin: 1080},
	}
	vehicles := []SolverVehicle{
		{ID: 10, CapacityKg: 10},
		{ID: 11, CapacityKg: 10},
	}

	s := NewSolver(stops, vehicles, haversineTestMatrix(locs), 480, 5)
	_, err := s.Solve(context.Background())

	var inf *InfeasibleError
	if !errors.As(err, &inf) {
		t.Fatalf("got %v, want InfeasibleError", err)
	}
	if len(inf.UnassignedStopIDs) != 1 {
		t.Fatalf("unassigned %v, want exactly one stop", inf.UnassignedStopIDs)
	}
}

func TestSolveTightWindowLeavesFarStopUnserved(t *testing.T) {
	// X is 5 minutes out, Y is 40 minutes out, both with 540-570
	// windows. Serving X first makes Y unreachable before its window
	// closes, and no second vehicle exists.
	m := &ports.Matrix{
		DistKm: [][]float64{
			{0, 3, 25},
			{3, 0, 25},
			{25, 25, 0},
		},
		TimeMin: [][]float64{
			{0, 5, 40},
			{5, 0, 40},
			{40, 40, 0},
		},
	}
	stops := []SolverStop{
		{ID: 1, Idx: 1, WeightKg: 1, EarliestMin: 540, LatestMin: 570},
		{ID: 2, Idx: 2, WeightKg: 1, EarliestMin: 540, LatestMin: 570},
	}
	vehicles := []SolverVehicle{{ID: 10, CapacityKg: 100}}

	s := NewSolver(stops, vehicles, m, 480, 5)
	_, err := s.Solve(context.Background())

	var inf *InfeasibleError
	if !errors.As(err, &inf) {
		t.Fatalf("got %v, want InfeasibleError", err)
	}
	if !reflect.DeepEqual(inf.UnassignedStopIDs, []int64{2}) {
		t.Fatalf("unassigned %v, want [2]", inf.UnassignedStopIDs)
	}
}

// crossingMatrix is built so nearest-neighbor produces the order
// 1,3,2,4 while the order 1,2,3,4 is shorter; a single segment
// reversal fixes it.
func crossingMatrix() *ports.Matrix {
	d := [][]float64{
		{0, 1, 5, 4, 1.5},
		{1, 0, 2.1, 2, 6},
		{5, 2.1, 0, 2, 6},
		{4, 2, 2, 0, 2.1},
		{1.5, 6, 6, 2.1, 0},
	}
	return &ports.Matrix{DistKm: d, TimeMin: d}
}

func crossingStops() []SolverStop {
	return []SolverStop{
		{ID: 1, Idx: 1, WeightKg: 1, EarliestMin: 0, LatestMin: 1440},
		{ID: 2, Idx: 2, WeightKg: 1, EarliestMin: 0, LatestMin: 1440},
		{ID: 3, Idx: 3, WeightKg: 1, EarliestMin: 0, LatestMin: 1440},
		{ID: 4, Idx: 4, WeightKg: 1, EarliestMin: 0, LatestMin: 1440},
	}
}

func TestSolveTwoOptUncrossesGreedyTour(t *testing.T) {
	vehicles := []SolverVehicle{{ID: 10, CapacityKg: 100}}
	s := NewSolver(crossingStops(), vehicles, crossingMatrix(), 480, 5)

	sol, err := s.Solve(context.Background())
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if len(sol.Routes) != 1 {
		t.Fatalf("got %d routes, want 1", len(sol.Routes))
	}

	var order []int64
	for _, st := range sol.Routes[0].Stops {
		order = append(order, st.ID)
	}
	if !reflect.DeepEqual(order, []int64{1, 2, 3, 4}) {
		t.Fatalf("visit order %v, want [1 2 3 4]", order)
	}

	if quantizeKm(sol.GreedyDistanceKm) != 12500 {
		t.Fatalf("greedy distance %.3f, want 12.5", sol.GreedyDistanceKm)
	}
	if quantizeKm(sol.TotalDistanceKm) != 8700 {
		t.Fatalf("final distance %.3f, want 8.7", sol.TotalDistanceKm)
	}
	if sol.TotalDistanceKm > sol.GreedyDistanceKm {
		t.Fatal("2-opt must never lengthen the tour")
	}
	if math.Abs(sol.ImprovementPct-30.4) > 0.1 {
		t.Fatalf("improvement %.2f%%, want ~30.4%%", sol.ImprovementPct)
	}
}

func TestSolveIsDeterministic(t *testing.T) {
	vehicles := []SolverVehicle{{ID: 10, CapacityKg: 100}}

	first, err := NewSolver(crossingStops(), vehicles, crossingMatrix(), 480, 5).Solve(context.Background())
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	second, err := NewSolver(crossingStops(), vehicles, crossingMatrix(), 480, 5).Solve(context.Background())
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Fatal("identical inputs must produce identical solutions")
	}
}

func TestSolveEmptyInputs(t *testing.T) {
	m := &ports.Matrix{DistKm: [][]float64{{0}}, TimeMin: [][]float64{{0}}}

	_, err := NewSolver([]SolverStop{{ID: 1, Idx: 1}}, nil, m, 480, 5).Solve(context.Background())
	if !errors.Is(err, ErrNoVehicles) {
		t.Fatalf("got %v, want ErrNoVehicles", err)
	}

	_, err = NewSolver(nil, []SolverVehicle{{ID: 1}}, m, 480, 5).Solve(context.Background())
	if !errors.Is(err, ErrNoStops) {
		t.Fatalf("got %v, want ErrNoStops", err)
	}
}

func TestSolveHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	vehicles := []SolverVehicle{{ID: 10, CapacityKg: 100}}
	_, err := NewSolver(crossingStops(), vehicles, crossingMatrix(), 480, 5).Solve(ctx)
	if !errors.Is(err, ErrSolverTimeout) {
		t.Fatalf("got %v, want ErrSolverTimeout", err)
	}
}
