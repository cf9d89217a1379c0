package services

import (
	"context"
	"fmt"
	"log"
	"math"

	"lastmile-route-service/internal/ports"
)

// Solves the Capacitated Vehicle Routing Problem with Time Windows.
//
// Phase 1 is greedy nearest-neighbor construction: O(n²) per vehicle,
// builds a feasible (not optimal) solution fast.
// Phase 2 is 2-opt local search per route: reverses sub-segments while
// an improving, window-feasible swap exists (first-improvement).
//
// Exact solvers become impractical above ~50 stops; this class of
// heuristic gets within 5-15% of optimal in seconds.
type Solver struct {
	stops      []SolverStop
	vehicles   []SolverVehicle
	dist       [][]float64
	timeMin    [][]float64
	depotIdx   int
	startMin   float64
	serviceMin float64
}

// SolverStop is a routing view of a stop. Idx is its position in the
// distance/time matrices (the depot occupies index 0).
type SolverStop struct {
	ID          int64
	Idx         int
	WeightKg    float64
	EarliestMin float64
	LatestMin   float64
}

// SolverVehicle is a routing view of a vehicle.
type SolverVehicle struct {
	ID         int64
	CapacityKg float64
}

// SolvedRoute is one vehicle's tour with per-stop arrival times
// (minutes since midnight) and closed-tour totals.
type SolvedRoute struct {
	VehicleID  int64
	Stops      []SolverStop
	Arrivals   []float64
	DistanceKm float64
	TimeMin    float64
}

// Solution is the full multi-route plan plus solver-level totals.
type Solution struct {
	Routes           []SolvedRoute
	GreedyDistanceKm float64
	TotalDistanceKm  float64
	ImprovementPct   float64
}

// NewSolver prepares a solve over the given matrix. startMin is the
// dispatch time (depot open) in minutes since midnight.
func NewSolver(stops []SolverStop, vehicles []SolverVehicle, m *ports.Matrix, startMin, serviceMin float64) *Solver {
	if serviceMin <= 0 {
		serviceMin = DefaultServiceTimeMin
	}
	return &Solver{
		stops:      stops,
		vehicles:   vehicles,
		dist:       m.DistKm,
		timeMin:    m.TimeMin,
		depotIdx:   0,
		startMin:   startMin,
		serviceMin: serviceMin,
	}
}

// Solve runs greedy construction followed by per-route 2-opt. The
// context deadline is the solver's wall-clock budget; exceeding it
// returns ErrSolverTimeout (the greedy partial is logged, not returned).
func (s *Solver) Solve(ctx context.Context) (*Solution, error) {
	if len(s.vehicles) == 0 {
		return nil, ErrNoVehicles
	}
	if len(s.stops) == 0 {
		return nil, ErrNoStops
	}

	routes, unassigned, err := s.greedy(ctx)
	if err != nil {
		return nil, err
	}
	if len(unassigned) > 0 {
		return nil, &InfeasibleError{UnassignedStopIDs: unassigned}
	}

	greedyTotal := 0.0
	for _, r := range routes {
		greedyTotal += s.routeDist(r.seq)
	}

	for i := range routes {
		improved, err := s.twoOpt(ctx, routes[i].seq, routes[i].vehicle)
		if err != nil {
			log.Printf("solver: 2-opt aborted, greedy_distance_km=%.3f routes=%d: %v",
				greedyTotal, len(routes), err)
			return nil, err
		}
		routes[i].seq = improved
	}

	sol := &Solution{
		Routes:           make([]SolvedRoute, 0, len(routes)),
		GreedyDistanceKm: greedyTotal,
	}
	for _, r := range routes {
		sol.Routes = append(sol.Routes, s.finalize(r))
		sol.TotalDistanceKm += s.routeDist(r.seq)
	}
	if sol.GreedyDistanceKm > 0 {
		sol.ImprovementPct = (sol.GreedyDistanceKm - sol.TotalDistanceKm) / sol.GreedyDistanceKm * 100
	}

	return sol, nil
}

type greedyRoute struct {
	vehicle SolverVehicle
	seq     []int // indices into s.stops, in visit order
}

// greedy fills vehicles one at a time: at each step take the nearest
// unvisited stop that fits the remaining capacity and can still be
// reached inside its window. Ties on distance break by smaller stop id
// so runs are reproducible.
func (s *Solver) greedy(ctx context.Context) ([]greedyRoute, []int64, error) {
	unassigned := make(map[int]struct{}, len(s.stops))
	for i := range s.stops {
		unassigned[i] = struct{}{}
	}

	var routes []greedyRoute

	for _, vehicle := range s.vehicles {
		if len(unassigned) == 0 {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, nil, fmt.Errorf("greedy construction: %w", ErrSolverTimeout)
		}

		var seq []int
		currentLoad := 0.0
		currentTime := s.startMin
		currentPos := s.depotIdx

		for len(unassigned) > 0 {
			best := -1
			bestDist := math.Inf(1)

			for i := range s.stops {
				if _, ok := unassigned[i]; !ok {
					continue
				}
				st := s.stops[i]

				if currentLoad+st.WeightKg > vehicle.CapacityKg {
					continue
				}
				travel := s.timeMin[currentPos][st.Idx]
				if math.Max(st.EarliestMin, currentTime+travel) > st.LatestMin {
					continue
				}

				d := s.dist[currentPos][st.Idx]
				if d < bestDist || (d == bestDist && (best < 0 || st.ID < s.stops[best].ID)) {
					bestDist = d
					best = i
				}
			}

			if best < 0 {
				break // no feasible stop reachable, close this route
			}

			st := s.stops[best]
			arrival := math.Max(st.EarliestMin, currentTime+s.timeMin[currentPos][st.Idx])
			currentTime = arrival + s.serviceMin
			currentLoad += st.WeightKg
			currentPos = st.Idx
			seq = append(seq, best)
			delete(unassigned, best)
		}

		if len(seq) > 0 {
			routes = append(routes, greedyRoute{vehicle: vehicle, seq: seq})
		}
	}

	var leftover []int64
	for i := range s.stops {
		if _, ok := unassigned[i]; ok {
			leftover = append(leftover, s.stops[i].ID)
		}
	}

	return routes, leftover, nil
}

// twoOpt reverses sub-segments while an improving swap exists. Distance
// comparisons are quantized to integer meters so termination does not
// depend on float equality; every accepted swap strictly decreases the
// quantized tour length. Swaps that break a time window are rejected
// even when they shorten the tour. Routes under 4 stops are left alone.
func (s *Solver) twoOpt(ctx context.Context, seq []int, vehicle SolverVehicle) ([]int, error) {
	if len(seq) < 4 {
		return seq, nil
	}

	best := append([]int(nil), seq...)
	bestDist := quantizeKm(s.routeDist(best))

	improved := true
	for improved {
		improved = false
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("2-opt: %w", ErrSolverTimeout)
		}

		for i := 0; i < len(best)-1; i++ {
			for j := i + 1; j < len(best); j++ {
				candidate := reverseSegment(best, i, j)
				candDist := quantizeKm(s.routeDist(candidate))
				// First-improvement: accept and keep sweeping.
				if candDist < bestDist && s.feasible(candidate, vehicle) {
					best = candidate
					bestDist = candDist
					improved = true
				}
			}
		}
	}

	return best, nil
}

// feasible recomputes the schedule for a candidate ordering using the
// same arrival rule as Phase 1 (wait for windows to open, then dwell).
func (s *Solver) feasible(seq []int, vehicle SolverVehicle) bool {
	load := 0.0
	t := s.startMin
	pos := s.depotIdx

	for _, i := range seq {
		st := s.stops[i]
		load += st.WeightKg
		if load > vehicle.CapacityKg {
			return false
		}
		arrival := math.Max(st.EarliestMin, t+s.timeMin[pos][st.Idx])
		if arrival > st.LatestMin {
			return false
		}
		t = arrival + s.serviceMin
		pos = st.Idx
	}

	return true
}

// finalize computes per-stop arrivals and closed-tour totals for a route.
func (s *Solver) finalize(r greedyRoute) SolvedRoute {
	out := SolvedRoute{
		VehicleID:  r.vehicle.ID,
		Stops:      make([]SolverStop, 0, len(r.seq)),
		Arrivals:   make([]float64, 0, len(r.seq)),
		DistanceKm: s.routeDist(r.seq),
	}

	t := s.startMin
	pos := s.depotIdx
	travelTotal := 0.0

	for _, i := range r.seq {
		st := s.stops[i]
		travel := s.timeMin[pos][st.Idx]
		travelTotal += travel
		arrival := math.Max(st.EarliestMin, t+travel)
		out.Stops = append(out.Stops, st)
		out.Arrivals = append(out.Arrivals, arrival)
		t = arrival + s.serviceMin
		pos = st.Idx
	}
	travelTotal += s.timeMin[pos][s.depotIdx] // return leg

	out.TimeMin = travelTotal + s.serviceMin*float64(len(r.seq))
	return out
}

// routeDist is the closed-tour distance: depot -> stops -> depot.
func (s *Solver) routeDist(seq []int) float64 {
	if len(seq) == 0 {
		return 0
	}
	d := s.dist[s.depotIdx][s.stops[seq[0]].Idx]
	for k := 0; k < len(seq)-1; k++ {
		d += s.dist[s.stops[seq[k]].Idx][s.stops[seq[k+1]].Idx]
	}
	d += s.dist[s.stops[seq[len(seq)-1]].Idx][s.depotIdx]
	return d
}

// reverseSegment returns a copy of seq with seq[i..j] reversed.
func reverseSegment(seq []int, i, j int) []int {
	out := append([]int(nil), seq...)
	for lo, hi := i, j; lo < hi; lo, hi = lo+1, hi-1 {
		out[lo], out[hi] = out[hi], out[lo]
	}
	return out
}

func quantizeKm(km float64) int64 {
	return int64(math.Round(km * 1000))
}
