package services

import "lastmile-route-service/internal/domain"

// DefaultServiceTimeMin is the per-stop dwell time in minutes.
const DefaultServiceTimeMin = 5.0

// CapacityOK reports whether the summed package weights fit within the
// vehicle capacity.
func CapacityOK(weightsKg []float64, capacityKg float64) bool {
	total := 0.0
	for _, w := range weightsKg {
		total += w
	}
	return total <= capacityKg
}

// WindowsOK reports whether every arrival falls inside the service
// window of the stop at the same position. sequence holds stop ids;
// arrivals are minutes since midnight aligned with sequence.
func WindowsOK(sequence []int64, arrivals []float64, stopsByID map[int64]*domain.Stop) bool {
	if len(sequence) != len(arrivals) {
		return false
	}
	for k, id := range sequence {
		s, ok := stopsByID[id]
		if !ok {
			return false
		}
		if arrivals[k] < s.EarliestMin || arrivals[k] > s.LatestMin {
			return false
		}
	}
	return true
}

// ComputeArrivals chains arrival times along a fixed visit sequence.
// sequence holds matrix indices (the depot is index 0 and is not part
// of the sequence). The chain is pure travel plus dwell; it does not
// wait for windows to open, which is what lets a traffic delay shift
// every downstream arrival by exactly the added travel time.
func ComputeArrivals(sequence []int, timeMin [][]float64, depotOpenMin, serviceTimeMin float64) []float64 {
	if len(sequence) == 0 {
		return nil
	}

	arrivals := make([]float64, len(sequence))
	arrivals[0] = depotOpenMin + timeMin[0][sequence[0]]
	for k := 1; k < len(sequence); k++ {
		arrivals[k] = arrivals[k-1] + serviceTimeMin + timeMin[sequence[k-1]][sequence[k]]
	}
	return arrivals
}
