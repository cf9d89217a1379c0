package domain

// Represents the planned tour for a single vehicle on a single date:
// depot -> stops (in sequence) -> depot. Totals are closed-tour sums
// computed against the matrix that was current at solve time.
type Route struct {
	ID              int64
	VehicleID       int64
	Date            string // "YYYY-MM-DD"
	TotalDistanceKm float64
	TotalTimeMin    float64
}

// Represents one visit within a route. Sequence is 0-based and contiguous.
// PlannedArrival is a "HH:MM" clock string; PlannedArrivalMin is the same
// arrival expressed as minutes from depot open.
type RouteStop struct {
	RouteID           int64
	StopID            int64
	Sequence          int
	PlannedArrival    string
	PlannedArrivalMin float64
}
