package domain

// DepotStopID denotes the depot end of a traffic-event edge.
const DepotStopID int64 = 0

// TrafficEvent scales the baseline travel time on one undirected edge of
// a route's tour. Edge endpoints are stop ids (DepotStopID for the depot).
// DelayFactor is a positive multiplier, typically 1.0-3.0. When several
// events cover the same edge, the maximum factor wins.
type TrafficEvent struct {
	FromStopID  int64
	ToStopID    int64
	DelayFactor float64
}

// RerouteEvent is broadcast on a route's topic after its ETAs have been
// recomputed. The stop sequence and assignment never change; only
// arrival times do.
type RerouteEvent struct {
	RouteID int64         `json:"route_id"`
	Stops   []RerouteStop `json:"stops"`
}

// RerouteStop carries the updated ETA for one stop. Late is set when the
// recomputed arrival falls past the stop's latest service time; the
// update is applied regardless.
type RerouteStop struct {
	StopID            int64   `json:"stop_id"`
	Sequence          int     `json:"sequence"`
	PlannedArrival    string  `json:"planned_arrival"`
	PlannedArrivalMin float64 `json:"planned_arrival_min"`
	Lat               float64 `json:"lat"`
	Lng               float64 `json:"lng"`
	Late              bool    `json:"late,omitempty"`
}
