package dto

type OptimizeSubmitResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

type OptimizeResultResponse struct {
	RouteIDs         []int64 `json:"route_ids"`
	TotalDistanceKm  float64 `json:"total_distance_km"`
	GreedyDistanceKm float64 `json:"greedy_distance_km"`
	ImprovementPct   float64 `json:"improvement_pct"`
	NumRoutes        int     `json:"num_routes"`
}

type JobStatusResponse struct {
	JobID  string                  `json:"job_id"`
	Status string                  `json:"status"`
	Result *OptimizeResultResponse `json:"result,omitempty"`
	Reason string                  `json:"reason,omitempty"`
}

type RouteStopResponse struct {
	StopID         int64  `json:"stop_id"`
	Sequence       int    `json:"sequence"`
	PlannedArrival string `json:"planned_arrival"`
}

type RouteStopsResponse struct {
	RouteID int64               `json:"route_id"`
	Stops   []RouteStopResponse `json:"stops"`
}

type RouteDetailStop struct {
	StopID            int64   `json:"stop_id"`
	Sequence          int     `json:"sequence"`
	Address           string  `json:"address"`
	Lat               float64 `json:"lat"`
	Lng               float64 `json:"lng"`
	Earliest          string  `json:"earliest"`
	Latest            string  `json:"latest"`
	PackageWeightKg   float64 `json:"package_weight_kg"`
	PlannedArrival    string  `json:"planned_arrival"`
	PlannedArrivalMin float64 `json:"planned_arrival_min"`
	Status            string  `json:"status"`
}

type RouteDetailResponse struct {
	RouteID         int64             `json:"route_id"`
	VehicleID       int64             `json:"vehicle_id"`
	Date            string            `json:"date"`
	TotalDistanceKm float64           `json:"total_distance_km"`
	TotalTimeMin    float64           `json:"total_time_min"`
	Stops           []RouteDetailStop `json:"stops"`
}

type TrafficEventRequest struct {
	FromStopID  int64   `json:"from_stop_id"`
	ToStopID    int64   `json:"to_stop_id"`
	DelayFactor float64 `json:"delay_factor"`
}

type RerouteRequest struct {
	Events []TrafficEventRequest `json:"traffic_events"`
}

type RerouteResponse struct {
	OK      bool  `json:"ok"`
	RouteID int64 `json:"route_id"`
}

type InjectTrafficRequest struct {
	RouteID int64 `json:"route_id"`
	Seed    int64 `json:"seed"`
}

type InjectTrafficResponse struct {
	OK          bool    `json:"ok"`
	RouteID     int64   `json:"route_id"`
	FromStopID  int64   `json:"from_stop_id"`
	ToStopID    int64   `json:"to_stop_id"`
	DelayFactor float64 `json:"delay_factor"`
}
