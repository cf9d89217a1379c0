package domain

// StopStatus tracks a stop through its delivery lifecycle.
type StopStatus string

const (
	StopPending   StopStatus = "pending"
	StopInRoute   StopStatus = "in_route"
	StopDelivered StopStatus = "delivered"
	StopFailed    StopStatus = "failed"
)

// A single delivery stop: one address, one package, one service window.
// Time windows are minutes since midnight. Immutable after creation.
type Stop struct {
	ID              int64
	Address         string
	Location        Location
	EarliestMin     float64
	LatestMin       float64
	PackageWeightKg float64
	Status          StopStatus
}

// Depot is the fixed origin and return point for every vehicle in a plan.
// Open/close times are minutes since midnight.
type Depot struct {
	ID       int64
	Name     string
	Location Location
	OpenMin  float64
	CloseMin float64
}
