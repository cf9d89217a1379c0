package domain

// Delivery vehicle with a fixed weight capacity, homed at one depot.
type Vehicle struct {
	ID         int64
	DepotID    int64
	CapacityKg float64
	DriverName string
}
