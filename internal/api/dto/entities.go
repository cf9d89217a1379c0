package dto

// Clock fields are "HH:MM" strings; the handlers convert to and from
// minutes since midnight at the boundary.

type CreateStopRequest struct {
	Address         string  `json:"address"`
	Lat             float64 `json:"lat"`
	Lng             float64 `json:"lng"`
	Earliest        string  `json:"earliest"`
	Latest          string  `json:"latest"`
	PackageWeightKg float64 `json:"package_weight_kg"`
}

type StopResponse struct {
	ID              int64   `json:"id"`
	Address         string  `json:"address"`
	Lat             float64 `json:"lat"`
	Lng             float64 `json:"lng"`
	Earliest        string  `json:"earliest"`
	Latest          string  `json:"latest"`
	PackageWeightKg float64 `json:"package_weight_kg"`
	Status          string  `json:"status"`
}

type ListStopsResponse struct {
	Stops []StopResponse `json:"stops"`
}

type CreateVehicleRequest struct {
	DepotID    int64   `json:"depot_id"`
	CapacityKg float64 `json:"capacity_kg"`
	DriverName string  `json:"driver_name"`
}

type VehicleResponse struct {
	ID         int64   `json:"id"`
	DepotID    int64   `json:"depot_id"`
	CapacityKg float64 `json:"capacity_kg"`
	DriverName string  `json:"driver_name"`
}

type ListVehiclesResponse struct {
	Vehicles []VehicleResponse `json:"vehicles"`
}
