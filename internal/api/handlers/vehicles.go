package handlers

import (
	"net/http"

	"lastmile-route-service/internal/api/dto"
	"lastmile-route-service/internal/domain"
	"lastmile-route-service/internal/ports"
)

type VehicleHandler struct {
	Repo   ports.VehicleRepository
	Depots ports.DepotRepository
}

func (h *VehicleHandler) List(w http.ResponseWriter, r *http.Request) {
	vehicles, err := h.Repo.ListVehicles(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	res := dto.ListVehiclesResponse{Vehicles: make([]dto.VehicleResponse, 0, len(vehicles))}
	for _, v := range vehicles {
		res.Vehicles = append(res.Vehicles, vehicleResponse(v))
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (h *VehicleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, "id must be a positive integer")
		return
	}

	vehicle, err := h.Repo.GetVehicle(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if vehicle == nil {
		writeError(w, r, http.StatusNotFound, "vehicle not found")
		return
	}
	writeJSON(w, r, http.StatusOK, vehicleResponse(vehicle))
}

func (h *VehicleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateVehicleRequest
	if !decodeStrict(w, r, &req) {
		return
	}

	if req.CapacityKg <= 0 {
		writeError(w, r, http.StatusBadRequest, "capacity_kg must be positive")
		return
	}
	depot, err := h.Depots.GetDepot(r.Context(), req.DepotID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if depot == nil {
		writeError(w, r, http.StatusBadRequest, "depot_id does not exist")
		return
	}

	vehicle := &domain.Vehicle{
		DepotID:    req.DepotID,
		CapacityKg: req.CapacityKg,
		DriverName: req.DriverName,
	}
	id, err := h.Repo.CreateVehicle(r.Context(), vehicle)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	vehicle.ID = id
	writeJSON(w, r, http.StatusCreated, vehicleResponse(vehicle))
}

func vehicleResponse(v *domain.Vehicle) dto.VehicleResponse {
	return dto.VehicleResponse{
		ID:         v.ID,
		DepotID:    v.DepotID,
		CapacityKg: v.CapacityKg,
		DriverName: v.DriverName,
	}
}
