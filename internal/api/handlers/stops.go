package handlers

import (
	"net/http"

	"lastmile-route-service/internal/api/dto"
	"lastmile-route-service/internal/domain"
	"lastmile-route-service/internal/geo"
	"lastmile-route-service/internal/ports"
)

type StopHandler struct {
	Repo ports.StopRepository
}

func (h *StopHandler) List(w http.ResponseWriter, r *http.Request) {
	stops, err := h.Repo.ListStops(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	res := dto.ListStopsResponse{Stops: make([]dto.StopResponse, 0, len(stops))}
	for _, s := range stops {
		res.Stops = append(res.Stops, stopResponse(s))
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (h *StopHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, "id must be a positive integer")
		return
	}

	stop, err := h.Repo.GetStop(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if stop == nil {
		writeError(w, r, http.StatusNotFound, "stop not found")
		return
	}
	writeJSON(w, r, http.StatusOK, stopResponse(stop))
}

func (h *StopHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateStopRequest
	if !decodeStrict(w, r, &req) {
		return
	}

	if req.Address == "" {
		writeError(w, r, http.StatusBadRequest, "address is required")
		return
	}
	loc := domain.Location{Lat: req.Lat, Lng: req.Lng}
	if !loc.Valid() {
		writeError(w, r, http.StatusBadRequest, "lat/lng out of range")
		return
	}
	if req.PackageWeightKg <= 0 {
		writeError(w, r, http.StatusBadRequest, "package_weight_kg must be positive")
		return
	}
	earliest, err := geo.ParseClock(req.Earliest)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "earliest must be HH:MM")
		return
	}
	latest, err := geo.ParseClock(req.Latest)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "latest must be HH:MM")
		return
	}
	if earliest >= latest {
		writeError(w, r, http.StatusBadRequest, "service window is inverted")
		return
	}

	stop := &domain.Stop{
		Address:         req.Address,
		Location:        loc,
		EarliestMin:     earliest,
		LatestMin:       latest,
		PackageWeightKg: req.PackageWeightKg,
		Status:          domain.StopPending,
	}
	id, err := h.Repo.CreateStop(r.Context(), stop)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	stop.ID = id
	writeJSON(w, r, http.StatusCreated, stopResponse(stop))
}

func stopResponse(s *domain.Stop) dto.StopResponse {
	return dto.StopResponse{
		ID:              s.ID,
		Address:         s.Address,
		Lat:             s.Location.Lat,
		Lng:             s.Location.Lng,
		Earliest:        geo.FormatClock(s.EarliestMin),
		Latest:          geo.FormatClock(s.LatestMin),
		PackageWeightKg: s.PackageWeightKg,
		Status:          string(s.Status),
	}
}
