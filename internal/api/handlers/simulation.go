package handlers

import (
	"net/http"

	"lastmile-route-service/internal/api/dto"
	"lastmile-route-service/internal/services"
)

type SimulationHandler struct {
	Simulator *services.Simulator
	Rerouter  *services.Rerouter
}

// Start seeds a demo scenario and returns the created entity ids,
// ready to be posted to the optimize endpoint.
func (h *SimulationHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req services.SimulationRequest
	if !decodeStrict(w, r, &req) {
		return
	}

	res, err := h.Simulator.Start(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, res)
}

// InjectTraffic fabricates a delay on a random leg of the route and
// applies it through the rerouter, so subscribers see the update.
func (h *SimulationHandler) InjectTraffic(w http.ResponseWriter, r *http.Request) {
	var req dto.InjectTrafficRequest
	if !decodeStrict(w, r, &req) {
		return
	}
	if req.RouteID <= 0 {
		writeError(w, r, http.StatusBadRequest, "route_id must be a positive integer")
		return
	}

	events, err := h.Simulator.InjectTraffic(r.Context(), req.RouteID, req.Seed)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if _, err := h.Rerouter.Reroute(r.Context(), req.RouteID, events); err != nil {
		writeServiceError(w, r, err)
		return
	}

	ev := events[0]
	writeJSON(w, r, http.StatusOK, dto.InjectTrafficResponse{
		OK:          true,
		RouteID:     req.RouteID,
		FromStopID:  ev.FromStopID,
		ToStopID:    ev.ToStopID,
		DelayFactor: ev.DelayFactor,
	})
}
