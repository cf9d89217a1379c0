package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"lastmile-route-service/internal/api/dto"
	"lastmile-route-service/internal/dispatch"
	"lastmile-route-service/internal/domain"
	"lastmile-route-service/internal/geo"
	"lastmile-route-service/internal/ports"
	"lastmile-route-service/internal/services"
)

type RouteHandler struct {
	Dispatcher *dispatch.Dispatcher
	Optimizer  *services.Optimizer
	Rerouter   *services.Rerouter
	Routes     ports.RouteRepository
	Stops      ports.StopRepository
}

// Optimize validates the request synchronously and queues the solve.
// The response carries the job id; the plan arrives via the status
// endpoint once a worker finishes.
func (h *RouteHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	var req services.OptimizeRequest
	if !decodeStrict(w, r, &req) {
		return
	}
	if err := h.Optimizer.Validate(req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	jobID, err := h.Dispatcher.Submit(r.Context(), req)
	if err != nil {
		if errors.Is(err, dispatch.ErrQueueFull) || errors.Is(err, dispatch.ErrShuttingDown) {
			writeError(w, r, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusAccepted, dto.OptimizeSubmitResponse{
		JobID:  jobID,
		Status: string(domain.JobQueued),
	})
}

func (h *RouteHandler) Status(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["job_id"]

	job, err := h.Dispatcher.Status(r.Context(), jobID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	res := dto.JobStatusResponse{
		JobID:  job.ID,
		Status: string(job.State),
		Reason: job.Reason,
	}
	if job.Result != nil {
		res.Result = &dto.OptimizeResultResponse{
			RouteIDs:         job.Result.RouteIDs,
			TotalDistanceKm:  job.Result.TotalDistanceKm,
			GreedyDistanceKm: job.Result.GreedyDistanceKm,
			ImprovementPct:   job.Result.ImprovementPct,
			NumRoutes:        job.Result.NumRoutes,
		}
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (h *RouteHandler) ListStops(w http.ResponseWriter, r *http.Request) {
	routeID, ok := pathID(r, "route_id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, "route_id must be a positive integer")
		return
	}

	route, err := h.Routes.GetRoute(r.Context(), routeID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if route == nil {
		writeError(w, r, http.StatusNotFound, "route not found")
		return
	}

	stops, err := h.Routes.ListRouteStops(r.Context(), routeID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	res := dto.RouteStopsResponse{RouteID: routeID}
	for _, rs := range stops {
		res.Stops = append(res.Stops, dto.RouteStopResponse{
			StopID:         rs.StopID,
			Sequence:       rs.Sequence,
			PlannedArrival: rs.PlannedArrival,
		})
	}
	writeJSON(w, r, http.StatusOK, res)
}

// Detail joins route, visit order, and stop entities into the payload
// the map view renders.
func (h *RouteHandler) Detail(w http.ResponseWriter, r *http.Request) {
	routeID, ok := pathID(r, "route_id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, "route_id must be a positive integer")
		return
	}

	route, err := h.Routes.GetRoute(r.Context(), routeID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if route == nil {
		writeError(w, r, http.StatusNotFound, "route not found")
		return
	}

	routeStops, err := h.Routes.ListRouteStops(r.Context(), routeID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	ids := make([]int64, len(routeStops))
	for i, rs := range routeStops {
		ids[i] = rs.StopID
	}
	stops, err := h.Stops.ListStopsByIDs(r.Context(), ids)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	byID := make(map[int64]*domain.Stop, len(stops))
	for _, s := range stops {
		byID[s.ID] = s
	}

	res := dto.RouteDetailResponse{
		RouteID:         route.ID,
		VehicleID:       route.VehicleID,
		Date:            route.Date,
		TotalDistanceKm: route.TotalDistanceKm,
		TotalTimeMin:    route.TotalTimeMin,
	}
	for _, rs := range routeStops {
		detail := dto.RouteDetailStop{
			StopID:            rs.StopID,
			Sequence:          rs.Sequence,
			PlannedArrival:    rs.PlannedArrival,
			PlannedArrivalMin: rs.PlannedArrivalMin,
		}
		if s, ok := byID[rs.StopID]; ok {
			detail.Address = s.Address
			detail.Lat = s.Location.Lat
			detail.Lng = s.Location.Lng
			detail.Earliest = geo.FormatClock(s.EarliestMin)
			detail.Latest = geo.FormatClock(s.LatestMin)
			detail.PackageWeightKg = s.PackageWeightKg
			detail.Status = string(s.Status)
		}
		res.Stops = append(res.Stops, detail)
	}
	writeJSON(w, r, http.StatusOK, res)
}

// Reroute applies traffic events to the route's schedule. The updated
// ETAs are persisted and broadcast before this returns.
func (h *RouteHandler) Reroute(w http.ResponseWriter, r *http.Request) {
	routeID, ok := pathID(r, "route_id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, "route_id must be a positive integer")
		return
	}

	var req dto.RerouteRequest
	if !decodeStrict(w, r, &req) {
		return
	}

	events := make([]domain.TrafficEvent, 0, len(req.Events))
	for _, ev := range req.Events {
		events = append(events, domain.TrafficEvent{
			FromStopID:  ev.FromStopID,
			ToStopID:    ev.ToStopID,
			DelayFactor: ev.DelayFactor,
		})
	}

	if _, err := h.Rerouter.Reroute(r.Context(), routeID, events); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.RerouteResponse{OK: true, RouteID: routeID})
}
