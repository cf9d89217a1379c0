package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"

	"lastmile-route-service/internal/api/handlers"
	"lastmile-route-service/internal/bus"
	"lastmile-route-service/internal/dispatch"
	"lastmile-route-service/internal/ports"
	"lastmile-route-service/internal/services"
)

// Deps are the wired adapters and services the handlers run on. This is
// the API composition root (handlers stay unaware of concrete adapters).
type Deps struct {
	Dispatcher *dispatch.Dispatcher
	Optimizer  *services.Optimizer
	Rerouter   *services.Rerouter
	Simulator  *services.Simulator
	Bus        *bus.Bus

	Depots   ports.DepotRepository
	Vehicles ports.VehicleRepository
	Stops    ports.StopRepository
	Routes   ports.RouteRepository

	DB          *sql.DB
	Redis       *redis.Client
	IdleTimeout time.Duration
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
func NewRouter(d Deps) http.Handler {
	r := mux.NewRouter()

	routeHandler := &handlers.RouteHandler{
		Dispatcher: d.Dispatcher,
		Optimizer:  d.Optimizer,
		Rerouter:   d.Rerouter,
		Routes:     d.Routes,
		Stops:      d.Stops,
	}
	stopHandler := &handlers.StopHandler{Repo: d.Stops}
	vehicleHandler := &handlers.VehicleHandler{Repo: d.Vehicles, Depots: d.Depots}
	simHandler := &handlers.SimulationHandler{Simulator: d.Simulator, Rerouter: d.Rerouter}
	wsHandler := &handlers.WSHandler{Bus: d.Bus, IdleTimeout: d.IdleTimeout}
	healthHandler := &handlers.HealthHandler{DB: d.DB, Redis: d.Redis}

	r.HandleFunc("/health", healthHandler.Check).Methods(http.MethodGet)

	r.HandleFunc("/routes/optimize", routeHandler.Optimize).Methods(http.MethodPost)
	r.HandleFunc("/routes/ws/{route_id}", wsHandler.Serve).Methods(http.MethodGet)
	r.HandleFunc("/routes/{job_id}/status", routeHandler.Status).Methods(http.MethodGet)
	r.HandleFunc("/routes/{route_id}/stops", routeHandler.ListStops).Methods(http.MethodGet)
	r.HandleFunc("/routes/{route_id}/detail", routeHandler.Detail).Methods(http.MethodGet)
	r.HandleFunc("/routes/{route_id}/reroute", routeHandler.Reroute).Methods(http.MethodPost)

	r.HandleFunc("/stops", stopHandler.List).Methods(http.MethodGet)
	r.HandleFunc("/stops", stopHandler.Create).Methods(http.MethodPost)
	r.HandleFunc("/stops/{id}", stopHandler.Get).Methods(http.MethodGet)

	r.HandleFunc("/vehicles", vehicleHandler.List).Methods(http.MethodGet)
	r.HandleFunc("/vehicles", vehicleHandler.Create).Methods(http.MethodPost)
	r.HandleFunc("/vehicles/{id}", vehicleHandler.Get).Methods(http.MethodGet)

	r.HandleFunc("/simulation/start", simHandler.Start).Methods(http.MethodPost)
	r.HandleFunc("/simulation/inject-traffic", simHandler.InjectTraffic).Methods(http.MethodPost)

	return requestIDMiddleware(loggingMiddleware(r))
}
