package ports

import (
	"context"

	"lastmile-route-service/internal/domain"
)

// Port: boundary for retrieving and creating depot entities.
type DepotRepository interface {
	GetDepot(ctx context.Context, id int64) (*domain.Depot, error)
	CreateDepot(ctx context.Context, d *domain.Depot) (int64, error)
}

// Port: boundary for retrieving and creating vehicle entities.
type VehicleRepository interface {
	GetVehicle(ctx context.Context, id int64) (*domain.Vehicle, error)
	ListVehicles(ctx context.Context) ([]*domain.Vehicle, error)
	// ListVehiclesByIDs preserves the order of ids in its result.
	ListVehiclesByIDs(ctx context.Context, ids []int64) ([]*domain.Vehicle, error)
	CreateVehicle(ctx context.Context, v *domain.Vehicle) (int64, error)
}

// Port: boundary for retrieving and creating stop entities.
type StopRepository interface {
	GetStop(ctx context.Context, id int64) (*domain.Stop, error)
	ListStops(ctx context.Context) ([]*domain.Stop, error)
	// ListStopsByIDs preserves the order of ids in its result.
	ListStopsByIDs(ctx context.Context, ids []int64) ([]*domain.Stop, error)
	CreateStop(ctx context.Context, s *domain.Stop) (int64, error)
}

// RoutePlan pairs a route with its ordered stops for transactional writes.
type RoutePlan struct {
	Route domain.Route
	Stops []domain.RouteStop
}

// Port: boundary for persisting and reading planned routes.
type RouteRepository interface {
	// SaveRoutePlans writes all routes and their stops in one transaction
	// and returns the assigned route ids in input order.
	SaveRoutePlans(ctx context.Context, plans []RoutePlan) ([]int64, error)
	GetRoute(ctx context.Context, id int64) (*domain.Route, error)
	// ListRouteStops returns the stops of a route ordered by sequence.
	ListRouteStops(ctx context.Context, routeID int64) ([]*domain.RouteStop, error)
	// UpdateArrivals rewrites arrival times for an existing route in one
	// transaction. Sequence and stop assignment are unchanged.
	UpdateArrivals(ctx context.Context, routeID int64, stops []domain.RouteStop) error
}
