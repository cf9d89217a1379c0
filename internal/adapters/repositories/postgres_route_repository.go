package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"lastmile-route-service/internal/domain"
	"lastmile-route-service/internal/ports"
)

// Postgres-backed implementation of the RouteRepository port.
type PostgresRouteRepository struct{ DB *sql.DB }

func NewPostgresRouteRepository(db *sql.DB) *PostgresRouteRepository {
	return &PostgresRouteRepository{DB: db}
}

// SaveRoutePlans writes every route and its stops in one transaction
// and returns the assigned route ids in input order.
func (r *PostgresRouteRepository) SaveRoutePlans(ctx context.Context, plans []ports.RoutePlan) ([]int64, error) {
	if len(plans) == 0 {
		return nil, nil
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("save route plans: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	insertRouteQuery := `
	INSERT INTO routes (vehicle_id, route_date, total_distance_km, total_time_min)
	VALUES ($1, $2, $3, $4)
	RETURNING id;
	`
	insertStopQuery := `
	INSERT INTO route_stops (route_id, stop_id, sequence, planned_arrival, planned_arrival_min)
	VALUES ($1, $2, $3, $4, $5);
	`

	ids := make([]int64, 0, len(plans))
	for _, plan := range plans {
		var routeID int64
		err := tx.QueryRowContext(ctx, insertRouteQuery,
			plan.Route.VehicleID, plan.Route.Date,
			plan.Route.TotalDistanceKm, plan.Route.TotalTimeMin).Scan(&routeID)
		if err != nil {
			return nil, fmt.Errorf("save route plans: insert route vehicle_id=%d: %w", plan.Route.VehicleID, err)
		}

		for _, rs := range plan.Stops {
			_, err := tx.ExecContext(ctx, insertStopQuery,
				routeID, rs.StopID, rs.Sequence, rs.PlannedArrival, rs.PlannedArrivalMin)
			if err != nil {
				return nil, fmt.Errorf("save route plans: insert stop %d of route %d: %w", rs.StopID, routeID, err)
			}
		}

		ids = append(ids, routeID)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("save route plans: commit tx: %w", err)
	}

	return ids, nil
}

func (r *PostgresRouteRepository) GetRoute(ctx context.Context, id int64) (*domain.Route, error) {
	query := `
	SELECT id, vehicle_id, route_date, total_distance_km, total_time_min
	FROM routes
	WHERE id = $1;
	`
	var rt domain.Route
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&rt.ID, &rt.VehicleID, &rt.Date, &rt.TotalDistanceKm, &rt.TotalTimeMin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get route: query id=%d: %w", id, err)
	}
	return &rt, nil
}

func (r *PostgresRouteRepository) ListRouteStops(ctx context.Context, routeID int64) ([]*domain.RouteStop, error) {
	query := `
	SELECT route_id, stop_id, sequence, planned_arrival, planned_arrival_min
	FROM route_stops
	WHERE route_id = $1
	ORDER BY sequence;
	`
	rows, err := r.DB.QueryContext(ctx, query, routeID)
	if err != nil {
		return nil, fmt.Errorf("list route stops: query route_id=%d: %w", routeID, err)
	}
	defer rows.Close()

	stops := make([]*domain.RouteStop, 0, 32)
	for rows.Next() {
		var rs domain.RouteStop
		err := rows.Scan(&rs.RouteID, &rs.StopID, &rs.Sequence, &rs.PlannedArrival, &rs.PlannedArrivalMin)
		if err != nil {
			return nil, fmt.Errorf("list route stops: scan row: %w", err)
		}
		stops = append(stops, &rs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list route stops: row iteration: %w", err)
	}

	return stops, nil
}

// UpdateArrivals rewrites arrival times for an existing route in one
// transaction. Sequence and stop assignment stay as planned.
func (r *PostgresRouteRepository) UpdateArrivals(ctx context.Context, routeID int64, stops []domain.RouteStop) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update arrivals: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
	UPDATE route_stops
	SET planned_arrival = $1, planned_arrival_min = $2
	WHERE route_id = $3 AND stop_id = $4;
	`
	for _, rs := range stops {
		res, err := tx.ExecContext(ctx, query, rs.PlannedArrival, rs.PlannedArrivalMin, routeID, rs.StopID)
		if err != nil {
			return fmt.Errorf("update arrivals: stop %d of route %d: %w", rs.StopID, routeID, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update arrivals: rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("update arrivals: stop %d is not on route %d", rs.StopID, routeID)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("update arrivals: commit tx: %w", err)
	}

	return nil
}
