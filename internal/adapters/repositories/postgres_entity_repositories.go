package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"lastmile-route-service/internal/domain"
)

// Postgres-backed implementation of the DepotRepository port.
type PostgresDepotRepository struct{ DB *sql.DB }

func NewPostgresDepotRepository(db *sql.DB) *PostgresDepotRepository {
	return &PostgresDepotRepository{DB: db}
}

func (r *PostgresDepotRepository) GetDepot(ctx context.Context, id int64) (*domain.Depot, error) {
	query := `
	SELECT id, name, lat, lng, open_min, close_min
	FROM depots
	WHERE id = $1;
	`
	var d domain.Depot
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&d.ID, &d.Name, &d.Location.Lat, &d.Location.Lng, &d.OpenMin, &d.CloseMin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get depot: query id=%d: %w", id, err)
	}
	return &d, nil
}

func (r *PostgresDepotRepository) CreateDepot(ctx context.Context, d *domain.Depot) (int64, error) {
	query := `
	INSERT INTO depots (name, lat, lng, open_min, close_min)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id;
	`
	var id int64
	err := r.DB.QueryRowContext(ctx, query,
		d.Name, d.Location.Lat, d.Location.Lng, d.OpenMin, d.CloseMin).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create depot: insert: %w", err)
	}
	return id, nil
}

// Postgres-backed implementation of the VehicleRepository port.
type PostgresVehicleRepository struct{ DB *sql.DB }

func NewPostgresVehicleRepository(db *sql.DB) *PostgresVehicleRepository {
	return &PostgresVehicleRepository{DB: db}
}

func (r *PostgresVehicleRepository) GetVehicle(ctx context.Context, id int64) (*domain.Vehicle, error) {
	query := `
	SELECT id, depot_id, capacity_kg, driver_name
	FROM vehicles
	WHERE id = $1;
	`
	var v domain.Vehicle
	err := r.DB.QueryRowContext(ctx, query, id).Scan(&v.ID, &v.DepotID, &v.CapacityKg, &v.DriverName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get vehicle: query id=%d: %w", id, err)
	}
	return &v, nil
}

func (r *PostgresVehicleRepository) ListVehicles(ctx context.Context) ([]*domain.Vehicle, error) {
	query := `
	SELECT id, depot_id, capacity_kg, driver_name
	FROM vehicles
	ORDER BY id;
	`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: query: %w", err)
	}
	defer rows.Close()

	return scanVehicles(rows)
}

// ListVehiclesByIDs returns vehicles in the order of ids; ids with no
// matching row are silently absent from the result.
func (r *PostgresVehicleRepository) ListVehiclesByIDs(ctx context.Context, ids []int64) ([]*domain.Vehicle, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
	SELECT id, depot_id, capacity_kg, driver_name
	FROM vehicles
	WHERE id = ANY($1::bigint[]);
	`
	rows, err := r.DB.QueryContext(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("list vehicles by ids: query: %w", err)
	}
	defer rows.Close()

	fetched, err := scanVehicles(rows)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*domain.Vehicle, len(fetched))
	for _, v := range fetched {
		byID[v.ID] = v
	}
	out := make([]*domain.Vehicle, 0, len(ids))
	for _, id := range ids {
		if v, ok := byID[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func (r *PostgresVehicleRepository) CreateVehicle(ctx context.Context, v *domain.Vehicle) (int64, error) {
	query := `
	INSERT INTO vehicles (depot_id, capacity_kg, driver_name)
	VALUES ($1, $2, $3)
	RETURNING id;
	`
	var id int64
	err := r.DB.QueryRowContext(ctx, query, v.DepotID, v.CapacityKg, v.DriverName).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create vehicle: insert: %w", err)
	}
	return id, nil
}

func scanVehicles(rows *sql.Rows) ([]*domain.Vehicle, error) {
	vehicles := make([]*domain.Vehicle, 0, 16)
	for rows.Next() {
		var v domain.Vehicle
		if err := rows.Scan(&v.ID, &v.DepotID, &v.CapacityKg, &v.DriverName); err != nil {
			return nil, fmt.Errorf("scan vehicle row: %w", err)
		}
		vehicles = append(vehicles, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vehicle row iteration: %w", err)
	}
	return vehicles, nil
}

// Postgres-backed implementation of the StopRepository port.
type PostgresStopRepository struct{ DB *sql.DB }

func NewPostgresStopRepository(db *sql.DB) *PostgresStopRepository {
	return &PostgresStopRepository{DB: db}
}

func (r *PostgresStopRepository) GetStop(ctx context.Context, id int64) (*domain.Stop, error) {
	query := `
	SELECT id, address, lat, lng, earliest_min, latest_min, package_weight_kg, status
	FROM stops
	WHERE id = $1;
	`
	var s domain.Stop
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&s.ID, &s.Address, &s.Location.Lat, &s.Location.Lng,
		&s.EarliestMin, &s.LatestMin, &s.PackageWeightKg, &s.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get stop: query id=%d: %w", id, err)
	}
	return &s, nil
}

func (r *PostgresStopRepository) ListStops(ctx context.Context) ([]*domain.Stop, error) {
	query := `
	SELECT id, address, lat, lng, earliest_min, latest_min, package_weight_kg, status
	FROM stops
	ORDER BY id;
	`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list stops: query: %w", err)
	}
	defer rows.Close()

	return scanStops(rows)
}

// ListStopsByIDs returns stops in the order of ids; ids with no
// matching row are silently absent from the result.
func (r *PostgresStopRepository) ListStopsByIDs(ctx context.Context, ids []int64) ([]*domain.Stop, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
	SELECT id, address, lat, lng, earliest_min, latest_min, package_weight_kg, status
	FROM stops
	WHERE id = ANY($1::bigint[]);
	`
	rows, err := r.DB.QueryContext(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("list stops by ids: query: %w", err)
	}
	defer rows.Close()

	fetched, err := scanStops(rows)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*domain.Stop, len(fetched))
	for _, s := range fetched {
		byID[s.ID] = s
	}
	out := make([]*domain.Stop, 0, len(ids))
	for _, id := range ids {
		if s, ok := byID[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *PostgresStopRepository) CreateStop(ctx context.Context, s *domain.Stop) (int64, error) {
	status := s.Status
	if status == "" {
		status = domain.StopPending
	}
	query := `
	INSERT INTO stops (address, lat, lng, earliest_min, latest_min, package_weight_kg, status)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING id;
	`
	var id int64
	err := r.DB.QueryRowContext(ctx, query,
		s.Address, s.Location.Lat, s.Location.Lng,
		s.EarliestMin, s.LatestMin, s.PackageWeightKg, status).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create stop: insert: %w", err)
	}
	return id, nil
}

func scanStops(rows *sql.Rows) ([]*domain.Stop, error) {
	stops := make([]*domain.Stop, 0, 64)
	for rows.Next() {
		var s domain.Stop
		err := rows.Scan(&s.ID, &s.Address, &s.Location.Lat, &s.Location.Lng,
			&s.EarliestMin, &s.LatestMin, &s.PackageWeightKg, &s.Status)
		if err != nil {
			return nil, fmt.Errorf("scan stop row: %w", err)
		}
		stops = append(stops, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("stop row iteration: %w", err)
	}
	return stops, nil
}
