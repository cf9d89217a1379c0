package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Initialize the Postgres schema. Idempotent.
func InitSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createDepotsQuery := `
	CREATE TABLE IF NOT EXISTS depots (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		lat DOUBLE PRECISION NOT NULL,
		lng DOUBLE PRECISION NOT NULL,
		open_min DOUBLE PRECISION NOT NULL,
		close_min DOUBLE PRECISION NOT NULL
	);
	`

	createVehiclesQuery := `
	CREATE TABLE IF NOT EXISTS vehicles (
		id BIGSERIAL PRIMARY KEY,
		depot_id BIGINT NOT NULL REFERENCES depots(id),
		capacity_kg DOUBLE PRECISION NOT NULL,
		driver_name TEXT NOT NULL DEFAULT ''
	);
	`

	createStopsQuery := `
	CREATE TABLE IF NOT EXISTS stops (
		id BIGSERIAL PRIMARY KEY,
		address TEXT NOT NULL,
		lat DOUBLE PRECISION NOT NULL,
		lng DOUBLE PRECISION NOT NULL,
		earliest_min DOUBLE PRECISION NOT NULL,
		latest_min DOUBLE PRECISION NOT NULL,
		package_weight_kg DOUBLE PRECISION NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending'
	);
	`

	createRoutesQuery := `
	CREATE TABLE IF NOT EXISTS routes (
		id BIGSERIAL PRIMARY KEY,
		vehicle_id BIGINT NOT NULL REFERENCES vehicles(id),
		route_date TEXT NOT NULL,
		total_distance_km DOUBLE PRECISION NOT NULL,
		total_time_min DOUBLE PRECISION NOT NULL
	);
	`

	createRouteStopsQuery := `
	CREATE TABLE IF NOT EXISTS route_stops (
		route_id BIGINT NOT NULL REFERENCES routes(id) ON DELETE CASCADE,
		stop_id BIGINT NOT NULL REFERENCES stops(id),
		sequence INT NOT NULL,
		planned_arrival TEXT NOT NULL,
		planned_arrival_min DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (route_id, sequence)
	);
	`

	createJobsQuery := `
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		state TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		completed_at TIMESTAMPTZ,
		result JSONB,
		reason TEXT NOT NULL DEFAULT ''
	);
	`

	createRouteStopsIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_route_stops_stop_id
	ON route_stops(stop_id);
	`

	statements := []string{
		createDepotsQuery,
		createVehiclesQuery,
		createStopsQuery,
		createRoutesQuery,
		createRouteStopsQuery,
		createJobsQuery,
		createRouteStopsIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

type DepotSeed struct {
	Name  string  `json:"name"`
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Open  string  `json:"open"`
	Close string  `json:"close"`
}

type VehicleSeed struct {
	CapacityKg float64 `json:"capacity_kg"`
	DriverName string  `json:"driver_name"`
}

type StopSeed struct {
	Address         string  `json:"address"`
	Lat             float64 `json:"lat"`
	Lng             float64 `json:"lng"`
	Earliest        string  `json:"earliest"`
	Latest          string  `json:"latest"`
	PackageWeightKg float64 `json:"package_weight_kg"`
}

type SeedFile struct {
	Depot    DepotSeed     `json:"depot"`
	Vehicles []VehicleSeed `json:"vehicles"`
	Stops    []StopSeed    `json:"stops"`
}

// Populate the database with one depot, its vehicles, and stops from a
// JSON file. Clock times are "HH:MM" strings in the file.
func SeedFromJSON(db *sql.DB, jsonPath string, parseClock func(string) (float64, error)) error {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("seed: read %q: %w", jsonPath, err)
	}

	var data SeedFile
	if err := json.Unmarshal(bytes, &data); err != nil {
		return fmt.Errorf("seed: parse json: %w", err)
	}
	if strings.TrimSpace(data.Depot.Name) == "" {
		return errors.New("seed: depot name cannot be empty")
	}

	openMin, err := parseClock(data.Depot.Open)
	if err != nil {
		return fmt.Errorf("seed: depot open time: %w", err)
	}
	closeMin, err := parseClock(data.Depot.Close)
	if err != nil {
		return fmt.Errorf("seed: depot close time: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("seed: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var depotID int64
	err = tx.QueryRow(`
	INSERT INTO depots (name, lat, lng, open_min, close_min)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id;
	`, data.Depot.Name, data.Depot.Lat, data.Depot.Lng, openMin, closeMin).Scan(&depotID)
	if err != nil {
		return fmt.Errorf("seed: insert depot: %w", err)
	}

	for i, v := range data.Vehicles {
		if v.CapacityKg <= 0 {
			return fmt.Errorf("seed: vehicle at index %d: capacity must be positive", i+1)
		}
		_, err := tx.Exec(`
		INSERT INTO vehicles (depot_id, capacity_kg, driver_name)
		VALUES ($1, $2, $3);
		`, depotID, v.CapacityKg, v.DriverName)
		if err != nil {
			return fmt.Errorf("seed: insert vehicle #%d: %w", i+1, err)
		}
	}

	for i, s := range data.Stops {
		earliest, err := parseClock(s.Earliest)
		if err != nil {
			return fmt.Errorf("seed: stop #%d earliest: %w", i+1, err)
		}
		latest, err := parseClock(s.Latest)
		if err != nil {
			return fmt.Errorf("seed: stop #%d latest: %w", i+1, err)
		}
		if earliest >= latest {
			return fmt.Errorf("seed: stop #%d: window [%s, %s] is inverted", i+1, s.Earliest, s.Latest)
		}
		_, err = tx.Exec(`
		INSERT INTO stops (address, lat, lng, earliest_min, latest_min, package_weight_kg, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending');
		`, s.Address, s.Lat, s.Lng, earliest, latest, s.PackageWeightKg)
		if err != nil {
			return fmt.Errorf("seed: insert stop #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed: commit tx: %w", err)
	}

	return nil
}
