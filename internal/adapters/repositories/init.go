package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"travel-time-service/internal/domain"
)

// Initialize the Postgres schema for directory items and stored drive results.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createDirectoryQuery := `
	CREATE TABLE IF NOT EXISTS directory_items (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		municipality TEXT NOT NULL,
		lat DOUBLE PRECISION,
		lon DOUBLE PRECISION,
		CHECK ((lat IS NULL) = (lon IS NULL))
	);
	`

	createDriveDistancesQuery := `
	CREATE TABLE IF NOT EXISTS drive_distances (
		origin TEXT NOT NULL,
		item_id TEXT NOT NULL REFERENCES directory_items(id) ON DELETE CASCADE,
		duration_ms BIGINT NOT NULL,
		distance_m DOUBLE PRECISION NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (origin, item_id)
	);
	`

	createIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_drive_distances_item_origin
	ON drive_distances(item_id, origin);
	`

	statements := []string{
		createDirectoryQuery,
		createDriveDistancesQuery,
		createIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

// DirectorySeed is one record of the directory export.
type DirectorySeed struct {
	ID           string   `json:"id"`
	Name         string   `json:"namn"`
	Municipality string   `json:"kommun"`
	Lat          *float64 `json:"latitud"`
	Lon          *float64 `json:"longitud"`
}

// ParseSeed validates a directory export: ids are unique and non-empty, name
// and municipality are present, and coordinates are both set or both null.
func ParseSeed(data []byte) ([]domain.DirectoryItem, error) {
	var raw []DirectorySeed
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}

	seen := make(map[string]struct{}, len(raw))
	items := make([]domain.DirectoryItem, 0, len(raw))
	for i, r := range raw {
		id := strings.TrimSpace(r.ID)
		if id == "" {
			return nil, fmt.Errorf("parse seed: item at index %d: id cannot be empty", i)
		}
		if _, ok := seen[id]; ok {
			return nil, fmt.Errorf("parse seed: item at index %d: duplicate id %q", i, id)
		}
		seen[id] = struct{}{}

		name := strings.TrimSpace(r.Name)
		municipality := strings.TrimSpace(r.Municipality)
		if name == "" || municipality == "" {
			return nil, fmt.Errorf("parse seed: id=%q: name and municipality are required", id)
		}

		item := domain.DirectoryItem{ID: id, Name: name, Municipality: municipality}

		switch {
		case r.Lat == nil && r.Lon == nil:
		case r.Lat == nil || r.Lon == nil:
			return nil, fmt.Errorf("parse seed: id=%q: latitude and longitude must both be set or both be null", id)
		default:
			c := domain.Coordinates{Lat: *r.Lat, Lon: *r.Lon}
			if err := c.Validate(); err != nil {
				return nil, fmt.Errorf("parse seed: id=%q: %w", id, err)
			}
			item.Coordinates = &c
		}

		items = append(items, item)
	}

	return items, nil
}

// Populate the directory from a JSON export. Existing ids are updated.
func SeedFromJSON(ctx context.Context, db *sql.DB, jsonPath string) (int, error) {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return 0, fmt.Errorf("seed directory: read %q: %w", jsonPath, err)
	}

	items, err := ParseSeed(bytes)
	if err != nil {
		return 0, fmt.Errorf("seed directory: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("seed directory: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
	INSERT INTO directory_items (id, name, municipality, lat, lon)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (id) DO UPDATE
	SET name = EXCLUDED.name,
		municipality = EXCLUDED.municipality,
		lat = EXCLUDED.lat,
		lon = EXCLUDED.lon;
	`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("seed directory: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, it := range items {
		var lat, lon sql.NullFloat64
		if it.Coordinates != nil {
			lat = sql.NullFloat64{Float64: it.Coordinates.Lat, Valid: true}
			lon = sql.NullFloat64{Float64: it.Coordinates.Lon, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, it.ID, it.Name, it.Municipality, lat, lon); err != nil {
			return 0, fmt.Errorf("seed directory: insert id=%q: %w", it.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("seed directory: commit tx: %w", err)
	}

	return len(items), nil
}
