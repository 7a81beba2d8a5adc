package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"travel-time-service/internal/domain"
	"travel-time-service/internal/platform/obs"
)

// SQLDriveDistanceStore persists origin->directory item driving results so
// enrichment runs can skip pairs that are already known.
type SQLDriveDistanceStore struct {
	DB *sql.DB
}

func NewSQLDriveDistanceStore(db *sql.DB) *SQLDriveDistanceStore {
	return &SQLDriveDistanceStore{DB: db}
}

// Fetch stored results for one origin and multiple items.
func (s *SQLDriveDistanceStore) GetMany(
	ctx context.Context,
	origin string,
	itemIDs []string,
) (_ map[string]domain.CarTravelResult, err error) {
	defer obs.Time(ctx, "drive_distances.GetMany")(&err)

	if s.DB == nil {
		return nil, errors.New("drive distance store: db is nil")
	}

	if origin == "" {
		return nil, errors.New("get drive distances: origin must not be empty")
	}

	uniq := uniqueIDs(itemIDs)
	if len(uniq) == 0 {
		return map[string]domain.CarTravelResult{}, nil
	}

	q := `
	SELECT item_id, duration_ms, distance_m
	FROM drive_distances
	WHERE origin = $1
		AND item_id = ANY($2::text[]);
	`

	rows, err := s.DB.QueryContext(ctx, q, origin, uniq)
	if err != nil {
		return nil, fmt.Errorf("get drive distances: query drive_distances table: %w", err)
	}
	defer rows.Close()

	out := make(map[string]domain.CarTravelResult, len(uniq))
	for rows.Next() {
		var (
			id string
			r  domain.CarTravelResult
		)
		if err := rows.Scan(&id, &r.DurationMs, &r.DistanceM); err != nil {
			return nil, fmt.Errorf("get drive distances: scan rows: %w", err)
		}
		out[id] = r
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get drive distances: row iteration: %w", err)
	}

	return out, nil
}

// Store many results for a single origin, replacing earlier values.
func (s *SQLDriveDistanceStore) PutMany(
	ctx context.Context,
	origin string,
	results map[string]domain.CarTravelResult,
) (err error) {
	defer obs.Time(ctx, "drive_distances.PutMany")(&err)

	if s.DB == nil {
		return errors.New("drive distance store: db is nil")
	}

	if origin == "" {
		return errors.New("put drive distances: origin must not be empty")
	}

	if len(results) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("put drive distances: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO drive_distances (origin, item_id, duration_ms, distance_m)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (origin, item_id) DO UPDATE
	SET duration_ms = EXCLUDED.duration_ms,
		distance_m = EXCLUDED.distance_m,
		updated_at = now();
	`)
	if err != nil {
		return fmt.Errorf("put drive distances: db prepare: %w", err)
	}
	defer stmt.Close()

	for id, r := range results {
		if strings.TrimSpace(id) == "" {
			return errors.New("put drive distances: empty item id")
		}

		if _, err := stmt.ExecContext(ctx, origin, id, r.DurationMs, r.DistanceM); err != nil {
			return fmt.Errorf("put drive distances item=%q: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("put drive distances: commit: %w", err)
	}

	return nil
}

// uniqueIDs trims ids and drops blanks and repeats, keeping first-seen order.
func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
