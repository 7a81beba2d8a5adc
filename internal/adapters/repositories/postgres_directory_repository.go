package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"travel-time-service/internal/domain"
	"travel-time-service/internal/platform/obs"
)

// Postgres-backed implementation of the DirectoryRepository port.
type PostgresDirectoryRepository struct{ DB *sql.DB }

func NewPostgresDirectoryRepository(db *sql.DB) *PostgresDirectoryRepository {
	return &PostgresDirectoryRepository{DB: db}
}

// Return all directory items ordered by id.
func (p *PostgresDirectoryRepository) ListItems(ctx context.Context) (_ []domain.DirectoryItem, err error) {
	defer obs.Time(ctx, "directory.ListItems")(&err)

	if p.DB == nil {
		return nil, errors.New("postgres directory repository: DB is nil")
	}

	query := `
	SELECT id, name, municipality, lat, lon
	FROM directory_items
	ORDER BY id;
	`
	rows, err := p.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list items: query directory_items table: %w", err)
	}
	defer rows.Close()

	items := make([]domain.DirectoryItem, 0, 256)
	for rows.Next() {
		var (
			it       domain.DirectoryItem
			lat, lon sql.NullFloat64
		)
		if err := rows.Scan(&it.ID, &it.Name, &it.Municipality, &lat, &lon); err != nil {
			return nil, fmt.Errorf("list items: scan row: %w", err)
		}
		if lat.Valid && lon.Valid {
			it.Coordinates = &domain.Coordinates{Lat: lat.Float64, Lon: lon.Float64}
		}
		items = append(items, it)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list items: row iteration: %w", err)
	}

	return items, nil
}
