package ports

import (
	"context"

	"travel-time-service/internal/domain"
)

// Port: a boundary for retrieving directory items from a data source.
type DirectoryRepository interface {
	ListItems(ctx context.Context) ([]domain.DirectoryItem, error)
}

// Port: persisted driving results from a named origin to directory items.
type DriveDistanceStore interface {
	// Return stored results for the given item ids; missing ids are absent from the map.
	GetMany(ctx context.Context, origin string, itemIDs []string) (map[string]domain.CarTravelResult, error)
	PutMany(ctx context.Context, origin string, results map[string]domain.CarTravelResult) error
}
