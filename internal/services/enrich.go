package services

import (
	"context"
	"fmt"
	"log"

	"travel-time-service/internal/domain"
	"travel-time-service/internal/ports"
)

const DefaultEnrichChunkSize = 50

type EnrichRequest struct {
	Origin    domain.NamedOrigin
	ChunkSize int
	// Force recomputes pairs that are already stored.
	Force bool
}

type EnrichReport struct {
	Items         int
	NoCoordinates int
	Skipped       int
	Stored        int
}

// EnrichDriveDistances computes driving results from one origin to every
// directory item with coordinates and persists them, one matrix request per
// chunk. Results are stored under the origin's "lat,lon" key.
func EnrichDriveDistances(
	ctx context.Context,
	req EnrichRequest,
	repo ports.DirectoryRepository,
	router ports.CarMatrixRouter,
	store ports.DriveDistanceStore,
) (EnrichReport, error) {
	var report EnrichReport

	if err := req.Origin.Coords.Validate(); err != nil {
		return report, fmt.Errorf("enrich: origin: %w", err)
	}
	chunkSize := req.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultEnrichChunkSize
	}
	originKey := req.Origin.Coords.String()

	items, err := repo.ListItems(ctx)
	if err != nil {
		return report, fmt.Errorf("enrich: list items: %w", err)
	}
	report.Items = len(items)

	located := make([]domain.DirectoryItem, 0, len(items))
	ids := make([]string, 0, len(items))
	for _, it := range items {
		if it.Coordinates == nil {
			report.NoCoordinates++
			continue
		}
		located = append(located, it)
		ids = append(ids, it.ID)
	}

	existing := map[string]domain.CarTravelResult{}
	if !req.Force {
		existing, err = store.GetMany(ctx, originKey, ids)
		if err != nil {
			return report, fmt.Errorf("enrich: load stored results: %w", err)
		}
	}

	pending := make([]domain.DirectoryItem, 0, len(located))
	for _, it := range located {
		if _, ok := existing[it.ID]; ok {
			report.Skipped++
			continue
		}
		pending = append(pending, it)
	}

	chunks := (len(pending) + chunkSize - 1) / chunkSize
	for c := 0; c < chunks; c++ {
		chunk := pending[c*chunkSize : min((c+1)*chunkSize, len(pending))]

		dests := make([]domain.Coordinates, 0, len(chunk))
		for _, it := range chunk {
			dests = append(dests, *it.Coordinates)
		}

		results, err := router.Matrix(ctx, req.Origin.Coords, dests)
		if err != nil {
			return report, fmt.Errorf("enrich: matrix chunk %d/%d: %w", c+1, chunks, err)
		}

		byID := make(map[string]domain.CarTravelResult, len(chunk))
		for i, it := range chunk {
			byID[it.ID] = results[i]
		}
		if err := store.PutMany(ctx, originKey, byID); err != nil {
			return report, fmt.Errorf("enrich: store chunk %d/%d: %w", c+1, chunks, err)
		}
		report.Stored += len(byID)

		log.Printf("op=enrich origin=%q chunk=%d/%d stored=%d", req.Origin.Label, c+1, chunks, len(byID))
	}

	return report, nil
}
