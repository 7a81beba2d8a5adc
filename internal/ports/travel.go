package ports

import (
	"context"
	"time"

	"travel-time-service/internal/domain"
)

// Contract for retrieving a driving route between two points.
type CarRouter interface {
	Route(ctx context.Context, origin, destination domain.Coordinates) (domain.CarTravelResult, error)
}

// Optional one-to-many extension of CarRouter.
type CarMatrixRouter interface {
	// Results are aligned with destinations by index.
	Matrix(ctx context.Context, origin domain.Coordinates, destinations []domain.Coordinates) ([]domain.CarTravelResult, error)
}

// Contract for planning a public transport itinerary departing at departAt.
type TransitPlanner interface {
	Trip(ctx context.Context, origin, destination domain.Coordinates, departAt time.Time) (domain.PublicTransportResult, error)
}

// Contract for a foot route with elevation profile.
type HikeRouter interface {
	HikeRoute(ctx context.Context, origin, destination domain.Coordinates) (domain.HikeTravelResult, error)
}

// Contract for free-text place lookup. An empty slice is not an error.
type Geocoder interface {
	Geocode(ctx context.Context, query string, limit int) ([]domain.GeocodeResult, error)
}
