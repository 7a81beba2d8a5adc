package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"travel-time-service/internal/domain"
	"travel-time-service/internal/platform/obs"
	"travel-time-service/internal/ports"
)

const (
	DefaultGeocodeLimit = 5
	MaxGeocodeLimit     = 10
)

// GeocodeChain asks the primary geocoder first and falls back to the
// secondary when the primary has no hits or fails. Results are not cached.
type GeocodeChain struct {
	primary   ports.Geocoder
	secondary ports.Geocoder
}

// NewGeocodeChain builds a chain; secondary may be nil.
func NewGeocodeChain(primary, secondary ports.Geocoder) *GeocodeChain {
	return &GeocodeChain{primary: primary, secondary: secondary}
}

// ClampGeocodeLimit bounds limit to [1, MaxGeocodeLimit].
func ClampGeocodeLimit(limit int) int {
	return min(max(limit, 1), MaxGeocodeLimit)
}

// Geocode returns at most limit candidates for query. An unconfigured primary
// is a configuration error; an unconfigured secondary counts as no hits.
// No hits from either provider yields an empty slice and no error.
func (g *GeocodeChain) Geocode(ctx context.Context, query string, limit int) (_ []domain.GeocodeResult, err error) {
	defer obs.Time(ctx, "geocode.chain")(&err)

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &domain.ValidationError{Field: "q", Message: "query is required"}
	}
	limit = ClampGeocodeLimit(limit)

	results, err := g.primary.Geocode(ctx, query, limit)
	switch {
	case err == nil && len(results) > 0:
		return truncate(results, limit), nil
	case errors.Is(err, domain.ErrNotConfigured):
		return nil, fmt.Errorf("geocode: %w", err)
	case err != nil:
		log.Printf("req_id=%s op=geocode.chain primary_err=%v fallback=secondary", obs.RequestID(ctx), err)
	}

	if g.secondary == nil {
		return []domain.GeocodeResult{}, nil
	}

	results, err = g.secondary.Geocode(ctx, query, limit)
	if err != nil {
		if errors.Is(err, domain.ErrNotConfigured) {
			return []domain.GeocodeResult{}, nil
		}
		return nil, fmt.Errorf("geocode fallback: %w", err)
	}
	if results == nil {
		results = []domain.GeocodeResult{}
	}
	return truncate(results, limit), nil
}

func truncate(results []domain.GeocodeResult, limit int) []domain.GeocodeResult {
	if len(results) > limit {
		return results[:limit]
	}
	return results
}
