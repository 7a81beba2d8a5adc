package travel

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"travel-time-service/internal/domain"
)

type MockPair struct {
	From, To   domain.Coordinates
	DurationMs int64
	DistanceM  float64
}

// MockCarRouter serves fixed driving results keyed by origin and destination.
type MockCarRouter struct {
	m     map[string]domain.CarTravelResult
	calls atomic.Int64
}

func NewMockCarRouter(pairs []MockPair) *MockCarRouter {
	m := make(map[string]domain.CarTravelResult, len(pairs))
	for _, p := range pairs {
		m[p.From.String()+"|"+p.To.String()] = domain.CarTravelResult{DurationMs: p.DurationMs, DistanceM: p.DistanceM}
	}
	return &MockCarRouter{m: m}
}

func (p *MockCarRouter) Route(ctx context.Context, origin, destination domain.Coordinates) (domain.CarTravelResult, error) {
	p.calls.Add(1)

	r, ok := p.m[origin.String()+"|"+destination.String()]
	if !ok {
		return domain.CarTravelResult{}, fmt.Errorf("missing pair %s -> %s", origin, destination)
	}
	return r, nil
}

func (p *MockCarRouter) Matrix(ctx context.Context, origin domain.Coordinates, destinations []domain.Coordinates) ([]domain.CarTravelResult, error) {
	out := make([]domain.CarTravelResult, 0, len(destinations))
	for _, d := range destinations {
		r, err := p.Route(ctx, origin, d)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Calls reports how many routes were requested.
func (p *MockCarRouter) Calls() int { return int(p.calls.Load()) }

// MockTransitPlanner serves fixed itineraries keyed by destination.
// Destinations listed in Errors fail with that error; unknown destinations fail too.
type MockTransitPlanner struct {
	Results map[domain.Coordinates]domain.PublicTransportResult
	Errors  map[domain.Coordinates]error
	Delay   time.Duration

	calls atomic.Int64
}

func (p *MockTransitPlanner) Trip(ctx context.Context, origin, destination domain.Coordinates, departAt time.Time) (domain.PublicTransportResult, error) {
	p.calls.Add(1)

	if p.Delay > 0 {
		select {
		case <-ctx.Done():
			return domain.PublicTransportResult{}, ctx.Err()
		case <-time.After(p.Delay):
		}
	}

	if err, ok := p.Errors[destination]; ok {
		return domain.PublicTransportResult{}, err
	}
	r, ok := p.Results[destination]
	if !ok {
		return domain.PublicTransportResult{}, fmt.Errorf("no trip to %s: %w", destination, domain.ErrNoUsableTrip)
	}
	return r, nil
}

func (p *MockTransitPlanner) Calls() int { return int(p.calls.Load()) }

// MockGeocoder returns Results or Err for every query.
type MockGeocoder struct {
	Results []domain.GeocodeResult
	Err     error

	calls atomic.Int64
}

func (g *MockGeocoder) Geocode(ctx context.Context, query string, limit int) ([]domain.GeocodeResult, error) {
	g.calls.Add(1)
	if g.Err != nil {
		return nil, g.Err
	}
	return g.Results, nil
}

func (g *MockGeocoder) Calls() int { return int(g.calls.Load()) }
