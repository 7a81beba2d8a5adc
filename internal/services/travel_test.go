package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"travel-time-service/internal/adapters/travel"
	"travel-time-service/internal/domain"
	"travel-time-service/internal/platform/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

var (
	cet = time.FixedZone("CET", 3600)

	carOrigin = domain.Coordinates{Lat: 59.2878842, Lon: 18.1067874}
	ptOrigin  = domain.Coordinates{Lat: 59.28416, Lon: 18.11463}
	cabinA    = domain.Coordinates{Lat: 59.3, Lon: 18.1}
	cabinB    = domain.Coordinates{Lat: 59.4, Lon: 18.2}
	cabinC    = domain.Coordinates{Lat: 59.5, Lon: 18.3}
)

func ptResult(minutes int) domain.PublicTransportResult {
	depart := time.Date(2026, 1, 14, 12, 0, 0, 0, time.UTC)
	arrive := depart.Add(time.Duration(minutes) * time.Minute)
	changes := 1
	return domain.PublicTransportResult{
		DurationMs: int64(minutes) * 60_000,
		DepartAt:   depart,
		ArriveAt:   arrive,
		Changes:    &changes,
		Legs:       []domain.PublicTransportLeg{{Kind: domain.LegTransit, DepartAt: &depart, ArriveAt: &arrive}},
	}
}

func newTestService(transit *travel.MockTransitPlanner) (*TravelService, *travel.MockCarRouter) {
	car := travel.NewMockCarRouter([]travel.MockPair{
		{From: carOrigin, To: cabinA, DurationMs: 900_000, DistanceM: 12_000},
	})
	svc := NewTravelService(car, transit, TravelConfig{Location: cet}, nil)
	return svc, car
}

func TestTravelDirect(t *testing.T) {
	transit := &travel.MockTransitPlanner{Results: map[domain.Coordinates]domain.PublicTransportResult{cabinA: ptResult(40)}}
	svc, car := newTestService(transit)

	req := DirectRequest{
		CarOrigin:        carOrigin,
		TransitOrigin:    ptOrigin,
		Destination:      cabinA,
		DepartAt:         "2026-01-14T12:07:00Z",
		DestinationLabel: "Stugan",
	}

	got, err := svc.Direct(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Car.DurationMs != 900_000 || got.Transit.DurationMs != 40*60_000 {
		t.Errorf("got car=%+v transit=%d", got.Car, got.Transit.DurationMs)
	}

	if !strings.Contains(got.DeepLinks.CarGoogleMaps, "travelmode=driving") ||
		!strings.Contains(got.DeepLinks.CarGoogleMaps, "destination=Stugan") ||
		!strings.Contains(got.DeepLinks.CarGoogleMaps, "origin=59.2878842%2C18.1067874") {
		t.Errorf("google link = %s", got.DeepLinks.CarGoogleMaps)
	}
	// 12:07Z is 13:07 in the configured zone.
	if !strings.Contains(got.DeepLinks.TransitSL, "time=13%3A07") || !strings.Contains(got.DeepLinks.TransitSL, "date=2026-01-14") {
		t.Errorf("sl link = %s", got.DeepLinks.TransitSL)
	}

	if _, err := svc.Direct(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if car.Calls() != 1 || transit.Calls() != 1 {
		t.Errorf("second call should be cached: car=%d transit=%d", car.Calls(), transit.Calls())
	}
}

func TestTravelDirectTransitBucketing(t *testing.T) {
	transit := &travel.MockTransitPlanner{Results: map[domain.Coordinates]domain.PublicTransportResult{cabinA: ptResult(40)}}
	svc, car := newTestService(transit)

	for _, departAt := range []string{"2026-01-14T12:05:00Z", "2026-01-14T12:09:59Z", "2026-01-14T12:10:00Z"} {
		_, err := svc.Direct(context.Background(), DirectRequest{
			CarOrigin: carOrigin, TransitOrigin: ptOrigin, Destination: cabinA, DepartAt: departAt,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if transit.Calls() != 2 {
		t.Errorf("transit calls = %d, want 2 (one per 5 minute bucket)", transit.Calls())
	}
	if car.Calls() != 1 {
		t.Errorf("car calls = %d, want 1 (not bucketed)", car.Calls())
	}
}

func TestTravelDirectValidation(t *testing.T) {
	svc, _ := newTestService(&travel.MockTransitPlanner{})

	cases := []struct {
		name  string
		req   DirectRequest
		field string
	}{
		{
			name:  "destination latitude",
			req:   DirectRequest{CarOrigin: carOrigin, TransitOrigin: ptOrigin, Destination: domain.Coordinates{Lat: 999, Lon: 18}, DepartAt: "2026-01-14T12:00:00Z"},
			field: "destination.lat",
		},
		{
			name:  "car origin longitude",
			req:   DirectRequest{CarOrigin: domain.Coordinates{Lat: 59, Lon: 200}, TransitOrigin: ptOrigin, Destination: cabinA, DepartAt: "2026-01-14T12:00:00Z"},
			field: "car_origin.lon",
		},
		{
			name:  "departure",
			req:   DirectRequest{CarOrigin: carOrigin, TransitOrigin: ptOrigin, Destination: cabinA, DepartAt: "next tuesday"},
			field: "depart_at",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Direct(context.Background(), tc.req)
			var ve *domain.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tc.field {
				t.Errorf("field = %q, want %q", ve.Field, tc.field)
			}
		})
	}
}

func TestTravelDirectProviderError(t *testing.T) {
	transit := &travel.MockTransitPlanner{Errors: map[domain.Coordinates]error{cabinA: domain.ErrNoUsableTrip}}
	svc, _ := newTestService(transit)

	_, err := svc.Direct(context.Background(), DirectRequest{
		CarOrigin: carOrigin, TransitOrigin: ptOrigin, Destination: cabinA, DepartAt: "2026-01-14T12:00:00Z",
	})
	if !errors.Is(err, domain.ErrNoUsableTrip) {
		t.Fatalf("expected ErrNoUsableTrip, got %v", err)
	}

	// Failures are not cached.
	_, _ = svc.Direct(context.Background(), DirectRequest{
		CarOrigin: carOrigin, TransitOrigin: ptOrigin, Destination: cabinA, DepartAt: "2026-01-14T12:00:00Z",
	})
	if transit.Calls() != 2 {
		t.Errorf("transit calls = %d, want 2", transit.Calls())
	}
}

func TestTravelDirectCollapsesConcurrentMisses(t *testing.T) {
	transit := &travel.MockTransitPlanner{
		Results: map[domain.Coordinates]domain.PublicTransportResult{cabinA: ptResult(40)},
		Delay:   50 * time.Millisecond,
	}
	svc, _ := newTestService(transit)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Direct(context.Background(), DirectRequest{
				CarOrigin: carOrigin, TransitOrigin: ptOrigin, Destination: cabinA, DepartAt: "2026-01-14T12:00:00Z",
			})
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if transit.Calls() != 1 {
		t.Errorf("transit calls = %d, want 1", transit.Calls())
	}
}

// failingCar fails routes from one origin after a delay and serves every
// other origin immediately.
type failingCar struct {
	from  domain.Coordinates
	delay time.Duration
}

func (c failingCar) Route(ctx context.Context, origin, destination domain.Coordinates) (domain.CarTravelResult, error) {
	if origin != c.from {
		return domain.CarTravelResult{DurationMs: 900_000, DistanceM: 12_000}, nil
	}
	time.Sleep(c.delay)
	return domain.CarTravelResult{}, errors.New("graphhopper: status 500")
}

func TestTravelDirectSharedTransitSurvivesOtherCallerFailure(t *testing.T) {
	transit := &travel.MockTransitPlanner{
		Results: map[domain.Coordinates]domain.PublicTransportResult{cabinA: ptResult(40)},
		Delay:   60 * time.Millisecond,
	}
	brokenOrigin := domain.Coordinates{Lat: 59.1, Lon: 18.0}
	svc := NewTravelService(failingCar{from: brokenOrigin, delay: 20 * time.Millisecond}, transit, TravelConfig{Location: cet}, nil)

	depart := "2026-01-14T12:00:00Z"
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.Direct(context.Background(), DirectRequest{
			CarOrigin: brokenOrigin, TransitOrigin: ptOrigin, Destination: cabinA, DepartAt: depart,
		})
		firstErr <- err
	}()

	// Join the first request's transit lookup before its car lookup fails.
	time.Sleep(5 * time.Millisecond)
	got, err := svc.Direct(context.Background(), DirectRequest{
		CarOrigin: carOrigin, TransitOrigin: ptOrigin, Destination: cabinA, DepartAt: depart,
	})
	if err != nil {
		t.Fatalf("healthy request failed: %v", err)
	}
	if got.Transit.DurationMs != 40*60_000 {
		t.Errorf("transit duration = %d", got.Transit.DurationMs)
	}

	if err := <-firstErr; err == nil || errors.Is(err, context.Canceled) {
		t.Errorf("first request err = %v, want the car failure", err)
	}
	if transit.Calls() != 1 {
		t.Errorf("transit calls = %d, want 1", transit.Calls())
	}
}

func TestTravelBatchSharedTransitSurvivesCallerCancel(t *testing.T) {
	transit := &travel.MockTransitPlanner{
		Results: map[domain.Coordinates]domain.PublicTransportResult{cabinA: ptResult(30)},
		Delay:   50 * time.Millisecond,
	}
	svc, _ := newTestService(transit)
	req := BatchRequest{
		TransitOrigin: ptOrigin,
		DepartAt:      "2026-01-14T12:00:00Z",
		Destinations:  []BatchDestination{{ID: "a", Coords: cabinA}},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan BatchResponse, 1)
	go func() {
		res, _ := svc.Batch(ctx, req)
		done <- res
	}()

	time.Sleep(5 * time.Millisecond)
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	got, err := svc.Batch(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Results) != 1 || len(got.Errors) != 0 {
		t.Fatalf("got results=%+v errors=%+v", got.Results, got.Errors)
	}

	// The cancelled caller stops waiting and reports its own cancellation.
	first := <-done
	if len(first.Errors) != 1 || !strings.Contains(first.Errors[0].Error, "context canceled") {
		t.Errorf("cancelled caller = %+v", first)
	}
	if transit.Calls() != 1 {
		t.Errorf("transit calls = %d, want 1", transit.Calls())
	}
}

func TestTravelBatchDropsInvalidDestinations(t *testing.T) {
	transit := &travel.MockTransitPlanner{Results: map[domain.Coordinates]domain.PublicTransportResult{cabinA: ptResult(30)}}
	m := metrics.NewCollector()
	svc := NewTravelService(travel.NewMockCarRouter(nil), transit, TravelConfig{Location: cet}, m)

	got, err := svc.Batch(context.Background(), BatchRequest{
		TransitOrigin: ptOrigin,
		DepartAt:      "2026-01-14T12:00:00Z",
		Destinations: []BatchDestination{
			{ID: "a", Coords: cabinA},
			{ID: "b", Coords: domain.Coordinates{Lat: 999, Lon: 18.1}},
			{ID: "", Coords: cabinB},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got.Results) != 1 || got.Results[0].ID != "a" {
		t.Fatalf("results = %+v, want only a", got.Results)
	}
	if got.Results[0].Transit.DurationMs != 30*60_000 {
		t.Errorf("duration = %d", got.Results[0].Transit.DurationMs)
	}
	if len(got.Errors) != 0 {
		t.Errorf("errors = %+v, want none", got.Errors)
	}
	if transit.Calls() != 1 {
		t.Errorf("transit calls = %d, want 1", transit.Calls())
	}
	if v := testutil.ToFloat64(m.BatchItems.WithLabelValues("dropped")); v != 2 {
		t.Errorf("dropped = %v, want 2", v)
	}
}

func TestTravelBatchPartialFailure(t *testing.T) {
	transit := &travel.MockTransitPlanner{
		Results: map[domain.Coordinates]domain.PublicTransportResult{
			cabinA: ptResult(30),
			cabinC: ptResult(50),
		},
		Errors: map[domain.Coordinates]error{cabinB: errors.New("resrobot trip: code 500")},
	}
	svc, _ := newTestService(transit)

	got, err := svc.Batch(context.Background(), BatchRequest{
		TransitOrigin: ptOrigin,
		DepartAt:      "2026-01-14T12:00:00Z",
		Destinations: []BatchDestination{
			{ID: "c", Coords: cabinC},
			{ID: "b", Coords: cabinB},
			{ID: "a", Coords: cabinA},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got.Results) != 2 || got.Results[0].ID != "c" || got.Results[1].ID != "a" {
		t.Fatalf("results = %+v, want c then a", got.Results)
	}
	if len(got.Errors) != 1 || got.Errors[0].ID != "b" || !strings.Contains(got.Errors[0].Error, "code 500") {
		t.Errorf("errors = %+v", got.Errors)
	}
}

func TestTravelBatchSharesCacheWithDirect(t *testing.T) {
	transit := &travel.MockTransitPlanner{Results: map[domain.Coordinates]domain.PublicTransportResult{cabinA: ptResult(30)}}
	svc, _ := newTestService(transit)

	_, err := svc.Batch(context.Background(), BatchRequest{
		TransitOrigin: ptOrigin,
		DepartAt:      "2026-01-14T12:01:00Z",
		Destinations:  []BatchDestination{{ID: "a", Coords: cabinA}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := svc.Direct(context.Background(), DirectRequest{
		CarOrigin: carOrigin, TransitOrigin: ptOrigin, Destination: cabinA, DepartAt: "2026-01-14T12:03:00Z",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if transit.Calls() != 1 {
		t.Errorf("transit calls = %d, want 1", transit.Calls())
	}
	if len(got.Transit.Legs) != 1 {
		t.Errorf("direct result should keep legs: %+v", got.Transit)
	}
}

func TestTravelBatchValidatesSharedFields(t *testing.T) {
	svc, _ := newTestService(&travel.MockTransitPlanner{})

	_, err := svc.Batch(context.Background(), BatchRequest{
		TransitOrigin: domain.Coordinates{Lat: -91},
		DepartAt:      "2026-01-14T12:00:00Z",
	})
	var ve *domain.ValidationError
	if !errors.As(err, &ve) || ve.Field != "pt_origin.lat" {
		t.Fatalf("expected pt_origin validation error, got %v", err)
	}

	got, err := svc.Batch(context.Background(), BatchRequest{TransitOrigin: ptOrigin, DepartAt: "2026-01-14"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Results == nil || got.Errors == nil || len(got.Results) != 0 {
		t.Errorf("empty batch should return empty lists: %+v", got)
	}
}

func TestTravelHikeNotImplemented(t *testing.T) {
	transit := &travel.MockTransitPlanner{}
	svc, car := newTestService(transit)

	_, err := svc.Hike(context.Background(), HikeRequest{Origin: carOrigin, Destination: cabinA})
	if !errors.Is(err, domain.ErrNotImplemented) {
		t.Fatalf("expected ErrNotImplemented, got %v", err)
	}
	if car.Calls() != 0 || transit.Calls() != 0 {
		t.Errorf("hike must not call providers")
	}
}
