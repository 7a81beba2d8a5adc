package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"time"

	"travel-time-service/internal/domain"
	"travel-time-service/internal/platform/batch"
	"travel-time-service/internal/platform/cache"
	"travel-time-service/internal/platform/metrics"
	"travel-time-service/internal/platform/obs"
	"travel-time-service/internal/ports"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	carCacheName     = "car"
	transitCacheName = "transit"
)

// TravelConfig tunes caching and batch fan-out. Zero values take defaults.
type TravelConfig struct {
	Location         *time.Location
	CarTTL           time.Duration
	TransitTTL       time.Duration
	SweepInterval    time.Duration
	BucketMinutes    int
	BatchConcurrency int
	// LoadTimeout bounds one shared provider call.
	LoadTimeout      time.Duration
}

func (c TravelConfig) withDefaults() TravelConfig {
	if c.Location == nil {
		c.Location = time.Local
	}
	if c.CarTTL <= 0 {
		c.CarTTL = 60 * time.Minute
	}
	if c.TransitTTL <= 0 {
		c.TransitTTL = 5 * time.Minute
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = cache.DefaultSweepInterval
	}
	if c.BucketMinutes <= 0 {
		c.BucketMinutes = 5
	}
	if c.BatchConcurrency <= 0 {
		c.BatchConcurrency = 4
	}
	if c.LoadTimeout <= 0 {
		c.LoadTimeout = 30 * time.Second
	}
	return c
}

// TravelService aggregates driving and transit results for the directory.
//
// It owns one cache per provider operation. The transit cache is shared by
// the single and batch paths, so a batch warms later detail lookups.
// Concurrent misses on the same key are collapsed into one provider call.
type TravelService struct {
	car     ports.CarRouter
	transit ports.TransitPlanner

	carCache     *cache.TTL[string, domain.CarTravelResult]
	transitCache *cache.TTL[string, domain.PublicTransportResult]
	flight       singleflight.Group

	cfg     TravelConfig
	metrics *metrics.Collector
	now     func() time.Time
}

func NewTravelService(
	car ports.CarRouter,
	transit ports.TransitPlanner,
	cfg TravelConfig,
	m *metrics.Collector,
) *TravelService {
	cfg = cfg.withDefaults()
	return &TravelService{
		car:          car,
		transit:      transit,
		carCache:     cache.NewTTL[string, domain.CarTravelResult](cfg.CarTTL, cache.WithSweepInterval(cfg.SweepInterval)),
		transitCache: cache.NewTTL[string, domain.PublicTransportResult](cfg.TransitTTL, cache.WithSweepInterval(cfg.SweepInterval)),
		cfg:          cfg,
		metrics:      m,
		now:          time.Now,
	}
}

type DirectRequest struct {
	CarOrigin     domain.Coordinates
	TransitOrigin domain.Coordinates
	Destination   domain.Coordinates
	DepartAt      string

	// Optional display labels used in deep links instead of "lat,lon".
	CarOriginLabel     string
	TransitOriginLabel string
	DestinationLabel   string
}

type DeepLinks struct {
	CarGoogleMaps string
	TransitSL     string
}

type DirectResult struct {
	Car       domain.CarTravelResult
	Transit   domain.PublicTransportResult
	DeepLinks DeepLinks
}

// Direct resolves car and transit results for one destination. Both lookups
// run concurrently; either failing fails the request.
func (s *TravelService) Direct(ctx context.Context, req DirectRequest) (_ DirectResult, err error) {
	defer obs.Time(ctx, "travel.direct")(&err)

	if err := validateCoords("car_origin", req.CarOrigin); err != nil {
		return DirectResult{}, err
	}
	if err := validateCoords("pt_origin", req.TransitOrigin); err != nil {
		return DirectResult{}, err
	}
	if err := validateCoords("destination", req.Destination); err != nil {
		return DirectResult{}, err
	}

	departAt, err := s.parseDepartAt(req.DepartAt)
	if err != nil {
		return DirectResult{}, err
	}

	carKey := carCacheKey(req.CarOrigin, req.Destination)
	ptKey := s.transitCacheKey(req.TransitOrigin, req.Destination, departAt)

	var (
		car domain.CarTravelResult
		pt  domain.PublicTransportResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := lookup(gctx, s, s.carCache, carCacheName, carKey, func(ctx context.Context) (domain.CarTravelResult, error) {
			return s.car.Route(ctx, req.CarOrigin, req.Destination)
		})
		car = r
		return err
	})
	g.Go(func() error {
		r, err := lookup(gctx, s, s.transitCache, transitCacheName, ptKey, func(ctx context.Context) (domain.PublicTransportResult, error) {
			return s.transit.Trip(ctx, req.TransitOrigin, req.Destination, departAt)
		})
		pt = r
		return err
	})
	if err := g.Wait(); err != nil {
		return DirectResult{}, fmt.Errorf("travel direct: %w", err)
	}

	return DirectResult{
		Car:       car,
		Transit:   pt,
		DeepLinks: s.deepLinks(req, departAt),
	}, nil
}

type BatchDestination struct {
	ID     string
	Coords domain.Coordinates
}

type BatchRequest struct {
	TransitOrigin domain.Coordinates
	DepartAt      string
	Destinations  []BatchDestination
}

// TransitSummary is a PublicTransportResult without its legs.
type TransitSummary struct {
	DurationMs int64
	DepartAt   time.Time
	ArriveAt   time.Time
	Changes    *int
}

type BatchResult struct {
	ID      string
	Transit TransitSummary
}

type BatchError struct {
	ID    string
	Error string
}

type BatchResponse struct {
	Results []BatchResult
	Errors  []BatchError
}

type batchOutcome struct {
	result domain.PublicTransportResult
	err    error
}

// Batch resolves transit summaries for many destinations from one origin.
// Destinations with an empty id or invalid coordinates are dropped silently.
// A failing destination is reported in Errors and never aborts the batch.
// Results keep the input order.
func (s *TravelService) Batch(ctx context.Context, req BatchRequest) (_ BatchResponse, err error) {
	defer obs.Time(ctx, "travel.batch")(&err)

	if err := validateCoords("pt_origin", req.TransitOrigin); err != nil {
		return BatchResponse{}, err
	}

	departAt, err := s.parseDepartAt(req.DepartAt)
	if err != nil {
		return BatchResponse{}, err
	}

	valid := make([]BatchDestination, 0, len(req.Destinations))
	for _, d := range req.Destinations {
		if d.ID == "" || d.Coords.Validate() != nil {
			s.metrics.BatchItem("dropped")
			continue
		}
		valid = append(valid, d)
	}

	resp := BatchResponse{
		Results: make([]BatchResult, 0, len(valid)),
		Errors:  []BatchError{},
	}
	if len(valid) == 0 {
		return resp, nil
	}

	found := make([]*domain.PublicTransportResult, len(valid))
	keys := make([]string, len(valid))
	misses := make([]int, 0, len(valid))

	now := s.now()
	for i, d := range valid {
		keys[i] = s.transitCacheKey(req.TransitOrigin, d.Coords, departAt)
		if v, ok := s.transitCache.Get(keys[i], now); ok {
			s.metrics.CacheLookup(transitCacheName, true)
			s.metrics.BatchItem("cached")
			found[i] = &v
			continue
		}
		s.metrics.CacheLookup(transitCacheName, false)
		misses = append(misses, i)
	}

	outcomes := batch.Map(ctx, misses, s.cfg.BatchConcurrency, func(ctx context.Context, i int, _ int) batchOutcome {
		d := valid[i]
		r, err := fetch(ctx, s, s.transitCache, keys[i], func(ctx context.Context) (domain.PublicTransportResult, error) {
			return s.transit.Trip(ctx, req.TransitOrigin, d.Coords, departAt)
		})
		return batchOutcome{result: r, err: err}
	})

	for j, o := range outcomes {
		i := misses[j]
		if o.err != nil {
			s.metrics.BatchItem("failed")
			log.Printf(
				"req_id=%s op=travel.batch id=%s origin=%s destination=%s depart_at=%s err=%v",
				obs.RequestID(ctx), valid[i].ID, req.TransitOrigin, valid[i].Coords, req.DepartAt, o.err,
			)
			resp.Errors = append(resp.Errors, BatchError{ID: valid[i].ID, Error: o.err.Error()})
			continue
		}
		s.metrics.BatchItem("fetched")
		r := o.result
		found[i] = &r
	}

	for i, d := range valid {
		if found[i] == nil {
			continue
		}
		resp.Results = append(resp.Results, BatchResult{ID: d.ID, Transit: summarize(*found[i])})
	}

	if len(resp.Errors) > 0 {
		log.Printf(
			"req_id=%s op=travel.batch successes=%d errors=%d",
			obs.RequestID(ctx), len(resp.Results), len(resp.Errors),
		)
	}

	return resp, nil
}

type HikeRequest struct {
	Origin      domain.Coordinates
	Destination domain.Coordinates
	DepartAt    string
}

// Hike is reserved. It validates its input and never calls a provider.
func (s *TravelService) Hike(ctx context.Context, req HikeRequest) (domain.HikeTravelResult, error) {
	if err := validateCoords("hike_origin", req.Origin); err != nil {
		return domain.HikeTravelResult{}, err
	}
	if err := validateCoords("destination", req.Destination); err != nil {
		return domain.HikeTravelResult{}, err
	}
	return domain.HikeTravelResult{}, fmt.Errorf("travel hike: %w", domain.ErrNotImplemented)
}

// lookup serves key from c, fetching and storing it on a miss.
func lookup[V any](
	ctx context.Context,
	s *TravelService,
	c *cache.TTL[string, V],
	name string,
	key string,
	load func(context.Context) (V, error),
) (V, error) {
	if v, ok := c.Get(key, s.now()); ok {
		s.metrics.CacheLookup(name, true)
		return v, nil
	}
	s.metrics.CacheLookup(name, false)
	return fetch(ctx, s, c, key, load)
}

// fetch calls load once per key across concurrent callers and caches success.
// The shared load runs detached from every caller's cancellation, bounded by
// LoadTimeout, so one caller giving up cannot fail the others. Each caller
// still stops waiting when its own ctx is done. Errors are not cached.
func fetch[V any](
	ctx context.Context,
	s *TravelService,
	c *cache.TTL[string, V],
	key string,
	load func(context.Context) (V, error),
) (V, error) {
	ch := s.flight.DoChan(key, func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.LoadTimeout)
		defer cancel()

		r, err := load(lctx)
		if err != nil {
			return nil, err
		}
		c.Set(key, r, 0, s.now())
		return r, nil
	})

	var zero V
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(V), nil
	}
}

func (s *TravelService) parseDepartAt(raw string) (time.Time, error) {
	t, err := domain.ParseTimestamp(raw, s.cfg.Location)
	if err != nil {
		return time.Time{}, &domain.ValidationError{Field: "depart_at", Message: "expected ISO 8601"}
	}
	return t, nil
}

// carCacheKey is not time-bucketed: driving times are treated as
// independent of departure.
func carCacheKey(origin, dest domain.Coordinates) string {
	return "car:" + origin.String() + "->" + dest.String()
}

func (s *TravelService) transitCacheKey(origin, dest domain.Coordinates, departAt time.Time) string {
	bucket := cache.BucketTime(departAt, s.cfg.BucketMinutes).Format(cache.BucketLayout)
	return "pt:" + origin.String() + "->" + dest.String() + "@" + bucket
}

func (s *TravelService) deepLinks(req DirectRequest, departAt time.Time) DeepLinks {
	carFrom := labelOr(req.CarOriginLabel, req.CarOrigin)
	ptFrom := labelOr(req.TransitOriginLabel, req.TransitOrigin)
	to := labelOr(req.DestinationLabel, req.Destination)

	local := departAt.In(s.cfg.Location)

	google := url.Values{
		"api":         {"1"},
		"origin":      {carFrom},
		"destination": {to},
		"travelmode":  {"driving"},
	}
	sl := url.Values{
		"from":       {ptFrom},
		"to":         {to},
		"date":       {local.Format("2006-01-02")},
		"time":       {local.Format("15:04")},
		"searchType": {"DEPARTURE"},
	}

	return DeepLinks{
		CarGoogleMaps: "https://www.google.com/maps/dir/?" + google.Encode(),
		TransitSL:     "https://www.sl.se/reseplanering/?" + sl.Encode(),
	}
}

func labelOr(label string, c domain.Coordinates) string {
	if label != "" {
		return label
	}
	return c.String()
}

func summarize(r domain.PublicTransportResult) TransitSummary {
	return TransitSummary{
		DurationMs: r.DurationMs,
		DepartAt:   r.DepartAt,
		ArriveAt:   r.ArriveAt,
		Changes:    r.Changes,
	}
}

// validateCoords prefixes the coordinate field with the request field name.
func validateCoords(field string, c domain.Coordinates) error {
	err := c.Validate()
	if err == nil {
		return nil
	}
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return &domain.ValidationError{Field: field + "." + ve.Field, Message: ve.Message}
	}
	return err
}
