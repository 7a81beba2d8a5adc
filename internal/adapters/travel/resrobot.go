package travel

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"travel-time-service/internal/domain"
	"travel-time-service/internal/platform/obs"

	"golang.org/x/sync/errgroup"
)

const DefaultResRobotBaseURL = "https://api.resrobot.se/v2.1"

// ResRobotClient implements TransitPlanner and Geocoder against the Trafiklab
// ResRobot v2.1 API. Planner dates and times are local to loc.
type ResRobotClient struct {
	client
	accessID string
	loc      *time.Location
}

func NewResRobotClient(accessID string, loc *time.Location, opts ...Option) *ResRobotClient {
	if loc == nil {
		loc = time.Local
	}
	return &ResRobotClient{
		client:   newClient("resrobot", DefaultResRobotBaseURL, opts),
		accessID: strings.TrimSpace(accessID),
		loc:      loc,
	}
}

type rrTripResponse struct {
	Trip oneOrMany[rrTrip] `json:"Trip"`
}

type rrTrip struct {
	LegList struct {
		Leg oneOrMany[rrLeg] `json:"Leg"`
	} `json:"LegList"`
	Chg flexNumber `json:"chg"`
}

type rrLeg struct {
	Type        string               `json:"type"`
	Duration    string               `json:"duration"`
	Dist        flexNumber           `json:"dist"`
	Direction   *string              `json:"direction"`
	Product     oneOrMany[rrProduct] `json:"Product"`
	Origin      *rrStop              `json:"Origin"`
	Destination *rrStop              `json:"Destination"`
}

type rrProduct struct {
	Name     *string `json:"name"`
	Num      *string `json:"num"`
	CatCode  *string `json:"catCode"`
	Operator *string `json:"operator"`
}

type rrStop struct {
	Name    *string `json:"name"`
	Date    string  `json:"date"`
	Time    string  `json:"time"`
	DepDate string  `json:"depDate"`
	DepTime string  `json:"depTime"`
	ArrDate string  `json:"arrDate"`
	ArrTime string  `json:"arrTime"`
}

// tripQuery identifies both ends either by coordinates or by stop id.
type tripQuery struct {
	origin      domain.Coordinates
	destination domain.Coordinates
	departAt    time.Time
	originID    string
	destID      string
}

// Trip plans an itinerary and returns the candidate with the smallest total
// duration; ties keep the first candidate. When the planner reports that no
// stops are near either end, each end is snapped to its nearest stop and the
// query is retried once.
func (r *ResRobotClient) Trip(
	ctx context.Context,
	origin domain.Coordinates,
	destination domain.Coordinates,
	departAt time.Time,
) (_ domain.PublicTransportResult, err error) {
	defer obs.Time(ctx, "resrobot.trip")(&err)

	if r.accessID == "" {
		return domain.PublicTransportResult{}, fmt.Errorf("resrobot trip: %w", domain.ErrNotConfigured)
	}

	q := tripQuery{origin: origin, destination: destination, departAt: departAt}

	trips, err := r.fetchTrips(ctx, q)
	if err != nil {
		if !isNoNearbyStops(err) {
			return domain.PublicTransportResult{}, fmt.Errorf("resrobot trip: %w", err)
		}

		originID, destID := r.nearestStops(ctx, origin, destination)
		log.Printf(
			"req_id=%s op=resrobot.trip fallback=nearby_stops origin=%s destination=%s origin_stop=%q dest_stop=%q",
			obs.RequestID(ctx), origin, destination, originID, destID,
		)
		if originID == "" && destID == "" {
			return domain.PublicTransportResult{}, fmt.Errorf("resrobot trip: %w", err)
		}

		q.originID, q.destID = originID, destID
		trips, err = r.fetchTrips(ctx, q)
		if err != nil {
			return domain.PublicTransportResult{}, fmt.Errorf("resrobot trip via stops: %w", err)
		}
	}

	if len(trips) == 0 {
		return domain.PublicTransportResult{}, fmt.Errorf("resrobot trip: no trips returned: %w", domain.ErrNoUsableTrip)
	}

	best, ok := r.selectTrip(trips)
	if !ok {
		return domain.PublicTransportResult{}, fmt.Errorf("resrobot trip: no candidate with valid times: %w", domain.ErrNoUsableTrip)
	}
	return best, nil
}

func (r *ResRobotClient) fetchTrips(ctx context.Context, q tripQuery) ([]rrTrip, error) {
	local := q.departAt.In(r.loc)

	params := url.Values{
		"format":      {"json"},
		"accessId":    {r.accessID},
		"maxWalkDist": {"5000"},
		"date":        {local.Format("2006-01-02")},
		"time":        {local.Format("15:04")},
	}

	if q.originID != "" {
		params.Set("originId", q.originID)
	} else {
		params.Set("originCoordLat", formatCoord(q.origin.Lat))
		params.Set("originCoordLong", formatCoord(q.origin.Lon))
	}

	if q.destID != "" {
		params.Set("destId", q.destID)
	} else {
		params.Set("destCoordLat", formatCoord(q.destination.Lat))
		params.Set("destCoordLong", formatCoord(q.destination.Lon))
	}

	var tr rrTripResponse
	if err := r.getJSON(ctx, "trip", r.baseURL+"/trip", params, &tr); err != nil {
		return nil, err
	}
	return tr.Trip, nil
}

// isNoNearbyStops reports whether the planner rejected a coordinate for lack
// of stops within walking distance.
func isNoNearbyStops(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	return strings.Contains(se.Body, "SVC_LOC") || strings.Contains(se.Body, "H9220")
}

// nearestStops resolves both ends concurrently. A failed lookup yields "".
func (r *ResRobotClient) nearestStops(ctx context.Context, origin, destination domain.Coordinates) (string, string) {
	var originID, destID string

	var g errgroup.Group
	g.Go(func() error {
		originID = r.nearestStopID(ctx, origin)
		return nil
	})
	g.Go(func() error {
		destID = r.nearestStopID(ctx, destination)
		return nil
	})
	_ = g.Wait()

	return originID, destID
}

// selectTrip normalizes every candidate and keeps the shortest one.
func (r *ResRobotClient) selectTrip(trips []rrTrip) (domain.PublicTransportResult, bool) {
	var (
		best  domain.PublicTransportResult
		found bool
	)

	for _, trip := range trips {
		legs := trip.LegList.Leg
		if len(legs) == 0 {
			continue
		}

		departAt, ok := r.departTime(legs[0].Origin)
		if !ok {
			continue
		}
		arriveAt, ok := r.arriveTime(legs[len(legs)-1].Destination)
		if !ok || !arriveAt.After(departAt) {
			continue
		}

		durationMs := arriveAt.Sub(departAt).Milliseconds()
		if found && durationMs >= best.DurationMs {
			continue
		}

		normalized := make([]domain.PublicTransportLeg, 0, len(legs))
		for _, leg := range legs {
			normalized = append(normalized, r.normalizeLeg(leg))
		}

		best = domain.PublicTransportResult{
			DurationMs: durationMs,
			DepartAt:   departAt,
			ArriveAt:   arriveAt,
			Changes:    trip.Chg.asInt(),
			Legs:       normalized,
		}
		found = true
	}

	return best, found
}

func (r *ResRobotClient) normalizeLeg(leg rrLeg) domain.PublicTransportLeg {
	out := domain.PublicTransportLeg{}

	if leg.Origin != nil {
		out.FromName = leg.Origin.Name
	}
	if leg.Destination != nil {
		out.ToName = leg.Destination.Name
	}
	if t, ok := r.departTime(leg.Origin); ok {
		out.DepartAt = &t
	}
	if t, ok := r.arriveTime(leg.Destination); ok {
		out.ArriveAt = &t
	}

	if strings.EqualFold(leg.Type, "WALK") {
		out.Kind = domain.LegWalk
		out.DistanceM = leg.Dist.asFloat()

		if out.DepartAt != nil && out.ArriveAt != nil && out.ArriveAt.After(*out.DepartAt) {
			ms := out.ArriveAt.Sub(*out.DepartAt).Milliseconds()
			out.DurationMs = &ms
		} else if ms, ok := parseISODuration(leg.Duration); ok {
			out.DurationMs = &ms
		}
		return out
	}

	out.Kind = domain.LegTransit
	out.Direction = leg.Direction
	if p, ok := leg.Product.first(); ok {
		out.Line = p.Num
		out.ProductName = p.Name
		out.CatCode = p.CatCode
		out.Operator = p.Operator
	}
	return out
}

func (r *ResRobotClient) departTime(s *rrStop) (time.Time, bool) {
	if s == nil {
		return time.Time{}, false
	}
	if t, ok := r.parseLocal(s.DepDate, s.DepTime); ok {
		return t, true
	}
	return r.parseLocal(s.Date, s.Time)
}

func (r *ResRobotClient) arriveTime(s *rrStop) (time.Time, bool) {
	if s == nil {
		return time.Time{}, false
	}
	if t, ok := r.parseLocal(s.ArrDate, s.ArrTime); ok {
		return t, true
	}
	return r.parseLocal(s.Date, s.Time)
}

// parseLocal combines a planner date and time of day in the planner zone.
func (r *ResRobotClient) parseLocal(date, clock string) (time.Time, bool) {
	date, clock = strings.TrimSpace(date), strings.TrimSpace(clock)
	if date == "" || clock == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, date+" "+clock, r.loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

var isoDurationRe = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// parseISODuration converts the PnDTnHnMnS subset of ISO 8601 to milliseconds.
func parseISODuration(s string) (int64, bool) {
	m := isoDurationRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, false
	}

	units := []time.Duration{24 * time.Hour, time.Hour, time.Minute, time.Second}

	var total time.Duration
	for i, unit := range units {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.ParseInt(m[i+1], 10, 64)
		if err != nil {
			return 0, false
		}
		total += time.Duration(n) * unit
	}
	return total.Milliseconds(), true
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
