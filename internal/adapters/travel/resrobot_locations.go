package travel

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"travel-time-service/internal/domain"
	"travel-time-service/internal/platform/obs"
)

// locationNameTimeout bounds stop-name lookups, which back the interactive
// geocoder after the primary provider.
const locationNameTimeout = 7 * time.Second

type rrNearbyStop struct {
	ExtID string `json:"extId"`
	ID    string `json:"id"`
	Name  string `json:"name"`
}

type rrNearbyStopsResponse struct {
	StopLocation oneOrMany[rrNearbyStop] `json:"StopLocation"`
}

// nearestStopID returns the id of the closest stop within 10 km, or "" when
// none is found or the lookup fails.
func (r *ResRobotClient) nearestStopID(ctx context.Context, c domain.Coordinates) string {
	params := url.Values{
		"format":          {"json"},
		"accessId":        {r.accessID},
		"originCoordLat":  {formatCoord(c.Lat)},
		"originCoordLong": {formatCoord(c.Lon)},
		"maxNo":           {"1"},
		"r":               {"10000"},
	}

	var nr rrNearbyStopsResponse
	if err := r.getJSON(ctx, "nearbystops", r.baseURL+"/location.nearbystops", params, &nr); err != nil {
		return ""
	}

	stop, ok := nr.StopLocation.first()
	if !ok {
		return ""
	}
	if id := strings.TrimSpace(stop.ExtID); id != "" {
		return id
	}
	return strings.TrimSpace(stop.ID)
}

type rrNamedLocation struct {
	Name string     `json:"name"`
	Lat  flexNumber `json:"lat"`
	Lon  flexNumber `json:"lon"`
}

type rrLocationNameResponse struct {
	LocationList struct {
		StopLocation  oneOrMany[rrNamedLocation] `json:"StopLocation"`
		CoordLocation oneOrMany[rrNamedLocation] `json:"CoordLocation"`
	} `json:"LocationList"`
}

// Geocode looks up stops and places by name. It is tuned for transit stop
// names that address geocoders tend to miss. Stops are listed before places.
func (r *ResRobotClient) Geocode(
	ctx context.Context,
	query string,
	limit int,
) (_ []domain.GeocodeResult, err error) {
	defer obs.Time(ctx, "resrobot.location_name")(&err)

	if r.accessID == "" {
		return nil, fmt.Errorf("resrobot location.name: %w", domain.ErrNotConfigured)
	}

	maxNo := min(max(limit, 1), 10)

	ctx, cancel := context.WithTimeout(ctx, locationNameTimeout)
	defer cancel()

	params := url.Values{
		"format":   {"json"},
		"accessId": {r.accessID},
		"input":    {query},
		"maxNo":    {strconv.Itoa(maxNo)},
	}

	var lr rrLocationNameResponse
	if err := r.getJSON(ctx, "location_name", r.baseURL+"/location.name", params, &lr); err != nil {
		return nil, fmt.Errorf("resrobot location.name: %w", err)
	}

	out := make([]domain.GeocodeResult, 0, maxNo)
	candidates := append([]rrNamedLocation{}, lr.LocationList.StopLocation...)
	candidates = append(candidates, lr.LocationList.CoordLocation...)

	for _, loc := range candidates {
		if len(out) == maxNo {
			break
		}
		label := strings.TrimSpace(loc.Name)
		if label == "" || !loc.Lat.valid || !loc.Lon.valid {
			continue
		}
		out = append(out, domain.GeocodeResult{Label: label, Lat: loc.Lat.value, Lon: loc.Lon.value})
	}

	return out, nil
}
