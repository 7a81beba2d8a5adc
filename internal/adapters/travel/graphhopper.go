package travel

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"travel-time-service/internal/domain"
	"travel-time-service/internal/platform/obs"
)

const DefaultGraphHopperBaseURL = "https://graphhopper.com/api/1"

// GraphHopperClient implements CarRouter, CarMatrixRouter and Geocoder using
// the GraphHopper web API. A client without an API key fails every call with
// domain.ErrNotConfigured. Safe for concurrent use.
type GraphHopperClient struct {
	client
	apiKey string
}

func NewGraphHopperClient(apiKey string, opts ...Option) *GraphHopperClient {
	return &GraphHopperClient{
		client: newClient("graphhopper", DefaultGraphHopperBaseURL, opts),
		apiKey: strings.TrimSpace(apiKey),
	}
}

type ghRouteResponse struct {
	Paths []struct {
		Time     *float64 `json:"time"`
		Distance *float64 `json:"distance"`
	} `json:"paths"`
}

// Route returns driving time (ms) and distance (m) for the first path.
func (g *GraphHopperClient) Route(
	ctx context.Context,
	origin domain.Coordinates,
	destination domain.Coordinates,
) (_ domain.CarTravelResult, err error) {
	defer obs.Time(ctx, "graphhopper.route")(&err)

	if g.apiKey == "" {
		return domain.CarTravelResult{}, fmt.Errorf("graphhopper route: %w", domain.ErrNotConfigured)
	}

	query := url.Values{
		"point":       {ghPoint(origin), ghPoint(destination)},
		"vehicle":     {"car"},
		"locale":      {"sv"},
		"calc_points": {"false"},
		"key":         {g.apiKey},
	}

	var rr ghRouteResponse
	if err := g.getJSON(ctx, "route", g.baseURL+"/route", query, &rr); err != nil {
		return domain.CarTravelResult{}, fmt.Errorf("graphhopper route: %w", err)
	}

	if len(rr.Paths) == 0 || rr.Paths[0].Time == nil || rr.Paths[0].Distance == nil {
		return domain.CarTravelResult{}, fmt.Errorf("graphhopper route: missing time or distance: %w", domain.ErrUnexpectedPayload)
	}

	return domain.CarTravelResult{
		DurationMs: int64(math.Round(*rr.Paths[0].Time)),
		DistanceM:  *rr.Paths[0].Distance,
	}, nil
}

type ghMatrixRequest struct {
	Profile      string      `json:"profile"`
	Points       [][]float64 `json:"points"`
	Sources      []int       `json:"sources"`
	Destinations []int       `json:"destinations"`
	OutArrays    []string    `json:"out_arrays"`
}

type ghMatrixResponse struct {
	Times     [][]*float64 `json:"times"`
	Distances [][]*float64 `json:"distances"`
}

// Matrix retrieves driving results from one origin to many destinations in a
// single request. Results are aligned with destinations by index.
func (g *GraphHopperClient) Matrix(
	ctx context.Context,
	origin domain.Coordinates,
	destinations []domain.Coordinates,
) (_ []domain.CarTravelResult, err error) {
	defer obs.Time(ctx, "graphhopper.matrix")(&err)

	if g.apiKey == "" {
		return nil, fmt.Errorf("graphhopper matrix: %w", domain.ErrNotConfigured)
	}

	if len(destinations) == 0 {
		return []domain.CarTravelResult{}, nil
	}

	// GraphHopper expects points as [lon, lat].
	points := make([][]float64, 0, 1+len(destinations))
	points = append(points, origin.CoordsToList())
	for _, d := range destinations {
		points = append(points, d.CoordsToList())
	}

	destIdx := make([]int, 0, len(destinations))
	for i := 1; i < len(points); i++ {
		destIdx = append(destIdx, i)
	}

	body := ghMatrixRequest{
		Profile:      "car",
		Points:       points,
		Sources:      []int{0},
		Destinations: destIdx,
		OutArrays:    []string{"times", "distances"},
	}

	endpoint := g.baseURL + "/matrix?" + url.Values{"key": {g.apiKey}}.Encode()

	var mr ghMatrixResponse
	if err := g.postJSON(ctx, "matrix", endpoint, body, nil, &mr); err != nil {
		return nil, fmt.Errorf("graphhopper matrix: %w", err)
	}

	if len(mr.Times) == 0 || len(mr.Distances) == 0 {
		return nil, fmt.Errorf("graphhopper matrix: missing source row: %w", domain.ErrUnexpectedPayload)
	}

	rowTimes := mr.Times[0]
	rowDistances := mr.Distances[0]

	if len(rowTimes) != len(destinations) || len(rowDistances) != len(destinations) {
		return nil, fmt.Errorf(
			"graphhopper matrix: times=%d distances=%d destinations=%d: %w",
			len(rowTimes), len(rowDistances), len(destinations), domain.ErrMatrixShape,
		)
	}

	out := make([]domain.CarTravelResult, len(destinations))
	for i := range destinations {
		seconds := rowTimes[i]
		meters := rowDistances[i]

		if seconds == nil || meters == nil {
			return nil, fmt.Errorf("graphhopper matrix: no route to destination %d: %w", i, domain.ErrUnexpectedPayload)
		}

		out[i] = domain.CarTravelResult{
			DurationMs: int64(math.Round(*seconds * 1000)),
			DistanceM:  math.Round(*meters),
		}
	}

	return out, nil
}

type ghGeocodeResponse struct {
	Hits []struct {
		Point *struct {
			Lat *float64 `json:"lat"`
			Lng *float64 `json:"lng"`
		} `json:"point"`
		Name        string `json:"name"`
		Country     string `json:"country"`
		City        string `json:"city"`
		Street      string `json:"street"`
		HouseNumber string `json:"housenumber"`
		PostCode    string `json:"postcode"`
		State       string `json:"state"`
	} `json:"hits"`
}

// Geocode resolves free text to ranked candidates. Hits without a point are skipped.
func (g *GraphHopperClient) Geocode(
	ctx context.Context,
	query string,
	limit int,
) (_ []domain.GeocodeResult, err error) {
	defer obs.Time(ctx, "graphhopper.geocode")(&err)

	if g.apiKey == "" {
		return nil, fmt.Errorf("graphhopper geocode: %w", domain.ErrNotConfigured)
	}

	params := url.Values{
		"q":      {query},
		"locale": {"sv"},
		"limit":  {strconv.Itoa(limit)},
		"key":    {g.apiKey},
	}

	var gr ghGeocodeResponse
	if err := g.getJSON(ctx, "geocode", g.baseURL+"/geocode", params, &gr); err != nil {
		return nil, fmt.Errorf("graphhopper geocode: %w", err)
	}

	out := make([]domain.GeocodeResult, 0, len(gr.Hits))
	for _, h := range gr.Hits {
		if h.Point == nil || h.Point.Lat == nil || h.Point.Lng == nil {
			continue
		}

		parts := make([]string, 0, 7)
		for _, p := range []string{h.Name, h.Street, h.HouseNumber, h.PostCode, h.City, h.State, h.Country} {
			if strings.TrimSpace(p) != "" {
				parts = append(parts, p)
			}
		}

		out = append(out, domain.GeocodeResult{
			Label:       strings.Join(parts, ", "),
			Lat:         *h.Point.Lat,
			Lon:         *h.Point.Lng,
			Country:     h.Country,
			City:        h.City,
			Street:      h.Street,
			HouseNumber: h.HouseNumber,
			PostCode:    h.PostCode,
			State:       h.State,
		})
	}

	return out, nil
}

func ghPoint(c domain.Coordinates) string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lon, 'f', -1, 64)
}
