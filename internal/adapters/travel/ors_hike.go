package travel

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"

	"travel-time-service/internal/domain"
	"travel-time-service/internal/platform/obs"
)

const DefaultORSBaseURL = "https://api.openrouteservice.org"

const earthRadiusM = 6371e3

// ORSHikeClient implements HikeRouter using the OpenRouteService
// foot-hiking profile with elevation enabled.
type ORSHikeClient struct {
	client
	apiKey string
}

func NewORSHikeClient(apiKey string, opts ...Option) *ORSHikeClient {
	return &ORSHikeClient{
		client: newClient("openrouteservice", DefaultORSBaseURL, opts),
		apiKey: strings.TrimSpace(apiKey),
	}
}

type orsDirectionsRequest struct {
	Coordinates      [][]float64 `json:"coordinates"`
	Elevation        bool        `json:"elevation"`
	Instructions     bool        `json:"instructions"`
	GeometrySimplify bool        `json:"geometry_simplify"`
	Units            string      `json:"units"`
}

type orsDirectionsResponse struct {
	Features []struct {
		Properties struct {
			Summary struct {
				Distance *float64 `json:"distance"`
				Duration *float64 `json:"duration"`
			} `json:"summary"`
		} `json:"properties"`
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// HikeRoute returns a foot route with its elevation profile.
func (o *ORSHikeClient) HikeRoute(
	ctx context.Context,
	origin domain.Coordinates,
	destination domain.Coordinates,
) (_ domain.HikeTravelResult, err error) {
	defer obs.Time(ctx, "ors.hike")(&err)

	if o.apiKey == "" {
		return domain.HikeTravelResult{}, fmt.Errorf("ors hike: %w", domain.ErrNotConfigured)
	}

	body := orsDirectionsRequest{
		Coordinates:      [][]float64{origin.CoordsToList(), destination.CoordsToList()},
		Elevation:        true,
		Instructions:     false,
		GeometrySimplify: false,
		Units:            "m",
	}

	endpoint := o.baseURL + "/v2/directions/foot-hiking/geojson"

	var dr orsDirectionsResponse
	err = o.postJSON(ctx, "hike", endpoint, body, func(req *http.Request) {
		req.Header.Set("Authorization", o.apiKey)
	}, &dr)
	if err != nil {
		return domain.HikeTravelResult{}, fmt.Errorf("ors hike: %w", err)
	}

	if len(dr.Features) == 0 {
		return domain.HikeTravelResult{}, fmt.Errorf("ors hike: no features: %w", domain.ErrUnexpectedPayload)
	}

	feature := dr.Features[0]
	summary := feature.Properties.Summary

	points := make([][]float64, 0, len(feature.Geometry.Coordinates))
	for _, p := range feature.Geometry.Coordinates {
		if len(p) >= 2 {
			points = append(points, p)
		}
	}

	if summary.Distance == nil || summary.Duration == nil || len(points) < 2 {
		return domain.HikeTravelResult{}, fmt.Errorf("ors hike: missing summary or geometry: %w", domain.ErrUnexpectedPayload)
	}

	profile, ascent, descent, route := buildHikeProfile(points)

	return domain.HikeTravelResult{
		DurationMs: int64(math.Round(*summary.Duration * 1000)),
		DistanceM:  math.Round(*summary.Distance),
		AscentM:    ascent,
		DescentM:   descent,
		Route:      route,
		Profile:    profile,
	}, nil
}

// buildHikeProfile walks [lon, lat, elevation?] samples once. Missing
// elevations repeat the previous sample's value; ascent and descent only count
// segments where both ends carry an elevation.
func buildHikeProfile(points [][]float64) ([]domain.HikeProfilePoint, float64, float64, []domain.Coordinates) {
	profile := make([]domain.HikeProfilePoint, 0, len(points))
	route := make([]domain.Coordinates, 0, len(points))

	var (
		ascent, descent, distance float64
		prev                      domain.Coordinates
		prevEle                   *float64
		lastEle                   float64
	)

	for i, p := range points {
		cur := domain.Coordinates{Lat: p[1], Lon: p[0]}
		route = append(route, cur)

		var ele *float64
		if len(p) >= 3 {
			v := p[2]
			ele = &v
		}

		if i == 0 {
			if ele != nil {
				lastEle = *ele
			}
			profile = append(profile, domain.HikeProfilePoint{DistanceM: 0, ElevationM: lastEle})
			prev, prevEle = cur, ele
			continue
		}

		distance += haversineM(prev, cur)

		if prevEle != nil && ele != nil {
			diff := *ele - *prevEle
			if diff > 0 {
				ascent += diff
			} else {
				descent -= diff
			}
		}

		if ele != nil {
			lastEle = *ele
		} else if prevEle == nil {
			lastEle = 0
		}

		profile = append(profile, domain.HikeProfilePoint{
			DistanceM:  math.Round(distance),
			ElevationM: lastEle,
		})
		prev, prevEle = cur, ele
	}

	return profile, math.Round(ascent), math.Round(descent), route
}

// haversineM returns the great-circle distance in metres.
func haversineM(a, b domain.Coordinates) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(b.Lat - a.Lat)
	dLon := toRad(b.Lon - a.Lon)
	sinDLat := math.Sin(dLat / 2)
	sinDLon := math.Sin(dLon / 2)

	h := sinDLat*sinDLat + math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*sinDLon*sinDLon
	return 2 * earthRadiusM * math.Asin(math.Min(1, math.Sqrt(h)))
}
