package domain

import "time"

// TravelMode selects which provider clients serve a request.
type TravelMode string

const (
	ModeDirect TravelMode = "direct"
	ModeHike   TravelMode = "hike"
)

// Driving duration and distance for one origin/destination pair.
// Results are produced fresh or served from cache and never mutated.
type CarTravelResult struct {
	DurationMs int64   `json:"duration_ms"`
	DistanceM  float64 `json:"distance_m"`
}

type LegKind string

const (
	LegWalk    LegKind = "walk"
	LegTransit LegKind = "transit"
)

// PublicTransportLeg is one contiguous segment of an itinerary.
// Walk legs carry DurationMs/DistanceM; transit legs carry the line metadata.
// Every optional field is best effort and may be nil.
type PublicTransportLeg struct {
	Kind     LegKind    `json:"kind"`
	FromName *string    `json:"from_name"`
	ToName   *string    `json:"to_name"`
	DepartAt *time.Time `json:"depart_at"`
	ArriveAt *time.Time `json:"arrive_at"`

	DurationMs *int64   `json:"duration_ms,omitempty"`
	DistanceM  *float64 `json:"distance_m,omitempty"`

	Line        *string `json:"line,omitempty"`
	ProductName *string `json:"product_name,omitempty"`
	CatCode     *string `json:"cat_code,omitempty"`
	Direction   *string `json:"direction,omitempty"`
	Operator    *string `json:"operator,omitempty"`
}

// The single itinerary chosen among the planner's candidates.
// ArriveAt is strictly after DepartAt and Legs is non-empty.
type PublicTransportResult struct {
	DurationMs int64                `json:"duration_ms"`
	DepartAt   time.Time            `json:"depart_at"`
	ArriveAt   time.Time            `json:"arrive_at"`
	Changes    *int                 `json:"changes"`
	Legs       []PublicTransportLeg `json:"legs"`
}

type HikeProfilePoint struct {
	DistanceM  float64 `json:"distance_m"`
	ElevationM float64 `json:"elevation_m"`
}

// HikeTravelResult is a foot route with its elevation profile.
// The first profile sample is always at distance 0.
type HikeTravelResult struct {
	DurationMs int64              `json:"duration_ms"`
	DistanceM  float64            `json:"distance_m"`
	AscentM    float64            `json:"ascent_m"`
	DescentM   float64            `json:"descent_m"`
	Route      []Coordinates      `json:"route"`
	Profile    []HikeProfilePoint `json:"profile"`
}

// GeocodeResult is one ranked geocoding candidate.
type GeocodeResult struct {
	Label       string  `json:"label"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Country     string  `json:"country,omitempty"`
	City        string  `json:"city,omitempty"`
	Street      string  `json:"street,omitempty"`
	HouseNumber string  `json:"housenumber,omitempty"`
	PostCode    string  `json:"postcode,omitempty"`
	State       string  `json:"state,omitempty"`
}
