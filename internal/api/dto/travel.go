package dto

import (
	"encoding/json"
	"time"

	"travel-time-service/internal/domain"
)

// LatLon is a coordinate pair as sent by clients. Pointers let validation
// tell a missing value apart from 0.
type LatLon struct {
	Lat *float64 `json:"lat" validate:"required"`
	Lon *float64 `json:"lon" validate:"required"`
}

func (p *LatLon) Coordinates() domain.Coordinates {
	if p == nil || p.Lat == nil || p.Lon == nil {
		return domain.Coordinates{}
	}
	return domain.Coordinates{Lat: *p.Lat, Lon: *p.Lon}
}

type OriginLabels struct {
	Car  string `json:"car,omitempty"`
	PT   string `json:"pt,omitempty"`
	Hike string `json:"hike,omitempty"`
}

// TravelRequest is the body of POST /api/travel. Mode selects which of the
// origin fields are required.
type TravelRequest struct {
	Mode             string        `json:"mode" validate:"required,oneof=direct hike"`
	Destination      *LatLon       `json:"destination" validate:"required"`
	CarOrigin        *LatLon       `json:"car_origin" validate:"required_if=Mode direct"`
	PtOrigin         *LatLon       `json:"pt_origin" validate:"required_if=Mode direct"`
	HikeOrigin       *LatLon       `json:"hike_origin" validate:"required_if=Mode hike"`
	DepartAt         string        `json:"depart_at" validate:"required_if=Mode direct"`
	OriginLabels     *OriginLabels `json:"origin_labels,omitempty"`
	DestinationLabel string        `json:"destination_label,omitempty"`
}

type DeepLinksResponse struct {
	CarGoogleMaps string `json:"car_google_maps"`
	TransitSL     string `json:"transit_sl"`
}

type TravelResponse struct {
	Mode      string                       `json:"mode"`
	Car       domain.CarTravelResult       `json:"car"`
	Transit   domain.PublicTransportResult `json:"pt"`
	DeepLinks DeepLinksResponse            `json:"deep_links"`
}

// BatchTravelRequest is the body of POST /api/travel/batch. Destinations are
// kept raw so a malformed entry can be dropped without failing the request.
type BatchTravelRequest struct {
	Mode         string            `json:"mode" validate:"omitempty,oneof=direct hike"`
	PtOrigin     *LatLon           `json:"pt_origin" validate:"required"`
	DepartAt     string            `json:"depart_at" validate:"required"`
	Destinations []json.RawMessage `json:"destinations"`
}

// BatchDestination is one entry of BatchTravelRequest.Destinations.
type BatchDestination struct {
	ID  string   `json:"id"`
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

type TransitSummaryResponse struct {
	DurationMs int64     `json:"duration_ms"`
	DepartAt   time.Time `json:"depart_at"`
	ArriveAt   time.Time `json:"arrive_at"`
	Changes    *int      `json:"changes"`
}

type BatchResultResponse struct {
	ID string                 `json:"id"`
	PT TransitSummaryResponse `json:"pt"`
}

type BatchErrorResponse struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

type BatchTravelResponse struct {
	Results []BatchResultResponse `json:"results"`
	Errors  []BatchErrorResponse  `json:"errors"`
}
