package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"travel-time-service/internal/api/dto"
	"travel-time-service/internal/domain"
	"travel-time-service/internal/services"
)

const travelCacheControl = "private, max-age=30"

// TravelHandler serves single and batch travel time lookups.
type TravelHandler struct {
	Service *services.TravelService
}

func (h *TravelHandler) Travel(w http.ResponseWriter, r *http.Request) {
	var req dto.TravelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	// Hike is answered before field validation so partial bodies get 501 too.
	if domain.TravelMode(req.Mode) == domain.ModeHike {
		writeServiceError(w, r, "travel.hike", domain.ErrNotImplemented)
		return
	}
	if err := validateBody(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	labels := req.OriginLabels
	if labels == nil {
		labels = &dto.OriginLabels{}
	}

	res, err := h.Service.Direct(r.Context(), services.DirectRequest{
		CarOrigin:          req.CarOrigin.Coordinates(),
		TransitOrigin:      req.PtOrigin.Coordinates(),
		Destination:        req.Destination.Coordinates(),
		DepartAt:           req.DepartAt,
		CarOriginLabel:     strings.TrimSpace(labels.Car),
		TransitOriginLabel: strings.TrimSpace(labels.PT),
		DestinationLabel:   strings.TrimSpace(req.DestinationLabel),
	})
	if err != nil {
		writeServiceError(w, r, "travel.direct", err)
		return
	}

	w.Header().Set("Cache-Control", travelCacheControl)
	writeJSON(w, r, http.StatusOK, dto.TravelResponse{
		Mode:    string(domain.ModeDirect),
		Car:     res.Car,
		Transit: res.Transit,
		DeepLinks: dto.DeepLinksResponse{
			CarGoogleMaps: res.DeepLinks.CarGoogleMaps,
			TransitSL:     res.DeepLinks.TransitSL,
		},
	})
}

// Batch resolves transit summaries for many destinations sharing one origin.
// Destinations that do not decode are dropped like any other malformed entry.
func (h *TravelHandler) Batch(w http.ResponseWriter, r *http.Request) {
	var req dto.BatchTravelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if domain.TravelMode(req.Mode) == domain.ModeHike {
		writeServiceError(w, r, "travel.batch", domain.ErrNotImplemented)
		return
	}
	if err := validateBody(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	dests := make([]services.BatchDestination, 0, len(req.Destinations))
	for _, raw := range req.Destinations {
		var d dto.BatchDestination
		if err := json.Unmarshal(raw, &d); err != nil || d.Lat == nil || d.Lon == nil {
			// An empty id makes the service drop and count it.
			dests = append(dests, services.BatchDestination{})
			continue
		}
		dests = append(dests, services.BatchDestination{
			ID:     strings.TrimSpace(d.ID),
			Coords: domain.Coordinates{Lat: *d.Lat, Lon: *d.Lon},
		})
	}

	res, err := h.Service.Batch(r.Context(), services.BatchRequest{
		TransitOrigin: req.PtOrigin.Coordinates(),
		DepartAt:      req.DepartAt,
		Destinations:  dests,
	})
	if err != nil {
		writeServiceError(w, r, "travel.batch", err)
		return
	}

	out := dto.BatchTravelResponse{
		Results: make([]dto.BatchResultResponse, 0, len(res.Results)),
		Errors:  make([]dto.BatchErrorResponse, 0, len(res.Errors)),
	}
	for _, br := range res.Results {
		out.Results = append(out.Results, dto.BatchResultResponse{
			ID: br.ID,
			PT: dto.TransitSummaryResponse{
				DurationMs: br.Transit.DurationMs,
				DepartAt:   br.Transit.DepartAt,
				ArriveAt:   br.Transit.ArriveAt,
				Changes:    br.Transit.Changes,
			},
		})
	}
	for _, be := range res.Errors {
		out.Errors = append(out.Errors, dto.BatchErrorResponse{ID: be.ID, Error: be.Error})
	}

	w.Header().Set("Cache-Control", travelCacheControl)
	writeJSON(w, r, http.StatusOK, out)
}
