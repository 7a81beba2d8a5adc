package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"travel-time-service/internal/api/dto"
	"travel-time-service/internal/ports"
	"travel-time-service/internal/services"
)

type GeocodeHandler struct {
	Geocoder ports.Geocoder
}

// Geocode resolves free text to ranked candidates. An unparseable limit
// falls back to the default rather than failing the request.
func (h *GeocodeHandler) Geocode(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, r, http.StatusBadRequest, "q is required")
		return
	}

	limit := services.DefaultGeocodeLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = services.ClampGeocodeLimit(n)
		}
	}

	results, err := h.Geocoder.Geocode(r.Context(), q, limit)
	if err != nil {
		writeServiceError(w, r, "geocode", err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.GeocodeResponse{Results: results})
}
