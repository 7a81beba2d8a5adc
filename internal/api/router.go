package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"travel-time-service/internal/api/handlers"
	"travel-time-service/internal/platform/metrics"
	"travel-time-service/internal/ports"
	"travel-time-service/internal/services"
)

// Deps are the collaborators the HTTP layer needs. Metrics may be nil.
type Deps struct {
	Travel   *services.TravelService
	Geocoder ports.Geocoder
	Metrics  *metrics.Collector
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(deps Deps) http.Handler {
	r := mux.NewRouter()

	travelHandler := &handlers.TravelHandler{Service: deps.Travel}
	geocodeHandler := &handlers.GeocodeHandler{Geocoder: deps.Geocoder}

	r.HandleFunc("/health", handlers.Health).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/geocode", geocodeHandler.Geocode).Methods(http.MethodGet)
	api.HandleFunc("/travel", travelHandler.Travel).Methods(http.MethodPost)
	api.HandleFunc("/travel/batch", travelHandler.Batch).Methods(http.MethodPost)

	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics.Handler()).Methods(http.MethodGet)
	}

	r.NotFoundHandler = http.HandlerFunc(handlers.NotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(handlers.MethodNotAllowed)
	api.MethodNotAllowedHandler = r.MethodNotAllowedHandler

	return requestIDMiddleware(loggingMiddleware(r))
}
