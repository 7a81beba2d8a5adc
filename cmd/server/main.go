package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"travel-time-service/internal/adapters/travel"
	"travel-time-service/internal/api"
	"travel-time-service/internal/config"
	"travel-time-service/internal/platform/metrics"
	"travel-time-service/internal/platform/obs"
	"travel-time-service/internal/services"
)

// main is the application composition root.
// It wires concrete provider clients behind ports and starts the HTTP server.
func main() {
	obs.InitLogging()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	collector := metrics.NewCollector()
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	graphhopper := travel.NewGraphHopperClient(
		cfg.GraphHopperAPIKey,
		travel.WithBaseURL(cfg.GraphHopperBaseURL),
		travel.WithHTTPClient(httpClient),
		travel.WithMetrics(collector),
	)
	resrobot := travel.NewResRobotClient(
		cfg.ResRobotAccessID,
		cfg.Location,
		travel.WithBaseURL(cfg.ResRobotBaseURL),
		travel.WithHTTPClient(httpClient),
		travel.WithMetrics(collector),
	)
	logMissingCredentials(cfg)

	travelSvc := services.NewTravelService(graphhopper, resrobot, services.TravelConfig{
		Location:         cfg.Location,
		CarTTL:           cfg.CarCacheTTL,
		TransitTTL:       cfg.TransitCacheTTL,
		SweepInterval:    cfg.CacheSweepInterval,
		BucketMinutes:    cfg.DepartBucketMinutes,
		BatchConcurrency: cfg.BatchConcurrency,
	}, collector)

	router := api.NewRouter(api.Deps{
		Travel:   travelSvc,
		Geocoder: services.NewGeocodeChain(graphhopper, resrobot),
		Metrics:  collector,
	})

	// Write timeout leaves room for a cold batch against slow providers.
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Server listening addr=%s tz=%s", srv.Addr, cfg.Location)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced to shut down: %v", err)
	}
	log.Println("server stopped")
}

// Missing credentials are not fatal; affected endpoints answer with a
// configuration error instead.
func logMissingCredentials(cfg *config.Config) {
	if cfg.GraphHopperAPIKey == "" {
		log.Println("GRAPHHOPPER_API_KEY not set: car routing and primary geocoding disabled")
	}
	if cfg.ResRobotAccessID == "" {
		log.Println("TRAFIKLAB_RESROBOT_ACCESS_ID not set: transit planning disabled")
	}
}
