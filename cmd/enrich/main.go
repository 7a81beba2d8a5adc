// Command enrich precomputes driving time and distance from a hub to every
// directory item with coordinates and stores them in Postgres.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"travel-time-service/internal/adapters/repositories"
	"travel-time-service/internal/adapters/store"
	"travel-time-service/internal/adapters/travel"
	"travel-time-service/internal/config"
	"travel-time-service/internal/domain"
	"travel-time-service/internal/platform/db"
	"travel-time-service/internal/platform/obs"
	"travel-time-service/internal/services"
)

func main() {
	obs.InitLogging()

	force := flag.Bool("force", false, "recompute pairs that are already stored")
	chunk := flag.Int("chunk", services.DefaultEnrichChunkSize, "destinations per matrix request")
	retries := flag.Int("retries", 3, "attempts per matrix request")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		log.Fatal("DATABASE_URL is required")
	}
	if cfg.GraphHopperAPIKey == "" {
		log.Fatal("GRAPHHOPPER_API_KEY is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	router := travel.NewGraphHopperClient(
		cfg.GraphHopperAPIKey,
		travel.WithBaseURL(cfg.GraphHopperBaseURL),
		travel.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		travel.WithMaxAttempts(*retries),
	)

	report, err := services.EnrichDriveDistances(
		obs.WithRequestID(ctx, "enrich"),
		services.EnrichRequest{
			Origin:    domain.DefaultCarOrigin,
			ChunkSize: *chunk,
			Force:     *force,
		},
		repositories.NewPostgresDirectoryRepository(conn),
		router,
		store.NewSQLDriveDistanceStore(conn),
	)
	if err != nil {
		log.Fatalf("enrich failed: %v", err)
	}

	log.Printf(
		"enrich complete origin=%q items=%d no_coordinates=%d skipped=%d stored=%d",
		domain.DefaultCarOrigin.Label, report.Items, report.NoCoordinates, report.Skipped, report.Stored,
	)
}
