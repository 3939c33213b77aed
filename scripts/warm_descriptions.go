// Command warm_descriptions fills the description store ahead of the first server start,
// so the startup phase does not have to fetch every country from Wikivoyage.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	appLogger "github.com/FACorreiaa/go-country-recommender/app/logger"
	"github.com/FACorreiaa/go-country-recommender/app/observability/metrics"
	"github.com/FACorreiaa/go-country-recommender/config"
	"github.com/FACorreiaa/go-country-recommender/internal/api/recommendation"
	"github.com/FACorreiaa/go-country-recommender/internal/container"
)

var withIndex = flag.Bool("embed", false, "also embed every description and report the index size")

func main() {
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := appLogger.SetupLogger(cfg.Mode)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	metrics.InitAppMetrics()
	c, err := container.NewBaseContainer(ctx, &cfg, logger, metrics.Get())
	if err != nil {
		logger.Error("Failed to initialize container", slog.Any("error", err))
		os.Exit(1)
	}
	defer c.Close()

	list := c.Catalog.Countries()
	descriptions := c.Descriptions.LoadDescriptions(ctx, list)
	logger.Info("Descriptions ready",
		slog.Int("countries", c.Catalog.Len()),
		slog.Int("descriptions", len(descriptions)))

	if !*withIndex {
		return
	}

	iso3 := make(map[string]string, len(list))
	for _, country := range list {
		iso3[country.Name] = country.ISO3Code
	}
	index, err := recommendation.BuildIndex(ctx, c.Embedder, descriptions, recommendation.IndexOptions{
		Excluded:    cfg.Recommendation.ExcludedCountries,
		ISO3:        iso3,
		BatchSize:   cfg.Embedding.BatchSize,
		Concurrency: cfg.Embedding.Concurrency,
	}, logger)
	if err != nil {
		logger.Error("Failed to build embedding index", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Embedding index built",
		slog.Int("entries", index.Len()),
		slog.String("model", c.Embedder.ModelName()),
		slog.Int("dimensions", c.Embedder.Dimensions()))
}
