package metrics

import (
	"context"
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the recommendation pipeline's metric instruments.
type AppMetrics struct {
	DescriptionsFetchedTotal   metric.Int64Counter
	DescriptionFallbacksTotal  metric.Int64Counter
	GenerationFallbacksTotal   metric.Int64Counter
	RecommendationsTotal       metric.Int64Counter
	RecommendationErrorsTotal  metric.Int64Counter
	RecommendationDurationSecs metric.Float64Histogram
	StorageErrorsTotal         metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// New creates the instruments on the given meter.
func New(meter metric.Meter) (*AppMetrics, error) {
	var err error
	m := &AppMetrics{}

	if m.DescriptionsFetchedTotal, err = meter.Int64Counter(
		"descriptions_fetched_total",
		metric.WithDescription("Country descriptions fetched from the description source"),
		metric.WithUnit("{description}"),
	); err != nil {
		return nil, err
	}
	if m.DescriptionFallbacksTotal, err = meter.Int64Counter(
		"description_fallbacks_total",
		metric.WithDescription("Country descriptions replaced by the templated fallback"),
		metric.WithUnit("{description}"),
	); err != nil {
		return nil, err
	}
	if m.GenerationFallbacksTotal, err = meter.Int64Counter(
		"generation_fallbacks_total",
		metric.WithDescription("Recommendation blocks that used the fallback sentence"),
		metric.WithUnit("{block}"),
	); err != nil {
		return nil, err
	}
	if m.RecommendationsTotal, err = meter.Int64Counter(
		"recommendations_total",
		metric.WithDescription("Recommendation cycles completed"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, err
	}
	if m.RecommendationErrorsTotal, err = meter.Int64Counter(
		"recommendation_errors_total",
		metric.WithDescription("Recommendation cycles that ended with an error"),
		metric.WithUnit("{error}"),
	); err != nil {
		return nil, err
	}
	if m.RecommendationDurationSecs, err = meter.Float64Histogram(
		"recommendation_duration_seconds",
		metric.WithDescription("Duration of a recommendation cycle in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if m.StorageErrorsTotal, err = meter.Int64Counter(
		"storage_errors_total",
		metric.WithDescription("Description and history storage read/write failures"),
		metric.WithUnit("{error}"),
	); err != nil {
		return nil, err
	}
	return m, nil
}

// InitAppMetrics initializes the global metrics instruments ONLY ONCE,
// using the globally configured MeterProvider.
func InitAppMetrics() {
	once.Do(func() {
		m, err := New(otel.GetMeterProvider().Meter("CountryRecommender"))
		if err != nil {
			log.Fatalf("Metrics: Failed to create instruments: %v", err)
		}
		log.Println("Application metrics instruments initialized.")
		appMetrics = m
	})
}

// Get returns the globally initialized AppMetrics instance.
// Panics if InitAppMetrics was not called first.
func Get() *AppMetrics {
	if appMetrics == nil {
		panic("metrics instruments not initialized. Call metrics.InitAppMetrics() first.")
	}
	return appMetrics
}

// Storage records a storage failure for the given store ("descriptions" or "history").
func (m *AppMetrics) Storage(ctx context.Context, store, op string) {
	if m == nil {
		return
	}
	m.StorageErrorsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("store", store),
		attribute.String("op", op),
	))
}
