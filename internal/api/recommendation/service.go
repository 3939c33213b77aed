package recommendation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-country-recommender/app/observability/metrics"
	"github.com/FACorreiaa/go-country-recommender/internal/types"
)

var _ Recommender = (*Service)(nil)

type Dependencies struct {
	Countries    CountryLister
	Descriptions DescriptionLoader
	History      HistoryStore
	Embedder     Embedder
	Analyzer     *Analyzer
	Composer     *Composer
	Metrics      *metrics.AppMetrics
}

type Config struct {
	TopN  int
	Index IndexOptions
}

// Service runs the recommendation cycle. It holds no per-user state: the embedding
// index and description map are built once and shared by every caller.
type Service struct {
	logger       *slog.Logger
	analyzer     *Analyzer
	composer     *Composer
	history      HistoryStore
	index        *EmbeddingIndex
	descriptions map[string]string
	topN         int
	metrics      *metrics.AppMetrics
}

// NewService is the startup phase: country list, then descriptions, then the embedding index.
func NewService(ctx context.Context, deps Dependencies, cfg Config, logger *slog.Logger) (*Service, error) {
	ctx, span := otel.Tracer("RecommendationService").Start(ctx, "NewService")
	defer span.End()

	countries := deps.Countries.Countries()
	logger.InfoContext(ctx, "Countries loaded", slog.Int("count", len(countries)))

	descriptions := deps.Descriptions.LoadDescriptions(ctx, countries)

	if cfg.Index.ISO3 == nil {
		cfg.Index.ISO3 = make(map[string]string, len(countries))
		for _, c := range countries {
			cfg.Index.ISO3[c.Name] = c.ISO3Code
		}
	}
	index, err := BuildIndex(ctx, deps.Embedder, descriptions, cfg.Index, logger)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "index build failed")
		return nil, fmt.Errorf("build embedding index: %w", err)
	}

	topN := cfg.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}
	span.SetStatus(codes.Ok, "")
	return NewServiceWithIndex(index, descriptions, deps, topN, logger), nil
}

// NewServiceWithIndex skips the startup phase, for callers that already hold an index.
func NewServiceWithIndex(index *EmbeddingIndex, descriptions map[string]string, deps Dependencies, topN int, logger *slog.Logger) *Service {
	return &Service{
		logger:       logger,
		analyzer:     deps.Analyzer,
		composer:     deps.Composer,
		history:      deps.History,
		index:        index,
		descriptions: descriptions,
		topN:         topN,
		metrics:      deps.Metrics,
	}
}

func (s *Service) Index() *EmbeddingIndex {
	return s.index
}

func (s *Service) Locale() Locale {
	return s.composer.Locale()
}

// GenerateRecommendations analyses, ranks, composes and records the cycle in the user's
// history. Only analysis errors are returned; a history write failure is logged.
func (s *Service) GenerateRecommendations(ctx context.Context, userID, preferences string) (string, error) {
	ctx, span := otel.Tracer("RecommendationService").Start(ctx, "GenerateRecommendations", trace.WithAttributes(
		attribute.String("user.id", userID),
	))
	defer span.End()

	start := time.Now()
	l := s.logger.With(slog.String("method", "GenerateRecommendations"), slog.String("userID", userID))

	analysis, err := s.analyzer.Analyze(ctx, preferences)
	if err != nil {
		l.ErrorContext(ctx, "Failed to analyse preferences", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "analysis failed")
		s.recordError(ctx, err)
		return "", err
	}

	matches := Rank(analysis.Embedding, s.index, s.topN)
	text := s.composer.Compose(ctx, matches, analysis.Keywords, s.descriptions)

	past := make([]string, 0, len(matches))
	for _, m := range matches {
		past = append(past, m.CountryName)
	}
	if err := s.history.Save(ctx, userID, types.UserHistory{
		PreferredCountries:  analysis.Keywords,
		PastRecommendations: past,
	}); err != nil {
		l.WarnContext(ctx, "Recommendation served without saving history", slog.Any("error", err))
	}

	if s.metrics != nil {
		s.metrics.RecommendationsTotal.Add(ctx, 1)
		s.metrics.RecommendationDurationSecs.Record(ctx, time.Since(start).Seconds())
	}
	l.InfoContext(ctx, "Recommendations generated",
		slog.Any("countries", past),
		slog.Duration("duration", time.Since(start)))
	span.SetAttributes(attribute.StringSlice("recommendation.countries", past))
	span.SetStatus(codes.Ok, "")
	return text, nil
}

func (s *Service) recordError(ctx context.Context, err error) {
	if s.metrics == nil {
		return
	}
	kind := "internal"
	switch {
	case errors.Is(err, types.ErrTranslation):
		kind = "translation"
	case errors.Is(err, types.ErrEmptyPreferences):
		kind = "empty_preferences"
	}
	s.metrics.RecommendationErrorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}
