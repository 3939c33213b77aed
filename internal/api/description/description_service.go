package description

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-country-recommender/app/observability/metrics"
	"github.com/FACorreiaa/go-country-recommender/internal/types"
)

// DefaultFallbackTemplate is used for countries the fetcher has no text for.
const DefaultFallbackTemplate = "%s - interesting place to travel!"

var _ DescriptionService = (*ServiceImpl)(nil)

// Fetcher looks up the description of a single country. An empty string with a nil
// error means the source has no page for it.
type Fetcher interface {
	FetchDescription(ctx context.Context, countryName string) (string, error)
}

type DescriptionService interface {
	// LoadDescriptions returns a description for every given country, fetching only the
	// ones missing from storage. It never fails: storage and fetch errors degrade to
	// fallback text and are logged.
	LoadDescriptions(ctx context.Context, countries []types.Country) map[string]string
}

type ServiceImpl struct {
	logger           *slog.Logger
	repo             Repository
	fetcher          Fetcher
	fallbackTemplate string
	metrics          *metrics.AppMetrics
}

type Option func(*ServiceImpl)

// WithFallbackTemplate overrides the fallback sentence. The template must contain one %s.
func WithFallbackTemplate(tmpl string) Option {
	return func(s *ServiceImpl) {
		if strings.Contains(tmpl, "%s") {
			s.fallbackTemplate = tmpl
		}
	}
}

func WithMetrics(m *metrics.AppMetrics) Option {
	return func(s *ServiceImpl) { s.metrics = m }
}

func NewDescriptionService(repo Repository, fetcher Fetcher, logger *slog.Logger, opts ...Option) *ServiceImpl {
	s := &ServiceImpl{
		logger:           logger,
		repo:             repo,
		fetcher:          fetcher,
		fallbackTemplate: DefaultFallbackTemplate,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fallback returns the templated description for countryName.
func (s *ServiceImpl) Fallback(countryName string) string {
	return fmt.Sprintf(s.fallbackTemplate, countryName)
}

func (s *ServiceImpl) LoadDescriptions(ctx context.Context, countries []types.Country) map[string]string {
	ctx, span := otel.Tracer("DescriptionService").Start(ctx, "LoadDescriptions", trace.WithAttributes(
		attribute.Int("countries.count", len(countries)),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "LoadDescriptions"))

	descriptions, err := s.repo.Load(ctx)
	if err != nil {
		l.ErrorContext(ctx, "Failed to read stored descriptions, starting from an empty cache", slog.Any("error", err))
		span.RecordError(err)
		s.metrics.Storage(ctx, "descriptions", "load")
	}
	if descriptions == nil {
		descriptions = make(map[string]string)
	}

	filled, fallbacks := 0, 0
	for _, country := range countries {
		if descriptions[country.Name] != "" {
			continue
		}
		if ctx.Err() != nil {
			l.WarnContext(ctx, "Context cancelled while filling descriptions", slog.Any("error", ctx.Err()))
			break
		}

		text, err := s.fetcher.FetchDescription(ctx, country.Name)
		if err != nil {
			l.WarnContext(ctx, "Description fetch failed, using fallback",
				slog.String("country", country.Name), slog.Any("error", err))
		}
		if err != nil || strings.TrimSpace(text) == "" {
			text = s.Fallback(country.Name)
			fallbacks++
			if s.metrics != nil {
				s.metrics.DescriptionFallbacksTotal.Add(ctx, 1)
			}
		} else if s.metrics != nil {
			s.metrics.DescriptionsFetchedTotal.Add(ctx, 1)
		}
		descriptions[country.Name] = text
		filled++
	}

	span.SetAttributes(
		attribute.Int("descriptions.filled", filled),
		attribute.Int("descriptions.fallbacks", fallbacks),
	)

	if filled == 0 {
		l.DebugContext(ctx, "All descriptions served from cache", slog.Int("count", len(descriptions)))
		span.SetStatus(codes.Ok, "")
		return descriptions
	}

	if err := s.repo.Save(ctx, descriptions); err != nil {
		l.ErrorContext(ctx, "Failed to persist descriptions", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		s.metrics.Storage(ctx, "descriptions", "save")
		return descriptions
	}

	l.InfoContext(ctx, "Descriptions loaded",
		slog.Int("count", len(descriptions)),
		slog.Int("filled", filled),
		slog.Int("fallbacks", fallbacks))
	span.SetStatus(codes.Ok, "")
	return descriptions
}
