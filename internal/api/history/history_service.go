package history

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-country-recommender/app/observability/metrics"
	"github.com/FACorreiaa/go-country-recommender/internal/types"
)

var _ HistoryService = (*ServiceImpl)(nil)

type HistoryService interface {
	// Load returns the stored history, or an empty one when there is none or it cannot be read.
	Load(ctx context.Context, userID string) types.UserHistory
	// Save replaces the user's history. Failures are logged and returned.
	Save(ctx context.Context, userID string, h types.UserHistory) error
}

type ServiceImpl struct {
	logger  *slog.Logger
	repo    Repository
	metrics *metrics.AppMetrics
}

func NewHistoryService(repo Repository, logger *slog.Logger, m *metrics.AppMetrics) *ServiceImpl {
	return &ServiceImpl{logger: logger, repo: repo, metrics: m}
}

func (s *ServiceImpl) Load(ctx context.Context, userID string) types.UserHistory {
	ctx, span := otel.Tracer("HistoryService").Start(ctx, "Load", trace.WithAttributes(
		attribute.String("user.id", userID),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "Load"), slog.String("userID", userID))

	h, err := s.repo.Get(ctx, userID)
	switch {
	case errors.Is(err, types.ErrNotFound):
		l.DebugContext(ctx, "No stored history")
		return types.EmptyUserHistory()
	case err != nil:
		l.ErrorContext(ctx, "Failed to read user history", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		s.metrics.Storage(ctx, "history", "load")
		return types.EmptyUserHistory()
	}

	if h.PreferredCountries == nil {
		h.PreferredCountries = []string{}
	}
	if h.PastRecommendations == nil {
		h.PastRecommendations = []string{}
	}
	span.SetStatus(codes.Ok, "")
	return h
}

func (s *ServiceImpl) Save(ctx context.Context, userID string, h types.UserHistory) error {
	ctx, span := otel.Tracer("HistoryService").Start(ctx, "Save", trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.Int("history.preferred", len(h.PreferredCountries)),
		attribute.Int("history.past", len(h.PastRecommendations)),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "Save"), slog.String("userID", userID))

	if err := s.repo.Put(ctx, userID, h); err != nil {
		l.ErrorContext(ctx, "Failed to save user history", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "write failed")
		s.metrics.Storage(ctx, "history", "save")
		return err
	}

	l.InfoContext(ctx, "User history saved")
	span.SetStatus(codes.Ok, "")
	return nil
}
