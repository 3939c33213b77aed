package recommendation

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-country-recommender/internal/api"
	"github.com/FACorreiaa/go-country-recommender/internal/types"
)

// HistoryReader is the read side of the history store.
type HistoryReader interface {
	Load(ctx context.Context, userID string) types.UserHistory
}

type Handler struct {
	recommender Recommender
	history     HistoryReader
	locale      Locale
	logger      *slog.Logger
}

func NewHandler(recommender Recommender, history HistoryReader, locale Locale, logger *slog.Logger) *Handler {
	return &Handler{
		recommender: recommender,
		history:     history,
		locale:      locale,
		logger:      logger,
	}
}

type StartResponse struct {
	Text string `json:"text"`
}

// Start returns the greeting shown before the first request.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	api.WriteJSONResponse(w, r, http.StatusOK, StartResponse{Text: h.locale.Welcome})
}

// CreateRecommendation runs one recommendation cycle for the posted preferences.
func (h *Handler) CreateRecommendation(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("RecommendationHandler").Start(r.Context(), "CreateRecommendation", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/v1/recommendations"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "CreateRecommendation"))

	var req types.RecommendationRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Invalid request body", slog.Any("error", err))
		span.SetStatus(codes.Error, "invalid body")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		span.SetStatus(codes.Error, "missing user id")
		api.ErrorResponse(w, r, http.StatusBadRequest, "user_id is required")
		return
	}
	span.SetAttributes(semconv.EnduserIDKey.String(req.UserID))
	l = l.With(slog.String("userID", req.UserID))

	text, err := h.recommender.GenerateRecommendations(ctx, req.UserID, req.Preferences)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "recommendation failed")
		switch {
		case errors.Is(err, types.ErrEmptyPreferences):
			api.ErrorResponse(w, r, http.StatusBadRequest, h.locale.EmptyPreferences)
		case errors.Is(err, types.ErrTranslation):
			l.ErrorContext(ctx, "Translation unavailable", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusBadGateway, h.locale.TranslationFailed)
		default:
			l.ErrorContext(ctx, "Failed to generate recommendations", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, h.locale.InternalError)
		}
		return
	}

	span.SetStatus(codes.Ok, "")
	api.WriteJSONResponse(w, r, http.StatusOK, types.RecommendationResponse{
		RecommendationID: uuid.NewString(),
		UserID:           req.UserID,
		Text:             text,
	})
}

// GetHistory returns the last stored cycle for a user, empty lists when there is none.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("RecommendationHandler").Start(r.Context(), "GetHistory", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/v1/users/{userID}/history"),
	))
	defer span.End()

	userID := strings.TrimSpace(chi.URLParam(r, "userID"))
	if userID == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "user id is required")
		return
	}
	span.SetAttributes(semconv.EnduserIDKey.String(userID))

	api.WriteJSONResponse(w, r, http.StatusOK, h.history.Load(ctx, userID))
}
