package recommendation

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-country-recommender/internal/api"
	"github.com/FACorreiaa/go-country-recommender/internal/types"
)

type MockRecommender struct {
	mock.Mock
}

func (m *MockRecommender) GenerateRecommendations(ctx context.Context, userID, preferences string) (string, error) {
	args := m.Called(ctx, userID, preferences)
	return args.String(0), args.Error(1)
}

func newTestRouter(rec Recommender, hist HistoryReader) http.Handler {
	h := NewHandler(rec, hist, Russian, discardLogger())
	r := chi.NewRouter()
	r.Get("/start", h.Start)
	r.Post("/recommendations", h.CreateRecommendation)
	r.Get("/users/{userID}/history", h.GetHistory)
	return r
}

func TestHandler_CreateRecommendation(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setup      func(m *MockRecommender)
		wantStatus int
		wantText   string
		wantError  string
	}{
		{
			name: "success",
			body: `{"user_id":"42","preferences":"горы"}`,
			setup: func(m *MockRecommender) {
				m.On("GenerateRecommendations", mock.Anything, "42", "горы").Return("Рекомендации...", nil).Once()
			},
			wantStatus: http.StatusOK,
			wantText:   "Рекомендации...",
		},
		{
			name:       "missing user id",
			body:       `{"preferences":"горы"}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "user_id is required",
		},
		{
			name:       "malformed body",
			body:       `{"user_id":`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown field",
			body:       `{"user_id":"1","preferences":"x","extra":true}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "translation failure",
			body: `{"user_id":"42","preferences":"горы"}`,
			setup: func(m *MockRecommender) {
				m.On("GenerateRecommendations", mock.Anything, "42", "горы").
					Return("", errors.Join(types.ErrTranslation, errors.New("503"))).Once()
			},
			wantStatus: http.StatusBadGateway,
			wantError:  Russian.TranslationFailed,
		},
		{
			name: "empty preferences",
			body: `{"user_id":"42","preferences":""}`,
			setup: func(m *MockRecommender) {
				m.On("GenerateRecommendations", mock.Anything, "42", "").Return("", types.ErrEmptyPreferences).Once()
			},
			wantStatus: http.StatusBadRequest,
			wantError:  Russian.EmptyPreferences,
		},
		{
			name: "other failure",
			body: `{"user_id":"42","preferences":"горы"}`,
			setup: func(m *MockRecommender) {
				m.On("GenerateRecommendations", mock.Anything, "42", "горы").Return("", errors.New("embed preferences: eof")).Once()
			},
			wantStatus: http.StatusInternalServerError,
			wantError:  Russian.InternalError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := new(MockRecommender)
			if tt.setup != nil {
				tt.setup(rec)
			}
			router := newTestRouter(rec, new(MockHistory))

			req := httptest.NewRequest(http.MethodPost, "/recommendations", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
			if tt.wantStatus == http.StatusOK {
				var resp types.RecommendationResponse
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
				assert.Equal(t, tt.wantText, resp.Text)
				assert.Equal(t, "42", resp.UserID)
				_, err := uuid.Parse(resp.RecommendationID)
				assert.NoError(t, err)
			} else {
				var resp api.ErrorBody
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
				assert.False(t, resp.Success)
				if tt.wantError != "" {
					assert.Equal(t, tt.wantError, resp.Error)
				}
			}
			rec.AssertExpectations(t)
		})
	}
}

func TestHandler_GetHistory(t *testing.T) {
	hist := new(MockHistory)
	hist.On("Load", mock.Anything, "42").Return(types.UserHistory{
		PreferredCountries:  []string{"mountains"},
		PastRecommendations: []string{"Nepal"},
	}).Once()
	hist.On("Load", mock.Anything, "7").Return(types.EmptyUserHistory()).Once()

	router := newTestRouter(new(MockRecommender), hist)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/users/42/history", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"preferred_countries":["mountains"],"past_recommendations":["Nepal"]}`, rr.Body.String())

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/users/7/history", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"preferred_countries":[],"past_recommendations":[]}`, rr.Body.String())

	hist.AssertExpectations(t)
}

func TestHandler_Start(t *testing.T) {
	router := newTestRouter(new(MockRecommender), new(MockHistory))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/start", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"text":"Привет! Напиши свои предпочтения для путешествия, и я дам рекомендации!"}`, rr.Body.String())
}
