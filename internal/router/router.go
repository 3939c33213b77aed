package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/FACorreiaa/go-country-recommender/internal/api/recommendation"
)

// Config contains dependencies needed for the router setup.
type Config struct {
	RecommendationHandler *recommendation.Handler
	AllowedOrigins        []string
	// RateLimitPerMinute caps recommendation requests per client IP; 0 disables the limit.
	RateLimitPerMinute int
}

// SetupRouter initializes the application routes.
// Server-wide middleware (logger, request id, recoverer) is applied in main.go.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		h := cfg.RecommendationHandler

		r.Get("/start", h.Start)
		r.Get("/users/{userID}/history", h.GetHistory)

		// Each recommendation runs translation, embedding and possibly generation.
		r.Group(func(r chi.Router) {
			if cfg.RateLimitPerMinute > 0 {
				r.Use(httprate.LimitByIP(cfg.RateLimitPerMinute, time.Minute))
			}
			r.Post("/recommendations", h.CreateRecommendation)
		})
	})

	return r
}
