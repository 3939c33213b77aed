package container

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/jackc/pgx/v5/pgxpool"

	database "github.com/FACorreiaa/go-country-recommender/app/db"
	"github.com/FACorreiaa/go-country-recommender/app/kv"
	"github.com/FACorreiaa/go-country-recommender/app/observability/metrics"
	"github.com/FACorreiaa/go-country-recommender/config"
	"github.com/FACorreiaa/go-country-recommender/internal/api/countries"
	"github.com/FACorreiaa/go-country-recommender/internal/api/description"
	generativeAI "github.com/FACorreiaa/go-country-recommender/internal/api/generative_ai"
	"github.com/FACorreiaa/go-country-recommender/internal/api/history"
	"github.com/FACorreiaa/go-country-recommender/internal/api/keywords"
	"github.com/FACorreiaa/go-country-recommender/internal/api/recommendation"
	"github.com/FACorreiaa/go-country-recommender/internal/api/wikivoyage"
	"github.com/FACorreiaa/go-country-recommender/internal/types"
)

// Container holds all application dependencies
type Container struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *metrics.AppMetrics

	// Exactly one of Pool and Badger is set for the postgres and badger backends.
	Pool   *pgxpool.Pool
	Badger *badger.DB

	Catalog      *countries.Catalog
	Descriptions *description.ServiceImpl
	History      *history.ServiceImpl
	Embedder     generativeAI.Embedder
	Generator    generativeAI.Generator
	Translator   generativeAI.Translator

	Recommender           *recommendation.Service
	RecommendationHandler *recommendation.Handler
}

// NewContainer wires storage, collaborators and the recommendation service, then runs
// the startup phase (descriptions and the embedding index).
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger, m *metrics.AppMetrics) (*Container, error) {
	c, err := NewBaseContainer(ctx, cfg, logger, m)
	if err != nil {
		return nil, err
	}

	locale := recommendation.LocaleFor(cfg.Recommendation.Locale)
	extractor := keywords.NewExtractor(c.Embedder, logger, keywords.WithBatchSize(cfg.Embedding.BatchSize))
	analyzer := recommendation.NewAnalyzer(c.Translator, extractor, c.Embedder, recommendation.AnalyzerConfig{
		UserLanguage:    cfg.Translation.UserLanguage,
		WorkingLanguage: cfg.Translation.WorkingLanguage,
		KeywordCount:    cfg.Recommendation.KeywordCount,
	}, logger)
	composer := recommendation.NewComposer(c.Generator, c.Translator, recommendation.ComposerConfig{
		Mode:             types.NarrativeMode(cfg.Recommendation.NarrativeMode),
		Locale:           locale,
		UserLanguage:     cfg.Translation.UserLanguage,
		WorkingLanguage:  cfg.Translation.WorkingLanguage,
		PromptKeywords:   cfg.Recommendation.PromptKeywords,
		DescriptionChars: cfg.Recommendation.DescriptionChars,
		MaxLength:        cfg.Generation.MaxLength,
		Concurrency:      cfg.Recommendation.Concurrency,
		CallTimeout:      cfg.Generation.Timeout,
	}, m, logger)

	svc, err := recommendation.NewService(ctx, recommendation.Dependencies{
		Countries:    c.Catalog,
		Descriptions: c.Descriptions,
		History:      c.History,
		Embedder:     c.Embedder,
		Analyzer:     analyzer,
		Composer:     composer,
		Metrics:      m,
	}, recommendation.Config{
		TopN: cfg.Recommendation.TopN,
		Index: recommendation.IndexOptions{
			Excluded:    cfg.Recommendation.ExcludedCountries,
			BatchSize:   cfg.Embedding.BatchSize,
			Concurrency: cfg.Embedding.Concurrency,
		},
	}, logger)
	if err != nil {
		c.Close()
		logger.Error("Failed to initialize recommendation service", slog.Any("error", err))
		return nil, err
	}

	c.Recommender = svc
	c.RecommendationHandler = recommendation.NewHandler(svc, c.History, locale, logger)
	return c, nil
}

// NewBaseContainer wires storage and the external collaborators without building the
// embedding index. The description warm-up script stops here.
func NewBaseContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger, m *metrics.AppMetrics) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger, Metrics: m}

	descRepo, histRepo, err := c.initStorage(ctx)
	if err != nil {
		c.Close()
		return nil, err
	}

	c.Catalog = countries.NewCatalog(cfg.Recommendation.ExcludedCountries, logger)

	fetcher := wikivoyage.NewClient(wikivoyage.Config{
		URL:               cfg.Wikivoyage.URL,
		UserAgent:         cfg.Wikivoyage.UserAgent,
		Attempts:          cfg.Wikivoyage.Attempts,
		Wait:              cfg.Wikivoyage.Wait,
		Timeout:           cfg.Wikivoyage.Timeout,
		RequestsPerSecond: cfg.Wikivoyage.RequestsPerSecond,
		MaxChars:          cfg.Wikivoyage.MaxChars,
	}, nil, logger)
	c.Descriptions = description.NewDescriptionService(descRepo, fetcher, logger,
		description.WithFallbackTemplate(cfg.Recommendation.FallbackTemplate),
		description.WithMetrics(m),
	)
	c.History = history.NewHistoryService(histRepo, logger, m)

	gemini := lazyGemini(ctx, cfg)
	base := func(provider string) (generativeAI.Generator, error) {
		return providerGenerator(cfg, provider, gemini)
	}

	if c.Embedder, err = newEmbedder(cfg, gemini, logger); err != nil {
		c.Close()
		return nil, err
	}
	if c.Generator, err = newNarrativeGenerator(cfg, base, logger); err != nil {
		c.Close()
		return nil, err
	}
	if c.Translator, err = newTranslator(cfg, base, logger); err != nil {
		c.Close()
		return nil, err
	}

	logger.Info("Container initialized",
		slog.String("storage", cfg.Storage.Backend),
		slog.String("embedding", cfg.Embedding.Provider),
		slog.String("generation", cfg.Generation.Provider),
		slog.String("translation", cfg.Translation.Provider))
	return c, nil
}

func (c *Container) initStorage(ctx context.Context) (description.Repository, history.Repository, error) {
	cfg, logger := c.Config, c.Logger

	switch cfg.Storage.Backend {
	case "file":
		return description.NewFileRepository(cfg.Storage.DescriptionsFile),
			history.NewFileRepository(cfg.Storage.HistoryFile, logger), nil

	case "badger":
		db, err := kv.Open(cfg.Storage.BadgerDir, logger)
		if err != nil {
			logger.Error("Failed to open badger store", slog.Any("error", err))
			return nil, nil, err
		}
		c.Badger = db
		return description.NewBadgerRepository(db), history.NewBadgerRepository(db), nil

	case "postgres":
		dbConfig, err := database.NewDatabaseConfig(cfg, logger)
		if err != nil {
			logger.Error("Failed to generate database config", slog.Any("error", err))
			return nil, nil, err
		}
		if err = database.RunMigrations(dbConfig.ConnectionURL, logger); err != nil {
			return nil, nil, err
		}
		pool, err := database.Init(ctx, dbConfig.ConnectionURL, logger)
		if err != nil {
			logger.Error("Failed to initialize database pool", slog.Any("error", err))
			return nil, nil, err
		}
		c.Pool = pool
		if !database.WaitForDB(ctx, pool, logger) {
			return nil, nil, errors.New("database not ready")
		}
		return description.NewPostgresRepository(pool, logger), history.NewPostgresRepository(pool, logger), nil
	}
	return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}

type geminiSource func() (*generativeAI.AIClient, error)

// lazyGemini creates the Gemini client on first use, so setups that never call Gemini need no key.
func lazyGemini(ctx context.Context, cfg *config.Config) geminiSource {
	var (
		once sync.Once
		ai   *generativeAI.AIClient
		err  error
	)
	return func() (*generativeAI.AIClient, error) {
		once.Do(func() {
			ai, err = generativeAI.NewAIClient(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
		})
		return ai, err
	}
}

func newEmbedder(cfg *config.Config, gemini geminiSource, logger *slog.Logger) (generativeAI.Embedder, error) {
	switch cfg.Embedding.Provider {
	case "ollama":
		return generativeAI.NewOpenAIEmbedder(cfg.Embedding.BaseURL, cfg.Embedding.APIKey,
			cfg.Embedding.Model, cfg.Embedding.Dimensions, logger), nil
	case "gemini":
		ai, err := gemini()
		if err != nil {
			return nil, fmt.Errorf("gemini embedder: %w", err)
		}
		model := cfg.Embedding.Model
		if model == "" || strings.HasPrefix(model, "all-") {
			model = generativeAI.DefaultGeminiEmbeddingModel
		}
		return generativeAI.NewGeminiEmbedder(ai, model, cfg.Embedding.Dimensions, logger), nil
	}
	return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
}

// baseGenerator returns the unguarded generator of a provider. Every caller wraps it in its
// own breaker.
type baseGenerator func(provider string) (generativeAI.Generator, error)

func providerGenerator(cfg *config.Config, provider string, gemini geminiSource) (generativeAI.Generator, error) {
	switch provider {
	case "gemini":
		ai, err := gemini()
		if err != nil {
			return nil, fmt.Errorf("gemini generator: %w", err)
		}
		return generativeAI.NewGeminiGenerator(ai), nil
	case "openai":
		return generativeAI.NewOpenAIGenerator(cfg.Generation.BaseURL, cfg.Generation.APIKey, cfg.Generation.Model), nil
	}
	return nil, fmt.Errorf("unknown generation provider %q", provider)
}

// newNarrativeGenerator returns the generator behind the "why it matches" line. Template mode
// never generates, so it gets the Noop generator and no provider client is created.
func newNarrativeGenerator(cfg *config.Config, base baseGenerator, logger *slog.Logger) (generativeAI.Generator, error) {
	if types.NarrativeMode(cfg.Recommendation.NarrativeMode) != types.NarrativeGenerated ||
		cfg.Generation.Provider == "none" {
		return generativeAI.NoopGenerator{}, nil
	}
	next, err := base(cfg.Generation.Provider)
	if err != nil {
		return nil, err
	}
	return generativeAI.NewBreakerGenerator(next, generativeAI.BreakerConfig{
		Name:             "narrative-" + cfg.Generation.Provider,
		FailureThreshold: cfg.Generation.BreakerFailures,
		Timeout:          cfg.Generation.BreakerTimeout,
		CallTimeout:      cfg.Generation.Timeout,
	}, logger), nil
}

// newTranslator builds the translation chain. The Gemini translator has a breaker of its own:
// narrative failures fall back locally and must not open the path preference analysis needs.
func newTranslator(cfg *config.Config, base baseGenerator, logger *slog.Logger) (generativeAI.Translator, error) {
	var tr generativeAI.Translator
	switch cfg.Translation.Provider {
	case "google":
		tr = generativeAI.NewGoogleTranslator(cfg.Translation.Endpoint, cfg.Translation.Timeout, logger)
	case "gemini":
		next, err := base("gemini")
		if err != nil {
			return nil, fmt.Errorf("gemini translator: %w", err)
		}
		tr = generativeAI.NewGeminiTranslator(generativeAI.NewBreakerGenerator(next, generativeAI.BreakerConfig{
			Name:             "translation-gemini",
			FailureThreshold: cfg.Generation.BreakerFailures,
			Timeout:          cfg.Generation.BreakerTimeout,
			CallTimeout:      cfg.Translation.Timeout,
		}, logger), logger)
	default:
		return nil, fmt.Errorf("unknown translation provider %q", cfg.Translation.Provider)
	}
	if cfg.Translation.CacheTTL > 0 {
		tr = generativeAI.NewCachedTranslator(tr, cfg.Translation.CacheTTL)
	}
	return tr, nil
}

// Close releases all resources
func (c *Container) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
	if c.Badger != nil {
		if err := c.Badger.Close(); err != nil {
			c.Logger.Warn("Failed to close badger store", slog.Any("error", err))
		}
	}
}
