package container

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-country-recommender/config"
	generativeAI "github.com/FACorreiaa/go-country-recommender/internal/api/generative_ai"
)

// quotaGenerator fails every narrative prompt and answers translation prompts.
type quotaGenerator struct {
	mu    sync.Mutex
	calls int
}

func (g *quotaGenerator) Generate(_ context.Context, prompt string, _ int) (string, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	if strings.HasPrefix(prompt, "Translate") {
		return "mountains and hiking", nil
	}
	return "", errors.New("quota exceeded")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func geminiConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Recommendation.NarrativeMode = "generated"
	cfg.Generation.Provider = "gemini"
	cfg.Generation.BreakerFailures = 2
	cfg.Generation.BreakerTimeout = time.Minute
	cfg.Translation.Provider = "gemini"
	cfg.Translation.Timeout = time.Second
	return cfg
}

func TestNarrativeFailuresLeaveTranslationAvailable(t *testing.T) {
	ctx := context.Background()
	cfg := geminiConfig()
	shared := &quotaGenerator{}
	base := func(string) (generativeAI.Generator, error) { return shared, nil }

	narrative, err := newNarrativeGenerator(cfg, base, discardLogger())
	require.NoError(t, err)
	translator, err := newTranslator(cfg, base, discardLogger())
	require.NoError(t, err)

	var lastErr error
	for range 5 {
		_, lastErr = narrative.Generate(ctx, "Why is Nepal a good match?", 200)
	}
	require.ErrorIs(t, lastErr, gobreaker.ErrOpenState, "narrative breaker opens after repeated failures")

	got, err := translator.Translate(ctx, "горы и пешие прогулки", "ru", "en")
	require.NoError(t, err)
	assert.Equal(t, "mountains and hiking", got)
}

func TestNewNarrativeGenerator(t *testing.T) {
	calls := 0
	base := func(string) (generativeAI.Generator, error) {
		calls++
		return nil, errors.New("GOOGLE_GEMINI_API_KEY environment variable is not set")
	}

	t.Run("template mode builds no provider", func(t *testing.T) {
		cfg := geminiConfig()
		cfg.Recommendation.NarrativeMode = "template"
		gen, err := newNarrativeGenerator(cfg, base, discardLogger())
		require.NoError(t, err)
		assert.IsType(t, generativeAI.NoopGenerator{}, gen)
		assert.Zero(t, calls)
	})

	t.Run("provider none", func(t *testing.T) {
		cfg := geminiConfig()
		cfg.Generation.Provider = "none"
		gen, err := newNarrativeGenerator(cfg, base, discardLogger())
		require.NoError(t, err)
		assert.IsType(t, generativeAI.NoopGenerator{}, gen)
		assert.Zero(t, calls)
	})

	t.Run("generated mode surfaces provider errors", func(t *testing.T) {
		_, err := newNarrativeGenerator(geminiConfig(), base, discardLogger())
		assert.Error(t, err)
		assert.Equal(t, 1, calls)
	})
}

func TestGeminiClientOnlyCreatedWhenUsed(t *testing.T) {
	cfg := geminiConfig()
	cfg.Recommendation.NarrativeMode = "template"
	cfg.Translation.Provider = "google"
	cfg.Embedding.Provider = "ollama"
	cfg.Embedding.Model = "all-minilm"
	cfg.Embedding.Dimensions = 384

	requested := 0
	gemini := func() (*generativeAI.AIClient, error) {
		requested++
		return nil, errors.New("no key")
	}
	base := func(provider string) (generativeAI.Generator, error) {
		return providerGenerator(cfg, provider, gemini)
	}

	_, err := newEmbedder(cfg, gemini, discardLogger())
	require.NoError(t, err)
	_, err = newNarrativeGenerator(cfg, base, discardLogger())
	require.NoError(t, err)
	_, err = newTranslator(cfg, base, discardLogger())
	require.NoError(t, err)
	assert.Zero(t, requested)

	cfg.Translation.Provider = "gemini"
	_, err = newTranslator(cfg, base, discardLogger())
	assert.Error(t, err)
	assert.Equal(t, 1, requested)
}
