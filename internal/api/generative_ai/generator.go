package generativeAI

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"

	"github.com/FACorreiaa/go-country-recommender/internal/types"
)

var (
	_ Generator = (*GeminiGenerator)(nil)
	_ Generator = (*OpenAIGenerator)(nil)
	_ Generator = (*BreakerGenerator)(nil)
	_ Generator = NoopGenerator{}
)

// Generator produces free text for a prompt. maxLength bounds the output in tokens.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxLength int) (string, error)
}

type GeminiGenerator struct {
	ai *AIClient
}

func NewGeminiGenerator(ai *AIClient) *GeminiGenerator {
	return &GeminiGenerator{ai: ai}
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string, maxLength int) (string, error) {
	ctx, span := otel.Tracer("Generator").Start(ctx, "GeminiGenerator.Generate", trace.WithAttributes(
		attribute.String("llm.model", g.ai.Model()),
		attribute.Int("llm.max_length", maxLength),
	))
	defer span.End()

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.7),
	}
	if maxLength > 0 {
		config.MaxOutputTokens = int32(maxLength)
	}

	text, err := g.ai.GenerateContent(ctx, prompt, config)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		return "", fmt.Errorf("%w: %w", types.ErrGeneration, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		span.SetStatus(codes.Error, "empty response")
		return "", fmt.Errorf("%w: empty response", types.ErrGeneration)
	}
	span.SetStatus(codes.Ok, "")
	return text, nil
}

// OpenAIGenerator uses any OpenAI-compatible chat completion endpoint.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

func NewOpenAIGenerator(baseURL, apiKey, model string) *OpenAIGenerator {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIGenerator{client: openai.NewClientWithConfig(cfg), model: model}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string, maxLength int) (string, error) {
	ctx, span := otel.Tracer("Generator").Start(ctx, "OpenAIGenerator.Generate", trace.WithAttributes(
		attribute.String("llm.model", g.model),
		attribute.Int("llm.max_length", maxLength),
	))
	defer span.End()

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		MaxTokens:   maxLength,
		Temperature: 0.7,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		return "", fmt.Errorf("%w: %w", types.ErrGeneration, err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		span.SetStatus(codes.Error, "empty response")
		return "", fmt.Errorf("%w: empty response", types.ErrGeneration)
	}
	span.SetStatus(codes.Ok, "")
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// NoopGenerator always fails, so callers take their fallback path.
type NoopGenerator struct{}

func (NoopGenerator) Generate(context.Context, string, int) (string, error) {
	return "", fmt.Errorf("%w: generation disabled", types.ErrGeneration)
}

type BreakerConfig struct {
	Name             string
	FailureThreshold uint32
	Timeout          time.Duration
	CallTimeout      time.Duration
}

// BreakerGenerator guards a Generator with a circuit breaker and a per-call timeout.
// While the breaker is open calls fail immediately with gobreaker.ErrOpenState.
type BreakerGenerator struct {
	next        Generator
	cb          *gobreaker.CircuitBreaker[string]
	callTimeout time.Duration
	logger      *slog.Logger
}

func NewBreakerGenerator(next Generator, cfg BreakerConfig, logger *slog.Logger) *BreakerGenerator {
	if cfg.Name == "" {
		cfg.Name = "generator"
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Generator circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
		// A cancelled caller says nothing about the backend's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}
	return &BreakerGenerator{
		next:        next,
		cb:          gobreaker.NewCircuitBreaker[string](settings),
		callTimeout: cfg.CallTimeout,
		logger:      logger,
	}
}

func (b *BreakerGenerator) State() gobreaker.State {
	return b.cb.State()
}

func (b *BreakerGenerator) Generate(ctx context.Context, prompt string, maxLength int) (string, error) {
	return b.cb.Execute(func() (string, error) {
		callCtx := ctx
		if b.callTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, b.callTimeout)
			defer cancel()
		}
		return b.next.Generate(callCtx, prompt, maxLength)
	})
}
