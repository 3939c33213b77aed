package generativeAI

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	_ Embedder = (*OpenAIEmbedder)(nil)
	_ Embedder = (*GeminiEmbedder)(nil)
)

// Embedder turns texts into fixed-dimension vectors. The same instance must embed
// both the country descriptions and the user's text so the vectors are comparable.
type Embedder interface {
	// Embed returns one vector per text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	ModelName() string
}

// OpenAIEmbedder talks to any OpenAI-compatible embeddings endpoint.
// Pointed at Ollama with all-minilm it yields 384-dimensional sentence vectors.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	dimensions int
	logger     *slog.Logger
}

func NewOpenAIEmbedder(baseURL, apiKey, model string, dimensions int, logger *slog.Logger) *OpenAIEmbedder {
	if apiKey == "" {
		apiKey = "ollama" // Ollama ignores the key
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIEmbedder{
		client:     openai.NewClientWithConfig(cfg),
		model:      model,
		dimensions: dimensions,
		logger:     logger,
	}
}

func (e *OpenAIEmbedder) Dimensions() int   { return e.dimensions }
func (e *OpenAIEmbedder) ModelName() string { return e.model }

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, span := otel.Tracer("Embedder").Start(ctx, "OpenAIEmbedder.Embed", trace.WithAttributes(
		attribute.String("embedding.model", e.model),
		attribute.Int("embedding.inputs", len(texts)),
	))
	defer span.End()

	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: texts,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "embedding request failed")
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		err := fmt.Errorf("embedding endpoint returned %d vectors for %d texts", len(resp.Data), len(texts))
		span.RecordError(err)
		span.SetStatus(codes.Error, "vector count mismatch")
		return nil, err
	}

	data := resp.Data
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	vectors := make([][]float32, len(data))
	for i, d := range data {
		if e.dimensions > 0 && len(d.Embedding) != e.dimensions {
			err := fmt.Errorf("embedding %d has %d dimensions, expected %d", i, len(d.Embedding), e.dimensions)
			span.RecordError(err)
			span.SetStatus(codes.Error, "dimension mismatch")
			return nil, err
		}
		vectors[i] = d.Embedding
	}

	e.logger.DebugContext(ctx, "Texts embedded", slog.Int("count", len(vectors)), slog.String("model", e.model))
	span.SetStatus(codes.Ok, "")
	return vectors, nil
}

// GeminiEmbedder embeds through the Gemini embedContent API.
type GeminiEmbedder struct {
	ai         *AIClient
	model      string
	dimensions int
	logger     *slog.Logger
}

func NewGeminiEmbedder(ai *AIClient, model string, dimensions int, logger *slog.Logger) *GeminiEmbedder {
	if model == "" {
		model = DefaultGeminiEmbeddingModel
	}
	return &GeminiEmbedder{ai: ai, model: model, dimensions: dimensions, logger: logger}
}

func (e *GeminiEmbedder) Dimensions() int   { return e.dimensions }
func (e *GeminiEmbedder) ModelName() string { return e.model }

func (e *GeminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, span := otel.Tracer("Embedder").Start(ctx, "GeminiEmbedder.Embed", trace.WithAttributes(
		attribute.String("embedding.model", e.model),
		attribute.Int("embedding.inputs", len(texts)),
	))
	defer span.End()

	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	vectors, err := e.ai.EmbedContent(ctx, e.model, texts, e.dimensions)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "embedding request failed")
		return nil, err
	}
	e.logger.DebugContext(ctx, "Texts embedded", slog.Int("count", len(vectors)), slog.String("model", e.model))
	span.SetStatus(codes.Ok, "")
	return vectors, nil
}
