package generativeAI

import (
	"context"
	"errors"
	"fmt"
	"os"

	"google.golang.org/genai"
)

const (
	DefaultGeminiModel          = "gemini-2.0-flash"
	DefaultGeminiEmbeddingModel = "text-embedding-004"
	apiKeyEnv                   = "GOOGLE_GEMINI_API_KEY"
)

// AIClient is a thin wrapper over the Gemini API client shared by the Gemini
// generator, embedder and translator.
type AIClient struct {
	client *genai.Client
	model  string
}

// NewAIClient creates a Gemini client. An empty apiKey falls back to GOOGLE_GEMINI_API_KEY.
func NewAIClient(ctx context.Context, apiKey, model string) (*AIClient, error) {
	if apiKey == "" {
		apiKey = os.Getenv(apiKeyEnv)
	}
	if apiKey == "" {
		return nil, errors.New(apiKeyEnv + " environment variable is not set")
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &AIClient{
		client: client,
		model:  model,
	}, nil
}

func (ai *AIClient) Model() string {
	return ai.model
}

func (ai *AIClient) GenerateContent(ctx context.Context, prompt string, config *genai.GenerateContentConfig) (string, error) {
	result, err := ai.client.Models.GenerateContent(ctx, ai.model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	return result.Text(), nil
}

// EmbedContent embeds each text as its own content entry, in order.
func (ai *AIClient) EmbedContent(ctx context.Context, model string, texts []string, dimensions int) ([][]float32, error) {
	contents := make([]*genai.Content, 0, len(texts))
	for _, t := range texts {
		contents = append(contents, &genai.Content{Parts: []*genai.Part{{Text: t}}})
	}

	var config *genai.EmbedContentConfig
	if dimensions > 0 {
		config = &genai.EmbedContentConfig{OutputDimensionality: genai.Ptr[int32](int32(dimensions))}
	}

	result, err := ai.client.Models.EmbedContent(ctx, model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini embed content: %w", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini returned %d embeddings for %d texts", len(result.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(result.Embeddings))
	for i, e := range result.Embeddings {
		vectors[i] = e.Values
	}
	return vectors, nil
}
