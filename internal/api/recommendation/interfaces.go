package recommendation

import (
	"context"

	"github.com/FACorreiaa/go-country-recommender/internal/types"
)

// Embedder must be the same instance for the index and for user text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

type KeywordExtractor interface {
	ExtractKeywords(ctx context.Context, text string, topN int) ([]types.Keyword, error)
}

type Generator interface {
	Generate(ctx context.Context, prompt string, maxLength int) (string, error)
}

type CountryLister interface {
	Countries() []types.Country
}

type DescriptionLoader interface {
	LoadDescriptions(ctx context.Context, countries []types.Country) map[string]string
}

type HistoryStore interface {
	Load(ctx context.Context, userID string) types.UserHistory
	Save(ctx context.Context, userID string, h types.UserHistory) error
}

// Recommender is what the HTTP layer needs from the orchestrator.
type Recommender interface {
	GenerateRecommendations(ctx context.Context, userID, preferences string) (string, error)
}
