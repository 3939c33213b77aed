package recommendation

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/FACorreiaa/go-country-recommender/internal/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubEmbedder returns fixed vectors for known texts and fails for unknown ones.
type stubEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	err     error
	calls   int
}

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, ok := s.vectors[t]
		if !ok {
			return nil, fmt.Errorf("no vector for %q", t)
		}
		out[i] = v
	}
	return out, nil
}

type MockTranslator struct {
	mock.Mock
}

func (m *MockTranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	args := m.Called(ctx, text, source, target)
	return args.String(0), args.Error(1)
}

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, prompt string, maxLength int) (string, error) {
	args := m.Called(ctx, prompt, maxLength)
	return args.String(0), args.Error(1)
}

type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) ExtractKeywords(ctx context.Context, text string, topN int) ([]types.Keyword, error) {
	args := m.Called(ctx, text, topN)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Keyword), args.Error(1)
}

type MockHistory struct {
	mock.Mock
}

func (m *MockHistory) Load(ctx context.Context, userID string) types.UserHistory {
	args := m.Called(ctx, userID)
	return args.Get(0).(types.UserHistory)
}

func (m *MockHistory) Save(ctx context.Context, userID string, h types.UserHistory) error {
	args := m.Called(ctx, userID, h)
	return args.Error(0)
}

type staticCountries []types.Country

func (s staticCountries) Countries() []types.Country { return s }

type staticDescriptions map[string]string

func (s staticDescriptions) LoadDescriptions(context.Context, []types.Country) map[string]string {
	out := make(map[string]string, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

func keywordsOf(words ...string) []types.Keyword {
	out := make([]types.Keyword, len(words))
	for i, w := range words {
		out[i] = types.Keyword{Text: w, Relevance: 1 - float64(i)*0.1}
	}
	return out
}
