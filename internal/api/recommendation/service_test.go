package recommendation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-country-recommender/internal/types"
)

type serviceFixture struct {
	svc        *Service
	translator *MockTranslator
	extractor  *MockExtractor
	generator  *MockGenerator
	history    *MockHistory
}

func newServiceFixture(t *testing.T, mode types.NarrativeMode) serviceFixture {
	t.Helper()

	countries := staticCountries{
		{Name: "France", ISO3Code: "FRA"},
		{Name: "Nepal", ISO3Code: "NPL"},
		{Name: "Switzerland", ISO3Code: "CHE"},
	}
	descriptions := staticDescriptions{
		"France":      "Wine, museums and beaches.",
		"Nepal":       "Himalayan treks and mountain villages.",
		"Switzerland": "Alpine lakes and rail journeys.",
	}
	emb := &stubEmbedder{vectors: map[string][]float32{
		"Wine, museums and beaches.":             {0, 0, 1},
		"Himalayan treks and mountain villages.": {0.9, 0.1, 0},
		"Alpine lakes and rail journeys.":        {0.5, 0.5, 0.1},
		"mountains and hiking":                   {1, 0, 0},
	}}

	f := serviceFixture{
		translator: new(MockTranslator),
		extractor:  new(MockExtractor),
		generator:  new(MockGenerator),
		history:    new(MockHistory),
	}
	analyzer := NewAnalyzer(f.translator, f.extractor, emb, AnalyzerConfig{}, discardLogger())
	composer := NewComposer(f.generator, f.translator, ComposerConfig{Mode: mode, Concurrency: 3}, nil, discardLogger())

	svc, err := NewService(context.Background(), Dependencies{
		Countries:    countries,
		Descriptions: descriptions,
		History:      f.history,
		Embedder:     emb,
		Analyzer:     analyzer,
		Composer:     composer,
	}, Config{TopN: 3, Index: IndexOptions{Excluded: []string{"Antarctica"}}}, discardLogger())
	require.NoError(t, err)
	f.svc = svc
	return f
}

func TestService_GenerateRecommendations_NepalScenario(t *testing.T) {
	f := newServiceFixture(t, types.NarrativeTemplate)
	ctx := context.Background()

	f.translator.On("Translate", mock.Anything, "горы и пешие прогулки", "ru", "en").Return("mountains and hiking", nil).Once()
	f.extractor.On("ExtractKeywords", mock.Anything, "mountains and hiking", 10).
		Return(keywordsOf("mountains", "hiking"), nil).Once()
	f.history.On("Save", mock.Anything, "user-1", types.UserHistory{
		PreferredCountries:  []string{"mountains", "hiking"},
		PastRecommendations: []string{"Nepal", "Switzerland", "France"},
	}).Return(nil).Once()

	out, err := f.svc.GenerateRecommendations(ctx, "user-1", "горы и пешие прогулки")
	require.NoError(t, err)

	assert.Contains(t, out, "1. Nepal (совпадение:")
	assert.Less(t, strings.Index(out, "1. Nepal"), strings.Index(out, "2. Switzerland"))
	assert.Less(t, strings.Index(out, "2. Switzerland"), strings.Index(out, "3. France"))

	blocks := strings.Split(strings.TrimPrefix(out, "Рекомендации для вашего путешествия:\n\n"), strings.Repeat("-", 50))
	blocks = blocks[:len(blocks)-1]
	require.Len(t, blocks, 3)
	for _, b := range blocks {
		assert.Contains(t, b, "Лучшее время")
	}

	f.history.AssertExpectations(t)
	f.generator.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_GenerateRecommendations_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("translation failure fails the request without touching history", func(t *testing.T) {
		f := newServiceFixture(t, types.NarrativeTemplate)
		f.translator.On("Translate", mock.Anything, "горы", "ru", "en").Return("", errors.New("503")).Once()

		out, err := f.svc.GenerateRecommendations(ctx, "user-1", "горы")
		assert.Empty(t, out)
		assert.ErrorIs(t, err, types.ErrTranslation)
		f.history.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("history save failure still returns the reply", func(t *testing.T) {
		f := newServiceFixture(t, types.NarrativeTemplate)
		f.translator.On("Translate", mock.Anything, "горы", "ru", "en").Return("mountains and hiking", nil).Once()
		f.extractor.On("ExtractKeywords", mock.Anything, "mountains and hiking", 10).Return(keywordsOf("mountains"), nil).Once()
		f.history.On("Save", mock.Anything, "user-2", mock.Anything).Return(errors.New("disk full")).Once()

		out, err := f.svc.GenerateRecommendations(ctx, "user-2", "горы")
		require.NoError(t, err)
		assert.Contains(t, out, "1. Nepal")
	})
}

func TestService_GeneratedModeWithFailingGenerator(t *testing.T) {
	f := newServiceFixture(t, types.NarrativeGenerated)
	ctx := context.Background()

	f.translator.On("Translate", mock.Anything, "горы", "ru", "en").Return("mountains and hiking", nil).Once()
	f.extractor.On("ExtractKeywords", mock.Anything, "mountains and hiking", 10).Return(keywordsOf("mountains", "hiking"), nil).Once()
	f.generator.On("Generate", mock.Anything, mock.Anything, 200).Return("", errors.New("quota")).Times(3)
	f.history.On("Save", mock.Anything, "u", mock.Anything).Return(nil).Once()

	out, err := f.svc.GenerateRecommendations(ctx, "u", "горы")
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(out, "идеально подходит для ваших предпочтений, таких как mountains, hiking."))
	f.generator.AssertExpectations(t)
}

func TestService_SharedAcrossUsers(t *testing.T) {
	f := newServiceFixture(t, types.NarrativeTemplate)
	ctx := context.Background()

	f.translator.On("Translate", mock.Anything, "горы", "ru", "en").Return("mountains and hiking", nil)
	f.extractor.On("ExtractKeywords", mock.Anything, "mountains and hiking", 10).Return(keywordsOf("mountains"), nil)
	f.history.On("Save", mock.Anything, "alice", mock.Anything).Return(nil).Once()
	f.history.On("Save", mock.Anything, "bob", mock.Anything).Return(nil).Once()

	a, err := f.svc.GenerateRecommendations(ctx, "alice", "горы")
	require.NoError(t, err)
	b, err := f.svc.GenerateRecommendations(ctx, "bob", "горы")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, 3, f.svc.Index().Len())
	f.history.AssertExpectations(t)
}

func TestNewService_IndexFailure(t *testing.T) {
	_, err := NewService(context.Background(), Dependencies{
		Countries:    staticCountries{{Name: "Nepal", ISO3Code: "NPL"}},
		Descriptions: staticDescriptions{"Nepal": "Mountains."},
		Embedder:     &stubEmbedder{err: errors.New("connection refused")},
	}, Config{}, discardLogger())
	assert.ErrorContains(t, err, "build embedding index")
}

func BenchmarkRank(b *testing.B) {
	entries := make([]types.CountryEmbedding, 250)
	for i := range entries {
		v := make([]float32, 384)
		for j := range v {
			v[j] = float32((i*31+j*17)%97) / 97
		}
		entries[i] = types.CountryEmbedding{CountryName: string(rune('A' + i%26)), Vector: v}
	}
	index := NewEmbeddingIndex(entries)
	user := entries[42].Vector

	b.ResetTimer()
	for range b.N {
		_ = Rank(user, index, 3)
	}
}
