package recommendation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-country-recommender/internal/types"
)

func TestRank(t *testing.T) {
	index := NewEmbeddingIndex([]types.CountryEmbedding{
		{CountryName: "France", ISO3Code: "FRA", Vector: []float32{0, 0, 1}},
		{CountryName: "Nepal", ISO3Code: "NPL", Vector: []float32{0.9, 0.1, 0}},
		{CountryName: "Switzerland", ISO3Code: "CHE", Vector: []float32{0.5, 0.5, 0}},
		{CountryName: "Chad", ISO3Code: "TCD", Vector: []float32{-1, 0, 0}},
	})

	t.Run("top three by score", func(t *testing.T) {
		got := Rank([]float32{1, 0, 0}, index, 3)
		require.Len(t, got, 3)
		assert.Equal(t, "Nepal", got[0].CountryName)
		assert.Equal(t, "Switzerland", got[1].CountryName)
		assert.Equal(t, "France", got[2].CountryName)
		assert.Equal(t, "NPL", got[0].ISO3Code)
	})

	t.Run("scores are bounded and non-increasing", func(t *testing.T) {
		got := Rank([]float32{0.3, -0.2, 0.8}, index, 10)
		require.Len(t, got, 4)
		for i, m := range got {
			assert.GreaterOrEqual(t, m.SimilarityScore, -1.0)
			assert.LessOrEqual(t, m.SimilarityScore, 1.0)
			if i > 0 {
				assert.GreaterOrEqual(t, got[i-1].SimilarityScore, m.SimilarityScore)
			}
		}
	})

	t.Run("fewer entries than topN", func(t *testing.T) {
		small := NewEmbeddingIndex([]types.CountryEmbedding{
			{CountryName: "Iceland", ISO3Code: "ISL", Vector: []float32{1, 0}},
			{CountryName: "Mauritania", ISO3Code: "MRT", Vector: []float32{0, 1}},
		})
		got := Rank([]float32{1, 1}, small, 3)
		assert.Len(t, got, 2)
	})

	t.Run("ties break by iso3 then name", func(t *testing.T) {
		tied := NewEmbeddingIndex([]types.CountryEmbedding{
			{CountryName: "Switzerland", ISO3Code: "CHE", Vector: []float32{1, 0}},
			{CountryName: "Austria", ISO3Code: "AUT", Vector: []float32{1, 0}},
			{CountryName: "Bhutan", ISO3Code: "BTN", Vector: []float32{1, 0}},
		})
		for range 5 {
			got := Rank([]float32{2, 0}, tied, 3)
			assert.Equal(t, []string{"Austria", "Bhutan", "Switzerland"},
				[]string{got[0].CountryName, got[1].CountryName, got[2].CountryName})
		}
	})

	t.Run("zero user vector scores zero", func(t *testing.T) {
		got := Rank([]float32{0, 0, 0}, index, 4)
		for _, m := range got {
			assert.Equal(t, 0.0, m.SimilarityScore)
		}
		// All tied: ISO3 order.
		assert.Equal(t, "CHE", got[0].ISO3Code)
	})

	t.Run("empty index", func(t *testing.T) {
		assert.Empty(t, Rank([]float32{1}, NewEmbeddingIndex(nil), 3))
		assert.Empty(t, Rank([]float32{1}, nil, 3))
	})

	t.Run("non-positive topN uses the default", func(t *testing.T) {
		assert.Len(t, Rank([]float32{1, 0, 0}, index, 0), DefaultTopN)
	})
}
