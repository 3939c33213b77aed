package recommendation

import (
	"sort"

	"github.com/FACorreiaa/go-country-recommender/internal/types"
	"github.com/FACorreiaa/go-country-recommender/internal/vector"
)

const DefaultTopN = 3

// Rank scores every index entry against userEmbedding and returns the best topN,
// highest score first. Equal scores are ordered by ISO3 code, then by name.
func Rank(userEmbedding []float32, index *EmbeddingIndex, topN int) []types.RankedMatch {
	if topN <= 0 {
		topN = DefaultTopN
	}
	entries := index.Entries()
	matches := make([]types.RankedMatch, 0, len(entries))
	for _, e := range entries {
		matches = append(matches, types.RankedMatch{
			CountryName:     e.CountryName,
			ISO3Code:        e.ISO3Code,
			SimilarityScore: vector.CosineSimilarity(userEmbedding, e.Vector),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.SimilarityScore != b.SimilarityScore {
			return a.SimilarityScore > b.SimilarityScore
		}
		if a.ISO3Code != b.ISO3Code {
			return a.ISO3Code < b.ISO3Code
		}
		return a.CountryName < b.CountryName
	})

	if len(matches) > topN {
		matches = matches[:topN]
	}
	return matches
}
