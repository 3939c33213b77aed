// Package vector holds the similarity math shared by ranking and keyword extraction.
package vector

import "math"

// CosineSimilarity computes the cosine similarity between two vectors.
// Mismatched lengths and zero vectors score 0; the result is clamped to [-1, 1].
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	switch {
	case sim > 1:
		return 1
	case sim < -1:
		return -1
	case math.IsNaN(sim):
		return 0
	}
	return sim
}
