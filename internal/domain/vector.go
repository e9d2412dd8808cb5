package domain

import "math"

// DefaultDimensions is the corpus dimensionality of the reference deployment
// (all-mpnet-base-v2 style 768-dim embeddings).
const DefaultDimensions = 768

// CosineSimilarity returns the cosine of the angle between a and b in [-1, 1].
// Returns 0 for mismatched lengths or zero-magnitude vectors.
// Accumulates in float64 so repeated evaluation is stable.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		av := float64(a[i])
		bv := float64(b[i])
		dot += av * bv
		normA += av * av
		normB += bv * bv
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// CosineDistance returns 1 - CosineSimilarity(a, b), in [0, 2].
// 0 means identical direction, 2 means opposite. Lower is better.
func CosineDistance(a, b []float32) float64 {
	return 1 - CosineSimilarity(a, b)
}
