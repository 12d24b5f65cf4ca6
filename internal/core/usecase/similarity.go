package usecase

import (
	"fmt"
	"math"

	"github.com/kirillkom/code-context-engine/internal/core/domain"
)

const minSimilarity = -1.0

// CosineSimilarity returns -1 for zero-norm input instead of failing.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, domain.WrapError(domain.ErrDimensionMismatch, "cosine similarity", fmt.Errorf("query has %d dimensions, candidate has %d", len(a), len(b)))
	}
	return cosine(a, b, norm(a)), nil
}

// CosineSimilarityBatch scores every vector against query, preserving order.
func CosineSimilarityBatch(query []float32, vectors [][]float32) ([]float64, error) {
	queryNorm := norm(query)
	out := make([]float64, len(vectors))
	for i, vector := range vectors {
		if len(vector) != len(query) {
			return nil, domain.WrapError(domain.ErrDimensionMismatch, "cosine similarity batch", fmt.Errorf("vector %d has %d dimensions, query has %d", i, len(vector), len(query)))
		}
		out[i] = cosine(query, vector, queryNorm)
	}
	return out, nil
}

func cosine(query, vector []float32, queryNorm float64) float64 {
	vectorNorm := norm(vector)
	if queryNorm == 0 || vectorNorm == 0 {
		return minSimilarity
	}
	var dot float64
	for i := range query {
		dot += float64(query[i]) * float64(vector[i])
	}
	return clamp(dot/(queryNorm*vectorNorm), -1, 1)
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
