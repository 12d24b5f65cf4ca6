package usecase

import "math"

// FusionWeights blends similarity and relevance into one ordering scalar.
type FusionWeights struct {
	Similarity float64
	Relevance  float64
}

func DefaultFusionWeights() FusionWeights {
	return FusionWeights{Similarity: 0.7, Relevance: 0.3}
}

func (w FusionWeights) normalized() FusionWeights {
	if w.Similarity < 0 || w.Relevance < 0 || w.Similarity+w.Relevance <= 0 ||
		math.IsNaN(w.Similarity) || math.IsNaN(w.Relevance) {
		return DefaultFusionWeights()
	}
	return w
}

// Fuse rescales similarity from [-1,1] to [0,1] and returns the clamped weighted sum.
func Fuse(similarity, relevance float64, weights FusionWeights) float64 {
	w := weights.normalized()
	if math.IsNaN(similarity) {
		similarity = -1
	}
	if math.IsNaN(relevance) {
		relevance = 0
	}
	s := clamp((similarity+1)/2, 0, 1)
	r := clamp(relevance, 0, 1)
	return clamp(w.Similarity*s+w.Relevance*r, 0, 1)
}
