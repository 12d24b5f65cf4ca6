package usecase

import (
	"math"
	"testing"

	"github.com/kirillkom/code-context-engine/internal/core/domain"
)

func TestCosineSimilarityIdentityAndOpposite(t *testing.T) {
	v := []float32{0.3, -1.2, 4.5, 0.01}
	neg := make([]float32, len(v))
	for i := range v {
		neg[i] = -v[i]
	}

	same, err := CosineSimilarity(v, v)
	if err != nil {
		t.Fatalf("CosineSimilarity() error = %v", err)
	}
	if math.Abs(same-1) > 1e-9 {
		t.Fatalf("expected similarity(v, v) = 1, got %f", same)
	}

	opposite, err := CosineSimilarity(v, neg)
	if err != nil {
		t.Fatalf("CosineSimilarity() error = %v", err)
	}
	if math.Abs(opposite+1) > 1e-9 {
		t.Fatalf("expected similarity(v, -v) = -1, got %f", opposite)
	}
}

func TestCosineSimilarityBatchZeroNormYieldsMinimum(t *testing.T) {
	scores, err := CosineSimilarityBatch([]float32{1, 0}, [][]float32{{0, 0}, {1, 0}, {0, 1}})
	if err != nil {
		t.Fatalf("CosineSimilarityBatch() error = %v", err)
	}
	want := []float64{-1, 1, 0}
	for i := range want {
		if math.Abs(scores[i]-want[i]) > 1e-9 {
			t.Fatalf("score[%d] = %f, want %f", i, scores[i], want[i])
		}
	}

	zeroQuery, err := CosineSimilarityBatch([]float32{0, 0}, [][]float32{{1, 0}})
	if err != nil {
		t.Fatalf("CosineSimilarityBatch() error = %v", err)
	}
	if zeroQuery[0] != -1 {
		t.Fatalf("expected -1 for zero-norm query, got %f", zeroQuery[0])
	}
}

func TestCosineSimilarityBatchDimensionMismatch(t *testing.T) {
	_, err := CosineSimilarityBatch([]float32{1, 0, 0}, [][]float32{{1, 0, 0}, {1, 0}})
	if err == nil {
		t.Fatalf("expected dimension mismatch error")
	}
	if !domain.IsKind(err, domain.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}

	if _, err := CosineSimilarity([]float32{1}, []float32{1, 2}); !domain.IsKind(err, domain.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}
