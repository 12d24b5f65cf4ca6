package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/kirillkom/code-context-engine/internal/core/domain"
	"github.com/kirillkom/code-context-engine/internal/core/ports"
)

const defaultBaseK = 3

// RerankConfig holds the tunables of candidate reranking.
type RerankConfig struct {
	PoolSize       int
	ScoringTimeout time.Duration
	HighThreshold  float64
	MidThreshold   float64
	MidK           int
	LowK           int
	Weights        FusionWeights
}

func DefaultRerankConfig() RerankConfig {
	return RerankConfig{
		PoolSize:       12,
		ScoringTimeout: 20 * time.Second,
		HighThreshold:  0.55,
		MidThreshold:   0.40,
		MidK:           5,
		LowK:           8,
		Weights:        DefaultFusionWeights(),
	}
}

func (c RerankConfig) withDefaults() RerankConfig {
	def := DefaultRerankConfig()
	if c.PoolSize <= 0 {
		c.PoolSize = def.PoolSize
	}
	if c.ScoringTimeout <= 0 {
		c.ScoringTimeout = def.ScoringTimeout
	}
	if c.HighThreshold <= 0 {
		c.HighThreshold = def.HighThreshold
	}
	if c.MidThreshold <= 0 || c.MidThreshold > c.HighThreshold {
		c.MidThreshold = def.MidThreshold
	}
	if c.MidK <= 0 {
		c.MidK = def.MidK
	}
	if c.LowK <= 0 {
		c.LowK = def.LowK
	}
	c.Weights = c.Weights.normalized()
	return c
}

// Reranker orders retrieved candidates by fused similarity and model relevance.
type Reranker struct {
	scorer ports.RelevanceScorer
	cfg    RerankConfig
	logger *slog.Logger
}

func NewReranker(scorer ports.RelevanceScorer, cfg RerankConfig, logger *slog.Logger) *Reranker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reranker{
		scorer: scorer,
		cfg:    cfg.withDefaults(),
		logger: logger,
	}
}

// Rerank never fails because of the scorer. Dimension mismatches and
// candidates without vectors are returned as errors.
func (r *Reranker) Rerank(ctx context.Context, query string, queryVector []float32, candidates []domain.Candidate, baseK int) (domain.RankedSet, error) {
	if baseK <= 0 {
		baseK = defaultBaseK
	}
	if len(candidates) == 0 {
		return domain.RankedSet{Candidates: []domain.Candidate{}}, nil
	}

	ranked := make([]domain.Candidate, len(candidates))
	copy(ranked, candidates)

	vectors := make([][]float32, len(ranked))
	for i := range ranked {
		if err := ranked[i].Validate(); err != nil {
			return domain.RankedSet{}, fmt.Errorf("rerank: %w", err)
		}
		vectors[i] = ranked[i].Vector
	}

	similarities, err := CosineSimilarityBatch(queryVector, vectors)
	if err != nil {
		return domain.RankedSet{}, fmt.Errorf("rerank: %w", err)
	}
	for i := range ranked {
		ranked[i].Similarity = similarities[i]
		ranked[i].Relevance = 0
		ranked[i].Scored = false
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Similarity > ranked[j].Similarity
	})

	poolSize := min(r.cfg.PoolSize, len(ranked))
	pool := ranked[:poolSize]
	degraded := false
	scores, err := r.scorePool(ctx, query, pool)
	if err != nil {
		degraded = true
		r.logger.Warn("rerank_degraded",
			"pool_size", poolSize,
			"error", err.Error(),
		)
	} else {
		for i := range pool {
			pool[i].Relevance = scores[i]
			pool[i].Scored = true
		}
	}

	for i := range ranked {
		ranked[i].FusedScore = Fuse(ranked[i].Similarity, ranked[i].Relevance, r.cfg.Weights)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].FusedScore > ranked[j].FusedScore
	})

	top := ranked[0].FusedScore
	finalK := r.ResolveFinalK(top, baseK)
	return domain.RankedSet{
		Candidates: ranked[:min(finalK, len(ranked))],
		FinalK:     finalK,
		TopScore:   top,
		PoolSize:   poolSize,
		Total:      len(ranked),
		Degraded:   degraded,
	}, nil
}

// ResolveFinalK widens the result when the best match is weak.
func (r *Reranker) ResolveFinalK(top float64, baseK int) int {
	if baseK <= 0 {
		baseK = defaultBaseK
	}
	switch {
	case top >= r.cfg.HighThreshold:
		return baseK
	case top >= r.cfg.MidThreshold:
		return r.cfg.MidK
	default:
		return r.cfg.LowK
	}
}

// scorePool makes exactly one bounded scoring call for the whole pool.
func (r *Reranker) scorePool(ctx context.Context, query string, pool []domain.Candidate) ([]float64, error) {
	if r.scorer == nil {
		return nil, domain.WrapError(domain.ErrScoringUnavailable, "score pool", fmt.Errorf("no relevance scorer configured"))
	}

	texts := make([]string, len(pool))
	for i := range pool {
		texts[i] = pool[i].Text
	}

	scoreCtx, cancel := context.WithTimeout(ctx, r.cfg.ScoringTimeout)
	defer cancel()

	raw, err := r.scorer.ScoreBatch(scoreCtx, query, texts)
	if err != nil {
		return nil, domain.WrapError(domain.ErrScoringUnavailable, "score pool", err)
	}
	return ParseRelevanceScores(raw, len(pool))
}
