package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/code-context-engine/internal/core/domain"
	"github.com/kirillkom/code-context-engine/internal/core/ports"
)

const defaultRetrieveK = 40

type PipelineConfig struct {
	RetrieveK int
	BaseK     int
}

// PipelineOptions carries the optional collaborators of ContextPipeline.
type PipelineOptions struct {
	Publisher ports.PacketPublisher
	Observer  ports.PipelineObserver
	Logger    *slog.Logger
	Now       func() time.Time
	NewID     func() string
}

// ContextPipeline sequences retrieval, reranking and assembly for one query.
// It holds no per-query state and is safe for concurrent use.
type ContextPipeline struct {
	embedder  ports.QueryEmbedder
	searcher  ports.VectorSearcher
	reranker  *Reranker
	assembler *Assembler
	publisher ports.PacketPublisher
	observer  ports.PipelineObserver
	logger    *slog.Logger
	cfg       PipelineConfig
	now       func() time.Time
	newID     func() string
}

func NewContextPipeline(
	embedder ports.QueryEmbedder,
	searcher ports.VectorSearcher,
	reranker *Reranker,
	assembler *Assembler,
	cfg PipelineConfig,
) *ContextPipeline {
	return NewContextPipelineWithOptions(embedder, searcher, reranker, assembler, cfg, PipelineOptions{})
}

func NewContextPipelineWithOptions(
	embedder ports.QueryEmbedder,
	searcher ports.VectorSearcher,
	reranker *Reranker,
	assembler *Assembler,
	cfg PipelineConfig,
	opts PipelineOptions,
) *ContextPipeline {
	if cfg.RetrieveK <= 0 {
		cfg.RetrieveK = defaultRetrieveK
	}
	if cfg.BaseK <= 0 {
		cfg.BaseK = defaultBaseK
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &ContextPipeline{
		embedder:  embedder,
		searcher:  searcher,
		reranker:  reranker,
		assembler: assembler,
		publisher: opts.Publisher,
		observer:  opts.Observer,
		logger:    opts.Logger,
		cfg:       cfg,
		now:       opts.Now,
		newID:     opts.NewID,
	}
}

// BuildContext returns a packet for every collaborator outcome. Only invalid
// input and candidate contract violations are returned as errors.
func (p *ContextPipeline) BuildContext(ctx context.Context, query string, opts domain.QueryOptions) (*domain.ContextPacket, error) {
	if err := domain.ValidateQuery(query); err != nil {
		return nil, err
	}
	started := p.now()
	baseK := opts.BaseK
	if baseK <= 0 {
		baseK = p.cfg.BaseK
	}

	packet, err := p.build(ctx, query, baseK)
	if err != nil {
		return nil, err
	}

	packet.ID = p.newID()
	packet.CreatedAt = p.now()
	packet.TokensBudget = p.assembler.Budget()
	duration := packet.CreatedAt.Sub(started)

	p.logger.Info("context_built",
		"packet_id", packet.ID,
		"status", packet.Status,
		"chunks_used", packet.ChunksUsed,
		"candidates_retrieved", packet.Diagnostics.CandidatesRetrieved,
		"final_k", packet.Diagnostics.FinalK,
		"scoring_degraded", packet.Diagnostics.ScoringDegraded,
		"tokens_context", packet.TokensContext,
		"duration_ms", duration.Milliseconds(),
	)
	if p.observer != nil {
		p.observer.ObservePacket(packet, duration)
	}
	if p.publisher != nil {
		if err := p.publisher.PublishPacketAssembled(ctx, packet); err != nil {
			p.logger.Warn("packet_publish_failed", "packet_id", packet.ID, "error", err.Error())
		}
	}
	return packet, nil
}

func (p *ContextPipeline) build(ctx context.Context, query string, baseK int) (*domain.ContextPacket, error) {
	queryVector, err := p.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return p.failedPacket(query, domain.WrapError(domain.ErrRetrievalFailed, "embed query", err)), nil
	}

	candidates, err := p.searcher.Search(ctx, queryVector, p.cfg.RetrieveK)
	if err != nil {
		return p.failedPacket(query, domain.WrapError(domain.ErrRetrievalFailed, "search vector store", err)), nil
	}
	if len(candidates) == 0 {
		p.logger.Info("retrieval_empty", "error", domain.ErrRetrievalEmpty.Error())
		return domain.NewEmptyPacket(domain.PacketStatusNoResults, query), nil
	}

	ranked, err := p.reranker.Rerank(ctx, query, queryVector, candidates, baseK)
	if err != nil {
		return nil, fmt.Errorf("build context: %w", err)
	}

	packet := p.assembler.Assemble(query, ranked)
	packet.Diagnostics.CandidatesRetrieved = len(candidates)
	packet.Diagnostics.CandidatesScored = ranked.PoolSize
	packet.Diagnostics.FinalK = ranked.FinalK
	packet.Diagnostics.TopScore = ranked.TopScore
	packet.Diagnostics.ScoringDegraded = ranked.Degraded
	return packet, nil
}

func (p *ContextPipeline) failedPacket(query string, err error) *domain.ContextPacket {
	p.logger.Error("retrieval_failed", "error", err.Error())
	packet := domain.NewEmptyPacket(domain.PacketStatusError, query)
	packet.Error = err.Error()
	return packet
}
