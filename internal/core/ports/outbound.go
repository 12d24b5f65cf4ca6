package ports

import (
	"context"
	"time"

	"github.com/kirillkom/code-context-engine/internal/core/domain"
)

// QueryEmbedder builds the query vector used for retrieval and similarity.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorSearcher returns approximate nearest neighbours ordered by increasing distance.
// An empty collection yields an empty slice, not an error.
type VectorSearcher interface {
	Search(ctx context.Context, queryVector []float32, limit int) ([]domain.Candidate, error)
}

// RelevanceScorer asks an external model to rate every text against the query.
// The response is free-form and parsed by the caller.
type RelevanceScorer interface {
	ScoreBatch(ctx context.Context, query string, texts []string) (string, error)
}

// TokenEstimator must be deterministic and monotonic in text length.
type TokenEstimator interface {
	Estimate(text string) int
}

// TextCleaner applies lossy, best-effort cleanup used for token economy only.
type TextCleaner interface {
	Clean(text, language string) string
}

// PacketPublisher emits assembled packets for asynchronous consumers.
type PacketPublisher interface {
	PublishPacketAssembled(ctx context.Context, packet *domain.ContextPacket) error
}

// PacketArchive persists assembled packets.
type PacketArchive interface {
	Save(ctx context.Context, packet *domain.ContextPacket) error
	GetByID(ctx context.Context, id string) (*domain.ContextPacket, error)
	Last(ctx context.Context) (*domain.ContextPacket, error)
}

// PipelineObserver records per-packet outcomes.
type PipelineObserver interface {
	ObservePacket(packet *domain.ContextPacket, duration time.Duration)
}
