package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/code-context-engine/internal/core/domain"
)

type fakeQueryEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeQueryEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

type fakeVectorSearcher struct {
	candidates []domain.Candidate
	err        error
	limit      int
}

func (f *fakeVectorSearcher) Search(_ context.Context, _ []float32, limit int) ([]domain.Candidate, error) {
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.candidates, nil
}

type fakePacketPublisher struct {
	packets []*domain.ContextPacket
	err     error
}

func (f *fakePacketPublisher) PublishPacketAssembled(_ context.Context, packet *domain.ContextPacket) error {
	f.packets = append(f.packets, packet)
	return f.err
}

type fakePipelineObserver struct {
	statuses []domain.PacketStatus
}

func (f *fakePipelineObserver) ObservePacket(packet *domain.ContextPacket, _ time.Duration) {
	f.statuses = append(f.statuses, packet.Status)
}

func newTestPipeline(embedder *fakeQueryEmbedder, searcher *fakeVectorSearcher, scorer *fakeRelevanceScorer, opts PipelineOptions) *ContextPipeline {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if opts.Now == nil {
		opts.Now = func() time.Time { return fixed }
	}
	if opts.NewID == nil {
		opts.NewID = func() string { return "packet-1" }
	}
	return NewContextPipelineWithOptions(
		embedder,
		searcher,
		NewReranker(scorer, DefaultRerankConfig(), nil),
		NewAssembler(nil, nil, DefaultAssemblerConfig()),
		PipelineConfig{},
		opts,
	)
}

func TestBuildContextNoCandidates(t *testing.T) {
	searcher := &fakeVectorSearcher{}
	scorer := &fakeRelevanceScorer{}
	observer := &fakePipelineObserver{}
	pipeline := newTestPipeline(&fakeQueryEmbedder{vector: []float32{1, 0}}, searcher, scorer, PipelineOptions{Observer: observer})

	packet, err := pipeline.BuildContext(context.Background(), "where is main", domain.QueryOptions{})
	if err != nil {
		t.Fatalf("BuildContext() error = %v", err)
	}
	if packet.Status != domain.PacketStatusNoResults || packet.ChunksUsed != 0 || packet.Context != "" {
		t.Fatalf("expected empty no_results packet, got %+v", packet)
	}
	if scorer.calls != 0 {
		t.Fatalf("expected scorer to be skipped")
	}
	if searcher.limit != 40 {
		t.Fatalf("expected default retrieve k 40, got %d", searcher.limit)
	}
	if packet.ID != "packet-1" || packet.TokensBudget != 2380 {
		t.Fatalf("expected id and budget to be set, got %+v", packet)
	}
	if len(observer.statuses) != 1 || observer.statuses[0] != domain.PacketStatusNoResults {
		t.Fatalf("expected observer to see no_results, got %v", observer.statuses)
	}
}

func TestBuildContextRetrievalFailures(t *testing.T) {
	cases := map[string]struct {
		embedder *fakeQueryEmbedder
		searcher *fakeVectorSearcher
		wantMsg  string
	}{
		"embed":  {embedder: &fakeQueryEmbedder{err: errors.New("ollama down")}, searcher: &fakeVectorSearcher{}, wantMsg: "embed query"},
		"search": {embedder: &fakeQueryEmbedder{vector: []float32{1, 0}}, searcher: &fakeVectorSearcher{err: errors.New("qdrant down")}, wantMsg: "search vector store"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			packet, err := newTestPipeline(tc.embedder, tc.searcher, &fakeRelevanceScorer{}, PipelineOptions{}).
				BuildContext(context.Background(), "q", domain.QueryOptions{})
			if err != nil {
				t.Fatalf("BuildContext() error = %v", err)
			}
			if packet.Status != domain.PacketStatusError {
				t.Fatalf("expected error status, got %s", packet.Status)
			}
			if packet.Context != "" || packet.ChunksUsed != 0 {
				t.Fatalf("expected no partial context, got %+v", packet)
			}
			if !strings.Contains(packet.Error, tc.wantMsg) || !strings.Contains(packet.Error, domain.ErrRetrievalFailed.Error()) {
				t.Fatalf("unexpected error message %q", packet.Error)
			}
		})
	}
}

func TestBuildContextEndToEnd(t *testing.T) {
	searcher := &fakeVectorSearcher{candidates: makeCandidates(15, 0.92)}
	scorer := &fakeRelevanceScorer{response: repeatScores("0.8", 12)}
	publisher := &fakePacketPublisher{}
	pipeline := newTestPipeline(&fakeQueryEmbedder{vector: []float32{1, 0}}, searcher, scorer, PipelineOptions{Publisher: publisher})

	packet, err := pipeline.BuildContext(context.Background(), "where is the handler", domain.QueryOptions{})
	if err != nil {
		t.Fatalf("BuildContext() error = %v", err)
	}
	if packet.Status != domain.PacketStatusSuccess {
		t.Fatalf("expected success, got %s (%s)", packet.Status, packet.Error)
	}
	d := packet.Diagnostics
	if d.CandidatesRetrieved != 15 || d.CandidatesScored != 12 {
		t.Fatalf("unexpected diagnostics %+v", d)
	}
	if d.FinalK != 3 || packet.ChunksUsed != min(d.FinalK, 15) {
		t.Fatalf("expected %d blocks, got %d (final_k=%d)", min(d.FinalK, 15), packet.ChunksUsed, d.FinalK)
	}
	if d.ScoringDegraded {
		t.Fatalf("expected scoring to succeed")
	}
	if len(publisher.packets) != 1 || publisher.packets[0].ID != "packet-1" {
		t.Fatalf("expected packet to be published once")
	}
	if !packet.CreatedAt.Equal(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Fatalf("unexpected created_at %v", packet.CreatedAt)
	}
}

func TestBuildContextHonoursBaseK(t *testing.T) {
	searcher := &fakeVectorSearcher{candidates: makeCandidates(10, 0.95)}
	scorer := &fakeRelevanceScorer{response: repeatScores("0.9", 10)}
	pipeline := newTestPipeline(&fakeQueryEmbedder{vector: []float32{1, 0}}, searcher, scorer, PipelineOptions{})

	packet, err := pipeline.BuildContext(context.Background(), "q", domain.QueryOptions{BaseK: 6})
	if err != nil {
		t.Fatalf("BuildContext() error = %v", err)
	}
	if packet.Diagnostics.FinalK != 6 || packet.ChunksUsed != 6 {
		t.Fatalf("expected 6 blocks, got final_k=%d chunks=%d", packet.Diagnostics.FinalK, packet.ChunksUsed)
	}
}

func TestBuildContextDegradedScoringStillSucceeds(t *testing.T) {
	searcher := &fakeVectorSearcher{candidates: makeCandidates(5, 0.9)}
	scorer := &fakeRelevanceScorer{err: errors.New("timeout")}
	publisher := &fakePacketPublisher{err: errors.New("nats unavailable")}
	pipeline := newTestPipeline(&fakeQueryEmbedder{vector: []float32{1, 0}}, searcher, scorer, PipelineOptions{Publisher: publisher})

	packet, err := pipeline.BuildContext(context.Background(), "q", domain.QueryOptions{})
	if err != nil {
		t.Fatalf("BuildContext() error = %v", err)
	}
	if packet.Status != domain.PacketStatusSuccess || !packet.Diagnostics.ScoringDegraded {
		t.Fatalf("expected degraded success, got %+v", packet)
	}
}

func TestBuildContextContractErrors(t *testing.T) {
	pipeline := newTestPipeline(&fakeQueryEmbedder{vector: []float32{1, 0, 0}}, &fakeVectorSearcher{candidates: makeCandidates(3, 0.9)}, &fakeRelevanceScorer{}, PipelineOptions{})
	if _, err := pipeline.BuildContext(context.Background(), "q", domain.QueryOptions{}); !domain.IsKind(err, domain.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
	if _, err := pipeline.BuildContext(context.Background(), "  \n", domain.QueryOptions{}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank query, got %v", err)
	}
}

func TestBuildContextCandidateWithoutVector(t *testing.T) {
	candidates := makeCandidates(3, 0.9)
	candidates[1].Vector = nil
	pipeline := newTestPipeline(&fakeQueryEmbedder{vector: []float32{1, 0}}, &fakeVectorSearcher{candidates: candidates}, &fakeRelevanceScorer{}, PipelineOptions{})

	packet, err := pipeline.BuildContext(context.Background(), "where is auth", domain.QueryOptions{})
	if packet != nil {
		t.Fatalf("expected no packet, got %+v", packet)
	}
	if !domain.IsKind(err, domain.ErrCandidateContract) {
		t.Fatalf("expected ErrCandidateContract, got %v", err)
	}
	if domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("candidate contract error must not be reported as invalid input: %v", err)
	}
}
