package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirillkom/code-context-engine/internal/core/domain"
	"github.com/kirillkom/code-context-engine/internal/infrastructure/resilience"
)

func TestRelevanceScorerSendsDeterministicPrompt(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"response":" 0.9, 0.2 \n"}`))
	}))
	defer server.Close()

	scorer := NewRelevanceScorer(New(server.URL, "gen", "embed"))
	raw, err := scorer.ScoreBatch(context.Background(), "question?", []string{"chunk one", "chunk two"})
	if err != nil {
		t.Fatalf("ScoreBatch() error = %v", err)
	}
	if raw != "0.9, 0.2" {
		t.Fatalf("unexpected response %q", raw)
	}
	prompt, _ := payload["prompt"].(string)
	if !strings.Contains(prompt, "question?") || !strings.Contains(prompt, "[2]\nchunk two") {
		t.Fatalf("unexpected prompt: %s", prompt)
	}
	options, _ := payload["options"].(map[string]any)
	if options["temperature"] != float64(0) {
		t.Fatalf("expected temperature 0, got %v", options["temperature"])
	}
	if payload["model"] != "gen" || payload["stream"] != false {
		t.Fatalf("unexpected payload %v", payload)
	}
}

func TestEmbedQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"embeddings":[[0.1,0.2,0.3]]}`))
	}))
	defer server.Close()

	vector, err := NewEmbedder(New(server.URL, "gen", "embed")).EmbedQuery(context.Background(), "hello")
	if err != nil {
		t.Fatalf("EmbedQuery() error = %v", err)
	}
	if len(vector) != 3 {
		t.Fatalf("expected 3 dimensions, got %d", len(vector))
	}
}

func TestEmbedIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "gen", "embed"))
	_, err := embedder.Embed(context.Background(), []string{"hello"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected response body in error, got %v", err)
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected 502 to be temporary, got %v", err)
	}
}

func TestScoreExecutorDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cfg := resilience.Config{
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
	}
	client := NewWithOptions(server.URL, "gen", "embed", Options{
		EmbedExecutor: resilience.NewExecutor(cfg),
		ScoreExecutor: resilience.NewExecutor(cfg.SingleAttempt()),
	})

	if _, err := NewRelevanceScorer(client).ScoreBatch(context.Background(), "q", []string{"a"}); err == nil {
		t.Fatalf("expected scoring error")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one scoring attempt, got %d", calls.Load())
	}

	calls.Store(0)
	if _, err := NewEmbedder(client).EmbedQuery(context.Background(), "q"); err == nil {
		t.Fatalf("expected embed error")
	}
	if calls.Load() != 3 {
		t.Fatalf("expected embed to retry 3 times, got %d", calls.Load())
	}
}
