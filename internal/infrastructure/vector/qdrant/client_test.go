package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/code-context-engine/internal/core/domain"
)

func TestSearchMapsPayloadAndVectors(t *testing.T) {
	var request map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/collections/code/points/search" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"result":[
			{"id":"p-1","score":0.9,"vector":[0.1,0.2],"payload":{"chunk_text":"func A() {}","file_path":"a.go","language":"go","line_start":3,"line_end":9}},
			{"id":7,"score":0.5,"vector":[0.3,0.4],"payload":{"id":"custom","text":"def b(): pass","file":"b.py","lang":"python","lines":"12-48"}},
			{"id":8,"score":0.1,"vector":[0.5,0.6],"payload":{"text":"notes","file":"c.md","lines":"oops"}}
		]}`))
	}))
	defer server.Close()

	got, err := New(server.URL, "code").Search(context.Background(), []float32{1, 0}, 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if request["with_vector"] != true || request["limit"] != float64(5) {
		t.Fatalf("unexpected request %v", request)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(got))
	}
	want := domain.SourceLocation{File: "a.go", StartLine: 3, EndLine: 9}
	if got[0].ID != "p-1" || got[0].Text != "func A() {}" || got[0].Location != want || got[0].Language != "go" || len(got[0].Vector) != 2 {
		t.Fatalf("unexpected first candidate %+v", got[0])
	}
	if got[1].ID != "custom" || got[1].Location.StartLine != 12 || got[1].Location.EndLine != 48 || got[1].Language != "python" {
		t.Fatalf("unexpected second candidate %+v", got[1])
	}
	if got[2].ID != "8" || got[2].Location.HasRange() {
		t.Fatalf("expected unknown range for unparsable lines, got %+v", got[2])
	}
}

func TestSearchNamedVector(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var request struct {
			Vector struct {
				Name string `json:"name"`
			} `json:"vector"`
		}
		_ = json.NewDecoder(r.Body).Decode(&request)
		if request.Vector.Name != "code" {
			t.Fatalf("expected named vector request, got %q", request.Vector.Name)
		}
		_, _ = w.Write([]byte(`{"result":[{"id":"p","vector":{"code":[1,2,3],"text":[4]},"payload":{"text":"x"}}]}`))
	}))
	defer server.Close()

	got, err := NewWithOptions(server.URL, "repo", Options{VectorName: "code"}).Search(context.Background(), []float32{1, 0, 0}, 1)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 1 || len(got[0].Vector) != 3 {
		t.Fatalf("expected named vector to be selected, got %+v", got)
	}
}

func TestSearchMissingCollectionIsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"status":{"error":"Not found: Collection code doesn't exist!"}}`, http.StatusNotFound)
	}))
	defer server.Close()

	got, err := New(server.URL, "code").Search(context.Background(), []float32{1}, 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %d", len(got))
	}
}

func TestSearchServerErrorIsTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := New(server.URL, "code").Search(context.Background(), []float32{1}, 5)
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected error with body, got %v", err)
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
}
