package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/code-context-engine/internal/infrastructure/llm"
	"github.com/kirillkom/code-context-engine/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client

	embedExecutor *resilience.Executor
	scoreExecutor *resilience.Executor
}

type Options struct {
	HTTPClient    *http.Client
	EmbedExecutor *resilience.Executor
	// ScoreExecutor should be configured with a single attempt.
	ScoreExecutor *resilience.Executor
}

func New(baseURL, genModel, embedModel string) *Client {
	return NewWithOptions(baseURL, genModel, embedModel, Options{})
}

func NewWithOptions(baseURL, genModel, embedModel string, opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		genModel:      genModel,
		embedModel:    embedModel,
		httpClient:    httpClient,
		embedExecutor: opts.EmbedExecutor,
		scoreExecutor: opts.ScoreExecutor,
	}
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	request := map[string]any{
		"model": e.client.embedModel,
		"input": texts,
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	call := func(ctx context.Context) error {
		return e.client.postJSON(ctx, "/api/embed", request, &response, "embed")
	}
	if err := e.client.execute(ctx, e.client.embedExecutor, "ollama.embed", call); err != nil {
		return nil, err
	}
	if len(response.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama embed: expected %d embeddings, got %d", len(texts), len(response.Embeddings))
	}
	return response.Embeddings, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}

// RelevanceScorer asks the generation model for relevance scores in one call.
type RelevanceScorer struct {
	client *Client
}

func NewRelevanceScorer(client *Client) *RelevanceScorer {
	return &RelevanceScorer{client: client}
}

func (s *RelevanceScorer) ScoreBatch(ctx context.Context, query string, texts []string) (string, error) {
	if len(texts) == 0 {
		return "", nil
	}
	reqBody := map[string]any{
		"model":  s.client.genModel,
		"prompt": llm.BuildRelevancePrompt(query, texts),
		"stream": false,
		"options": map[string]any{
			"temperature": 0,
			"num_predict": 16 * len(texts),
		},
	}
	return s.client.generate(ctx, reqBody)
}

func (c *Client) generate(ctx context.Context, reqBody map[string]any) (string, error) {
	var response struct {
		Response string `json:"response"`
	}
	call := func(ctx context.Context) error {
		return c.postJSON(ctx, "/api/generate", reqBody, &response, "generate")
	}
	if err := c.execute(ctx, c.scoreExecutor, "ollama.generate", call); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}

func (c *Client) execute(ctx context.Context, executor *resilience.Executor, operation string, call func(context.Context) error) error {
	var err error
	if executor != nil {
		err = executor.Execute(ctx, operation, call, resilience.ClassifyHTTPError)
	} else {
		err = call(ctx)
	}
	return resilience.WrapTemporary(operation, err, resilience.ClassifyHTTPError)
}
