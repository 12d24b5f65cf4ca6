package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/kirillkom/code-context-engine/internal/infrastructure/llm"
	"github.com/kirillkom/code-context-engine/internal/infrastructure/resilience"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Client talks to any OpenAI compatible /embeddings and /chat/completions API.
type Client struct {
	baseURL    string
	apiKey     string
	chatModel  string
	embedModel string
	httpClient *http.Client

	embedExecutor *resilience.Executor
	scoreExecutor *resilience.Executor
}

type Options struct {
	HTTPClient    *http.Client
	EmbedExecutor *resilience.Executor
	ScoreExecutor *resilience.Executor
}

func New(baseURL, apiKey, chatModel, embedModel string, opts Options) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		apiKey:        apiKey,
		chatModel:     chatModel,
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
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	call := func(ctx context.Context) error {
		return e.client.postJSON(ctx, "/embeddings", request, &response, "embeddings")
	}
	if err := e.client.execute(ctx, e.client.embedExecutor, "openai.embeddings", call); err != nil {
		return nil, err
	}
	if len(response.Data) != len(texts) {
		return nil, fmt.Errorf("openai embeddings: expected %d embeddings, got %d", len(texts), len(response.Data))
	}
	sort.SliceStable(response.Data, func(i, j int) bool {
		return response.Data[i].Index < response.Data[j].Index
	})
	out := make([][]float32, len(response.Data))
	for i := range response.Data {
		out[i] = response.Data[i].Embedding
	}
	return out, nil
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
	request := map[string]any{
		"model": s.client.chatModel,
		"messages": []map[string]string{
			{"role": "user", "content": llm.BuildRelevancePrompt(query, texts)},
		},
		"temperature": 0,
		"max_tokens":  16 * len(texts),
	}
	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	call := func(ctx context.Context) error {
		return s.client.postJSON(ctx, "/chat/completions", request, &response, "chat")
	}
	if err := s.client.execute(ctx, s.client.scoreExecutor, "openai.chat", call); err != nil {
		return "", err
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("openai chat: empty choices")
	}
	return strings.TrimSpace(response.Choices[0].Message.Content), nil
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

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any, operation string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", operation, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("openai %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return resilience.NewHTTPStatusError("openai", operation, resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}
