package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/code-context-engine/internal/core/domain"
	"github.com/kirillkom/code-context-engine/internal/infrastructure/resilience"
)

// Client reads code chunks from a Qdrant collection written by a separate indexer.
type Client struct {
	baseURL    string
	collection string
	vectorName string
	apiKey     string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	// VectorName selects a named vector when the collection defines several.
	VectorName string
	APIKey     string
	HTTPClient *http.Client
	Executor   *resilience.Executor
}

func New(baseURL, collection string) *Client {
	return NewWithOptions(baseURL, collection, Options{})
}

func NewWithOptions(baseURL, collection string, opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		vectorName: opts.VectorName,
		apiKey:     opts.APIKey,
		httpClient: httpClient,
		executor:   opts.Executor,
	}
}

type searchPoint struct {
	ID      any             `json:"id"`
	Score   float64         `json:"score"`
	Payload map[string]any  `json:"payload"`
	Vector  json.RawMessage `json:"vector"`
}

// Search returns nearest neighbours with their stored vectors. A missing
// collection is reported as an empty result.
func (c *Client) Search(ctx context.Context, queryVector []float32, limit int) ([]domain.Candidate, error) {
	if limit <= 0 {
		limit = 40
	}
	reqBody := map[string]any{
		"limit":        limit,
		"with_payload": true,
		"with_vector":  true,
	}
	if c.vectorName != "" {
		reqBody["vector"] = map[string]any{"name": c.vectorName, "vector": queryVector}
	} else {
		reqBody["vector"] = queryVector
	}

	var searchResp struct {
		Result []searchPoint `json:"result"`
	}
	notFound := false
	call := func(ctx context.Context) error {
		status, err := c.postJSON(ctx, fmt.Sprintf("/collections/%s/points/search", c.collection), reqBody, &searchResp)
		notFound = status == http.StatusNotFound
		if notFound {
			return nil
		}
		return err
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "qdrant.search", call, resilience.ClassifyHTTPError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, resilience.WrapTemporary("qdrant search", err, resilience.ClassifyHTTPError)
	}
	if notFound {
		return []domain.Candidate{}, nil
	}

	out := make([]domain.Candidate, 0, len(searchResp.Result))
	for _, point := range searchResp.Result {
		vector, err := decodeVector(point.Vector, c.vectorName)
		if err != nil {
			return nil, fmt.Errorf("qdrant point %v: %w", point.ID, err)
		}
		out = append(out, candidateFromPayload(pointID(point.ID), point.Payload, vector))
	}
	return out, nil
}

// Ping checks that the collection is reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection), nil)
	if err != nil {
		return fmt.Errorf("create collection info request: %w", err)
	}
	c.authorize(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant collection info request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return resilience.NewHTTPStatusError("qdrant", "collection info", resp)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("marshal search body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("qdrant search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return resp.StatusCode, resilience.NewHTTPStatusError("qdrant", "search", resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode search response: %w", err)
	}
	return resp.StatusCode, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}
}
