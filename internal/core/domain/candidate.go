package domain

import (
	"errors"
	"fmt"
	"strings"
)

// SourceLocation points at an inclusive line range inside a repository file.
// A zero StartLine or EndLine means the range is unknown.
type SourceLocation struct {
	File      string `json:"file"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
}

func (l SourceLocation) HasRange() bool {
	return l.StartLine > 0 && l.EndLine > 0
}

// LineRange renders the range as "start-end", or "?" when it is unknown.
func (l SourceLocation) LineRange() string {
	if !l.HasRange() {
		return "?"
	}
	return fmt.Sprintf("%d-%d", l.StartLine, l.EndLine)
}

// Candidate is a retrieved excerpt under ranking consideration.
type Candidate struct {
	ID         string         `json:"id"`
	Text       string         `json:"text"`
	Location   SourceLocation `json:"location"`
	Language   string         `json:"language,omitempty"`
	Vector     []float32      `json:"-"`
	Similarity float64        `json:"similarity"`
	Relevance  float64        `json:"relevance"`
	FusedScore float64        `json:"fused_score"`
	// Scored is false when relevance was defaulted instead of returned by the scorer.
	Scored bool `json:"scored"`
}

// Validate reports candidates that cannot enter ranking.
func (c Candidate) Validate() error {
	if len(c.Vector) == 0 {
		return WrapError(ErrCandidateContract, "validate candidate", fmt.Errorf("candidate %q has no embedding vector", c.ID))
	}
	return nil
}

// RankedSet is the reranker output for one query, ordered by fused score.
type RankedSet struct {
	Candidates []Candidate `json:"candidates"`
	// FinalK is the cutoff chosen by the expansion policy. Candidates may be
	// shorter when fewer were retrieved.
	FinalK   int     `json:"final_k"`
	TopScore float64 `json:"top_score"`
	PoolSize int     `json:"pool_size"`
	Total    int     `json:"total"`
	Degraded bool    `json:"degraded"`
}

func (s RankedSet) Empty() bool {
	return len(s.Candidates) == 0
}

// ContextBlock is one rendered unit of a context packet.
type ContextBlock struct {
	Location     SourceLocation `json:"location"`
	Language     string         `json:"language,omitempty"`
	Text         string         `json:"text"`
	CandidateIDs []string       `json:"candidate_ids"`
	Tokens       int            `json:"tokens"`
	Truncated    bool           `json:"truncated,omitempty"`
}

// QueryOptions tunes a single context request.
type QueryOptions struct {
	BaseK int `json:"base_k"`
}

var errEmptyQuery = errors.New("query is required")

// ValidateQuery rejects blank queries before any collaborator is invoked.
func ValidateQuery(query string) error {
	if strings.TrimSpace(query) != "" {
		return nil
	}
	return WrapError(ErrInvalidInput, "validate query", errEmptyQuery)
}
