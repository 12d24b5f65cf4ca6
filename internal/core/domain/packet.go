package domain

import "time"

type PacketStatus string

const (
	PacketStatusSuccess   PacketStatus = "success"
	PacketStatusNoResults PacketStatus = "no_results"
	PacketStatusError     PacketStatus = "error"
)

type PacketDiagnostics struct {
	CandidatesRetrieved     int     `json:"candidates_retrieved"`
	CandidatesScored        int     `json:"candidates_scored"`
	CandidatesMerged        int     `json:"candidates_merged"`
	CandidatesDroppedBudget int     `json:"candidates_dropped_budget"`
	CandidatesDroppedShort  int     `json:"candidates_dropped_short"`
	FinalK                  int     `json:"final_k"`
	TopScore                float64 `json:"top_score"`
	ScoringDegraded         bool    `json:"scoring_degraded"`
}

// ContextPacket is the pipeline output handed to downstream prompt builders.
type ContextPacket struct {
	ID            string            `json:"packet_id"`
	Status        PacketStatus      `json:"status"`
	Query         string            `json:"query"`
	Context       string            `json:"context"`
	ChunksUsed    int               `json:"chunks_used"`
	Blocks        []ContextBlock    `json:"blocks,omitempty"`
	TokensContext int               `json:"tokens_context"`
	TokensTotal   int               `json:"tokens_estimated_total"`
	TokensBudget  int               `json:"tokens_budget"`
	Diagnostics   PacketDiagnostics `json:"diagnostics"`
	Error         string            `json:"error,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// NewEmptyPacket builds a packet that carries no context.
func NewEmptyPacket(status PacketStatus, query string) *ContextPacket {
	return &ContextPacket{
		Status: status,
		Query:  query,
	}
}

// CandidateIDs lists the contributing ids of every accepted block in order.
func (p *ContextPacket) CandidateIDs() []string {
	out := make([]string, 0, len(p.Blocks))
	for _, block := range p.Blocks {
		for _, id := range block.CandidateIDs {
			if id != "" {
				out = append(out, id)
			}
		}
	}
	return out
}
