package usecase

import (
	"math"
	"unicode/utf8"

	"github.com/kirillkom/code-context-engine/internal/core/domain"
	"github.com/kirillkom/code-context-engine/internal/core/ports"
)

const truncationMarker = "\n... [truncated]"

type AssemblerConfig struct {
	MaxTokens       int
	SafetyMargin    float64
	MergeMaxLineGap int
	MinBlockChars   int
	MaxBlockChars   int
}

func DefaultAssemblerConfig() AssemblerConfig {
	return AssemblerConfig{
		MaxTokens:       2800,
		SafetyMargin:    0.85,
		MergeMaxLineGap: 3,
		MinBlockChars:   20,
		MaxBlockChars:   5000,
	}
}

func (c AssemblerConfig) withDefaults() AssemblerConfig {
	def := DefaultAssemblerConfig()
	if c.MaxTokens <= 0 {
		c.MaxTokens = def.MaxTokens
	}
	if c.SafetyMargin <= 0 || c.SafetyMargin > 1 {
		c.SafetyMargin = def.SafetyMargin
	}
	if c.MergeMaxLineGap < 0 {
		c.MergeMaxLineGap = def.MergeMaxLineGap
	}
	if c.MinBlockChars < 0 {
		c.MinBlockChars = def.MinBlockChars
	}
	if c.MaxBlockChars <= 0 {
		c.MaxBlockChars = def.MaxBlockChars
	}
	return c
}

// TokenBudget is the hard cap on the summed token estimate of accepted blocks.
func (c AssemblerConfig) TokenBudget() int {
	return int(math.Floor(float64(c.MaxTokens)*c.SafetyMargin + 1e-9))
}

// Assembler turns a ranked set into a bounded, rendered context packet.
type Assembler struct {
	estimator ports.TokenEstimator
	cleaner   ports.TextCleaner
	cfg       AssemblerConfig
}

func NewAssembler(estimator ports.TokenEstimator, cleaner ports.TextCleaner, cfg AssemblerConfig) *Assembler {
	if estimator == nil {
		estimator = quarterRuneEstimator{}
	}
	return &Assembler{
		estimator: estimator,
		cleaner:   cleaner,
		cfg:       cfg.withDefaults(),
	}
}

func (a *Assembler) Budget() int {
	return a.cfg.TokenBudget()
}

// Assemble never fails. An empty set, or a set whose blocks are all filtered
// out, yields a no_results packet with empty context.
func (a *Assembler) Assemble(query string, set domain.RankedSet) *domain.ContextPacket {
	packet := domain.NewEmptyPacket(domain.PacketStatusNoResults, query)
	packet.TokensBudget = a.Budget()
	if set.Empty() {
		return packet
	}

	deduped := dedupeCandidates(set.Candidates)
	merged := mergeAdjacent(deduped, a.cfg.MergeMaxLineGap)
	packet.Diagnostics.CandidatesMerged = len(deduped) - len(merged)

	usable := make([]domain.ContextBlock, 0, len(merged))
	for _, item := range merged {
		block := item.block
		if a.cleaner != nil {
			block.Text = a.cleaner.Clean(block.Text, block.Language)
		}
		block.Text, block.Truncated = truncateBlock(block.Text, a.cfg.MaxBlockChars)
		if utf8.RuneCountInString(block.Text) < a.cfg.MinBlockChars {
			packet.Diagnostics.CandidatesDroppedShort += len(block.CandidateIDs)
			continue
		}
		usable = append(usable, block)
	}

	budget := a.Budget()
	used := 0
	accepted := make([]domain.ContextBlock, 0, len(usable))
	for i, block := range usable {
		block.Tokens = a.estimator.Estimate(block.Text)
		if used+block.Tokens > budget {
			for _, dropped := range usable[i:] {
				packet.Diagnostics.CandidatesDroppedBudget += len(dropped.CandidateIDs)
			}
			break
		}
		used += block.Tokens
		accepted = append(accepted, block)
	}

	if len(accepted) == 0 {
		return packet
	}

	packet.Status = domain.PacketStatusSuccess
	packet.Blocks = accepted
	packet.ChunksUsed = len(accepted)
	packet.Context = RenderContext(accepted)
	packet.TokensContext = used
	packet.TokensTotal = a.estimator.Estimate(packet.Context) + a.estimator.Estimate(query)
	return packet
}

func truncateBlock(text string, limit int) (string, bool) {
	if utf8.RuneCountInString(text) <= limit {
		return text, false
	}
	runes := []rune(text)
	return string(runes[:limit]) + truncationMarker, true
}

type quarterRuneEstimator struct{}

func (quarterRuneEstimator) Estimate(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return max(1, n/4)
}
