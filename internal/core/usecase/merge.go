package usecase

import (
	"sort"
	"strings"

	"github.com/kirillkom/code-context-engine/internal/core/domain"
)

// dedupeCandidates keeps the first occurrence of every id. Candidates without
// an id cannot be compared and are always kept.
func dedupeCandidates(candidates []domain.Candidate) []domain.Candidate {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]domain.Candidate, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.ID == "" {
			out = append(out, candidate)
			continue
		}
		if _, ok := seen[candidate.ID]; ok {
			continue
		}
		seen[candidate.ID] = struct{}{}
		out = append(out, candidate)
	}
	return out
}

type rankedBlock struct {
	block domain.ContextBlock
	rank  int
}

// mergeAdjacent joins excerpts of the same file whose line ranges are at most
// maxGap lines apart. Overlapping ranges have a negative gap and always merge.
// The result is ordered by the best rank among each block's contributors.
func mergeAdjacent(candidates []domain.Candidate, maxGap int) []rankedBlock {
	byFile := make(map[string][]rankedBlock)
	files := make([]string, 0)
	out := make([]rankedBlock, 0, len(candidates))

	for rank, candidate := range candidates {
		item := rankedBlock{
			block: domain.ContextBlock{
				Location:     candidate.Location,
				Language:     candidate.Language,
				Text:         candidate.Text,
				CandidateIDs: []string{candidate.ID},
			},
			rank: rank,
		}
		if candidate.Location.File == "" || !candidate.Location.HasRange() {
			out = append(out, item)
			continue
		}
		if _, ok := byFile[candidate.Location.File]; !ok {
			files = append(files, candidate.Location.File)
		}
		byFile[candidate.Location.File] = append(byFile[candidate.Location.File], item)
	}

	for _, file := range files {
		group := byFile[file]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].block.Location.StartLine < group[j].block.Location.StartLine
		})

		current := group[0]
		for _, next := range group[1:] {
			if next.block.Location.StartLine-current.block.Location.EndLine <= maxGap {
				current = joinBlocks(current, next)
				continue
			}
			out = append(out, current)
			current = next
		}
		out = append(out, current)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].rank < out[j].rank
	})
	return out
}

func joinBlocks(a, b rankedBlock) rankedBlock {
	merged := a
	merged.block.Text = strings.TrimRight(a.block.Text, "\n") + "\n" + b.block.Text
	merged.block.Location.StartLine = min(a.block.Location.StartLine, b.block.Location.StartLine)
	merged.block.Location.EndLine = max(a.block.Location.EndLine, b.block.Location.EndLine)
	merged.block.CandidateIDs = append(append([]string{}, a.block.CandidateIDs...), b.block.CandidateIDs...)
	if merged.block.Language == "" {
		merged.block.Language = b.block.Language
	}
	merged.rank = min(a.rank, b.rank)
	return merged
}
