package usecase

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kirillkom/code-context-engine/internal/core/domain"
)

var (
	scoreIndexPattern  = regexp.MustCompile(`\[\s*\d+\s*\]`)
	scoreListPattern   = regexp.MustCompile(`(?m)(^|[\s,;(])\d+\s*[.):]\s+`)
	scoreLabelPattern  = regexp.MustCompile(`(?i)\b(?:doc(?:ument)?|snippet|candidate|item)\s*#?\s*\d+\s*[:=\-]?`)
	// An integer followed by a word ("3 scores") is a count, not a score.
	scoreNumberPattern = regexp.MustCompile(`(-?)(\d+(?:\.\d+)?|\.\d+)(\s*%)?(\s*[A-Za-z]+)?`)
)

// ParseRelevanceScores extracts n relevance values from a free-form scorer
// response. Values are clamped to [0,1], missing values are padded with 0 and
// extra values are dropped. A response without any number is malformed.
func ParseRelevanceScores(raw string, n int) ([]float64, error) {
	text := scoreIndexPattern.ReplaceAllString(raw, " ")
	text = scoreLabelPattern.ReplaceAllString(text, " ")
	text = scoreListPattern.ReplaceAllString(text, "${1}")

	values := make([]float64, 0, n)
	for _, match := range scoreNumberPattern.FindAllStringSubmatch(text, -1) {
		percent := match[3] != ""
		if !percent && match[4] != "" && !strings.Contains(match[2], ".") {
			continue
		}
		value, err := strconv.ParseFloat(match[1]+match[2], 64)
		if err != nil {
			continue
		}
		if percent {
			value /= 100
		}
		values = append(values, clamp(value, 0, 1))
	}
	if len(values) == 0 {
		return nil, domain.WrapError(domain.ErrMalformedScoreResponse, "parse relevance scores", fmt.Errorf("no numeric values in %q", truncateRunes(raw, 120)))
	}

	if n < 0 {
		n = 0
	}
	out := make([]float64, n)
	copy(out, values)
	return out, nil
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
