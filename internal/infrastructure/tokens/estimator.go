package tokens

import "unicode/utf8"

const defaultCharsPerToken = 4

// HeuristicEstimator approximates sub-word tokens by rune count.
type HeuristicEstimator struct {
	charsPerToken int
}

func NewHeuristicEstimator(charsPerToken int) *HeuristicEstimator {
	if charsPerToken <= 0 {
		charsPerToken = defaultCharsPerToken
	}
	return &HeuristicEstimator{charsPerToken: charsPerToken}
}

// Estimate returns 0 only for empty text.
func (e *HeuristicEstimator) Estimate(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return max(1, n/e.charsPerToken)
}
