package llm

import (
	"fmt"
	"strings"
)

const maxSnippetRunes = 800

// BuildRelevancePrompt asks a model for one relevance number per document, in
// document order, with no explanations.
func BuildRelevancePrompt(query string, texts []string) string {
	var b strings.Builder
	b.WriteString("You are a semantic ranking model.\n")
	b.WriteString("Rate each document on how relevant it is to the query.\n")
	b.WriteString("Return ONLY a comma separated list of numbers between 0 and 1, one per document, in document order (high = more relevant).\n\n")
	fmt.Fprintf(&b, "Query:\n%s\n\n", strings.TrimSpace(query))
	b.WriteString("Documents:\n")
	for i, text := range texts {
		fmt.Fprintf(&b, "[%d]\n%s\n\n", i+1, snippet(text))
	}
	fmt.Fprintf(&b, "Return exactly %d scores, for example: 0.82, 0.65, 0.14\n", len(texts))
	return b.String()
}

func snippet(text string) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= maxSnippetRunes {
		return string(runes)
	}
	return string(runes[:maxSnippetRunes]) + "…"
}
