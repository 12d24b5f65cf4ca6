package llm

import (
	"strings"
	"testing"
)

func TestBuildRelevancePrompt(t *testing.T) {
	long := strings.Repeat("z", 900)
	prompt := BuildRelevancePrompt("  how is auth done ", []string{"func Login()", long})

	if !strings.Contains(prompt, "Query:\nhow is auth done\n") {
		t.Fatalf("prompt missing trimmed query:\n%s", prompt)
	}
	if !strings.Contains(prompt, "[1]\nfunc Login()\n") || !strings.Contains(prompt, "[2]\n") {
		t.Fatalf("prompt missing numbered documents:\n%s", prompt)
	}
	if !strings.Contains(prompt, strings.Repeat("z", 800)+"…") || strings.Contains(prompt, strings.Repeat("z", 801)) {
		t.Fatalf("expected snippet to be truncated at 800 characters")
	}
	if !strings.Contains(prompt, "Return exactly 2 scores") {
		t.Fatalf("prompt missing score count:\n%s", prompt)
	}
}
