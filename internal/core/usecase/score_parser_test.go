package usecase

import (
	"math"
	"testing"

	"github.com/kirillkom/code-context-engine/internal/core/domain"
)

func TestParseRelevanceScores(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		n    int
		want []float64
	}{
		{name: "comma list", raw: "0.82, 0.65, 0.14", n: 3, want: []float64{0.82, 0.65, 0.14}},
		{name: "pads missing", raw: "0.9", n: 3, want: []float64{0.9, 0, 0}},
		{name: "truncates extra", raw: "0.1 0.2 0.3 0.4", n: 2, want: []float64{0.1, 0.2}},
		{name: "clamps", raw: "1.7, 0.5", n: 2, want: []float64{1, 0.5}},
		{name: "bracket indexes", raw: "[1] 0.8\n[2] 0.3", n: 2, want: []float64{0.8, 0.3}},
		{name: "numbered list", raw: "1. 0.8\n2) 0.3\n3: .5", n: 3, want: []float64{0.8, 0.3, 0.5}},
		{name: "labels", raw: "Doc 1: 0.75, Document 2: 0.25", n: 2, want: []float64{0.75, 0.25}},
		{name: "percent", raw: "85%, 40 %", n: 2, want: []float64{0.85, 0.4}},
		{name: "prose", raw: "Scores: 0.9, 0.1 …", n: 2, want: []float64{0.9, 0.1}},
		{name: "inline list markers", raw: "1) 0.9, 2) 0.8, 3) 0.1", n: 3, want: []float64{0.9, 0.8, 0.1}},
		{name: "count in preamble", raw: "Here are the 3 scores: 0.9, 0.8, 0.1", n: 3, want: []float64{0.9, 0.8, 0.1}},
		{name: "negative clamps to zero", raw: "-0.4, 0.8, 0.1", n: 3, want: []float64{0, 0.8, 0.1}},
		{name: "labelled integer scores", raw: "Doc 1: 1.0\nDoc 2: 0.5", n: 2, want: []float64{1, 0.5}},
		{name: "integer scores", raw: "1, 0, 1", n: 3, want: []float64{1, 0, 1}},
		{name: "percent before word", raw: "85% relevant, 10% relevant", n: 2, want: []float64{0.85, 0.1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseRelevanceScores(tc.raw, tc.n)
			if err != nil {
				t.Fatalf("ParseRelevanceScores() error = %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("expected %d scores, got %d (%v)", len(tc.want), len(got), got)
			}
			for i := range got {
				if math.Abs(got[i]-tc.want[i]) > 1e-9 {
					t.Fatalf("score[%d] = %f, want %f (all: %v)", i, got[i], tc.want[i], got)
				}
			}
		})
	}
}

func TestParseRelevanceScoresMalformed(t *testing.T) {
	for _, raw := range []string{"", "I cannot rate these documents.", "[1] [2] [3]", "I reviewed 3 snippets"} {
		_, err := ParseRelevanceScores(raw, 3)
		if !domain.IsKind(err, domain.ErrMalformedScoreResponse) {
			t.Fatalf("ParseRelevanceScores(%q) error = %v, want ErrMalformedScoreResponse", raw, err)
		}
	}
}
