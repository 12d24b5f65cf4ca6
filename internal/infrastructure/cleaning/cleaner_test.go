package cleaning

import (
	"strings"
	"testing"
)

func TestCleanGo(t *testing.T) {
	input := "package auth\r\n\r\nimport (\r\n\t\"fmt\"\r\n\t\"strings\"\r\n)\r\n\r\n// Login checks credentials.   \r\nfunc Login(user string) error { // inline\r\n\t/* block\r\n\t comment */\r\n\treturn fmt.Errorf(\"see http://example.com\")\r\n}\r\n"
	got := New().Clean(input, "go")

	for _, unwanted := range []string{"\r", "import", "Login checks", "inline", "block", "comment */"} {
		if strings.Contains(got, unwanted) {
			t.Fatalf("expected %q to be removed, got:\n%s", unwanted, got)
		}
	}
	for _, wanted := range []string{"package auth", "func Login(user string) error {", "http://example.com"} {
		if !strings.Contains(got, wanted) {
			t.Fatalf("expected %q to survive, got:\n%s", wanted, got)
		}
	}
	if strings.Contains(got, "\n\n\n") {
		t.Fatalf("expected blank runs to collapse, got:\n%q", got)
	}
	for _, line := range strings.Split(got, "\n") {
		if strings.TrimRight(line, " \t") != line {
			t.Fatalf("trailing whitespace left in %q", line)
		}
	}
}

func TestCleanPython(t *testing.T) {
	input := "import os\nfrom typing import List\n\n\n\n# helper\ndef load(path):  # inline\n    return os.path.exists(path)\n"
	got := New().Clean(input, "Python")
	want := "def load(path):\n    return os.path.exists(path)"
	if got != want {
		t.Fatalf("Clean() = %q, want %q", got, want)
	}
}

func TestCleanKeepsIndentationOfFirstLine(t *testing.T) {
	got := New().Clean("\n\n    return value\n", "python")
	if got != "    return value" {
		t.Fatalf("Clean() = %q", got)
	}
}

func TestCleanOtherLanguages(t *testing.T) {
	cases := []struct {
		language string
		input    string
		want     string
	}{
		{language: "cpp", input: "#include <vector>\nint size() { return 1; }", want: "int size() { return 1; }"},
		{language: "csharp", input: "using System.Text;\nclass A {}", want: "class A {}"},
		{language: "rust", input: "use std::io;\nfn main() {}", want: "fn main() {}"},
		{language: "markdown", input: "# Title\n\nSee // not a comment", want: "# Title\n\nSee // not a comment"},
		{language: "", input: "x = 1 # note\ny = 2 // note", want: "x = 1\ny = 2"},
	}
	for _, tc := range cases {
		if got := New().Clean(tc.input, tc.language); got != tc.want {
			t.Fatalf("Clean(%q, %s) = %q, want %q", tc.input, tc.language, got, tc.want)
		}
	}
}
