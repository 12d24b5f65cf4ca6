package cleaning

import (
	"regexp"
	"strings"
)

type commentStyle int

const (
	styleBoth commentStyle = iota
	styleSlash
	styleHash
	styleNone
)

var languageStyles = map[string]commentStyle{
	"go": styleSlash, "golang": styleSlash,
	"javascript": styleSlash, "js": styleSlash, "jsx": styleSlash,
	"typescript": styleSlash, "ts": styleSlash, "tsx": styleSlash,
	"java": styleSlash, "kotlin": styleSlash, "kt": styleSlash, "scala": styleSlash,
	"swift": styleSlash, "c": styleSlash, "cpp": styleSlash, "c++": styleSlash, "h": styleSlash,
	"csharp": styleSlash, "cs": styleSlash, "c#": styleSlash,
	"rust": styleSlash, "rs": styleSlash, "php": styleSlash, "dart": styleSlash,
	"python": styleHash, "py": styleHash, "ruby": styleHash, "rb": styleHash,
	"shell": styleHash, "sh": styleHash, "bash": styleHash, "zsh": styleHash,
	"yaml": styleHash, "yml": styleHash, "toml": styleHash, "perl": styleHash, "r": styleHash,
	"markdown": styleNone, "md": styleNone, "json": styleNone, "text": styleNone, "txt": styleNone,
}

var (
	trailingSpacePattern = regexp.MustCompile(`(?m)[ \t]+$`)
	blankRunPattern      = regexp.MustCompile(`\n\s*\n\s*\n+`)
	slashLinePattern     = regexp.MustCompile(`(?m)(^|[ \t])//.*$`)
	slashBlockPattern    = regexp.MustCompile(`(?s)/\*.*?\*/`)
	hashLinePattern      = regexp.MustCompile(`(?m)(^|[ \t])#.*$`)

	importPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?m)^[ \t]*import[ \t]*\([^)]*\)[ \t]*$`),
		regexp.MustCompile(`(?m)^[ \t]*(?:from[ \t]+\S+[ \t]+)?import[ \t]+[^\n]+$`),
		regexp.MustCompile(`(?m)^[ \t]*#[ \t]*include[ \t]*[<"][^>"\n]*[>"][ \t]*$`),
		regexp.MustCompile(`(?m)^[ \t]*using[ \t]+[\w.]+[ \t]*;[ \t]*$`),
		regexp.MustCompile(`(?m)^[ \t]*(?:pub[ \t]+)?use[ \t]+[^;\n]+;[ \t]*$`),
		regexp.MustCompile(`(?m)^[ \t]*require(?:_relative)?[ \t]+['"][^'"\n]+['"][ \t]*$`),
	}
)

// Cleaner strips comment and import noise for token economy. Output is lossy
// and must not be relied on for semantics.
type Cleaner struct{}

func New() *Cleaner {
	return &Cleaner{}
}

func (c *Cleaner) Clean(text, language string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = trailingSpacePattern.ReplaceAllString(text, "")

	style := styleFor(language)
	if style != styleNone {
		for _, pattern := range importPatterns {
			text = pattern.ReplaceAllString(text, "")
		}
	}
	switch style {
	case styleSlash:
		text = stripSlashComments(text)
	case styleHash:
		text = hashLinePattern.ReplaceAllString(text, "$1")
	case styleBoth:
		text = stripSlashComments(text)
		text = hashLinePattern.ReplaceAllString(text, "$1")
	}

	text = trailingSpacePattern.ReplaceAllString(text, "")
	text = blankRunPattern.ReplaceAllString(text, "\n\n")
	return strings.TrimRight(strings.TrimLeft(text, "\n"), " \t\n")
}

func stripSlashComments(text string) string {
	text = slashBlockPattern.ReplaceAllString(text, "")
	return slashLinePattern.ReplaceAllString(text, "$1")
}

func styleFor(language string) commentStyle {
	style, ok := languageStyles[strings.ToLower(strings.TrimSpace(language))]
	if !ok {
		return styleBoth
	}
	return style
}
