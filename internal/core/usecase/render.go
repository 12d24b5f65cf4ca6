package usecase

import (
	"fmt"
	"strings"

	"github.com/kirillkom/code-context-engine/internal/core/domain"
)

const blockSeparator = "\n\n---\n\n"

// RenderContext formats accepted blocks in acceptance order.
func RenderContext(blocks []domain.ContextBlock) string {
	sections := make([]string, 0, len(blocks))
	for _, block := range blocks {
		sections = append(sections, fmt.Sprintf(
			"### File: %s\n### Lines: %s\n### Lang: %s\n%s\n",
			fileOrUnknown(block.Location.File),
			block.Location.LineRange(),
			languageOrUnknown(block.Language),
			block.Text,
		))
	}
	return strings.Join(sections, blockSeparator)
}

// RenderMarkdown renders a packet as a standalone markdown document.
func RenderMarkdown(packet *domain.ContextPacket, title string) string {
	if title == "" {
		title = "Code Context"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	if packet == nil || packet.Status != domain.PacketStatusSuccess {
		b.WriteString("_No relevant context found._\n")
		return b.String()
	}
	for i, block := range packet.Blocks {
		fmt.Fprintf(&b, "## %d. %s [%s] (lines %s)\n\n",
			i+1,
			fileOrUnknown(block.Location.File),
			languageOrUnknown(block.Language),
			block.Location.LineRange(),
		)
		text := strings.TrimSpace(block.Text)
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "```%s\n%s\n```\n\n", fenceLanguage(block.Language), text)
	}
	return b.String()
}

// FormatPrompt wraps the packet context into an instruction block for a
// downstream assistant.
func FormatPrompt(packet *domain.ContextPacket) string {
	if packet == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("You are assisting with a question about this repository.\n")
	b.WriteString("Use only the context below. If it is insufficient, say so.\n\n")
	fmt.Fprintf(&b, "Question:\n%s\n\n", packet.Query)
	if packet.Status != domain.PacketStatusSuccess || packet.Context == "" {
		b.WriteString("Context:\n(none)\n")
		return b.String()
	}
	fmt.Fprintf(&b, "Context:\n%s\n", packet.Context)
	if ids := packet.CandidateIDs(); len(ids) > 0 {
		fmt.Fprintf(&b, "\nReferences: %s\n", strings.Join(ids, ", "))
	}
	return b.String()
}

func fileOrUnknown(file string) string {
	if file == "" {
		return "unknown"
	}
	return file
}

func languageOrUnknown(language string) string {
	if language == "" {
		return "unknown"
	}
	return language
}

func fenceLanguage(language string) string {
	if language == "" || language == "unknown" {
		return ""
	}
	return language
}
