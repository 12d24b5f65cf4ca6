package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kirillkom/code-context-engine/internal/core/domain"
	"github.com/kirillkom/code-context-engine/internal/core/usecase"
)

type outputFormat string

const (
	formatJSON     outputFormat = "json"
	formatMarkdown outputFormat = "markdown"
	formatPrompt   outputFormat = "prompt"
)

func parseFormat(raw string) (outputFormat, error) {
	switch f := outputFormat(strings.ToLower(strings.TrimSpace(raw))); f {
	case formatJSON, formatMarkdown, formatPrompt:
		return f, nil
	case "md":
		return formatMarkdown, nil
	default:
		return "", fmt.Errorf("unknown format %q (json, markdown, prompt)", raw)
	}
}

func formatPacket(packet *domain.ContextPacket, format outputFormat, title string) (string, error) {
	switch format {
	case formatMarkdown:
		return usecase.RenderMarkdown(packet, title), nil
	case formatPrompt:
		return usecase.FormatPrompt(packet), nil
	default:
		body, err := json.MarshalIndent(packet, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal packet: %w", err)
		}
		return string(body), nil
	}
}
