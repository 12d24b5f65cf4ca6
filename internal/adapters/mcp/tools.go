package mcpadapter

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kirillkom/code-context-engine/internal/core/domain"
	"github.com/kirillkom/code-context-engine/internal/core/usecase"
)

func getContextTool() mcp.Tool {
	return mcp.NewTool(
		"get_context",
		mcp.WithDescription("Retrieve, rerank and assemble repository code context for a question. Returns the context packet as JSON."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural language question about the codebase"),
		),
		mcp.WithNumber("top_k",
			mcp.Description("Base number of excerpts to keep before adaptive expansion"),
			mcp.DefaultNumber(defaultTopK),
			mcp.Min(1),
			mcp.Max(maxTopK),
		),
		mcp.WithString("format",
			mcp.Description("Response format: json (default), markdown or prompt"),
			mcp.Enum("json", "markdown", "prompt"),
		),
	)
}

func (s *Server) handleGetContext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	topK := request.GetInt("top_k", defaultTopK)
	if topK < 1 || topK > maxTopK {
		return mcp.NewToolResultErrorf("top_k must be between 1 and %d", maxTopK), nil
	}

	packet, err := s.builder.BuildContext(ctx, query, domain.QueryOptions{BaseK: topK})
	if err != nil {
		s.logger.Warn("mcp_get_context_failed", "error", err)
		return mcp.NewToolResultErrorFromErr("get_context failed", err), nil
	}

	switch strings.ToLower(request.GetString("format", "json")) {
	case "markdown":
		return mcp.NewToolResultText(usecase.RenderMarkdown(packet, "")), nil
	case "prompt":
		return mcp.NewToolResultText(usecase.FormatPrompt(packet)), nil
	}

	body, err := json.MarshalIndent(packet, "", "  ")
	if err != nil {
		return nil, err
	}
	result := mcp.NewToolResultText(string(body))
	result.IsError = packet.Status == domain.PacketStatusError
	return result, nil
}
