package mcpadapter

import (
	"context"
	"io"
	"log"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/code-context-engine/internal/core/ports"
)

const (
	ServerName    = "code-context-engine"
	ServerVersion = "1.0.0"

	defaultTopK = 3
	maxTopK     = 50
)

// Server exposes the context pipeline as MCP tools.
type Server struct {
	mcp     *server.MCPServer
	builder ports.ContextBuilder
	logger  *slog.Logger
}

func NewServer(builder ports.ContextBuilder, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		mcp: server.NewMCPServer(
			ServerName,
			ServerVersion,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
			server.WithInstructions("Call get_context with a natural language question about the indexed repository to receive ranked, deduplicated source excerpts that fit a prompt budget."),
		),
		builder: builder,
		logger:  logger,
	}
	s.mcp.AddTool(getContextTool(), s.handleGetContext)
	return s
}

// Serve speaks MCP over the given streams until ctx is cancelled or input ends.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer, errOut io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(log.New(errOut, "mcp: ", log.LstdFlags))
	return stdio.Listen(ctx, in, out)
}
