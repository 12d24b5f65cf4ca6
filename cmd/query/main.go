package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kirillkom/code-context-engine/internal/bootstrap"
	"github.com/kirillkom/code-context-engine/internal/config"
	"github.com/kirillkom/code-context-engine/internal/core/domain"
	"github.com/kirillkom/code-context-engine/internal/observability/logging"
)

var (
	queryTopK   int
	queryFormat string
	queryTitle  string
)

var rootCmd = &cobra.Command{
	Use:   "context-query <question>",
	Short: "Build a code context packet for a question",
	Long: `Build a code context packet for a question about the indexed repository.

Examples:
  context-query "where are auth tokens verified"
  context-query --top-k 5 --format markdown "how does the retry policy work"
  context-query --format prompt "explain the archive worker"`,
	Args:          cobra.MinimumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runQuery,
}

func init() {
	rootCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "Base number of excerpts (defaults to BASE_K)")
	rootCmd.Flags().StringVarP(&queryFormat, "format", "f", "json", "Output format (json, markdown, prompt)")
	rootCmd.Flags().StringVar(&queryTitle, "title", "", "Markdown document title")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runQuery(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(queryFormat)
	if err != nil {
		return err
	}
	if queryTopK < 0 {
		return fmt.Errorf("--top-k must be positive")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.NewJSONLoggerTo(cmd.ErrOrStderr(), "context-query", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Logger: logger})
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer app.Close()

	packet, err := app.ContextUC.BuildContext(ctx, strings.Join(args, " "), domain.QueryOptions{BaseK: queryTopK})
	if err != nil {
		return err
	}
	return writePacket(cmd.OutOrStdout(), packet, format, queryTitle)
}

func writePacket(w io.Writer, packet *domain.ContextPacket, format outputFormat, title string) error {
	out, err := formatPacket(packet, format, title)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, out); err != nil {
		return err
	}
	if packet.Status == domain.PacketStatusError {
		return fmt.Errorf("context pipeline failed: %s", packet.Error)
	}
	return nil
}
