package cmd

import (
	"log/slog"

	"github.com/agentic-research/nixsel/internal/mcpserver"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve select_values and discover_frames over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newCompiler()
			if err != nil {
				return err
			}
			s := mcpserver.New(mcpserver.NewHandlers(c, slog.Default()), Version)
			slog.Info("serving MCP on stdio", "version", Version)
			return server.ServeStdio(s)
		},
	}
}
