package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	mgmcp "github.com/mapgame/mapgame/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server for AI agents",
		Long: `Start a Model Context Protocol (MCP) server that exposes the exhibit catalog
as read-only tools and resources for AI agents. Admin accounts and sessions are
never exposed. Supports stdio (default) and HTTP transports.

In stdio mode, the MCP server communicates over stdin/stdout using JSON-RPC,
suitable for clients that launch mapgame as a subprocess.

In HTTP mode, the server listens on the given host and port using Streamable
HTTP. The HTTP endpoint is unauthenticated and binds to 127.0.0.1 unless
--host says otherwise.`,
		Example: `  mapgame mcp                            # stdio mode
  mapgame mcp --transport http --port 3001`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP()
		},
	}

	cmd.Flags().String("transport", "stdio", "Transport mode: stdio or http")
	cmd.Flags().String("host", "127.0.0.1", "HTTP bind address (only used with --transport http)")
	cmd.Flags().Int("port", 3001, "HTTP port (only used with --transport http)")

	viper.BindPFlag("mcp.transport", cmd.Flags().Lookup("transport"))
	viper.BindPFlag("mcp.host", cmd.Flags().Lookup("host"))
	viper.BindPFlag("mcp.port", cmd.Flags().Lookup("port"))

	return cmd
}

func runMCP() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// stdout carries the protocol in stdio mode, so logs go to stderr.
	logger := newLogger(cfg.Logging, false, os.Stderr)

	st, err := openStore(cfg.Database)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	mcpSrv := mgmcp.NewMCPServer(st, versionString(), logger)

	switch cfg.MCP.Transport {
	case "stdio":
		return mcpSrv.ServeStdio()
	case "http":
		return mcpSrv.ServeHTTP(cfg.MCP.Addr())
	default:
		return fmt.Errorf("unsupported transport %q; use 'stdio' or 'http'", cfg.MCP.Transport)
	}
}
