package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kairoscope/internal/adapters/driving/mcp"
)

var mcpHTTPAddr string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can retrieve
inspiration, rebuild the index and generate decks.

By default the server communicates over stdio using JSON-RPC.
Use --http to serve streamable HTTP instead, for example to test with
the MCP Inspector.

Examples:
  # Stdio mode (default, for desktop assistants)
  kairoscope mcp

  # HTTP mode
  kairoscope mcp --http 127.0.0.1:8081

Assistant configuration:
  {
    "mcpServers": {
      "kairoscope": {
        "command": "/path/to/kairoscope",
        "args": ["mcp"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpHTTPAddr, "http", "", "serve streamable HTTP on this address instead of stdio")
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	if retriever == nil {
		return errors.New("retrieval service not configured")
	}
	if err := requireIndex(cmd); err != nil {
		return err
	}

	ports := &mcp.Ports{
		Retriever: retriever,
		Decks:     deckService,
		Defaults:  defaults,
		Owner:     owner,
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	if mcpHTTPAddr != "" {
		cmd.PrintErrf("MCP server listening on http://%s\n", mcpHTTPAddr)
		return server.RunHTTP(cmd.Context(), mcpHTTPAddr)
	}

	return server.Run(cmd.Context())
}
