package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lexgraph/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

By default, the server communicates over stdio using JSON-RPC. Use --port
to start an HTTP server instead, for the MCP Inspector or remote access.

Tools: answer, answer_orchestrated, search_items, resolve_temporal_scope,
get_valid_version, search_text_units.

Examples:
  # Stdio mode (default)
  lexgraph mcp serve

  # HTTP mode
  lexgraph mcp serve --port 8090

Client configuration:
  {
    "mcpServers": {
      "lexgraph": {
        "command": "/path/to/lexgraph",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	rt, err := runtimeFor(cmd)
	if err != nil {
		return err
	}

	server, err := mcp.NewServer(&mcp.Ports{
		Answers: rt.Answers,
		Actions: rt.Actions,
	})
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(contextOf(cmd), addr)
	}

	return server.Run(contextOf(cmd))
}
