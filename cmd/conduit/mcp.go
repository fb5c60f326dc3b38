package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/aretw0/conduit/internal/cli"
	"github.com/aretw0/conduit/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts the host as an MCP server. Every node becomes a tool named
<extension>__<node>, next to match_patterns and chunk_text. The extension
catalogue is served as the conduit://extensions resource.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		sigCtx := cli.NewSignalContext(context.Background())
		defer sigCtx.Cancel()

		stack, _, logger, err := buildStack(sigCtx, cmd)
		if err != nil {
			return err
		}
		defer stack.Close()

		srv := mcp.NewServer(stack.Host, mcp.WithLogger(logger))

		switch transport {
		case "stdio":
			// Anything on stdout would corrupt JSON-RPC.
			log.SetOutput(os.Stderr)
			logger.Info("starting conduit MCP server (stdio)")
			return srv.ServeStdio()
		case "sse":
			addr := fmt.Sprintf(":%d", port)
			return srv.ServeSSE(sigCtx, addr, fmt.Sprintf("http://localhost:%d", port))
		default:
			return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8081, "Port to listen on (only for SSE)")
}
