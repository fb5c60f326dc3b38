package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/conduit"
	"github.com/aretw0/conduit/internal/logging"
	"github.com/aretw0/conduit/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ExtensionsURI is the resource holding the extension catalogue.
const ExtensionsURI = "conduit://extensions"

// Host is the part of conduit.Host the MCP surface needs.
type Host interface {
	Execute(ctx context.Context, req conduit.Request) (*domain.ExecutionResult, error)
	Catalogue() []domain.Extension
	Chunk(ctx context.Context, req conduit.ChunkRequest) ([]string, error)
	Match(req conduit.MatchRequest) (*conduit.MatchResult, error)
}

// Server exposes the host's nodes as MCP tools.
type Server struct {
	host      Host
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(host Host, opts ...Option) *Server {
	s := &Server{
		host:      host,
		mcpServer: server.NewMCPServer("conduit-mcp", conduit.Version),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server, mostly for tests.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ToolName is the MCP tool name of a node.
func ToolName(extension, node string) string {
	return extension + "__" + node
}

func (s *Server) registerTools() {
	for _, ext := range s.host.Catalogue() {
		for _, node := range ext.Nodes {
			desc := node.Summary
			if desc == "" {
				desc = node.DefaultLabel
			}
			tool := mcp.NewTool(ToolName(ext.Name, node.Type),
				mcp.WithDescription(desc),
				mcp.WithString("session_id", mcp.Description("Session to run in (a new one is created when empty)")),
				mcp.WithString("text", mcp.Description("User text for this turn")),
				mcp.WithObject("config", mcp.Description("Node configuration"), mcp.Properties(fieldProperties(node.Fields))),
			)
			s.mcpServer.AddTool(tool, s.nodeHandler(ext.Name, node.Type))
		}
	}

	s.mcpServer.AddTool(mcp.NewTool("match_patterns",
		mcp.WithDescription("Match text against utterance patterns with optional named slots."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Text to match")),
		mcp.WithArray("patterns", mcp.Required(), mcp.WithStringItems(), mcp.Description("Patterns such as 'fly to {city}'")),
		mcp.WithObject("slots", mcp.Description("Slot name to list of values")),
		mcp.WithBoolean("case_sensitive", mcp.Description("Match case sensitively")),
	), s.handleMatch)

	s.mcpServer.AddTool(mcp.NewTool("chunk_text",
		mcp.WithDescription("Clean and split text into overlapping chunks."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Text to split")),
		mcp.WithString("content_type", mcp.Description("MIME type of the text (text/plain, text/html, text/markdown)")),
		mcp.WithNumber("chunk_size", mcp.Description("Chunk size in tokens")),
		mcp.WithNumber("chunk_overlap", mcp.Description("Overlap in tokens")),
	), s.handleChunk)
}

func fieldProperties(fields []domain.Field) map[string]any {
	props := make(map[string]any, len(fields))
	for _, f := range fields {
		prop := map[string]any{"type": jsonType(f.Type)}
		if f.Description != "" {
			prop["description"] = f.Description
		} else if f.Label != "" {
			prop["description"] = f.Label
		}
		if len(f.Options) > 0 {
			prop["enum"] = f.Options
		}
		if f.Type == domain.FieldTextArray {
			prop["items"] = map[string]any{"type": "string"}
		}
		props[f.Key] = prop
	}
	return props
}

func jsonType(fieldType string) string {
	switch fieldType {
	case domain.FieldNumber:
		return "number"
	case domain.FieldToggle:
		return "boolean"
	case domain.FieldTextArray:
		return "array"
	case domain.FieldJSON:
		return "object"
	default:
		return "string"
	}
}

func (s *Server) nodeHandler(extension, node string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		cfg, _ := args["config"].(map[string]any)

		res, err := s.host.Execute(ctx, conduit.Request{
			SessionID: request.GetString("session_id", ""),
			Extension: extension,
			Node:      node,
			Config:    cfg,
			Text:      request.GetString("text", ""),
			Data:      args["data"],
		})
		if err != nil {
			s.logger.Warn("MCP node call failed", "tool", ToolName(extension, node), "err", err)
			var nodeErr *conduit.NodeError
			if errors.As(err, &nodeErr) && res != nil {
				return errorResult(res)
			}
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(res)
	}
}

func (s *Server) handleMatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	patterns, err := request.RequireStringSlice("patterns")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := conduit.MatchRequest{
		Text:          text,
		Patterns:      patterns,
		CaseSensitive: request.GetBool("case_sensitive", false),
	}
	if raw, ok := request.GetArguments()["slots"]; ok {
		if err := remarshal(raw, &req.Slots); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid slots: %v", err)), nil
		}
	}

	res, err := s.host.Match(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) handleChunk(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	chunks, err := s.host.Chunk(ctx, conduit.ChunkRequest{
		Text:         text,
		ContentType:  request.GetString("content_type", ""),
		ChunkSize:    request.GetInt("chunk_size", 0),
		ChunkOverlap: request.GetInt("chunk_overlap", 0),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"chunks": chunks})
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(ExtensionsURI, "Registered extensions",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		data, err := json.Marshal(s.host.Catalogue())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal catalogue: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      ExtensionsURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

func errorResult(v any) (*mcp.CallToolResult, error) {
	res, err := jsonResult(v)
	if err != nil {
		return nil, err
	}
	res.IsError = true
	return res, nil
}

func remarshal(in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
