// Package mcp exposes the inventory search tool over the Model Context Protocol,
// so external agents can query the catalog the same way the store assistant does.
package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/hrygo/decorchat/plugin/ai/agent/tools"
)

// EndpointPath is where the streamable HTTP transport is mounted.
const EndpointPath = "/mcp"

// ItemSearcher is the inventory search the MCP tool delegates to.
type ItemSearcher interface {
	Search(ctx context.Context, query string, limit int) tools.SearchResult
}

// ServerConfig holds MCP server identity.
type ServerConfig struct {
	Name    string
	Version string
}

// Server wraps an MCP server and its streamable HTTP transport.
type Server struct {
	mcpServer  *mcpserver.MCPServer
	httpServer *mcpserver.StreamableHTTPServer
	searcher   ItemSearcher
}

// NewServer registers the item lookup tool on a new MCP server.
func NewServer(cfg ServerConfig, searcher ItemSearcher) *Server {
	if cfg.Name == "" {
		cfg.Name = "decorchat"
	}
	s := &Server{
		mcpServer: mcpserver.NewMCPServer(cfg.Name, cfg.Version,
			mcpserver.WithToolCapabilities(false),
			mcpserver.WithRecovery(),
		),
		searcher: searcher,
	}
	s.mcpServer.AddTools(s.itemLookupTool())
	s.httpServer = mcpserver.NewStreamableHTTPServer(s.mcpServer,
		mcpserver.WithEndpointPath(EndpointPath),
		mcpserver.WithStateLess(true),
	)
	return s
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// Handler returns the HTTP handler serving EndpointPath.
func (s *Server) Handler() http.Handler {
	return s.httpServer
}

func (s *Server) itemLookupTool() mcpserver.ServerTool {
	tool := mcplib.NewTool(tools.ItemLookupName,
		mcplib.WithDescription(tools.ItemLookupDescription),
		mcplib.WithString("query",
			mcplib.Required(),
			mcplib.Description("The search query"),
		),
		mcplib.WithNumber("n",
			mcplib.Description("Number of results to return"),
		),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleItemLookup,
	}
}

func (s *Server) handleItemLookup(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	if s.searcher == nil {
		return mcplib.NewToolResultError("inventory search not configured"), nil
	}
	args := req.GetArguments()
	query, ok := args["query"].(string)
	if !ok || query == "" {
		return mcplib.NewToolResultError("query is required"), nil
	}
	input := tools.ItemLookupInput{Query: query}
	if n, ok := args["n"].(float64); ok {
		input.N = n
	}

	result := s.searcher.Search(ctx, query, input.Limit())
	data, err := json.Marshal(result)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal search result", err), nil
	}
	slog.Debug("mcp item lookup", "query", query, "kind", result.Kind.String(), "count", result.Count())
	if result.Kind == tools.SearchFailed {
		return mcplib.NewToolResultError(string(data)), nil
	}
	return mcplib.NewToolResultText(string(data)), nil
}
