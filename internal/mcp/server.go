package mcp

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mapgame/mapgame/internal/model"
	"github.com/mapgame/mapgame/internal/store"
)

// Catalog is the read side of the map object store.
type Catalog interface {
	GetMapObject(ctx context.Context, id int64) (*model.MapObject, error)
	ListMapObjects(ctx context.Context, f store.MapObjectFilter) ([]model.MapObject, error)
	NearbyMapObjects(ctx context.Context, x, y, z, radius float64) ([]model.MapObject, error)
}

// MCPServer wraps the mcp-go server with the map catalog tools and
// resources. Every tool is read-only and only discoverable exhibits are
// visible; admin accounts, sessions and player interactions are never
// exposed.
type MCPServer struct {
	catalog Catalog
	logger  *slog.Logger
	server  *server.MCPServer
}

// NewMCPServer creates an MCPServer with all catalog tools and resources
// registered. The returned server is ready to serve over stdio or HTTP.
func NewMCPServer(catalog Catalog, version string, logger *slog.Logger) *MCPServer {
	if logger == nil {
		logger = slog.Default()
	}
	s := &MCPServer{
		catalog: catalog,
		logger:  logger,
	}

	mcpServer := server.NewMCPServer(
		"Interactive Map Catalog",
		version,
		server.WithResourceCapabilities(true, false),
		server.WithToolCapabilities(true),
	)

	s.registerTools(mcpServer)
	s.registerResources(mcpServer)

	s.server = mcpServer
	return s
}

// Server returns the underlying mcp-go MCPServer instance.
func (s *MCPServer) Server() *server.MCPServer {
	return s.server
}

// ServeStdio starts the MCP server in stdio mode, for clients that launch
// mapgame as a subprocess.
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server in stdio mode")
	return server.ServeStdio(s.server)
}

// ServeHTTP starts the MCP server in Streamable HTTP mode on addr
// (e.g. "127.0.0.1:3001"). The endpoint is unauthenticated.
func (s *MCPServer) ServeHTTP(addr string) error {
	httpServer := server.NewStreamableHTTPServer(s.server)
	s.logger.Info("MCP HTTP server starting", "addr", addr)
	return httpServer.Start(addr)
}

func readOnlyAnnotation() mcp.ToolAnnotation {
	return mcp.ToolAnnotation{
		ReadOnlyHint: boolPtr(true),
	}
}

func boolPtr(b bool) *bool {
	return &b
}
