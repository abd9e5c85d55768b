package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mapgame/mapgame/internal/store"
)

const (
	catalogURI        = "mapgame://catalog"
	objectURIPrefix   = "mapgame://objects/"
	objectURITemplate = objectURIPrefix + "{id}"
)

func errMapObjectNotFound(id int64) error {
	return fmt.Errorf("map object %d not found", id)
}

// registerResources adds the read-only catalog resources.
func (s *MCPServer) registerResources(srv *server.MCPServer) {

	srv.AddResource(
		mcp.NewResource(
			catalogURI,
			"Map Catalog",
			mcp.WithResourceDescription(
				"Every discoverable object on the interactive map, ordered by name.",
			),
			mcp.WithMIMEType("application/json"),
		),
		s.handleCatalogResource,
	)

	srv.AddResourceTemplate(
		mcp.NewResourceTemplate(
			objectURITemplate,
			"Map Object",
			mcp.WithTemplateDescription("A single discoverable map object."),
			mcp.WithTemplateMIMEType("application/json"),
		),
		s.handleObjectResource,
	)
}

func (s *MCPServer) handleCatalogResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {

	objects, err := s.catalog.ListMapObjects(ctx, store.MapObjectFilter{DiscoverableOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to list map objects: %w", err)
	}
	return jsonContents(catalogURI, objects)
}

// handleObjectResource serves "mapgame://objects/{id}".
func (s *MCPServer) handleObjectResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {

	uri := request.Params.URI
	raw := strings.TrimPrefix(uri, objectURIPrefix)
	if raw == uri || raw == "" {
		return nil, fmt.Errorf("invalid object URI %q: expected %s", uri, objectURITemplate)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return nil, fmt.Errorf("invalid object id %q", raw)
	}

	obj, err := s.discoverable(ctx, id)
	if err != nil {
		return nil, err
	}
	return jsonContents(uri, obj)
}

func jsonContents(uri string, v interface{}) ([]mcp.ResourceContents, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(b),
		},
	}, nil
}
