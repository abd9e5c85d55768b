package mcp

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mapgame/mapgame/internal/model"
	"github.com/mapgame/mapgame/internal/store"
)

// registerTools adds the catalog tools to the MCP server. They serve the
// same data as the public map API; player interactions stay behind the
// admin API.
func (s *MCPServer) registerTools(srv *server.MCPServer) {

	srv.AddTool(
		mcp.NewTool("list_map_objects",
			mcp.WithDescription(
				"List the discoverable objects on the interactive map, ordered by name. "+
					"Optionally restrict to one object type or to unlocked objects.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("type",
				mcp.Description("Object type such as Aircraft or Spacecraft (case-insensitive)"),
			),
			mcp.WithBoolean("unlocked",
				mcp.Description("Only return objects the player has unlocked"),
			),
		),
		s.handleListMapObjects,
	)

	srv.AddTool(
		mcp.NewTool("get_map_object",
			mcp.WithDescription(
				"Get one discoverable map object by ID, including its description, "+
					"coordinates and media links.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithNumber("id",
				mcp.Required(),
				mcp.Description("Map object ID"),
			),
		),
		s.handleGetMapObject,
	)

	srv.AddTool(
		mcp.NewTool("nearby_map_objects",
			mcp.WithDescription(
				"List the discoverable map objects within a radius of a point, nearest first.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithNumber("x", mcp.Description("X coordinate (default 0)")),
			mcp.WithNumber("y", mcp.Description("Y coordinate (default 0)")),
			mcp.WithNumber("z", mcp.Description("Z coordinate (default 0)")),
			mcp.WithNumber("radius", mcp.Description("Search radius (default 100)")),
		),
		s.handleNearbyMapObjects,
	)
}

// =========================================================================
// Tool handlers
// =========================================================================

func (s *MCPServer) handleListMapObjects(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	objects, err := s.catalog.ListMapObjects(ctx, store.MapObjectFilter{
		DiscoverableOnly: true,
		UnlockedOnly:     optionalBool(request, "unlocked"),
		Type:             optionalString(request, "type"),
	})
	if err != nil {
		return toolError("Failed to list map objects: %v", err)
	}
	return successJSON(objects)
}

func (s *MCPServer) handleGetMapObject(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	id, err := requireID(request, "id")
	if err != nil {
		return toolError("%v", err)
	}
	obj, err := s.discoverable(ctx, id)
	if err != nil {
		return toolError("%v", err)
	}
	return successJSON(obj)
}

func (s *MCPServer) handleNearbyMapObjects(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	objects, err := s.catalog.NearbyMapObjects(ctx,
		optionalFloat(request, "x", 0),
		optionalFloat(request, "y", 0),
		optionalFloat(request, "z", 0),
		optionalFloat(request, "radius", store.DefaultNearbyRadius),
	)
	if err != nil {
		return toolError("Failed to search map objects: %v", err)
	}
	return successJSON(objects)
}

// discoverable loads a map object and hides it when it is not discoverable.
func (s *MCPServer) discoverable(ctx context.Context, id int64) (*model.MapObject, error) {
	obj, err := s.catalog.GetMapObject(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errMapObjectNotFound(id)
		}
		return nil, err
	}
	if !obj.IsDiscoverable {
		return nil, errMapObjectNotFound(id)
	}
	return obj, nil
}
