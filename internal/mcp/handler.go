package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// --------------------------------------------------------------------------
// Parameter extraction helpers
// --------------------------------------------------------------------------

// requireID extracts a required positive object ID from the tool request.
func requireID(request mcp.CallToolRequest, key string) (int64, error) {
	val, err := request.RequireFloat(key)
	if err != nil {
		return 0, fmt.Errorf("missing required parameter %q", key)
	}
	if val < 1 || val != float64(int64(val)) {
		return 0, fmt.Errorf("parameter %q must be a positive integer", key)
	}
	return int64(val), nil
}

// requireString extracts a required string argument from the tool request.
func requireString(request mcp.CallToolRequest, key string) (string, error) {
	val, err := request.RequireString(key)
	if err != nil || val == "" {
		return "", fmt.Errorf("missing required parameter %q", key)
	}
	return val, nil
}

func optionalString(request mcp.CallToolRequest, key string) string {
	return request.GetString(key, "")
}

func optionalFloat(request mcp.CallToolRequest, key string, defaultVal float64) float64 {
	return request.GetFloat(key, defaultVal)
}

func optionalBool(request mcp.CallToolRequest, key string) bool {
	return request.GetBool(key, false)
}

// --------------------------------------------------------------------------
// Response builders
// --------------------------------------------------------------------------

// successJSON marshals data to JSON and returns it as a tool result.
func successJSON(data interface{}) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}

// toolError returns a tool-level error result. The client sees the message
// and may retry; the MCP session stays open.
func toolError(format string, args ...interface{}) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(fmt.Sprintf(format, args...)), nil
}
