package openapi

import "net/http"

// Param describes a path or query parameter.
type Param struct {
	Name        string
	Type        string // OpenAPI type: string, integer, number, boolean
	Description string
	Required    bool
}

// Endpoint describes one operation of the HTTP API.
type Endpoint struct {
	Method      string
	Path        string
	OperationID string
	Summary     string
	Tag         string

	// Session marks operations that need an admin session cookie or bearer
	// token.
	Session bool

	PathParams  []Param
	QueryParams []Param

	// Body names the component schema of the JSON request body, if any.
	Body string

	// Status is the success status code. Response names the component
	// schema returned on success; List wraps it in the list envelope.
	Status   string
	Response string
	List     bool
}

var idParam = Param{Name: "id", Type: "integer", Description: "Numeric identifier.", Required: true}

// Endpoints is the JSON API served by mapgame. HTML pages under /admin are
// not part of the document.
var Endpoints = []Endpoint{
	// Auth
	{
		Method: http.MethodPost, Path: "/api/auth/login", OperationID: "login", Tag: "auth",
		Summary: "Sign in and start an admin session",
		Body:    "LoginRequest", Status: "200", Response: "LoginResponse",
	},
	{
		Method: http.MethodPost, Path: "/api/auth/logout", OperationID: "logout", Tag: "auth",
		Summary: "End the current admin session",
		Status:  "200", Response: "StatusResponse",
	},
	{
		Method: http.MethodPost, Path: "/api/auth/setup", OperationID: "setup", Tag: "auth",
		Summary: "Create the first admin account",
		Body:    "NewAdmin", Status: "201", Response: "Admin",
	},

	// Admin accounts and sessions
	{
		Method: http.MethodGet, Path: "/api/admin/me", OperationID: "getCurrentAdmin", Tag: "admin",
		Summary: "Return the signed-in admin", Session: true,
		Status: "200", Response: "Admin",
	},
	{
		Method: http.MethodGet, Path: "/api/admin/admins", OperationID: "listAdmins", Tag: "admin",
		Summary: "List admin accounts", Session: true,
		Status: "200", Response: "Admin", List: true,
	},
	{
		Method: http.MethodPost, Path: "/api/admin/admins", OperationID: "createAdmin", Tag: "admin",
		Summary: "Create an admin account", Session: true,
		Body: "NewAdmin", Status: "201", Response: "Admin",
	},
	{
		Method: http.MethodPut, Path: "/api/admin/admins/{id}/deactivate", OperationID: "deactivateAdmin", Tag: "admin",
		Summary: "Deactivate an admin account and end its sessions", Session: true,
		PathParams: []Param{idParam}, Status: "200", Response: "StatusResponse",
	},
	{
		Method: http.MethodPut, Path: "/api/admin/admins/{id}/activate", OperationID: "activateAdmin", Tag: "admin",
		Summary: "Reactivate an admin account", Session: true,
		PathParams: []Param{idParam}, Status: "200", Response: "StatusResponse",
	},
	{
		Method: http.MethodPut, Path: "/api/admin/admins/{id}/password", OperationID: "changeAdminPassword", Tag: "admin",
		Summary: "Change an admin password", Session: true,
		PathParams: []Param{idParam}, Body: "ChangePasswordRequest", Status: "200", Response: "StatusResponse",
	},
	{
		Method: http.MethodDelete, Path: "/api/admin/admins/{id}", OperationID: "deleteAdmin", Tag: "admin",
		Summary: "Delete an admin account and its sessions", Session: true,
		PathParams: []Param{idParam}, Status: "200", Response: "StatusResponse",
	},
	{
		Method: http.MethodGet, Path: "/api/admin/sessions", OperationID: "listSessions", Tag: "admin",
		Summary: "List the signed-in admin's active sessions", Session: true,
		Status: "200", Response: "Session", List: true,
	},
	{
		Method: http.MethodPost, Path: "/api/admin/sessions/logout-all", OperationID: "logoutAll", Tag: "admin",
		Summary: "End every session of the signed-in admin", Session: true,
		Status: "200", Response: "LogoutAllResponse",
	},

	// Catalog administration
	{
		Method: http.MethodGet, Path: "/api/admin/map-objects", OperationID: "adminListMapObjects", Tag: "catalog",
		Summary: "List all map objects, hidden ones included", Session: true,
		QueryParams: []Param{
			{Name: "type", Type: "string", Description: "Only objects of this type (case-insensitive)."},
			{Name: "discoverable", Type: "boolean", Description: "Only discoverable objects."},
			{Name: "unlocked", Type: "boolean", Description: "Only unlocked objects."},
		},
		Status: "200", Response: "MapObject", List: true,
	},
	{
		Method: http.MethodPost, Path: "/api/admin/map-objects", OperationID: "createMapObject", Tag: "catalog",
		Summary: "Create a map object", Session: true,
		Body: "MapObject", Status: "201", Response: "MapObject",
	},
	{
		Method: http.MethodGet, Path: "/api/admin/map-objects/{id}", OperationID: "adminGetMapObject", Tag: "catalog",
		Summary: "Get a map object", Session: true,
		PathParams: []Param{idParam}, Status: "200", Response: "MapObject",
	},
	{
		Method: http.MethodPut, Path: "/api/admin/map-objects/{id}", OperationID: "updateMapObject", Tag: "catalog",
		Summary: "Replace a map object", Session: true,
		PathParams: []Param{idParam}, Body: "MapObject", Status: "200", Response: "MapObject",
	},
	{
		Method: http.MethodDelete, Path: "/api/admin/map-objects/{id}", OperationID: "deleteMapObject", Tag: "catalog",
		Summary: "Delete a map object and its interactions", Session: true,
		PathParams: []Param{idParam}, Status: "204",
	},
	{
		Method: http.MethodGet, Path: "/api/admin/map-objects/{id}/interactions", OperationID: "listInteractions", Tag: "catalog",
		Summary: "List recent interactions with a map object", Session: true,
		PathParams:  []Param{idParam},
		QueryParams: []Param{{Name: "limit", Type: "integer", Description: "Maximum number of interactions (default 50)."}},
		Status:      "200", Response: "Interaction", List: true,
	},

	// Public map
	{
		Method: http.MethodGet, Path: "/api/map/objects", OperationID: "listMapObjects", Tag: "map",
		Summary: "List discoverable map objects",
		Status:  "200", Response: "MapObject", List: true,
	},
	{
		Method: http.MethodGet, Path: "/api/map/objects/nearby", OperationID: "nearbyMapObjects", Tag: "map",
		Summary: "List discoverable map objects near a point, nearest first",
		QueryParams: []Param{
			{Name: "x", Type: "number", Description: "X coordinate (default 0)."},
			{Name: "y", Type: "number", Description: "Y coordinate (default 0)."},
			{Name: "z", Type: "number", Description: "Z coordinate (default 0)."},
			{Name: "radius", Type: "number", Description: "Search radius (default 100)."},
		},
		Status: "200", Response: "MapObject", List: true,
	},
	{
		Method: http.MethodGet, Path: "/api/map/objects/unlocked", OperationID: "unlockedMapObjects", Tag: "map",
		Summary: "List unlocked discoverable map objects",
		Status:  "200", Response: "MapObject", List: true,
	},
	{
		Method: http.MethodGet, Path: "/api/map/objects/type/{type}", OperationID: "mapObjectsByType", Tag: "map",
		Summary:    "List discoverable map objects of one type",
		PathParams: []Param{{Name: "type", Type: "string", Description: "Object type, compared case-insensitively.", Required: true}},
		Status:     "200", Response: "MapObject", List: true,
	},
	{
		Method: http.MethodGet, Path: "/api/map/objects/{id}", OperationID: "getMapObject", Tag: "map",
		Summary:    "Get a map object",
		PathParams: []Param{idParam}, Status: "200", Response: "MapObject",
	},
	{
		Method: http.MethodPost, Path: "/api/map/objects/{id}/interact", OperationID: "interact", Tag: "map",
		Summary:    "Log a player interaction with a map object",
		PathParams: []Param{idParam}, Body: "InteractionRequest", Status: "200", Response: "InteractionResult",
	},
}
