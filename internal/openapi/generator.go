package openapi

import (
	"encoding/json"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3gen"

	"github.com/mapgame/mapgame/internal/model"
	"github.com/mapgame/mapgame/internal/server/middleware"
	"github.com/mapgame/mapgame/internal/service"
)

// Generate builds the OpenAPI 3 document of the HTTP API.
func Generate(version, baseURL string) (*openapi3.T, error) {
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       "Interactive Map API",
			Description: "Exhibit catalog, player interaction logging and admin session management.",
			Version:     version,
		},
		Tags: openapi3.Tags{
			{Name: "auth", Description: "Admin sign in, sign out and first-run setup."},
			{Name: "admin", Description: "Admin accounts and sessions."},
			{Name: "catalog", Description: "Map object administration."},
			{Name: "map", Description: "Public map API."},
		},
	}
	if baseURL != "" {
		doc.Servers = openapi3.Servers{{URL: baseURL}}
	}

	components := openapi3.NewComponents()
	components.Schemas = openapi3.Schemas{}
	components.SecuritySchemes = openapi3.SecuritySchemes{}
	doc.Components = &components

	doc.Components.SecuritySchemes["cookieAuth"] = &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{
			Type: "apiKey",
			In:   "cookie",
			Name: middleware.SessionCookieName,
		},
	}
	doc.Components.SecuritySchemes["bearerAuth"] = &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "opaque",
		},
	}

	if err := addModelSchemas(doc.Components.Schemas); err != nil {
		return nil, err
	}
	addMessageSchemas(doc.Components.Schemas)

	doc.Paths = openapi3.NewPaths()
	for _, ep := range Endpoints {
		item := doc.Paths.Value(ep.Path)
		if item == nil {
			item = &openapi3.PathItem{}
			doc.Paths.Set(ep.Path, item)
		}
		item.SetOperation(ep.Method, operation(ep))
	}
	return doc, nil
}

// JSON returns the generated document as indented JSON.
func JSON(version, baseURL string) ([]byte, error) {
	doc, err := Generate(version, baseURL)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(doc, "", "  ")
}

// ─── Schema Builders ────────────────────────────────────────────────────────

// addModelSchemas derives component schemas from the Go types the API
// serializes, so the document follows their json tags.
func addModelSchemas(schemas openapi3.Schemas) error {
	for name, v := range map[string]interface{}{
		"Admin":       model.Admin{},
		"Session":     model.Session{},
		"MapObject":   model.MapObject{},
		"Interaction": model.Interaction{},
		"NewAdmin":    service.NewAdmin{},
	} {
		ref, err := openapi3gen.NewSchemaRefForValue(v, nil)
		if err != nil {
			return fmt.Errorf("schema %s: %w", name, err)
		}
		schemas[name] = ref
	}

	// openapi3gen shares one schema between fields of the same Go type, so
	// mark read-only fields on copies.
	props := schemas["MapObject"].Value.Properties
	for _, f := range []string{"id", "created_at", "updated_at"} {
		if p, ok := props[f]; ok && p.Value != nil {
			cp := *p.Value
			cp.ReadOnly = true
			props[f] = openapi3.NewSchemaRef("", &cp)
		}
	}
	schemas["MapObject"].Value.Required = []string{"name", "type"}
	schemas["NewAdmin"].Value.Required = []string{"username", "password"}
	return nil
}

// addMessageSchemas registers the request and response bodies that have no
// exported Go type of their own.
func addMessageSchemas(schemas openapi3.Schemas) {
	str := openapi3.NewStringSchema
	integer := openapi3.NewInt64Schema

	schemas["ErrorResponse"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"error": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type: &openapi3.Types{"object"},
						Properties: openapi3.Schemas{
							"code":    &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32"}},
							"message": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
							"context": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}},
						},
					},
				},
			},
		},
	}

	schemas["LoginRequest"] = objectSchema(openapi3.Schemas{
		"username": openapi3.NewSchemaRef("", str()),
		"password": openapi3.NewSchemaRef("", str().WithFormat("password")),
	}, "username", "password")

	schemas["LoginResponse"] = objectSchema(openapi3.Schemas{
		"session_token": openapi3.NewSchemaRef("", str().WithMinLength(43).WithMaxLength(43)),
		"token_type":    openapi3.NewSchemaRef("", str().WithEnum("bearer")),
		"expires_in":    openapi3.NewSchemaRef("", integer().WithMin(0)),
		"admin":         openapi3.NewSchemaRef("#/components/schemas/Admin", nil),
	}, "session_token", "token_type", "expires_in", "admin")

	schemas["ChangePasswordRequest"] = objectSchema(openapi3.Schemas{
		"old_password": openapi3.NewSchemaRef("", str().WithFormat("password")),
		"new_password": openapi3.NewSchemaRef("", str().WithFormat("password").WithMinLength(8)),
	}, "new_password")

	schemas["InteractionRequest"] = objectSchema(openapi3.Schemas{
		"player_id":        openapi3.NewSchemaRef("", str()),
		"interaction_type": openapi3.NewSchemaRef("", str()),
		"interaction_data": openapi3.NewSchemaRef("", str()),
		"duration":         openapi3.NewSchemaRef("", openapi3.NewInt32Schema().WithMin(0)),
	}, "player_id", "interaction_type")

	schemas["InteractionResult"] = objectSchema(openapi3.Schemas{
		"message":        openapi3.NewSchemaRef("", str()),
		"interaction_id": openapi3.NewSchemaRef("", integer()),
	})

	schemas["StatusResponse"] = objectSchema(openapi3.Schemas{
		"success": openapi3.NewSchemaRef("", openapi3.NewBoolSchema()),
		"message": openapi3.NewSchemaRef("", str()),
	})

	schemas["LogoutAllResponse"] = objectSchema(openapi3.Schemas{
		"success":        openapi3.NewSchemaRef("", openapi3.NewBoolSchema()),
		"sessions_ended": openapi3.NewSchemaRef("", integer()),
	})
}

func objectSchema(props openapi3.Schemas, required ...string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:       &openapi3.Types{"object"},
			Properties: props,
			Required:   required,
		},
	}
}

// listSchema wraps the named component in the standard list envelope.
func listSchema(name string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"resource": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type:  &openapi3.Types{"array"},
						Items: openapi3.NewSchemaRef("#/components/schemas/"+name, nil),
					},
				},
				"meta": metaSchema(),
			},
		},
	}
}

// ─── Operation Builders ─────────────────────────────────────────────────────

func operation(ep Endpoint) *openapi3.Operation {
	op := &openapi3.Operation{
		Tags:        []string{ep.Tag},
		Summary:     ep.Summary,
		OperationID: ep.OperationID,
	}

	for _, p := range ep.PathParams {
		op.Parameters = append(op.Parameters, &openapi3.ParameterRef{
			Value: openapi3.NewPathParameter(p.Name).
				WithDescription(p.Description).
				WithSchema(paramSchema(p.Type)),
		})
	}
	for _, p := range ep.QueryParams {
		param := openapi3.NewQueryParameter(p.Name).
			WithDescription(p.Description).
			WithSchema(paramSchema(p.Type))
		param.Required = p.Required
		op.Parameters = append(op.Parameters, &openapi3.ParameterRef{Value: param})
	}

	if ep.Body != "" {
		op.RequestBody = &openapi3.RequestBodyRef{
			Value: openapi3.NewRequestBody().
				WithRequired(true).
				WithJSONSchemaRef(openapi3.NewSchemaRef("#/components/schemas/"+ep.Body, nil)),
		}
	}

	var schema *openapi3.SchemaRef
	switch {
	case ep.Response == "":
	case ep.List:
		schema = listSchema(ep.Response)
	default:
		schema = openapi3.NewSchemaRef("#/components/schemas/"+ep.Response, nil)
	}
	op.Responses = newResponses(ep.Status, ep.Summary, schema, ep.Session)

	if ep.Session {
		op.Security = &openapi3.SecurityRequirements{
			{"cookieAuth": {}},
			{"bearerAuth": {}},
		}
	}
	return op
}

func paramSchema(typ string) *openapi3.Schema {
	switch typ {
	case "integer":
		return openapi3.NewInt64Schema()
	case "number":
		return openapi3.NewFloat64Schema()
	case "boolean":
		return openapi3.NewBoolSchema()
	default:
		return openapi3.NewStringSchema()
	}
}

// ─── Response Helpers ───────────────────────────────────────────────────────

// newResponses builds a Responses map with a success response and the error
// responses every endpoint can return. 401 is only listed for endpoints
// that need a session.
func newResponses(statusCode, description string, schema *openapi3.SchemaRef, session bool) *openapi3.Responses {
	responses := openapi3.NewResponses()

	success := &openapi3.Response{Description: &description}
	if schema != nil {
		success.Content = openapi3.NewContentWithJSONSchemaRef(schema)
	}
	responses.Set(statusCode, &openapi3.ResponseRef{Value: success})

	errorRef := openapi3.NewSchemaRef("#/components/schemas/ErrorResponse", nil)
	errorResponse := func(code, desc string) {
		responses.Set(code, &openapi3.ResponseRef{
			Value: &openapi3.Response{
				Description: &desc,
				Content:     openapi3.NewContentWithJSONSchemaRef(errorRef),
			},
		})
	}

	errorResponse("400", "Bad request")
	if session {
		errorResponse("401", "Unauthorized")
	}
	errorResponse("404", "Not found")
	errorResponse("500", "Internal server error")
	return responses
}

// metaSchema returns the schema for the "meta" field in list responses.
func metaSchema() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"count": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type:        &openapi3.Types{"integer"},
						Format:      "int64",
						Description: "Number of records in resource.",
					},
				},
			},
		},
	}
}
