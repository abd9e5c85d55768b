package openapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
)

func mustGenerate(t *testing.T) *openapi3.T {
	t.Helper()
	doc, err := Generate("1.2.3", "http://localhost:8080")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return doc
}

func TestGenerate_Info(t *testing.T) {
	doc := mustGenerate(t)

	if doc.OpenAPI != "3.0.3" {
		t.Errorf("OpenAPI version = %q, want %q", doc.OpenAPI, "3.0.3")
	}
	if doc.Info == nil {
		t.Fatal("Info is nil")
	}
	if doc.Info.Version != "1.2.3" {
		t.Errorf("Info.Version = %q, want %q", doc.Info.Version, "1.2.3")
	}
	if len(doc.Servers) != 1 || doc.Servers[0].URL != "http://localhost:8080" {
		t.Errorf("Servers not set correctly")
	}

	noServer, err := Generate("dev", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(noServer.Servers) != 0 {
		t.Errorf("empty base URL should omit servers, got %d", len(noServer.Servers))
	}
}

func TestGenerate_SecuritySchemes(t *testing.T) {
	doc := mustGenerate(t)

	cookie, ok := doc.Components.SecuritySchemes["cookieAuth"]
	if !ok {
		t.Fatal("cookieAuth security scheme not found")
	}
	if cookie.Value.In != "cookie" || cookie.Value.Name != "AdminSession" {
		t.Errorf("cookieAuth = %s in %s, want AdminSession in cookie", cookie.Value.Name, cookie.Value.In)
	}

	bearer, ok := doc.Components.SecuritySchemes["bearerAuth"]
	if !ok {
		t.Fatal("bearerAuth security scheme not found")
	}
	if bearer.Value.Scheme != "bearer" {
		t.Errorf("bearerAuth.Scheme = %q, want %q", bearer.Value.Scheme, "bearer")
	}

	if len(doc.Security) != 0 {
		t.Errorf("security is per operation, got %d global requirements", len(doc.Security))
	}
}

func TestGenerate_EveryEndpointHasAnOperation(t *testing.T) {
	doc := mustGenerate(t)

	seen := map[string]bool{}
	for _, ep := range Endpoints {
		if seen[ep.OperationID] {
			t.Errorf("duplicate operation id %q", ep.OperationID)
		}
		seen[ep.OperationID] = true

		item := doc.Paths.Value(ep.Path)
		if item == nil {
			t.Errorf("path %s missing", ep.Path)
			continue
		}
		op := item.GetOperation(ep.Method)
		if op == nil {
			t.Errorf("%s %s missing", ep.Method, ep.Path)
			continue
		}
		if op.OperationID != ep.OperationID {
			t.Errorf("%s %s: operation id = %q, want %q", ep.Method, ep.Path, op.OperationID, ep.OperationID)
		}
		if op.Responses.Value(ep.Status) == nil {
			t.Errorf("%s: no %s response", ep.OperationID, ep.Status)
		}

		secured := op.Security != nil && len(*op.Security) > 0
		if secured != ep.Session {
			t.Errorf("%s: secured = %v, want %v", ep.OperationID, secured, ep.Session)
		}
		if (op.Responses.Value("401") != nil) != ep.Session {
			t.Errorf("%s: 401 response listed = %v, want %v", ep.OperationID, !ep.Session, ep.Session)
		}
	}
}

func TestGenerate_PathParametersMatchTemplates(t *testing.T) {
	for _, ep := range Endpoints {
		for _, p := range ep.PathParams {
			if !strings.Contains(ep.Path, "{"+p.Name+"}") {
				t.Errorf("%s: parameter %q not in path %s", ep.OperationID, p.Name, ep.Path)
			}
		}
		if strings.Count(ep.Path, "{") != len(ep.PathParams) {
			t.Errorf("%s: path %s declares %d parameters", ep.OperationID, ep.Path, len(ep.PathParams))
		}
	}
}

func TestGenerate_ModelSchemasHideSecrets(t *testing.T) {
	doc := mustGenerate(t)

	admin := doc.Components.Schemas["Admin"].Value
	if _, ok := admin.Properties["password_hash"]; ok {
		t.Error("Admin schema exposes password_hash")
	}
	for _, f := range []string{"id", "username", "is_active", "is_super_admin", "last_login_at"} {
		if _, ok := admin.Properties[f]; !ok {
			t.Errorf("Admin schema missing %q", f)
		}
	}

	session := doc.Components.Schemas["Session"].Value
	if _, ok := session.Properties["session_token"]; ok {
		t.Error("Session schema exposes session_token")
	}
	if _, ok := session.Properties["expires_at"]; !ok {
		t.Error("Session schema missing expires_at")
	}

	obj := doc.Components.Schemas["MapObject"].Value
	if !obj.Properties["id"].Value.ReadOnly {
		t.Error("MapObject.id should be read-only")
	}
	if strings.Join(obj.Required, ",") != "name,type" {
		t.Errorf("MapObject required = %v", obj.Required)
	}
}

func TestGenerate_ListResponsesUseEnvelope(t *testing.T) {
	doc := mustGenerate(t)

	op := doc.Paths.Value("/api/map/objects").GetOperation(http.MethodGet)
	content := op.Responses.Value("200").Value.Content.Get("application/json")
	if content == nil {
		t.Fatal("no JSON content for list response")
	}
	resource := content.Schema.Value.Properties["resource"]
	if resource == nil || resource.Value.Items.Ref != "#/components/schemas/MapObject" {
		t.Errorf("resource items = %+v", resource)
	}
	if _, ok := content.Schema.Value.Properties["meta"]; !ok {
		t.Error("list envelope missing meta")
	}
}

func TestGenerate_NoContentResponse(t *testing.T) {
	doc := mustGenerate(t)

	op := doc.Paths.Value("/api/admin/map-objects/{id}").GetOperation(http.MethodDelete)
	resp := op.Responses.Value("204")
	if resp == nil {
		t.Fatal("204 response missing")
	}
	if len(resp.Value.Content) != 0 {
		t.Error("204 response should have no content")
	}
}

func TestJSON(t *testing.T) {
	data, err := JSON("1.2.3", "")
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	paths, ok := raw["paths"].(map[string]interface{})
	if !ok {
		t.Fatal("paths missing")
	}
	if _, ok := paths["/api/auth/login"]; !ok {
		t.Error("login path missing from JSON output")
	}
}
