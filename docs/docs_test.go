package docs

import (
	"encoding/json"
	"testing"
)

func TestSwaggerDocRenders(t *testing.T) {
	rendered := SwaggerInfo.ReadDoc()

	var doc struct {
		Swagger  string                     `json:"swagger"`
		BasePath string                     `json:"basePath"`
		Paths    map[string]json.RawMessage `json:"paths"`
	}
	if err := json.Unmarshal([]byte(rendered), &doc); err != nil {
		t.Fatalf("rendered doc is not valid JSON: %v", err)
	}
	if doc.Swagger != "2.0" {
		t.Fatalf("swagger version = %q", doc.Swagger)
	}
	if doc.BasePath != "/api/v1" {
		t.Fatalf("basePath = %q", doc.BasePath)
	}

	for _, p := range []string{"/jobs", "/jobs/{id}", "/revisions", "/contacts", "/keywords"} {
		if _, ok := doc.Paths[p]; !ok {
			t.Fatalf("path %s missing from generated doc", p)
		}
	}
}
