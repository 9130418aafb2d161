package validate

import (
	"errors"
	"testing"
)

func testSchema() *Schema {
	return &Schema{
		Name: "test-object",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name":  map[string]any{"type": "string"},
				"count": map[string]any{"type": "integer", "minimum": 0},
				"kind":  map[string]any{"type": "string", "enum": []any{"a", "b"}},
			},
			"required": []any{"name", "count"},
		},
	}
}

func TestJSON_Valid(t *testing.T) {
	if err := JSON(testSchema(), []byte(`{"name":"x","count":3,"kind":"a"}`)); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
}

func TestJSON_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"missing required", `{"name":"x"}`},
		{"wrong type", `{"name":"x","count":"three"}`},
		{"negative", `{"name":"x","count":-1}`},
		{"bad enum", `{"name":"x","count":1,"kind":"z"}`},
		{"malformed", `{nope}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := JSON(testSchema(), []byte(tt.raw))
			if err == nil {
				t.Fatal("expected error")
			}
			var inv *ErrInvalidDocument
			if !errors.As(err, &inv) {
				t.Fatalf("expected ErrInvalidDocument, got: %T", err)
			}
			if inv.Schema != "test-object" {
				t.Errorf("Schema = %q, want test-object", inv.Schema)
			}
		})
	}
}

func TestSchemaCached(t *testing.T) {
	s := testSchema()
	s.Name = "cache-check"
	if err := JSON(s, []byte(`{"name":"x","count":1}`)); err != nil {
		t.Fatalf("first validate: %v", err)
	}
	if _, ok := schemaCache.Load("cache-check"); !ok {
		t.Fatal("expected compiled schema in cache")
	}
}
