package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/KotobaMedia/binary-blackhole/internal/chatter"
)

func TestStripTrailingSemicolon(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"SELECT 1", "SELECT 1"},
		{"SELECT 1;", "SELECT 1"},
		{"SELECT 1;\n", "SELECT 1"},
		{"SELECT 1;;", "SELECT 1;"},
		{"SELECT ';' FROM t;", "SELECT ';' FROM t"},
	}
	for _, tt := range tests {
		if got := StripTrailingSemicolon(tt.in); got != tt.want {
			t.Errorf("StripTrailingSemicolon(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGenerateSchemaIsStrict(t *testing.T) {
	schema := GenerateSchema[QueryDatabaseParams]()

	data, err := json.Marshal(schema)
	if err != nil {
		t.Fatalf("marshal schema: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal schema: %v", err)
	}

	if add, ok := decoded["additionalProperties"].(bool); !ok || add {
		t.Errorf("additionalProperties = %v, want false", decoded["additionalProperties"])
	}

	props, ok := decoded["properties"].(map[string]any)
	if !ok {
		t.Fatal("schema has no properties")
	}
	for _, field := range []string{"query_id", "name", "query"} {
		if _, ok := props[field]; !ok {
			t.Errorf("schema missing property %q", field)
		}
	}

	required, _ := decoded["required"].([]any)
	if len(required) != 3 {
		t.Errorf("required = %v, want all three fields", required)
	}
}

func TestRegistryDefinitions(t *testing.T) {
	reg := DefaultRegistry(&Resources{})
	defs := reg.Definitions()
	if len(defs) != 3 {
		t.Fatalf("got %d definitions, want 3", len(defs))
	}
	wantNames := []string{"describe_tables", "query_database", "request_unavailable_data"}
	for i, name := range wantNames {
		if defs[i].Name != name {
			t.Errorf("defs[%d].Name = %q, want %q", i, defs[i].Name, name)
		}
		if !defs[i].Strict {
			t.Errorf("defs[%d] not strict", i)
		}
	}
}

func TestDispatchUnknownToolIsFatal(t *testing.T) {
	reg := DefaultRegistry(&Resources{})
	_, err := reg.Dispatch(context.Background(), "thread1", "call_1", "delete_database", `{}`)
	if !errors.Is(err, chatter.ErrUnknownTool) {
		t.Fatalf("err = %v, want ErrUnknownTool", err)
	}
}

func TestDispatchBadArgumentsBecomesToolReply(t *testing.T) {
	reg := DefaultRegistry(&Resources{})

	// Unknown field rejected by the strict decoder; no database is touched.
	msg, err := reg.Dispatch(context.Background(), "thread1", "call_1", "describe_tables",
		`{"table_names":["a"],"bogus":true}`)
	if err != nil {
		t.Fatalf("schema violations must not fail the loop: %v", err)
	}
	if msg.Role != chatter.RoleTool {
		t.Errorf("role = %s, want tool", msg.Role)
	}
	if msg.ToolCallID != "call_1" {
		t.Errorf("tool_call_id = %q", msg.ToolCallID)
	}
	if msg.Sidecar.Kind != chatter.SidecarSQLExecutionError {
		t.Errorf("sidecar = %q, want SQLExecutionError", msg.Sidecar.Kind)
	}

	var body struct {
		Error   bool   `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(msg.Text()), &body); err != nil {
		t.Fatalf("tool reply body is not JSON: %v", err)
	}
	if !body.Error || body.Message == "" {
		t.Errorf("body = %+v, want error payload", body)
	}
}

func TestDispatchMalformedJSONBecomesToolReply(t *testing.T) {
	reg := DefaultRegistry(&Resources{})
	msg, err := reg.Dispatch(context.Background(), "thread1", "call_2", "query_database", `{not json`)
	if err != nil {
		t.Fatalf("malformed arguments must not fail the loop: %v", err)
	}
	if msg.Sidecar.Kind != chatter.SidecarSQLExecutionError {
		t.Errorf("sidecar = %q, want SQLExecutionError", msg.Sidecar.Kind)
	}
}
