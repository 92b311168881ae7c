package chatter

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestSidecarJSONRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		sidecar Sidecar
		want    string
	}{
		{
			name:    "none",
			sidecar: NoneSidecar(),
			want:    `"None"`,
		},
		{
			name:    "zero value encodes as none",
			sidecar: Sidecar{},
			want:    `"None"`,
		},
		{
			name:    "error",
			sidecar: Sidecar{Kind: SidecarSQLExecutionError},
			want:    `"SQLExecutionError"`,
		},
		{
			name:    "lookup",
			sidecar: Sidecar{Kind: SidecarDatabaseLookup},
			want:    `"DatabaseLookup"`,
		},
		{
			name: "sql execution",
			sidecar: Sidecar{
				Kind: SidecarSQLExecution,
				SQL:  &SQLExecutionDetails{ID: "q1", Name: "Prefectures", SQL: "SELECT 1"},
			},
			want: `{"SQLExecution":{"id":"q1","name":"Prefectures","sql":"SELECT 1"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.sidecar)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("marshal = %s, want %s", data, tt.want)
			}

			var back Sidecar
			if err := json.Unmarshal(data, &back); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if back.Kind == "" {
				back.Kind = SidecarNone
			}
			wantBack := tt.sidecar
			if wantBack.Kind == "" {
				wantBack.Kind = SidecarNone
			}
			if !reflect.DeepEqual(back, wantBack) {
				t.Errorf("round trip = %+v, want %+v", back, wantBack)
			}
		})
	}
}

func TestSidecarUnmarshalRejectsUnknown(t *testing.T) {
	var s Sidecar
	if err := json.Unmarshal([]byte(`"SomethingElse"`), &s); err == nil {
		t.Error("expected error for unknown unit variant")
	}
	if err := json.Unmarshal([]byte(`{"Other":{}}`), &s); err == nil {
		t.Error("expected error for unknown object variant")
	}
}

func TestMessageJSONRoundTrip(t *testing.T) {
	content := "run it"
	msg := Message{
		Content: &content,
		Role:    RoleAssistant,
		ToolCalls: []ToolCall{
			{ID: "call_1", Name: "query_database", Arguments: `{"query_id":"","name":"n","query":"SELECT 1"}`},
		},
		Sidecar: NoneSidecar(),
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Message
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(msg, back) {
		t.Errorf("round trip = %+v, want %+v", back, msg)
	}
}

func TestToolMessageRoundTripKeepsSidecar(t *testing.T) {
	msg := ToolMessage("call_9", `{"query_id":"q","tsv":"a\tb","tsv_rows":2}`, Sidecar{
		Kind: SidecarSQLExecution,
		SQL:  &SQLExecutionDetails{ID: "q", Name: "Test", SQL: "SELECT 1"},
	})

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Message
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Sidecar.Kind != SidecarSQLExecution {
		t.Fatalf("sidecar kind = %q, want SQLExecution", back.Sidecar.Kind)
	}
	if back.Sidecar.SQL == nil || back.Sidecar.SQL.ID != "q" {
		t.Errorf("sidecar details lost: %+v", back.Sidecar.SQL)
	}
	if back.ToolCallID != "call_9" {
		t.Errorf("tool_call_id = %q, want call_9", back.ToolCallID)
	}
}

func TestSidecarDynamoRoundTrip(t *testing.T) {
	tests := []Sidecar{
		NoneSidecar(),
		{Kind: SidecarSQLExecutionError},
		{Kind: SidecarDatabaseLookup},
		{Kind: SidecarSQLExecution, SQL: &SQLExecutionDetails{ID: "a", Name: "b", SQL: "c"}},
	}
	for _, sc := range tests {
		av, err := sc.MarshalDynamoDBAttributeValue()
		if err != nil {
			t.Fatalf("marshal %+v: %v", sc, err)
		}
		var back Sidecar
		if err := back.UnmarshalDynamoDBAttributeValue(av); err != nil {
			t.Fatalf("unmarshal %+v: %v", sc, err)
		}
		if !reflect.DeepEqual(sc, back) {
			t.Errorf("round trip = %+v, want %+v", back, sc)
		}
	}
}
