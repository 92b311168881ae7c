package chatter

import (
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Role identifies who produced a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a function invocation requested by the model.
// Arguments is the raw JSON string exactly as the model produced it.
type ToolCall struct {
	ID        string `json:"id" dynamodbav:"id"`
	Name      string `json:"name" dynamodbav:"name"`
	Arguments string `json:"arguments" dynamodbav:"arguments"`
}

// SidecarKind discriminates the Sidecar union.
type SidecarKind string

const (
	SidecarNone              SidecarKind = "None"
	SidecarSQLExecution      SidecarKind = "SQLExecution"
	SidecarSQLExecutionError SidecarKind = "SQLExecutionError"
	SidecarDatabaseLookup    SidecarKind = "DatabaseLookup"
)

// SQLExecutionDetails carries the saved-query reference for the UI.
type SQLExecutionDetails struct {
	ID   string `json:"id" dynamodbav:"id"`
	Name string `json:"name" dynamodbav:"name"`
	SQL  string `json:"sql" dynamodbav:"sql"`
}

// Sidecar is the side-band classification attached to a message. It is
// consumed by the UI and never sent to the LLM. The union is closed:
// None, SQLExecution (with details), SQLExecutionError, DatabaseLookup.
type Sidecar struct {
	Kind SidecarKind
	SQL  *SQLExecutionDetails
}

// NoneSidecar is the zero classification.
func NoneSidecar() Sidecar { return Sidecar{Kind: SidecarNone} }

// IsNone reports whether the sidecar carries no classification.
func (s Sidecar) IsNone() bool { return s.Kind == "" || s.Kind == SidecarNone }

// IsZero lets encoders with omitzero semantics skip empty sidecars.
func (s Sidecar) IsZero() bool { return s.IsNone() }

// MarshalJSON renders unit variants as bare strings and SQLExecution as a
// single-key object, e.g. {"SQLExecution":{"id":...,"name":...,"sql":...}}.
func (s Sidecar) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case "", SidecarNone:
		return json.Marshal(string(SidecarNone))
	case SidecarSQLExecutionError, SidecarDatabaseLookup:
		return json.Marshal(string(s.Kind))
	case SidecarSQLExecution:
		details := s.SQL
		if details == nil {
			details = &SQLExecutionDetails{}
		}
		return json.Marshal(map[string]*SQLExecutionDetails{string(SidecarSQLExecution): details})
	}
	return nil, fmt.Errorf("unknown sidecar kind: %q", s.Kind)
}

// UnmarshalJSON accepts both encodings produced by MarshalJSON.
func (s *Sidecar) UnmarshalJSON(data []byte) error {
	var unit string
	if err := json.Unmarshal(data, &unit); err == nil {
		switch SidecarKind(unit) {
		case SidecarNone, SidecarSQLExecutionError, SidecarDatabaseLookup:
			s.Kind = SidecarKind(unit)
			s.SQL = nil
			return nil
		}
		return fmt.Errorf("unknown sidecar variant: %q", unit)
	}
	var tagged map[string]*SQLExecutionDetails
	if err := json.Unmarshal(data, &tagged); err != nil {
		return fmt.Errorf("decode sidecar: %w", err)
	}
	details, ok := tagged[string(SidecarSQLExecution)]
	if !ok || len(tagged) != 1 {
		return fmt.Errorf("unknown sidecar object: %s", data)
	}
	s.Kind = SidecarSQLExecution
	s.SQL = details
	return nil
}

// MarshalDynamoDBAttributeValue stores the sidecar in the same shape as the
// JSON encoding: a string for unit variants, a map for SQLExecution.
func (s Sidecar) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	switch s.Kind {
	case "", SidecarNone, SidecarSQLExecutionError, SidecarDatabaseLookup:
		kind := s.Kind
		if kind == "" {
			kind = SidecarNone
		}
		return &types.AttributeValueMemberS{Value: string(kind)}, nil
	case SidecarSQLExecution:
		details := s.SQL
		if details == nil {
			details = &SQLExecutionDetails{}
		}
		inner := map[string]types.AttributeValue{
			"id":   &types.AttributeValueMemberS{Value: details.ID},
			"name": &types.AttributeValueMemberS{Value: details.Name},
			"sql":  &types.AttributeValueMemberS{Value: details.SQL},
		}
		return &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
			string(SidecarSQLExecution): &types.AttributeValueMemberM{Value: inner},
		}}, nil
	}
	return nil, fmt.Errorf("unknown sidecar kind: %q", s.Kind)
}

// UnmarshalDynamoDBAttributeValue is the inverse of MarshalDynamoDBAttributeValue.
func (s *Sidecar) UnmarshalDynamoDBAttributeValue(av types.AttributeValue) error {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		switch SidecarKind(v.Value) {
		case SidecarNone, SidecarSQLExecutionError, SidecarDatabaseLookup:
			s.Kind = SidecarKind(v.Value)
			s.SQL = nil
			return nil
		}
		return fmt.Errorf("unknown sidecar variant: %q", v.Value)
	case *types.AttributeValueMemberM:
		inner, ok := v.Value[string(SidecarSQLExecution)]
		if !ok {
			return fmt.Errorf("unknown sidecar object")
		}
		m, ok := inner.(*types.AttributeValueMemberM)
		if !ok {
			return fmt.Errorf("malformed SQLExecution sidecar")
		}
		details := &SQLExecutionDetails{}
		if id, ok := m.Value["id"].(*types.AttributeValueMemberS); ok {
			details.ID = id.Value
		}
		if name, ok := m.Value["name"].(*types.AttributeValueMemberS); ok {
			details.Name = name.Value
		}
		if sql, ok := m.Value["sql"].(*types.AttributeValueMemberS); ok {
			details.SQL = sql.Value
		}
		s.Kind = SidecarSQLExecution
		s.SQL = details
		return nil
	}
	return fmt.Errorf("unexpected sidecar attribute type %T", av)
}

// Message is one turn of a conversation: the envelope that is persisted,
// streamed to the caller, and mapped to the LLM wire format.
type Message struct {
	Content    *string    `json:"message,omitempty" dynamodbav:"message,omitempty"`
	Role       Role       `json:"role" dynamodbav:"role"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty" dynamodbav:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty" dynamodbav:"tool_call_id,omitempty"`
	Sidecar    Sidecar    `json:"sidecar" dynamodbav:"sidecar"`
}

// UserMessage builds a plain user envelope.
func UserMessage(text string) Message {
	return Message{Content: &text, Role: RoleUser, Sidecar: NoneSidecar()}
}

// ToolMessage builds a tool reply envelope for the given call.
func ToolMessage(toolCallID, content string, sidecar Sidecar) Message {
	return Message{
		Content:    &content,
		Role:       RoleTool,
		ToolCallID: toolCallID,
		Sidecar:    sidecar,
	}
}

// Text returns the content or "" when absent.
func (m Message) Text() string {
	if m.Content == nil {
		return ""
	}
	return *m.Content
}
