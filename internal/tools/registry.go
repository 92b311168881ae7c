// Package tools holds the LLM-callable function registry and its three
// concrete tools.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/invopop/jsonschema"

	"github.com/KotobaMedia/binary-blackhole/internal/chatter"
	"github.com/KotobaMedia/binary-blackhole/internal/llm"
	"github.com/KotobaMedia/binary-blackhole/internal/pg"
	"github.com/KotobaMedia/binary-blackhole/internal/store"
)

// Resources is the immutable bundle handed to every tool execution. Tools
// never mutate conversation state; they return envelopes the loop appends.
type Resources struct {
	PG    *pg.DB
	Store *store.DB
}

// Tool is one named function the model can call.
type Tool interface {
	Name() string
	Description() string
	ParameterSchema() *jsonschema.Schema
	Execute(ctx context.Context, res *Resources, threadID, toolCallID, argsJSON string) (chatter.Message, error)
}

// Registry maps tool names to implementations and adapts them to the
// chatter.ToolDispatcher contract.
type Registry struct {
	res   *Resources
	tools map[string]Tool
	order []string
}

// NewRegistry builds a registry over the given tools.
func NewRegistry(res *Resources, tools ...Tool) *Registry {
	r := &Registry{res: res, tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		r.tools[t.Name()] = t
		r.order = append(r.order, t.Name())
	}
	return r
}

// DefaultRegistry wires the three production tools.
func DefaultRegistry(res *Resources) *Registry {
	return NewRegistry(res,
		&DescribeTablesTool{},
		&QueryDatabaseTool{},
		&RequestUnavailableDataTool{},
	)
}

// Definitions returns the provider-facing tool schemas in registration order.
func (r *Registry) Definitions() []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, llm.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.ParameterSchema(),
			Strict:      true,
		})
	}
	return defs
}

// Dispatch routes one tool call. Unknown names are fatal to the caller's
// stream; every other failure is folded into an error tool envelope so the
// model can recover.
func (r *Registry) Dispatch(ctx context.Context, threadID, toolCallID, name, argsJSON string) (chatter.Message, error) {
	t, ok := r.tools[name]
	if !ok {
		return chatter.Message{}, fmt.Errorf("%w: %s", chatter.ErrUnknownTool, name)
	}

	msg, err := t.Execute(ctx, r.res, threadID, toolCallID, argsJSON)
	if err != nil {
		slog.Warn("tool error", "tool", name, "error", err)
		return errorReply(toolCallID, err.Error()), nil
	}
	return msg, nil
}

// errorReply wraps a failure as a tool envelope with an error sidecar.
func errorReply(toolCallID, message string) chatter.Message {
	body, _ := json.Marshal(map[string]any{
		"error":   true,
		"message": message,
	})
	return chatter.ToolMessage(toolCallID, string(body), chatter.Sidecar{Kind: chatter.SidecarSQLExecutionError})
}

// GenerateSchema reflects a strict JSON schema for a parameter struct:
// unknown fields rejected, no $ref indirection.
func GenerateSchema[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

// decodeStrict parses tool arguments, rejecting unknown fields.
func decodeStrict[T any](argsJSON string) (T, error) {
	var params T
	dec := json.NewDecoder(bytes.NewReader([]byte(argsJSON)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&params); err != nil {
		return params, fmt.Errorf("invalid arguments: %w", err)
	}
	return params, nil
}
