// Package chatter drives the conversation loop: LLM round-trips, tool
// dispatch, and the streamed sequence of envelopes produced by one turn.
package chatter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/KotobaMedia/binary-blackhole/internal/llm"
	"github.com/KotobaMedia/binary-blackhole/internal/pg"
	"github.com/KotobaMedia/binary-blackhole/internal/telemetry"
)

// MaxCompletionTokens caps every LLM reply.
const MaxCompletionTokens = 2048

// defaultMaxIterations bounds runaway tool loops within one turn.
const defaultMaxIterations = 50

// ErrUnknownTool is returned when the model calls a function that is not
// registered. It is fatal to the stream.
var ErrUnknownTool = errors.New("unknown tool call")

// ToolDispatcher is what the loop needs from the tool registry. Dispatch
// must fold every recoverable failure into the returned tool envelope; an
// error return is reserved for unknown tool names.
type ToolDispatcher interface {
	Definitions() []llm.ToolDefinition
	Dispatch(ctx context.Context, threadID, toolCallID, name, argsJSON string) (Message, error)
}

// StreamItem is one element of a turn's output stream: an envelope, or the
// fault that terminated it.
type StreamItem struct {
	Msg Message
	Err error
}

// Chatter runs conversation turns against one LLM client, one PG pool, and
// one tool dispatcher. It is safe to share across requests; each turn
// borrows its Context exclusively.
type Chatter struct {
	llm           llm.Client
	system        func(ctx context.Context) (Message, error)
	tools         ToolDispatcher
	maxIterations int
}

// New builds a Chatter whose system message is seeded from the dataset
// catalogue in db.
func New(client llm.Client, db *pg.DB, tools ToolDispatcher) *Chatter {
	return &Chatter{
		llm: client,
		system: func(ctx context.Context) (Message, error) {
			return SystemMessage(ctx, db)
		},
		tools:         tools,
		maxIterations: defaultMaxIterations,
	}
}

// Run executes one streamed turn. The context must already contain the
// user's message. Envelopes are emitted in append order, starting with the
// last envelope already present; the stream ends when the model replies
// without tool calls, or with a single faulted item. Cancelling ctx aborts
// in-flight LLM and tool work.
func (ch *Chatter) Run(ctx context.Context, cc *Context) <-chan StreamItem {
	out := make(chan StreamItem)
	go func() {
		defer close(out)
		if err := ch.run(ctx, cc, out); err != nil {
			select {
			case out <- StreamItem{Err: err}:
			case <-ctx.Done():
			}
		}
	}()
	return out
}

func (ch *Chatter) run(ctx context.Context, cc *Context, out chan<- StreamItem) error {
	emit := func(msg Message) bool {
		select {
		case out <- StreamItem{Msg: msg}:
			return true
		case <-ctx.Done():
			return false
		}
	}

	last, ok := cc.Last()
	if !ok {
		return fmt.Errorf("chatter: context has no messages")
	}
	if !emit(last) {
		return nil
	}

	system, err := ch.system(ctx)
	if err != nil {
		return err
	}

	for iteration := 0; ; iteration++ {
		if iteration >= ch.maxIterations {
			return fmt.Errorf("chatter: turn exceeded %d iterations", ch.maxIterations)
		}

		req := llm.ChatRequest{
			Model:               cc.Model,
			Messages:            toProviderMessages(system, cc.Messages),
			Tools:               cc.Tools,
			MaxCompletionTokens: MaxCompletionTokens,
		}

		var resp *llm.ChatResponse
		err := telemetry.WithSpan(ctx, "llm.chat", func(ctx context.Context) error {
			var err error
			resp, err = ch.llm.Chat(ctx, req)
			return err
		}, attribute.String("thread.id", cc.ID), attribute.Int("iteration", iteration))
		if err != nil {
			return fmt.Errorf("chatter: llm call failed: %w", err)
		}

		assistant := assistantMessage(resp)
		cc.Append(assistant)
		if !emit(assistant) {
			return nil
		}

		if len(assistant.ToolCalls) == 0 {
			return nil
		}

		for _, call := range assistant.ToolCalls {
			slog.Info("tool call", "thread", cc.ID, "tool", call.Name, "args_len", len(call.Arguments))

			var reply Message
			err := telemetry.WithSpan(ctx, "tool.dispatch", func(ctx context.Context) error {
				var err error
				reply, err = ch.tools.Dispatch(ctx, cc.ID, call.ID, call.Name, call.Arguments)
				return err
			}, attribute.String("tool.name", call.Name))
			if err != nil {
				return err
			}

			cc.Append(reply)
			if !emit(reply) {
				return nil
			}
		}
	}
}

// assistantMessage decodes the model's reply into an envelope.
func assistantMessage(resp *llm.ChatResponse) Message {
	msg := Message{Role: RoleAssistant, Sidecar: NoneSidecar()}
	if resp.Content != "" {
		content := resp.Content
		msg.Content = &content
	}
	for _, tc := range resp.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Name,
			Arguments: tc.Arguments,
		})
	}
	return msg
}

// toProviderMessages maps the system envelope plus the history into the
// provider shape.
func toProviderMessages(system Message, history []Message) []llm.Message {
	out := make([]llm.Message, 0, len(history)+1)
	out = append(out, toProviderMessage(system))
	for _, m := range history {
		out = append(out, toProviderMessage(m))
	}
	return out
}

func toProviderMessage(m Message) llm.Message {
	pm := llm.Message{
		Role:       string(m.Role),
		Content:    m.Text(),
		ToolCallID: m.ToolCallID,
	}
	for _, tc := range m.ToolCalls {
		pm.ToolCalls = append(pm.ToolCalls, llm.ToolCall{
			ID:        tc.ID,
			Name:      tc.Name,
			Arguments: tc.Arguments,
		})
	}
	return pm
}
