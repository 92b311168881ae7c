package chatter

import (
	"context"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/KotobaMedia/binary-blackhole/internal/llm"
	"github.com/KotobaMedia/binary-blackhole/internal/pg"
)

// DefaultModel is the model id used by new contexts.
const DefaultModel = "gpt-4o"

const systemPromptTemplate = `You are a geospatial data analyst assisting a user exploring a PostGIS database.

Answer questions by querying the database with the tools available to you.
Queries shown to the user on the map must select an ID column named "_id" and a geometry column.
When the data the user asks about is not available, use the request_unavailable_data tool.

The following dataset tables are available:
%s
Use describe_tables before writing queries against a table you have not inspected yet.`

// Context is the in-memory conversation state for one thread: the message
// history (system message excluded), the model id, and the tool schemas.
type Context struct {
	ID       string
	Messages []Message
	Model    string
	Tools    []llm.ToolDefinition
}

// NewContext creates a fresh context with an empty history and a new ULID id.
func NewContext(tools []llm.ToolDefinition) *Context {
	return &Context{
		ID:    NewULID(),
		Model: DefaultModel,
		Tools: tools,
	}
}

// LoadContext rehydrates a context from stored messages. The stored history
// never contains the system message; it is rebuilt at send time.
func LoadContext(id string, stored []Message, tools []llm.ToolDefinition) *Context {
	return &Context{
		ID:       id,
		Messages: stored,
		Model:    DefaultModel,
		Tools:    tools,
	}
}

// Append pushes an envelope onto the history.
func (c *Context) Append(msg Message) {
	c.Messages = append(c.Messages, msg)
}

// AppendUser pushes a plain user envelope.
func (c *Context) AppendUser(text string) {
	c.Append(UserMessage(text))
}

// Last returns the most recent envelope.
func (c *Context) Last() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// SystemMessage builds the system envelope from the current dataset
// catalogue. It is prepended when the history is sent to the model and is
// never persisted or streamed to the caller.
func SystemMessage(ctx context.Context, db *pg.DB) (Message, error) {
	datasets, err := db.ListDatasets(ctx)
	if err != nil {
		return Message{}, fmt.Errorf("build system message: %w", err)
	}
	var tables strings.Builder
	for _, ds := range datasets {
		fmt.Fprintf(&tables, "- `%s`: %s\n", ds.TableName, ds.Name)
	}
	text := fmt.Sprintf(systemPromptTemplate, tables.String())
	return Message{Content: &text, Role: RoleSystem, Sidecar: NoneSidecar()}, nil
}

// NewULID mints a lexicographically sortable unique id.
func NewULID() string {
	return ulid.Make().String()
}
