package tools

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/KotobaMedia/binary-blackhole/internal/chatter"
	"github.com/KotobaMedia/binary-blackhole/internal/pg"
	"github.com/KotobaMedia/binary-blackhole/internal/store"
)

// QueryDatabaseParams are the arguments for query_database.
type QueryDatabaseParams struct {
	// QueryID revises an existing saved query when set; an empty string
	// mints a new one.
	QueryID string `json:"query_id" jsonschema:"description=The ID of the query. When updating or revising a query\\, provide the ID of the query you want to update. If this is a new query\\, pass an empty string."`

	Name string `json:"name" jsonschema:"description=The name this query will be referred to as. This will be shown to the user. It must be short and descriptive."`

	Query string `json:"query" jsonschema:"description=The SQL query to execute."`
}

// QueryDatabaseTool validates a candidate query against the database,
// persists it for tiling, and returns a sample to the model.
type QueryDatabaseTool struct{}

func (t *QueryDatabaseTool) Name() string { return "query_database" }

func (t *QueryDatabaseTool) Description() string {
	return "Query the database and show results to the user. You will have access to a limited subset of the output.\n" +
		"If the query is not correct, an error message will be returned.\n" +
		"If an error is returned, rewrite the query and try again.\n" +
		"When updating previous queries, provide the `query_id` parameter with the ID of the query you are updating."
}

func (t *QueryDatabaseTool) ParameterSchema() *jsonschema.Schema {
	return GenerateSchema[QueryDatabaseParams]()
}

func (t *QueryDatabaseTool) Execute(ctx context.Context, res *Resources, threadID, toolCallID, argsJSON string) (chatter.Message, error) {
	params, err := decodeStrict[QueryDatabaseParams](argsJSON)
	if err != nil {
		return chatter.Message{}, err
	}

	query := StripTrailingSemicolon(params.Query)
	queryID := params.QueryID
	if queryID == "" {
		queryID = chatter.NewULID()
	}

	sample, err := res.PG.SampleQuery(ctx, query, pg.SampleSize)
	if err != nil {
		return queryErrorReply(toolCallID, queryID, pg.FormatDBError(err)), nil
	}
	if err := pg.ValidateSample(sample); err != nil {
		return queryErrorReply(toolCallID, queryID, err.Error()), nil
	}

	record := store.NewSqlQuery(threadID, queryID, params.Name, query, store.NowMillis())
	if err := res.Store.Put(ctx, record); err != nil {
		return chatter.Message{}, err
	}

	slog.Info("saved query", "thread", threadID, "query_id", queryID, "name", params.Name)

	body, _ := json.Marshal(map[string]any{
		"query_id": queryID,
		"tsv":      pg.RowsToTSV(sample),
		"tsv_rows": len(sample.Rows),
	})
	sidecar := chatter.Sidecar{
		Kind: chatter.SidecarSQLExecution,
		SQL: &chatter.SQLExecutionDetails{
			ID:   queryID,
			Name: params.Name,
			SQL:  query,
		},
	}
	return chatter.ToolMessage(toolCallID, string(body), sidecar), nil
}

// queryErrorReply builds the recoverable error envelope fed back to the model.
func queryErrorReply(toolCallID, queryID, message string) chatter.Message {
	body, _ := json.Marshal(map[string]any{
		"query_id": queryID,
		"error":    true,
		"message":  message,
	})
	return chatter.ToolMessage(toolCallID, string(body), chatter.Sidecar{Kind: chatter.SidecarSQLExecutionError})
}

// StripTrailingSemicolon removes at most one trailing semicolon so the SQL
// can be embedded as a sub-query.
func StripTrailingSemicolon(query string) string {
	return strings.TrimSuffix(strings.TrimRight(query, " \t\r\n"), ";")
}
