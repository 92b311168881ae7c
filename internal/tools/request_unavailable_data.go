package tools

import (
	"context"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/KotobaMedia/binary-blackhole/internal/chatter"
	"github.com/KotobaMedia/binary-blackhole/internal/store"
)

// RequestUnavailableDataParams are the arguments for request_unavailable_data.
type RequestUnavailableDataParams struct {
	Name        string `json:"name" jsonschema:"description=The name of the data that is unavailable."`
	Explanation string `json:"explanation" jsonschema:"description=An explanation of why the data would be relevant to the user."`
}

// RequestUnavailableDataTool records a pending request for missing data.
type RequestUnavailableDataTool struct{}

func (t *RequestUnavailableDataTool) Name() string { return "request_unavailable_data" }

func (t *RequestUnavailableDataTool) Description() string {
	return "Puts in a request for data that is currently unavailable."
}

func (t *RequestUnavailableDataTool) ParameterSchema() *jsonschema.Schema {
	return GenerateSchema[RequestUnavailableDataParams]()
}

func (t *RequestUnavailableDataTool) Execute(ctx context.Context, res *Resources, threadID, toolCallID, argsJSON string) (chatter.Message, error) {
	params, err := decodeStrict[RequestUnavailableDataParams](argsJSON)
	if err != nil {
		return chatter.Message{}, err
	}

	requestID := chatter.NewULID()
	record := store.NewDataRequest(threadID, requestID, params.Name, params.Explanation, store.NowMillis())
	if err := res.Store.Put(ctx, record); err != nil {
		return chatter.Message{}, err
	}

	confirmation := fmt.Sprintf(
		"I've submitted a request for the data '%s'. The data team will review this request and get back to you. Request ID: %s",
		params.Name, requestID,
	)
	return chatter.ToolMessage(toolCallID, confirmation, chatter.NoneSidecar()), nil
}
