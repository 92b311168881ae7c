package httpapi

import (
	"github.com/KotobaMedia/binary-blackhole/internal/chatter"
	"github.com/KotobaMedia/binary-blackhole/internal/store"
)

// ThreadView is the list entry for one thread.
type ThreadView struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// ThreadListView is the /threads response.
type ThreadListView struct {
	Threads []ThreadView `json:"threads"`
}

// MessageContentView is the user-facing rendering of one envelope. Tool
// replies address the model, not the user: their content is dropped and the
// sidecar carries what the UI shows.
type MessageContentView struct {
	Message *string         `json:"message,omitempty"`
	Role    chatter.Role    `json:"role"`
	Sidecar chatter.Sidecar `json:"sidecar,omitzero"`
}

// NewMessageContentView converts an envelope to its view.
func NewMessageContentView(msg chatter.Message) MessageContentView {
	content := msg.Content
	if msg.Role == chatter.RoleTool {
		content = nil
	}
	return MessageContentView{
		Message: content,
		Role:    msg.Role,
		Sidecar: msg.Sidecar,
	}
}

// MessageView pairs a message's sequence number with its content view.
type MessageView struct {
	ID      int                `json:"id"`
	Content MessageContentView `json:"content"`
}

// ThreadDetailsView is the /threads/{id} response.
type ThreadDetailsView struct {
	ID       string        `json:"id"`
	Title    string        `json:"title"`
	Archived bool          `json:"archived"`
	Messages []MessageView `json:"messages"`
}

// ThreadDetailsFullView is the /threads/{id}/_full response: the raw
// envelopes without user-facing filtering.
type ThreadDetailsFullView struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Archived bool              `json:"archived"`
	Messages []chatter.Message `json:"messages"`
}

// DataRequestView is the list entry for one data request.
type DataRequestView struct {
	ID          string `json:"id"`
	ThreadID    string `json:"thread_id"`
	Name        string `json:"name"`
	Explanation string `json:"explanation"`
	CreatedTs   int64  `json:"created_ts"`
	Status      string `json:"status"`
}

// NewDataRequestView converts a stored request to its view.
func NewDataRequestView(r store.DataRequest) DataRequestView {
	return DataRequestView{
		ID:          r.ID(),
		ThreadID:    r.ThreadID(),
		Name:        r.Name,
		Explanation: r.Explanation,
		CreatedTs:   r.CreatedTs,
		Status:      r.Status,
	}
}
