package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/KotobaMedia/binary-blackhole/internal/chatter"
	"github.com/KotobaMedia/binary-blackhole/internal/store"
)

type postMessageRequest struct {
	Content string `json:"content"`
}

// handleThreadMessage runs one streamed conversation turn. Each produced
// envelope is assigned the next sequence number, exclusively created in the
// store, and forwarded as an NDJSON line; the first persistence or loop
// fault becomes a final {"error": ...} line.
func (s *Server) handleThreadMessage(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow(clientIP(r)) {
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
		return
	}

	threadID, err := parseThreadID(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid thread ID"})
		return
	}

	var payload postMessageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	ctx := r.Context()

	thread, err := store.GetChatThread(ctx, s.store, demoUser, threadID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if thread.Archived {
		writeJSON(w, http.StatusConflict, map[string]string{"error_code": "thread_archived"})
		return
	}

	// Take the thread-level turn lock: bump modified_ts under the optimistic
	// condition so a concurrent turn on the same thread loses fast instead
	// of interleaving sequence numbers.
	expected := thread.ModifiedTs
	thread.ModifiedTs = store.NowMillis()
	if err := s.store.PutOptimistic(ctx, thread, "modified_ts", expected); err != nil {
		writeStoreError(w, err)
		return
	}

	stored, err := store.GetAllThreadMessages(ctx, s.store, demoUser, threadID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	history := make([]chatter.Message, 0, len(stored))
	for _, m := range stored {
		history = append(history, m.Msg)
	}

	cc := chatter.LoadContext(threadID, history, s.registry.Definitions())
	cc.AppendUser(payload.Content)

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	enc := json.NewEncoder(w)
	writeLine := func(v any) {
		if err := enc.Encode(v); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}

	seq := len(stored)
	for item := range s.chatter.Run(ctx, cc) {
		if item.Err != nil {
			writeLine(map[string]string{"error": item.Err.Error()})
			return
		}

		record := store.NewChatMessage(demoUser, threadID, seq, item.Msg)
		if err := s.store.PutExclusive(ctx, record); err != nil {
			writeLine(map[string]string{"error": fmt.Sprintf("persist message %d: %s", seq, err)})
			return
		}

		writeLine(MessageView{ID: seq, Content: NewMessageContentView(item.Msg)})
		seq++
	}
}

// clientIP extracts the remote address without the port.
func clientIP(r *http.Request) string {
	host := r.RemoteAddr
	for i := len(host) - 1; i >= 0; i-- {
		if host[i] == ':' {
			return host[:i]
		}
	}
	return host
}
