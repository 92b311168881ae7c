package httpapi

import (
	"net/http"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/KotobaMedia/binary-blackhole/internal/chatter"
	"github.com/KotobaMedia/binary-blackhole/internal/store"
)

func (s *Server) handleListThreads(w http.ResponseWriter, r *http.Request) {
	threads, err := store.GetAllUserThreads(r.Context(), s.store, demoUser)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	view := ThreadListView{Threads: make([]ThreadView, 0, len(threads))}
	for _, t := range threads {
		view.Threads = append(view.Threads, ThreadView{ID: t.ID(), Title: t.Title})
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleCreateThread(w http.ResponseWriter, r *http.Request) {
	threadID := chatter.NewULID()
	thread := store.NewChatThread(demoUser, threadID, threadID, store.NowMillis())
	if err := s.store.PutExclusive(r.Context(), thread); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"thread_id": threadID})
}

// loadThreadWithMessages fetches the thread record and its messages
// concurrently.
func (s *Server) loadThreadWithMessages(r *http.Request, threadID string) (*store.ChatThread, []store.ChatMessage, error) {
	var (
		thread   *store.ChatThread
		messages []store.ChatMessage
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		thread, err = store.GetChatThread(ctx, s.store, demoUser, threadID)
		return err
	})
	g.Go(func() error {
		var err error
		messages, err = store.GetAllThreadMessages(ctx, s.store, demoUser, threadID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return thread, messages, nil
}

func (s *Server) handleGetThread(w http.ResponseWriter, r *http.Request) {
	threadID := r.PathValue("id")
	thread, messages, err := s.loadThreadWithMessages(r, threadID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	view := ThreadDetailsView{
		ID:       thread.ID(),
		Title:    thread.Title,
		Archived: thread.Archived,
		Messages: make([]MessageView, 0, len(messages)),
	}
	for _, m := range messages {
		if m.Msg.Role == chatter.RoleSystem {
			continue
		}
		seq, err := m.Seq()
		if err != nil {
			writeInternalError(w, err)
			return
		}
		view.Messages = append(view.Messages, MessageView{
			ID:      seq,
			Content: NewMessageContentView(m.Msg),
		})
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleGetThreadFull(w http.ResponseWriter, r *http.Request) {
	threadID := r.PathValue("id")
	thread, messages, err := s.loadThreadWithMessages(r, threadID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	view := ThreadDetailsFullView{
		ID:       thread.ID(),
		Title:    thread.Title,
		Archived: thread.Archived,
		Messages: make([]chatter.Message, 0, len(messages)),
	}
	for _, m := range messages {
		view.Messages = append(view.Messages, m.Msg)
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleArchiveThread(w http.ResponseWriter, r *http.Request) {
	threadID, err := parseThreadID(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid thread ID"})
		return
	}

	thread, err := store.GetChatThread(r.Context(), s.store, demoUser, threadID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	expected := thread.ModifiedTs
	thread.Archived = true
	thread.ModifiedTs = store.NowMillis()

	if err := s.store.PutOptimistic(r.Context(), thread, "modified_ts", expected); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseThreadID validates and canonicalises a thread id path segment.
func parseThreadID(raw string) (string, error) {
	id, err := ulid.Parse(raw)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
