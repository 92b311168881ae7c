package httpapi

import (
	"net/http"

	"github.com/KotobaMedia/binary-blackhole/internal/pg"
	"github.com/KotobaMedia/binary-blackhole/internal/store"
)

// TableListView is the /datasets response.
type TableListView struct {
	Tables []pg.TableDescription `json:"tables"`
}

func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	entries, err := s.db.ListDatasets(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.TableName)
	}

	tables, err := s.db.GetTableMetadata(r.Context(), names)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if tables == nil {
		tables = []pg.TableDescription{}
	}
	writeJSON(w, http.StatusOK, TableListView{Tables: tables})
}

// DataRequestListView is the /data-requests response.
type DataRequestListView struct {
	Requests []DataRequestView `json:"requests"`
}

func (s *Server) handleListDataRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := store.GetAllDataRequests(r.Context(), s.store)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	view := DataRequestListView{Requests: make([]DataRequestView, 0, len(requests))}
	for _, req := range requests {
		view.Requests = append(view.Requests, NewDataRequestView(req))
	}
	writeJSON(w, http.StatusOK, view)
}
