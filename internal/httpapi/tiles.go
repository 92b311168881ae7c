package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/KotobaMedia/binary-blackhole/internal/tiles"
)

// baseURL is what tile URL templates are rendered against: API_URL when the
// service sits behind a proxy, otherwise the request's own origin.
func (s *Server) baseURL(r *http.Request) string {
	if s.cfg.APIURL != "" {
		return s.cfg.APIURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, r.Host)
}

func (s *Server) handleTileJSON(w http.ResponseWriter, r *http.Request) {
	queryID := r.URL.Query().Get("q")
	if queryID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing q parameter"})
		return
	}

	bbox, err := s.tiles.BBox(r.Context(), queryID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tiles.NewTileJSON(s.baseURL(r), queryID, bbox))
}

func (s *Server) handleTile(w http.ResponseWriter, r *http.Request) {
	queryID := r.URL.Query().Get("q")
	if queryID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing q parameter"})
		return
	}

	z, errZ := strconv.Atoi(r.PathValue("z"))
	x, errX := strconv.Atoi(r.PathValue("x"))
	y, errY := strconv.Atoi(r.PathValue("y"))
	if errZ != nil || errX != nil || errY != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tile coordinates"})
		return
	}

	tile, err := s.tiles.Tile(r.Context(), queryID, z, x, y)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/x-protobuf")
	w.WriteHeader(http.StatusOK)
	w.Write(tile)
}
