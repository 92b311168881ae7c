// Package httpapi exposes the buffered and streaming HTTP surface of the
// conversational geospatial API.
package httpapi

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/KotobaMedia/binary-blackhole/internal/chatter"
	"github.com/KotobaMedia/binary-blackhole/internal/config"
	"github.com/KotobaMedia/binary-blackhole/internal/pg"
	"github.com/KotobaMedia/binary-blackhole/internal/store"
	"github.com/KotobaMedia/binary-blackhole/internal/tiles"
	"github.com/KotobaMedia/binary-blackhole/internal/tools"
)

// demoUser is the partition every request currently operates under.
const demoUser = "demo_user"

// productSiteURL is where the bare root redirects.
const productSiteURL = "https://www.bblackhole.com/"

// Server holds the shared process resources: one store client, one PG pool,
// one chatter, one tile builder.
type Server struct {
	cfg      *config.Config
	store    *store.DB
	db       *pg.DB
	chatter  *chatter.Chatter
	registry *tools.Registry
	tiles    *tiles.Builder
	limiter  *RateLimiter
}

// NewServer wires the handlers over already-constructed resources.
func NewServer(cfg *config.Config, st *store.DB, db *pg.DB, ch *chatter.Chatter, registry *tools.Registry) *Server {
	return &Server{
		cfg:      cfg,
		store:    st,
		db:       db,
		chatter:  ch,
		registry: registry,
		tiles:    tiles.NewBuilder(db, st),
		limiter:  NewRateLimiter(),
	}
}

// Handler builds the route table with CORS and request logging applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /__health", s.handleHealth)

	mux.HandleFunc("GET /threads", s.handleListThreads)
	mux.HandleFunc("POST /threads", s.handleCreateThread)
	mux.HandleFunc("GET /threads/{id}", s.handleGetThread)
	mux.HandleFunc("GET /threads/{id}/_full", s.handleGetThreadFull)
	mux.HandleFunc("POST /threads/{id}/archive", s.handleArchiveThread)
	mux.HandleFunc("POST /threads/{id}/message", s.handleThreadMessage)

	mux.HandleFunc("GET /datasets", s.handleListDatasets)
	mux.HandleFunc("GET /data-requests", s.handleListDataRequests)

	mux.HandleFunc("POST /query", s.handlePostQuery)
	mux.HandleFunc("GET /tile.json", s.handleTileJSON)
	mux.HandleFunc("GET /tile/{z}/{x}/{y}", s.handleTile)

	return withCORS(withRequestLog(mux))
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, productSiteURL, http.StatusTemporaryRedirect)
}

// handleHealth runs a PostGIS round-trip as liveness: a constant row with a
// point geometry must come back intact.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sample, err := s.db.SampleQuery(r.Context(), `
		SELECT
			'hello' as "name",
			ST_Point(35, 135, 4326) as "geom"
	`, 1)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if len(sample.Rows) == 0 {
		writeInternalError(w, fmt.Errorf("health query returned no rows"))
		return
	}
	row := sample.Rows[0]
	if pg.CellString(row[0], sample.Columns[0].TypeName) != "hello" ||
		pg.CellString(row[1], sample.Columns[1].TypeName) != "Point" {
		writeInternalError(w, fmt.Errorf("health query returned unexpected values"))
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, "OK")
}

// withCORS allows cross-origin GET/POST with a content-type header.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRequestLog tags each request with a run id and logs its duration.
func withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		runID := uuid.NewString()
		next.ServeHTTP(w, r)
		slog.Debug("request",
			"run_id", runID,
			"method", r.Method,
			"path", r.URL.Path,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
