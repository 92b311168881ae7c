package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/KotobaMedia/binary-blackhole/internal/pg"
	"github.com/KotobaMedia/binary-blackhole/internal/tiles"
	"github.com/KotobaMedia/binary-blackhole/internal/tools"
)

type postQueryRequest struct {
	Query string `json:"query"`
}

// geoFeature is a GeoJSON Feature with the query's non-geometry columns as
// properties; an "_id" column becomes the feature id.
type geoFeature struct {
	Type       string         `json:"type"`
	ID         any            `json:"id,omitempty"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

type geoFeatureCollection struct {
	Type     string       `json:"type"`
	Features []geoFeature `json:"features"`
}

type postQueryResponse struct {
	Data geoFeatureCollection `json:"data"`
	BBox *[4]float64          `json:"bbox"`
}

// handlePostQuery runs an ad-hoc query buffered: every row becomes a GeoJSON
// feature, and the combined extent is returned alongside. Geometry is
// converted server-side with ST_AsGeoJSON.
func (s *Server) handlePostQuery(w http.ResponseWriter, r *http.Request) {
	var payload postQueryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	ctx := r.Context()
	query := tools.StripTrailingSemicolon(payload.Query)

	cols, err := s.db.DescribeColumns(ctx, query)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": pg.FormatDBError(err)})
		return
	}
	geomCol := ""
	for _, col := range cols {
		if col.TypeName == "geometry" {
			geomCol = col.Name
			break
		}
	}
	if geomCol == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": pg.ErrGeometryNotFound.Error()})
		return
	}

	wrapped := fmt.Sprintf(`SELECT ST_AsGeoJSON(source.%q)::text AS __geojson, source.* FROM (%s) AS source`, geomCol, query)
	rows, err := s.db.Pool.Query(ctx, wrapped)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": pg.FormatDBError(err)})
		return
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	typeNames := make([]string, len(fields))
	for i, fd := range fields {
		name, err := s.db.TypeName(ctx, fd.DataTypeOID)
		if err != nil {
			writeInternalError(w, err)
			return
		}
		typeNames[i] = name
	}

	fc := geoFeatureCollection{Type: "FeatureCollection", Features: []geoFeature{}}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			writeInternalError(w, err)
			return
		}

		feature := geoFeature{Type: "Feature", Properties: map[string]any{}}
		for i, fd := range fields {
			switch {
			case fd.Name == "__geojson":
				if g, ok := values[i].(string); ok {
					feature.Geometry = json.RawMessage(g)
				}
			case fd.Name == geomCol:
				// the raw geometry column is replaced by __geojson
			default:
				feature.Properties[fd.Name] = pg.CellJSON(values[i], typeNames[i])
			}
		}
		if id, ok := feature.Properties["_id"]; ok {
			feature.ID = id
		}
		fc.Features = append(fc.Features, feature)
	}
	if err := rows.Err(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": pg.FormatDBError(err)})
		return
	}

	resp := postQueryResponse{Data: fc}
	var minx, miny, maxx, maxy *float64
	if err := s.db.Pool.QueryRow(ctx, tiles.BuildBBoxSQL(query, geomCol)).Scan(&minx, &miny, &maxx, &maxy); err == nil &&
		minx != nil && miny != nil && maxx != nil && maxy != nil {
		resp.BBox = &[4]float64{*minx, *miny, *maxx, *maxy}
	}

	writeJSON(w, http.StatusOK, resp)
}
