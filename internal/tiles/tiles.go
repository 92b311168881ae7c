// Package tiles turns saved SQL queries into Mapbox Vector Tiles and
// TileJSON metadata.
package tiles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"

	"github.com/KotobaMedia/binary-blackhole/internal/pg"
	"github.com/KotobaMedia/binary-blackhole/internal/store"
	"github.com/KotobaMedia/binary-blackhole/internal/telemetry"
)

const (
	// idColumnName is the mandatory feature-id column of a tileable query.
	idColumnName = "_id"

	mvtExtent = 4096
	mvtBuffer = 256
	mvtLayer  = "data"

	// MinZoom and MaxZoom bound the advertised tiling range.
	MinZoom = 0
	MaxZoom = 18
)

// QueryError marks a saved query that cannot be tiled (missing columns,
// empty extent, null tile).
type QueryError struct {
	Message string
}

func (e *QueryError) Error() string { return "tiles: " + e.Message }

// Builder renders tiles for saved queries.
type Builder struct {
	db    *pg.DB
	store *store.DB
}

// NewBuilder wires a tile builder over the shared PG pool and store.
func NewBuilder(db *pg.DB, st *store.DB) *Builder {
	return &Builder{db: db, store: st}
}

// queryColumns discovers the user SQL's output columns, then resolves the
// mandatory id and geometry columns plus the attribute list.
func (b *Builder) queryColumns(ctx context.Context, userSQL string) (idCol, geomCol string, attrs []string, err error) {
	cols, err := b.db.DescribeColumns(ctx, userSQL)
	if err != nil {
		return "", "", nil, fmt.Errorf("tiles: describe query: %w", err)
	}

	for _, col := range cols {
		switch {
		case col.Name == idColumnName && idCol == "":
			idCol = col.Name
		case col.TypeName == "geometry" && geomCol == "":
			geomCol = col.Name
		default:
			attrs = append(attrs, col.Name)
		}
	}

	if idCol == "" {
		return "", "", nil, &QueryError{Message: `the query has no "_id" column`}
	}
	if geomCol == "" {
		return "", "", nil, &QueryError{Message: "the query has no geometry column"}
	}
	return idCol, geomCol, attrs, nil
}

// Tile renders one MVT blob for the saved query at (z, x, y).
func (b *Builder) Tile(ctx context.Context, queryID string, z, x, y int) ([]byte, error) {
	var blob []byte
	err := telemetry.WithSpan(ctx, "tiles.render", func(ctx context.Context) error {
		query, err := store.GetSqlQueryByID(ctx, b.store, queryID)
		if err != nil {
			return err
		}

		idCol, geomCol, attrs, err := b.queryColumns(ctx, query.QueryContent)
		if err != nil {
			return err
		}

		sql := BuildTileSQL(query.QueryContent, idCol, geomCol, attrs)
		row := b.db.Pool.QueryRow(ctx, sql, z, x, y)
		var tile []byte
		if err := row.Scan(&tile); err != nil {
			return fmt.Errorf("tiles: render tile z=%d x=%d y=%d: %w", z, x, y, err)
		}
		if tile == nil {
			return &QueryError{Message: "tile query returned no result"}
		}
		blob = tile

		if err := query.TouchAccessed(ctx, b.store); err != nil {
			slog.Warn("failed to touch query access timestamp", "query_id", queryID, "error", err)
		}
		return nil
	}, attribute.String("query.id", queryID), attribute.Int("tile.z", z))
	if err != nil {
		return nil, err
	}
	return blob, nil
}

// BBox computes [minx, miny, maxx, maxy] over the saved query's geometry.
func (b *Builder) BBox(ctx context.Context, queryID string) ([4]float64, error) {
	var bbox [4]float64

	query, err := store.GetSqlQueryByID(ctx, b.store, queryID)
	if err != nil {
		return bbox, err
	}
	_, geomCol, _, err := b.queryColumns(ctx, query.QueryContent)
	if err != nil {
		return bbox, err
	}

	sql := BuildBBoxSQL(query.QueryContent, geomCol)
	var minx, miny, maxx, maxy *float64
	if err := b.db.Pool.QueryRow(ctx, sql).Scan(&minx, &miny, &maxx, &maxy); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return bbox, &QueryError{Message: "the query returned no extent"}
		}
		return bbox, fmt.Errorf("tiles: compute bbox: %w", err)
	}
	if minx == nil || miny == nil || maxx == nil || maxy == nil {
		return bbox, &QueryError{Message: "the query returned no extent"}
	}
	bbox = [4]float64{*minx, *miny, *maxx, *maxy}
	return bbox, nil
}

// BuildTileSQL composes the MVT template around the user SQL. The extent is
// always 4096 and the layer is always "data"; the intersection predicate
// uses the 4326-reprojected envelope so a GiST index on the source geometry
// applies.
func BuildTileSQL(userSQL, idCol, geomCol string, attrs []string) string {
	var attrList strings.Builder
	for _, attr := range attrs {
		attrList.WriteString(",\n              source.")
		attrList.WriteString(quoteIdent(attr))
	}

	return fmt.Sprintf(`WITH params AS (
  SELECT $1::int z, $2::int x, $3::int y,
         ST_TileEnvelope($1,$2,$3) env_3857,
         ST_Transform(ST_TileEnvelope($1,$2,$3), 4326) env_4326),
     source AS ( %s ),
     tile_raw AS (
       SELECT %s,
              ST_AsMVTGeom(ST_Transform(source.%s, 3857),
                           params.env_3857, %d, %d, TRUE) AS geom%s
       FROM source CROSS JOIN params
       WHERE source.%s && params.env_4326)
SELECT ST_AsMVT(tile, '%s', %d, 'geom', '%s') AS mvt_tile
FROM (SELECT * FROM tile_raw) AS tile;`,
		userSQL,
		quoteIdent(idCol),
		quoteIdent(geomCol),
		mvtExtent, mvtBuffer,
		attrList.String(),
		quoteIdent(geomCol),
		mvtLayer, mvtExtent, idCol,
	)
}

// BuildBBoxSQL composes the extent aggregation around the user SQL.
func BuildBBoxSQL(userSQL, geomCol string) string {
	return fmt.Sprintf(`WITH source AS ( %s ),
     ext AS ( SELECT ST_Extent(source.%s) AS e FROM source )
SELECT ST_XMin(e), ST_YMin(e), ST_XMax(e), ST_YMax(e) FROM ext;`,
		userSQL, quoteIdent(geomCol))
}

// quoteIdent double-quotes an identifier from the user query's column list.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// TileJSON is a TileJSON v3.0.0 document for one saved query.
type TileJSON struct {
	TileJSON string     `json:"tilejson"`
	Scheme   string     `json:"scheme"`
	Tiles    []string   `json:"tiles"`
	Bounds   [4]float64 `json:"bounds"`
	MinZoom  int        `json:"minzoom"`
	MaxZoom  int        `json:"maxzoom"`
}

// NewTileJSON builds the metadata document. baseURL is the externally
// visible API root (API_URL when deployed behind a proxy).
func NewTileJSON(baseURL, queryID string, bbox [4]float64) TileJSON {
	escaped := url.QueryEscape(queryID)
	return TileJSON{
		TileJSON: "3.0.0",
		Scheme:   "xyz",
		Tiles: []string{
			fmt.Sprintf("%s/tile/{z}/{x}/{y}?q=%s", strings.TrimRight(baseURL, "/"), escaped),
		},
		Bounds:  bbox,
		MinZoom: MinZoom,
		MaxZoom: MaxZoom,
	}
}
