package tiles

import (
	"strings"
	"testing"
)

func TestBuildTileSQL(t *testing.T) {
	sql := BuildTileSQL(`SELECT ogc_fid AS _id, name, geom FROM prefectures`, "_id", "geom", []string{"name"})

	for _, want := range []string{
		"ST_TileEnvelope($1,$2,$3)",
		"ST_Transform(ST_TileEnvelope($1,$2,$3), 4326) env_4326",
		`source AS ( SELECT ogc_fid AS _id, name, geom FROM prefectures )`,
		`SELECT "_id"`,
		`ST_AsMVTGeom(ST_Transform(source."geom", 3857)`,
		"4096, 256, TRUE",
		`source."name"`,
		`WHERE source."geom" && params.env_4326`,
		`ST_AsMVT(tile, 'data', 4096, 'geom', '_id') AS mvt_tile`,
	} {
		if !strings.Contains(sql, want) {
			t.Errorf("tile SQL missing %q:\n%s", want, sql)
		}
	}
}

func TestBuildTileSQLNoAttributes(t *testing.T) {
	sql := BuildTileSQL(`SELECT 1 AS _id, ST_Point(0,0,4326) AS geom`, "_id", "geom", nil)
	if strings.Contains(sql, ",\n              source.") {
		t.Errorf("unexpected attribute list in:\n%s", sql)
	}
}

func TestBuildTileSQLIsDeterministic(t *testing.T) {
	a := BuildTileSQL("SELECT 1 AS _id, g AS geom FROM t", "_id", "geom", []string{"x", "y"})
	b := BuildTileSQL("SELECT 1 AS _id, g AS geom FROM t", "_id", "geom", []string{"x", "y"})
	if a != b {
		t.Error("tile SQL must be identical for identical inputs")
	}
}

func TestBuildTileSQLQuotesIdentifiers(t *testing.T) {
	sql := BuildTileSQL("SELECT 1", "_id", `geo"m`, nil)
	if !strings.Contains(sql, `source."geo""m"`) {
		t.Errorf("identifier not escaped:\n%s", sql)
	}
}

func TestBuildBBoxSQL(t *testing.T) {
	sql := BuildBBoxSQL("SELECT geom FROM t", "geom")
	for _, want := range []string{
		"WITH source AS ( SELECT geom FROM t )",
		`ST_Extent(source."geom")`,
		"ST_XMin(e), ST_YMin(e), ST_XMax(e), ST_YMax(e)",
	} {
		if !strings.Contains(sql, want) {
			t.Errorf("bbox SQL missing %q:\n%s", want, sql)
		}
	}
}

func TestNewTileJSON(t *testing.T) {
	doc := NewTileJSON("http://localhost:9000/", "01ARZ3NDEKTSV4RRFFQ69G5FAV", [4]float64{139.76, 35.68, 139.76, 35.68})

	if doc.TileJSON != "3.0.0" {
		t.Errorf("tilejson = %q", doc.TileJSON)
	}
	if doc.Scheme != "xyz" {
		t.Errorf("scheme = %q", doc.Scheme)
	}
	if doc.MinZoom != 0 || doc.MaxZoom != 18 {
		t.Errorf("zoom range = %d..%d", doc.MinZoom, doc.MaxZoom)
	}
	want := "http://localhost:9000/tile/{z}/{x}/{y}?q=01ARZ3NDEKTSV4RRFFQ69G5FAV"
	if len(doc.Tiles) != 1 || doc.Tiles[0] != want {
		t.Errorf("tiles = %v, want [%s]", doc.Tiles, want)
	}
	if doc.Bounds != [4]float64{139.76, 35.68, 139.76, 35.68} {
		t.Errorf("bounds = %v", doc.Bounds)
	}
}

func TestQueryErrorMessage(t *testing.T) {
	err := &QueryError{Message: `the query has no "_id" column`}
	if !strings.Contains(err.Error(), "_id") {
		t.Errorf("error = %q", err.Error())
	}
}
