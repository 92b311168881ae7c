package pg

import (
	"reflect"
	"testing"
)

// pointEWKB is POINT(0 0) with SRID 4326, little endian.
func pointEWKB(t *testing.T) []byte {
	t.Helper()
	return []byte{
		0x01,                   // little endian
		0x01, 0x00, 0x00, 0x20, // point with SRID flag
		0xe6, 0x10, 0x00, 0x00, // SRID 4326
		0, 0, 0, 0, 0, 0, 0, 0, // x
		0, 0, 0, 0, 0, 0, 0, 0, // y
	}
}

func TestCellString(t *testing.T) {
	tests := []struct {
		name     string
		val      any
		typeName string
		want     string
	}{
		{"null", nil, "text", "NULL"},
		{"string", "Alice", "text", "Alice"},
		{"int32", int32(42), "int4", "42"},
		{"int64", int64(-7), "int8", "-7"},
		{"float64", float64(3.5), "float8", "3.5"},
		{"bool", true, "bool", "true"},
		{"timestamp is unsupported", struct{}{}, "timestamptz", "unsupported"},
		{"numeric is unsupported", struct{}{}, "numeric", "unsupported"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CellString(tt.val, tt.typeName); got != tt.want {
				t.Errorf("CellString(%v, %q) = %q, want %q", tt.val, tt.typeName, got, tt.want)
			}
		})
	}
}

func TestCellStringGeometry(t *testing.T) {
	if got := CellString(pointEWKB(t), "geometry"); got != "Point" {
		t.Errorf("geometry cell = %q, want Point", got)
	}
	if got := CellString(nil, "geometry"); got != "NULL" {
		t.Errorf("null geometry cell = %q, want NULL", got)
	}
}

func TestCellJSON(t *testing.T) {
	tests := []struct {
		name     string
		val      any
		typeName string
		want     any
	}{
		{"null", nil, "text", nil},
		{"string", "x", "text", "x"},
		{"int", int64(5), "int8", int64(5)},
		{"float", 2.25, "float8", 2.25},
		{"bool", false, "bool", false},
		{"jsonb passthrough", map[string]any{"a": 1.0}, "jsonb", map[string]any{"a": 1.0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CellJSON(tt.val, tt.typeName)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("CellJSON(%v, %q) = %v, want %v", tt.val, tt.typeName, got, tt.want)
			}
		})
	}
}

func TestRowsToTSV(t *testing.T) {
	sample := &Sample{
		Columns: []Column{
			{Name: "id", TypeName: "int4"},
			{Name: "name", TypeName: "text"},
			{Name: "geom", TypeName: "geometry"},
			{Name: "__rn", TypeName: "int4"},
		},
		Rows: [][]any{
			{int32(1), "Alice", pointEWKB(t), int32(1)},
			{int32(2), "Bob", nil, int32(2)},
		},
	}
	want := "id\tname\tgeom\n1\tAlice\tPoint\n2\tBob\tNULL\n"
	if got := RowsToTSV(sample); got != want {
		t.Errorf("RowsToTSV = %q, want %q", got, want)
	}
}

func TestRowsToTSVEmpty(t *testing.T) {
	sample := &Sample{Columns: []Column{{Name: "id", TypeName: "int4"}}}
	if got := RowsToTSV(sample); got != "Empty result set." {
		t.Errorf("RowsToTSV(empty) = %q", got)
	}
}

func TestValidateSample(t *testing.T) {
	geomSample := &Sample{
		Columns: []Column{{Name: "geom", TypeName: "geometry"}},
		Rows:    [][]any{{nil}},
	}
	if err := ValidateSample(geomSample); err != nil {
		t.Errorf("valid sample rejected: %v", err)
	}

	empty := &Sample{Columns: geomSample.Columns}
	if err := ValidateSample(empty); err != ErrEmptyResult {
		t.Errorf("empty sample err = %v, want ErrEmptyResult", err)
	}

	noGeom := &Sample{
		Columns: []Column{{Name: "name", TypeName: "text"}},
		Rows:    [][]any{{"Alice"}},
	}
	if err := ValidateSample(noGeom); err != ErrGeometryNotFound {
		t.Errorf("no-geometry sample err = %v, want ErrGeometryNotFound", err)
	}
}
