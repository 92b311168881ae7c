package pg

import (
	"encoding/binary"
	"encoding/hex"
	"testing"
)

func wkbHeader(order byte, geomType uint32) []byte {
	buf := make([]byte, 5)
	buf[0] = order
	if order == 1 {
		binary.LittleEndian.PutUint32(buf[1:], geomType)
	} else {
		binary.BigEndian.PutUint32(buf[1:], geomType)
	}
	return buf
}

func TestGeometryVariant(t *testing.T) {
	tests := []struct {
		name     string
		geomType uint32
		want     string
	}{
		{"point", 1, "Point"},
		{"linestring", 2, "LineString"},
		{"polygon", 3, "Polygon"},
		{"multipoint", 4, "MultiPoint"},
		{"multilinestring", 5, "MultiLineString"},
		{"multipolygon", 6, "MultiPolygon"},
		{"collection", 7, "GeometryCollection"},
		{"ewkb srid flag", 1 | 0x20000000, "Point"},
		{"ewkb z flag", 3 | 0x80000000 | 0x20000000, "Polygon"},
		{"iso wkb z offset", 1001, "Point"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GeometryVariant(wkbHeader(1, tt.geomType))
			if err != nil {
				t.Fatalf("GeometryVariant: %v", err)
			}
			if got != tt.want {
				t.Errorf("GeometryVariant = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGeometryVariantBigEndian(t *testing.T) {
	got, err := GeometryVariant(wkbHeader(0, 6))
	if err != nil {
		t.Fatalf("GeometryVariant: %v", err)
	}
	if got != "MultiPolygon" {
		t.Errorf("GeometryVariant = %q, want MultiPolygon", got)
	}
}

func TestGeometryVariantHexString(t *testing.T) {
	// Text-format protocol delivers geometry as a hex string.
	raw := hex.EncodeToString(wkbHeader(1, 2))
	got, err := GeometryVariant(raw)
	if err != nil {
		t.Fatalf("GeometryVariant: %v", err)
	}
	if got != "LineString" {
		t.Errorf("GeometryVariant = %q, want LineString", got)
	}
}

func TestGeometryVariantErrors(t *testing.T) {
	if _, err := GeometryVariant([]byte{1, 2}); err == nil {
		t.Error("expected error for truncated input")
	}
	if _, err := GeometryVariant(wkbHeader(9, 1)); err == nil {
		t.Error("expected error for invalid byte order")
	}
	if _, err := GeometryVariant(wkbHeader(1, 99)); err == nil {
		t.Error("expected error for unknown geometry type")
	}
	if _, err := GeometryVariant(42); err == nil {
		t.Error("expected error for unexpected value type")
	}
}
