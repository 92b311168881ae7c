package pg

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// GeometryVariant peeks at a PostGIS geometry value and returns its variant
// name. The value may be raw (E)WKB bytes or the hex string PG sends in text
// format. Only the header is read; coordinates are never decoded.
func GeometryVariant(val any) (string, error) {
	var raw []byte
	switch v := val.(type) {
	case []byte:
		raw = v
	case string:
		decoded, err := hex.DecodeString(v)
		if err != nil {
			return "", fmt.Errorf("pg: decode geometry hex: %w", err)
		}
		raw = decoded
	default:
		return "", fmt.Errorf("pg: unexpected geometry value type %T", val)
	}

	if len(raw) < 5 {
		return "", fmt.Errorf("pg: geometry value too short")
	}

	var order binary.ByteOrder
	switch raw[0] {
	case 0:
		order = binary.BigEndian
	case 1:
		order = binary.LittleEndian
	default:
		return "", fmt.Errorf("pg: invalid WKB byte order %d", raw[0])
	}

	geomType := order.Uint32(raw[1:5])
	// EWKB dimensionality and SRID flags, then ISO WKB type offsets.
	geomType &= 0x1FFFFFFF
	geomType %= 1000

	switch geomType {
	case 1:
		return "Point", nil
	case 2:
		return "LineString", nil
	case 3:
		return "Polygon", nil
	case 4:
		return "MultiPoint", nil
	case 5:
		return "MultiLineString", nil
	case 6:
		return "MultiPolygon", nil
	case 7:
		return "GeometryCollection", nil
	}
	return "", fmt.Errorf("pg: unknown WKB geometry type %d", geomType)
}
