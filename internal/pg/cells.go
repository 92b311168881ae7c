package pg

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
)

// reservedSamplingColumn is dropped from all rendered output.
const reservedSamplingColumn = "__rn"

// CellString renders one cell for TSV output. NULL becomes the literal
// "NULL"; geometry cells render as their variant name (Point, Polygon, ...);
// types outside the supported set render as "unsupported".
func CellString(val any, typeName string) string {
	if val == nil {
		return "NULL"
	}
	if typeName == "geometry" || typeName == "geography" {
		variant, err := GeometryVariant(val)
		if err != nil {
			return "unsupported"
		}
		return variant
	}
	switch v := val.(type) {
	case string:
		return v
	case int16:
		return strconv.FormatInt(int64(v), 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	}
	return "unsupported"
}

// CellJSON coerces one cell to a JSON-encodable value. Numbers stay numbers,
// booleans stay booleans, numeric becomes a string to preserve precision,
// json/jsonb pass through decoded. Unknown types fall back to
// stringification; NULL becomes JSON null.
func CellJSON(val any, typeName string) any {
	if val == nil {
		return nil
	}
	switch typeName {
	case "geometry", "geography":
		variant, err := GeometryVariant(val)
		if err != nil {
			return "unsupported"
		}
		return variant
	case "numeric":
		if dv, ok := val.(driver.Valuer); ok {
			if out, err := dv.Value(); err == nil && out != nil {
				return fmt.Sprint(out)
			}
		}
		return fmt.Sprint(val)
	case "json", "jsonb":
		return val
	}
	switch v := val.(type) {
	case string, bool, int16, int32, int64, float32, float64:
		return v
	}
	return fmt.Sprint(val)
}

// RowsToTSV renders a sample as a header row plus one line per data row,
// dropping the reserved __rn column.
func RowsToTSV(s *Sample) string {
	if len(s.Rows) == 0 {
		return "Empty result set."
	}

	var headers []string
	for _, col := range s.Columns {
		if col.Name == reservedSamplingColumn {
			continue
		}
		headers = append(headers, col.Name)
	}

	var b strings.Builder
	b.WriteString(strings.Join(headers, "\t"))
	b.WriteByte('\n')
	for _, row := range s.Rows {
		var cells []string
		for i, col := range s.Columns {
			if col.Name == reservedSamplingColumn {
				continue
			}
			cells = append(cells, CellString(row[i], col.TypeName))
		}
		b.WriteString(strings.Join(cells, "\t"))
		b.WriteByte('\n')
	}
	return b.String()
}
