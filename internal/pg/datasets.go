package pg

import (
	"context"
	"fmt"
)

// DatasetEntry is one row of the dataset catalogue: the physical table name
// and its human-readable name.
type DatasetEntry struct {
	TableName string `json:"table_name"`
	Name      string `json:"name"`
}

// ForeignKeyRef points a column at its referenced table/column.
type ForeignKeyRef struct {
	ForeignTable  string `json:"foreign_table"`
	ForeignColumn string `json:"foreign_column"`
}

// EnumValue is one allowed value of an enum-like column.
type EnumValue struct {
	Value string  `json:"value"`
	Desc  *string `json:"desc,omitempty"`
}

// ColumnMetadata describes one column of a catalogued dataset.
type ColumnMetadata struct {
	Name       string         `json:"name"`
	Desc       *string        `json:"desc,omitempty"`
	DataType   string         `json:"data_type"`
	ForeignKey *ForeignKeyRef `json:"foreign_key,omitempty"`
	EnumValues []EnumValue    `json:"enum_values,omitempty"`
}

// TableMetadata is the catalogue record for one dataset table.
type TableMetadata struct {
	Name       string           `json:"name"`
	Desc       *string          `json:"desc,omitempty"`
	PrimaryKey *string          `json:"primary_key,omitempty"`
	Columns    []ColumnMetadata `json:"columns"`
}

// TableDescription pairs a table name with its metadata.
type TableDescription struct {
	TableName string        `json:"table_name"`
	Metadata  TableMetadata `json:"metadata"`
}

// ListDatasets returns the catalogue entries used to seed the system message.
func (d *DB) ListDatasets(ctx context.Context) ([]DatasetEntry, error) {
	rows, err := d.Pool.Query(ctx, `
		SELECT
			"table_name",
			"metadata"->>'name' AS "name"
		FROM "datasets";
	`)
	if err != nil {
		return nil, fmt.Errorf("pg: list datasets: %w", err)
	}
	defer rows.Close()

	var entries []DatasetEntry
	for rows.Next() {
		var e DatasetEntry
		if err := rows.Scan(&e.TableName, &e.Name); err != nil {
			return nil, fmt.Errorf("pg: scan dataset row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pg: list datasets: %w", err)
	}
	return entries, nil
}

// GetTableMetadata loads the full metadata documents for the named tables.
// Tables missing from the catalogue are silently absent from the result.
func (d *DB) GetTableMetadata(ctx context.Context, tableNames []string) ([]TableDescription, error) {
	rows, err := d.Pool.Query(ctx, `
		SELECT "table_name", "metadata"
		FROM "datasets"
		WHERE "table_name" = ANY($1);
	`, tableNames)
	if err != nil {
		return nil, fmt.Errorf("pg: get table metadata: %w", err)
	}
	defer rows.Close()

	var out []TableDescription
	for rows.Next() {
		var desc TableDescription
		if err := rows.Scan(&desc.TableName, &desc.Metadata); err != nil {
			return nil, fmt.Errorf("pg: scan table metadata: %w", err)
		}
		out = append(out, desc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pg: get table metadata: %w", err)
	}
	return out, nil
}
