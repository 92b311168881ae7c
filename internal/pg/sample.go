package pg

import (
	"context"
	"errors"
	"fmt"
)

// SampleSize is the number of rows fetched when validating a candidate query.
const SampleSize = 5

// Sentinel validation failures. Their messages are user-visible: they are fed
// back to the model verbatim so it can rewrite the query.
var (
	ErrEmptyResult      = errors.New("Failed to execute query: The result set is empty. Try again.")
	ErrGeometryNotFound = errors.New("Geometry was not found in the query result")
)

// Column describes one output column of a sampled query.
type Column struct {
	Name     string
	OID      uint32
	TypeName string
}

// Sample is the buffered result of a sampling run.
type Sample struct {
	Columns []Column
	Rows    [][]any
}

// HasGeometry reports whether any column is of PG type geometry.
func (s *Sample) HasGeometry() bool {
	for _, col := range s.Columns {
		if col.TypeName == "geometry" {
			return true
		}
	}
	return false
}

// GeometryColumn returns the first geometry-typed column name.
func (s *Sample) GeometryColumn() (string, bool) {
	for _, col := range s.Columns {
		if col.TypeName == "geometry" {
			return col.Name, true
		}
	}
	return "", false
}

// SampleQuery wraps the user SQL in a LIMIT sub-select and buffers up to
// limit rows. No ORDER BY is appended: the sample is whatever the planner
// yields first. Any PG error is returned as-is for the caller to classify.
func (d *DB) SampleQuery(ctx context.Context, query string, limit int) (*Sample, error) {
	wrapped := fmt.Sprintf("SELECT * FROM (%s) AS t LIMIT %d", query, limit)

	rows, err := d.Pool.Query(ctx, wrapped)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	sample := &Sample{Columns: make([]Column, len(fields))}
	for i, fd := range fields {
		name, err := d.TypeName(ctx, fd.DataTypeOID)
		if err != nil {
			return nil, err
		}
		sample.Columns[i] = Column{Name: fd.Name, OID: fd.DataTypeOID, TypeName: name}
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		sample.Rows = append(sample.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sample, nil
}

// ValidateSample enforces the shape contract on a candidate query's sample:
// at least one row, and at least one geometry column.
func ValidateSample(s *Sample) error {
	if len(s.Rows) == 0 {
		return ErrEmptyResult
	}
	if !s.HasGeometry() {
		return ErrGeometryNotFound
	}
	return nil
}
