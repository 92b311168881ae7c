package pg

import (
	"context"
	"fmt"
)

// DescribeColumns prepares (but does not run) a query to discover its output
// columns and their resolved type names.
func (d *DB) DescribeColumns(ctx context.Context, query string) ([]Column, error) {
	conn, err := d.Pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("pg: acquire connection: %w", err)
	}
	defer conn.Release()

	sd, err := conn.Conn().Prepare(ctx, "", query)
	if err != nil {
		return nil, err
	}

	cols := make([]Column, len(sd.Fields))
	for i, field := range sd.Fields {
		name, err := d.TypeName(ctx, field.DataTypeOID)
		if err != nil {
			return nil, err
		}
		cols[i] = Column{Name: field.Name, OID: field.DataTypeOID, TypeName: name}
	}
	return cols, nil
}
