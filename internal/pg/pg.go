// Package pg wraps PostGIS access: connection pooling, query sampling and
// validation, cell rendering, and the dataset catalogue.
package pg

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is a pooled PostGIS connection shared across the process.
type DB struct {
	Pool *pgxpool.Pool

	mu        sync.Mutex
	typeNames map[uint32]string
	typeMap   *pgtype.Map
}

// Connect opens a pool against the given connection string and verifies it.
func Connect(ctx context.Context, connStr string) (*DB, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("pg: open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping: %w", err)
	}
	return &DB{
		Pool:      pool,
		typeNames: make(map[uint32]string),
		typeMap:   pgtype.NewMap(),
	}, nil
}

// Close releases the pool.
func (d *DB) Close() {
	if d.Pool != nil {
		d.Pool.Close()
	}
}

// TypeName resolves a PG type OID to its catalogue name. Builtin OIDs come
// from the static pgtype map; anything else (geometry, geography, custom
// enums) is looked up in pg_type once and cached.
func (d *DB) TypeName(ctx context.Context, oid uint32) (string, error) {
	if t, ok := d.typeMap.TypeForOID(oid); ok {
		return t.Name, nil
	}

	d.mu.Lock()
	if name, ok := d.typeNames[oid]; ok {
		d.mu.Unlock()
		return name, nil
	}
	d.mu.Unlock()

	var name string
	err := d.Pool.QueryRow(ctx, `SELECT "typname" FROM "pg_type" WHERE "oid" = $1`, oid).Scan(&name)
	if err != nil {
		return "", fmt.Errorf("pg: resolve type oid %d: %w", oid, err)
	}

	d.mu.Lock()
	d.typeNames[oid] = name
	d.mu.Unlock()
	return name, nil
}
