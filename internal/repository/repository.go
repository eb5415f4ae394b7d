// Package repository implements the data-access collaborators of the ranking
// core: interaction events and catalog metadata in PostgreSQL, the interaction
// graph in Neo4j, and a Redis read-through cache for catalog lookups.
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a single-row lookup matches nothing.
	ErrNotFound = errors.New("repository: not found")
	// ErrCircuitOpen is returned while the data-access breaker is open.
	ErrCircuitOpen = errors.New("repository: circuit open")
)

// Querier is the subset of pgxpool.Pool used by the PostgreSQL repositories.
type Querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}
