// Package storage defines the storage interfaces.
package storage

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// QueryBatch represents a batch of queries to be executed atomically.
// We use a custom type that mirrors `pgx.Batch`, but is thread-safe to
// use and allows introspection for debugging.
type QueryBatch struct {
	queries []*Query
}

// Query is a query with optional parameters.
type Query struct {
	Cmd  string
	Args []interface{}
}

// Queue adds query to a batch.
func (b *QueryBatch) Queue(cmd string, args ...interface{}) {
	b.queries = append(b.queries, &Query{
		Cmd:  cmd,
		Args: args,
	})
}

// Extend merges another batch into the current batch.
func (b *QueryBatch) Extend(qb *QueryBatch) {
	b.queries = append(b.queries, qb.queries...)
}

// Len returns the number of queries in the batch.
func (b *QueryBatch) Len() int {
	return len(b.queries)
}

// AsPgxBatch converts a QueryBatch to a pgx batch.
func (b *QueryBatch) AsPgxBatch() pgx.Batch {
	pgxBatch := pgx.Batch{}
	for _, q := range b.queries {
		pgxBatch.Queue(q.Cmd, q.Args...)
	}
	return pgxBatch
}

// Queries returns the queries in the batch.
func (b *QueryBatch) Queries() []*Query {
	return b.queries
}

// QueryResults represents the results from a read query.
type QueryResults = pgx.Rows

// QueryResult represents the result from a read query.
type QueryResult = pgx.Row

// TargetStorage defines an interface for reading and writing indexed data.
type TargetStorage interface {
	// SendBatch sends a batch of queries to be applied atomically to target storage.
	SendBatch(ctx context.Context, batch *QueryBatch) error

	// Query submits a query to fetch data from target storage.
	Query(ctx context.Context, sql string, args ...interface{}) (QueryResults, error)

	// QueryRow submits a query to fetch a single row of data from target storage.
	QueryRow(ctx context.Context, sql string, args ...interface{}) QueryResult

	// Exec submits a single query to target storage and returns the number
	// of rows affected.
	Exec(ctx context.Context, sql string, args ...interface{}) (int64, error)

	// Wipe removes all contents of target storage.
	Wipe(ctx context.Context) error

	// Close shuts down the target storage client.
	Close()

	// Name returns the name of the target storage.
	Name() string
}
