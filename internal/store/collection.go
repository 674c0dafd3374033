package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/roach88/docsql/internal/conn"
	"github.com/roach88/docsql/internal/schema"
)

// Collection is one schema-mapped document table on a registered
// database.
//
// A Collection is not safe for concurrent use from multiple goroutines;
// the caller serializes operations, matching the one-statement-at-a-time
// discipline of the shared connection underneath.
type Collection struct {
	handle *conn.Handle
	schema *schema.Schema
	cols   *schema.ColumnMap
	stream *stream

	mu     sync.Mutex
	closed bool
	fatal  error

	// now is a test hook for last_write_at timestamps.
	now func() time.Time
}

// Open binds a collection to the database registered under databaseName,
// opening the SQLite file at path on first use. Collections addressing
// the same database name share one ref-counted connection.
//
// Open does not touch the table; call Initialize before any operation.
func Open(reg *conn.Registry, databaseName, path, collectionName string, s *schema.Schema) (*Collection, error) {
	cols, err := schema.Columns(collectionName, s)
	if err != nil {
		return nil, err
	}

	handle, err := reg.Open(databaseName, path)
	if err != nil {
		return nil, err
	}

	return &Collection{
		handle: handle,
		schema: s,
		cols:   cols,
		stream: newStream(),
		now:    time.Now,
	}, nil
}

// Initialize creates the backing table and its secondary indexes.
//
// Idempotent: re-initializing an existing table alters no row data and
// only adds missing indexes.
func (c *Collection) Initialize(ctx context.Context) error {
	if err := c.guard(); err != nil {
		return err
	}

	db := c.handle.DB()
	if _, err := db.ExecContext(ctx, c.cols.CreateTableSQL()); err != nil {
		return c.fail(fmt.Errorf("create table %s: %w", c.cols.Table, err))
	}
	for _, ddl := range c.cols.CreateIndexSQL() {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return c.fail(fmt.Errorf("create index on %s: %w", c.cols.Table, err))
		}
	}
	return nil
}

// Schema returns the collection's schema.
func (c *Collection) Schema() *schema.Schema {
	return c.schema
}

// Columns returns the relational layout, for callers compiling their own
// selectors.
func (c *Collection) Columns() *schema.ColumnMap {
	return c.cols
}

// Close releases the shared connection reference and closes the change
// stream. Idempotent. Operations after Close return ErrClosed.
func (c *Collection) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.stream.close()
	return c.handle.Release()
}

// Remove drops the backing table, then closes the collection.
func (c *Collection) Remove(ctx context.Context) error {
	if err := c.guard(); err != nil {
		return err
	}

	if _, err := c.handle.DB().ExecContext(ctx,
		"DROP TABLE IF EXISTS "+c.cols.QuotedTable()); err != nil {
		return c.fail(fmt.Errorf("drop table %s: %w", c.cols.Table, err))
	}
	return c.Close()
}

// guard rejects operations on a closed or fatally-failed collection.
// A connection-level failure sticks: every subsequent call reports it
// until the collection is closed and reopened.
func (c *Collection) guard() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.fatal != nil {
		return c.fatal
	}
	return nil
}

// fail records a fatal connection-level error and returns it.
func (c *Collection) fail(err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fatal == nil {
		c.fatal = &conn.ConnectionError{
			Name:   c.handle.Name(),
			Op:     "exec",
			Reason: err.Error(),
		}
	}
	return c.fatal
}

// nowMillis returns the current write timestamp.
func (c *Collection) nowMillis() int64 {
	return c.now().UnixMilli()
}
