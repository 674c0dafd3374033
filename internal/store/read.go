package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/roach88/docsql/internal/schema"
	"github.com/roach88/docsql/internal/selector"
	"github.com/roach88/docsql/internal/sqlgen"
)

// FindByIDs returns the documents for the given ids in a single lookup.
// Tombstones are filtered out unless includeDeleted is set. Missing ids
// are simply absent from the result; the slice is never nil.
func (c *Collection) FindByIDs(ctx context.Context, ids []any, includeDeleted bool) ([]Document, error) {
	if err := c.guard(); err != nil {
		return nil, err
	}

	normalized := make([]any, 0, len(ids))
	for _, id := range ids {
		n, err := c.cols.NormalizeKey(id)
		if err != nil {
			return nil, err
		}
		normalized = append(normalized, n)
	}

	return c.fetchDocs(ctx, normalized, includeDeleted)
}

// fetchDocs runs the shared IN-list point lookup. ids must already be
// normalized.
func (c *Collection) fetchDocs(ctx context.Context, ids []any, includeDeleted bool) ([]Document, error) {
	if len(ids) == 0 {
		return []Document{}, nil
	}

	marks := strings.Repeat("?, ", len(ids))
	marks = marks[:len(marks)-2]

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s IN (%s)",
		c.cols.SelectList(), c.cols.QuotedTable(), schema.QuoteIdent(schema.ColID), marks)
	if !includeDeleted {
		query += fmt.Sprintf(" AND %s = 0", schema.QuoteIdent(schema.ColDeleted))
	}
	query += fmt.Sprintf(" ORDER BY %s ASC", schema.QuoteIdent(schema.ColID))

	return c.queryDocs(ctx, query, ids)
}

// Query runs a selector query against live documents.
func (c *Collection) Query(ctx context.Context, q selector.Query) ([]Document, error) {
	if err := c.guard(); err != nil {
		return nil, err
	}

	sqlText, params, err := sqlgen.Compile(c.cols, q)
	if err != nil {
		return nil, err
	}
	return c.queryDocs(ctx, sqlText, params)
}

// Count counts live documents matching a selector.
func (c *Collection) Count(ctx context.Context, sel selector.Condition) (int64, error) {
	if err := c.guard(); err != nil {
		return 0, err
	}

	sqlText, params, err := sqlgen.CompileCount(c.cols, sel)
	if err != nil {
		return 0, err
	}

	var n int64
	if err := c.handle.DB().QueryRowContext(ctx, sqlText, params...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", c.cols.Table, err)
	}
	return n, nil
}

// ChangesSince reads documents written after the checkpoint, in id order,
// capped at limit (limit <= 0 means no cap). Tombstones are included so
// consumers observe deletions.
//
// The returned checkpoint resumes the feed; when no rows qualify it is
// the one passed in, unchanged.
func (c *Collection) ChangesSince(ctx context.Context, cp *Checkpoint, limit int) ([]Document, *Checkpoint, error) {
	if err := c.guard(); err != nil {
		return nil, nil, err
	}

	var b strings.Builder
	var params []any
	fmt.Fprintf(&b, "SELECT %s FROM %s", c.cols.SelectList(), c.cols.QuotedTable())
	if cp != nil && cp.LastID != nil {
		last, err := c.cols.NormalizeKey(cp.LastID)
		if err != nil {
			return nil, nil, err
		}
		fmt.Fprintf(&b, " WHERE %s > ?", schema.QuoteIdent(schema.ColID))
		params = append(params, last)
	}
	fmt.Fprintf(&b, " ORDER BY %s ASC", schema.QuoteIdent(schema.ColID))
	if limit > 0 {
		b.WriteString(" LIMIT ?")
		params = append(params, int64(limit))
	}

	docs, lastWrite, err := c.queryDocsMeta(ctx, b.String(), params)
	if err != nil {
		return nil, nil, err
	}
	if len(docs) == 0 {
		return docs, cp, nil
	}

	last := docs[len(docs)-1]
	return docs, &Checkpoint{LastID: last.ID, UpdatedAt: lastWrite}, nil
}

// queryDocs executes a full-row query and decodes the documents.
func (c *Collection) queryDocs(ctx context.Context, query string, params []any) ([]Document, error) {
	docs, _, err := c.queryDocsMeta(ctx, query, params)
	return docs, err
}

// queryDocsMeta additionally reports the last row's write timestamp, for
// checkpoint construction.
func (c *Collection) queryDocsMeta(ctx context.Context, query string, params []any) ([]Document, int64, error) {
	rows, err := c.handle.DB().QueryContext(ctx, query, params...)
	if err != nil {
		return nil, 0, fmt.Errorf("query %s: %w", c.cols.Table, err)
	}
	defer rows.Close()

	docs := []Document{}
	var lastWrite int64
	for rows.Next() {
		doc, writeAt, err := c.scanDocument(rows)
		if err != nil {
			return nil, 0, err
		}
		docs = append(docs, doc)
		lastWrite = writeAt
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate %s: %w", c.cols.Table, err)
	}

	return docs, lastWrite, nil
}

// scanDocument decodes one full row in SelectList order: id, schema
// fields, deleted, revision, last_write_at.
func (c *Collection) scanDocument(rows *sql.Rows) (Document, int64, error) {
	n := 1 + len(c.cols.Fields) + 3
	raw := make([]any, n)
	ptrs := make([]any, n)
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return Document{}, 0, fmt.Errorf("scan %s: %w", c.cols.Table, err)
	}

	id, err := schema.DecodeValue(c.cols.Key, c.cols.KeyField(), raw[0])
	if err != nil {
		return Document{}, 0, err
	}

	doc := Document{ID: id, Fields: make(map[string]any, len(c.cols.Fields))}
	for i, col := range c.cols.Fields {
		v, err := schema.DecodeValue(col, col.Name, raw[1+i])
		if err != nil {
			return Document{}, 0, err
		}
		doc.Fields[col.Name] = v
	}

	deleted, ok := raw[n-3].(int64)
	if !ok {
		return Document{}, 0, fmt.Errorf("scan %s: deleted column held %T", c.cols.Table, raw[n-3])
	}
	doc.Deleted = deleted != 0

	switch rev := raw[n-2].(type) {
	case string:
		doc.Revision = rev
	case []byte:
		doc.Revision = string(rev)
	default:
		return Document{}, 0, fmt.Errorf("scan %s: revision column held %T", c.cols.Table, raw[n-2])
	}

	writeAt, ok := raw[n-1].(int64)
	if !ok {
		return Document{}, 0, fmt.Errorf("scan %s: last_write_at column held %T", c.cols.Table, raw[n-1])
	}

	return doc, writeAt, nil
}
