package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/docsql/internal/schema"
)

// pendingWrite is one batch entry after validation: normalized id,
// encoded column values, and the prior row if one exists.
type pendingWrite struct {
	doc     Document // normalized copy, Revision filled during apply
	row     []any    // encoded values, cols.Fields order
	prev    *Document
	existed bool
	prevRev string
	deleted bool
}

// BulkWrite validates and applies a batch of document writes as one unit
// of change.
//
// Validation phase: ids are normalized, every document is encoded against
// the column map (schema mapping failures abort immediately), and current
// revisions are fetched with a single lookup. Any revision mismatch
// rejects the entire batch: the result carries the per-document
// ConflictError diagnostics and the first conflict is returned as the
// error, with nothing applied.
//
// Apply phase: one transaction, UPDATE for existing ids and INSERT for
// new ones. An engine constraint failure rolls the whole transaction
// back; no partial success is observable. Cancellation is honored before
// the transaction begins, never after.
//
// Notify phase: runs only after commit. One change event per applied
// write, the checkpoint advances to the last applied id, and the batch
// publishes to subscribers in commit order.
func (c *Collection) BulkWrite(ctx context.Context, writes []Write) (BulkWriteResult, error) {
	if err := c.guard(); err != nil {
		return BulkWriteResult{}, err
	}
	if len(writes) == 0 {
		return BulkWriteResult{}, nil
	}

	pending, ids, err := c.validateDocuments(writes)
	if err != nil {
		return BulkWriteResult{}, err
	}

	current, err := c.fetchDocs(ctx, ids, true)
	if err != nil {
		return BulkWriteResult{}, err
	}
	currentByID := make(map[any]Document, len(current))
	for _, doc := range current {
		currentByID[doc.ID] = doc
	}

	var (
		result   BulkWriteResult
		firstErr error
	)
	for i := range pending {
		p := &pending[i]
		if prev, ok := currentByID[p.doc.ID]; ok {
			prevCopy := prev
			p.prev = &prevCopy
			p.existed = true
			p.prevRev = prev.Revision
		}
		if writes[i].PreviousRevision != p.prevRev {
			conflict := &ConflictError{
				DocumentID: p.doc.ID,
				Expected:   writes[i].PreviousRevision,
				Actual:     p.prevRev,
			}
			result.Rejected = append(result.Rejected, Rejection{DocumentID: p.doc.ID, Err: conflict})
			if firstErr == nil {
				firstErr = conflict
			}
		}
	}
	if firstErr != nil {
		// Whole-batch rejection: one conflict voids every write.
		return result, firstErr
	}

	// Last cancellation point. From here the batch runs to commit or
	// rollback atomically.
	if err := ctx.Err(); err != nil {
		return BulkWriteResult{}, err
	}

	now := c.nowMillis()
	if err := c.applyBatch(context.WithoutCancel(ctx), pending, now); err != nil {
		return BulkWriteResult{}, err
	}

	batch := c.buildBatch(pending, now)
	c.stream.publish(batch)

	for _, p := range pending {
		result.Applied = append(result.Applied, p.doc)
	}
	return result, nil
}

// validateDocuments normalizes ids and encodes every document against the
// column map. Fails fast with a MappingError; no I/O has happened yet.
func (c *Collection) validateDocuments(writes []Write) ([]pendingWrite, []any, error) {
	pending := make([]pendingWrite, 0, len(writes))
	ids := make([]any, 0, len(writes))
	seen := make(map[any]struct{}, len(writes))

	for _, w := range writes {
		id, err := c.cols.NormalizeKey(w.Document.ID)
		if err != nil {
			return nil, nil, err
		}
		if _, dup := seen[id]; dup {
			return nil, nil, &schema.MappingError{
				Field:  c.cols.KeyField(),
				Reason: fmt.Sprintf("document %v appears twice in batch", id),
			}
		}
		seen[id] = struct{}{}

		row, normFields, err := c.encodeFields(w.Document.Fields)
		if err != nil {
			return nil, nil, err
		}

		pending = append(pending, pendingWrite{
			doc: Document{
				ID:      id,
				Deleted: w.Document.Deleted,
				Fields:  normFields,
			},
			row:     row,
			deleted: w.Document.Deleted,
		})
		ids = append(ids, id)
	}

	return pending, ids, nil
}

// encodeFields encodes a field map into column order, and returns the
// normalized field map stored back on the document (missing nullable
// fields become explicit nulls).
func (c *Collection) encodeFields(fields map[string]any) ([]any, map[string]any, error) {
	if _, ok := fields[c.cols.KeyField()]; ok {
		return nil, nil, &schema.MappingError{
			Field:  c.cols.KeyField(),
			Reason: "primary key belongs in the document id, not the field map",
		}
	}
	for name := range fields {
		if _, ok := c.cols.ColumnFor(name); !ok {
			return nil, nil, &schema.MappingError{Field: name, Reason: "field not in schema"}
		}
	}

	row := make([]any, len(c.cols.Fields))
	norm := make(map[string]any, len(c.cols.Fields))
	for i, col := range c.cols.Fields {
		v := fields[col.Name] // missing field encodes as null
		enc, err := schema.EncodeValue(col, col.Name, v)
		if err != nil {
			return nil, nil, err
		}
		row[i] = enc
		norm[col.Name] = v
	}
	return row, norm, nil
}

// applyBatch runs the transactional apply phase and fills in the new
// revisions on success.
func (c *Collection) applyBatch(ctx context.Context, pending []pendingWrite, now int64) error {
	db := c.handle.DB()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return c.fail(fmt.Errorf("begin batch: %w", err))
	}
	defer tx.Rollback() // No-op if committed

	insertSQL := c.insertSQL()
	updateSQL := c.updateSQL()

	for i := range pending {
		p := &pending[i]
		p.doc.Revision = nextRevision(p.prevRev)

		deleted := int64(0)
		if p.deleted {
			deleted = 1
		}

		args := make([]any, 0, len(p.row)+4)
		if p.existed {
			args = append(args, p.row...)
			args = append(args, deleted, p.doc.Revision, now, p.doc.ID)
			_, err = tx.ExecContext(ctx, updateSQL, args...)
		} else {
			args = append(args, p.doc.ID)
			args = append(args, p.row...)
			args = append(args, deleted, p.doc.Revision, now)
			_, err = tx.ExecContext(ctx, insertSQL, args...)
		}
		if err != nil {
			// Rollback via the deferred handler; nothing of the batch
			// remains visible.
			return fmt.Errorf("apply write %v: %w", p.doc.ID, classifyExecError(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return c.fail(fmt.Errorf("commit batch: %w", err))
	}
	return nil
}

// buildBatch constructs the change events for an applied batch.
// Only called after a successful commit.
func (c *Collection) buildBatch(pending []pendingWrite, now int64) ChangeBatch {
	batch := ChangeBatch{Events: make([]ChangeEvent, 0, len(pending))}
	for _, p := range pending {
		op := OpInsert
		switch {
		case p.deleted:
			op = OpDelete
		case p.existed:
			op = OpUpdate
		}

		cp := Checkpoint{LastID: p.doc.ID, UpdatedAt: now}
		batch.Events = append(batch.Events, ChangeEvent{
			DocumentID: p.doc.ID,
			Operation:  op,
			Document:   p.doc,
			Previous:   p.prev,
			Checkpoint: cp,
		})
		batch.Checkpoint = cp
	}
	return batch
}

func (c *Collection) insertSQL() string {
	var cols, marks strings.Builder
	cols.WriteString(schema.QuoteIdent(schema.ColID))
	marks.WriteString("?")
	for _, col := range c.cols.Fields {
		cols.WriteString(", " + schema.QuoteIdent(col.Name))
		marks.WriteString(", ?")
	}
	for _, name := range []string{schema.ColDeleted, schema.ColRevision, schema.ColLastWriteAt} {
		cols.WriteString(", " + schema.QuoteIdent(name))
		marks.WriteString(", ?")
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		c.cols.QuotedTable(), cols.String(), marks.String())
}

func (c *Collection) updateSQL() string {
	var set strings.Builder
	for _, col := range c.cols.Fields {
		set.WriteString(schema.QuoteIdent(col.Name) + " = ?, ")
	}
	set.WriteString(schema.QuoteIdent(schema.ColDeleted) + " = ?, ")
	set.WriteString(schema.QuoteIdent(schema.ColRevision) + " = ?, ")
	set.WriteString(schema.QuoteIdent(schema.ColLastWriteAt) + " = ?")
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
		c.cols.QuotedTable(), set.String(), schema.QuoteIdent(schema.ColID))
}

// nextRevision builds the replacement revision token: a height counter
// that is monotonic per document, plus fresh entropy so two versions at
// the same height never collide.
func nextRevision(prev string) string {
	height := 0
	if prev != "" {
		if i := strings.IndexByte(prev, '-'); i > 0 {
			if h, err := strconv.Atoi(prev[:i]); err == nil {
				height = h
			}
		}
	}
	return fmt.Sprintf("%d-%s", height+1, uuid.NewString()[:8])
}

// Cleanup purges tombstones whose last write is older than minDeletedAge.
// Returns the number of rows reclaimed. Live rows are never touched.
func (c *Collection) Cleanup(ctx context.Context, minDeletedAge time.Duration) (int64, error) {
	if err := c.guard(); err != nil {
		return 0, err
	}

	cutoff := c.nowMillis() - minDeletedAge.Milliseconds()
	res, err := c.handle.DB().ExecContext(ctx, fmt.Sprintf(
		"DELETE FROM %s WHERE %s = 1 AND %s <= ?",
		c.cols.QuotedTable(),
		schema.QuoteIdent(schema.ColDeleted),
		schema.QuoteIdent(schema.ColLastWriteAt),
	), cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup %s: %w", c.cols.Table, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cleanup %s: rows affected: %w", c.cols.Table, err)
	}
	return n, nil
}

// ChangeStream opens a subscription on the change feed. Cancel it when
// done; Close cancels all open subscriptions.
func (c *Collection) ChangeStream() *Subscription {
	return c.stream.subscribe()
}
