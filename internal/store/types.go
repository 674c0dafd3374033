package store

// Document is one versioned, identified record.
//
// ID holds the primary-key value (string or int64 per the schema) and is
// immutable once created. Revision is an opaque token replaced on every
// successful mutation. A document with Deleted set is a tombstone: it
// stays in the table, invisible to queries, until a reclamation pass
// purges it.
//
// Fields maps field names to values and never contains the primary-key
// field; that value travels in ID.
type Document struct {
	ID       any
	Revision string
	Deleted  bool
	Fields   map[string]any
}

// Write is one entry of a bulk write batch.
//
// PreviousRevision is the revision the caller last observed: empty for an
// expected-new document, the current revision otherwise. A mismatch with
// the stored revision rejects the whole batch.
type Write struct {
	Document         Document
	PreviousRevision string
}

// Rejection describes why one write could not be accepted.
type Rejection struct {
	DocumentID any
	Err        error
}

// BulkWriteResult reports the outcome of a batch.
//
// The batch is a single unit of change: either every write lands
// (Applied holds the documents with their new revisions, Rejected is
// empty) or none does (Applied is empty and Rejected carries the
// per-document diagnostics that caused the abort).
type BulkWriteResult struct {
	Applied  []Document
	Rejected []Rejection
}

// Operation classifies a change event.
type Operation string

const (
	OpInsert Operation = "INSERT"
	OpUpdate Operation = "UPDATE"
	OpDelete Operation = "DELETE"
)

// Checkpoint is a strictly advancing cursor over document-id ordering,
// used to resume the change feed. UpdatedAt is milliseconds since epoch.
type Checkpoint struct {
	LastID    any   `json:"lastId"`
	UpdatedAt int64 `json:"updatedAt"`
}

// ChangeEvent describes one applied write, produced only after its batch
// committed.
//
// Operation is DELETE when the new document is a tombstone, UPDATE when a
// row existed before the write, INSERT otherwise. Previous is nil for
// inserts.
type ChangeEvent struct {
	DocumentID any
	Operation  Operation
	Document   Document
	Previous   *Document
	Checkpoint Checkpoint
}

// ChangeBatch is the unit published to subscribers: all events of one
// committed bulk write, in submission order, with the batch's final
// checkpoint. Subscribers never observe partial batches.
type ChangeBatch struct {
	Events     []ChangeEvent
	Checkpoint Checkpoint
}
