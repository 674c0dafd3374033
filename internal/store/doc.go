// Package store implements document collections over embedded SQLite.
//
// A Collection binds one schema-mapped table on a shared, registered
// database connection. It exposes:
//
//   - a bulk write pipeline with optimistic concurrency (revision
//     tokens), applied all-or-nothing in one transaction
//   - point lookups, selector queries and counts through the sqlgen
//     compiler
//   - an incremental change feed: changes-since-checkpoint reads plus a
//     subscription stream that publishes one ordered batch per commit
//   - tombstone retention with an explicit reclamation pass
//
// Concurrency model: no internal workers. Every operation runs on the
// caller's goroutine against the single serialized connection owned by
// the conn registry, so statements (and therefore change batches) are
// ordered by submission. Once a write batch reaches its transaction it
// runs to commit or rollback; cancellation is honored only before that
// point.
package store
