// Package selector defines the filter expression language for document
// queries: a recursive AST of logical combinators, comparisons, set
// membership, existence and substring-pattern nodes, plus sort and paging.
//
// Condition is a sealed interface (only types in this package implement
// it), so backend compilers can type-switch exhaustively.
//
// The package is pure: it builds, parses and validates expressions but
// never touches the database. Translation to SQL lives in sqlgen.
package selector
