// Package schema maps document schemas onto relational column layouts.
//
// A Schema is an ordered set of field descriptors. Each descriptor is a
// tagged variant (String, Integer, Number, Boolean, Object, Array) plus a
// nullable flag. Building a Schema derives a ColumnMap: the SQL type,
// nullability, and encoding (native column vs. JSON text) for every field,
// together with the DDL that creates the backing table.
//
// The mapping is fixed:
//
//	string          → TEXT
//	integer         → INTEGER
//	number          → REAL
//	boolean         → INTEGER (0/1)
//	object, array   → TEXT (JSON-encoded)
//
// Every table carries the reserved columns id, deleted, revision and
// last_write_at. The primary-key field maps onto the reserved id column;
// its value travels in Document.ID, not in the field map.
package schema
