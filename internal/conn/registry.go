// Package conn owns the embedded SQLite connections.
//
// A Registry maps database names to live handles with reference counting:
// callers addressing the same name share one serialized connection, and
// the underlying pool closes only when the last holder releases it. This
// replaces the usual module-level map of open databases with explicit
// ownership.
//
// Each database opens with a single-connection pool. SQLite supports one
// writer at a time, and funneling every statement through one connection
// is what serializes writes in process. Concurrent writers from separate
// processes against the same file are out of scope and unsafe.
package conn

import (
	"database/sql"
	"fmt"
	"sort"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// Registry is a named, ref-counted set of open SQLite databases.
// The zero value is not usable; construct with NewRegistry.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	db   *sql.DB
	path string
	refs int
}

// Handle is one caller's reference to a shared database connection.
// Release it when done; the connection closes on the last release.
type Handle struct {
	reg  *Registry
	name string
	db   *sql.DB

	mu       sync.Mutex
	released bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Open returns a handle on the database registered under name, opening
// the SQLite file at path on first use. Subsequent opens of the same name
// must pass the same path and share the existing connection.
//
// The database is configured with WAL journaling, NORMAL synchronous
// mode, a 5-second busy timeout and foreign key enforcement.
func (r *Registry) Open(name, path string) (*Handle, error) {
	if name == "" {
		return nil, &ConnectionError{Name: name, Op: "open", Reason: "empty database name"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[name]; ok {
		if e.path != path {
			return nil, &ConnectionError{
				Name: name, Op: "open",
				Reason: fmt.Sprintf("already open at %q, requested %q", e.path, path),
			}
		}
		e.refs++
		return &Handle{reg: r, name: name, db: e.db}, nil
	}

	db, err := openDatabase(path)
	if err != nil {
		return nil, &ConnectionError{Name: name, Op: "open", Reason: err.Error(), cause: err}
	}

	r.entries[name] = &entry{db: db, path: path, refs: 1}
	return &Handle{reg: r, name: name, db: db}, nil
}

// Raw returns the live connection registered under name, if any.
//
// This is the privileged escape hatch for ad-hoc statements. It bypasses
// the write pipeline entirely: no conflict detection, no change events,
// and no safety against concurrent writers. The caller shares the single
// serialized connection with every other holder of the name.
func (r *Registry) Raw(name string) (*sql.DB, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	return e.db, true
}

// Names lists the currently registered database names, sorted.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DB returns the shared connection behind this handle.
func (h *Handle) DB() *sql.DB {
	return h.db
}

// Name returns the database name this handle references.
func (h *Handle) Name() string {
	return h.name
}

// Release drops this handle's reference. The connection closes when the
// last reference is released. Release is idempotent.
func (h *Handle) Release() error {
	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		return nil
	}
	h.released = true
	h.mu.Unlock()

	h.reg.mu.Lock()
	defer h.reg.mu.Unlock()

	e, ok := h.reg.entries[h.name]
	if !ok {
		return nil
	}
	e.refs--
	if e.refs > 0 {
		return nil
	}

	delete(h.reg.entries, h.name)
	if err := e.db.Close(); err != nil {
		return &ConnectionError{Name: h.name, Op: "close", Reason: err.Error(), cause: err}
	}
	return nil
}

// openDatabase opens the SQLite file and applies the required pragmas.
func openDatabase(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// Single writer to avoid SQLITE_BUSY errors; one idle connection ready.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}
