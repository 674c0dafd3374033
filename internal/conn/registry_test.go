package conn

import (
	"path/filepath"
	"testing"
)

func TestOpenCreatesDatabase(t *testing.T) {
	reg := NewRegistry()
	path := filepath.Join(t.TempDir(), "test.db")

	h, err := reg.Open("primary", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer h.Release()

	if h.Name() != "primary" {
		t.Errorf("name = %q, want %q", h.Name(), "primary")
	}
	if h.DB() == nil {
		t.Fatal("handle has no connection")
	}
	if err := h.DB().Ping(); err != nil {
		t.Errorf("ping: %v", err)
	}
}

func TestOpenRejectsEmptyName(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Open("", filepath.Join(t.TempDir(), "test.db"))
	if err == nil {
		t.Fatal("expected error for empty name")
	}
	if !IsConnectionError(err) {
		t.Errorf("expected ConnectionError, got %T", err)
	}
}

func TestOpenSharesConnectionByName(t *testing.T) {
	reg := NewRegistry()
	path := filepath.Join(t.TempDir(), "shared.db")

	h1, err := reg.Open("shared", path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	h2, err := reg.Open("shared", path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}

	if h1.DB() != h2.DB() {
		t.Error("handles for the same name should share a connection")
	}

	// First release keeps the connection alive for the second holder.
	if err := h1.Release(); err != nil {
		t.Fatalf("release first handle: %v", err)
	}
	if err := h2.DB().Ping(); err != nil {
		t.Errorf("ping after partial release: %v", err)
	}

	if err := h2.Release(); err != nil {
		t.Fatalf("release second handle: %v", err)
	}
	if err := h2.DB().Ping(); err == nil {
		t.Error("connection should be closed after last release")
	}
}

func TestOpenRejectsPathMismatch(t *testing.T) {
	reg := NewRegistry()
	dir := t.TempDir()

	h, err := reg.Open("db", filepath.Join(dir, "a.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer h.Release()

	_, err = reg.Open("db", filepath.Join(dir, "b.db"))
	if err == nil {
		t.Fatal("expected error for conflicting path")
	}
	if !IsConnectionError(err) {
		t.Errorf("expected ConnectionError, got %T", err)
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	reg := NewRegistry()

	h, err := reg.Open("db", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if err := h.Release(); err != nil {
		t.Fatalf("first release: %v", err)
	}
	if err := h.Release(); err != nil {
		t.Fatalf("second release: %v", err)
	}
}

func TestReleaseReopens(t *testing.T) {
	reg := NewRegistry()
	path := filepath.Join(t.TempDir(), "test.db")

	h, err := reg.Open("db", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := h.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}

	// The name is free again after the last release.
	h2, err := reg.Open("db", filepath.Join(t.TempDir(), "other.db"))
	if err != nil {
		t.Fatalf("reopen under released name: %v", err)
	}
	defer h2.Release()
}

func TestRaw(t *testing.T) {
	reg := NewRegistry()

	if _, ok := reg.Raw("missing"); ok {
		t.Error("Raw should miss for unregistered name")
	}

	h, err := reg.Open("db", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer h.Release()

	db, ok := reg.Raw("db")
	if !ok {
		t.Fatal("Raw should hit for registered name")
	}
	if db != h.DB() {
		t.Error("Raw should return the shared connection")
	}
}

func TestNames(t *testing.T) {
	reg := NewRegistry()
	dir := t.TempDir()

	hb, err := reg.Open("beta", filepath.Join(dir, "b.db"))
	if err != nil {
		t.Fatalf("open beta: %v", err)
	}
	defer hb.Release()
	ha, err := reg.Open("alpha", filepath.Join(dir, "a.db"))
	if err != nil {
		t.Fatalf("open alpha: %v", err)
	}
	defer ha.Release()

	names := reg.Names()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "beta" {
		t.Errorf("names = %v, want [alpha beta]", names)
	}
}

func TestPragmas(t *testing.T) {
	reg := NewRegistry()

	h, err := reg.Open("db", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer h.Release()

	var journal string
	if err := h.DB().QueryRow("PRAGMA journal_mode").Scan(&journal); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if journal != "wal" {
		t.Errorf("journal_mode = %q, want wal", journal)
	}

	var fk int
	if err := h.DB().QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("query foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys = %d, want 1", fk)
	}
}
