package store

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/roach88/p4ir/internal/builder"
	"github.com/roach88/p4ir/internal/ir"
	"github.com/roach88/p4ir/internal/testutil"
)

// createTestStore creates a new file-backed store with deterministic build ids.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithIDGenerator(testutil.NewSequentialIDs()))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// regressionBuild builds the regression program and returns its record.
func regressionBuild(t *testing.T, decls []ir.Declaration) Build {
	t.Helper()
	prog, err := builder.Build(decls, builder.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	b, err := NewBuild("regression", "v1model", decls, prog.Main)
	if err != nil {
		t.Fatalf("NewBuild() failed: %v", err)
	}
	return b
}

// pragma reads a connection setting.
func (s *Store) pragma(name string) (string, error) {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return "", fmt.Errorf("query %s: %w", name, err)
	}
	return value, nil
}
