package testfixtures

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/example/skillswap/internal/persistence"
	"github.com/example/skillswap/internal/persistence/memory"
	"github.com/example/skillswap/internal/persistence/sqlite"
)

// BackendFactory opens a fresh, empty persistence backend for a test.
type BackendFactory struct {
	Name string
	Open func(tb testing.TB) persistence.Backend
}

// Backends lists every backend so integration-style tests can run against each.
func Backends() []BackendFactory {
	return []BackendFactory{
		{Name: "memory", Open: NewMemoryBackend},
		{Name: "sqlite", Open: func(tb testing.TB) persistence.Backend { return NewSQLiteBackend(tb) }},
	}
}

// NewMemoryBackend returns an in-memory backend closed at test cleanup.
func NewMemoryBackend(tb testing.TB) persistence.Backend {
	tb.Helper()
	storage := memory.Open()
	tb.Cleanup(func() { _ = storage.Close() })
	return storage
}

// NewSQLiteBackend opens a migrated SQLite database in a temporary file.
// The storage is closed automatically when the test finishes.
func NewSQLiteBackend(tb testing.TB) *sqlite.Storage {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "skillswap.db")
	storage, err := sqlite.Open(context.Background(), sqlite.Options{
		DSN:    "file:" + path,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	tb.Cleanup(func() {
		_ = storage.Close()
	})
	return storage
}
