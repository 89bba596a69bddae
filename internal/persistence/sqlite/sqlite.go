// Package sqlite persists entity records in a SQLite database through the
// pure Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/skillswap/internal/persistence"
	"github.com/example/skillswap/internal/persistence/sqlite/migration"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const driverName = "sqlite"

// Options configures Open.
type Options struct {
	DSN         string
	BusyTimeout time.Duration
	Retry       RetryConfig
	Logger      *slog.Logger
}

// Storage implements persistence.Backend on a single SQLite database.
type Storage struct {
	db     *sql.DB
	retry  *RetryHelper
	logger *slog.Logger
}

// Open connects to the database named by opts.DSN and applies pending migrations.
func Open(ctx context.Context, opts Options) (*Storage, error) {
	if opts.DSN == "" {
		return nil, errors.New("sqlite: DSN is required")
	}
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = 5 * time.Second
	}
	if opts.Retry == (RetryConfig{}) {
		opts.Retry = DefaultRetryConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open(driverName, opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", opts.DSN, err)
	}
	// One connection serialises writers and keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	s := newStorage(db, opts.Retry, logger)
	if err := s.configure(ctx, opts.BusyTimeout); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func newStorage(db *sql.DB, retry RetryConfig, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		retry:  NewRetryHelper(retry),
		logger: logger.With("component", "sqlite"),
	}
}

func (s *Storage) configure(ctx context.Context, busyTimeout time.Duration) error {
	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeout.Milliseconds()),
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := s.db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}
	return nil
}

func (s *Storage) migrate(ctx context.Context) error {
	migrations, err := migration.Scan(migrationFiles, "migrations")
	if err != nil {
		return err
	}
	manager := migration.NewManager(migration.NewSQLiteExecutor(s.db), migrations, s.logger)
	return manager.Run(ctx)
}

// Ping verifies the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the underlying database handle.
func (s *Storage) Close() error {
	return s.db.Close()
}

// Get retrieves a record by collection and ID.
func (s *Storage) Get(ctx context.Context, collection persistence.Collection, id string) (persistence.Record, error) {
	const query = `SELECT data, updated_at FROM entities WHERE collection = ? AND id = ?`

	var (
		data      []byte
		updatedAt string
	)
	err := s.retry.WithRetry(ctx, func() error {
		return s.db.QueryRowContext(ctx, query, string(collection), id).Scan(&data, &updatedAt)
	})
	if err != nil {
		return persistence.Record{}, mapError(err)
	}

	record := persistence.Record{Collection: collection, ID: id, Data: data}
	if record.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return persistence.Record{}, err
	}
	return record, nil
}

// Upsert writes every record in one transaction. New records are appended
// after the current highest sequence number; updates keep their position.
func (s *Storage) Upsert(ctx context.Context, records ...persistence.Record) error {
	for _, record := range records {
		if err := record.Validate(); err != nil {
			return err
		}
	}
	if len(records) == 0 {
		return nil
	}

	const upsert = `
		INSERT INTO entities (collection, id, seq, data, updated_at)
		VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM entities), ?, ?)
		ON CONFLICT (collection, id) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at`

	err := s.retry.WithRetry(ctx, func() error {
		return s.WithTransaction(ctx, func(tx *sql.Tx) error {
			stmt, err := tx.PrepareContext(ctx, upsert)
			if err != nil {
				return err
			}
			defer stmt.Close()

			for _, record := range records {
				if _, err := stmt.ExecContext(ctx,
					string(record.Collection),
					record.ID,
					record.Data,
					formatTimestamp(record.UpdatedAt),
				); err != nil {
					return fmt.Errorf("upsert %s/%s: %w", record.Collection, record.ID, err)
				}
			}
			return nil
		})
	})
	return mapError(err)
}

// Query returns every record of a collection in insertion order.
func (s *Storage) Query(ctx context.Context, collection persistence.Collection) ([]persistence.Record, error) {
	const query = `SELECT id, data, updated_at FROM entities WHERE collection = ? ORDER BY seq ASC`

	var records []persistence.Record
	err := s.retry.WithRetry(ctx, func() error {
		records = make([]persistence.Record, 0)
		rows, err := s.db.QueryContext(ctx, query, string(collection))
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				record    = persistence.Record{Collection: collection}
				updatedAt string
			)
			if err := rows.Scan(&record.ID, &record.Data, &updatedAt); err != nil {
				return err
			}
			if record.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
				return err
			}
			records = append(records, record)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, mapError(err)
	}
	return records, nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: parse timestamp %q: %w", value, err)
	}
	return t, nil
}
