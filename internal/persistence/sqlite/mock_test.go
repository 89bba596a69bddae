package sqlite

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/skillswap/internal/persistence"
)

func newMockStorage(t *testing.T) (*Storage, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	retry := RetryConfig{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 1}
	return newStorage(db, retry, slog.New(slog.NewTextHandler(io.Discard, nil))), mock
}

func TestStorage_GetRetriesWhileLocked(t *testing.T) {
	storage, mock := newMockStorage(t)
	query := regexp.QuoteMeta(`SELECT data, updated_at FROM entities WHERE collection = ? AND id = ?`)

	mock.ExpectQuery(query).WithArgs("users", "user-1").WillReturnError(errors.New("database is locked"))
	mock.ExpectQuery(query).WithArgs("users", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"data", "updated_at"}).AddRow([]byte(`{}`), "2024-01-02T15:04:05Z"))

	record, err := storage.Get(context.Background(), persistence.CollectionUsers, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", record.ID)
	assert.Equal(t, time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC), record.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_GetMapsNoRows(t *testing.T) {
	storage, mock := newMockStorage(t)

	mock.ExpectQuery("SELECT data, updated_at FROM entities").
		WillReturnRows(sqlmock.NewRows([]string{"data", "updated_at"}))

	_, err := storage.Get(context.Background(), persistence.CollectionSwaps, "missing")
	assert.ErrorIs(t, err, persistence.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_UpsertRollsBackOnStatementFailure(t *testing.T) {
	storage, mock := newMockStorage(t)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO entities")
	prep.ExpectExec().WithArgs("swaps", "swap-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WithArgs("swap_requests", "req-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	err := storage.Upsert(context.Background(),
		persistence.Record{Collection: persistence.CollectionSwaps, ID: "swap-1", Data: []byte(`{}`)},
		persistence.Record{Collection: persistence.CollectionRequests, ID: "req-1", Data: []byte(`{}`)},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}
