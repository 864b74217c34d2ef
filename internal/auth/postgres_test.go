package auth

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PGStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewPGStore(db), mock
}

func TestPGStoreCreate(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tok := &RefreshToken{
		ID:        "01HTEST0000000000000000000",
		UserID:    "user-1",
		Username:  "admin",
		TokenHash: "deadbeef",
		IssuedAt:  now,
		ExpiresAt: now.Add(7 * 24 * time.Hour),
	}

	mock.ExpectExec(`insert into refresh_tokens`).
		WithArgs(tok.ID, tok.UserID, tok.Username, tok.TokenHash, tok.IssuedAt, tok.ExpiresAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Create(context.Background(), tok))
}

func TestPGStoreFind(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	revokedAt := now.Add(time.Minute)

	rows := sqlmock.NewRows([]string{
		"id", "user_id", "username", "token_hash", "issued_at", "expires_at",
		"revoked", "revoked_at", "replaced_by",
	}).AddRow("tok-1", "user-1", "admin", "deadbeef", now, now.Add(time.Hour),
		true, revokedAt, "tok-2")

	mock.ExpectQuery(`select .+ from refresh_tokens where id=\$1`).
		WithArgs("tok-1").
		WillReturnRows(rows)

	tok, err := store.Find(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", tok.UserID)
	assert.Equal(t, "admin", tok.Username)
	assert.True(t, tok.Revoked)
	require.NotNil(t, tok.RevokedAt)
	assert.Equal(t, revokedAt, *tok.RevokedAt)
	assert.Equal(t, "tok-2", tok.ReplacedBy)
}

func TestPGStoreFindNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`select .+ from refresh_tokens where id=\$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "username", "token_hash", "issued_at", "expires_at",
			"revoked", "revoked_at", "replaced_by",
		}))

	_, err := store.Find(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPGStoreRevokeIfActive(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("winner", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec(`update refresh_tokens`).
			WithArgs("tok-1", now, "tok-2").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, store.RevokeIfActive(context.Background(), "tok-1", "tok-2", now))
	})

	t.Run("already revoked", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec(`update refresh_tokens`).
			WithArgs("tok-1", now, "tok-3").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := store.RevokeIfActive(context.Background(), "tok-1", "tok-3", now)
		assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	})
}

func TestPGStoreRevokeAllForUser(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec(`update refresh_tokens set revoked = true`).
		WithArgs("user-1", now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := store.RevokeAllForUser(context.Background(), "user-1", now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestPGStoreDeleteExpired(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec(`delete from refresh_tokens where expires_at < \$1`).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 5))

	n, err := store.DeleteExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
}
