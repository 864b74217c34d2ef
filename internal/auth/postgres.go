package auth

import (
	"context"
	"database/sql"
	"time"
)

var _ RefreshTokenStore = (*PGStore)(nil)

// PGStore implements RefreshTokenStore on PostgreSQL. The conditional
// `where revoked = false` in RevokeIfActive is what makes rotation a
// single point of truth under concurrent refresh calls.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Create(ctx context.Context, tok *RefreshToken) error {
	_, err := s.db.ExecContext(ctx,
		`insert into refresh_tokens(id, user_id, username, token_hash, issued_at, expires_at)
		 values($1,$2,$3,$4,$5,$6)`,
		tok.ID, tok.UserID, tok.Username, tok.TokenHash, tok.IssuedAt, tok.ExpiresAt,
	)
	return err
}

func (s *PGStore) Find(ctx context.Context, id string) (*RefreshToken, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, user_id, username, token_hash, issued_at, expires_at, revoked, revoked_at, replaced_by
		 from refresh_tokens where id=$1`, id)

	var (
		tok        RefreshToken
		revokedAt  sql.NullTime
		replacedBy sql.NullString
	)
	err := row.Scan(&tok.ID, &tok.UserID, &tok.Username, &tok.TokenHash,
		&tok.IssuedAt, &tok.ExpiresAt, &tok.Revoked, &revokedAt, &replacedBy)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if revokedAt.Valid {
		t := revokedAt.Time
		tok.RevokedAt = &t
	}
	tok.ReplacedBy = replacedBy.String
	return &tok, nil
}

func (s *PGStore) RevokeIfActive(ctx context.Context, id, replacedBy string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`update refresh_tokens
		 set revoked = true, revoked_at = $2, replaced_by = nullif($3, '')
		 where id = $1 and revoked = false`,
		id, at, replacedBy,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrInvalidRefreshToken
	}
	return nil
}

func (s *PGStore) RevokeAllForUser(ctx context.Context, userID string, at time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`update refresh_tokens set revoked = true, revoked_at = $2
		 where user_id = $1 and revoked = false`,
		userID, at,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *PGStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`delete from refresh_tokens where expires_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
