package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/hotel-booking/internal/database"
)

// ErrRefreshInvalid covers unknown, revoked and expired refresh tokens, and
// tokens whose user has been deleted.
var ErrRefreshInvalid = errors.New("invalid refresh token")

// TokenRepo stores refresh tokens by SHA-256 hash; the raw token never
// reaches the database.
type TokenRepo struct {
	DB  *sql.DB
	now func() time.Time
}

func NewTokenRepo(db *sql.DB) *TokenRepo {
	return &TokenRepo{DB: db, now: func() time.Time { return time.Now().UTC() }}
}

const refreshLookup = `SELECT rt.user_id, rt.expires_at, rt.revoked_at
	 FROM refresh_tokens rt
	 JOIN users u ON u.id = rt.user_id AND u.deleted_at IS NULL
	 WHERE rt.token_hash = ?`

func (r *TokenRepo) StoreRefresh(ctx context.Context, userID, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?, ?, ?)",
		userID, tokenHash, exp.UTC())
	return err
}

// ValidateRefresh returns the owner of a live token.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (string, error) {
	return r.lookup(ctx, r.DB, refreshLookup, tokenHash)
}

// ConsumeRefresh validates and revokes a token in one transaction.  The
// token row is locked, so two concurrent refreshes with the same token
// cannot both succeed.
func (r *TokenRepo) ConsumeRefresh(ctx context.Context, tokenHash string) (string, error) {
	var userID string
	err := database.WithTx(ctx, r.DB, nil, func(tx *sql.Tx) error {
		var err error
		if userID, err = r.lookup(ctx, tx, refreshLookup+" FOR UPDATE", tokenHash); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			"UPDATE refresh_tokens SET revoked_at = ? WHERE token_hash = ?", r.now(), tokenHash)
		return err
	})
	if err != nil {
		return "", err
	}
	return userID, nil
}

func (r *TokenRepo) lookup(ctx context.Context, q querier, query, tokenHash string) (string, error) {
	var (
		userID    string
		expiresAt time.Time
		revokedAt sql.NullTime
	)
	err := q.QueryRowContext(ctx, query, tokenHash).Scan(&userID, &expiresAt, &revokedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", ErrRefreshInvalid
	case err != nil:
		return "", err
	case revokedAt.Valid, !r.now().Before(expiresAt):
		return "", ErrRefreshInvalid
	}
	return userID, nil
}

func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at = ? WHERE token_hash = ? AND revoked_at IS NULL",
		r.now(), tokenHash)
	return err
}

// RevokeAllForUser signs a user out everywhere.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at = ? WHERE user_id = ? AND revoked_at IS NULL",
		r.now(), userID)
	return err
}
