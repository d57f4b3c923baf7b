// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/oliverandrich/account-service/internal/models"
)

// CreateToken stores a new token row.
func (r *Repository) CreateToken(ctx context.Context, token *models.Token) error {
	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO tokens (id, token_hash, account_id, token_type, created_at, expires_at, consumed, consumed_at)
		 VALUES (:id, :token_hash, :account_id, :token_type, :created_at, :expires_at, :consumed, :consumed_at)`,
		token)
	return wrapError(err)
}

// GetTokenByHash retrieves a token by the SHA256 hash of its raw value.
func (r *Repository) GetTokenByHash(ctx context.Context, tokenHash string) (*models.Token, error) {
	var token models.Token
	err := r.db.GetContext(ctx, &token,
		`SELECT id, token_hash, account_id, token_type, created_at, expires_at, consumed, consumed_at
		 FROM tokens WHERE token_hash = ?`, tokenHash)
	if err != nil {
		return nil, wrapError(err)
	}
	return &token, nil
}

// ConsumeToken marks an unconsumed token as consumed. It reports false when
// the token was already consumed, so of several concurrent callers exactly
// one sees true.
func (r *Repository) ConsumeToken(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE tokens SET consumed = 1, consumed_at = ? WHERE id = ? AND consumed = 0`,
		at.UTC(), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// DeleteStaleTokens deletes tokens that expired before the given time or
// have been consumed, returning how many rows were removed.
func (r *Repository) DeleteStaleTokens(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM tokens WHERE expires_at < ? OR consumed = 1`, before.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
