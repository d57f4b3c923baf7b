// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"time"

	"github.com/google/uuid"
)

// TokenType distinguishes what a single-use token may be redeemed for.
type TokenType string

const (
	TokenEmailVerification TokenType = "email_verification"
	TokenPasswordReset     TokenType = "password_reset"
)

// Token stores a hashed single-use token.
type Token struct { //nolint:govet // fieldalignment: readability over optimization
	ID         string     `db:"id" json:"id"`
	TokenHash  string     `db:"token_hash" json:"-"` // SHA256 hash
	AccountID  *uuid.UUID `db:"account_id" json:"account_id,omitempty"`
	Type       TokenType  `db:"token_type" json:"token_type"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	ExpiresAt  time.Time  `db:"expires_at" json:"expires_at"`
	Consumed   bool       `db:"consumed" json:"consumed"`
	ConsumedAt *time.Time `db:"consumed_at" json:"consumed_at,omitempty"`
}

// Expired reports whether the token is past its expiry at now.
func (t *Token) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
