// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package token issues and redeems single-use expiring tokens.
package token

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"codeberg.org/oliverandrich/account-service/internal/apperr"
	"codeberg.org/oliverandrich/account-service/internal/metrics"
	"codeberg.org/oliverandrich/account-service/internal/models"
	"codeberg.org/oliverandrich/account-service/internal/repository"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

const (
	// Length is the number of characters of a raw token.
	Length = 48
	// VerificationTTL is how long email verification tokens are valid.
	VerificationTTL = 24 * time.Hour
	// ResetTTL is the default lifetime of password reset tokens.
	ResetTTL = time.Hour

	alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// Store is the token persistence contract.
type Store interface {
	CreateToken(ctx context.Context, token *models.Token) error
	GetTokenByHash(ctx context.Context, tokenHash string) (*models.Token, error)
	ConsumeToken(ctx context.Context, id string, at time.Time) (bool, error)
	DeleteStaleTokens(ctx context.Context, before time.Time) (int64, error)
}

// Manager issues and validates tokens.
type Manager struct {
	store Store
	now   func() time.Time

	entropyMu sync.Mutex
	entropy   *ulid.MonotonicEntropy
}

// NewManager creates a Manager backed by store.
func NewManager(store Store) *Manager {
	return &Manager{
		store:   store,
		now:     time.Now,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// WithClock replaces the time source. Used by tests.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Issue creates and stores a token of the given type. The raw token is
// returned exactly once; only its SHA256 hash is persisted.
func (m *Manager) Issue(ctx context.Context, accountID *uuid.UUID, typ models.TokenType, ttl time.Duration) (string, error) {
	raw, err := Generate()
	if err != nil {
		return "", apperr.Internal("failed to generate token", err)
	}

	now := m.now().UTC()
	id, err := m.newID(now)
	if err != nil {
		return "", apperr.Internal("failed to generate token id", err)
	}

	token := &models.Token{
		ID:        id,
		TokenHash: Hash(raw),
		AccountID: accountID,
		Type:      typ,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := m.store.CreateToken(ctx, token); err != nil {
		return "", apperr.Internal("failed to store token", err)
	}

	metrics.TokensIssued.WithLabelValues(string(typ)).Inc()
	return raw, nil
}

// ValidateAndConsume redeems a raw token and returns the account it is bound
// to. At most one of several concurrent callers with the same token succeeds.
func (m *Manager) ValidateAndConsume(ctx context.Context, raw string, expected models.TokenType) (uuid.UUID, error) {
	id, err := m.validateAndConsume(ctx, raw, expected)
	metrics.TokenRedemptions.WithLabelValues(string(expected), outcome(err)).Inc()
	return id, err
}

func (m *Manager) validateAndConsume(ctx context.Context, raw string, expected models.TokenType) (uuid.UUID, error) {
	token, err := m.lookup(ctx, raw, expected)
	if err != nil {
		return uuid.Nil, err
	}

	ok, err := m.store.ConsumeToken(ctx, token.ID, m.now())
	if err != nil {
		return uuid.Nil, apperr.Internal("failed to consume token", err)
	}
	if !ok {
		return uuid.Nil, apperr.ErrTokenAlreadyUsed
	}

	return *token.AccountID, nil
}

// Peek runs the same checks as ValidateAndConsume and returns the bound
// account without consuming the token.
func (m *Manager) Peek(ctx context.Context, raw string, expected models.TokenType) (uuid.UUID, error) {
	token, err := m.lookup(ctx, raw, expected)
	if err != nil {
		return uuid.Nil, err
	}
	return *token.AccountID, nil
}

func (m *Manager) lookup(ctx context.Context, raw string, expected models.TokenType) (*models.Token, error) {
	if raw == "" {
		return nil, apperr.ErrTokenNotFound
	}

	token, err := m.store.GetTokenByHash(ctx, Hash(raw))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.ErrTokenNotFound
	}
	if err != nil {
		return nil, apperr.Internal("failed to load token", err)
	}

	switch {
	case token.AccountID == nil:
		return nil, apperr.ErrTokenNotFound
	case token.Expired(m.now()):
		return nil, apperr.ErrTokenExpired
	case token.Consumed:
		return nil, apperr.ErrTokenAlreadyUsed
	case token.Type != expected:
		return nil, apperr.ErrTokenTypeMismatch
	}
	return token, nil
}

// PurgeExpired deletes expired and consumed tokens.
func (m *Manager) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := m.store.DeleteStaleTokens(ctx, m.now())
	if err != nil {
		return 0, fmt.Errorf("purging tokens: %w", err)
	}
	return n, nil
}

func (m *Manager) newID(now time.Time) (string, error) {
	m.entropyMu.Lock()
	defer m.entropyMu.Unlock()
	id, err := ulid.New(ulid.Timestamp(now), m.entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Generate returns a random token drawn uniformly from [A-Za-z0-9].
func Generate() (string, error) {
	buf := make([]byte, Length)
	limit := big.NewInt(int64(len(alphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		buf[i] = alphabet[n.Int64()]
	}
	return string(buf), nil
}

// Hash computes the SHA256 hash of a raw token.
func Hash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, apperr.ErrTokenNotFound):
		return "not_found"
	case errors.Is(err, apperr.ErrTokenExpired):
		return "expired"
	case errors.Is(err, apperr.ErrTokenAlreadyUsed):
		return "already_used"
	case errors.Is(err, apperr.ErrTokenTypeMismatch):
		return "type_mismatch"
	default:
		return "error"
	}
}
