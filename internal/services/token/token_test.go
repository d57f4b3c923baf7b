// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package token_test

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"codeberg.org/oliverandrich/account-service/internal/apperr"
	"codeberg.org/oliverandrich/account-service/internal/models"
	"codeberg.org/oliverandrich/account-service/internal/repository"
	"codeberg.org/oliverandrich/account-service/internal/services/token"
	"codeberg.org/oliverandrich/account-service/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tokenPattern = regexp.MustCompile(`^[A-Za-z0-9]{48}$`)

type clock struct {
	now time.Time
	mu  sync.Mutex
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func setup(t *testing.T) (*token.Manager, *repository.Repository, *models.Account, *clock) {
	t.Helper()
	_, repo := testutil.NewTestDB(t)
	account := testutil.NewTestAccount(t, repo, "alice@example.com", models.RoleUser)
	c := &clock{now: time.Now().UTC()}
	return token.NewManager(repo).WithClock(c.Now), repo, account, c
}

func TestGenerate_Format(t *testing.T) {
	seen := make(map[string]bool)
	for range 50 {
		raw, err := token.Generate()
		require.NoError(t, err)
		assert.Regexp(t, tokenPattern, raw)
		assert.False(t, seen[raw], "duplicate token generated")
		seen[raw] = true
	}
}

func TestHash_Deterministic(t *testing.T) {
	assert.Equal(t, token.Hash("abc"), token.Hash("abc"))
	assert.NotEqual(t, token.Hash("abc"), token.Hash("abd"))
	assert.Len(t, token.Hash("abc"), 64)
}

func TestIssue_StoresOnlyHash(t *testing.T) {
	m, repo, account, c := setup(t)
	ctx := context.Background()

	raw, err := m.Issue(ctx, &account.ID, models.TokenEmailVerification, token.VerificationTTL)
	require.NoError(t, err)
	assert.Regexp(t, tokenPattern, raw)

	stored, err := repo.GetTokenByHash(ctx, token.Hash(raw))
	require.NoError(t, err)
	assert.NotEqual(t, raw, stored.TokenHash)
	assert.Equal(t, models.TokenEmailVerification, stored.Type)
	assert.False(t, stored.Consumed)
	assert.Len(t, stored.ID, 26)
	assert.WithinDuration(t, c.Now().Add(token.VerificationTTL), stored.ExpiresAt, time.Second)
}

func TestValidateAndConsume_Success(t *testing.T) {
	m, _, account, _ := setup(t)
	ctx := context.Background()

	raw, err := m.Issue(ctx, &account.ID, models.TokenPasswordReset, token.ResetTTL)
	require.NoError(t, err)

	id, err := m.ValidateAndConsume(ctx, raw, models.TokenPasswordReset)
	require.NoError(t, err)
	assert.Equal(t, account.ID, id)

	_, err = m.ValidateAndConsume(ctx, raw, models.TokenPasswordReset)
	assert.ErrorIs(t, err, apperr.ErrTokenAlreadyUsed)
}

func TestValidateAndConsume_NotFound(t *testing.T) {
	m, _, _, _ := setup(t)

	_, err := m.ValidateAndConsume(context.Background(), "does-not-exist", models.TokenEmailVerification)
	assert.ErrorIs(t, err, apperr.ErrTokenNotFound)

	_, err = m.ValidateAndConsume(context.Background(), "", models.TokenEmailVerification)
	assert.ErrorIs(t, err, apperr.ErrTokenNotFound)
}

func TestValidateAndConsume_UnboundToken(t *testing.T) {
	m, _, _, _ := setup(t)
	ctx := context.Background()

	raw, err := m.Issue(ctx, nil, models.TokenEmailVerification, time.Hour)
	require.NoError(t, err)

	_, err = m.ValidateAndConsume(ctx, raw, models.TokenEmailVerification)
	assert.ErrorIs(t, err, apperr.ErrTokenNotFound)
}

func TestValidateAndConsume_Expired(t *testing.T) {
	m, _, account, c := setup(t)
	ctx := context.Background()

	raw, err := m.Issue(ctx, &account.ID, models.TokenEmailVerification, token.VerificationTTL)
	require.NoError(t, err)

	c.Advance(token.VerificationTTL + time.Second)

	_, err = m.ValidateAndConsume(ctx, raw, models.TokenEmailVerification)
	assert.ErrorIs(t, err, apperr.ErrTokenExpired)
}

func TestValidateAndConsume_ExpiredTakesPrecedenceOverConsumed(t *testing.T) {
	m, _, account, c := setup(t)
	ctx := context.Background()

	raw, err := m.Issue(ctx, &account.ID, models.TokenPasswordReset, time.Hour)
	require.NoError(t, err)
	_, err = m.ValidateAndConsume(ctx, raw, models.TokenPasswordReset)
	require.NoError(t, err)

	c.Advance(2 * time.Hour)

	_, err = m.ValidateAndConsume(ctx, raw, models.TokenPasswordReset)
	assert.ErrorIs(t, err, apperr.ErrTokenExpired)
}

func TestValidateAndConsume_TypeMismatch(t *testing.T) {
	m, repo, account, _ := setup(t)
	ctx := context.Background()

	raw, err := m.Issue(ctx, &account.ID, models.TokenPasswordReset, time.Hour)
	require.NoError(t, err)

	_, err = m.ValidateAndConsume(ctx, raw, models.TokenEmailVerification)
	require.ErrorIs(t, err, apperr.ErrTokenTypeMismatch)

	stored, err := repo.GetTokenByHash(ctx, token.Hash(raw))
	require.NoError(t, err)
	assert.False(t, stored.Consumed, "mismatched redemption must not consume the token")
}

func TestValidateAndConsume_ConcurrentSingleWinner(t *testing.T) {
	m, _, account, _ := setup(t)
	ctx := context.Background()

	raw, err := m.Issue(ctx, &account.ID, models.TokenEmailVerification, time.Hour)
	require.NoError(t, err)

	const workers = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		used      int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.ValidateAndConsume(ctx, raw, models.TokenEmailVerification)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, apperr.ErrTokenAlreadyUsed):
				used++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, used)
}

func TestPeek_DoesNotConsume(t *testing.T) {
	m, _, account, c := setup(t)
	ctx := context.Background()
	raw, err := m.Issue(ctx, &account.ID, models.TokenPasswordReset, time.Hour)
	require.NoError(t, err)

	id, err := m.Peek(ctx, raw, models.TokenPasswordReset)
	require.NoError(t, err)
	assert.Equal(t, account.ID, id)

	_, err = m.Peek(ctx, raw, models.TokenEmailVerification)
	require.ErrorIs(t, err, apperr.ErrTokenTypeMismatch)

	id, err = m.ValidateAndConsume(ctx, raw, models.TokenPasswordReset)
	require.NoError(t, err)
	assert.Equal(t, account.ID, id)

	_, err = m.Peek(ctx, raw, models.TokenPasswordReset)
	require.ErrorIs(t, err, apperr.ErrTokenAlreadyUsed)

	c.Advance(2 * time.Hour)
	_, err = m.Peek(ctx, raw, models.TokenPasswordReset)
	assert.ErrorIs(t, err, apperr.ErrTokenExpired)
}

func TestPurgeExpired(t *testing.T) {
	m, repo, account, c := setup(t)
	ctx := context.Background()

	consumed, err := m.Issue(ctx, &account.ID, models.TokenPasswordReset, 48*time.Hour)
	require.NoError(t, err)
	_, err = m.ValidateAndConsume(ctx, consumed, models.TokenPasswordReset)
	require.NoError(t, err)
	expiring, err := m.Issue(ctx, &account.ID, models.TokenPasswordReset, time.Hour)
	require.NoError(t, err)
	live, err := m.Issue(ctx, &account.ID, models.TokenEmailVerification, 48*time.Hour)
	require.NoError(t, err)

	c.Advance(2 * time.Hour)

	n, err := m.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = repo.GetTokenByHash(ctx, token.Hash(expiring))
	require.ErrorIs(t, err, repository.ErrNotFound)
	_, err = repo.GetTokenByHash(ctx, token.Hash(live))
	require.NoError(t, err)
}

type failingStore struct {
	*repository.Repository
}

func (failingStore) CreateToken(context.Context, *models.Token) error {
	return errors.New("disk full")
}

func (failingStore) GetTokenByHash(context.Context, string) (*models.Token, error) {
	return nil, errors.New("disk full")
}

func TestIssue_StoreFailureIsInternal(t *testing.T) {
	m := token.NewManager(failingStore{})
	id := uuid.New()

	_, err := m.Issue(context.Background(), &id, models.TokenEmailVerification, time.Hour)
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))

	_, err = m.ValidateAndConsume(context.Background(), "abc", models.TokenEmailVerification)
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}
