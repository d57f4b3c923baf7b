// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package account_test

import (
	"context"
	"testing"
	"time"

	"codeberg.org/oliverandrich/account-service/internal/apperr"
	"codeberg.org/oliverandrich/account-service/internal/models"
	"codeberg.org/oliverandrich/account-service/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const newPassword = "Quiet-Meadow-77"

func (f *fixture) passwordHash(t *testing.T, id uuid.UUID) string {
	t.Helper()
	acc, err := f.repo.GetAccountByID(context.Background(), id)
	require.NoError(t, err)
	return acc.PasswordHash
}

func TestChangeOwnPassword_WrongCurrent(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice@example.com")
	before := f.passwordHash(t, alice.ID)

	err := f.svc.ChangeOwnPassword(context.Background(), alice.ID, "Wrong-Password-1", newPassword)

	assertKind(t, apperr.KindAuthentication, err)
	assert.Equal(t, before, f.passwordHash(t, alice.ID))
}

func TestChangeOwnPassword_Success(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice@example.com")
	ctx := context.Background()

	require.NoError(t, f.svc.ChangeOwnPassword(ctx, alice.ID, strongPassword, newPassword))

	hash := f.passwordHash(t, alice.ID)
	require.NoError(t, f.creds.Verify(ctx, newPassword, hash))
	assertKind(t, apperr.KindAuthentication, f.creds.Verify(ctx, strongPassword, hash))
}

func TestChangeOwnPassword_WeakNew(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice@example.com")
	before := f.passwordHash(t, alice.ID)

	err := f.svc.ChangeOwnPassword(context.Background(), alice.ID, strongPassword, "short")

	assertKind(t, apperr.KindValidation, err)
	assert.Equal(t, before, f.passwordHash(t, alice.ID))
}

func TestForcePasswordChange(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice@example.com")
	ctx := context.Background()

	assertKind(t, apperr.KindValidation, f.svc.ForcePasswordChange(ctx, alice.ID, "12345678"))
	require.NoError(t, f.svc.ForcePasswordChange(ctx, alice.ID, newPassword))
	require.NoError(t, f.creds.Verify(ctx, newPassword, f.passwordHash(t, alice.ID)))

	assertKind(t, apperr.KindNotFound, f.svc.ForcePasswordChange(ctx, uuid.New(), newPassword))
}

func TestChangePassword_Dispatch(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice@example.com")
	bob := f.register(t, "bob@example.com")
	admin := testutil.NewTestAccount(t, f.repo, "admin@example.com", models.RoleAdmin)
	ctx := context.Background()

	t.Run("self without current password", func(t *testing.T) {
		err := f.svc.ChangePassword(ctx, actorOf(alice), alice.ID, "", newPassword)
		assertKind(t, apperr.KindValidation, err)
	})

	t.Run("self with current password", func(t *testing.T) {
		require.NoError(t, f.svc.ChangePassword(ctx, actorOf(alice), alice.ID, strongPassword, newPassword))
	})

	t.Run("user on other account", func(t *testing.T) {
		err := f.svc.ChangePassword(ctx, actorOf(alice), bob.ID, strongPassword, newPassword)
		assertKind(t, apperr.KindAuthorization, err)
	})

	t.Run("admin on other account needs no current password", func(t *testing.T) {
		require.NoError(t, f.svc.ChangePassword(ctx, actorOf(admin), bob.ID, "", newPassword))
		require.NoError(t, f.creds.Verify(ctx, newPassword, f.passwordHash(t, bob.ID)))
	})
}

func TestRequestPasswordReset(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice@example.com")
	ctx := context.Background()

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "Alice@Example.com"))

	require.Len(t, f.notifier.resets, 1)
	reset := f.notifier.resets[0]
	assert.Equal(t, "alice@example.com", reset.email)

	id, err := f.tokens.ValidateAndConsume(ctx, reset.token, models.TokenPasswordReset)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, id)
}

func TestRequestPasswordReset_UnknownOrInactiveIsSilent(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice@example.com")
	admin := testutil.NewTestAccount(t, f.repo, "admin@example.com", models.RoleAdmin)
	ctx := context.Background()
	_, err := f.svc.Update(ctx, actorOf(admin), alice.ID, updateActive(false))
	require.NoError(t, err)

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "nobody@example.com"))
	require.NoError(t, f.svc.RequestPasswordReset(ctx, "alice@example.com"))

	assert.Empty(t, f.notifier.resets)
}

func TestResetPassword(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice@example.com")
	ctx := context.Background()
	raw, err := f.tokens.Issue(ctx, &alice.ID, models.TokenPasswordReset, time.Hour)
	require.NoError(t, err)

	require.NoError(t, f.svc.ResetPassword(ctx, raw, newPassword))
	require.NoError(t, f.creds.Verify(ctx, newPassword, f.passwordHash(t, alice.ID)))

	err = f.svc.ResetPassword(ctx, raw, "Another-Strong-9")
	assert.ErrorIs(t, err, apperr.ErrTokenAlreadyUsed)
}

func TestResetPassword_WeakPasswordKeepsToken(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice@example.com")
	ctx := context.Background()
	raw, err := f.tokens.Issue(ctx, &alice.ID, models.TokenPasswordReset, time.Hour)
	require.NoError(t, err)

	assertKind(t, apperr.KindValidation, f.svc.ResetPassword(ctx, raw, "weak"))

	require.NoError(t, f.svc.ResetPassword(ctx, raw, newPassword))
}

func TestResetPassword_EmailLikePasswordKeepsToken(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice@example.com")
	ctx := context.Background()
	raw, err := f.tokens.Issue(ctx, &alice.ID, models.TokenPasswordReset, time.Hour)
	require.NoError(t, err)
	before := f.passwordHash(t, alice.ID)

	assertKind(t, apperr.KindValidation, f.svc.ResetPassword(ctx, raw, "Alice-Example-42"))
	assert.Equal(t, before, f.passwordHash(t, alice.ID))

	require.NoError(t, f.svc.ResetPassword(ctx, raw, newPassword))
	require.NoError(t, f.creds.Verify(ctx, newPassword, f.passwordHash(t, alice.ID)))
}

func TestResetPassword_InvalidTokenChecksTokenFirst(t *testing.T) {
	f := newFixture(t)

	err := f.svc.ResetPassword(context.Background(), "does-not-exist", "weak")

	assert.ErrorIs(t, err, apperr.ErrTokenNotFound)
}

func TestResetPassword_WrongTokenType(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice@example.com")
	ctx := context.Background()
	raw, err := f.tokens.Issue(ctx, &alice.ID, models.TokenEmailVerification, time.Hour)
	require.NoError(t, err)

	err = f.svc.ResetPassword(ctx, raw, newPassword)

	assert.ErrorIs(t, err, apperr.ErrTokenTypeMismatch)
}

func TestResetPassword_DeletedAccount(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice@example.com")
	ctx := context.Background()
	raw, err := f.tokens.Issue(ctx, &alice.ID, models.TokenPasswordReset, time.Hour)
	require.NoError(t, err)
	require.NoError(t, f.svc.SoftDelete(ctx, alice.ID))

	err = f.svc.ResetPassword(ctx, raw, newPassword)

	assertKind(t, apperr.KindNotFound, err)
}
