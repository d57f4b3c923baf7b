// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package credential_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"codeberg.org/oliverandrich/account-service/internal/apperr"
	"codeberg.org/oliverandrich/account-service/internal/services/credential"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testParams keeps hashing cheap in tests.
func testParams() credential.Params {
	return credential.Params{Memory: 1024, Iterations: 1, Parallelism: 1, KeyLength: 32}
}

func TestHash_SaltedAndVerifiable(t *testing.T) {
	m := credential.NewManager(testParams(), 2)
	ctx := context.Background()

	hash1, err := m.Hash(ctx, "Correct-Horse-9")
	require.NoError(t, err)
	hash2, err := m.Hash(ctx, "Correct-Horse-9")
	require.NoError(t, err)

	assert.NotEqual(t, hash1, hash2)
	assert.True(t, strings.HasPrefix(hash1, "$argon2id$v=19$m=1024,t=1,p=1$"))
	require.NoError(t, m.Verify(ctx, "Correct-Horse-9", hash1))
	require.NoError(t, m.Verify(ctx, "Correct-Horse-9", hash2))
}

func TestVerify_WrongPassword(t *testing.T) {
	m := credential.NewManager(testParams(), 1)
	ctx := context.Background()
	hash, err := m.Hash(ctx, "Correct-Horse-9")
	require.NoError(t, err)

	err = m.Verify(ctx, "correct-horse-9", hash)

	require.Error(t, err)
	assert.Equal(t, apperr.KindAuthentication, apperr.KindOf(err))
}

func TestVerify_UsesEmbeddedParams(t *testing.T) {
	ctx := context.Background()
	old := credential.NewManager(testParams(), 1)
	hash, err := old.Hash(ctx, "Correct-Horse-9")
	require.NoError(t, err)

	stronger := credential.NewManager(credential.Params{Memory: 2048, Iterations: 2, Parallelism: 1, KeyLength: 32}, 1)

	assert.NoError(t, stronger.Verify(ctx, "Correct-Horse-9", hash))
}

func TestVerify_MalformedHash(t *testing.T) {
	m := credential.NewManager(testParams(), 1)

	tests := []string{
		"",
		"plaintext",
		"$2a$10$abcdefghijklmnopqrstuv",
		"$argon2i$v=19$m=1024,t=1,p=1$c2FsdHNhbHQ$aGFzaGhhc2g",
		"$argon2id$v=16$m=1024,t=1,p=1$c2FsdHNhbHQ$aGFzaGhhc2g",
		"$argon2id$v=19$m=0,t=1,p=1$c2FsdHNhbHQ$aGFzaGhhc2g",
		"$argon2id$v=19$m=1024,t=1,p=1$!!!$aGFzaGhhc2g",
		"$argon2id$v=19$m=1024,t=1,p=1$c2FsdHNhbHQ$",
	}

	for _, encoded := range tests {
		t.Run(encoded, func(t *testing.T) {
			err := m.Verify(context.Background(), "whatever", encoded)
			require.Error(t, err)
			assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
		})
	}
}

func TestHash_CanceledContext(t *testing.T) {
	m := credential.NewManager(testParams(), 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Hash(ctx, "Correct-Horse-9")

	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}

func TestHash_ConcurrentCallers(t *testing.T) {
	m := credential.NewManager(testParams(), 2)
	ctx := context.Background()

	var wg sync.WaitGroup
	hashes := make([]string, 8)
	for i := range hashes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := m.Hash(ctx, "Correct-Horse-9")
			assert.NoError(t, err)
			hashes[i] = h
		}()
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, h := range hashes {
		assert.False(t, seen[h])
		seen[h] = true
		assert.NoError(t, m.Verify(ctx, "Correct-Horse-9", h))
	}
}

func TestNewManager_DefaultWorkers(t *testing.T) {
	m := credential.NewManager(credential.DefaultParams(), 0)

	start := time.Now()
	hash, err := m.Hash(context.Background(), "Correct-Horse-9")
	require.NoError(t, err)
	assert.Contains(t, hash, "m=19456,t=2,p=1")
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestCheckStrength(t *testing.T) {
	m := credential.NewManager(testParams(), 1)

	require.NoError(t, m.CheckStrength("Tr0ub4dor-and-3"))

	err := m.CheckStrength("short")
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	var verr *credential.PasswordValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Codes(), "min_length")
	assert.Contains(t, verr.Codes(), "no_uppercase")
	assert.Contains(t, verr.Codes(), "no_digit")
}

func TestCheckStrength_ErrorStringDoesNotRepeatMessage(t *testing.T) {
	m := credential.NewManager(testParams(), 1)

	err := m.CheckStrength("Alice-Example-42", "alice@example.com")
	require.Error(t, err)

	msg := apperr.MessageOf(err)
	assert.Equal(t, "Password is too similar to your account details.", msg)
	assert.Equal(t, 1, strings.Count(err.Error(), msg))
	assert.Contains(t, err.Error(), "too_similar")
}
