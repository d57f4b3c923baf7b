// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models_test

import (
	"encoding/json"
	"testing"
	"time"

	"codeberg.org/oliverandrich/account-service/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		input    string
		expected models.Role
		ok       bool
	}{
		{"user", models.RoleUser, true},
		{"admin", models.RoleAdmin, true},
		{"Admin", "", false},
		{"", "", false},
		{"root", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			role, ok := models.ParseRole(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, role)
		})
	}
}

func TestAccount_IsAdmin(t *testing.T) {
	assert.True(t, (&models.Account{Role: models.RoleAdmin}).IsAdmin())
	assert.False(t, (&models.Account{Role: models.RoleUser}).IsAdmin())
}

func TestAccount_JSONOmitsPasswordHash(t *testing.T) {
	account := models.Account{
		ID:           uuid.New(),
		Email:        "test@example.com",
		PasswordHash: "$argon2id$secret",
	}

	data, err := json.Marshal(account)

	require.NoError(t, err)
	assert.NotContains(t, string(data), "argon2id")
	assert.NotContains(t, string(data), "password_hash")
}

func TestToken_Expired(t *testing.T) {
	now := time.Now()
	token := &models.Token{ExpiresAt: now}

	assert.False(t, token.Expired(now))
	assert.True(t, token.Expired(now.Add(time.Nanosecond)))
	assert.False(t, token.Expired(now.Add(-time.Hour)))
}
