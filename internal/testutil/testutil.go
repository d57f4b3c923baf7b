// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fixtures.
package testutil

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"codeberg.org/oliverandrich/account-service/internal/database"
	"codeberg.org/oliverandrich/account-service/internal/models"
	"codeberg.org/oliverandrich/account-service/internal/repository"
	"codeberg.org/oliverandrich/account-service/internal/services/email"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"
)

// NewTestDB creates an in-memory SQLite database for tests.
// Returns both the database connection and the repository for convenience.
func NewTestDB(t *testing.T) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	repo := repository.New(db)
	return db, repo
}

// NewTestAccount inserts an active account with a placeholder password hash.
func NewTestAccount(t *testing.T, repo *repository.Repository, email string, role models.Role) *models.Account {
	t.Helper()
	now := time.Now().UTC()
	account := &models.Account{
		ID:           uuid.New(),
		Email:        email,
		Username:     strings.Split(email, "@")[0],
		PasswordHash: "not-a-real-hash",
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, repo.CreateAccount(context.Background(), account))
	return account
}

// NewEchoContext creates an Echo context for handler tests.
func NewEchoContext(e *echo.Echo, method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

// FakeMailer records messages instead of delivering them. Set Err to make
// every send fail.
type FakeMailer struct {
	Err  error
	sent []*email.Message
	mu   sync.Mutex
}

// Send implements email.Mailer.
func (m *FakeMailer) Send(_ context.Context, msg *email.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.sent = append(m.sent, msg)
	return nil
}

// Sent returns a copy of the recorded messages.
func (m *FakeMailer) Sent() []*email.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*email.Message(nil), m.sent...)
}

// WaitForSent blocks until n messages were recorded.
func (m *FakeMailer) WaitForSent(t *testing.T, n int) []*email.Message {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(m.Sent()) >= n
	}, 5*time.Second, 5*time.Millisecond)
	return m.Sent()
}
