// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package appcontext_test

import (
	"net/http"
	"testing"

	"codeberg.org/oliverandrich/account-service/internal/appcontext"
	"codeberg.org/oliverandrich/account-service/internal/apperr"
	"codeberg.org/oliverandrich/account-service/internal/models"
	"codeberg.org/oliverandrich/account-service/internal/services/policy"
	"codeberg.org/oliverandrich/account-service/internal/testutil"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetActor(t *testing.T) {
	c, _ := testutil.NewEchoContext(echo.New(), http.MethodGet, "/", nil)
	actor := policy.Actor{ID: uuid.New(), Role: models.RoleUser}

	appcontext.SetActor(c, actor)

	got, ok := appcontext.Actor(c)
	require.True(t, ok)
	assert.Equal(t, actor, got)
}

func TestActor_Missing(t *testing.T) {
	c, _ := testutil.NewEchoContext(echo.New(), http.MethodGet, "/", nil)

	_, ok := appcontext.Actor(c)
	assert.False(t, ok)

	_, err := appcontext.MustActor(c)
	assert.Equal(t, apperr.KindAuthentication, apperr.KindOf(err))
}
