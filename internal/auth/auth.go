// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package auth signs and verifies bearer tokens carrying an actor identity.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"codeberg.org/oliverandrich/account-service/internal/apperr"
	"codeberg.org/oliverandrich/account-service/internal/models"
	"codeberg.org/oliverandrich/account-service/internal/services/policy"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	issuer = "account-service"
	leeway = 5 * time.Second
)

// Claims are the JWT claims of a bearer token.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWT signs and verifies HS256 bearer tokens.
type JWT struct {
	secret []byte
	now    func() time.Time
}

// New creates a JWT for the given secret.
func New(secret []byte) (*JWT, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt secret is required")
	}
	return &JWT{secret: secret, now: time.Now}, nil
}

// Sign issues a token for actor valid for ttl.
func (j *JWT) Sign(actor policy.Actor, ttl time.Duration) (string, error) {
	if actor.ID == uuid.Nil {
		return "", errors.New("actor id is required")
	}
	if ttl <= 0 {
		return "", errors.New("ttl must be greater than zero")
	}

	now := j.now().UTC()
	claims := Claims{
		Role: string(actor.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   actor.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and claims of raw and returns the actor it
// carries. Any malformed token or claim is an authentication error.
func (j *JWT) Verify(raw string) (policy.Actor, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return policy.Actor{}, apperr.Authentication("missing bearer token")
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return j.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(leeway),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		return policy.Actor{}, apperr.Authentication("invalid bearer token")
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil || id == uuid.Nil {
		return policy.Actor{}, apperr.Authentication("invalid subject claim")
	}
	role, ok := models.ParseRole(claims.Role)
	if !ok {
		return policy.Actor{}, apperr.Authentication("invalid role claim")
	}

	return policy.Actor{ID: id, Role: role}, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
