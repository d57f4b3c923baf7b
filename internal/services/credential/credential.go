// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package credential hashes and verifies passwords with argon2id and
// enforces the password policy.
package credential

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"codeberg.org/oliverandrich/account-service/internal/apperr"
	"codeberg.org/oliverandrich/account-service/internal/metrics"
	"golang.org/x/crypto/argon2"
	"golang.org/x/sync/semaphore"
)

const (
	algorithm  = "argon2id"
	saltLength = 16
)

// Params are the argon2id cost parameters used for new hashes. Verification
// always uses the parameters embedded in the stored hash.
type Params struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
	KeyLength   uint32
}

// DefaultParams match the argon2 reference defaults (19 MiB, t=2, p=1).
func DefaultParams() Params {
	return Params{
		Memory:      19 * 1024,
		Iterations:  2,
		Parallelism: 1,
		KeyLength:   32,
	}
}

var errMalformedHash = errors.New("malformed password hash")

// Manager hashes and verifies passwords on a bounded pool so that CPU-bound
// hashing never runs with more parallelism than configured.
type Manager struct {
	pool      *semaphore.Weighted
	validator *PasswordValidator
	params    Params
}

// NewManager creates a Manager running at most workers hash computations at
// once. workers <= 0 uses the number of CPUs.
func NewManager(params Params, workers int) *Manager {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Manager{
		pool:      semaphore.NewWeighted(int64(workers)),
		validator: DefaultPasswordValidator(),
		params:    params,
	}
}

// Hash derives an encoded argon2id hash with a fresh random salt.
func (m *Manager) Hash(ctx context.Context, password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", apperr.Internal("failed to generate salt", err)
	}

	var key []byte
	err := m.run(ctx, func() {
		key = argon2.IDKey([]byte(password), salt, m.params.Iterations, m.params.Memory, m.params.Parallelism, m.params.KeyLength)
	})
	if err != nil {
		return "", err
	}

	return encode(m.params, salt, key), nil
}

// Verify checks password against an encoded hash in constant time.
func (m *Manager) Verify(ctx context.Context, password, encoded string) error {
	params, salt, want, err := decode(encoded)
	if err != nil {
		return apperr.Internal("invalid password hash format", err)
	}

	var got []byte
	err = m.run(ctx, func() {
		got = argon2.IDKey([]byte(password), salt, params.Iterations, params.Memory, params.Parallelism, params.KeyLength)
	})
	if err != nil {
		return err
	}

	if subtle.ConstantTimeCompare(got, want) != 1 {
		return apperr.Authentication("email or password incorrect")
	}
	return nil
}

// CheckStrength applies the password policy. userAttributes (email, username)
// are used for the similarity rule.
func (m *Manager) CheckStrength(password string, userAttributes ...string) error {
	result := m.validator.Validate(password, userAttributes...)
	if result.Valid {
		return nil
	}
	verr := &PasswordValidationError{Errors: result.Errors}
	return &apperr.Error{
		Kind:    apperr.KindValidation,
		Message: strings.Join(verr.Messages(), " "),
		Err:     verr,
	}
}

// run executes fn once a pool slot is free.
func (m *Manager) run(ctx context.Context, fn func()) error {
	if err := m.pool.Acquire(ctx, 1); err != nil {
		return apperr.Internal("password hashing unavailable", err)
	}
	defer m.pool.Release(1)

	start := time.Now()
	fn()
	metrics.PasswordHashDuration.Observe(time.Since(start).Seconds())
	return nil
}

func encode(p Params, salt, key []byte) string {
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithm,
		argon2.Version,
		p.Memory,
		p.Iterations,
		p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
}

// decode parses "$argon2id$v=19$m=..,t=..,p=..$salt$hash".
func decode(encoded string) (Params, []byte, []byte, error) {
	var p Params

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return p, nil, nil, errMalformedHash
	}
	if parts[1] != algorithm {
		return p, nil, nil, fmt.Errorf("%w: unsupported algorithm %q", errMalformedHash, parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return p, nil, nil, fmt.Errorf("%w: %v", errMalformedHash, err)
	}
	if version != argon2.Version {
		return p, nil, nil, fmt.Errorf("%w: unsupported version %d", errMalformedHash, version)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Iterations, &p.Parallelism); err != nil {
		return p, nil, nil, fmt.Errorf("%w: %v", errMalformedHash, err)
	}
	if p.Memory == 0 || p.Iterations == 0 || p.Parallelism == 0 {
		return p, nil, nil, fmt.Errorf("%w: zero cost parameter", errMalformedHash)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return p, nil, nil, fmt.Errorf("%w: bad salt", errMalformedHash)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return p, nil, nil, fmt.Errorf("%w: bad key", errMalformedHash)
	}
	p.KeyLength = uint32(len(key)) //nolint:gosec // key length is bounded by the encoded string

	return p, salt, key, nil
}
