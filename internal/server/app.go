// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"

	"codeberg.org/oliverandrich/account-service/internal/auth"
	"codeberg.org/oliverandrich/account-service/internal/config"
	"codeberg.org/oliverandrich/account-service/internal/database"
	"codeberg.org/oliverandrich/account-service/internal/i18n"
	"codeberg.org/oliverandrich/account-service/internal/repository"
	"codeberg.org/oliverandrich/account-service/internal/services/account"
	"codeberg.org/oliverandrich/account-service/internal/services/credential"
	"codeberg.org/oliverandrich/account-service/internal/services/email"
	"codeberg.org/oliverandrich/account-service/internal/services/token"
	"github.com/vinovest/sqlx"
)

// App wires the services shared by the HTTP server and the CLI commands.
type App struct {
	Config   *config.Config
	DB       *sqlx.DB
	Tokens   *token.Manager
	Accounts *account.Service
	JWT      *auth.JWT

	dispatcher *email.Dispatcher
}

// New opens the database and builds all services. The email dispatcher is
// started immediately; Close stops it and closes the database.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	return newApp(ctx, cfg, credential.DefaultParams())
}

func newApp(ctx context.Context, cfg *config.Config, params credential.Params) (*App, error) {
	if err := i18n.Init(); err != nil {
		return nil, fmt.Errorf("failed to init i18n: %w", err)
	}

	secret, err := jwtSecret(cfg)
	if err != nil {
		return nil, err
	}
	signer, err := auth.New(secret)
	if err != nil {
		return nil, err
	}

	mailer, err := newMailer(cfg)
	if err != nil {
		return nil, err
	}

	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	repo := repository.New(db)
	creds := credential.NewManager(params, cfg.Auth.HashWorkers)
	tokens := token.NewManager(repo)

	dispatcher := email.NewDispatcher(mailer, tokens, email.Options{
		FrontendURL:     cfg.Mail.FrontendURL,
		Workers:         cfg.Mail.Workers,
		QueueSize:       cfg.Mail.QueueSize,
		VerificationTTL: cfg.Token.VerificationTTL,
	})
	dispatcher.Start(ctx)

	return &App{
		Config:     cfg,
		DB:         db,
		Tokens:     tokens,
		Accounts:   account.NewService(repo, creds, tokens, dispatcher, cfg.Token.ResetTTL),
		JWT:        signer,
		dispatcher: dispatcher,
	}, nil
}

// Close drains pending emails and closes the database.
func (a *App) Close() error {
	a.dispatcher.Stop()
	return a.DB.Close()
}

func newMailer(cfg *config.Config) (email.Mailer, error) {
	if cfg.SMTP.Host == "" {
		slog.Warn("no SMTP host configured, emails will be logged")
		return email.LogMailer{}, nil
	}
	mailer, err := email.NewSMTPMailer(&cfg.SMTP)
	if err != nil {
		return nil, fmt.Errorf("failed to configure SMTP: %w", err)
	}
	return mailer, nil
}

// jwtSecret returns the configured signing key. Without one (only allowed on
// localhost) a random key is generated, so tokens do not survive a restart.
func jwtSecret(cfg *config.Config) ([]byte, error) {
	if cfg.Auth.JWTSecret != "" {
		return []byte(cfg.Auth.JWTSecret), nil
	}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate jwt secret: %w", err)
	}
	slog.Warn("no JWT secret configured, using an ephemeral key")
	return secret, nil
}
