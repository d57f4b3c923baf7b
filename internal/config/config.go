// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package config

import (
	"fmt"
	"strings"
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

var configFile = altsrc.StringSourcer("config.toml")

// Registration modes.
const (
	RegistrationOpen   = "open"
	RegistrationClosed = "closed"
)

type Config struct { //nolint:govet // fieldalignment not critical for config structs
	Server   ServerConfig
	Log      LogConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Token    TokenConfig
	SMTP     SMTPConfig
	Mail     MailConfig
}

type ServerConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host        string
	Port        int
	BaseURL     string
	MaxBodySize int // in MB
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

type DatabaseConfig struct {
	DSN string
}

type AuthConfig struct { //nolint:govet // fieldalignment not critical for config structs
	JWTSecret        string // HS256 key for bearer tokens
	RegistrationMode string // open, closed
	HashWorkers      int    // 0 means runtime.NumCPU()
}

type TokenConfig struct {
	VerificationTTL time.Duration
	ResetTTL        time.Duration
}

type SMTPConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host     string // empty disables SMTP, mails are logged instead
	Port     int
	Username string
	Password string
	From     string
	FromName string
	TLS      bool
}

type MailConfig struct {
	FrontendURL string // base for links in emails, defaults to Server.BaseURL
	Workers     int
	QueueSize   int
}

func NewFromCLI(cmd *cli.Command) *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host:        cmd.String("host"),
			Port:        int(cmd.Int("port")),
			BaseURL:     cmd.String("base-url"),
			MaxBodySize: int(cmd.Int("max-body-size")),
		},
		Log: LogConfig{
			Level:  cmd.String("log-level"),
			Format: cmd.String("log-format"),
		},
		Database: DatabaseConfig{
			DSN: cmd.String("database-dsn"),
		},
		Auth: AuthConfig{
			JWTSecret:        cmd.String("jwt-secret"),
			RegistrationMode: strings.ToLower(cmd.String("registration-mode")),
			HashWorkers:      int(cmd.Int("hash-workers")),
		},
		Token: TokenConfig{
			VerificationTTL: cmd.Duration("verification-ttl"),
			ResetTTL:        cmd.Duration("reset-ttl"),
		},
		SMTP: SMTPConfig{
			Host:     cmd.String("smtp-host"),
			Port:     int(cmd.Int("smtp-port")),
			Username: cmd.String("smtp-username"),
			Password: cmd.String("smtp-password"),
			From:     cmd.String("smtp-from"),
			FromName: cmd.String("smtp-from-name"),
			TLS:      cmd.Bool("smtp-tls"),
		},
		Mail: MailConfig{
			FrontendURL: cmd.String("frontend-url"),
			Workers:     int(cmd.Int("mail-workers")),
			QueueSize:   int(cmd.Int("mail-queue-size")),
		},
	}

	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = buildBaseURL(cfg)
	}
	if cfg.Mail.FrontendURL == "" {
		cfg.Mail.FrontendURL = cfg.Server.BaseURL
	}
	cfg.Mail.FrontendURL = strings.TrimSuffix(cfg.Mail.FrontendURL, "/")

	return cfg
}

// Validate checks settings that have no safe default.
func (c *Config) Validate() error {
	switch c.Auth.RegistrationMode {
	case RegistrationOpen, RegistrationClosed:
	default:
		return fmt.Errorf("invalid registration mode %q (want open or closed)", c.Auth.RegistrationMode)
	}
	if c.Auth.JWTSecret == "" && !IsLocalhost(c.Server.Host) {
		return fmt.Errorf("jwt secret is required when not running on localhost")
	}
	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("jwt secret must be at least 32 characters")
	}
	if c.Token.VerificationTTL <= 0 || c.Token.ResetTTL <= 0 {
		return fmt.Errorf("token lifetimes must be positive")
	}
	if c.SMTP.Host != "" && c.SMTP.From == "" {
		return fmt.Errorf("SMTP from address is required")
	}
	if c.Mail.Workers < 1 || c.Mail.QueueSize < 1 {
		return fmt.Errorf("mail workers and queue size must be at least 1")
	}
	return nil
}

// OpenRegistration reports whether self-service sign-up is enabled.
func (c *Config) OpenRegistration() bool {
	return c.Auth.RegistrationMode == RegistrationOpen
}

func buildBaseURL(cfg *Config) string {
	host := cfg.Server.Host
	port := cfg.Server.Port

	// Hide default port in URL
	if port == 80 {
		return fmt.Sprintf("http://%s", host)
	}
	return fmt.Sprintf("http://%s:%d", host, port)
}

// IsLocalhost checks if the host is a localhost address.
func IsLocalhost(host string) bool {
	switch host {
	case "", "localhost", "127.0.0.1", "::1":
		return true
	}
	// Check for *.localhost subdomains (e.g., app.localhost)
	return strings.HasSuffix(host, ".localhost")
}

func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Value:   "localhost",
			Usage:   "Host to bind to",
			Sources: cli.NewValueSourceChain(cli.EnvVar("HOST"), toml.TOML("server.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "port",
			Value:   8080,
			Usage:   "Port to listen on",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PORT"), toml.TOML("server.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "Base URL for the application",
			Sources: cli.NewValueSourceChain(cli.EnvVar("BASE_URL"), toml.TOML("server.base_url", configFile)),
		},
		&cli.IntFlag{
			Name:    "max-body-size",
			Value:   1,
			Usage:   "Maximum request body size in MB",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAX_BODY_SIZE"), toml.TOML("server.max_body_size", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level (debug, info, warn, error)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_LEVEL"), toml.TOML("log.level", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   "text",
			Usage:   "Log format (text, json)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_FORMAT"), toml.TOML("log.format", configFile)),
		},
		&cli.StringFlag{
			Name:    "database-dsn",
			Value:   "./data/accounts.db",
			Usage:   "Database DSN",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DATABASE_DSN"), toml.TOML("database.dsn", configFile)),
		},
		// Auth flags
		&cli.StringFlag{
			Name:    "jwt-secret",
			Usage:   "HS256 secret for bearer tokens (ephemeral if empty on localhost)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("JWT_SECRET"), toml.TOML("auth.jwt_secret", configFile)),
		},
		&cli.StringFlag{
			Name:    "registration-mode",
			Value:   RegistrationClosed,
			Usage:   "Self-service registration (open, closed)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("REGISTRATION_MODE"), toml.TOML("auth.registration_mode", configFile)),
		},
		&cli.IntFlag{
			Name:    "hash-workers",
			Usage:   "Concurrent password hashing operations (0 = number of CPUs)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("HASH_WORKERS"), toml.TOML("auth.hash_workers", configFile)),
		},
		// Token flags
		&cli.DurationFlag{
			Name:    "verification-ttl",
			Value:   24 * time.Hour,
			Usage:   "Lifetime of email verification tokens",
			Sources: cli.NewValueSourceChain(cli.EnvVar("VERIFICATION_TTL"), toml.TOML("token.verification_ttl", configFile)),
		},
		&cli.DurationFlag{
			Name:    "reset-ttl",
			Value:   time.Hour,
			Usage:   "Lifetime of password reset tokens",
			Sources: cli.NewValueSourceChain(cli.EnvVar("RESET_TTL"), toml.TOML("token.reset_ttl", configFile)),
		},
		// SMTP flags
		&cli.StringFlag{
			Name:    "smtp-host",
			Usage:   "SMTP server host (emails are logged if empty)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_HOST"), toml.TOML("smtp.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "smtp-port",
			Value:   587,
			Usage:   "SMTP server port",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PORT"), toml.TOML("smtp.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-username",
			Usage:   "SMTP username",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_USERNAME"), toml.TOML("smtp.username", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-password",
			Usage:   "SMTP password",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PASSWORD"), toml.TOML("smtp.password", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from",
			Usage:   "Sender address",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_FROM"), toml.TOML("smtp.from", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from-name",
			Value:   "Account Service",
			Usage:   "Sender display name",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_FROM_NAME"), toml.TOML("smtp.from_name", configFile)),
		},
		&cli.BoolFlag{
			Name:    "smtp-tls",
			Value:   true,
			Usage:   "Require TLS (implicit on port 465, STARTTLS otherwise)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_TLS"), toml.TOML("smtp.tls", configFile)),
		},
		// Mail delivery flags
		&cli.StringFlag{
			Name:    "frontend-url",
			Usage:   "Base URL of the frontend used in email links (defaults to base-url)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("FRONTEND_URL"), toml.TOML("mail.frontend_url", configFile)),
		},
		&cli.IntFlag{
			Name:    "mail-workers",
			Value:   2,
			Usage:   "Number of email delivery workers",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAIL_WORKERS"), toml.TOML("mail.workers", configFile)),
		},
		&cli.IntFlag{
			Name:    "mail-queue-size",
			Value:   100,
			Usage:   "Capacity of the email delivery queue",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAIL_QUEUE_SIZE"), toml.TOML("mail.queue_size", configFile)),
		},
	}
}
