// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"codeberg.org/oliverandrich/account-service/internal/server"
	"codeberg.org/oliverandrich/account-service/internal/services/policy"
	"github.com/urfave/cli/v3"
)

func createAdminCommand() *cli.Command {
	return &cli.Command{
		Name:  "create-admin",
		Usage: "Create the first administrator, or promote an existing account",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Usage: "Administrator email", Required: true},
			&cli.StringFlag{Name: "username", Usage: "Administrator username", Value: "admin"},
			&cli.StringFlag{
				Name:     "password",
				Usage:    "Administrator password",
				Sources:  cli.EnvVars("ADMIN_PASSWORD"),
				Required: true,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withApp(ctx, cmd, func(app *server.App) error {
				changed, err := app.Accounts.EnsureAdmin(ctx, cmd.String("email"), cmd.String("username"), cmd.String("password"))
				if err != nil {
					return err
				}
				if !changed {
					fmt.Fprintln(cmd.Root().Writer, "an administrator already exists, nothing to do")
					return nil
				}
				fmt.Fprintf(cmd.Root().Writer, "administrator %s is ready\n", cmd.String("email"))
				return nil
			})
		},
	}
}

func purgeTokensCommand() *cli.Command {
	return &cli.Command{
		Name:  "purge-tokens",
		Usage: "Delete expired and consumed single-use tokens",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withApp(ctx, cmd, func(app *server.App) error {
				n, err := app.Tokens.PurgeExpired(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.Root().Writer, "purged %d tokens\n", n)
				return nil
			})
		},
	}
}

func issueTokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "issue-token",
		Usage: "Mint a bearer token for an existing account",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Usage: "Account email", Required: true},
			&cli.DurationFlag{Name: "ttl", Usage: "Token lifetime", Value: time.Hour},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withApp(ctx, cmd, func(app *server.App) error {
				if app.Config.Auth.JWTSecret == "" {
					return errors.New("a jwt secret must be configured to issue tokens")
				}
				acc, err := app.Accounts.LookupByEmail(ctx, cmd.String("email"))
				if err != nil {
					return err
				}
				tok, err := app.JWT.Sign(policy.Actor{ID: acc.ID, Role: acc.Role}, cmd.Duration("ttl"))
				if err != nil {
					return err
				}
				slog.Info("token_issued", "user_id", acc.ID, "role", acc.Role, "ttl", cmd.Duration("ttl"))
				fmt.Fprintln(cmd.Root().Writer, tok)
				return nil
			})
		},
	}
}

func withApp(ctx context.Context, cmd *cli.Command, fn func(*server.App) error) error {
	app, err := server.Bootstrap(ctx, cmd)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := app.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()
	return fn(app)
}
