// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"log"
	"os"

	"codeberg.org/oliverandrich/account-service/internal/config"
	"codeberg.org/oliverandrich/account-service/internal/server"
	"github.com/urfave/cli/v3"
)

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:   "app",
		Usage:  "Run the account service",
		Flags:  config.Flags(),
		Action: server.Run,
		Commands: []*cli.Command{
			createAdminCommand(),
			purgeTokensCommand(),
			issueTokenCommand(),
		},
	}
}
