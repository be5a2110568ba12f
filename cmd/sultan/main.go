// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/marcelocantos/sultan/internal/audit"
	"github.com/marcelocantos/sultan/internal/cli"
	"github.com/marcelocantos/sultan/internal/config"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "sultan: config: %v\n", err)
		return 1
	}

	app := &cli.App{
		Config:  cfg,
		Stdin:   os.Stdin,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Version: version,
	}
	if cfg.Audit.Enabled {
		logger, err := audit.NewLogger(cfg.Audit.Path)
		if err != nil {
			// Continue without audit logging.
			fmt.Fprintf(os.Stderr, "sultan: audit: %v\n", err)
		} else {
			app.Audit = logger
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return cli.Execute(ctx, app, os.Args[1:])
}
