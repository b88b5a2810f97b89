// Package main is the CLI entry point for userstate.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/tekradar/userstate/internal/exporter"
)

// Build-time variables set via -ldflags.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "userstate",
		Usage:   "Inspect and serve the persisted user state of the exposure notification client",
		Version: version,
		Commands: []*cli.Command{
			serveCommand(),
			startDateCommand(),
			termsCommand(),
			checkpointCommand(),
			versionCommand(),
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the user state as Prometheus metrics and a JSON snapshot",
		Flags: append(commonFlags(),
			&cli.StringFlag{
				Name:    "listen-address",
				Usage:   "HTTP listen address (e.g. :9464)",
				Sources: cli.EnvVars("USERSTATE_LISTEN_ADDRESS"),
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if v := cmd.String("listen-address"); v != "" {
				cfg.Server.ListenAddress = v
			}

			log := newLogger(cfg)
			log.WithFields(logrus.Fields{
				"version": version,
				"commit":  commit,
			}).Info("starting userstate")

			// --- OS signal handling for graceful shutdown ---
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			exp, err := exporter.NewExporter(ctx, cfg, log)
			if err != nil {
				return fmt.Errorf("initializing exporter: %w", err)
			}

			return exp.Run(ctx)
		},
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print version information",
		Action: func(_ context.Context, cmd *cli.Command) error {
			_, err := fmt.Fprintf(cmd.Root().Writer, "userstate %s (commit: %s)\n", version, commit)
			return err
		},
	}
}
