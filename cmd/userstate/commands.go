package main

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strconv"
	"time"

	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/tekradar/userstate/internal/codec"
	"github.com/tekradar/userstate/internal/config"
	"github.com/tekradar/userstate/internal/logging"
	"github.com/tekradar/userstate/internal/preferences"
	"github.com/tekradar/userstate/internal/userstate"
)

// commonFlags returns a fresh copy of the flags shared by every command that
// touches the store.
func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to YAML configuration file",
			Sources: cli.EnvVars("USERSTATE_CONFIG"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (trace, debug, info, warn, error, fatal, panic)",
			Sources: cli.EnvVars("USERSTATE_LOG_LEVEL"),
		},
		&cli.StringFlag{
			Name:    "store-backend",
			Usage:   "Preference store backend (memory, sqlite, redis, nats, postgres)",
			Sources: cli.EnvVars("USERSTATE_STORE_BACKEND"),
		},
	}
}

// loadConfig builds the configuration from the file or environment, then
// applies flag overrides and validates the result.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path := cmd.String("config"); path != "" {
		cfg, err = config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", path, err)
		}
	} else {
		cfg, err = config.FromEnv()
		if err != nil {
			return nil, err
		}
	}

	// --- CLI overrides ---
	if v := cmd.String("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if v := cmd.String("store-backend"); v != "" {
		cfg.Store.Backend = v
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *logrus.Entry {
	return logging.New(cfg.Log.Level, cfg.Log.Format).WithField("app", "userstate")
}

type stateAction func(ctx context.Context, cmd *cli.Command, state *userstate.Store, out io.Writer) error

// withState opens the configured store for the duration of fn.
func withState(fn stateAction) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		log := newLogger(cfg)

		prefs, err := preferences.Open(ctx, cfg.Store, log)
		if err != nil {
			return fmt.Errorf("opening preference store: %w", err)
		}
		defer func() {
			if err := prefs.Close(); err != nil {
				log.WithError(err).Warn("error closing store")
			}
		}()

		state := userstate.New(prefs, codec.JSON{}, logging.NewMethodTracer(log), clock.WallClock)
		return fn(ctx, cmd, state, cmd.Root().Writer)
	}
}

func leaf(name, usage, argsUsage string, fn stateAction) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: argsUsage,
		Flags:     commonFlags(),
		Action:    withState(fn),
	}
}

// parseTimeArg parses an RFC 3339 argument. An empty argument means now.
func parseTimeArg(arg string) (time.Time, error) {
	if arg == "" || arg == "now" {
		return time.Now(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, arg)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q, expected RFC 3339: %w", arg, err)
	}
	return t, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// --- start-date ---

func startDateCommand() *cli.Command {
	return &cli.Command{
		Name:  "start-date",
		Usage: "Manage the date the app was first used",
		Commands: []*cli.Command{
			leaf("get", "Print the start date", "",
				func(ctx context.Context, _ *cli.Command, state *userstate.Store, out io.Writer) error {
					t, err := state.GetStartDate(ctx)
					if err != nil {
						return err
					}
					_, err = fmt.Fprintln(out, formatTime(t))
					return err
				}),
			leaf("set", "Record the start date", "[RFC3339 time, default now]",
				func(ctx context.Context, cmd *cli.Command, state *userstate.Store, _ io.Writer) error {
					t, err := parseTimeArg(cmd.Args().First())
					if err != nil {
						return err
					}
					return state.SetStartDate(ctx, t)
				}),
			leaf("remove", "Forget the start date", "",
				func(ctx context.Context, _ *cli.Command, state *userstate.Store, _ io.Writer) error {
					return state.RemoveStartDate(ctx)
				}),
			leaf("days", "Print the number of whole days of use", "",
				func(ctx context.Context, _ *cli.Command, state *userstate.Store, out io.Writer) error {
					days, err := state.GetDaysOfUse(ctx)
					if err != nil {
						return err
					}
					_, err = fmt.Fprintln(out, days)
					return err
				}),
		},
	}
}

// --- terms ---

func termsCommand() *cli.Command {
	return &cli.Command{
		Name:  "terms",
		Usage: "Manage agreement to the terms of service and privacy policy",
		Commands: []*cli.Command{
			leaf("get", "Print when a document was last agreed to", "KIND",
				func(ctx context.Context, cmd *cli.Command, state *userstate.Store, out io.Writer) error {
					kind, err := userstate.ParseTermsType(cmd.Args().First())
					if err != nil {
						return err
					}
					t, err := state.GetLastUpdateDate(ctx, kind)
					if err != nil {
						return err
					}
					if t.IsZero() {
						_, err = fmt.Fprintln(out, "never")
						return err
					}
					_, err = fmt.Fprintln(out, formatTime(t))
					return err
				}),
			leaf("save", "Record agreement to a document", "KIND [RFC3339 time, default now]",
				func(ctx context.Context, cmd *cli.Command, state *userstate.Store, _ io.Writer) error {
					kind, err := userstate.ParseTermsType(cmd.Args().Get(0))
					if err != nil {
						return err
					}
					t, err := parseTimeArg(cmd.Args().Get(1))
					if err != nil {
						return err
					}
					return state.SaveLastUpdateDate(ctx, kind, t)
				}),
			leaf("agreed", "Print whether both documents have been agreed to", "",
				func(ctx context.Context, _ *cli.Command, state *userstate.Store, out io.Writer) error {
					agreed, err := state.IsAllAgreed(ctx)
					if err != nil {
						return err
					}
					_, err = fmt.Fprintln(out, agreed)
					return err
				}),
			leaf("reset", "Forget both agreement dates", "",
				func(ctx context.Context, _ *cli.Command, state *userstate.Store, _ io.Writer) error {
					return state.RemoveAllUpdateDate(ctx)
				}),
		},
	}
}

// --- checkpoint ---

func checkpointCommand() *cli.Command {
	return &cli.Command{
		Name:  "checkpoint",
		Usage: "Manage per-region last processed key timestamps",
		Commands: []*cli.Command{
			leaf("get", "Print the checkpoint of a region", "REGION",
				func(ctx context.Context, cmd *cli.Command, state *userstate.Store, out io.Writer) error {
					if cmd.NArg() != 1 {
						return fmt.Errorf("expected exactly one REGION argument")
					}
					ts, err := state.GetLastProcessedTimestamp(ctx, cmd.Args().First())
					if err != nil {
						return err
					}
					_, err = fmt.Fprintln(out, ts)
					return err
				}),
			leaf("set", "Record the checkpoint of a region", "REGION TIMESTAMP",
				func(ctx context.Context, cmd *cli.Command, state *userstate.Store, _ io.Writer) error {
					if cmd.NArg() != 2 {
						return fmt.Errorf("expected REGION and TIMESTAMP arguments")
					}
					ts, err := strconv.ParseInt(cmd.Args().Get(1), 10, 64)
					if err != nil {
						return fmt.Errorf("invalid timestamp %q: %w", cmd.Args().Get(1), err)
					}
					return state.SetLastProcessedTimestamp(ctx, cmd.Args().Get(0), ts)
				}),
			leaf("list", "Print every region checkpoint", "",
				func(ctx context.Context, _ *cli.Command, state *userstate.Store, out io.Writer) error {
					checkpoints, err := state.GetLastProcessedTimestamps(ctx)
					if err != nil {
						return err
					}
					regions := make([]string, 0, len(checkpoints))
					for r := range checkpoints {
						regions = append(regions, r)
					}
					slices.Sort(regions)
					for _, r := range regions {
						if _, err := fmt.Fprintf(out, "%s\t%d\n", r, checkpoints[r]); err != nil {
							return err
						}
					}
					return nil
				}),
			leaf("reset", "Forget every region checkpoint", "",
				func(ctx context.Context, _ *cli.Command, state *userstate.Store, _ io.Writer) error {
					return state.RemoveAllProcessedTimestamps(ctx)
				}),
		},
	}
}
