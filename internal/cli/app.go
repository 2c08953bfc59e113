// Package cli implements the pdfvec command line: ingest documents into a
// vector store and query them back.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/nevindra/pdfvec/internal/config"
	"github.com/nevindra/pdfvec/internal/logger"
	"github.com/nevindra/pdfvec/observer"
)

// App carries the state shared by every command: the loaded configuration,
// the logger and, when enabled, the OTEL instruments.
type App struct {
	stdout io.Writer
	stderr io.Writer

	cfg      config.Config
	log      *slog.Logger
	inst     *observer.Instruments
	shutdown func(context.Context) error
}

// New returns the root command. Rendered results go to stdout, logs to stderr.
func New(stdout, stderr io.Writer) *cli.Command {
	a := &App{stdout: stdout, stderr: stderr}
	return &cli.Command{
		Name:      "pdfvec",
		Usage:     "ingest PDF documents into a vector store and search them",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "TOML configuration file (default: " + config.DefaultPath + " if present)",
			},
			&cli.StringFlag{
				Name:  "env",
				Usage: "environment file (default: " + config.DefaultEnvFile + " if present)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
			},
		},
		Before: a.before,
		After:  a.after,
		Commands: []*cli.Command{
			a.ingestCommand(),
			a.queryCommand(),
			{
				Name:   "collections",
				Usage:  "list the collections in the store",
				Action: a.collectionsAction,
			},
			{
				Name:   "ping",
				Usage:  "check the store connection",
				Action: a.pingAction,
			},
		},
	}
}

// before loads configuration and builds the logger. Validation is left to
// each command, after its flags have been applied.
func (a *App) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := config.Load(cmd.String("config"), cmd.String("env"))
	if err != nil {
		return ctx, err
	}
	if cmd.IsSet("log-level") {
		cfg.Log.Level = cmd.String("log-level")
	}
	if _, err := logger.ParseLevel(cfg.Log.Level); err != nil {
		return ctx, fmt.Errorf("--log-level: %w", err)
	}
	a.cfg = cfg
	a.log = logger.New(cfg.Logger(), a.stderr)

	if cfg.Observer.Enabled {
		inst, shutdown, err := observer.Init(ctx, cfg.Observer.ServiceName)
		if err != nil {
			return ctx, fmt.Errorf("observer: %w", err)
		}
		a.inst, a.shutdown = inst, shutdown
	}
	return ctx, nil
}

func (a *App) after(ctx context.Context, _ *cli.Command) error {
	if a.shutdown == nil {
		return nil
	}
	if err := a.shutdown(context.WithoutCancel(ctx)); err != nil {
		a.log.Warn("observer shutdown failed", "error", err)
	}
	return nil
}
