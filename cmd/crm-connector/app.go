package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/goliatone/go-crm-connector/adapters/gologger"
)

const envPrefix = "CRM_CONNECTOR_"

func envVars(name string) cli.ValueSourceChain {
	return cli.EnvVars(envPrefix + name)
}

type loggerFlags struct {
	level  string
	format string
}

func (l *loggerFlags) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     envVars("LOG_LEVEL"),
			Destination: &l.level,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "Log format (json, console)",
			Value:       "json",
			Sources:     envVars("LOG_FORMAT"),
			Destination: &l.format,
		},
	}
}

// app carries the process logger shared by all commands.
type app struct {
	logger   *zap.Logger
	provider *gologger.ZapProvider
}

func run(ctx context.Context, args []string, version string) error {
	var logCfg loggerFlags
	state := &app{logger: zap.NewNop()}

	root := &cli.Command{
		Name:    "crm-connector",
		Usage:   "CRM OAuth connector: authorization, token refresh and company sync",
		Version: version,
		Flags:   logCfg.Flags(),
		Before: func(ctx context.Context, _ *cli.Command) (context.Context, error) {
			logger, err := gologger.New(gologger.Options{Level: logCfg.level, Format: logCfg.format})
			if err != nil {
				return ctx, err
			}
			state.logger = logger
			state.provider = gologger.NewZapProvider(logger)
			return ctx, nil
		},
		After: func(context.Context, *cli.Command) error {
			_ = state.logger.Sync()
			return nil
		},
		Commands: []*cli.Command{
			cmdServe(state),
			cmdMigrate(state),
			cmdSync(state),
			cmdRefresh(state),
		},
	}

	if err := root.Run(ctx, args); err != nil {
		if state.provider != nil {
			state.provider.GetLogger("cli").Error("command failed", "error", err)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		return err
	}
	return nil
}
