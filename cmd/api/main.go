package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/melih/graphdeploy/internal/config"
	"github.com/urfave/cli/v3"
)

const version = "0.2.0"

func main() {
	if err := run(context.Background(), os.Args); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	var loggerCfg config.Logger
	var logger *slog.Logger

	app := &cli.Command{
		Name:    "graphdeploy",
		Usage:   "Build, run and supervise graph service deployments",
		Version: version,
		Flags:   loggerCfg.Flags(),
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			logger = loggerCfg.Configure()
			slog.SetDefault(logger)
			return ctx, nil
		},
		Commands: []*cli.Command{
			cmdServe(),
			cmdApply(),
			cmdRender(),
		},
	}

	if err := app.Run(ctx, args); err != nil {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Error("command failed", slog.Any("error", err))
		return err
	}
	return nil
}
