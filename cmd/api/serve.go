package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"

	"github.com/melih/graphdeploy/internal/adapters/builder"
	"github.com/melih/graphdeploy/internal/adapters/docker"
	"github.com/melih/graphdeploy/internal/adapters/health"
	httpadapter "github.com/melih/graphdeploy/internal/adapters/http"
	"github.com/melih/graphdeploy/internal/adapters/source"
	"github.com/melih/graphdeploy/internal/adapters/store"
	"github.com/melih/graphdeploy/internal/config"
	"github.com/melih/graphdeploy/internal/core/domain"
	"github.com/melih/graphdeploy/internal/core/ports"
	"github.com/melih/graphdeploy/internal/core/service"
	"github.com/melih/graphdeploy/internal/metrics"
)

func cmdServe() *cli.Command {
	var serverCfg config.Server

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start the deployment controller",
		Flags:   serverCfg.Flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := slog.Default()

			containerAdapter, err := docker.NewAdapter()
			if err != nil {
				return fmt.Errorf("failed to initialize Docker adapter: %w", err)
			}
			builderAdapter, err := builder.NewBuilderAdapter()
			if err != nil {
				return fmt.Errorf("failed to initialize builder adapter: %w", err)
			}

			registry := prometheus.NewRegistry()
			registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			m := metrics.New(registry)

			deployments := store.NewMemory()
			prober := health.NewProber()
			supervisor := service.NewSupervisor(prober, containerAdapter, deployments, m, logger, serverCfg.ProbeHost)
			fetchers := map[domain.SourceStrategy]ports.SourceFetcher{
				domain.SourceRemote: source.NewGitFetcher(),
				domain.SourceLocal:  source.NewLocalFetcher(),
			}
			deployer := service.NewDeployer(fetchers, builderAdapter, containerAdapter, deployments, supervisor, m, logger)

			runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			supervisor.Start(runCtx)

			// Resume supervising whatever a previous controller run left behind.
			if err := deployer.Rediscover(runCtx); err != nil {
				logger.Warn("rediscovery failed", slog.Any("error", err))
			}

			handler := httpadapter.NewDeploymentHandler(deployer, deployments, containerAdapter)
			proxy := httpadapter.NewProxyHandler(deployments, containerAdapter)
			metricsHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
			app := httpadapter.NewRouter(handler, proxy, logger, serverCfg.APIToken, metricsHandler)

			go func() {
				logger.Info("server starting", slog.String("addr", serverCfg.Addr))
				if err := app.Listen(serverCfg.Addr); err != nil {
					logger.Error("server failed", slog.Any("error", err))
				}
			}()

			<-runCtx.Done()
			logger.Info("shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := app.ShutdownWithContext(shutdownCtx); err != nil {
				logger.Error("server shutdown failed", slog.Any("error", err))
			}
			supervisor.Stop()

			logger.Info("shutdown complete")
			return nil
		},
	}
}
