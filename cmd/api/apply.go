package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"

	"github.com/melih/graphdeploy/internal/adapters/builder"
	"github.com/melih/graphdeploy/internal/adapters/docker"
	"github.com/melih/graphdeploy/internal/adapters/source"
	"github.com/melih/graphdeploy/internal/adapters/store"
	"github.com/melih/graphdeploy/internal/core/domain"
	"github.com/melih/graphdeploy/internal/core/ports"
	"github.com/melih/graphdeploy/internal/core/service"
	"github.com/melih/graphdeploy/internal/manifest"
	"github.com/melih/graphdeploy/internal/metrics"
)

// cmdApply deploys every spec in a manifest directly, without a running
// controller. Supervision starts once `serve` rediscovers the containers.
func cmdApply() *cli.Command {
	var file string

	return &cli.Command{
		Name:  "apply",
		Usage: "Build and start the deployments declared in a manifest",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "file",
				Aliases:     []string{"f"},
				Usage:       "Path to the deployment manifest",
				Required:    true,
				Destination: &file,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := slog.Default()

			specs, err := manifest.Load(file)
			if err != nil {
				return err
			}

			containerAdapter, err := docker.NewAdapter()
			if err != nil {
				return fmt.Errorf("failed to initialize Docker adapter: %w", err)
			}
			builderAdapter, err := builder.NewBuilderAdapter()
			if err != nil {
				return fmt.Errorf("failed to initialize builder adapter: %w", err)
			}

			fetchers := map[domain.SourceStrategy]ports.SourceFetcher{
				domain.SourceRemote: source.NewGitFetcher(),
				domain.SourceLocal:  source.NewLocalFetcher(),
			}
			m := metrics.New(prometheus.NewRegistry())
			deployer := service.NewDeployer(fetchers, builderAdapter, containerAdapter, store.NewMemory(), nil, m, logger)

			for _, spec := range specs {
				dep, err := deployer.Deploy(ctx, spec)
				if err != nil {
					return fmt.Errorf("deployment %q failed: %w", spec.Name, err)
				}
				fmt.Fprintf(os.Stdout, "%s: %s (container %s, port %d)\n",
					dep.Spec.Name, dep.Status, dep.ContainerID[:12], dep.Spec.Port)
			}
			return nil
		},
	}
}

// cmdRender prints the build recipes a manifest would produce, without
// touching the container runtime.
func cmdRender() *cli.Command {
	var file string

	return &cli.Command{
		Name:  "render",
		Usage: "Render the build recipes for the deployments in a manifest",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "file",
				Aliases:     []string{"f"},
				Usage:       "Path to the deployment manifest",
				Required:    true,
				Destination: &file,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			specs, err := manifest.Load(file)
			if err != nil {
				return err
			}
			for i, spec := range specs {
				if i > 0 {
					fmt.Println()
				}
				fmt.Printf("# deployment: %s\n%s", spec.Name, builder.Render(spec))
			}
			return nil
		},
	}
}
