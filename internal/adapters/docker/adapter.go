package docker

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	"github.com/melih/graphdeploy/internal/core/domain"
	"github.com/melih/graphdeploy/internal/core/ports"
)

// Adapter implements ports.ContainerService using Docker SDK
type Adapter struct {
	cli *client.Client
}

// NewAdapter creates a new Docker adapter instance
func NewAdapter() (*Adapter, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return &Adapter{cli: cli}, nil
}

// ListContainers returns containers matching all given labels, with details
func (a *Adapter) ListContainers(ctx context.Context, labels map[string]string) ([]domain.Container, error) {
	args := filters.NewArgs()
	for k, v := range labels {
		args.Add("label", k+"="+v)
	}
	containers, err := a.cli.ContainerList(ctx, types.ContainerListOptions{
		All:     true,
		Filters: args,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	var result []domain.Container
	for _, c := range containers {
		// Use the first name if available, remove slash
		name := ""
		if len(c.Names) > 0 {
			name = c.Names[0][1:]
		}

		ip := ""
		if c.NetworkSettings != nil {
			for _, n := range c.NetworkSettings.Networks {
				ip = n.IPAddress
				break
			}
		}

		result = append(result, domain.Container{
			ID:        c.ID[:12], // Short ID
			Name:      name,
			Image:     c.Image,
			Status:    c.Status,
			State:     c.State,
			IPAddress: ip,
			Labels:    c.Labels,
		})
	}
	return result, nil
}

// RunContainer creates and starts a container for a deployment. The
// container runs as the configured unprivileged user, publishes the listen
// port on the host, and carries a docker-level healthcheck mirroring the
// deployment's probe policy.
func (a *Adapter) RunContainer(ctx context.Context, opts ports.RunOptions) (string, error) {
	port := nat.Port(fmt.Sprintf("%d/tcp", opts.Port))

	cfg := &container.Config{
		Image:  opts.Image,
		User:   opts.User,
		Env:    opts.Env,
		Labels: opts.Labels,
		ExposedPorts: nat.PortSet{
			port: struct{}{},
		},
	}
	if opts.Health != nil {
		cfg.Healthcheck = &container.HealthConfig{
			Test:        []string{"CMD-SHELL", opts.Health.ProbeCommand(opts.Port)},
			Interval:    opts.Health.Interval,
			Timeout:     opts.Health.Timeout,
			StartPeriod: opts.Health.StartPeriod,
			Retries:     opts.Health.Retries,
		}
	}
	hostCfg := &container.HostConfig{
		PortBindings: nat.PortMap{
			port: []nat.PortBinding{{HostIP: "0.0.0.0", HostPort: strconv.Itoa(opts.Port)}},
		},
	}

	resp, err := a.cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, opts.Name)
	if err != nil {
		return "", fmt.Errorf("failed to create container: %w", err)
	}

	if err := a.cli.ContainerStart(ctx, resp.ID, types.ContainerStartOptions{}); err != nil {
		return "", fmt.Errorf("failed to start container: %w", err)
	}

	return resp.ID, nil
}

// StopContainer stops a running container
func (a *Adapter) StopContainer(ctx context.Context, id string) error {
	// Timeout can be configurable, but keeping it simple for now
	timeout := 10 * time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return a.cli.ContainerStop(ctx, id, container.StopOptions{})
}

// RemoveContainer removes a container, stopping it first if needed
func (a *Adapter) RemoveContainer(ctx context.Context, id string) error {
	if err := a.cli.ContainerRemove(ctx, id, types.ContainerRemoveOptions{Force: true}); err != nil {
		return fmt.Errorf("failed to remove container: %w", err)
	}
	return nil
}

// RestartContainer restarts a container in place, keeping its config
func (a *Adapter) RestartContainer(ctx context.Context, id string) error {
	if err := a.cli.ContainerRestart(ctx, id, container.StopOptions{}); err != nil {
		return fmt.Errorf("failed to restart container: %w", err)
	}
	return nil
}

// InspectContainer returns runtime details: effective user, running state,
// and docker's health verdict when a healthcheck is configured
func (a *Adapter) InspectContainer(ctx context.Context, id string) (domain.ContainerDetail, error) {
	info, err := a.cli.ContainerInspect(ctx, id)
	if err != nil {
		return domain.ContainerDetail{}, fmt.Errorf("failed to inspect container: %w", err)
	}

	detail := domain.ContainerDetail{
		Container: domain.Container{
			ID:    info.ID[:12],
			Name:  info.Name[1:],
			Image: info.Config.Image,
		},
		User: info.Config.User,
	}
	if info.State != nil {
		detail.State = info.State.Status
		detail.Status = info.State.Status
		detail.Running = info.State.Running
		if info.State.Health != nil {
			detail.Health = info.State.Health.Status
		}
	}
	if info.NetworkSettings != nil {
		detail.IPAddress = info.NetworkSettings.IPAddress
		for _, n := range info.NetworkSettings.Networks {
			if n.IPAddress != "" {
				detail.IPAddress = n.IPAddress
				break
			}
		}
	}
	return detail, nil
}

// GetContainerLogs returns a stream of container logs
func (a *Adapter) GetContainerLogs(ctx context.Context, id string) (io.ReadCloser, error) {
	options := types.ContainerLogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     false, // Can be true for streaming
		Timestamps: true,
	}
	return a.cli.ContainerLogs(ctx, id, options)
}
