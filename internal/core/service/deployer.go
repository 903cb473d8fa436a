package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/melih/graphdeploy/internal/core/domain"
	"github.com/melih/graphdeploy/internal/core/ports"
	"github.com/melih/graphdeploy/internal/metrics"
)

// Deployer orchestrates the deployment lifecycle: fetch source, build the
// image, run the container, hand it to the supervisor.
type Deployer struct {
	fetchers   map[domain.SourceStrategy]ports.SourceFetcher
	builder    ports.ImageBuilder
	containers ports.ContainerService
	store      ports.DeploymentStore
	supervisor *Supervisor
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func NewDeployer(
	fetchers map[domain.SourceStrategy]ports.SourceFetcher,
	builder ports.ImageBuilder,
	containers ports.ContainerService,
	store ports.DeploymentStore,
	supervisor *Supervisor,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Deployer {
	return &Deployer{
		fetchers:   fetchers,
		builder:    builder,
		containers: containers,
		store:      store,
		supervisor: supervisor,
		metrics:    m,
		logger:     logger,
	}
}

// Deploy builds and starts a deployment from its spec. The build is
// synchronous: the caller gets either a running deployment or the error
// that stopped it.
func (d *Deployer) Deploy(ctx context.Context, spec domain.DeploymentSpec) (domain.Deployment, error) {
	spec.ApplyDefaults()
	if err := spec.Validate(); err != nil {
		return domain.Deployment{}, err
	}
	if _, exists := d.store.Get(spec.Name); exists {
		return domain.Deployment{}, fmt.Errorf("%w: %s", ErrAlreadyExists, spec.Name)
	}

	fetcher, ok := d.fetchers[spec.Source]
	if !ok {
		return domain.Deployment{}, fmt.Errorf("no fetcher for source strategy %q", spec.Source)
	}

	now := time.Now()
	dep := domain.Deployment{
		ID:        uuid.NewString(),
		Spec:      spec,
		Status:    domain.StatusBuilding,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := d.store.Save(&dep); err != nil {
		return domain.Deployment{}, err
	}
	d.metrics.DeploymentsActive.Inc()

	d.logger.Info("fetching source",
		slog.String("deployment", spec.Name),
		slog.String("source", string(spec.Source)))
	contextDir, cleanup, err := fetcher.Fetch(ctx, spec)
	if err != nil {
		return d.fail(spec.Name, fmt.Errorf("source fetch failed: %w", err))
	}
	defer cleanup()

	d.logger.Info("building image", slog.String("deployment", spec.Name))
	imageTag, err := d.builder.BuildImage(ctx, contextDir, spec)
	if err != nil {
		d.metrics.BuildsTotal.WithLabelValues("failure").Inc()
		return d.fail(spec.Name, fmt.Errorf("image build failed: %w", err))
	}
	d.metrics.BuildsTotal.WithLabelValues("success").Inc()
	d.store.SetRuntime(spec.Name, imageTag, "")

	env := make([]string, 0, len(spec.Env))
	for k, v := range spec.Env {
		env = append(env, k+"="+v)
	}
	containerID, err := d.containers.RunContainer(ctx, ports.RunOptions{
		Name:  "graphdeploy-" + spec.Name,
		Image: imageTag,
		User:  spec.RuntimeUser,
		Port:  spec.Port,
		Env:   env,
		Labels: map[string]string{
			LabelManaged: "true",
			LabelName:    spec.Name,
			LabelID:      dep.ID,
			LabelPort:    strconv.Itoa(spec.Port),
		},
		Health: &spec.Health,
	})
	if err != nil {
		return d.fail(spec.Name, fmt.Errorf("container start failed: %w", err))
	}

	d.store.SetRuntime(spec.Name, imageTag, containerID)
	d.store.SetStatus(spec.Name, domain.StatusRunning)
	if d.supervisor != nil {
		d.supervisor.Track(spec.Name)
	}

	d.logger.Info("deployment running",
		slog.String("deployment", spec.Name),
		slog.String("container", containerID[:12]),
		slog.Int("port", spec.Port))

	result, _ := d.store.Get(spec.Name)
	return result, nil
}

// Remove stops supervision, tears down the container, and forgets the
// deployment.
func (d *Deployer) Remove(ctx context.Context, name string) error {
	dep, ok := d.store.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if d.supervisor != nil {
		d.supervisor.Untrack(name)
	}
	if dep.ContainerID != "" {
		if err := d.containers.StopContainer(ctx, dep.ContainerID); err != nil {
			d.logger.Warn("failed to stop container",
				slog.String("deployment", name), slog.Any("error", err))
		}
		if err := d.containers.RemoveContainer(ctx, dep.ContainerID); err != nil {
			return fmt.Errorf("failed to remove container for %s: %w", name, err)
		}
	}
	d.store.Delete(name)
	d.metrics.DeploymentsActive.Dec()
	d.logger.Info("deployment removed", slog.String("deployment", name))
	return nil
}

// Logs streams the deployment's container logs.
func (d *Deployer) Logs(ctx context.Context, name string) (io.ReadCloser, error) {
	dep, ok := d.store.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if dep.ContainerID == "" {
		return nil, fmt.Errorf("deployment %s has no container", name)
	}
	return d.containers.GetContainerLogs(ctx, dep.ContainerID)
}

// Rediscover rebuilds the registry from labeled containers left over from a
// previous controller run and resumes supervising the running ones.
func (d *Deployer) Rediscover(ctx context.Context) error {
	containers, err := d.containers.ListContainers(ctx, map[string]string{LabelManaged: "true"})
	if err != nil {
		return fmt.Errorf("rediscovery failed: %w", err)
	}
	for _, c := range containers {
		name := c.Labels[LabelName]
		if name == "" {
			continue
		}
		if _, exists := d.store.Get(name); exists {
			continue
		}
		port, _ := strconv.Atoi(c.Labels[LabelPort])
		// Only the facts encoded in labels survive a controller restart;
		// the rest of the spec falls back to defaults.
		spec := domain.DeploymentSpec{Name: name, Source: domain.SourceLocal, Port: port}
		spec.ApplyDefaults()

		status := domain.StatusStopped
		if c.State == "running" {
			status = domain.StatusRunning
		}
		now := time.Now()
		dep := domain.Deployment{
			ID:          c.Labels[LabelID],
			Spec:        spec,
			ImageID:     c.Image,
			ContainerID: c.ID,
			Status:      status,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := d.store.Save(&dep); err != nil {
			return err
		}
		d.metrics.DeploymentsActive.Inc()
		if status == domain.StatusRunning && d.supervisor != nil {
			d.supervisor.Track(name)
		}
		d.logger.Info("rediscovered deployment",
			slog.String("deployment", name), slog.String("state", c.State))
	}
	return nil
}

func (d *Deployer) fail(name string, err error) (domain.Deployment, error) {
	d.store.SetStatus(name, domain.StatusFailed)
	d.logger.Error("deployment failed",
		slog.String("deployment", name), slog.Any("error", err))
	return domain.Deployment{}, err
}
