package ports

import (
	"context"
	"io"

	"github.com/melih/graphdeploy/internal/core/domain"
)

// RunOptions describes how a deployment's container must run: image, listen
// port published on the host, unprivileged user, and the docker-level
// healthcheck mirroring the deployment's policy.
type RunOptions struct {
	Name   string
	Image  string
	User   string
	Port   int
	Env    []string
	Labels map[string]string
	Health *domain.HealthPolicy
}

// ContainerService defines the core operations for managing containers.
// This interface allows us to switch between Docker, Podman, or Kubernetes
// without changing the business logic.
type ContainerService interface {
	ListContainers(ctx context.Context, labels map[string]string) ([]domain.Container, error)
	RunContainer(ctx context.Context, opts RunOptions) (string, error)
	StopContainer(ctx context.Context, id string) error
	RemoveContainer(ctx context.Context, id string) error
	RestartContainer(ctx context.Context, id string) error
	InspectContainer(ctx context.Context, id string) (domain.ContainerDetail, error)
	GetContainerLogs(ctx context.Context, id string) (io.ReadCloser, error)
}
