package ports

import (
	"context"
	"io"

	"github.com/melih/graphdeploy/internal/core/domain"
)

// Orchestrator is the API-facing surface of the deployment lifecycle:
// fetch, build, run, supervise, tear down.
type Orchestrator interface {
	Deploy(ctx context.Context, spec domain.DeploymentSpec) (domain.Deployment, error)
	Remove(ctx context.Context, name string) error
	Logs(ctx context.Context, name string) (io.ReadCloser, error)
}
