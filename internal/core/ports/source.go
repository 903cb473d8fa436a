package ports

import (
	"context"

	"github.com/melih/graphdeploy/internal/core/domain"
)

// SourceFetcher materializes the application source for a deployment into a
// directory usable as a build context. The cleanup function removes any
// temporary state and is safe to call exactly once.
type SourceFetcher interface {
	Fetch(ctx context.Context, spec domain.DeploymentSpec) (contextDir string, cleanup func(), err error)
}
