package ports

import (
	"context"

	"github.com/melih/graphdeploy/internal/core/domain"
)

// ImageBuilder defines operations for building container images from a
// prepared build context.
type ImageBuilder interface {
	// BuildImage renders the build recipe for the spec into contextDir and
	// builds an image from it. It returns the tag of the built image or an
	// error; any failure reported on the build stream aborts the build.
	BuildImage(ctx context.Context, contextDir string, spec domain.DeploymentSpec) (string, error)
}
