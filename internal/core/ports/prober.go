package ports

import (
	"context"

	"github.com/melih/graphdeploy/internal/core/domain"
)

// HealthProber drives a liveness probe loop against a deployment endpoint.
// Watch blocks until ctx is cancelled, waiting out the policy's start period
// before the first probe and invoking report after every probe with the
// consecutive failure count.
type HealthProber interface {
	Watch(ctx context.Context, baseURL string, policy domain.HealthPolicy, report func(domain.ProbeResult))
}
