package ports

import "github.com/melih/graphdeploy/internal/core/domain"

// DeploymentStore keeps the runtime records of known deployments. Mutation
// goes through the store so concurrent readers (API handlers) and writers
// (supervisor) stay consistent.
type DeploymentStore interface {
	Save(d *domain.Deployment) error
	Get(name string) (domain.Deployment, bool)
	List() []domain.Deployment
	Delete(name string)
	SetStatus(name string, status domain.Status) bool
	SetRuntime(name string, imageID, containerID string) bool
	RecordProbe(name string, res domain.ProbeResult) bool
	IncrRestarts(name string) bool
}
