package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// SourceStrategy selects how the application source reaches the build context.
type SourceStrategy string

const (
	// SourceRemote fetches the source via a sparse git checkout.
	SourceRemote SourceStrategy = "remote"
	// SourceLocal copies the source from a local context directory.
	SourceLocal SourceStrategy = "local"
)

// Defaults shared by both deployment variants.
const (
	DefaultBaseImage    = "python:3.12-slim"
	DefaultRequirements = "requirements.txt"
	DefaultAppDir       = "graph_service"
	DefaultWorkers      = 5
	DefaultRuntimeUser  = "appuser"

	// DefaultRemoteSourceDir is the repository directory the remote variant
	// checks out and builds from. It holds the requirements manifest next to
	// the application dir, so the sparse checkout yields a complete context.
	DefaultRemoteSourceDir = "server"

	// Per-variant defaults. The remote variant serves on 8081 under
	// app.main:app, the local one on 8000 under graph_service.main:app.
	DefaultRemotePort      = 8081
	DefaultRemoteAppModule = "app.main:app"
	DefaultLocalPort       = 8000
	DefaultLocalAppModule  = "graph_service.main:app"
)

// HealthPolicy describes the liveness probe applied to a running deployment.
type HealthPolicy struct {
	Path        string        `json:"path"`
	Interval    time.Duration `json:"interval"`
	Timeout     time.Duration `json:"timeout"`
	StartPeriod time.Duration `json:"start_period"`
	Retries     int           `json:"retries"`
}

// DefaultHealthPolicy returns the probe settings baked into the build
// recipes: GET /healthcheck every 30s with a 5s timeout, a 20s start grace
// period, and 5 consecutive failures before the deployment is unhealthy.
func DefaultHealthPolicy() HealthPolicy {
	return HealthPolicy{
		Path:        "/healthcheck",
		Interval:    30 * time.Second,
		Timeout:     5 * time.Second,
		StartPeriod: 20 * time.Second,
		Retries:     5,
	}
}

// ProbeCommand returns the shell command a container runs to probe its own
// endpoint. The slim runtime image ships no curl, so the probe goes through
// the interpreter that is always present.
func (p HealthPolicy) ProbeCommand(port int) string {
	return fmt.Sprintf("python -c 'import urllib.request; urllib.request.urlopen(%q)' || exit 1",
		fmt.Sprintf("http://localhost:%d%s", port, p.Path))
}

// DeploymentSpec is the declarative description of one deployment: where the
// source comes from, how the image is assembled, and how the resulting
// container must run.
type DeploymentSpec struct {
	Name   string         `json:"name" validate:"required,hostname_rfc1123"`
	Source SourceStrategy `json:"source" validate:"required,oneof=remote local"`

	// Remote strategy: repository to sparse-checkout and the directories to
	// materialize. Local strategy: context directory to copy.
	RepoURL      string   `json:"repo_url,omitempty" validate:"omitempty,url"`
	CheckoutDirs []string `json:"checkout_dirs,omitempty"`
	ContextDir   string   `json:"context_dir,omitempty"`

	BaseImage    string            `json:"base_image,omitempty"`
	Requirements string            `json:"requirements,omitempty"`
	AppDir       string            `json:"app_dir,omitempty"`
	AppModule    string            `json:"app_module,omitempty"`
	Workers      int               `json:"workers,omitempty" validate:"omitempty,min=1"`
	Port         int               `json:"port,omitempty" validate:"omitempty,min=1,max=65535"`
	RuntimeUser  string            `json:"runtime_user,omitempty"`
	Env          map[string]string `json:"env,omitempty"`

	Health HealthPolicy `json:"health"`
}

var validate = validator.New()

// ApplyDefaults fills the zero-valued fields with the variant defaults.
func (s *DeploymentSpec) ApplyDefaults() {
	if s.BaseImage == "" {
		s.BaseImage = DefaultBaseImage
	}
	if s.Requirements == "" {
		s.Requirements = DefaultRequirements
	}
	if s.AppDir == "" {
		s.AppDir = DefaultAppDir
	}
	if s.Workers == 0 {
		s.Workers = DefaultWorkers
	}
	if s.RuntimeUser == "" {
		s.RuntimeUser = DefaultRuntimeUser
	}
	if s.Port == 0 {
		if s.Source == SourceRemote {
			s.Port = DefaultRemotePort
		} else {
			s.Port = DefaultLocalPort
		}
	}
	if s.AppModule == "" {
		if s.Source == SourceRemote {
			s.AppModule = DefaultRemoteAppModule
		} else {
			s.AppModule = DefaultLocalAppModule
		}
	}
	if s.Source == SourceRemote {
		if len(s.CheckoutDirs) == 0 {
			s.CheckoutDirs = []string{DefaultRemoteSourceDir}
		}
		if s.ContextDir == "" {
			s.ContextDir = s.CheckoutDirs[0]
		}
	}
	if s.Health == (HealthPolicy{}) {
		s.Health = DefaultHealthPolicy()
	}
}

// Validate checks structural constraints plus the rules a build recipe
// cannot express: the runtime identity must never be root, and each source
// strategy needs its input.
func (s *DeploymentSpec) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid deployment spec: %w", err)
	}
	switch s.Source {
	case SourceRemote:
		if s.RepoURL == "" {
			return fmt.Errorf("deployment %q: remote source requires repo_url", s.Name)
		}
	case SourceLocal:
		if s.ContextDir == "" {
			return fmt.Errorf("deployment %q: local source requires context_dir", s.Name)
		}
	}
	if u := strings.ToLower(s.RuntimeUser); u == "root" || u == "0" {
		return fmt.Errorf("deployment %q: runtime user must not be root", s.Name)
	}
	if !strings.HasPrefix(s.Health.Path, "/") {
		return fmt.Errorf("deployment %q: health path must start with /", s.Name)
	}
	if s.Health.Retries < 1 {
		return fmt.Errorf("deployment %q: health retries must be at least 1", s.Name)
	}
	if s.Health.Interval <= 0 || s.Health.Timeout <= 0 {
		return fmt.Errorf("deployment %q: health interval and timeout must be positive", s.Name)
	}
	return nil
}

// Status is the lifecycle state of a deployment.
type Status string

const (
	StatusPending   Status = "pending"
	StatusBuilding  Status = "building"
	StatusRunning   Status = "running"
	StatusUnhealthy Status = "unhealthy"
	StatusStopped   Status = "stopped"
	StatusFailed    Status = "failed"
)

// ProbeResult records the outcome of one liveness probe.
type ProbeResult struct {
	Healthy    bool      `json:"healthy"`
	StatusCode int       `json:"status_code,omitempty"`
	Error      string    `json:"error,omitempty"`
	Failures   int       `json:"failures"`
	CheckedAt  time.Time `json:"checked_at"`
}

// Deployment is the runtime record of a deployed spec.
type Deployment struct {
	ID          string         `json:"id"`
	Spec        DeploymentSpec `json:"spec"`
	ImageID     string         `json:"image_id,omitempty"`
	ContainerID string         `json:"container_id,omitempty"`
	Status      Status         `json:"status"`
	LastProbe   *ProbeResult   `json:"last_probe,omitempty"`
	Restarts    int            `json:"restarts"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}
