package manifest

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/melih/graphdeploy/internal/core/domain"
	"gopkg.in/yaml.v3"
)

// Spec is the external representation of a deployment spec, shared by YAML
// manifests and the JSON API. Durations are strings ("30s") rather than
// nanosecond integers.
type Spec struct {
	Name         string            `yaml:"name" json:"name"`
	Source       string            `yaml:"source" json:"source"`
	RepoURL      string            `yaml:"repo_url,omitempty" json:"repo_url,omitempty"`
	CheckoutDirs []string          `yaml:"checkout_dirs,omitempty" json:"checkout_dirs,omitempty"`
	ContextDir   string            `yaml:"context_dir,omitempty" json:"context_dir,omitempty"`
	BaseImage    string            `yaml:"base_image,omitempty" json:"base_image,omitempty"`
	Requirements string            `yaml:"requirements,omitempty" json:"requirements,omitempty"`
	AppDir       string            `yaml:"app_dir,omitempty" json:"app_dir,omitempty"`
	AppModule    string            `yaml:"app_module,omitempty" json:"app_module,omitempty"`
	Workers      int               `yaml:"workers,omitempty" json:"workers,omitempty"`
	Port         int               `yaml:"port,omitempty" json:"port,omitempty"`
	RuntimeUser  string            `yaml:"runtime_user,omitempty" json:"runtime_user,omitempty"`
	Env          map[string]string `yaml:"env,omitempty" json:"env,omitempty"`
	Health       *Health           `yaml:"health,omitempty" json:"health,omitempty"`
}

// Health mirrors domain.HealthPolicy with human-readable durations.
type Health struct {
	Path        string `yaml:"path,omitempty" json:"path,omitempty"`
	Interval    string `yaml:"interval,omitempty" json:"interval,omitempty"`
	Timeout     string `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	StartPeriod string `yaml:"start_period,omitempty" json:"start_period,omitempty"`
	Retries     int    `yaml:"retries,omitempty" json:"retries,omitempty"`
}

// ToDomain converts the external spec into a validated domain spec with
// defaults applied.
func (s Spec) ToDomain() (domain.DeploymentSpec, error) {
	spec := domain.DeploymentSpec{
		Name:         s.Name,
		Source:       domain.SourceStrategy(s.Source),
		RepoURL:      s.RepoURL,
		CheckoutDirs: s.CheckoutDirs,
		ContextDir:   s.ContextDir,
		BaseImage:    s.BaseImage,
		Requirements: s.Requirements,
		AppDir:       s.AppDir,
		AppModule:    s.AppModule,
		Workers:      s.Workers,
		Port:         s.Port,
		RuntimeUser:  s.RuntimeUser,
		Env:          s.Env,
	}
	if s.Health != nil {
		policy := domain.DefaultHealthPolicy()
		if s.Health.Path != "" {
			policy.Path = s.Health.Path
		}
		if s.Health.Retries != 0 {
			policy.Retries = s.Health.Retries
		}
		var err error
		if policy.Interval, err = override(policy.Interval, s.Health.Interval); err != nil {
			return domain.DeploymentSpec{}, fmt.Errorf("deployment %q: bad health interval: %w", s.Name, err)
		}
		if policy.Timeout, err = override(policy.Timeout, s.Health.Timeout); err != nil {
			return domain.DeploymentSpec{}, fmt.Errorf("deployment %q: bad health timeout: %w", s.Name, err)
		}
		if policy.StartPeriod, err = override(policy.StartPeriod, s.Health.StartPeriod); err != nil {
			return domain.DeploymentSpec{}, fmt.Errorf("deployment %q: bad health start period: %w", s.Name, err)
		}
		spec.Health = policy
	}
	spec.ApplyDefaults()
	if err := spec.Validate(); err != nil {
		return domain.DeploymentSpec{}, err
	}
	return spec, nil
}

func override(def time.Duration, raw string) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	return time.ParseDuration(raw)
}

// File is the top-level structure of a deployment manifest. A single file
// can declare several deployments, e.g. the remote and local variants of
// the same service side by side.
type File struct {
	Deployments []Spec `yaml:"deployments"`
}

// Load reads a manifest file and returns validated deployment specs.
func Load(path string) ([]domain.DeploymentSpec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return Parse(raw)
}

// Parse decodes manifest bytes. Unknown fields are rejected so typos in a
// manifest fail loudly instead of silently falling back to defaults.
func Parse(raw []byte) ([]domain.DeploymentSpec, error) {
	var file File
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if len(file.Deployments) == 0 {
		return nil, fmt.Errorf("manifest declares no deployments")
	}

	specs := make([]domain.DeploymentSpec, 0, len(file.Deployments))
	for _, s := range file.Deployments {
		spec, err := s.ToDomain()
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
