package builder

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/archive"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/melih/graphdeploy/internal/core/domain"
)

type Adapter struct {
	cli *client.Client
}

func NewBuilderAdapter() (*Adapter, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return &Adapter{cli: cli}, nil
}

// BuildImage renders the deployment's recipe into the prepared context and
// builds the image. Any error on the build stream (a failing pip install,
// a missing requirements manifest) aborts the build.
func (a *Adapter) BuildImage(ctx context.Context, contextDir string, spec domain.DeploymentSpec) (string, error) {
	dockerfile := Render(spec)
	if err := os.WriteFile(filepath.Join(contextDir, DockerfileName), []byte(dockerfile), 0o644); err != nil {
		return "", fmt.Errorf("failed to write build recipe: %w", err)
	}

	tar, err := archive.TarWithOptions(contextDir, &archive.TarOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to create build context: %w", err)
	}
	defer tar.Close()

	imageTag := ImageTag(spec.Name)
	resp, err := a.cli.ImageBuild(ctx, tar, types.ImageBuildOptions{
		Tags:       []string{imageTag},
		Dockerfile: DockerfileName,
		Remove:     true, // Remove intermediate containers
	})
	if err != nil {
		return "", fmt.Errorf("failed to build image: %w", err)
	}
	defer resp.Body.Close()

	// The daemon reports failures mid-stream, not on the initial request.
	if err := jsonmessage.DisplayJSONMessagesStream(resp.Body, io.Discard, 0, false, nil); err != nil {
		return "", fmt.Errorf("image build failed: %w", err)
	}

	return imageTag, nil
}

// ImageTag derives the image tag for a deployment name.
func ImageTag(name string) string {
	return "graphdeploy/" + name + ":latest"
}
