package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/melih/graphdeploy/internal/core/domain"
)

// LocalFetcher copies a local context directory into a temporary build
// context. The copy keeps the original untouched while the builder writes
// its recipe into the context.
type LocalFetcher struct{}

func NewLocalFetcher() *LocalFetcher {
	return &LocalFetcher{}
}

func (f *LocalFetcher) Fetch(ctx context.Context, spec domain.DeploymentSpec) (string, func(), error) {
	src, err := filepath.Abs(spec.ContextDir)
	if err != nil {
		return "", nil, fmt.Errorf("failed to resolve context dir: %w", err)
	}
	info, err := os.Stat(src)
	if err != nil {
		return "", nil, fmt.Errorf("context dir %q: %w", spec.ContextDir, err)
	}
	if !info.IsDir() {
		return "", nil, fmt.Errorf("context dir %q is not a directory", spec.ContextDir)
	}

	tmpDir, err := os.MkdirTemp("", "graphdeploy-src-*")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	cleanup := func() { os.RemoveAll(tmpDir) }

	if err := os.CopyFS(tmpDir, os.DirFS(src)); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to copy context dir: %w", err)
	}
	return tmpDir, cleanup, nil
}
