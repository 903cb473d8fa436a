package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/melih/graphdeploy/internal/core/domain"
)

// GitFetcher retrieves application source via a sparse, depth-1 checkout:
// only the configured directories are materialized, not the full tree.
type GitFetcher struct{}

func NewGitFetcher() *GitFetcher {
	return &GitFetcher{}
}

// Fetch clones the deployment's repository into a temporary directory and
// checks out only spec.CheckoutDirs. The returned path points at
// spec.ContextDir inside the checkout when one is configured.
func (f *GitFetcher) Fetch(ctx context.Context, spec domain.DeploymentSpec) (string, func(), error) {
	tmpDir, err := os.MkdirTemp("", "graphdeploy-src-*")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	cleanup := func() { os.RemoveAll(tmpDir) }

	repo, err := git.PlainCloneContext(ctx, tmpDir, false, &git.CloneOptions{
		URL:          spec.RepoURL,
		Depth:        1, // Shallow clone for speed
		SingleBranch: true,
		NoCheckout:   true,
	})
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to clone repo %s: %w", spec.RepoURL, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to open worktree: %w", err)
	}

	// Checkout must target whatever branch the single-branch clone brought
	// in; left unset, go-git falls back to master.
	head, err := repo.Head()
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to resolve cloned HEAD: %w", err)
	}
	checkout := &git.CheckoutOptions{
		SparseCheckoutDirectories: spec.CheckoutDirs,
	}
	if head.Name().IsBranch() {
		checkout.Branch = head.Name()
	} else {
		checkout.Hash = head.Hash()
	}
	if err := wt.Checkout(checkout); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("sparse checkout failed: %w", err)
	}

	contextDir := tmpDir
	if spec.ContextDir != "" {
		contextDir = filepath.Join(tmpDir, spec.ContextDir)
		if _, err := os.Stat(contextDir); err != nil {
			cleanup()
			return "", nil, fmt.Errorf("context dir %q not present after checkout: %w", spec.ContextDir, err)
		}
	}
	return contextDir, cleanup, nil
}
