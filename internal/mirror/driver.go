// Package mirror drives the local bare mirrors: cloning, fetching and the
// metadata files read by the git web frontend.
package mirror

import (
	"context"
	"path/filepath"
	"time"

	"github.com/kurihiro0119/github-mirror/internal/domain"
)

// Driver performs the per-repository operations on a local mirror. None of
// the operations retry.
type Driver interface {
	// CloneMirror creates a bare mirror of url at dest. Anything already at
	// dest is removed first.
	CloneMirror(ctx context.Context, url, dest string) error
	// FetchUpdates fetches every ref of an existing mirror, pruning refs
	// deleted upstream.
	FetchUpdates(ctx context.Context, dest string) error
	// SetDefaultBranch points HEAD at refs/heads/<branch>.
	SetDefaultBranch(ctx context.Context, dest, branch string) error
	// SetDescription writes the description file shown by the frontend.
	SetDescription(dest, text string) error
	// SetModificationTime stamps the mirror with the last activity time.
	SetModificationTime(dest string, t time.Time) error
	// WriteHostConfig copies the frontend config template into the mirror.
	WriteHostConfig(dest, template string) error
}

const (
	// ForkDir is the sub directory of the mirror root holding forks.
	ForkDir = "fork"

	// HostConfigFile is the name of the per repository frontend config.
	HostConfigFile = "cgitrc"
)

// Path returns the mirror location of repo under root.
func Path(root string, repo *domain.Repository) string {
	name := repo.Name + ".git"
	if repo.Fork {
		return filepath.Join(root, ForkDir, name)
	}
	return filepath.Join(root, name)
}
