// Package git wraps the git command line client for fetching workflow
// source trees into a workspace.
package git

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"qproject/internal/services"
)

var commandContext = exec.CommandContext

// Client defines workflow source fetching behaviour.
type Client interface {
	Fetch(ctx context.Context, remote, revision, dest string) error
}

// Option configures the CLI client.
type Option func(*CLI)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// CLI wraps the git command-line client.
type CLI struct {
	binary string
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "git"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Fetch clones remote into dest and checks out revision when one is
// pinned. A dest that already contains entries is refused: the caller is
// expected to fetch into a fresh workflow source directory.
func (c *CLI) Fetch(ctx context.Context, remote, revision, dest string) error {
	if strings.TrimSpace(remote) == "" {
		return services.Wrap(services.ErrValidation, "git", "fetch", "remote is required", nil)
	}
	if strings.TrimSpace(dest) == "" {
		return services.Wrap(services.ErrValidation, "git", "fetch", "destination is required", nil)
	}
	if err := ensureEmpty(dest); err != nil {
		return err
	}

	remote = expandShorthand(remote)

	clone := commandContext(ctx, c.binary, "clone", remote, dest)
	if output, err := clone.CombinedOutput(); err != nil {
		return services.Wrap(services.ErrIO, "git", "clone", strings.TrimSpace(string(output)), err)
	}

	if revision = strings.TrimSpace(revision); revision != "" {
		checkout := commandContext(ctx, c.binary,
			"--work-tree", dest,
			"--git-dir", filepath.Join(dest, ".git"),
			"checkout", revision,
		)
		if output, err := checkout.CombinedOutput(); err != nil {
			return services.Wrap(services.ErrIO, "git", "checkout "+revision, strings.TrimSpace(string(output)), err)
		}
	}
	return nil
}

// expandShorthand turns "github:org/repo" into a full clone URL.
func expandShorthand(remote string) string {
	if rest, ok := strings.CutPrefix(remote, "github:"); ok {
		return "https://github.com/" + rest
	}
	return remote
}

func ensureEmpty(dest string) error {
	entries, err := os.ReadDir(dest)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return services.Wrap(services.ErrIO, "git", "inspect destination", dest, err)
	}
	if len(entries) > 0 {
		return services.Wrap(services.ErrPrecondition, "git", "fetch",
			fmt.Sprintf("destination %s is not empty", dest), nil)
	}
	return nil
}

var _ Client = (*CLI)(nil)
