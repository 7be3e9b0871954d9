// Package facl wraps the setfacl tool for granting per-entry access to
// the workflow's executing user.
package facl

import (
	"context"
	"os/exec"
	"regexp"
	"strings"

	"qproject/internal/services"
)

var commandContext = exec.CommandContext

var permsPattern = regexp.MustCompile(`^[rwx]+$`)

// Client defines ACL granting behaviour.
type Client interface {
	Grant(ctx context.Context, path, user, perms string) error
	GrantGroup(ctx context.Context, path, group, perms string) error
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

// CLI wraps the setfacl command-line tool.
type CLI struct {
	binary string
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "setfacl"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Grant adds a user ACL entry to path.
func (c *CLI) Grant(ctx context.Context, path, user, perms string) error {
	return c.modify(ctx, path, "u", user, perms)
}

// GrantGroup adds a group ACL entry to path.
func (c *CLI) GrantGroup(ctx context.Context, path, group, perms string) error {
	return c.modify(ctx, path, "g", group, perms)
}

func (c *CLI) modify(ctx context.Context, path, kind, name, perms string) error {
	if err := services.ValidateIdentity(name); err != nil {
		return err
	}
	if !permsPattern.MatchString(perms) {
		return services.Wrap(services.ErrValidation, "facl", "grant", "invalid permissions "+perms, nil)
	}
	entry := kind + ":" + name + ":" + perms
	cmd := commandContext(ctx, c.binary, "-m", entry, path)
	if output, err := cmd.CombinedOutput(); err != nil {
		return services.Wrap(services.ErrIO, "facl", "setfacl "+entry+" "+path,
			strings.TrimSpace(string(output)), err)
	}
	return nil
}

var _ Client = (*CLI)(nil)
