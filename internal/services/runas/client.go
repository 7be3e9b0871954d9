// Package runas launches and signals processes under a different OS
// identity via sudo. The supervisor uses the same elevation path for
// spawning and killing because a child running as another user cannot be
// signalled directly.
package runas

import (
	"context"
	"os/exec"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"qproject/internal/services"
)

var commandContext = exec.CommandContext

// Runner builds commands that execute as a given identity and delivers
// termination signals through the same elevation path.
type Runner interface {
	Command(ctx context.Context, identity string, argv []string, dir string) *exec.Cmd
	Kill(ctx context.Context, identity string, pid int) error
}

// Option configures the sudo runner.
type Option func(*Sudo)

// WithBinary overrides the default sudo binary name.
func WithBinary(binary string) Option {
	return func(s *Sudo) {
		if binary != "" {
			s.binary = binary
		}
	}
}

// Sudo is a Runner backed by the sudo command-line tool. An empty
// identity runs commands directly as the current user.
type Sudo struct {
	binary string
}

// New constructs a sudo runner using defaults.
func New(opts ...Option) *Sudo {
	s := &Sudo{binary: "sudo"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Command builds a command for argv running in dir. When identity is
// non-empty the command is wrapped in sudo -u.
func (s *Sudo) Command(ctx context.Context, identity string, argv []string, dir string) *exec.Cmd {
	var cmd *exec.Cmd
	if strings.TrimSpace(identity) == "" {
		cmd = commandContext(ctx, argv[0], argv[1:]...)
	} else {
		args := append([]string{"-u", identity, "--"}, argv...)
		cmd = commandContext(ctx, s.binary, args...)
	}
	cmd.Dir = dir
	return cmd
}

// Kill sends SIGTERM to pid. With an identity set, the signal goes
// through sudo so a child owned by another user can be reached.
func (s *Sudo) Kill(ctx context.Context, identity string, pid int) error {
	if strings.TrimSpace(identity) == "" {
		if err := unix.Kill(pid, unix.SIGTERM); err != nil {
			return services.Wrap(services.ErrProcess, "runas", "kill", strconv.Itoa(pid), err)
		}
		return nil
	}
	cmd := commandContext(ctx, s.binary, "-u", identity, "--", "kill", strconv.Itoa(pid))
	if output, err := cmd.CombinedOutput(); err != nil {
		return services.Wrap(services.ErrProcess, "runas", "kill "+strconv.Itoa(pid),
			strings.TrimSpace(string(output)), err)
	}
	return nil
}

var _ Runner = (*Sudo)(nil)
