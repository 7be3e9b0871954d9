package supervise

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"qproject/internal/logging"
	"qproject/internal/services"
	"qproject/internal/services/runas"
)

// Supervisor runs workflow executables to completion.
type Supervisor struct {
	logger *slog.Logger
	runner runas.Runner
}

// New constructs a Supervisor using the given elevation runner.
func New(logger *slog.Logger, runner runas.Runner) *Supervisor {
	return &Supervisor{
		logger: logging.NewComponentLogger(logger, "supervise"),
		runner: runner,
	}
}

// Run executes executableName from sourceDir with the working directory
// set to sourceDir, blocking until the child exits or ctx is cancelled.
// With executeAs set, the child runs under that identity and receives
// the identity as its first argument per the workflow contract.
//
// Cancellation issues one kill request through the elevation path and
// returns without waiting further; a failed kill is logged, never
// retried, and never keeps the supervisor alive. A non-zero exit is
// reported as Completed plus a process error: a workflow failure, not a
// supervisor fault.
func (s *Supervisor) Run(ctx context.Context, sourceDir, executableName, executeAs string) (*Handle, error) {
	handle := &Handle{Executable: executableName, Identity: executeAs, state: StateNotStarted}

	if executeAs != "" {
		if err := services.ValidateIdentity(executeAs); err != nil {
			return handle, err
		}
	}

	path := filepath.Join(sourceDir, executableName)
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return handle, services.Wrap(services.ErrPrecondition, "supervise", "run",
			fmt.Sprintf("executable %s not found", path), nil)
	}
	if err != nil {
		return handle, services.Wrap(services.ErrIO, "supervise", "stat executable", path, err)
	}
	if info.IsDir() {
		return handle, services.Wrap(services.ErrPrecondition, "supervise", "run",
			fmt.Sprintf("%s is a directory, not an executable", path), nil)
	}

	argv := []string{path}
	if executeAs != "" {
		argv = append(argv, executeAs)
	}

	// The child is killed through the elevation path, not by the exec
	// package, so the command itself must not react to ctx.
	cmd := s.runner.Command(context.WithoutCancel(ctx), executeAs, argv, sourceDir)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		handle.state = StateSpawnFailed
		return handle, services.Wrap(services.ErrProcess, "supervise", "spawn", path, err)
	}
	handle.state = StateRunning
	handle.PID = cmd.Process.Pid

	s.logger.Info("workflow started",
		logging.String("executable", path),
		logging.String("execute_as", executeAs),
		logging.Int("pid", handle.PID),
	)

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	select {
	case waitErr := <-waitCh:
		return s.finish(handle, path, waitErr)
	case <-ctx.Done():
		return s.terminate(ctx, handle, path)
	}
}

func (s *Supervisor) finish(handle *Handle, path string, waitErr error) (*Handle, error) {
	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
		handle.state = StateCompleted
		handle.exitCode = 0
		s.logger.Info("workflow completed", logging.String("executable", path))
		return handle, nil
	case errors.As(waitErr, &exitErr):
		handle.state = StateCompleted
		handle.exitCode = exitErr.ExitCode()
		s.logger.Warn("workflow exited non-zero",
			logging.String("executable", path),
			logging.Int("exit_code", handle.exitCode),
		)
		return handle, services.Wrap(services.ErrProcess, "supervise", "run",
			fmt.Sprintf("%s exited with code %d", path, handle.exitCode), nil)
	default:
		handle.state = StateCompleted
		handle.exitCode = -1
		return handle, services.Wrap(services.ErrProcess, "supervise", "wait", path, waitErr)
	}
}

func (s *Supervisor) terminate(ctx context.Context, handle *Handle, path string) (*Handle, error) {
	s.logger.Info("cancellation received, killing workflow",
		logging.String("executable", path),
		logging.Int("pid", handle.PID),
	)
	if err := s.runner.Kill(context.WithoutCancel(ctx), handle.Identity, handle.PID); err != nil {
		// Best effort: the kill may fail under elevation errors, but the
		// supervisor exits regardless.
		s.logger.Warn("kill request failed", logging.Int("pid", handle.PID), logging.Error(err))
	}
	handle.state = StateKilled
	return handle, services.Wrap(services.ErrProcess, "supervise", "run", "workflow terminated on request", ctx.Err())
}
