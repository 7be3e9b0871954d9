package supervise

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"qproject/internal/logging"
	"qproject/internal/services"
	"qproject/internal/services/runas"
)

func writeScript(t *testing.T, dir, name, body string) {
	t.Helper()
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(filepath.Join(dir, name), []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
}

func newSupervisor() *Supervisor {
	return New(logging.NewNop(), runas.New())
}

func TestRunMissingExecutable(t *testing.T) {
	sup := newSupervisor()
	handle, err := sup.Run(context.Background(), t.TempDir(), "run", "")
	if !errors.Is(err, services.ErrPrecondition) {
		t.Fatalf("expected precondition error, got %v", err)
	}
	if handle.State() != StateNotStarted {
		t.Fatalf("no process must be created, state is %s", handle.State())
	}
	if handle.PID != 0 {
		t.Fatalf("unexpected pid %d", handle.PID)
	}
}

func TestRunInvalidIdentity(t *testing.T) {
	sup := newSupervisor()
	_, err := sup.Run(context.Background(), t.TempDir(), "run", "bad user")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRunSuccessfulExit(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "run", "exit 0")

	sup := newSupervisor()
	handle, err := sup.Run(context.Background(), dir, "run", "")
	if err != nil {
		t.Fatal(err)
	}
	if handle.State() != StateCompleted || handle.ExitCode() != 0 {
		t.Fatalf("expected Completed(0), got %s(%d)", handle.State(), handle.ExitCode())
	}
}

func TestRunNonZeroExitIsCompleted(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "run", "exit 3")

	sup := newSupervisor()
	handle, err := sup.Run(context.Background(), dir, "run", "")
	if !errors.Is(err, services.ErrProcess) {
		t.Fatalf("expected process error, got %v", err)
	}
	if handle.State() != StateCompleted || handle.ExitCode() != 3 {
		t.Fatalf("expected Completed(3), got %s(%d)", handle.State(), handle.ExitCode())
	}
}

func TestRunUsesSourceDirAsWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "run", `[ "$(pwd -P)" = "$(cd "$(dirname "$0")" && pwd -P)" ] || exit 9`)

	sup := newSupervisor()
	handle, err := sup.Run(context.Background(), dir, "run", "")
	if err != nil {
		t.Fatalf("working directory check failed: %v (exit %d)", err, handle.ExitCode())
	}
}

func TestRunCancellationKillsChild(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "run", "sleep 30")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()

	sup := newSupervisor()
	start := time.Now()
	handle, err := sup.Run(ctx, dir, "run", "")
	if !errors.Is(err, services.ErrProcess) {
		t.Fatalf("expected process error after cancellation, got %v", err)
	}
	if handle.State() != StateKilled {
		t.Fatalf("expected Killed, got %s", handle.State())
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("supervisor did not exit promptly after cancellation: %s", elapsed)
	}
}

// failingKillRunner spawns directly but always fails kill requests, the
// way sudo can when elevation is misconfigured.
type failingKillRunner struct {
	direct *runas.Sudo
	killed bool
}

func (f *failingKillRunner) Command(ctx context.Context, identity string, argv []string, dir string) *exec.Cmd {
	return f.direct.Command(ctx, identity, argv, dir)
}

func (f *failingKillRunner) Kill(context.Context, string, int) error {
	f.killed = true
	return errors.New("sudo: a password is required")
}

func TestRunExitsEvenWhenKillFails(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "run", "sleep 30")

	runner := &failingKillRunner{direct: runas.New()}
	sup := New(logging.NewNop(), runner)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()

	handle, err := sup.Run(ctx, dir, "run", "")
	if !errors.Is(err, services.ErrProcess) {
		t.Fatalf("expected process error, got %v", err)
	}
	if !runner.killed {
		t.Fatal("kill request was never issued")
	}
	if handle.State() != StateKilled {
		t.Fatalf("supervisor must report Killed even when the kill failed, got %s", handle.State())
	}
}
