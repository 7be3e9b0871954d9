package daemonize

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"qproject/internal/logging"
	"qproject/internal/services"
)

func TestCheckPidfileAbsentRefusesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.pid")
	if err := os.WriteFile(path, []byte("1234\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := CheckPidfileAbsent(path); !errors.Is(err, services.ErrPrecondition) {
		t.Fatalf("expected precondition error, got %v", err)
	}
}

func TestCheckPidfileAbsentRequiresDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "job.pid")
	if err := CheckPidfileAbsent(path); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestWritePidfileContainsPid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.pid")
	if err := WritePidfile(path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		t.Fatalf("pidfile content not a pid: %q", data)
	}
	if pid != os.Getpid() {
		t.Fatalf("pidfile has pid %d, want %d", pid, os.Getpid())
	}
}

func TestWritePidfileIsExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.pid")
	if err := WritePidfile(path); err != nil {
		t.Fatal(err)
	}
	if err := WritePidfile(path); !errors.Is(err, services.ErrPrecondition) {
		t.Fatalf("second claim must fail with precondition error, got %v", err)
	}
}

func TestRunChildRemovesPidfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.pid")
	code := RunChild(logging.NewNop(), path, 0o077, func() error { return nil })
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("pidfile not removed on clean exit")
	}
}

func TestRunChildConvertsEntryError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.pid")
	code := RunChild(logging.NewNop(), path, 0o077, func() error { return errors.New("pipeline exploded") })
	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("pidfile not removed after entry failure")
	}
}

func TestRunChildRefusesClaimedPidfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.pid")
	if err := os.WriteFile(path, []byte("999\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	ran := false
	code := RunChild(logging.NewNop(), path, 0o077, func() error { ran = true; return nil })
	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if ran {
		t.Fatal("entry must not run when the pidfile is already claimed")
	}
}
