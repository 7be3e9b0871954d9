package daemonize

import (
	"log/slog"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"

	"qproject/internal/logging"
	"qproject/internal/services"
)

// childMarker tells the re-executed process it is the detached worker.
const childMarker = "QPROJECT_DAEMONIZED"

// InChild reports whether this process is the detached re-exec.
func InChild() bool {
	return os.Getenv(childMarker) == "1"
}

// Detach relaunches the current binary with identical arguments in a new
// session with stdio on the null device, then releases it. A failure
// here happens before any detachment and is fatal to the caller.
func Detach(pidfilePath string) error {
	if err := CheckPidfileAbsent(pidfilePath); err != nil {
		return err
	}

	exe, err := os.Executable()
	if err != nil {
		return services.Wrap(services.ErrIO, "daemonize", "resolve executable", "", err)
	}

	devnull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return services.Wrap(services.ErrIO, "daemonize", "open null device", "", err)
	}
	defer devnull.Close()

	cmd := exec.Command(exe, os.Args[1:]...)
	cmd.Env = append(os.Environ(), childMarker+"=1")
	cmd.Stdin = devnull
	cmd.Stdout = devnull
	cmd.Stderr = devnull
	// A new session detaches from the controlling terminal; with stdio
	// bound to /dev/null the worker has no path back to one.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return services.Wrap(services.ErrIO, "daemonize", "start detached process", exe, err)
	}
	return cmd.Process.Release()
}

// RunChild is the detached side of Detach: it applies the umask, claims
// the pidfile, runs entry, and reports the process exit code. Errors
// from entry are logged and converted into a nonzero exit; nothing
// propagates further because the launching caller is already gone.
func RunChild(logger *slog.Logger, pidfilePath string, umask int, entry func() error) int {
	logger = logging.NewComponentLogger(logger, "daemonize")

	unix.Umask(umask)

	if err := WritePidfile(pidfilePath); err != nil {
		logger.Error("refusing to start", logging.Error(err))
		return 1
	}
	defer RemovePidfile(pidfilePath)

	logger.Info("daemon started", logging.Int("pid", os.Getpid()), logging.String("pidfile", pidfilePath))

	if err := entry(); err != nil {
		logger.Error("daemonized pipeline failed", logging.Error(err))
		return 1
	}
	logger.Info("daemon finished")
	return 0
}
