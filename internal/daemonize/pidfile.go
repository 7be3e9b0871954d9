package daemonize

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"qproject/internal/services"
)

// CheckPidfileAbsent refuses a launch when the pidfile already exists or
// its directory is missing. Runs in the parent, before any detachment.
func CheckPidfileAbsent(path string) error {
	if path == "" {
		return services.Wrap(services.ErrValidation, "daemonize", "check pidfile", "pidfile path is required", nil)
	}
	if _, err := os.Stat(path); err == nil {
		return services.Wrap(services.ErrPrecondition, "daemonize", "check pidfile",
			fmt.Sprintf("pidfile %s exists, is another instance running?", path), nil)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return services.Wrap(services.ErrIO, "daemonize", "check pidfile", path, err)
	}
	if info, err := os.Stat(filepath.Dir(path)); err != nil || !info.IsDir() {
		return services.Wrap(services.ErrValidation, "daemonize", "check pidfile",
			fmt.Sprintf("pidfile directory %s does not exist", filepath.Dir(path)), nil)
	}
	return nil
}

// WritePidfile exclusively creates path containing this process id.
// Failure means another instance won the race.
func WritePidfile(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return services.Wrap(services.ErrPrecondition, "daemonize", "write pidfile",
			fmt.Sprintf("could not claim %s, is another instance running?", path), err)
	}
	defer file.Close()
	if _, err := file.WriteString(strconv.Itoa(os.Getpid()) + "\n"); err != nil {
		return services.Wrap(services.ErrIO, "daemonize", "write pidfile", path, err)
	}
	return file.Close()
}

// RemovePidfile deletes the pidfile, tolerating it already being gone.
// A failure this late in shutdown has no sensible handling.
func RemovePidfile(path string) {
	_ = os.Remove(path)
}
