package workspace

import (
	"path/filepath"

	"github.com/gofrs/flock"

	"qproject/internal/services"
)

const lockFileName = "workspace.lock"

// AcquireRunLock takes the advisory per-workspace run lock. The
// "root already exists" check alone is racy under concurrent
// invocation, so the supervisor holds this lock for the duration of a
// run; a second run on the same workspace fails instead of racing.
// Callers must Unlock the returned lock when the run finishes.
func (w Workspace) AcquireRunLock() (*flock.Flock, error) {
	lock := flock.New(filepath.Join(w.Run, lockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "workspace", "acquire run lock", lock.Path(), err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrPrecondition, "workspace", "acquire run lock",
			"another run holds the workspace lock", nil)
	}
	return lock, nil
}
