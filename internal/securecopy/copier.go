package securecopy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"qproject/internal/logging"
	"qproject/internal/services"
)

// Policy selects how an ownership mismatch is handled.
type Policy int

const (
	// Abort fails the entire delivery on the first mismatch and removes
	// everything already copied. Used when partial results would be
	// misleading or unsafe.
	Abort Policy = iota
	// Skip omits the offending entry and its subtree and continues.
	// Used for best-effort collection such as logs.
	Skip
)

func (p Policy) String() string {
	if p == Skip {
		return "skip"
	}
	return "abort"
}

// OwnershipError reports an entry owned by the wrong identity.
type OwnershipError struct {
	Path    string
	WantUID uint32
	GotUID  uint32
}

func (e *OwnershipError) Error() string {
	return fmt.Sprintf("ownership violation: %s owned by uid %d, expected uid %d", e.Path, e.GotUID, e.WantUID)
}

// Unwrap ties OwnershipError into the shared error taxonomy.
func (e *OwnershipError) Unwrap() error { return services.ErrOwnership }

// Copier performs ownership-validated recursive copies.
type Copier struct {
	logger *slog.Logger
}

// New constructs a Copier.
func New(logger *slog.Logger) *Copier {
	return &Copier{logger: logging.NewComponentLogger(logger, "securecopy")}
}

// Copy replicates sourceDir into destDir, copying only entries whose
// every path component from the source root is owned by expectedUID.
// destDir must not exist yet; it is created 0700 before anything is
// written. Under Abort, a mismatch tears down destDir so the delivery
// is all-or-nothing.
func (c *Copier) Copy(ctx context.Context, sourceDir, destDir string, expectedUID uint32, policy Policy) error {
	rootFD, err := unix.Open(sourceDir, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_NOFOLLOW|unix.O_CLOEXEC, 0)
	if err != nil {
		return services.Wrap(services.ErrPrecondition, "securecopy", "open source", sourceDir, err)
	}
	root := os.NewFile(uintptr(rootFD), sourceDir)
	defer root.Close()

	if err := os.Mkdir(destDir, 0o700); err != nil {
		// A pre-existing destination is a construction error: each
		// delivery gets a fresh destination.
		return services.Wrap(services.ErrPrecondition, "securecopy", "create destination", destDir, err)
	}

	c.logger.Info("delivery started",
		logging.String("source", sourceDir),
		logging.String("dest", destDir),
		logging.String("policy", policy.String()),
	)

	if err := c.copyTree(ctx, root, destDir, sourceDir, expectedUID, policy); err != nil {
		if violation, ok := asOwnership(err); ok && policy == Abort {
			// Fail closed: nothing already delivered may remain visible.
			_ = os.RemoveAll(destDir)
			c.logger.Error("delivery aborted on ownership violation",
				logging.Alert("ownership_violation"),
				logging.String("entry", violation.Path),
				logging.Int("owner_uid", int(violation.GotUID)),
				logging.Int("expected_uid", int(violation.WantUID)),
			)
		}
		return err
	}
	return nil
}

// copyTree copies the contents of the open directory dir into destDir.
// relBase is the source-rooted path used only for diagnostics.
func (c *Copier) copyTree(ctx context.Context, dir *os.File, destDir, relBase string, expectedUID uint32, policy Policy) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := dir.ReadDir(-1)
	if err != nil {
		return services.Wrap(services.ErrIO, "securecopy", "read directory", relBase, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		relPath := filepath.Join(relBase, name)

		switch {
		case entry.IsDir():
			if err := c.copyDir(ctx, dir, name, destDir, relPath, expectedUID, policy); err != nil {
				return err
			}
		case entry.Type().IsRegular():
			if err := c.copyFile(dir, name, destDir, relPath, expectedUID, policy); err != nil {
				return err
			}
		default:
			// Symlinks and special files are never followed and never
			// delivered, under either policy.
			c.logger.Warn("skipping non-regular entry",
				logging.String("entry", relPath),
				logging.String("type", entry.Type().String()),
			)
		}
	}
	return nil
}

func (c *Copier) copyDir(ctx context.Context, parent *os.File, name, destDir, relPath string, expectedUID uint32, policy Policy) error {
	fd, err := unix.Openat(int(parent.Fd()), name, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_NOFOLLOW|unix.O_CLOEXEC, 0)
	if err != nil {
		return services.Wrap(services.ErrIO, "securecopy", "open directory", relPath, err)
	}
	sub := os.NewFile(uintptr(fd), relPath)
	defer sub.Close()

	var st unix.Stat_t
	if err := unix.Fstat(int(sub.Fd()), &st); err != nil {
		return services.Wrap(services.ErrIO, "securecopy", "stat directory", relPath, err)
	}
	if st.Uid != expectedUID {
		return c.mismatch(relPath, expectedUID, st.Uid, policy)
	}

	destChild := filepath.Join(destDir, name)
	if err := os.Mkdir(destChild, 0o700); err != nil {
		return services.Wrap(services.ErrIO, "securecopy", "create directory", destChild, err)
	}
	return c.copyTree(ctx, sub, destChild, relPath, expectedUID, policy)
}

func (c *Copier) copyFile(parent *os.File, name, destDir, relPath string, expectedUID uint32, policy Policy) error {
	fd, err := unix.Openat(int(parent.Fd()), name, unix.O_RDONLY|unix.O_NOFOLLOW|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return services.Wrap(services.ErrIO, "securecopy", "open file", relPath, err)
	}
	src := os.NewFile(uintptr(fd), relPath)
	defer src.Close()

	// Owner and type are read from the handle just opened, not from the
	// path: a swap after this point cannot redirect the read.
	var st unix.Stat_t
	if err := unix.Fstat(int(src.Fd()), &st); err != nil {
		return services.Wrap(services.ErrIO, "securecopy", "stat file", relPath, err)
	}
	if st.Mode&unix.S_IFMT != unix.S_IFREG {
		c.logger.Warn("entry changed type during traversal, skipping", logging.String("entry", relPath))
		return nil
	}
	if st.Uid != expectedUID {
		return c.mismatch(relPath, expectedUID, st.Uid, policy)
	}

	dest, err := os.OpenFile(filepath.Join(destDir, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return services.Wrap(services.ErrIO, "securecopy", "create file", relPath, err)
	}
	defer dest.Close()

	if _, err := io.Copy(dest, src); err != nil {
		return services.Wrap(services.ErrIO, "securecopy", "copy file", relPath, err)
	}
	if err := dest.Close(); err != nil {
		return services.Wrap(services.ErrIO, "securecopy", "flush file", relPath, err)
	}
	return nil
}

// mismatch applies the policy to an ownership violation. Under Skip the
// entry (and for directories its whole subtree, which is never
// descended into) is simply left out.
func (c *Copier) mismatch(relPath string, want, got uint32, policy Policy) error {
	if policy == Skip {
		c.logger.Warn("skipping entry with unexpected owner",
			logging.Alert("ownership_violation"),
			logging.String("entry", relPath),
			logging.Int("owner_uid", int(got)),
			logging.Int("expected_uid", int(want)),
		)
		return nil
	}
	return &OwnershipError{Path: relPath, WantUID: want, GotUID: got}
}

func asOwnership(err error) (*OwnershipError, bool) {
	var violation *OwnershipError
	if errors.As(err, &violation) {
		return violation, true
	}
	return nil, false
}
