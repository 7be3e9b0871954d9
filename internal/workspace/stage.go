package workspace

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"

	"qproject/internal/logging"
	"qproject/internal/services"
)

// StageInputs copies input files into the workspace data directory and
// grants the executing user read access.
func (m *Manager) StageInputs(ctx context.Context, ws Workspace, files []string, owner string) error {
	return m.stage(ctx, ws.Data, files, owner)
}

// StageRefs copies third-party reference files into the ref directory.
func (m *Manager) StageRefs(ctx context.Context, ws Workspace, files []string, owner string) error {
	return m.stage(ctx, ws.Ref, files, owner)
}

func (m *Manager) stage(ctx context.Context, destDir string, files []string, owner string) error {
	for _, path := range files {
		dest := filepath.Join(destDir, filepath.Base(path))
		if err := copyFile(path, dest); err != nil {
			return services.Wrap(services.ErrIO, "workspace", "stage file", path, err)
		}
		m.logger.Debug("staged file", logging.String("src", path), logging.String("dest", dest))
		if owner == "" {
			continue
		}
		if m.acl == nil {
			return services.Wrap(services.ErrValidation, "workspace", "stage file",
				"owner requested but no ACL client configured", nil)
		}
		if err := m.acl.Grant(ctx, dest, owner, "r"); err != nil {
			if errors.Is(err, services.ErrValidation) {
				return err
			}
			m.logger.Warn("staged file ACL grant failed", logging.String("dest", dest), logging.Error(err))
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
