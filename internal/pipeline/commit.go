package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"qproject/internal/logging"
	"qproject/internal/securecopy"
	"qproject/internal/services"
	"qproject/internal/workspace"
)

// barcodePattern restricts delivery identifiers to the safe set: the
// barcode becomes a directory name inside the shared dropbox.
var barcodePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// CommitRequest describes a commit invocation.
type CommitRequest struct {
	Root     string
	Workflow string
	// Barcode identifies the delivery inside the dropbox directory.
	Barcode string
	// User is the identity that must own every delivered entry; empty
	// means the current user.
	User string
	// Cleanup removes the workspace after a successful delivery.
	Cleanup bool
}

// Commit delivers the workspace result and log trees into a fresh
// <dropbox>/<barcode> directory. Results are all-or-nothing: any entry
// with the wrong owner aborts the whole delivery. Logs are best-effort:
// foreign-owned entries are skipped. Returns the delivery directory.
func (p *Pipeline) Commit(ctx context.Context, req CommitRequest) (string, error) {
	if !barcodePattern.MatchString(req.Barcode) {
		return "", services.Wrap(services.ErrValidation, "pipeline", "commit",
			"invalid barcode "+req.Barcode, nil)
	}
	if strings.TrimSpace(p.cfg.Paths.DropboxDir) == "" {
		return "", services.Wrap(services.ErrValidation, "pipeline", "commit",
			"no dropbox directory configured", nil)
	}

	ws, err := p.workspaces.Prepare(ctx, req.Root, workspace.PrepareOptions{})
	if err != nil {
		return "", err
	}

	uid, err := resolveUID(req.User)
	if err != nil {
		return "", err
	}

	dest := filepath.Join(p.cfg.Paths.DropboxDir, req.Barcode)
	if err := os.Mkdir(dest, 0o700); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", services.Wrap(services.ErrPrecondition, "pipeline", "commit",
				fmt.Sprintf("delivery %s already exists", dest), nil)
		}
		return "", services.Wrap(services.ErrIO, "pipeline", "create delivery directory", dest, err)
	}

	if err := p.copier.Copy(ctx, ws.Result, filepath.Join(dest, "result"), uid, securecopy.Abort); err != nil {
		// Nothing half-delivered may remain: the copier already removed
		// its own subtree, the delivery directory follows.
		_ = os.RemoveAll(dest)
		return "", err
	}

	if err := p.copier.Copy(ctx, ws.Logs, filepath.Join(dest, "logs"), uid, securecopy.Skip); err != nil {
		// Logs are collected best-effort; the result delivery stands.
		p.logger.Warn("log collection failed", logging.String("dest", dest), logging.Error(err))
	}

	if p.history != nil && req.Workflow != "" {
		if err := p.history.MarkDelivered(ctx, ws.Root, req.Workflow); err != nil {
			p.logger.Warn("journal delivery update failed", logging.Error(err))
		}
	}

	p.logger.Info("results delivered",
		logging.String(logging.FieldWorkspace, ws.Root),
		logging.String("dest", dest),
	)

	if req.Cleanup {
		if err := os.RemoveAll(ws.Root); err != nil {
			return dest, services.Wrap(services.ErrIO, "pipeline", "cleanup workspace", ws.Root, err)
		}
		p.logger.Info("workspace removed", logging.String(logging.FieldWorkspace, ws.Root))
	}
	return dest, nil
}
