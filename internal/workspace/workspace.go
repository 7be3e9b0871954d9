package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"qproject/internal/logging"
	"qproject/internal/services"
	"qproject/internal/services/facl"
)

// subdirNames is the fixed workspace layout, part of the contract with
// external workflow programs.
var subdirNames = []string{"data", "ref", "src", "var", "result", "run", "etc", "logs", "archive", "usr"}

// Workspace is a prepared per-job directory tree.
type Workspace struct {
	Root    string
	Data    string
	Ref     string
	Src     string
	Var     string
	Result  string
	Run     string
	Etc     string
	Logs    string
	Archive string
	Usr     string
}

// At maps a root path to its workspace layout without touching the
// filesystem.
func At(root string) Workspace {
	return Workspace{
		Root:    root,
		Data:    filepath.Join(root, "data"),
		Ref:     filepath.Join(root, "ref"),
		Src:     filepath.Join(root, "src"),
		Var:     filepath.Join(root, "var"),
		Result:  filepath.Join(root, "result"),
		Run:     filepath.Join(root, "run"),
		Etc:     filepath.Join(root, "etc"),
		Logs:    filepath.Join(root, "logs"),
		Archive: filepath.Join(root, "archive"),
		Usr:     filepath.Join(root, "usr"),
	}
}

// Subdirs returns the child directories in layout order.
func (w Workspace) Subdirs() []string {
	return []string{w.Data, w.Ref, w.Src, w.Var, w.Result, w.Run, w.Etc, w.Logs, w.Archive, w.Usr}
}

// WorkflowSourceDir returns the source directory for a named workflow.
func (w Workspace) WorkflowSourceDir(name string) string {
	return filepath.Join(w.Src, name)
}

// PrepareOptions controls workspace creation.
type PrepareOptions struct {
	// ForceCreate requires the root to not exist yet; reusing an
	// existing tree under ForceCreate is an error, never a silent reuse.
	ForceCreate bool
	// Owner, when set, is granted rwx on every directory so a workflow
	// running under that identity can read inputs and write outputs.
	Owner string
	// Group, when set, is granted rwx alongside Owner.
	Group string
}

// Manager creates and validates workspaces.
type Manager struct {
	logger *slog.Logger
	acl    facl.Client
}

// NewManager constructs a Manager. The ACL client may be nil when no
// owner grants will be requested.
func NewManager(logger *slog.Logger, acl facl.Client) *Manager {
	return &Manager{
		logger: logging.NewComponentLogger(logger, "workspace"),
		acl:    acl,
	}
}

// Prepare creates the workspace tree at root or validates an existing
// one. The tree is never observed half-created: a failure during
// creation removes everything created so far.
func (m *Manager) Prepare(ctx context.Context, root string, opts PrepareOptions) (Workspace, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return Workspace{}, services.Wrap(services.ErrValidation, "workspace", "resolve root", root, err)
	}
	ws := At(absRoot)

	info, statErr := os.Stat(absRoot)
	exists := statErr == nil
	if statErr != nil && !errors.Is(statErr, fs.ErrNotExist) {
		return Workspace{}, services.Wrap(services.ErrIO, "workspace", "stat root", absRoot, statErr)
	}

	switch {
	case exists && opts.ForceCreate:
		return Workspace{}, services.Wrap(services.ErrPrecondition, "workspace", "prepare",
			fmt.Sprintf("target directory %s already exists", absRoot), nil)
	case !exists:
		if err := m.create(ctx, ws, opts); err != nil {
			return Workspace{}, err
		}
	default:
		if !info.IsDir() {
			return Workspace{}, services.Wrap(services.ErrPrecondition, "workspace", "prepare",
				fmt.Sprintf("%s is not a directory", absRoot), nil)
		}
		if err := m.validate(ws); err != nil {
			return Workspace{}, err
		}
	}
	return ws, nil
}

func (m *Manager) create(ctx context.Context, ws Workspace, opts PrepareOptions) error {
	dirs := append([]string{ws.Root}, ws.Subdirs()...)
	for _, dir := range dirs {
		if err := os.Mkdir(dir, 0o700); err != nil {
			_ = os.RemoveAll(ws.Root)
			return services.Wrap(services.ErrIO, "workspace", "create directory", dir, err)
		}
		if err := m.grantAccess(ctx, dir, opts); err != nil {
			_ = os.RemoveAll(ws.Root)
			return err
		}
	}
	m.logger.Info("workspace created",
		logging.String(logging.FieldWorkspace, ws.Root),
		logging.String("owner", opts.Owner),
	)
	return nil
}

func (m *Manager) grantAccess(ctx context.Context, dir string, opts PrepareOptions) error {
	if opts.Owner == "" && opts.Group == "" {
		return nil
	}
	if m.acl == nil {
		return services.Wrap(services.ErrValidation, "workspace", "grant access",
			"owner requested but no ACL client configured", nil)
	}
	if opts.Owner != "" {
		if err := m.acl.Grant(ctx, dir, opts.Owner, "rwx"); err != nil {
			if errors.Is(err, services.ErrValidation) {
				return err
			}
			// A missing grant surfaces later as the workflow failing to
			// read its inputs; the tree itself is still consistent.
			m.logger.Warn("ACL grant failed", logging.String("dir", dir), logging.Error(err))
		}
	}
	if opts.Group != "" {
		if err := m.acl.GrantGroup(ctx, dir, opts.Group, "rwx"); err != nil {
			if errors.Is(err, services.ErrValidation) {
				return err
			}
			m.logger.Warn("group ACL grant failed", logging.String("dir", dir), logging.Error(err))
		}
	}
	return nil
}

func (m *Manager) validate(ws Workspace) error {
	for _, dir := range ws.Subdirs() {
		info, err := os.Stat(dir)
		if errors.Is(err, fs.ErrNotExist) {
			return services.Wrap(services.ErrPrecondition, "workspace", "validate",
				fmt.Sprintf("missing workspace directory %s", dir), nil)
		}
		if err != nil {
			return services.Wrap(services.ErrIO, "workspace", "validate", dir, err)
		}
		if !info.IsDir() {
			return services.Wrap(services.ErrPrecondition, "workspace", "validate",
				fmt.Sprintf("%s is not a directory", dir), nil)
		}
	}
	return nil
}
