package pipeline

import (
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"strconv"

	"qproject/internal/config"
	"qproject/internal/history"
	"qproject/internal/logging"
	"qproject/internal/securecopy"
	"qproject/internal/services"
	"qproject/internal/services/archive"
	"qproject/internal/services/facl"
	"qproject/internal/services/git"
	"qproject/internal/services/runas"
	"qproject/internal/supervise"
	"qproject/internal/workspace"
)

var lookupUser = user.Lookup

// Deps are the collaborators a Pipeline operates through. Zero-value
// fields are filled with the configured defaults by New; tests supply
// fakes.
type Deps struct {
	Workspaces *workspace.Manager
	Git        git.Client
	Runner     runas.Runner
	Copier     *securecopy.Copier
	Packer     archive.Client
	History    *history.Store
}

// Pipeline executes the workspace lifecycle operations.
type Pipeline struct {
	logger     *slog.Logger
	cfg        *config.Config
	workspaces *workspace.Manager
	git        git.Client
	supervisor *supervise.Supervisor
	copier     *securecopy.Copier
	packer     archive.Client
	history    *history.Store
}

// New builds a Pipeline from configuration, constructing any
// collaborator deps leaves unset.
func New(logger *slog.Logger, cfg *config.Config, deps Deps) *Pipeline {
	p := &Pipeline{
		logger:     logging.NewComponentLogger(logger, "pipeline"),
		cfg:        cfg,
		workspaces: deps.Workspaces,
		git:        deps.Git,
		copier:     deps.Copier,
		packer:     deps.Packer,
		history:    deps.History,
	}
	if p.workspaces == nil {
		p.workspaces = workspace.NewManager(logger, facl.NewCLI(facl.WithBinary(cfg.Tools.Setfacl)))
	}
	if p.git == nil {
		p.git = git.NewCLI(git.WithBinary(cfg.Tools.Git))
	}
	runner := deps.Runner
	if runner == nil {
		runner = runas.New(runas.WithBinary(cfg.Tools.Sudo))
	}
	p.supervisor = supervise.New(logger, runner)
	if p.copier == nil {
		p.copier = securecopy.New(logger)
	}
	if p.packer == nil {
		p.packer = archive.NewTarGz()
	}
	return p
}

// resolveUID maps an identity name to its numeric uid; an empty name
// resolves to the current user. Delivery validates ownership against
// this uid.
func resolveUID(name string) (uint32, error) {
	if name == "" {
		return uint32(os.Getuid()), nil
	}
	if err := services.ValidateIdentity(name); err != nil {
		return 0, err
	}
	account, err := lookupUser(name)
	if err != nil {
		return 0, services.Wrap(services.ErrValidation, "pipeline", "resolve user", name, err)
	}
	uid, err := strconv.ParseUint(account.Uid, 10, 32)
	if err != nil {
		return 0, services.Wrap(services.ErrValidation, "pipeline", "resolve user",
			fmt.Sprintf("non-numeric uid %q for %s", account.Uid, name), err)
	}
	return uint32(uid), nil
}
