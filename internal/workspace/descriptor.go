package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"regexp"

	"qproject/internal/logging"
	"qproject/internal/services"
)

// workflowNamePattern restricts workflow names to a safe identifier set:
// the name becomes a file name and a directory name.
var workflowNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateWorkflowName rejects names outside the safe identifier set.
func ValidateWorkflowName(name string) error {
	if !workflowNamePattern.MatchString(name) {
		return services.Wrap(services.ErrValidation, "workspace", "validate workflow name",
			"invalid workflow name "+name, nil)
	}
	return nil
}

// Descriptor is the configuration record a workflow executable reads at
// startup: one absolute path per workspace directory plus the job's
// parameter payload.
type Descriptor struct {
	Base    string          `json:"base"`
	Data    string          `json:"data"`
	Ref     string          `json:"ref"`
	Src     string          `json:"src"`
	Var     string          `json:"var"`
	Result  string          `json:"result"`
	Run     string          `json:"run"`
	Etc     string          `json:"etc"`
	Logs    string          `json:"logs"`
	Archive string          `json:"archive"`
	Usr     string          `json:"usr"`
	Params  json.RawMessage `json:"params"`
}

// DescriptorPath returns where a workflow's descriptor lives.
func (w Workspace) DescriptorPath(workflow string) string {
	return filepath.Join(w.Run, workflow+".json")
}

// WriteDescriptor persists the workspace layout and parameters for a
// workflow under the run directory and optionally grants the executing
// user read access. Callers must write the descriptor before the
// workflow source directory is populated: the fetch collaborator refuses
// a non-empty destination.
func (m *Manager) WriteDescriptor(ctx context.Context, ws Workspace, workflow string, params json.RawMessage, owner string) (string, error) {
	if err := ValidateWorkflowName(workflow); err != nil {
		return "", err
	}
	if len(params) == 0 {
		params = json.RawMessage("{}")
	}

	descriptor := Descriptor{
		Base:    ws.Root,
		Data:    ws.Data,
		Ref:     ws.Ref,
		Src:     ws.Src,
		Var:     ws.Var,
		Result:  ws.Result,
		Run:     ws.Run,
		Etc:     ws.Etc,
		Logs:    ws.Logs,
		Archive: ws.Archive,
		Usr:     ws.Usr,
		Params:  params,
	}
	data, err := json.MarshalIndent(descriptor, "", "  ")
	if err != nil {
		return "", services.Wrap(services.ErrIO, "workspace", "marshal descriptor", workflow, err)
	}
	data = append(data, '\n')

	path := ws.DescriptorPath(workflow)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", services.Wrap(services.ErrIO, "workspace", "write descriptor", path, err)
	}

	if owner != "" {
		if m.acl == nil {
			return "", services.Wrap(services.ErrValidation, "workspace", "write descriptor",
				"owner requested but no ACL client configured", nil)
		}
		if err := m.acl.Grant(ctx, path, owner, "r"); err != nil {
			if errors.Is(err, services.ErrValidation) {
				return "", err
			}
			m.logger.Warn("descriptor ACL grant failed", logging.String("path", path), logging.Error(err))
		}
	}

	m.logger.Info("descriptor written",
		logging.String(logging.FieldWorkflow, workflow),
		logging.String("path", path),
	)
	return path, nil
}
