package pipeline

import (
	"context"
	"encoding/json"

	"qproject/internal/logging"
	"qproject/internal/workspace"
)

// WorkflowSpec names one workflow to install during prepare.
type WorkflowSpec struct {
	// Name becomes the descriptor file name and the source subdirectory.
	Name string
	// Remote is the git clone source, accepting the github:org/repo
	// shorthand.
	Remote string
	// Revision optionally pins a commit, branch, or tag.
	Revision string
	// Params is the raw parameter document embedded in the descriptor.
	Params json.RawMessage
}

// PrepareRequest describes a prepare invocation.
type PrepareRequest struct {
	Root        string
	ForceCreate bool
	// Owner is the identity the workflow will later execute as; it is
	// granted access to everything prepared here.
	Owner string
	Group string
	// Workflows are fetched into src and given a descriptor each.
	Workflows []WorkflowSpec
	// Inputs are staged into data, Refs into ref.
	Inputs []string
	Refs   []string
}

// Prepare creates or validates the workspace, writes one descriptor per
// workflow, clones the workflow sources, and stages input and reference
// files. The descriptor goes first so a workflow observing its source
// directory appear can already read its configuration.
func (p *Pipeline) Prepare(ctx context.Context, req PrepareRequest) (workspace.Workspace, error) {
	for _, spec := range req.Workflows {
		if err := workspace.ValidateWorkflowName(spec.Name); err != nil {
			return workspace.Workspace{}, err
		}
	}

	ws, err := p.workspaces.Prepare(ctx, req.Root, workspace.PrepareOptions{
		ForceCreate: req.ForceCreate,
		Owner:       req.Owner,
		Group:       req.Group,
	})
	if err != nil {
		return workspace.Workspace{}, err
	}

	for _, spec := range req.Workflows {
		if _, err := p.workspaces.WriteDescriptor(ctx, ws, spec.Name, spec.Params, req.Owner); err != nil {
			return ws, err
		}
		if spec.Remote == "" {
			continue
		}
		if err := p.git.Fetch(ctx, spec.Remote, spec.Revision, ws.WorkflowSourceDir(spec.Name)); err != nil {
			return ws, err
		}
		p.logger.Info("workflow installed",
			logging.String(logging.FieldWorkflow, spec.Name),
			logging.String("remote", spec.Remote),
			logging.String("revision", spec.Revision),
		)
	}

	if len(req.Inputs) > 0 {
		if err := p.workspaces.StageInputs(ctx, ws, req.Inputs, req.Owner); err != nil {
			return ws, err
		}
	}
	if len(req.Refs) > 0 {
		if err := p.workspaces.StageRefs(ctx, ws, req.Refs, req.Owner); err != nil {
			return ws, err
		}
	}

	p.logger.Info("workspace prepared",
		logging.String(logging.FieldWorkspace, ws.Root),
		logging.Int("workflows", len(req.Workflows)),
	)
	return ws, nil
}
