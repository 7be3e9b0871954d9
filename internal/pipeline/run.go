package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"

	"qproject/internal/history"
	"qproject/internal/logging"
	"qproject/internal/services/archive"
	"qproject/internal/supervise"
	"qproject/internal/workspace"
)

// RunRequest describes a run invocation.
type RunRequest struct {
	Root     string
	Workflow string
	// ExecuteAs runs the workflow under another identity via the
	// elevation path; empty means the current user.
	ExecuteAs string
	// JobID correlates journal and log entries; a fresh one is generated
	// when empty.
	JobID string
}

// RunResult reports how a run ended.
type RunResult struct {
	JobID  string
	Handle *supervise.Handle
	// ArchivePath is the result snapshot written after a clean exit,
	// empty otherwise.
	ArchivePath string
}

// Run executes a prepared workflow to completion under the workspace
// run lock, snapshots the result tree on a clean exit, and journals the
// outcome. The returned error reflects the workflow's fate; the
// RunResult is populated even when the workflow failed.
func (p *Pipeline) Run(ctx context.Context, req RunRequest) (RunResult, error) {
	result := RunResult{JobID: req.JobID}
	if result.JobID == "" {
		result.JobID = uuid.NewString()
	}
	logger := p.logger.With(logging.String(logging.FieldJobID, result.JobID))

	if err := workspace.ValidateWorkflowName(req.Workflow); err != nil {
		return result, err
	}
	ws, err := p.workspaces.Prepare(ctx, req.Root, workspace.PrepareOptions{})
	if err != nil {
		return result, err
	}

	lock, err := ws.AcquireRunLock()
	if err != nil {
		return result, err
	}
	defer func() { _ = lock.Unlock() }()

	runID := p.journalStart(ctx, logger, result.JobID, ws.Root, req.Workflow, req.ExecuteAs)

	handle, runErr := p.supervisor.Run(ctx, ws.WorkflowSourceDir(req.Workflow), p.cfg.Run.Executable, req.ExecuteAs)
	result.Handle = handle

	if runErr == nil {
		archivePath := filepath.Join(ws.Archive, archive.ArchiveName(req.Workflow))
		if packErr := p.packer.Pack(ctx, []string{ws.Result}, archivePath); packErr != nil {
			p.journalResult(ctx, logger, runID, history.OutcomeCompleted, handle.ExitCode(), packErr)
			return result, packErr
		}
		result.ArchivePath = archivePath
		logger.Info("result snapshot written", logging.String("archive", archivePath))
	}

	p.journalResult(ctx, logger, runID, outcomeFor(handle), handle.ExitCode(), runErr)
	return result, runErr
}

// journalStart records the run in the journal. A journal failure is
// logged but never blocks the run itself.
func (p *Pipeline) journalStart(ctx context.Context, logger *slog.Logger, jobID, root, workflow, executeAs string) int64 {
	if p.history == nil {
		return 0
	}
	runID, err := p.history.RecordStart(ctx, jobID, root, workflow, executeAs)
	if err != nil {
		logger.Warn("run journal insert failed", logging.Error(err))
		return 0
	}
	return runID
}

func (p *Pipeline) journalResult(ctx context.Context, logger *slog.Logger, runID int64, outcome history.Outcome, exitCode int, runErr error) {
	if p.history == nil || runID == 0 {
		return
	}
	if err := p.history.RecordResult(ctx, runID, outcome, exitCode, false, runErr); err != nil {
		logger.Warn("run journal update failed", logging.Error(err))
	}
}

func outcomeFor(handle *supervise.Handle) history.Outcome {
	switch handle.State() {
	case supervise.StateCompleted:
		if handle.ExitCode() == 0 {
			return history.OutcomeCompleted
		}
		return history.OutcomeFailed
	case supervise.StateKilled:
		return history.OutcomeKilled
	default:
		return history.OutcomeSpawnFailed
	}
}
