package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"qproject/internal/history"
	"qproject/internal/workspace"
)

// DirStatus reports one workspace directory's presence.
type DirStatus struct {
	Name    string
	Path    string
	Present bool
}

// StatusReport summarizes a workspace and its run history.
type StatusReport struct {
	Root string
	Dirs []DirStatus
	// Workflows are the names with a descriptor under run/.
	Workflows []string
	Recent    []history.Entry
}

// Status inspects the workspace tree without modifying it. A missing or
// partial tree is reported, not treated as an error.
func (p *Pipeline) Status(ctx context.Context, root string) (StatusReport, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return StatusReport{}, err
	}
	ws := workspace.At(absRoot)
	report := StatusReport{Root: absRoot}

	for _, dir := range ws.Subdirs() {
		info, statErr := os.Stat(dir)
		report.Dirs = append(report.Dirs, DirStatus{
			Name:    filepath.Base(dir),
			Path:    dir,
			Present: statErr == nil && info.IsDir(),
		})
	}

	if entries, readErr := os.ReadDir(ws.Run); readErr == nil {
		for _, entry := range entries {
			name, ok := strings.CutSuffix(entry.Name(), ".json")
			if !ok || entry.IsDir() {
				continue
			}
			report.Workflows = append(report.Workflows, name)
		}
	}

	if p.history != nil {
		recent, histErr := p.history.Recent(ctx, 10)
		if histErr != nil {
			return report, histErr
		}
		for _, entry := range recent {
			if entry.Workspace == absRoot {
				report.Recent = append(report.Recent, entry)
			}
		}
	}
	return report, nil
}
