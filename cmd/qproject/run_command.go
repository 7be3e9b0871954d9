package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"qproject/internal/daemonize"
	"qproject/internal/pipeline"
	"qproject/internal/supervise"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var workflow string
	var executeAs string
	var daemon bool

	cmd := &cobra.Command{
		Use:   "run <directory>",
		Short: "Execute a prepared workflow to completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			if daemon {
				return runDaemonized(ctx, cmd, root, workflow, executeAs)
			}
			return runForeground(ctx, cmd, root, workflow, executeAs)
		},
	}

	cmd.Flags().StringVarP(&workflow, "workflow", "w", "", "Workflow to execute")
	cmd.Flags().StringVarP(&executeAs, "user", "u", "", "Identity the workflow executes as")
	cmd.Flags().BoolVarP(&daemon, "daemon", "d", false, "Detach and run in the background")
	_ = cmd.MarkFlagRequired("workflow")
	return cmd
}

func runForeground(ctx *commandContext, cmd *cobra.Command, root, workflow, executeAs string) error {
	logger, err := ctx.newLogger("", "stdout")
	if err != nil {
		return err
	}
	p, closer, err := ctx.newPipeline(logger)
	if err != nil {
		return err
	}
	defer closer()

	runCtx, stop := signal.NotifyContext(cmd.Context(), unix.SIGINT, unix.SIGTERM)
	defer stop()

	result, runErr := p.Run(runCtx, pipeline.RunRequest{
		Root:      root,
		Workflow:  workflow,
		ExecuteAs: executeAs,
	})
	reportRun(cmd, result)
	return runErr
}

// runDaemonized covers both sides of the detach. The parent validates
// the pidfile and relaunches itself; the re-executed child does the
// actual run with its logs going to a file, since its stdio is gone.
func runDaemonized(ctx *commandContext, cmd *cobra.Command, root, workflow, executeAs string) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	pidfile := pidfilePath(root)

	if !daemonize.InChild() {
		if err := daemonize.Detach(pidfile); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Workflow %s detached, pidfile %s\n", workflow, pidfile)
		return nil
	}

	jobID := uuid.NewString()
	logFile := filepath.Join(cfg.Paths.LogDir, "qproject-"+jobID+".log")
	logger, err := ctx.newLogger(jobID, logFile)
	if err != nil {
		return err
	}
	p, closer, err := ctx.newPipeline(logger)
	if err != nil {
		return err
	}
	defer closer()

	umask, err := cfg.UmaskValue()
	if err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(cmd.Context(), unix.SIGTERM)
	defer stop()

	code := daemonize.RunChild(logger, pidfile, umask, func() error {
		_, runErr := p.Run(runCtx, pipeline.RunRequest{
			Root:      root,
			Workflow:  workflow,
			ExecuteAs: executeAs,
			JobID:     jobID,
		})
		return runErr
	})
	if code != 0 {
		os.Exit(code)
	}
	return nil
}

func pidfilePath(root string) string {
	return filepath.Join(root, "run", "qproject.pid")
}

func reportRun(cmd *cobra.Command, result pipeline.RunResult) {
	out := cmd.OutOrStdout()
	if result.Handle == nil {
		return
	}
	switch result.Handle.State() {
	case supervise.StateCompleted:
		fmt.Fprintf(out, "Workflow finished with exit code %d (job %s)\n", result.Handle.ExitCode(), result.JobID)
	case supervise.StateKilled:
		fmt.Fprintf(out, "Workflow terminated on request (job %s)\n", result.JobID)
	default:
		fmt.Fprintf(out, "Workflow did not start (job %s)\n", result.JobID)
	}
	if result.ArchivePath != "" {
		fmt.Fprintf(out, "Result snapshot: %s\n", result.ArchivePath)
	}
}
