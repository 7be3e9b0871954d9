package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"qproject/internal/pipeline"
)

func newPrepareCommand(ctx *commandContext) *cobra.Command {
	var workflows []string
	var params string
	var owner string
	var group string
	var inputs []string
	var refs []string
	var forceCreate bool

	cmd := &cobra.Command{
		Use:   "prepare <directory>",
		Short: "Create a workspace and install its workflows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			specs, err := parseWorkflowFlags(workflows, params)
			if err != nil {
				return err
			}

			logger, err := ctx.newLogger("", "stdout")
			if err != nil {
				return err
			}
			p, closer, err := ctx.newPipeline(logger)
			if err != nil {
				return err
			}
			defer closer()

			ws, err := p.Prepare(cmd.Context(), pipeline.PrepareRequest{
				Root:        args[0],
				ForceCreate: forceCreate,
				Owner:       owner,
				Group:       group,
				Workflows:   specs,
				Inputs:      inputs,
				Refs:        refs,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Prepared workspace %s (%d workflows)\n", ws.Root, len(specs))
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&workflows, "workflow", "w", nil,
		"Workflow to install as name=remote[@revision] (repeatable)")
	cmd.Flags().StringVar(&params, "params", "", "JSON parameter document embedded in each descriptor")
	cmd.Flags().StringVarP(&owner, "owner", "o", "", "User granted access to the workspace")
	cmd.Flags().StringVarP(&group, "group", "g", "", "Group granted access to the workspace")
	cmd.Flags().StringArrayVarP(&inputs, "input", "i", nil, "Input file staged into data/ (repeatable)")
	cmd.Flags().StringArrayVar(&refs, "ref", nil, "Reference file staged into ref/ (repeatable)")
	cmd.Flags().BoolVar(&forceCreate, "force-create", false, "Require the directory to not exist yet")
	return cmd
}

// parseWorkflowFlags turns repeated name=remote[@revision] flags into
// workflow specs sharing one parameter document.
func parseWorkflowFlags(flags []string, params string) ([]pipeline.WorkflowSpec, error) {
	var rawParams json.RawMessage
	if trimmed := strings.TrimSpace(params); trimmed != "" {
		if !json.Valid([]byte(trimmed)) {
			return nil, fmt.Errorf("--params is not valid JSON")
		}
		rawParams = json.RawMessage(trimmed)
	}

	specs := make([]pipeline.WorkflowSpec, 0, len(flags))
	for _, flag := range flags {
		name, source, found := strings.Cut(flag, "=")
		if !found || name == "" {
			return nil, fmt.Errorf("invalid --workflow %q, expected name=remote[@revision]", flag)
		}
		remote, revision, _ := splitRevision(source)
		if remote == "" {
			return nil, fmt.Errorf("invalid --workflow %q, remote is empty", flag)
		}
		specs = append(specs, pipeline.WorkflowSpec{
			Name:     name,
			Remote:   remote,
			Revision: revision,
			Params:   rawParams,
		})
	}
	return specs, nil
}

// splitRevision separates a trailing @revision from a remote, leaving
// scp-style user@host remotes intact by splitting on the last @ only
// when one follows the path separator.
func splitRevision(source string) (remote, revision string, pinned bool) {
	at := strings.LastIndex(source, "@")
	if at < 0 || strings.Contains(source[at:], "/") {
		return source, "", false
	}
	return source[:at], source[at+1:], true
}
