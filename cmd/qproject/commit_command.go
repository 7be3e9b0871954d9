package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"qproject/internal/pipeline"
)

func newCommitCommand(ctx *commandContext) *cobra.Command {
	var barcode string
	var workflow string
	var owner string
	var cleanup bool

	cmd := &cobra.Command{
		Use:   "commit <directory>",
		Short: "Deliver workspace results into the dropbox",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.newLogger("", "stdout")
			if err != nil {
				return err
			}
			p, closer, err := ctx.newPipeline(logger)
			if err != nil {
				return err
			}
			defer closer()

			dest, err := p.Commit(cmd.Context(), pipeline.CommitRequest{
				Root:     args[0],
				Workflow: workflow,
				Barcode:  barcode,
				User:     owner,
				Cleanup:  cleanup,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Delivered results to %s\n", dest)
			return nil
		},
	}

	cmd.Flags().StringVarP(&barcode, "barcode", "b", "", "Delivery identifier inside the dropbox")
	cmd.Flags().StringVarP(&workflow, "workflow", "w", "", "Workflow whose run is marked delivered")
	cmd.Flags().StringVarP(&owner, "user", "u", "", "Identity that must own every delivered entry")
	cmd.Flags().BoolVar(&cleanup, "cleanup", false, "Remove the workspace after a successful delivery")
	_ = cmd.MarkFlagRequired("barcode")
	return cmd
}
