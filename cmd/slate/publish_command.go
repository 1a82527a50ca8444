package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"slate/internal/fileutil"
	"slate/internal/pipe"
)

func newPublishCommand(ctx *commandContext) *cobra.Command {
	var notes string

	cmd := &cobra.Command{
		Use:   "publish [work-path]",
		Short: "Publish a work file at its current version",
		Long: "Copies the work file (or the host's current scene when no path " +
			"is given) to its publish location, records the publish in the " +
			"registry and refreshes the output cache.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := ctx.ensureSession()
			if err != nil {
				return err
			}

			var workPath string
			if len(args) == 1 {
				workPath = args[0]
			} else {
				current, err := session.CurWork()
				if err != nil {
					return err
				}
				if current == nil {
					return fmt.Errorf("no current scene; pass a work file path")
				}
				workPath = current.Path
			}

			work, err := session.ObtWork(workPath)
			if err != nil {
				return fmt.Errorf("resolve work: %w", err)
			}
			if !work.Exists() {
				return fmt.Errorf("publish %s: %w", work.Base(), pipe.ErrMissing)
			}

			output, err := work.ToPublish("")
			if err != nil {
				return fmt.Errorf("address publish: %w", err)
			}
			src := filepath.FromSlash(work.Path)
			dst := filepath.FromSlash(output.Path)
			if err := fileutil.CopyFileVerified(src, dst); err != nil {
				return fmt.Errorf("copy to publish: %w", err)
			}

			if err := session.UpdateCache(cmd.Context(), work, []*pipe.Output{output}, notes); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Published %s -> %s\n", work.Base(), output.Path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&notes, "notes", "n", "", "Notes to record with the publish")
	return cmd
}
