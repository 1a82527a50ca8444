package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newWorksCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "works <path>",
		Short: "List work files in the work dir owning a path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := ctx.ensureSession()
			if err != nil {
				return err
			}
			workDir, err := session.ObtWorkDir(args[0])
			if err != nil {
				return fmt.Errorf("resolve work dir: %w", err)
			}
			works, err := workDir.FindWorks()
			if err != nil {
				return fmt.Errorf("list works: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(works) == 0 {
				fmt.Fprintf(out, "No works in %s\n", workDir.Label())
				return nil
			}
			rows := make([][]string, 0, len(works))
			for _, work := range works {
				rows = append(rows, []string{
					work.Tag,
					strconv.Itoa(work.VerN),
					work.Base(),
					work.Owner(),
					work.Notes(),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"TAG", "VER", "FILE", "OWNER", "NOTES"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
	return cmd
}

func newVersionUpCommand(ctx *commandContext) *cobra.Command {
	var notes string

	cmd := &cobra.Command{
		Use:   "version-up [path]",
		Short: "Copy a work file to the next version in its stream",
		Long: "Copies the given work file (or the host's current scene when no " +
			"path is given) to the next free version and records the notes.",
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
			next, err := session.VersionUp(work, notes)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Versioned up %s -> %s\n", work.Base(), next.Base())
			return nil
		},
	}

	cmd.Flags().StringVarP(&notes, "notes", "n", "", "Notes to record on the new version")
	return cmd
}
