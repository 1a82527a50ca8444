package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List jobs under the jobs root",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := ctx.ensureSession()
			if err != nil {
				return err
			}
			jobs, err := session.ObtJobs(force)
			if err != nil {
				return fmt.Errorf("list jobs: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(jobs) == 0 {
				fmt.Fprintln(out, "No jobs found")
				return nil
			}
			rows := make([][]string, 0, len(jobs))
			for _, job := range jobs {
				rows = append(rows, []string{job.Name, job.Path})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"NAME", "PATH"},
				rows,
				[]columnAlignment{alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Bypass the cached jobs listing")
	return cmd
}
