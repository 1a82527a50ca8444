package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"slate/internal/pipe"
)

func newOutputsCommand(ctx *commandContext) *cobra.Command {
	var (
		outputType string
		task       string
		latestOnly bool
		force      bool
	)

	cmd := &cobra.Command{
		Use:   "outputs <entity-path>",
		Short: "List outputs under an entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := ctx.ensureSession()
			if err != nil {
				return err
			}
			entity, err := session.ObtEntity(args[0])
			if err != nil {
				return fmt.Errorf("resolve entity: %w", err)
			}
			outputs, err := session.FindOutputs(entity, pipe.OutputOpts{
				Type: outputType,
				Task: task,
			}, force)
			if err != nil {
				return fmt.Errorf("list outputs: %w", err)
			}

			out := cmd.OutOrStdout()
			rows := make([][]string, 0, len(outputs))
			for _, output := range outputs {
				if latestOnly && !output.Latest {
					continue
				}
				name := output.OutputName
				if name == "" {
					name = output.Tag
				}
				ver := ""
				if !output.Versionless() {
					ver = strconv.Itoa(output.VerN)
				}
				rows = append(rows, []string{
					output.Type,
					output.Task,
					name,
					ver,
					yesNo(output.Latest),
					output.Base(),
				})
			}
			if len(rows) == 0 {
				fmt.Fprintf(out, "No outputs under %s\n", entity.Label())
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"TYPE", "TASK", "NAME", "VER", "LATEST", "FILE"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&outputType, "type", "", "Narrow to an output type (publish, cache, render, mov)")
	cmd.Flags().StringVar(&task, "task", "", "Narrow to a task")
	cmd.Flags().BoolVar(&latestOnly, "latest", false, "Show only the latest version of each stream")
	cmd.Flags().BoolVar(&force, "force", false, "Re-scan the disk instead of the cached listing")
	return cmd
}
