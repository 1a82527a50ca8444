package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"slate/internal/pipe"
)

func newEntitiesCommand(ctx *commandContext) *cobra.Command {
	var (
		shotsOnly  bool
		assetsOnly bool
		sequence   string
		assetType  string
	)

	cmd := &cobra.Command{
		Use:   "entities <job>",
		Short: "List entities (assets and shots) in a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := ctx.ensureSession()
			if err != nil {
				return err
			}
			job, err := session.ObtJob(args[0])
			if err != nil {
				return fmt.Errorf("load job %s: %w", args[0], err)
			}

			var entities []*pipe.Entity
			switch {
			case shotsOnly:
				entities, err = job.FindShots(sequence)
			case assetsOnly:
				entities, err = job.FindAssets(assetType)
			default:
				entities, err = job.FindEntities()
			}
			if err != nil {
				return fmt.Errorf("list entities: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(entities) == 0 {
				fmt.Fprintln(out, "No entities found")
				return nil
			}

			titler := cases.Title(language.English)
			rows := make([][]string, 0, len(entities))
			for _, entity := range entities {
				rows = append(rows, []string{
					titler.String(entity.Profile),
					entity.EntityType(),
					entity.Name(),
					entity.Path,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"PROFILE", "TYPE", "NAME", "PATH"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&shotsOnly, "shots", false, "List shots only")
	cmd.Flags().BoolVar(&assetsOnly, "assets", false, "List assets only")
	cmd.Flags().StringVar(&sequence, "sequence", "", "Narrow shots to a sequence")
	cmd.Flags().StringVar(&assetType, "type", "", "Narrow assets to a type")
	return cmd
}
