package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"slate/internal/pipe"
	"slate/internal/settings"
)

func newSettingsCommand(ctx *commandContext) *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Read and write layered pipeline settings",
	}

	settingsCmd.AddCommand(newSettingsGetCommand(ctx))
	settingsCmd.AddCommand(newSettingsSetCommand(ctx))
	settingsCmd.AddCommand(newSettingsDelCommand(ctx))

	return settingsCmd
}

// levelForPath resolves a path to its most specific settings level: entity
// settings when the path resolves to an entity, job settings otherwise.
func levelForPath(ctx *commandContext, p string) (*settings.Level, error) {
	session, err := ctx.ensureSession()
	if err != nil {
		return nil, err
	}
	if entity, err := session.ObtEntity(p); err == nil {
		return entity.Settings(), nil
	}
	cfg := ctx.configValue()
	job, err := pipe.JobFromPath(cfg, p)
	if err != nil {
		return nil, fmt.Errorf("resolve settings level: %w", err)
	}
	return job.Settings(), nil
}

func newSettingsGetCommand(ctx *commandContext) *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "get [key]",
		Short: "Show effective settings at a level",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := levelForPath(ctx, target)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(args) == 1 {
				value, ok, err := level.Get(args[0])
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintf(out, "%s is not set\n", args[0])
					return nil
				}
				payload, err := yaml.Marshal(value)
				if err != nil {
					return err
				}
				fmt.Fprint(out, string(payload))
				return nil
			}
			merged, err := level.Settings()
			if err != nil {
				return err
			}
			payload, err := yaml.Marshal(merged)
			if err != nil {
				return err
			}
			fmt.Fprint(out, string(payload))
			return nil
		},
	}

	cmd.Flags().StringVarP(&target, "path", "p", "", "Directory whose settings level to read")
	_ = cmd.MarkFlagRequired("path")
	return cmd
}

func newSettingsSetCommand(ctx *commandContext) *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Write a setting override at a level",
		Long: "Writes the key at the given level only; lower levels keep " +
			"inheriting until they override it themselves. The value is parsed " +
			"as YAML, so numbers, booleans and inline maps work.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := levelForPath(ctx, target)
			if err != nil {
				return err
			}
			var value any
			if err := yaml.Unmarshal([]byte(args[1]), &value); err != nil {
				return fmt.Errorf("parse value: %w", err)
			}
			if err := level.Set(args[0], value); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s at %s\n", args[0], level.Dir())
			return nil
		},
	}

	cmd.Flags().StringVarP(&target, "path", "p", "", "Directory whose settings level to write")
	_ = cmd.MarkFlagRequired("path")
	return cmd
}

func newSettingsDelCommand(ctx *commandContext) *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "del <key>",
		Short: "Remove a setting override at a level",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := levelForPath(ctx, target)
			if err != nil {
				return err
			}
			if err := level.Del(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s at %s\n", args[0], level.Dir())
			return nil
		},
	}

	cmd.Flags().StringVarP(&target, "path", "p", "", "Directory whose settings level to write")
	_ = cmd.MarkFlagRequired("path")
	return cmd
}
