package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agenthands/ambridge/internal/core"
	"github.com/agenthands/ambridge/internal/core/reconcile"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	ctx := newCommandContext(&configFlag)

	root := &cobra.Command{
		Use:           "ambridge",
		Short:         "Build and maintain the Ambridge episode archive",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if ctx.log != nil {
				ctx.log.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&configFlag, "config", "", "Configuration file (default config/config.toml or $AMBRIDGE_CONFIG)")

	root.AddCommand(
		newSetupCommand(ctx),
		newUpdateCommand(ctx),
		newCleanupCommand(ctx),
		newRelinkCommand(ctx),
		newRescrapeCommand(ctx),
		newLinkCommand(ctx),
		newMergeScenesCommand(ctx),
	)
	return root
}

func newSetupCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Load the base character dataset into an empty store and build indices",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withArchive(cmd.Context(), func(a *core.Archive) error {
				fmt.Fprintln(cmd.OutOrStdout(), "Store ready.")
				return nil
			})
		},
	}
}

func newUpdateCommand(ctx *commandContext) *cobra.Command {
	var fromCache bool
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Fetch new episodes (or replay the cache) and process them",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withArchive(cmd.Context(), func(a *core.Archive) error {
				rep, err := a.Update(cmd.Context(), fromCache)
				if err != nil {
					return err
				}
				if rep.Records == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No new episodes found.")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderCounts("Update", reportRows(rep)))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&fromCache, "from-cache", false, "Rebuild from the cache file instead of crawling")
	return cmd
}

func newCleanupCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove orphaned, duplicate and placeholder episodes and repair date collisions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withArchive(cmd.Context(), func(a *core.Archive) error {
				rep, err := a.Cleaner.Run(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderCounts("Cleanup", cleanupRows(rep)))
				return nil
			})
		},
	}
}

func newRelinkCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "relink",
		Short: "Run both linking passes over every episode",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withArchive(cmd.Context(), func(a *core.Archive) error {
				res, err := a.Relink(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderCounts("Relink", linkRows(res)))
				return nil
			})
		},
	}
}

func newRescrapeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rescrape",
		Short: "Refetch episodes from the last week that have a single scene",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withArchive(cmd.Context(), func(a *core.Archive) error {
				rep, err := a.Rescrape(cmd.Context())
				if err != nil {
					return err
				}
				if rep.Records == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing to rescrape.")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderCounts("Rescrape", reportRows(rep)))
				return nil
			})
		},
	}
}

func newLinkCommand(ctx *commandContext) *cobra.Command {
	var (
		scenes    []string
		character string
	)
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Manually link a character to scenes",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := splitIDs(append(append([]string(nil), scenes...), args...))
			return ctx.withArchive(cmd.Context(), func(a *core.Archive) error {
				fmt.Fprintf(cmd.OutOrStdout(), "Linking character '%s' to scenes...\n", character)
				n, err := a.Reconciler.ManualLink(cmd.Context(), character, ids)
				if err != nil {
					return err
				}
				if n == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Warning: no links created. Check the character name and scene ids.")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created %d link(s) for '%s'.\n", n, character)
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&scenes, "scenes", nil, "Scene ids, comma separated or repeated; extra arguments are scene ids too")
	cmd.Flags().StringVar(&character, "character", "", "Character name")
	_ = cmd.MarkFlagRequired("character")
	return cmd
}

func newMergeScenesCommand(ctx *commandContext) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "merge-scenes",
		Short: "Review unattributed scenes and merge them into their predecessors",
		RunE: func(cmd *cobra.Command, args []string) error {
			approve := promptApprover(cmd.InOrStdin(), cmd.OutOrStdout())
			if yes {
				approve = reconcile.ApproveAll
			}
			return ctx.withArchive(cmd.Context(), func(a *core.Archive) error {
				res, err := a.Reconciler.MergeEmptyScenes(cmd.Context(), approve)
				if err != nil {
					return err
				}
				if res.Candidates == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No empty scenes with predecessors found.")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderCounts("Merge scenes", [][2]string{
					{"Candidates", itoa(res.Candidates)},
					{"Merged", itoa(res.Merged)},
					{"Rejected", itoa(res.Rejected)},
					{"Skipped", itoa(res.Skipped)},
				}))
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Merge every candidate without asking")
	return cmd
}

// splitIDs accepts space or comma separated scene ids.
func splitIDs(values []string) []string {
	var out []string
	for _, v := range values {
		for _, f := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' }) {
			out = append(out, f)
		}
	}
	return out
}
