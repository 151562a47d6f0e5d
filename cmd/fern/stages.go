package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	fctx "github.com/Ramsey-B/fern/pkg/context"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/flags"
	"github.com/Ramsey-B/fern/pkg/pipeline"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// withPipeline opens the app, builds a pipeline and runs fn under the run lock.
func withPipeline(cmd *cobra.Command, opts pipelineOptions, fn func(ctx context.Context, p *pipeline.Pipeline) error) error {
	ctx := fctx.SetRunID(cmd.Context(), uuid.NewString())
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close(context.WithoutCancel(ctx))

	if opts.out == nil {
		opts.out = cmd.OutOrStdout()
	}
	if opts.daysBack < 0 {
		opts.daysBack = a.cfg.InteractionDaysBack
	}

	err = a.withRunLock(ctx, func(ctx context.Context) error {
		p, err := a.pipeline(ctx, opts)
		if err != nil {
			return err
		}
		return fn(ctx, p)
	})
	a.pushMetrics(ctx, err)
	return err
}

func runCmd() *cobra.Command {
	var daysBack int
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run every stage in dependency order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPipeline(cmd, pipelineOptions{daysBack: daysBack}, func(ctx context.Context, p *pipeline.Pipeline) error {
				_, err := p.Run(ctx)
				return err
			})
		},
	}
	cmd.Flags().IntVar(&daysBack, "days-back", -1, "limit interaction extraction to the last N days (default from INTERACTION_DAYS_BACK)")
	return cmd
}

func transfersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transfers",
		Short: "Parse pass transfers and resolve purchasers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPipeline(cmd, pipelineOptions{daysBack: -1}, func(ctx context.Context, p *pipeline.Pipeline) error {
				_, _, err := p.Transfers(ctx)
				return err
			})
		},
	}
}

func interactionsCmd() *cobra.Command {
	var daysBack int
	cmd := &cobra.Command{
		Use:   "interactions",
		Short: "Extract interactions from stored transfers, check-ins and memberships",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPipeline(cmd, pipelineOptions{daysBack: daysBack}, func(ctx context.Context, p *pipeline.Pipeline) error {
				_, err := p.Interactions(ctx, nil)
				return err
			})
		},
	}
	cmd.Flags().IntVar(&daysBack, "days-back", -1, "only look at the last N days; 0 reads the full history")
	return cmd
}

func connectionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "connections",
		Short: "Rebuild customer connections from recorded interactions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPipeline(cmd, pipelineOptions{daysBack: -1}, func(ctx context.Context, p *pipeline.Pipeline) error {
				_, err := p.Connections(ctx)
				return err
			})
		},
	}
}

func familyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "family",
		Short: "Rebuild parent and child relationships",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPipeline(cmd, pipelineOptions{daysBack: -1}, func(ctx context.Context, p *pipeline.Pipeline) error {
				_, err := p.Family(ctx)
				return err
			})
		},
	}
}

func flagsCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "flags",
		Short: "Evaluate flag rules and record set and clear transitions",
		Long: `Evaluate every enabled flag rule against the current data.

Examples:
  fern flags
  fern flags --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPipeline(cmd, pipelineOptions{daysBack: -1, dryRun: dryRun}, func(ctx context.Context, p *pipeline.Pipeline) error {
				result, _, err := p.Flags(ctx)
				if err != nil {
					return err
				}
				if dryRun {
					printFlagResult(cmd.OutOrStdout(), result)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the changes without writing or publishing them")
	return cmd
}

func printFlagResult(w io.Writer, result flags.Result) {
	for _, r := range result.Rules {
		if r.Skipped != "" {
			fmt.Fprintf(w, "%s: skipped (%s)\n", r.FlagName, r.Skipped)
			continue
		}
		fmt.Fprintf(w, "%s: eligible=%d to_set=%s to_clear=%s\n", r.FlagName, len(r.Eligible), joinIDs(r.ToSet), joinIDs(r.ToClear))
	}
}

func joinIDs(ids []int64) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprint(id))
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close(context.WithoutCancel(ctx))

			return database.NewMigrationService(a.db, database.MigrationConfig{
				FolderPath:   a.cfg.DatabaseMigrationFolderPath,
				Version:      uint(a.cfg.DatabaseMigrationVersion),
				Force:        a.cfg.DatabaseMigrationForce,
				AutoRollback: a.cfg.DatabaseMigrationAutoRollback,
			}, a.logger).Up(ctx)
		},
	}
}
