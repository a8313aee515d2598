package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/app"
	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/service"
)

func newMigrateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply or roll back the database schema",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			direction := "up"
			if len(args) == 1 {
				direction = args[0]
			}
			if err := app.Migrate(c.cfg, direction, c.logger); err != nil {
				return err
			}
			good.Fprintf(cmd.OutOrStdout(), "Migrations %s applied\n", direction)
			return nil
		},
	}
}

func newBackfillCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Compute missing content fingerprints",
		Long: `Hash every submission in scope that has no fingerprint yet.

Existing fingerprints are never overwritten. With --force each submission is
re-read and re-hashed; a changed hash replaces the stored one and is reported
as "rehashed". Interrupting with Ctrl-C keeps every fingerprint written so far.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := scopeFromFlags(cmd)
			if err != nil {
				return err
			}
			force, _ := cmd.Flags().GetBool("force")
			actor, _ := cmd.Flags().GetString("actor")

			return c.withServices(cmd, func(ctx context.Context, s *app.Services) error {
				report, err := s.Backfill.Backfill(ctx, service.BackfillOptions{
					Scope:       scope,
					ForceRehash: force,
					Actor:       actor,
				})
				if err != nil {
					return err
				}

				if c.jsonOutput {
					if err := printJSON(cmd.OutOrStdout(), report); err != nil {
						return err
					}
				} else {
					printBackfillReport(cmd.OutOrStdout(), report)
				}

				if report.Cancelled {
					return errors.New("backfill interrupted")
				}
				return nil
			})
		},
	}

	addScopeFlags(cmd)
	cmd.Flags().Bool("force", false, "re-hash submissions that already have a fingerprint")
	cmd.Flags().String("actor", "", "operator recorded in the audit log")

	return cmd
}

func newCoverageCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "coverage",
		Short: "Show how many submissions have a fingerprint",
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := scopeFromFlags(cmd)
			if err != nil {
				return err
			}

			return c.withServices(cmd, func(ctx context.Context, s *app.Services) error {
				counts, err := s.Backfill.Coverage(ctx, scope)
				if err != nil {
					return err
				}
				if c.jsonOutput {
					return printJSON(cmd.OutOrStdout(), counts)
				}
				printCoverage(cmd.OutOrStdout(), "Coverage:", counts)
				return nil
			})
		},
	}

	addScopeFlags(cmd)
	return cmd
}

func newDetectCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "List groups of byte-identical submissions",
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := scopeFromFlags(cmd)
			if err != nil {
				return err
			}
			minSimilarity := minSimilarityFlag(cmd)

			return c.withServices(cmd, func(ctx context.Context, s *app.Services) error {
				report, err := s.Detection.Detect(ctx, scope, minSimilarity)
				if err != nil {
					return err
				}
				if c.jsonOutput {
					return printJSON(cmd.OutOrStdout(), report)
				}
				printDetectionReport(cmd.OutOrStdout(), report)
				return nil
			})
		},
	}

	addScopeFlags(cmd)
	cmd.Flags().Float64("min-similarity", 0, "similarity threshold in percent (default from config)")
	return cmd
}

func newExportCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write flagged submissions as CSV or JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := scopeFromFlags(cmd)
			if err != nil {
				return err
			}
			format, _ := cmd.Flags().GetString("format")
			if c.jsonOutput {
				format = service.ExportFormatJSON
			}
			minSimilarity := minSimilarityFlag(cmd)

			return c.withServices(cmd, func(ctx context.Context, s *app.Services) error {
				rows, err := s.Export.Export(ctx, cmd.OutOrStdout(), format, scope, minSimilarity)
				if err != nil {
					return err
				}
				c.logger.Info().Int("rows", rows).Str("format", format).Msg("Export written")
				return nil
			})
		},
	}

	addScopeFlags(cmd)
	cmd.Flags().String("format", service.ExportFormatCSV, "csv or json")
	cmd.Flags().Float64("min-similarity", 0, "similarity threshold in percent (default from config)")
	return cmd
}

func newDeleteCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete SUBMISSION_ID...",
		Short: "Delete submissions picked from a duplicate group",
		Long: `Delete the given submissions one by one.

Each deletion is independent: a failure does not undo the others, and ids
that are already gone are reported as "already deleted". Ctrl-C stops before
the next id; ids not attempted are listed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, _ := cmd.Flags().GetString("actor")

			return c.withServices(cmd, func(ctx context.Context, s *app.Services) error {
				result, err := s.Remediation.DeleteMany(ctx, args, actor)
				if err != nil {
					return err
				}

				if c.jsonOutput {
					if err := printJSON(cmd.OutOrStdout(), result); err != nil {
						return err
					}
				} else {
					printRemediation(cmd.OutOrStdout(), result)
				}

				if unfinished := result.Total - result.Succeeded; unfinished > 0 {
					return fmt.Errorf("%d of %d deletion(s) did not succeed", unfinished, result.Total)
				}
				return nil
			})
		},
	}

	cmd.Flags().String("actor", "", "operator recorded in the audit log (required)")
	_ = cmd.MarkFlagRequired("actor")
	return cmd
}

// minSimilarityFlag returns nil unless the flag was set, so the configured
// default applies.
func minSimilarityFlag(cmd *cobra.Command) *float64 {
	if !cmd.Flags().Changed("min-similarity") {
		return nil
	}
	v, _ := cmd.Flags().GetFloat64("min-similarity")
	return &v
}
