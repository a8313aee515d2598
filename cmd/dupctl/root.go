package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/app"
	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/config"
	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/models"
	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/pkg/logger"
)

type cli struct {
	configFile string
	logLevel   string
	jsonOutput bool

	cfg    *config.Config
	logger zerolog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "dupctl",
		Short: "Find and remove duplicate submissions",
		Long: `dupctl fingerprints submission files, groups byte-identical submissions
and deletes the ones an operator picks.

Examples:
  dupctl backfill --assignment hw-1        # hash submissions that have no fingerprint yet
  dupctl detect --assignment hw-1          # list groups of identical submissions
  dupctl export --format csv > report.csv  # one row per flagged submission
  dupctl delete --actor t.ivanova s-17 s-18`,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFrom(viper.New(), c.configFile)
			if err != nil {
				return err
			}
			c.cfg = cfg

			level := c.logLevel
			if level == "" {
				level = cfg.Logging.Level
			}
			c.logger = logger.NewCLI(level)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&c.configFile, "config", "", "path to config file (default ./config/config.yaml)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "warn", "log level written to stderr")
	root.PersistentFlags().BoolVar(&c.jsonOutput, "json", false, "print machine-readable JSON")

	root.AddCommand(
		newMigrateCmd(c),
		newBackfillCmd(c),
		newCoverageCmd(c),
		newDetectCmd(c),
		newExportCmd(c),
		newDeleteCmd(c),
	)

	return root
}

// withServices builds the service graph for one command and cancels its
// context on SIGINT or SIGTERM.
func (c *cli) withServices(cmd *cobra.Command, fn func(ctx context.Context, s *app.Services) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	services, err := app.NewServices(c.cfg, c.logger)
	if err != nil {
		return err
	}
	defer services.Close()

	return fn(ctx, services)
}

func addScopeFlags(cmd *cobra.Command) {
	cmd.Flags().String("assignment", "", "limit to one assignment id")
	cmd.Flags().String("class-year", "", "limit to one class year")
	cmd.Flags().String("from", "", "submitted at or after (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().String("to", "", "submitted at or before (RFC3339 or YYYY-MM-DD, whole day)")
}

func scopeFromFlags(cmd *cobra.Command) (models.Scope, error) {
	assignment, _ := cmd.Flags().GetString("assignment")
	classYear, _ := cmd.Flags().GetString("class-year")
	fromRaw, _ := cmd.Flags().GetString("from")
	toRaw, _ := cmd.Flags().GetString("to")

	from, err := models.ParseScopeDate(strings.TrimSpace(fromRaw), false)
	if err != nil {
		return models.Scope{}, fmt.Errorf("invalid --from: %w", err)
	}
	to, err := models.ParseScopeDate(strings.TrimSpace(toRaw), true)
	if err != nil {
		return models.Scope{}, fmt.Errorf("invalid --to: %w", err)
	}

	return models.Scope{
		AssignmentID: strings.TrimSpace(assignment),
		ClassYear:    strings.TrimSpace(classYear),
		From:         from,
		To:           to,
	}, nil
}
