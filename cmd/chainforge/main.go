// Command chainforge is the ops CLI: period transitions and database
// migrations, meant to run from cron or an operator's shell against the same
// database as the server.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/chainforge/chainforge/internal/config"
	"github.com/chainforge/chainforge/internal/db"
	"github.com/chainforge/chainforge/internal/logger"
	"github.com/chainforge/chainforge/internal/model"
	"github.com/chainforge/chainforge/internal/repository"
	"github.com/chainforge/chainforge/internal/service"
)

func main() {
	root := &cobra.Command{
		Use:          "chainforge",
		Short:        "ChainForge operations CLI",
		SilenceUsage: true,
	}

	root.AddCommand(processPeriodsCmd())
	root.AddCommand(migrateCmd())

	err := root.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func processPeriodsCmd() *cobra.Command {
	var dryRun bool
	var asOf string

	cmd := &cobra.Command{
		Use:   "process-periods",
		Short: "Close ended group goal periods and open their successors",
		Long: `Closes every active period whose window has ended, computes penalty
carry-overs for participants who missed their effective target, and opens the
successor periods. Safe to run repeatedly; closed periods are never touched
again.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			logger.Init(cfg.IsDevelopment(), cfg.SentryDSN)

			now := time.Now()
			if asOf != "" {
				parsed, err := time.Parse(model.DateLayout, asOf)
				if err != nil {
					return fmt.Errorf("--as-of must be YYYY-MM-DD: %w", err)
				}
				now = parsed
			}

			database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			defer database.Close()

			var mailer service.SummaryMailer
			if !dryRun {
				mailer = service.NewEmailService(
					cfg.ResendAPIKey, cfg.EmailFrom, cfg.AppURL, cfg.AppName, cfg.IsDevelopment())
			}

			periodService := service.NewPeriodService(
				repository.NewPeriodRepository(database),
				repository.NewGroupGoalRepository(database),
				repository.NewParticipantProgressRepository(database),
				repository.NewGroupMemberRepository(database),
				repository.NewUserRepository(database),
				mailer,
			)

			report, err := periodService.ProcessEndedPeriods(now, dryRun)
			if err != nil {
				return err
			}

			printRunReport(cmd, report)

			if len(report.Failures) > 0 {
				return fmt.Errorf("%d period(s) failed", len(report.Failures))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "compute and print transitions without writing")
	cmd.Flags().StringVar(&asOf, "as-of", "", "process as of this date (YYYY-MM-DD) instead of now")

	return cmd
}

func printRunReport(cmd *cobra.Command, report *service.RunReport) {
	mode := "live"
	if report.DryRun {
		mode = "dry-run"
	}
	cmd.Printf("run (%s): %d processed, %d skipped, %d failed\n",
		mode, len(report.Processed), report.Skipped, len(report.Failures))

	for _, p := range report.Processed {
		cmd.Printf("\n%s  [%s .. %s]\n", p.GoalName,
			p.StartDate.Format(model.DateLayout), p.EndDate.Format(model.DateLayout))
		cmd.Printf("  participants: %d, completed: %d (%.0f%%)\n",
			p.TotalParticipants, p.CompletedCount, p.CompletionRate())

		if p.NextStartDate != nil {
			cmd.Printf("  next period: [%s .. %s]\n",
				p.NextStartDate.Format(model.DateLayout), p.NextEndDate.Format(model.DateLayout))
		} else {
			cmd.Printf("  goal inactive, no successor\n")
		}

		for userID, penalty := range p.Penalties {
			cmd.Printf("  penalty: user %s carries over %s\n", userID, penalty.String())
		}
	}

	for _, f := range report.Failures {
		cmd.Printf("\nFAILED period %s: %v\n", f.PeriodID, f.Err)
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			logger.Init(cfg.IsDevelopment(), cfg.SentryDSN)

			database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			defer database.Close()

			return db.RunMigrations(database.DB, cfg.DBDriver)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			logger.Init(cfg.IsDevelopment(), cfg.SentryDSN)

			database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			defer database.Close()

			return db.MigrateDown(database.DB, cfg.DBDriver)
		},
	})

	return cmd
}
