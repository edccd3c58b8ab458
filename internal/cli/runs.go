package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"aquaculture-risk/internal/logging"
	"aquaculture-risk/internal/models"
	"aquaculture-risk/internal/risk"
	"aquaculture-risk/internal/store"
	"aquaculture-risk/pkg/utils"
)

// addRunHistoryCommands adds commands reading the run-history store.
func addRunHistoryCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Browse recorded runs",
		Long:  "List, inspect and delete runs recorded with 'aquarisk run --save'.",
	}

	cmd.AddCommand(newRunsListCmd(app))
	cmd.AddCommand(newRunsShowCmd(app))
	cmd.AddCommand(newRunsDeleteCmd(app))

	rootCmd.AddCommand(cmd)
}

func newRunsListCmd(app *App) *cobra.Command {
	var (
		siteID  int
		species string
		days    int
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			s, release, err := app.openStore()
			if err != nil {
				return err
			}
			defer release()

			filter := store.RunFilter{Species: species, Limit: limit}
			if cmd.Flags().Changed("site") {
				filter.SiteID = &siteID
			}
			if days > 0 {
				filter.StartDate = time.Now().AddDate(0, 0, -days)
			}

			runs, err := s.ListRuns(commandContext(cmd), filter)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				if runs == nil {
					runs = []models.RunRecord{}
				}
				return output.JSON(runs)
			}

			if len(runs) == 0 {
				output.Info("No recorded runs")
				return nil
			}

			table := NewTable(output, "ID", "When", "Site", "Trials", "Mean Profit", "VaR 95%", "P(loss)", "Sharpe")
			for _, r := range runs {
				table.AddRow(
					shortID(r.Metadata.RunID),
					r.Metadata.GeneratedAt.Local().Format("2006-01-02 15:04"),
					fmt.Sprintf("#%d %s", r.Metadata.SiteID, r.Metadata.Species),
					utils.FormatCount(r.Metadata.NSimulations),
					output.Profit(r.Summary.MeanProfit),
					output.Profit(r.Summary.VaR95),
					output.Probability(r.Summary.ProbLoss, risk.LossProbabilityThreshold),
					fmt.Sprintf("%.2f", r.Summary.SharpeRatio),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().IntVar(&siteID, "site", 0, "only runs of this site id")
	cmd.Flags().StringVar(&species, "species", "", "only runs of this species")
	cmd.Flags().IntVar(&days, "days", 0, "only runs from the last N days")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs")
	return cmd
}

func newRunsShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the risk report of a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := commandContext(cmd)

			s, release, err := app.openStore()
			if err != nil {
				return err
			}
			defer release()

			run, err := s.GetRun(ctx, args[0])
			if err != nil {
				return err
			}
			scenarios, err := s.GetScenarios(ctx, args[0])
			if err != nil {
				return err
			}
			report := risk.BuildReport(scenarios, run.Summary)

			if output.IsJSON() {
				return output.JSON(runResult{Metadata: run.Metadata, Report: report, Duration: run.Duration.String()})
			}
			output.Dim("Run %s", run.Metadata.RunID)
			printReport(output, run.Metadata, report)
			output.Dim("Recorded %s, took %s", run.Metadata.GeneratedAt.Local().Format("2006-01-02 15:04:05"), run.Duration.Round(time.Millisecond))
			return nil
		},
	}
}

func newRunsDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			s, release, err := app.openStore()
			if err != nil {
				return err
			}
			defer release()

			if err := s.DeleteRun(commandContext(cmd), args[0]); err != nil {
				return err
			}
			logger := logging.FromContext(commandContext(cmd))
			logger.Info().Str("run_id", args[0]).Msg("Run deleted")

			if output.IsJSON() {
				return output.JSON(map[string]string{"deleted": args[0]})
			}
			output.Success("✓ Deleted run %s", args[0])
			return nil
		},
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
