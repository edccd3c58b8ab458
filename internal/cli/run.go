package cli

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"aquaculture-risk/internal/export"
	"aquaculture-risk/internal/logging"
	"aquaculture-risk/internal/models"
	"aquaculture-risk/internal/performance"
	"aquaculture-risk/internal/risk"
	"aquaculture-risk/internal/simulation"
	"aquaculture-risk/internal/store"
	"aquaculture-risk/internal/telemetry"
	"aquaculture-risk/pkg/utils"
)

// addSimulationCommands adds the run and report commands.
func addSimulationCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newRunCmd(app))
	rootCmd.AddCommand(newReportCmd(app))
}

type runFlags struct {
	simulations  int
	steps        int
	horizon      int
	seed         uint64
	workers      int
	output       string
	includePaths bool
	csvPath      string
	reportPath   string
	save         bool
	metricsFile  string
}

// runResult is the JSON form of a finished run.
type runResult struct {
	Metadata models.RunMetadata `json:"metadata"`
	Report   models.RiskReport  `json:"report"`
	Duration string             `json:"duration"`
}

func newRunCmd(app *App) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a Monte Carlo risk simulation",
		Long: `Run the configured number of trials for the configured site and print the
risk report. Flags override the configuration file for this run only.`,
		Example: `  aquarisk run --simulations 1000 --seed 42
  aquarisk run --include-paths --output results.json --csv scenarios.csv
  aquarisk run --save --metrics-file /var/lib/node_exporter/aquarisk.prom`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(cmd, app, flags)
		},
	}

	cmd.Flags().IntVarP(&flags.simulations, "simulations", "n", 0, "number of trials")
	cmd.Flags().IntVar(&flags.steps, "steps", 0, "time steps per path")
	cmd.Flags().IntVar(&flags.horizon, "horizon", 0, "horizon in days")
	cmd.Flags().Uint64Var(&flags.seed, "seed", 0, "random seed (default: from config or clock)")
	cmd.Flags().IntVarP(&flags.workers, "workers", "w", 0, "worker goroutines (default: one per CPU)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "result document path")
	cmd.Flags().BoolVar(&flags.includePaths, "include-paths", false, "embed raw paths in the result document")
	cmd.Flags().StringVar(&flags.csvPath, "csv", "", "also write scenarios as CSV")
	cmd.Flags().StringVar(&flags.reportPath, "report", "", "also write the risk report as JSON")
	cmd.Flags().BoolVar(&flags.save, "save", false, "record the run in the run history")
	cmd.Flags().StringVar(&flags.metricsFile, "metrics-file", "", "write run metrics in Prometheus text format")

	return cmd
}

func runSimulation(cmd *cobra.Command, app *App, flags runFlags) error {
	output := NewOutput(cmd)
	cfg := app.Config

	runCfg := cfg.RunConfig()
	params := cfg.Parameters()
	workers := cfg.Simulation.Workers
	outputPath := cfg.Output.Path
	includePaths := cfg.Output.IncludePaths
	csvPath := cfg.Output.CSVPath
	reportPath := cfg.Output.ReportPath
	save := cfg.Store.Enabled
	metricsFile := ""
	if cfg.Telemetry.Enabled {
		metricsFile = cfg.Telemetry.TextfilePath
	}

	f := cmd.Flags()
	if f.Changed("simulations") {
		runCfg.NSimulations = flags.simulations
	}
	if f.Changed("steps") {
		runCfg.TimeSteps = flags.steps
	}
	if f.Changed("horizon") {
		runCfg.TimeHorizonDays = flags.horizon
	}
	if f.Changed("seed") {
		seed := flags.seed
		runCfg.Seed = &seed
	}
	if f.Changed("workers") {
		workers = flags.workers
	}
	if f.Changed("output") {
		outputPath = flags.output
	}
	if f.Changed("include-paths") {
		includePaths = flags.includePaths
	}
	if f.Changed("csv") {
		csvPath = flags.csvPath
	}
	if f.Changed("report") {
		reportPath = flags.reportPath
	}
	if f.Changed("save") {
		save = flags.save
	}
	if f.Changed("metrics-file") {
		metricsFile = flags.metricsFile
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID := uuid.NewString()
	logger := logging.WithSite(logging.WithRunID(logging.FromContext(ctx), runID), params.Site.SiteID, params.Site.Species)
	ctx = logging.WithLogger(ctx, logger)

	opts := simulation.Options{
		Workers:          workers,
		KeepPaths:        includePaths,
		ProgressInterval: cfg.Simulation.ProgressInterval,
	}
	var metrics *telemetry.Metrics
	if metricsFile != "" {
		metrics = telemetry.NewMetrics()
		opts.Observer = metrics
	}

	executor, err := simulation.NewExecutor(runCfg, opts, logger)
	if err != nil {
		return err
	}

	start := time.Now()
	before := performance.MemoryStats()
	scenarios, err := executor.Run(ctx, params)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)
	performance.Since(before).Log(logger, len(scenarios))

	summary, err := risk.Summarize(scenarios)
	if err != nil {
		return err
	}
	report := risk.BuildReport(scenarios, summary)
	meta := executor.Metadata(runID, params)

	if outputPath != "" {
		doc := export.Document{Metadata: meta, Summary: summary, Scenarios: scenarios}
		err := export.NewExporter().Export(doc, outputPath, includePaths)
		logging.LogExport(logger, "json", outputPath, err)
		if err != nil {
			return err
		}
	}
	if csvPath != "" {
		err := export.WriteCSV(csvPath, scenarios)
		logging.LogExport(logger, "csv", csvPath, err)
		if err != nil {
			return err
		}
	}
	if reportPath != "" {
		err := export.WriteReport(reportPath, report)
		logging.LogExport(logger, "report", reportPath, err)
		if err != nil {
			return err
		}
	}

	if save {
		record := &models.RunRecord{Metadata: meta, Parameters: params, Summary: summary, Duration: elapsed}
		if err := saveRun(ctx, app, record, scenarios); err != nil {
			return err
		}
		logger.Info().Msg("Run recorded in history")
	}

	if metrics != nil {
		metrics.ObserveRun(summary, elapsed)
		err := metrics.WriteTextfile(metricsFile)
		logging.LogExport(logger, "metrics", metricsFile, err)
		if err != nil {
			return err
		}
	}

	logging.LogRunCompleted(logger, len(scenarios), summary.MeanProfit, summary.VaR95, summary.ProbLoss, elapsed)

	if output.IsJSON() {
		return output.JSON(runResult{Metadata: meta, Report: report, Duration: elapsed.String()})
	}
	printReport(output, meta, report)
	output.Dim("Completed in %s", elapsed.Round(time.Millisecond))
	if outputPath != "" {
		output.Dim("Results written to %s", outputPath)
	}
	return nil
}

// saveRun writes the run to the history store, retrying while the database
// is locked by another writer.
func saveRun(ctx context.Context, app *App, record *models.RunRecord, scenarios []models.Scenario) error {
	s, release, err := app.openStore()
	if err != nil {
		return err
	}
	defer release()

	logger := logging.FromContext(ctx)
	retry := utils.DefaultRetryConfig()
	retry.Retryable = store.IsTransient
	return utils.Retry(ctx, retry, func() error {
		err := s.SaveRun(ctx, record, scenarios)
		if store.IsTransient(err) {
			logger.Warn().Err(err).Msg("Run store busy, retrying")
		}
		return err
	})
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// percentileLabel renders a percentile level, e.g. 5 as "P5".
func percentileLabel(level float64) string {
	return "P" + strconv.FormatFloat(level, 'f', -1, 64)
}

func printReport(output *Output, meta models.RunMetadata, report models.RiskReport) {
	s := report.Summary

	output.Box("Risk Report", []string{
		"Site:              #" + strconv.Itoa(meta.SiteID) + " " + meta.Species,
		"Simulations:       " + utils.FormatCount(s.NSimulations),
		"Horizon:           " + strconv.Itoa(meta.TimeHorizonDays) + " days, " + strconv.Itoa(meta.TimeSteps) + " steps",
		"Seed:              " + strconv.FormatUint(meta.Seed, 10),
	})
	output.Println()

	output.Bold("Profit")
	output.Printf("  Mean:            %s\n", output.Profit(s.MeanProfit))
	output.Printf("  Median:          %s\n", output.Profit(s.MedianProfit))
	output.Printf("  Std dev:         %s\n", utils.FormatMoney(s.StdProfit))
	output.Printf("  Range:           %s to %s\n", utils.FormatCompact(s.MinProfit), utils.FormatCompact(s.MaxProfit))
	output.Printf("  Mean ROI:        %s\n", utils.FormatPercent(s.MeanROI))
	output.Println()

	output.Bold("Risk")
	output.Printf("  VaR 95%%:         %s\n", output.Profit(s.VaR95))
	output.Printf("  VaR 99%%:         %s\n", output.Profit(s.VaR99))
	output.Printf("  CVaR 95%%:        %s\n", output.Profit(s.CVaR95))
	output.Printf("  CVaR 99%%:        %s\n", output.Profit(s.CVaR99))
	output.Printf("  P(loss):         %s\n", output.Probability(s.ProbLoss, risk.LossProbabilityThreshold))
	output.Printf("  P(profit):       %s\n", utils.FormatPercent(s.ProbProfit))
	output.Printf("  P(ROI > 30%%):    %s\n", utils.FormatPercent(s.ProbHighReturn))
	output.Printf("  Sharpe ratio:    %.2f\n", s.SharpeRatio)
	output.Println()

	output.Bold("Profit Distribution")
	table := NewTable(output, "Percentile", "Profit")
	for i, v := range report.ProfitDistribution.Percentiles.Ladder() {
		table.AddRow(percentileLabel(models.PercentileLevels[i]), output.Profit(v))
	}
	table.Render()
	output.Println()

	b := report.Breakdown
	output.Bold("Scenarios")
	output.Printf("  Loss:            %s\n", utils.FormatCount(b.Loss))
	output.Printf("  Breakeven:       %s\n", utils.FormatCount(b.Breakeven))
	output.Printf("  Profit:          %s\n", utils.FormatCount(b.Profit))
	output.Printf("  Above P90:       %s\n", utils.FormatCount(b.HighProfit))
	output.Println()

	output.Bold("Recommendations")
	if len(report.Recommendations) == 0 {
		output.Success("  No warnings")
	}
	for _, rec := range report.Recommendations {
		output.Info("  • %s", rec)
	}
	output.Println()
}
