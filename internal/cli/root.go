// Package cli provides the command-line interface for the risk engine.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"aquaculture-risk/internal/config"
	"aquaculture-risk/internal/logging"
	"aquaculture-risk/internal/store"
	"aquaculture-risk/pkg/utils"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2026-10-01"
)

// App holds the application dependencies.
type App struct {
	ConfigDir string
	Config    *config.Config
	Logger    zerolog.Logger

	// Store overrides the configured run-history store when set.
	Store store.RunStore
}

// NewRootCmd creates the root command for the CLI. The configuration is
// loaded before any subcommand runs, from --config or the default directory.
func NewRootCmd(logger zerolog.Logger) *cobra.Command {
	app := &App{Logger: logger}
	return newRootCmd(app)
}

func newRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "aquarisk",
		Short: "Monte Carlo risk engine for aquaculture production cycles",
		Long: `aquarisk simulates many possible futures of one grow-out cycle at a fish farm
site and summarizes the distribution of profit and return.

Each trial draws a market price path, a biomass growth path with mortality
shocks and an operating cost path, then values the harvest. The run is
reduced to VaR/CVaR, loss probabilities, a Sharpe ratio and plain-language
recommendations.

Use 'aquarisk config init' to write a commented configuration file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.load(cmd)
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/aquarisk)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	addCoreCommands(rootCmd, app)
	addSimulationCommands(rootCmd, app)
	addRunHistoryCommands(rootCmd, app)

	return rootCmd
}

// load reads the configuration, rebuilds the logger from it and attaches the
// logger to the command context.
func (app *App) load(cmd *cobra.Command) error {
	dir, _ := cmd.Flags().GetString("config")
	if dir == "" {
		dir = config.DefaultConfigDir()
	}
	app.ConfigDir = dir

	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}
	app.Config = cfg
	app.Logger = logging.NewLoggerWithConfig(cfg.LogConfig())

	if !cfg.Output.ColorEnabled {
		color.NoColor = true
	}

	debug, _ := cmd.Flags().GetBool("debug")
	if debug {
		logging.SetDebugLevel()
		app.Logger = app.Logger.Level(zerolog.DebugLevel)
	}

	cmd.SetContext(logging.WithLogger(commandContext(cmd), app.Logger))
	app.Logger.Debug().Str("config_dir", dir).Msg("Configuration loaded")
	return nil
}

// openStore returns the run-history store and a function releasing it.
func (app *App) openStore() (store.RunStore, func(), error) {
	if app.Store != nil {
		return app.Store, func() {}, nil
	}
	path := app.Config.Store.Path
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	s, err := store.NewSQLiteStore(path)
	if err != nil {
		return nil, nil, err
	}
	return s, func() {
		if err := s.Close(); err != nil {
			app.Logger.Warn().Err(err).Msg("Failed to close run store")
		}
	}, nil
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			}
			output.Printf("aquarisk v%s\n", Version)
			output.Dim("Build date: %s", BuildDate)
			return nil
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			path := config.FilePath(app.ConfigDir)
			if output.IsJSON() {
				return output.JSON(map[string]string{"path": path})
			}
			output.Println(path)
			return nil
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a commented configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			path, err := config.WriteTemplate(app.ConfigDir, force)
			if err != nil {
				output.Warning("%v (use --force to overwrite)", err)
				return nil
			}
			output.Success("✓ Wrote %s", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cmd.AddCommand(initCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"valid": true})
			}
			output.Success("✓ Configuration is valid")
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	seed := "clock"
	if cfg.Simulation.Seed != nil {
		seed = fmt.Sprintf("%d", *cfg.Simulation.Seed)
	}
	workers := "one per CPU"
	if cfg.Simulation.Workers > 0 {
		workers = fmt.Sprintf("%d", cfg.Simulation.Workers)
	}

	output.Bold("Simulation")
	output.Printf("  Simulations:     %s\n", utils.FormatCount(cfg.Simulation.NSimulations))
	output.Printf("  Horizon:         %d days in %d steps\n", cfg.Simulation.TimeHorizonDays, cfg.Simulation.TimeSteps)
	output.Printf("  Seed:            %s\n", seed)
	output.Printf("  Workers:         %s\n", workers)
	output.Println()

	output.Bold("Site")
	output.Printf("  Site:            #%d %s\n", cfg.Site.SiteID, cfg.Site.Species)
	output.Printf("  Fish stocked:    %s\n", utils.FormatCount(cfg.Site.FishCount))
	output.Printf("  Initial weight:  %.0f g\n", cfg.Site.InitialWeight)
	output.Println()

	output.Bold("Market")
	output.Printf("  Initial price:   %s/kg\n", utils.FormatMoney(cfg.Market.InitialPrice))
	output.Printf("  Drift:           %s\n", utils.FormatPercent(cfg.Market.Drift))
	output.Printf("  Volatility:      %s\n", utils.FormatPercent(cfg.Market.Volatility))
	output.Println()

	output.Bold("Growth")
	output.Printf("  Growth rate:     %.4f/day (vol %.3f)\n", cfg.Growth.GrowthRate, cfg.Growth.GrowthVol)
	output.Printf("  Mortality jumps: %.3f/day, shock %.2f ± %.2f\n", cfg.Growth.JumpIntensity, cfg.Growth.JumpMean, cfg.Growth.JumpStd)
	output.Printf("  Base survival:   %s\n", utils.FormatPercent(cfg.Growth.BaseSurvival))
	output.Println()

	output.Bold("Cost")
	output.Printf("  Initial cost:    %s/step\n", utils.FormatMoney(cfg.Cost.InitialCost))
	output.Printf("  Mean cost:       %s/step\n", utils.FormatMoney(cfg.Cost.MeanCost))
	output.Printf("  Reversion:       theta %.2f, sigma %.2f\n", cfg.Cost.Theta, cfg.Cost.Sigma)
	output.Println()

	output.Bold("Output")
	output.Printf("  Results:         %s\n", cfg.Output.Path)
	output.Printf("  Include paths:   %v\n", cfg.Output.IncludePaths)
	output.Printf("  Run history:     %v (%s)\n", cfg.Store.Enabled, cfg.Store.Path)
	output.Printf("  Metrics file:    %v (%s)\n", cfg.Telemetry.Enabled, cfg.Telemetry.TextfilePath)
	output.Printf("  Log level:       %s\n", cfg.Logging.Level)
}
