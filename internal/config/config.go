// Package config provides configuration management for the risk engine.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/viper"

	apperrors "aquaculture-risk/internal/errors"
	"aquaculture-risk/internal/logging"
	"aquaculture-risk/internal/models"
)

// FileName is the base name of the configuration file.
const FileName = "aquarisk"

// Config holds all application configuration.
type Config struct {
	Simulation SimulationConfig `mapstructure:"simulation"`
	Site       SiteConfig       `mapstructure:"site"`
	Market     MarketConfig     `mapstructure:"market"`
	Growth     GrowthConfig     `mapstructure:"growth"`
	Cost       CostConfig       `mapstructure:"cost"`
	Output     OutputConfig     `mapstructure:"output"`
	Store      StoreConfig      `mapstructure:"store"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
}

// SimulationConfig holds run-level settings.
type SimulationConfig struct {
	NSimulations     int     `mapstructure:"n_simulations"`
	TimeHorizonDays  int     `mapstructure:"time_horizon_days"`
	TimeSteps        int     `mapstructure:"time_steps"`
	Seed             *uint64 `mapstructure:"seed"`    // unset means seeded from the clock
	Workers          int     `mapstructure:"workers"` // 0 means one per CPU
	ProgressInterval int     `mapstructure:"progress_interval"`
}

// SiteConfig describes the stocked site.
type SiteConfig struct {
	SiteID        int     `mapstructure:"site_id"`
	Species       string  `mapstructure:"species"`
	FishCount     int     `mapstructure:"n_fish"`
	InitialWeight float64 `mapstructure:"initial_weight"`
}

// MarketConfig holds the annualized price process settings.
type MarketConfig struct {
	InitialPrice float64 `mapstructure:"initial_price"`
	Drift        float64 `mapstructure:"drift"`
	Volatility   float64 `mapstructure:"volatility"`
}

// GrowthConfig holds the biomass process and survival settings.
type GrowthConfig struct {
	GrowthRate    float64 `mapstructure:"growth_rate"`
	GrowthVol     float64 `mapstructure:"growth_vol"`
	JumpIntensity float64 `mapstructure:"jump_intensity"`
	JumpMean      float64 `mapstructure:"jump_mean"`
	JumpStd       float64 `mapstructure:"jump_std"`
	BaseSurvival  float64 `mapstructure:"base_survival"`
}

// CostConfig holds the operating cost process settings.
type CostConfig struct {
	InitialCost float64 `mapstructure:"initial_cost"`
	MeanCost    float64 `mapstructure:"mean_cost"`
	Theta       float64 `mapstructure:"theta"`
	Sigma       float64 `mapstructure:"sigma"`
}

// OutputConfig holds export settings.
type OutputConfig struct {
	Path         string `mapstructure:"path"`
	IncludePaths bool   `mapstructure:"include_paths"`
	CSVPath      string `mapstructure:"csv_path"`
	ReportPath   string `mapstructure:"report_path"`
	ColorEnabled bool   `mapstructure:"color_enabled"`
}

// StoreConfig holds run-history settings.
type StoreConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig mirrors logging.LogConfig.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// TelemetryConfig holds the Prometheus textfile settings.
type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	TextfilePath string `mapstructure:"textfile_path"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/aquarisk"
	}
	return filepath.Join(home, ".config", "aquarisk")
}

// FilePath returns the configuration file path inside configDir.
func FilePath(configDir string) string {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}
	return filepath.Join(configDir, FileName+".toml")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. A missing file is
// replaced by the commented template and the defaults are used.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}
	if err := loadConfigFile(configDir, cfg); err != nil {
		return nil, fmt.Errorf("loading %s.toml: %w", FileName, err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir string, target *Config) error {
	v := viper.New()
	v.SetConfigName(FileName)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v, configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
		// Best effort; an unwritable config directory still runs on defaults.
		_, _ = WriteTemplate(configDir, false)
	}

	return v.Unmarshal(target)
}

func setDefaults(v *viper.Viper, configDir string) {
	params := models.DefaultParameters()
	logCfg := logging.DefaultLogConfig()

	v.SetDefault("simulation.n_simulations", 5000)
	v.SetDefault("simulation.time_horizon_days", 180)
	v.SetDefault("simulation.time_steps", 60)
	v.SetDefault("simulation.workers", 0)
	v.SetDefault("simulation.progress_interval", 1000)

	v.SetDefault("site.site_id", params.Site.SiteID)
	v.SetDefault("site.species", params.Site.Species)
	v.SetDefault("site.n_fish", params.Site.FishCount)
	v.SetDefault("site.initial_weight", params.Site.InitialWeight)

	v.SetDefault("market.initial_price", params.Market.InitialPrice)
	v.SetDefault("market.drift", params.Market.Drift)
	v.SetDefault("market.volatility", params.Market.Volatility)

	v.SetDefault("growth.growth_rate", params.Growth.GrowthRate)
	v.SetDefault("growth.growth_vol", params.Growth.GrowthVol)
	v.SetDefault("growth.jump_intensity", params.Growth.JumpIntensity)
	v.SetDefault("growth.jump_mean", params.Growth.JumpMean)
	v.SetDefault("growth.jump_std", params.Growth.JumpStd)
	v.SetDefault("growth.base_survival", params.Growth.BaseSurvival)

	v.SetDefault("cost.initial_cost", params.Cost.InitialCost)
	v.SetDefault("cost.mean_cost", params.Cost.MeanCost)
	v.SetDefault("cost.theta", params.Cost.Theta)
	v.SetDefault("cost.sigma", params.Cost.Sigma)

	v.SetDefault("output.path", "monte_carlo_results.json")
	v.SetDefault("output.include_paths", false)
	v.SetDefault("output.color_enabled", true)

	v.SetDefault("store.enabled", false)
	v.SetDefault("store.path", filepath.Join(configDir, "runs.db"))

	v.SetDefault("logging.level", logCfg.Level)
	v.SetDefault("logging.console", logCfg.Console)
	v.SetDefault("logging.file", logCfg.File)
	v.SetDefault("logging.file_path", logCfg.FilePath)
	v.SetDefault("logging.max_size", logCfg.MaxSize)
	v.SetDefault("logging.max_backups", logCfg.MaxBackups)
	v.SetDefault("logging.max_age", logCfg.MaxAge)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.textfile_path", filepath.Join(configDir, "aquarisk.prom"))
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("AQUARISK_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return apperrors.NewConfigError("AQUARISK_SEED", v, "must be an unsigned integer")
		}
		cfg.Simulation.Seed = &seed
	}
	if v := os.Getenv("AQUARISK_SIMULATIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return apperrors.NewConfigError("AQUARISK_SIMULATIONS", v, "must be an integer")
		}
		cfg.Simulation.NSimulations = n
	}
	if v := os.Getenv("AQUARISK_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return apperrors.NewConfigError("AQUARISK_WORKERS", v, "must be an integer")
		}
		cfg.Simulation.Workers = n
	}
	if v := os.Getenv("AQUARISK_OUTPUT"); v != "" {
		cfg.Output.Path = v
	}
	if v := os.Getenv("AQUARISK_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.RunConfig().Validate(); err != nil {
		return err
	}
	if err := c.Parameters().Validate(); err != nil {
		return err
	}
	if c.Simulation.Workers < 0 {
		return apperrors.NewConfigError("workers", c.Simulation.Workers, "must be non-negative")
	}
	if c.Simulation.ProgressInterval < 0 {
		return apperrors.NewConfigError("progress_interval", c.Simulation.ProgressInterval, "must be non-negative")
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return apperrors.NewConfigError("logging.level", c.Logging.Level, "must be debug, info, warn or error")
	}
	return nil
}

// RunConfig returns the run-level simulation settings.
func (c *Config) RunConfig() models.SimulationConfig {
	return models.SimulationConfig{
		NSimulations:    c.Simulation.NSimulations,
		TimeHorizonDays: c.Simulation.TimeHorizonDays,
		TimeSteps:       c.Simulation.TimeSteps,
		Seed:            c.Simulation.Seed,
	}
}

// Parameters returns the model parameter groups.
func (c *Config) Parameters() models.Parameters {
	return models.Parameters{
		Site: models.SiteParameters{
			SiteID:        c.Site.SiteID,
			Species:       c.Site.Species,
			FishCount:     c.Site.FishCount,
			InitialWeight: c.Site.InitialWeight,
		},
		Market: models.MarketParameters{
			InitialPrice: c.Market.InitialPrice,
			Drift:        c.Market.Drift,
			Volatility:   c.Market.Volatility,
		},
		Growth: models.GrowthParameters{
			GrowthRate:    c.Growth.GrowthRate,
			GrowthVol:     c.Growth.GrowthVol,
			JumpIntensity: c.Growth.JumpIntensity,
			JumpMean:      c.Growth.JumpMean,
			JumpStd:       c.Growth.JumpStd,
			BaseSurvival:  c.Growth.BaseSurvival,
		},
		Cost: models.CostParameters{
			InitialCost: c.Cost.InitialCost,
			MeanCost:    c.Cost.MeanCost,
			Theta:       c.Cost.Theta,
			Sigma:       c.Cost.Sigma,
		},
	}
}

// LogConfig returns the logging settings.
func (c *Config) LogConfig() logging.LogConfig {
	return logging.LogConfig{
		Level:      c.Logging.Level,
		Console:    c.Logging.Console,
		File:       c.Logging.File,
		FilePath:   c.Logging.FilePath,
		MaxSize:    c.Logging.MaxSize,
		MaxBackups: c.Logging.MaxBackups,
		MaxAge:     c.Logging.MaxAge,
	}
}
