package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Aquaculture Monte Carlo Risk Engine Configuration

[simulation]
# Number of independent trials per run
n_simulations = 5000
# Production cycle length in days
time_horizon_days = 180
# Number of steps the horizon is divided into
time_steps = 60
# Run seed; leave unset to seed from the clock (the seed used is recorded)
# seed = 42
# Worker goroutines; 0 uses one per CPU
workers = 0
# Completed trials between progress log lines; 0 disables
progress_interval = 1000

[site]
site_id = 1
species = "Salmon"
# Stocked fish count
n_fish = 10000
# Initial weight per fish in grams
initial_weight = 50.0

[market]
# Price per kg at stocking
initial_price = 15.50
# Annual drift
drift = 0.05
# Annual volatility
volatility = 0.25

[growth]
# Daily growth rate
growth_rate = 0.015
# Growth volatility
growth_vol = 0.05
# Mortality events per day
jump_intensity = 0.01
# Biomass shock per event (fraction)
jump_mean = -0.10
jump_std = 0.05
# Survival before mortality events, within [0.5, 1]
base_survival = 0.92

[cost]
# Daily operating cost at stocking
initial_cost = 500.0
# Long-run mean daily cost
mean_cost = 480.0
# Mean reversion speed
theta = 0.1
# Cost volatility
sigma = 50.0

[output]
# JSON result document
path = "monte_carlo_results.json"
# Embed price, weight and cost paths (large)
include_paths = false
# Optional flat per-scenario CSV
# csv_path = "scenarios.csv"
# Optional risk report JSON
# report_path = "risk_report.json"
color_enabled = true

[store]
# Keep a local history of runs
enabled = false
# path = "~/.config/aquarisk/runs.db"

[logging]
# debug, info, warn, error
level = "info"
console = true
file = false
max_size = 100
max_backups = 7
max_age = 30

[telemetry]
# Write Prometheus metrics for the node exporter textfile collector
enabled = false
# textfile_path = "/var/lib/node_exporter/textfile/aquarisk.prom"
`

// WriteTemplate writes the commented default configuration into configDir.
// An existing file is kept unless force is set.
func WriteTemplate(configDir string, force bool) (string, error) {
	path := FilePath(configDir)
	if !force {
		if _, err := os.Stat(path); err == nil {
			return path, fmt.Errorf("config file already exists at %s", path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return "", fmt.Errorf("writing config template: %w", err)
	}
	return path, nil
}
