// Package models provides domain models for the aquaculture risk engine.
package models

import (
	"math"

	apperrors "aquaculture-risk/internal/errors"
)

// SimulationType identifies documents produced by this engine.
const SimulationType = "monte_carlo_aquaculture"

// MinSurvivalRate is the floor applied to the realized survival rate.
const MinSurvivalRate = 0.5

// SimulationConfig holds the run-level settings. It is immutable for a run.
type SimulationConfig struct {
	NSimulations    int     `json:"n_simulations"`
	TimeHorizonDays int     `json:"time_horizon_days"`
	TimeSteps       int     `json:"time_steps"`
	Seed            *uint64 `json:"seed,omitempty"`
}

// DT returns the step length in days.
func (c SimulationConfig) DT() float64 {
	if c.TimeSteps <= 0 {
		return 0
	}
	return float64(c.TimeHorizonDays) / float64(c.TimeSteps)
}

// Validate rejects empty or degenerate runs before any trial is started.
func (c SimulationConfig) Validate() error {
	if c.NSimulations <= 0 {
		return apperrors.NewConfigError("n_simulations", c.NSimulations, "must be positive")
	}
	if c.TimeSteps <= 0 {
		return apperrors.NewConfigError("time_steps", c.TimeSteps, "must be positive")
	}
	if c.TimeHorizonDays <= 0 {
		return apperrors.NewConfigError("time_horizon_days", c.TimeHorizonDays, "must be positive")
	}
	if dt := c.DT(); !(dt > 0) || math.IsInf(dt, 0) {
		return apperrors.NewConfigError("dt", dt, "must be positive")
	}
	return nil
}

// SiteParameters describes the stocked site.
type SiteParameters struct {
	SiteID        int     `json:"site_id"`
	Species       string  `json:"species"`
	FishCount     int     `json:"n_fish"`
	InitialWeight float64 `json:"initial_weight"` // grams
}

// Validate checks the site parameters.
func (p SiteParameters) Validate() error {
	if p.SiteID < 0 {
		return apperrors.NewParameterError("site", "site_id", p.SiteID, "must be non-negative")
	}
	if p.Species == "" {
		return apperrors.NewParameterError("site", "species", p.Species, "is required")
	}
	if p.FishCount <= 0 {
		return apperrors.NewParameterError("site", "n_fish", p.FishCount, "must be positive")
	}
	if err := nonNegative("site", "initial_weight", p.InitialWeight); err != nil {
		return err
	}
	return nil
}

// MarketParameters drive the price path. Drift and volatility are annualized.
type MarketParameters struct {
	InitialPrice float64 `json:"initial_price"`
	Drift        float64 `json:"drift"`
	Volatility   float64 `json:"volatility"`
}

// Validate checks the market parameters.
func (p MarketParameters) Validate() error {
	if !isFinite(p.InitialPrice) || p.InitialPrice <= 0 {
		return apperrors.NewParameterError("market", "initial_price", p.InitialPrice, "must be positive")
	}
	if !isFinite(p.Drift) {
		return apperrors.NewParameterError("market", "drift", p.Drift, "must be finite")
	}
	return nonNegative("market", "volatility", p.Volatility)
}

// GrowthParameters drive the biomass jump-diffusion and the survival rule.
type GrowthParameters struct {
	GrowthRate    float64 `json:"growth_rate"`    // per day
	GrowthVol     float64 `json:"growth_vol"`     // per sqrt(day)
	JumpIntensity float64 `json:"jump_intensity"` // events per day
	JumpMean      float64 `json:"jump_mean"`      // fractional biomass shock
	JumpStd       float64 `json:"jump_std"`
	BaseSurvival  float64 `json:"base_survival"`
}

// Validate checks the growth parameters.
func (p GrowthParameters) Validate() error {
	if !isFinite(p.GrowthRate) {
		return apperrors.NewParameterError("growth", "growth_rate", p.GrowthRate, "must be finite")
	}
	if err := nonNegative("growth", "growth_vol", p.GrowthVol); err != nil {
		return err
	}
	if err := nonNegative("growth", "jump_intensity", p.JumpIntensity); err != nil {
		return err
	}
	if !isFinite(p.JumpMean) {
		return apperrors.NewParameterError("growth", "jump_mean", p.JumpMean, "must be finite")
	}
	if err := nonNegative("growth", "jump_std", p.JumpStd); err != nil {
		return err
	}
	// The survival floor would otherwise exceed the base rate.
	if !isFinite(p.BaseSurvival) || p.BaseSurvival < MinSurvivalRate || p.BaseSurvival > 1 {
		return apperrors.NewParameterError("growth", "base_survival", p.BaseSurvival, "must be within [0.5, 1]")
	}
	return nil
}

// CostParameters drive the mean-reverting daily operating cost.
type CostParameters struct {
	InitialCost float64 `json:"initial_cost"`
	MeanCost    float64 `json:"mean_cost"`
	Theta       float64 `json:"theta"`
	Sigma       float64 `json:"sigma"`
}

// Validate checks the cost parameters.
func (p CostParameters) Validate() error {
	if err := nonNegative("cost", "initial_cost", p.InitialCost); err != nil {
		return err
	}
	if err := nonNegative("cost", "mean_cost", p.MeanCost); err != nil {
		return err
	}
	if err := nonNegative("cost", "theta", p.Theta); err != nil {
		return err
	}
	return nonNegative("cost", "sigma", p.Sigma)
}

// Parameters bundles the four parameter groups of a run.
type Parameters struct {
	Site   SiteParameters   `json:"site"`
	Market MarketParameters `json:"market"`
	Growth GrowthParameters `json:"growth"`
	Cost   CostParameters   `json:"cost"`
}

// Validate checks every group and returns the first offending field.
func (p Parameters) Validate() error {
	if err := p.Site.Validate(); err != nil {
		return err
	}
	if err := p.Market.Validate(); err != nil {
		return err
	}
	if err := p.Growth.Validate(); err != nil {
		return err
	}
	return p.Cost.Validate()
}

// DefaultParameters returns the reference salmon site used throughout the
// documentation and tests.
func DefaultParameters() Parameters {
	return Parameters{
		Site: SiteParameters{
			SiteID:        1,
			Species:       "Salmon",
			FishCount:     10000,
			InitialWeight: 50.0,
		},
		Market: MarketParameters{
			InitialPrice: 15.50,
			Drift:        0.05,
			Volatility:   0.25,
		},
		Growth: GrowthParameters{
			GrowthRate:    0.015,
			GrowthVol:     0.05,
			JumpIntensity: 0.01,
			JumpMean:      -0.10,
			JumpStd:       0.05,
			BaseSurvival:  0.92,
		},
		Cost: CostParameters{
			InitialCost: 500.0,
			MeanCost:    480.0,
			Theta:       0.1,
			Sigma:       50.0,
		},
	}
}

func nonNegative(group, field string, v float64) error {
	if !isFinite(v) || v < 0 {
		return apperrors.NewParameterError(group, field, v, "must be a non-negative number")
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
