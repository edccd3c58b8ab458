// Package simulation runs Monte Carlo trials of an aquaculture production cycle.
package simulation

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	apperrors "aquaculture-risk/internal/errors"
	"aquaculture-risk/internal/finance"
	"aquaculture-risk/internal/logging"
	"aquaculture-risk/internal/models"
	"aquaculture-risk/internal/stochastic"
)

// DefaultProgressInterval is the number of completed trials between progress reports.
const DefaultProgressInterval = 1000

// ProgressFunc receives the number of completed trials. It may be called
// concurrently from several workers.
type ProgressFunc func(done, total int)

// Observer receives the outcome of every trial.
type Observer interface {
	ObserveTrial(index int, elapsed time.Duration, err error)
}

// Options tune how a run is executed. None of them changes the scenarios produced.
type Options struct {
	Workers          int  // 0 means runtime.NumCPU()
	KeepPaths        bool // retain raw paths on each scenario
	ProgressInterval int  // 0 disables progress reports
	Progress         ProgressFunc
	Observer         Observer
	Clock            func() time.Time
}

// DefaultOptions returns the default execution options.
func DefaultOptions() Options {
	return Options{
		Workers:          runtime.NumCPU(),
		KeepPaths:        true,
		ProgressInterval: DefaultProgressInterval,
	}
}

// Executor runs n_simulations independent trials of one parameter set.
type Executor struct {
	cfg    models.SimulationConfig
	opts   Options
	seed   uint64
	logger zerolog.Logger
}

// NewExecutor validates the run configuration and fixes the effective seed.
// Without a configured seed one is taken from the clock; Seed reports it so
// the run can be replayed.
func NewExecutor(cfg models.SimulationConfig, opts Options, logger zerolog.Logger) (*Executor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	var seed uint64
	if cfg.Seed != nil {
		seed = *cfg.Seed
	} else {
		seed = uint64(opts.Clock().UnixNano())
	}

	e := &Executor{
		cfg:    cfg,
		opts:   opts,
		seed:   seed,
		logger: logging.WithOperation(logger, "simulation"),
	}
	if e.opts.Progress == nil && e.opts.ProgressInterval > 0 {
		e.opts.Progress = func(done, total int) {
			logging.LogProgress(e.logger, done, total)
		}
	}
	return e, nil
}

// Seed returns the effective run seed.
func (e *Executor) Seed() uint64 {
	return e.seed
}

// Workers returns the size of the worker pool.
func (e *Executor) Workers() int {
	return e.opts.Workers
}

// Config returns the run configuration.
func (e *Executor) Config() models.SimulationConfig {
	return e.cfg
}

// Run executes all trials and returns the scenarios ordered by simulation id.
//
// Trials run on a bounded worker pool; each owns one slot of the result. A
// failing trial aborts the run and the lowest failing index is reported. A
// cancelled run returns the context error. Neither returns partial output.
func (e *Executor) Run(ctx context.Context, params models.Parameters) ([]models.Scenario, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	n := e.cfg.NSimulations
	logging.LogRunStarted(e.logger, n, e.cfg.TimeSteps, e.cfg.TimeHorizonDays, e.seed, e.opts.Workers)

	scenarios := make([]models.Scenario, n)
	failures := make([]error, n)
	var done atomic.Int64

	p := pool.New().
		WithMaxGoroutines(e.opts.Workers).
		WithContext(ctx).
		WithCancelOnError()

	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		index := i
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}

			start := time.Now()
			scenario, err := e.RunTrial(index, params)
			if e.opts.Observer != nil {
				e.opts.Observer.ObserveTrial(index, time.Since(start), err)
			}
			if err != nil {
				failures[index] = err
				return err
			}
			scenarios[index] = scenario

			completed := int(done.Add(1))
			if e.opts.Progress != nil && e.opts.ProgressInterval > 0 && completed%e.opts.ProgressInterval == 0 {
				e.opts.Progress(completed, n)
			}
			return nil
		})
	}

	waitErr := p.Wait()

	for _, err := range failures {
		if err != nil {
			e.logger.Error().Err(err).Msg("Simulation aborted")
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(err, "simulation cancelled")
	}
	if waitErr != nil {
		return nil, apperrors.Wrap(waitErr, "simulation failed")
	}

	e.logger.Info().Int("scenarios", n).Msg("Simulation complete")
	return scenarios, nil
}

// RunTrial executes trial index on its own sub-stream. Draw order is fixed:
// price increments, then growth diffusion and jump draws per step, then cost
// increments.
func (e *Executor) RunTrial(index int, params models.Parameters) (models.Scenario, error) {
	stream := stochastic.NewStream(e.seed, index)
	steps := e.cfg.TimeSteps
	dt := e.cfg.DT()

	price := stochastic.SimulatePrice(stream, params.Market, steps, dt)
	growth := stochastic.SimulateGrowth(stream, params.Site.InitialWeight, params.Growth, steps, dt)
	cost := stochastic.SimulateCost(stream, params.Cost, steps, dt)

	if err := checkPrices(price); err != nil {
		return models.Scenario{}, apperrors.NewScenarioError(index, "price_path", err)
	}

	events := growth.JumpCount()
	survival := finance.SurvivalRate(params.Growth.BaseSurvival, events)
	metrics := finance.Calculate(price, growth.Weights, cost, params.Site.FishCount, survival)
	if err := finance.CheckFinite(metrics); err != nil {
		return models.Scenario{}, apperrors.NewScenarioError(index, "metrics", err)
	}

	scenario := models.Scenario{
		SimulationID:     index,
		SiteID:           params.Site.SiteID,
		Species:          params.Site.Species,
		SurvivalRate:     survival,
		NMortalityEvents: events,
		FinalPrice:       metrics.FinalPrice,
		FinalWeightKg:    metrics.FinalWeightKg,
		TotalBiomassKg:   metrics.TotalBiomassKg,
		SurvivingFish:    metrics.SurvivingFish,
		Revenue:          metrics.Revenue,
		TotalCost:        metrics.TotalCost,
		Profit:           metrics.Profit,
		ROI:              metrics.ROI,
		ProfitMargin:     metrics.ProfitMargin,
	}
	if e.opts.KeepPaths {
		scenario.PricePath = price
		scenario.WeightPath = growth.Weights
		scenario.CostPath = cost
	}
	return scenario, nil
}

func checkPrices(path models.PricePath) error {
	for t, v := range path {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return fmt.Errorf("price at step %d is %v", t, v)
		}
	}
	return nil
}

// Metadata describes the run for exports and run history.
func (e *Executor) Metadata(runID string, params models.Parameters) models.RunMetadata {
	return models.RunMetadata{
		SimulationType:  models.SimulationType,
		GeneratedAt:     e.opts.Clock().UTC(),
		NSimulations:    e.cfg.NSimulations,
		TimeHorizonDays: e.cfg.TimeHorizonDays,
		TimeSteps:       e.cfg.TimeSteps,
		RunID:           runID,
		Seed:            e.seed,
		Workers:         e.opts.Workers,
		SiteID:          params.Site.SiteID,
		Species:         params.Site.Species,
	}
}
