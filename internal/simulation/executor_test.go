package simulation

import (
	"context"
	"encoding/json"
	"flag"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "aquaculture-risk/internal/errors"
	"aquaculture-risk/internal/models"
	"aquaculture-risk/internal/risk"
)

var update = flag.Bool("update", false, "rewrite golden files under testdata")

func seedPtr(v uint64) *uint64 { return &v }

func testConfig(n int) models.SimulationConfig {
	return models.SimulationConfig{
		NSimulations:    n,
		TimeHorizonDays: 180,
		TimeSteps:       60,
		Seed:            seedPtr(42),
	}
}

func newTestExecutor(t *testing.T, cfg models.SimulationConfig, opts Options) *Executor {
	t.Helper()
	e, err := NewExecutor(cfg, opts, zerolog.Nop())
	require.NoError(t, err)
	return e
}

type countingObserver struct {
	mu       sync.Mutex
	trials   int
	failures int
}

func (o *countingObserver) ObserveTrial(_ int, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.trials++
	if err != nil {
		o.failures++
	}
}

func TestNewExecutor_RejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name  string
		cfg   models.SimulationConfig
		field string
	}{
		{"no simulations", models.SimulationConfig{NSimulations: 0, TimeHorizonDays: 180, TimeSteps: 60}, "n_simulations"},
		{"no steps", models.SimulationConfig{NSimulations: 10, TimeHorizonDays: 180, TimeSteps: 0}, "time_steps"},
		{"no horizon", models.SimulationConfig{NSimulations: 10, TimeHorizonDays: 0, TimeSteps: 60}, "time_horizon_days"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewExecutor(tt.cfg, DefaultOptions(), zerolog.Nop())
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrConfigInvalid)

			var cfgErr *apperrors.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestRun_RejectsInvalidParameters(t *testing.T) {
	params := models.DefaultParameters()
	params.Market.InitialPrice = 0

	e := newTestExecutor(t, testConfig(10), DefaultOptions())
	_, err := e.Run(context.Background(), params)

	var paramErr *apperrors.ParameterError
	require.ErrorAs(t, err, &paramErr)
	assert.Equal(t, "market", paramErr.Group)
	assert.Equal(t, "initial_price", paramErr.Field)
}

func TestRun_ShapeAndOrder(t *testing.T) {
	e := newTestExecutor(t, testConfig(50), Options{Workers: 4, KeepPaths: true})

	scenarios, err := e.Run(context.Background(), models.DefaultParameters())
	require.NoError(t, err)
	require.Len(t, scenarios, 50)

	for i, s := range scenarios {
		assert.Equal(t, i, s.SimulationID)
		assert.Equal(t, 1, s.SiteID)
		assert.Equal(t, "Salmon", s.Species)
		require.Len(t, s.PricePath, 61)
		require.Len(t, s.WeightPath, 61)
		require.Len(t, s.CostPath, 61)
		assert.Equal(t, 15.5, s.PricePath[0])
		assert.Equal(t, 50.0, s.WeightPath[0])
		assert.Equal(t, 500.0, s.CostPath[0])
		assert.GreaterOrEqual(t, s.SurvivalRate, 0.5)
		assert.LessOrEqual(t, s.SurvivalRate, 0.92)
		assert.InDelta(t, s.Revenue-s.TotalCost, s.Profit, 1e-9*math.Max(1, math.Abs(s.Revenue)))
	}
}

func TestRun_DropsPathsWhenNotKept(t *testing.T) {
	e := newTestExecutor(t, testConfig(5), Options{Workers: 2})

	scenarios, err := e.Run(context.Background(), models.DefaultParameters())
	require.NoError(t, err)
	for _, s := range scenarios {
		assert.False(t, s.HasPaths())
	}
}

func TestRun_DeterministicAcrossWorkerCounts(t *testing.T) {
	params := models.DefaultParameters()

	serial := newTestExecutor(t, testConfig(200), Options{Workers: 1})
	parallel := newTestExecutor(t, testConfig(200), Options{Workers: 8})

	a, err := serial.Run(context.Background(), params)
	require.NoError(t, err)
	b, err := parallel.Run(context.Background(), params)
	require.NoError(t, err)
	c, err := parallel.Run(context.Background(), params)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, b, c)
}

func TestRun_TrialDependsOnlyOnSeedAndIndex(t *testing.T) {
	params := models.DefaultParameters()

	small := newTestExecutor(t, testConfig(10), Options{Workers: 3})
	large := newTestExecutor(t, testConfig(100), Options{Workers: 5})

	a, err := small.Run(context.Background(), params)
	require.NoError(t, err)
	b, err := large.Run(context.Background(), params)
	require.NoError(t, err)

	assert.Equal(t, a, b[:10])
}

func TestRun_DifferentSeedsDiffer(t *testing.T) {
	params := models.DefaultParameters()
	cfg := testConfig(5)
	other := testConfig(5)
	other.Seed = seedPtr(43)

	a, err := newTestExecutor(t, cfg, Options{}).Run(context.Background(), params)
	require.NoError(t, err)
	b, err := newTestExecutor(t, other, Options{}).Run(context.Background(), params)
	require.NoError(t, err)

	assert.NotEqual(t, a[0].Profit, b[0].Profit)
}

func TestRun_SeedFromClock(t *testing.T) {
	cfg := testConfig(3)
	cfg.Seed = nil
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	e := newTestExecutor(t, cfg, Options{Clock: func() time.Time { return fixed }})
	assert.Equal(t, uint64(fixed.UnixNano()), e.Seed())

	meta := e.Metadata("run-1", models.DefaultParameters())
	assert.Equal(t, e.Seed(), meta.Seed)
	assert.Equal(t, fixed, meta.GeneratedAt)
	assert.Equal(t, models.SimulationType, meta.SimulationType)
	assert.Equal(t, 3, meta.NSimulations)
	assert.Equal(t, "Salmon", meta.Species)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := newTestExecutor(t, testConfig(1000), Options{Workers: 2})
	scenarios, err := e.Run(ctx, models.DefaultParameters())

	assert.Nil(t, scenarios)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_NumericalFailureAbortsRun(t *testing.T) {
	params := models.DefaultParameters()
	// The Ito correction overflows, so every price collapses to zero.
	params.Market.Volatility = 1e308

	obs := &countingObserver{}
	e := newTestExecutor(t, testConfig(20), Options{Workers: 1, Observer: obs})
	scenarios, err := e.Run(context.Background(), params)

	assert.Nil(t, scenarios)
	assert.ErrorIs(t, err, apperrors.ErrNumerical)

	var scenarioErr *apperrors.ScenarioError
	require.ErrorAs(t, err, &scenarioErr)
	assert.Equal(t, 0, scenarioErr.Index)
	assert.Equal(t, "price_path", scenarioErr.Stage)

	assert.GreaterOrEqual(t, obs.failures, 1)
}

func TestRun_ProgressAndObserver(t *testing.T) {
	var calls atomic.Int32
	var last atomic.Int32
	obs := &countingObserver{}

	e := newTestExecutor(t, testConfig(25), Options{
		Workers:          4,
		ProgressInterval: 10,
		Progress: func(done, total int) {
			calls.Add(1)
			last.Store(int32(done))
			assert.Equal(t, 25, total)
		},
		Observer: obs,
	})

	_, err := e.Run(context.Background(), models.DefaultParameters())
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 25, obs.trials)
	assert.Equal(t, 0, obs.failures)
}

// Property: the survival rate of every trial stays within [0.5, base_survival]
// and matches its mortality event count.
func TestProperty_TrialSurvival(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	e := newTestExecutor(t, testConfig(1), Options{})

	properties.Property("survival clamped and consistent", prop.ForAll(
		func(index int, base, intensity float64) bool {
			params := models.DefaultParameters()
			params.Growth.BaseSurvival = base
			params.Growth.JumpIntensity = intensity

			s, err := e.RunTrial(index, params)
			if err != nil {
				t.Logf("trial %d failed: %v", index, err)
				return false
			}
			want := math.Max(base-0.05*float64(s.NMortalityEvents), 0.5)
			return s.SurvivalRate == want && s.SurvivalRate >= 0.5 && s.SurvivalRate <= base
		},
		gen.IntRange(0, 100000),
		gen.Float64Range(0.5, 1),
		gen.Float64Range(0, 0.5),
	))

	properties.TestingRun(t)
}

// goldenRun records the reference numbers of the seed-42 salmon run.
type goldenRun struct {
	MeanProfit float64 `json:"mean_profit"`
	ProbLoss   float64 `json:"prob_loss"`
	VaR95      float64 `json:"var_95"`
}

func TestRun_ReferenceSalmonScenario(t *testing.T) {
	e := newTestExecutor(t, testConfig(1000), Options{Workers: 4})

	scenarios, err := e.Run(context.Background(), models.DefaultParameters())
	require.NoError(t, err)
	require.Len(t, scenarios, 1000)

	summary, err := risk.Summarize(scenarios)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, summary.ProbLoss, 0.0)
	assert.LessOrEqual(t, summary.ProbLoss, 1.0)
	assert.GreaterOrEqual(t, summary.ProbProfit, 0.0)
	assert.LessOrEqual(t, summary.ProbLoss+summary.ProbProfit, 1.0)

	// Expected profit is roughly 77k revenue against 29k of cost.
	assert.Greater(t, summary.MeanProfit, 30000.0)
	assert.Less(t, summary.MeanProfit, 65000.0)

	got := goldenRun{MeanProfit: summary.MeanProfit, ProbLoss: summary.ProbLoss, VaR95: summary.VaR95}
	path := filepath.Join("testdata", "salmon_seed42.json")

	if *update {
		require.NoError(t, os.MkdirAll("testdata", 0755))
		data, err := json.MarshalIndent(got, "", "  ")
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, append(data, '\n'), 0644))
		return
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err, "golden file %s is required; run with -update to record it", path)

	var want goldenRun
	require.NoError(t, json.Unmarshal(data, &want))
	assert.InDelta(t, want.MeanProfit, got.MeanProfit, 1e-6)
	assert.InDelta(t, want.ProbLoss, got.ProbLoss, 1e-12)
	assert.InDelta(t, want.VaR95, got.VaR95, 1e-6)
}
