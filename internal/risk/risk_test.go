package risk

import (
	"math"
	"sort"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "aquaculture-risk/internal/errors"
	"aquaculture-risk/internal/models"
)

func scenariosFromProfits(profits []float64, events int) []models.Scenario {
	out := make([]models.Scenario, len(profits))
	for i, p := range profits {
		out[i] = models.Scenario{
			SimulationID:     i,
			Profit:           p,
			ROI:              p / 1000,
			NMortalityEvents: events,
			SurvivalRate:     0.92,
		}
	}
	return out
}

func TestPercentile_LinearInterpolation(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5}

	assert.Equal(t, 1.0, Percentile(sorted, 0))
	assert.InDelta(t, 1.4, Percentile(sorted, 10), 1e-12)
	assert.Equal(t, 2.0, Percentile(sorted, 25))
	assert.Equal(t, 3.0, Percentile(sorted, 50))
	assert.InDelta(t, 4.96, Percentile(sorted, 99), 1e-12)
	assert.Equal(t, 5.0, Percentile(sorted, 100))
	assert.Equal(t, 7.0, Percentile([]float64{7}, 42))
	assert.Equal(t, 0.0, Percentile(nil, 50))
}

func TestSummarize_Reference(t *testing.T) {
	scenarios := scenariosFromProfits([]float64{1500, -500, 2500, 0, 500}, 3)

	s, err := Summarize(scenarios)
	require.NoError(t, err)

	assert.Equal(t, 5, s.NSimulations)
	assert.InDelta(t, 800, s.MeanProfit, 1e-9)
	assert.Equal(t, 500.0, s.MedianProfit)
	assert.InDelta(t, math.Sqrt(1160000), s.StdProfit, 1e-6)
	assert.Equal(t, -500.0, s.MinProfit)
	assert.Equal(t, 2500.0, s.MaxProfit)

	assert.InDelta(t, -400, s.VaR95, 1e-9)
	assert.InDelta(t, -480, s.VaR99, 1e-9)
	assert.Equal(t, -500.0, s.CVaR95)
	assert.Equal(t, -500.0, s.CVaR99)

	assert.InDelta(t, 0.2, s.ProbLoss, 1e-12)
	assert.InDelta(t, 0.6, s.ProbProfit, 1e-12)
	assert.InDelta(t, 0.6, s.ProbHighReturn, 1e-12)

	assert.InDelta(t, 0.8, s.MeanROI, 1e-12)
	assert.InDelta(t, 0.8/(math.Sqrt(1160000)/1000), s.SharpeRatio, 1e-9)

	assert.InDelta(t, -300, s.ProfitP10, 1e-9)
	assert.Equal(t, 0.0, s.ProfitP25)
	assert.Equal(t, 1500.0, s.ProfitP75)
	assert.InDelta(t, 2100, s.ProfitP90, 1e-9)
	assert.InDelta(t, 2300, s.ProfitPercentiles.P95, 1e-9)
	assert.InDelta(t, 2460, s.ProfitPercentiles.P99, 1e-9)
	assert.InDelta(t, 0.5, s.ROIPercentiles.P50, 1e-12)

	assert.Equal(t, 3.0, s.MeanMortalityEvents)
	assert.InDelta(t, 0.92, s.MeanSurvivalRate, 1e-12)
}

func TestSummarize_Empty(t *testing.T) {
	_, err := Summarize(nil)
	assert.ErrorIs(t, err, apperrors.ErrEmptyScenarios)

	_, err = Report([]models.Scenario{})
	assert.ErrorIs(t, err, apperrors.ErrEmptyScenarios)
}

func TestSummarize_SharpeDegeneracy(t *testing.T) {
	scenarios := make([]models.Scenario, 4)
	for i := range scenarios {
		scenarios[i] = models.Scenario{Profit: 250, ROI: 0.25}
	}

	s, err := Summarize(scenarios)
	require.NoError(t, err)

	assert.Equal(t, 0.0, s.StdROI)
	assert.Equal(t, 0.0, s.SharpeRatio)
	assert.Equal(t, 0.25, s.MeanROI)
}

func TestSummarize_ConstantNonRepresentableROI(t *testing.T) {
	scenarios := make([]models.Scenario, 3)
	for i := range scenarios {
		scenarios[i] = models.Scenario{Profit: 100, ROI: 0.1}
	}

	s, err := Summarize(scenarios)
	require.NoError(t, err)

	assert.Equal(t, 0.0, s.SharpeRatio)
	assert.Equal(t, 0.1, s.MeanROI)
}

func TestBuildReport_BreakdownAndRecommendations(t *testing.T) {
	scenarios := scenariosFromProfits([]float64{1500, -500, 2500, 0, 500}, 3)

	report, err := Report(scenarios)
	require.NoError(t, err)

	assert.Equal(t, models.ScenarioBreakdown{Loss: 1, Breakeven: 2, Profit: 2, HighProfit: 1}, report.Breakdown)
	assert.Equal(t, len(scenarios), report.Breakdown.Total())
	assert.Equal(t, report.Summary.ProfitPercentiles, report.ProfitDistribution.Percentiles)

	assert.Equal(t, []string{
		"Low risk-adjusted returns (Sharpe: 0.74). Optimize operational efficiency.",
		"Strong expected returns (ROI: 80.0%). Continue current strategy.",
		"High mortality event frequency. Improve biosecurity and health monitoring.",
	}, report.Recommendations)
}

func TestRecommendations_Thresholds(t *testing.T) {
	tests := []struct {
		name    string
		summary models.SummaryStatistics
		want    int
		prefix  string
	}{
		{"quiet", models.SummaryStatistics{ProbLoss: 0.2, SharpeRatio: 1.0, MeanROI: 0.25, MeanMortalityEvents: 2}, 0, ""},
		{"loss", models.SummaryStatistics{ProbLoss: 0.234, SharpeRatio: 2}, 1, "High risk: 23.4% probability of loss."},
		{"sharpe", models.SummaryStatistics{SharpeRatio: 0.5}, 1, "Low risk-adjusted returns (Sharpe: 0.50)."},
		{"roi", models.SummaryStatistics{SharpeRatio: 3, MeanROI: 0.4}, 1, "Strong expected returns (ROI: 40.0%)."},
		{"mortality", models.SummaryStatistics{SharpeRatio: 3, MeanMortalityEvents: 2.5}, 1, "High mortality event frequency."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs := Recommendations(tt.summary)
			require.NotNil(t, recs)
			require.Len(t, recs, tt.want)
			if tt.want > 0 {
				assert.Contains(t, recs[0], tt.prefix)
			}
		})
	}
}

// Property: for any profit sample the percentile ladder is monotone, the tail
// means never exceed their VaR, and the buckets partition the run.
func TestProperty_SummaryInvariants(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("ladder monotone, CVaR <= VaR, buckets complete", prop.ForAll(
		func(profits []float64) bool {
			if len(profits) == 0 {
				return true
			}
			scenarios := scenariosFromProfits(profits, 0)
			report, err := Report(scenarios)
			if err != nil {
				return false
			}
			s := report.Summary

			ladder := s.ProfitPercentiles.Ladder()
			if !sort.Float64sAreSorted(ladder) {
				t.Logf("ladder not sorted: %v", ladder)
				return false
			}
			if s.CVaR95 > s.VaR95 || s.CVaR99 > s.VaR99 {
				t.Logf("tail mean above VaR: %+v", s)
				return false
			}
			if report.Breakdown.Total() != len(scenarios) {
				return false
			}
			if s.ProbLoss+s.ProbProfit > 1 {
				return false
			}
			return s.MinProfit <= s.VaR99 && s.MaxProfit >= ladder[len(ladder)-1]
		},
		gen.SliceOf(gen.Float64Range(-1e6, 1e6)),
	))

	properties.TestingRun(t)
}
