package risk

import (
	"fmt"

	"aquaculture-risk/internal/models"
)

// Recommendation thresholds.
const (
	BreakevenBand            = 1000.0
	LossProbabilityThreshold = 0.20
	SharpeThreshold          = 1.0
	StrongROIThreshold       = 0.25
	MortalityEventThreshold  = 2.0
)

// Report summarizes scenarios and builds the risk report in one step.
func Report(scenarios []models.Scenario) (models.RiskReport, error) {
	summary, err := Summarize(scenarios)
	if err != nil {
		return models.RiskReport{}, err
	}
	return BuildReport(scenarios, summary), nil
}

// BuildReport buckets scenarios by profit and derives recommendations from an
// already computed summary of the same scenarios.
func BuildReport(scenarios []models.Scenario, summary models.SummaryStatistics) models.RiskReport {
	return models.RiskReport{
		Summary:            summary,
		ProfitDistribution: models.ProfitDistribution{Percentiles: summary.ProfitPercentiles},
		Breakdown:          Breakdown(scenarios, summary.ProfitPercentiles.P90),
		Recommendations:    Recommendations(summary),
	}
}

// Breakdown counts scenarios into the loss, breakeven and profit buckets, and
// separately counts those with profit above highProfitCutoff.
func Breakdown(scenarios []models.Scenario, highProfitCutoff float64) models.ScenarioBreakdown {
	var b models.ScenarioBreakdown
	for _, s := range scenarios {
		switch {
		case s.Profit < 0:
			b.Loss++
		case s.Profit < BreakevenBand:
			b.Breakeven++
		default:
			b.Profit++
		}
		if s.Profit > highProfitCutoff {
			b.HighProfit++
		}
	}
	return b
}

// Recommendations returns the fixed-threshold guidance for a summary.
func Recommendations(s models.SummaryStatistics) []string {
	recs := make([]string, 0, 4)

	if s.ProbLoss > LossProbabilityThreshold {
		recs = append(recs, fmt.Sprintf(
			"High risk: %.1f%% probability of loss. Consider risk mitigation strategies.", s.ProbLoss*100))
	}
	if s.SharpeRatio < SharpeThreshold {
		recs = append(recs, fmt.Sprintf(
			"Low risk-adjusted returns (Sharpe: %.2f). Optimize operational efficiency.", s.SharpeRatio))
	}
	if s.MeanROI > StrongROIThreshold {
		recs = append(recs, fmt.Sprintf(
			"Strong expected returns (ROI: %.1f%%). Continue current strategy.", s.MeanROI*100))
	}
	if s.MeanMortalityEvents > MortalityEventThreshold {
		recs = append(recs, "High mortality event frequency. Improve biosecurity and health monitoring.")
	}

	return recs
}
