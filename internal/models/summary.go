package models

import "time"

// PercentileLevels are the levels of the reported percentile ladder.
var PercentileLevels = []float64{1, 5, 10, 25, 50, 75, 90, 95, 99}

// Percentiles is a percentile ladder of one distribution.
type Percentiles struct {
	P01 float64 `json:"p01"`
	P05 float64 `json:"p05"`
	P10 float64 `json:"p10"`
	P25 float64 `json:"p25"`
	P50 float64 `json:"p50"`
	P75 float64 `json:"p75"`
	P90 float64 `json:"p90"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

// Ladder returns the percentiles in ascending level order.
func (p Percentiles) Ladder() []float64 {
	return []float64{p.P01, p.P05, p.P10, p.P25, p.P50, p.P75, p.P90, p.P95, p.P99}
}

// SummaryStatistics summarizes the profit and ROI distributions of a run.
type SummaryStatistics struct {
	NSimulations int `json:"n_simulations"`

	MeanProfit   float64 `json:"mean_profit"`
	MedianProfit float64 `json:"median_profit"`
	StdProfit    float64 `json:"std_profit"`
	MinProfit    float64 `json:"min_profit"`
	MaxProfit    float64 `json:"max_profit"`

	MeanROI   float64 `json:"mean_roi"`
	MedianROI float64 `json:"median_roi"`
	StdROI    float64 `json:"std_roi"`
	MinROI    float64 `json:"min_roi"`
	MaxROI    float64 `json:"max_roi"`

	// Risk metrics
	VaR95  float64 `json:"var_95"`
	VaR99  float64 `json:"var_99"`
	CVaR95 float64 `json:"cvar_95"`
	CVaR99 float64 `json:"cvar_99"`

	// Probability metrics
	ProbLoss       float64 `json:"prob_loss"`
	ProbProfit     float64 `json:"prob_profit"`
	ProbHighReturn float64 `json:"prob_high_return"`

	// No risk-free rate adjustment.
	SharpeRatio float64 `json:"sharpe_ratio"`

	ProfitP10 float64 `json:"profit_p10"`
	ProfitP25 float64 `json:"profit_p25"`
	ProfitP75 float64 `json:"profit_p75"`
	ProfitP90 float64 `json:"profit_p90"`

	ProfitPercentiles Percentiles `json:"profit_percentiles"`
	ROIPercentiles    Percentiles `json:"roi_percentiles"`

	MeanMortalityEvents float64 `json:"mean_mortality_events"`
	MeanSurvivalRate    float64 `json:"mean_survival_rate"`
}

// ScenarioBreakdown counts scenarios by profit bucket. Loss, breakeven and
// profit partition the run; high-profit overlaps the profit bucket.
type ScenarioBreakdown struct {
	Loss       int `json:"loss_scenarios"`
	Breakeven  int `json:"breakeven_scenarios"`
	Profit     int `json:"profit_scenarios"`
	HighProfit int `json:"high_profit_scenarios"`
}

// Total returns the size of the loss/breakeven/profit partition.
func (b ScenarioBreakdown) Total() int {
	return b.Loss + b.Breakeven + b.Profit
}

// ProfitDistribution wraps the profit percentile ladder in the report.
type ProfitDistribution struct {
	Percentiles Percentiles `json:"percentiles"`
}

// RiskReport is the reader-facing summary of a run.
type RiskReport struct {
	Summary            SummaryStatistics  `json:"risk_summary"`
	ProfitDistribution ProfitDistribution `json:"profit_distribution"`
	Breakdown          ScenarioBreakdown  `json:"scenario_breakdown"`
	Recommendations    []string           `json:"recommendations"`
}

// RunMetadata describes a finished run in exports and run history.
type RunMetadata struct {
	SimulationType  string    `json:"simulation_type"`
	GeneratedAt     time.Time `json:"generated_at"`
	NSimulations    int       `json:"n_simulations"`
	TimeHorizonDays int       `json:"time_horizon_days"`
	TimeSteps       int       `json:"time_steps"`
	RunID           string    `json:"run_id,omitempty"`
	Seed            uint64    `json:"seed,string"`
	Workers         int       `json:"workers,omitempty"`
	SiteID          int       `json:"site_id"`
	Species         string    `json:"species,omitempty"`
}

// RunRecord is a run as kept in the local run history.
type RunRecord struct {
	Metadata   RunMetadata       `json:"metadata"`
	Parameters Parameters        `json:"parameters"`
	Summary    SummaryStatistics `json:"summary_statistics"`
	Duration   time.Duration     `json:"duration"`
}
