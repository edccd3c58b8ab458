// Package risk reduces a finished scenario set into summary statistics and a
// risk report.
package risk

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	apperrors "aquaculture-risk/internal/errors"
	"aquaculture-risk/internal/models"
)

// HighReturnROI is the ROI above which a scenario counts as a high return.
const HighReturnROI = 0.30

// Summarize computes the summary statistics of a completed run. Standard
// deviations are population deviations and percentiles interpolate linearly
// between order statistics.
func Summarize(scenarios []models.Scenario) (models.SummaryStatistics, error) {
	n := len(scenarios)
	if n == 0 {
		return models.SummaryStatistics{}, apperrors.ErrEmptyScenarios
	}

	profits := make([]float64, n)
	returns := make([]float64, n)
	events := make([]float64, n)
	survival := make([]float64, n)
	var losses, gains, highReturns int
	for i, s := range scenarios {
		profits[i] = s.Profit
		returns[i] = s.ROI
		events[i] = float64(s.NMortalityEvents)
		survival[i] = s.SurvivalRate
		if s.Profit < 0 {
			losses++
		}
		if s.Profit > 0 {
			gains++
		}
		if s.ROI > HighReturnROI {
			highReturns++
		}
	}

	meanProfit, stdProfit := meanStd(profits)
	meanROI, stdROI := meanStd(returns)

	sortedProfits := sortedCopy(profits)
	sortedReturns := sortedCopy(returns)
	profitLadder := Ladder(sortedProfits)
	roiLadder := Ladder(sortedReturns)

	var sharpe float64
	if stdROI > 0 {
		sharpe = meanROI / stdROI
	}

	total := float64(n)
	return models.SummaryStatistics{
		NSimulations: n,

		MeanProfit:   meanProfit,
		MedianProfit: profitLadder.P50,
		StdProfit:    stdProfit,
		MinProfit:    sortedProfits[0],
		MaxProfit:    sortedProfits[n-1],

		MeanROI:   meanROI,
		MedianROI: roiLadder.P50,
		StdROI:    stdROI,
		MinROI:    sortedReturns[0],
		MaxROI:    sortedReturns[n-1],

		VaR95:  profitLadder.P05,
		VaR99:  profitLadder.P01,
		CVaR95: TailMean(sortedProfits, profitLadder.P05),
		CVaR99: TailMean(sortedProfits, profitLadder.P01),

		ProbLoss:       float64(losses) / total,
		ProbProfit:     float64(gains) / total,
		ProbHighReturn: float64(highReturns) / total,

		SharpeRatio: sharpe,

		ProfitP10: profitLadder.P10,
		ProfitP25: profitLadder.P25,
		ProfitP75: profitLadder.P75,
		ProfitP90: profitLadder.P90,

		ProfitPercentiles: profitLadder,
		ROIPercentiles:    roiLadder,

		MeanMortalityEvents: stat.Mean(events, nil),
		MeanSurvivalRate:    stat.Mean(survival, nil),
	}, nil
}

// Percentile returns the p-th percentile (0-100) of sorted values using
// linear interpolation between the closest ranks. sorted must be ascending.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	idx := p / 100 * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// Ladder computes the reported percentile ladder of sorted values.
func Ladder(sorted []float64) models.Percentiles {
	return models.Percentiles{
		P01: Percentile(sorted, 1),
		P05: Percentile(sorted, 5),
		P10: Percentile(sorted, 10),
		P25: Percentile(sorted, 25),
		P50: Percentile(sorted, 50),
		P75: Percentile(sorted, 75),
		P90: Percentile(sorted, 90),
		P95: Percentile(sorted, 95),
		P99: Percentile(sorted, 99),
	}
}

// TailMean is the mean of all sorted values at or below threshold. It returns
// the threshold itself when no value qualifies.
func TailMean(sorted []float64, threshold float64) float64 {
	k := sort.Search(len(sorted), func(i int) bool { return sorted[i] > threshold })
	if k == 0 {
		return threshold
	}
	return stat.Mean(sorted[:k], nil)
}

// meanStd returns the mean and population standard deviation. A constant
// sample has a deviation of exactly zero.
func meanStd(x []float64) (float64, float64) {
	if floats.Min(x) == floats.Max(x) {
		return x[0], 0
	}
	return stat.PopMeanStdDev(x, nil)
}

func sortedCopy(x []float64) []float64 {
	out := make([]float64, len(x))
	copy(out, x)
	sort.Float64s(out)
	return out
}
