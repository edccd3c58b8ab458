// Package finance turns realized paths into the financial outcome of a trial.
package finance

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"aquaculture-risk/internal/models"
)

// MortalityPenalty is the survival-rate reduction per mortality event.
const MortalityPenalty = 0.05

// SurvivalRate applies the linear mortality penalty to the base survival rate,
// floored at models.MinSurvivalRate.
func SurvivalRate(baseSurvival float64, mortalityEvents int) float64 {
	return math.Max(baseSurvival-MortalityPenalty*float64(mortalityEvents), models.MinSurvivalRate)
}

// Calculate computes the financial metrics of one trial. It is a pure
// function of its inputs; paths must be non-empty.
func Calculate(price models.PricePath, weights []float64, cost models.CostPath, fishCount int, survivalRate float64) models.FinancialMetrics {
	finalWeightKg := weights[len(weights)-1] / 1000
	finalPrice := price[len(price)-1]
	survivingFish := int(math.Floor(float64(fishCount) * survivalRate))
	totalBiomassKg := float64(survivingFish) * finalWeightKg
	revenue := totalBiomassKg * finalPrice
	totalCost := floats.Sum(cost)
	profit := revenue - totalCost

	var roi, margin float64
	if totalCost > 0 {
		roi = profit / totalCost
	}
	if revenue > 0 {
		margin = profit / revenue
	}

	return models.FinancialMetrics{
		FinalWeightKg:  finalWeightKg,
		FinalPrice:     finalPrice,
		SurvivingFish:  survivingFish,
		TotalBiomassKg: totalBiomassKg,
		Revenue:        revenue,
		TotalCost:      totalCost,
		Profit:         profit,
		ROI:            roi,
		ProfitMargin:   margin,
	}
}

// CheckFinite returns an error naming the first metric that is NaN or infinite.
func CheckFinite(m models.FinancialMetrics) error {
	fields := []struct {
		name  string
		value float64
	}{
		{"final_weight_kg", m.FinalWeightKg},
		{"final_price", m.FinalPrice},
		{"total_biomass_kg", m.TotalBiomassKg},
		{"revenue", m.Revenue},
		{"total_cost", m.TotalCost},
		{"profit", m.Profit},
		{"roi", m.ROI},
		{"profit_margin", m.ProfitMargin},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%s is %v", f.name, f.value)
		}
	}
	if !(m.FinalPrice > 0) {
		return fmt.Errorf("final_price is %v, must be positive", m.FinalPrice)
	}
	return nil
}
