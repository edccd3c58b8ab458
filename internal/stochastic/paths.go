package stochastic

import (
	"math"

	"aquaculture-risk/internal/models"
)

// DaysPerYear converts annualized market rates to daily ones.
const DaysPerYear = 365.0

// SimulatePrice generates a geometric Brownian motion price path.
//
// All increments are drawn first, in step order, then applied with the exact
// multiplicative update, so every value stays strictly positive.
func SimulatePrice(s Sampler, p models.MarketParameters, steps int, dt float64) models.PricePath {
	muDaily := p.Drift / DaysPerYear
	sigmaDaily := p.Volatility / math.Sqrt(DaysPerYear)

	dW := make([]float64, steps)
	for t := range dW {
		dW[t] = Increment(s, dt)
	}

	drift := (muDaily - 0.5*sigmaDaily*sigmaDaily) * dt
	path := make(models.PricePath, steps+1)
	path[0] = p.InitialPrice
	for t := 0; t < steps; t++ {
		path[t+1] = path[t] * math.Exp(drift+sigmaDaily*dW[t])
	}
	return path
}

// SimulateGrowth generates a jump-diffusion biomass path starting at w0 grams.
//
// Per step the draws are: the diffusion increment, the Poisson jump count and,
// only when the count is positive, one normal shock. A single shock is applied
// however many arrivals land in the step.
func SimulateGrowth(s Sampler, w0 float64, p models.GrowthParameters, steps int, dt float64) models.GrowthPath {
	weights := make([]float64, steps+1)
	weights[0] = w0
	var jumpTimes []int

	for t := 0; t < steps; t++ {
		w := weights[t]
		dW := Increment(s, dt)
		diffusion := w * (p.GrowthRate*dt + p.GrowthVol*dW)

		jump := 0.0
		if n := s.Poisson(p.JumpIntensity * dt); n > 0 {
			jumpTimes = append(jumpTimes, t)
			jump = w * s.Normal(p.JumpMean, p.JumpStd)
		}

		weights[t+1] = math.Max(w+diffusion+jump, 0)
	}

	return models.GrowthPath{Weights: weights, JumpTimes: jumpTimes}
}

// SimulateCost generates an Ornstein-Uhlenbeck daily cost path floored at zero.
func SimulateCost(s Sampler, p models.CostParameters, steps int, dt float64) models.CostPath {
	path := make(models.CostPath, steps+1)
	path[0] = p.InitialCost
	for t := 0; t < steps; t++ {
		c := path[t]
		dW := Increment(s, dt)
		path[t+1] = math.Max(c+p.Theta*(p.MeanCost-c)*dt+p.Sigma*dW, 0)
	}
	return path
}
