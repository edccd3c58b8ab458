package models

// PricePath holds time_steps+1 strictly positive prices; index 0 is the initial price.
type PricePath []float64

// GrowthPath holds time_steps+1 non-negative weights (grams) and the step
// indices at which a mortality jump fired, in ascending order.
type GrowthPath struct {
	Weights   []float64
	JumpTimes []int
}

// JumpCount returns the number of steps with at least one jump arrival.
func (g GrowthPath) JumpCount() int {
	return len(g.JumpTimes)
}

// CostPath holds time_steps+1 non-negative daily operating costs.
type CostPath []float64

// FinancialMetrics are the deterministic outcome figures of one trial.
type FinancialMetrics struct {
	FinalWeightKg  float64 `json:"final_weight_kg"`
	FinalPrice     float64 `json:"final_price"`
	SurvivingFish  int     `json:"surviving_fish"`
	TotalBiomassKg float64 `json:"total_biomass_kg"`
	Revenue        float64 `json:"revenue"`
	TotalCost      float64 `json:"total_cost"`
	Profit         float64 `json:"profit"`
	ROI            float64 `json:"roi"`
	ProfitMargin   float64 `json:"profit_margin"`
}

// Scenario is the finalized result of one trial. It is read-only once built.
type Scenario struct {
	SimulationID     int     `json:"simulation_id" csv:"simulation_id"`
	SiteID           int     `json:"site_id" csv:"site_id"`
	Species          string  `json:"species" csv:"species"`
	SurvivalRate     float64 `json:"survival_rate" csv:"survival_rate"`
	NMortalityEvents int     `json:"n_mortality_events" csv:"n_mortality_events"`
	FinalPrice       float64 `json:"final_price" csv:"final_price"`
	FinalWeightKg    float64 `json:"final_weight_kg" csv:"final_weight_kg"`
	TotalBiomassKg   float64 `json:"total_biomass_kg" csv:"total_biomass_kg"`
	SurvivingFish    int     `json:"surviving_fish" csv:"surviving_fish"`
	Revenue          float64 `json:"revenue" csv:"revenue"`
	TotalCost        float64 `json:"total_cost" csv:"total_cost"`
	Profit           float64 `json:"profit" csv:"profit"`
	ROI              float64 `json:"roi" csv:"roi"`
	ProfitMargin     float64 `json:"profit_margin" csv:"profit_margin"`

	PricePath  []float64 `json:"price_path,omitempty" csv:"-"`
	WeightPath []float64 `json:"weight_path,omitempty" csv:"-"`
	CostPath   []float64 `json:"cost_path,omitempty" csv:"-"`
}

// Metrics returns the financial figures carried by the scenario.
func (s Scenario) Metrics() FinancialMetrics {
	return FinancialMetrics{
		FinalWeightKg:  s.FinalWeightKg,
		FinalPrice:     s.FinalPrice,
		SurvivingFish:  s.SurvivingFish,
		TotalBiomassKg: s.TotalBiomassKg,
		Revenue:        s.Revenue,
		TotalCost:      s.TotalCost,
		Profit:         s.Profit,
		ROI:            s.ROI,
		ProfitMargin:   s.ProfitMargin,
	}
}

// HasPaths reports whether the raw paths were retained.
func (s Scenario) HasPaths() bool {
	return s.PricePath != nil || s.WeightPath != nil || s.CostPath != nil
}

// WithoutPaths returns a copy of the scenario with the raw paths dropped.
func (s Scenario) WithoutPaths() Scenario {
	s.PricePath = nil
	s.WeightPath = nil
	s.CostPath = nil
	return s
}
