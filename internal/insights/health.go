package insights

import "github.com/shopspring/decimal"

// Improvement areas reported by Score.
const (
	AreaSavings   = "Increase savings rate"
	AreaDiversify = "Diversify spending across categories"
	AreaTracking  = "Maintain regular expense tracking"
)

// Status labels.
const (
	StatusExcellent = "Excellent"
	StatusGood      = "Good"
	StatusFair      = "Fair"
	StatusPoor      = "Needs Improvement"
)

// Score thresholds, in percent.
var (
	ten    = decimal.NewFromInt(10)
	twenty = decimal.NewFromInt(20)
	forty  = decimal.NewFromInt(40)
	fifty  = decimal.NewFromInt(50)
)

// regularDays is the number of distinct expense dates that counts as
// regular tracking.
const regularDays = 7

// Health is the financial health assessment of one Result.
type Health struct {
	Score            int      `json:"score"`
	Status           string   `json:"status"`
	ImprovementAreas []string `json:"improvement_areas"`
	SavingsRate      float64  `json:"savings_rate"`

	// Contributions, bounded by 40, 30 and 30.
	Savings       int `json:"savings_points"`
	Concentration int `json:"concentration_points"`
	Regularity    int `json:"regularity_points"`
}

// Score assesses r. It is a pure function of r.
func Score(r Result) Health {
	h := Health{ImprovementAreas: []string{}}

	h.SavingsRate = r.SavingsRate()
	rate := r.savingsPercent()
	switch {
	case rate.GreaterThanOrEqual(twenty):
		h.Savings = 40
	case rate.GreaterThanOrEqual(ten):
		h.Savings = 30
	case !rate.IsNegative():
		h.Savings = 20
	}
	if rate.LessThan(twenty) {
		h.ImprovementAreas = append(h.ImprovementAreas, AreaSavings)
	}

	topPct := decimal.Zero
	if top, ok := r.TopCategory(); ok {
		topPct = r.share(top)
	}
	switch {
	case topPct.LessThanOrEqual(forty):
		h.Concentration = 30
	case topPct.LessThanOrEqual(fifty):
		h.Concentration = 20
	default:
		h.Concentration = 10
	}
	if topPct.GreaterThan(forty) {
		h.ImprovementAreas = append(h.ImprovementAreas, AreaDiversify)
	}

	// Daily holds one entry per distinct expense date.
	if len(r.Daily) >= regularDays {
		h.Regularity = 30
	} else {
		h.Regularity = 20
		h.ImprovementAreas = append(h.ImprovementAreas, AreaTracking)
	}

	h.Score = h.Savings + h.Concentration + h.Regularity
	h.Status = statusFor(h.Score)
	return h
}

func statusFor(score int) string {
	switch {
	case score >= 80:
		return StatusExcellent
	case score >= 60:
		return StatusGood
	case score >= 40:
		return StatusFair
	default:
		return StatusPoor
	}
}
