package rules

import (
	"fmt"

	"github.com/fertilizer-advisor/internal/domain"
)

// nutrientBand holds the crop-independent thresholds for one nutrient.
type nutrientBand struct {
	nutrient       domain.Nutrient
	low, veryLow   float64
	high, veryHigh float64
	lowAdvice      string
	highAdvice     string
}

var nutrientBands = [3]nutrientBand{
	{
		nutrient:   domain.NutrientNitrogen,
		low:        30,
		veryLow:    20,
		high:       70,
		veryHigh:   80,
		lowAdvice:  "Apply nitrogen-rich fertilizer immediately",
		highAdvice: "Reduce nitrogen application",
	},
	{
		nutrient:   domain.NutrientPhosphorus,
		low:        25,
		veryLow:    15,
		high:       60,
		veryHigh:   70,
		lowAdvice:  "Apply phosphorus-rich fertilizer",
		highAdvice: "Reduce phosphorus application",
	},
	{
		nutrient:   domain.NutrientPotassium,
		low:        30,
		veryLow:    20,
		high:       70,
		veryHigh:   80,
		lowAdvice:  "Apply potassium-rich fertilizer",
		highAdvice: "Reduce potassium application",
	},
}

// Optimal pH band for the crop-independent analysis.
var optimalPH = Range{6.0, 7.5}

const (
	adviceLime      = "Apply lime to raise pH"
	adviceSulfur    = "Apply sulfur or organic matter to lower pH"
	advicePHOptimal = "pH is in optimal range"
)

// Analyze classifies N, P, K and pH against fixed global thresholds. It always
// returns four findings in the order Nitrogen, Phosphorus, Potassium, pH. A
// nutrient inside its band is reported as Optimal with severity None.
func Analyze(n, p, k, ph float64) []domain.DeficiencyFinding {
	levels := [3]float64{n, p, k}

	findings := make([]domain.DeficiencyFinding, 0, 4)
	for i, band := range nutrientBands {
		findings = append(findings, band.classify(levels[i]))
	}
	return append(findings, classifyPH(ph))
}

func (b nutrientBand) classify(level float64) domain.DeficiencyFinding {
	f := domain.DeficiencyFinding{Nutrient: b.nutrient, Level: level}

	switch {
	case level < b.low:
		f.Status = domain.StatusDeficient
		f.Severity = severity(level < b.veryLow)
		f.Recommendation = b.lowAdvice
	case level > b.high:
		f.Status = domain.StatusExcessive
		f.Severity = severity(level > b.veryHigh)
		f.Recommendation = b.highAdvice
	default:
		f.Status = domain.StatusOptimal
		f.Severity = domain.SeverityNone
		f.Recommendation = fmt.Sprintf("%s level is in optimal range", b.nutrient)
	}
	return f
}

func classifyPH(ph float64) domain.DeficiencyFinding {
	f := domain.DeficiencyFinding{
		Nutrient:       domain.NutrientPH,
		Level:          ph,
		Status:         domain.StatusOptimal,
		Severity:       domain.SeverityNone,
		Recommendation: advicePHOptimal,
	}

	switch {
	case ph < optimalPH.Min:
		f.Status = domain.StatusAcidic
		f.Recommendation = adviceLime
	case ph > optimalPH.Max:
		f.Status = domain.StatusAlkaline
		f.Recommendation = adviceSulfur
	}
	if !optimalPH.Contains(ph) {
		f.Severity = domain.SeverityModerate
	}
	return f
}

func severity(high bool) domain.Severity {
	if high {
		return domain.SeverityHigh
	}
	return domain.SeverityModerate
}
