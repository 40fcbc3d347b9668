package rules

import (
	"math"

	"github.com/fertilizer-advisor/internal/domain"
)

// Inference-time bounds on the served quantity in kg/acre.
const (
	minServedQuantity = 20.0
	maxServedQuantity = 200.0
)

// preferenceCutoffs are the nutrient levels below which an Organic prediction
// is switched to the crop's preferred single-nutrient fertilizer.
var preferenceCutoffs = map[domain.FertilizerType]func(n, p, k float64) bool{
	domain.FertilizerN:     func(n, _, _ float64) bool { return n < 50 },
	domain.FertilizerP:     func(_, p, _ float64) bool { return p < 45 },
	domain.FertilizerK:     func(_, _, k float64) bool { return k < 50 },
	domain.FertilizerMixed: func(_, _, _ float64) bool { return true },
}

// deficiencyOverride is one step of the need-flag cascade. The first step whose
// guard holds is the only one considered, even when its inner check fails.
type deficiencyOverride struct {
	guard  func(c CropProfile, n, p, k float64) bool
	strict func(n, p, k float64) bool
	result domain.FertilizerType
}

var deficiencyOverrides = []deficiencyOverride{
	{
		guard:  func(c CropProfile, n, _, _ float64) bool { return c.NeedsHighN && n < 40 },
		strict: func(n, _, _ float64) bool { return n < 35 },
		result: domain.FertilizerN,
	},
	{
		guard:  func(c CropProfile, _, p, _ float64) bool { return c.NeedsHighP && p < 30 },
		strict: func(_, p, _ float64) bool { return p < 25 },
		result: domain.FertilizerP,
	},
	{
		guard:  func(c CropProfile, _, _, k float64) bool { return c.NeedsHighK && k < 35 },
		strict: func(_, _, k float64) bool { return k < 30 },
		result: domain.FertilizerK,
	},
}

// Adjust reconciles a raw model prediction with the crop rule table so the
// served output follows the conventions used to build the training labels.
// Only Organic predictions are ever re-typed. The returned quantity is always
// within [20, 200].
func Adjust(crop domain.CropID, predicted domain.FertilizerType, predictedQuantity, n, p, k float64) (domain.FertilizerType, float64) {
	profile := ProfileOf(crop)

	adjusted := predicted
	if predicted == domain.FertilizerOrganic {
		if below, ok := preferenceCutoffs[profile.Prefers]; ok && below(n, p, k) {
			adjusted = profile.Prefers
		}
	}

	if adjusted == predicted {
		for _, o := range deficiencyOverrides {
			if !o.guard(profile, n, p, k) {
				continue
			}
			if adjusted == domain.FertilizerOrganic && o.strict(n, p, k) {
				adjusted = o.result
			}
			break
		}
	}

	quantity := profile.BaseQuantity * (predictedQuantity / defaultBaseQuantity)
	quantity *= quantityMultiplier(crop)

	return adjusted, clamp(quantity, minServedQuantity, maxServedQuantity)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}
