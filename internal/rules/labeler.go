package rules

import (
	"math"

	"github.com/fertilizer-advisor/internal/domain"
)

// Label-time thresholds. The adjuster applies its own, different cutoffs.
const (
	labelLowN = 30.0
	labelLowP = 25.0
	labelLowK = 30.0

	maxQuantity = 200.0
)

// balancedBand is the joint nutrient range in which no single-nutrient
// deficiency rule fires.
var balancedBand = struct{ N, P, K Range }{
	N: Range{30, 70},
	P: Range{25, 60},
	K: Range{30, 70},
}

// fertilizerRule is one guard of the labeling cascade. Guards are evaluated in
// slice order and the first one whose match returns true decides the label.
type fertilizerRule struct {
	name  string
	match func(s domain.SoilSample, p CropProfile) (domain.FertilizerType, bool)
}

// fertilizerRules is the labeling decision table. Nutrient ranges overlap, so
// the order is significant: N before P before K before the balanced band.
var fertilizerRules = []fertilizerRule{
	{
		name: "nitrogen_deficient",
		match: func(s domain.SoilSample, _ CropProfile) (domain.FertilizerType, bool) {
			if s.Nitrogen >= labelLowN {
				return "", false
			}
			if s.Phosphorus < labelLowP && s.Potassium < labelLowK {
				return domain.FertilizerMixed, true
			}
			return domain.FertilizerN, true
		},
	},
	{
		name: "phosphorus_deficient",
		match: func(s domain.SoilSample, _ CropProfile) (domain.FertilizerType, bool) {
			if s.Phosphorus >= labelLowP {
				return "", false
			}
			if s.Potassium < labelLowK {
				return domain.FertilizerMixed, true
			}
			return domain.FertilizerP, true
		},
	},
	{
		name: "potassium_deficient",
		match: func(s domain.SoilSample, _ CropProfile) (domain.FertilizerType, bool) {
			if s.Potassium >= labelLowK {
				return "", false
			}
			return domain.FertilizerK, true
		},
	},
	{
		name: "balanced",
		match: func(s domain.SoilSample, p CropProfile) (domain.FertilizerType, bool) {
			if !balancedBand.N.Contains(s.Nitrogen) || !balancedBand.P.Contains(s.Phosphorus) || !balancedBand.K.Contains(s.Potassium) {
				return "", false
			}
			if s.Crop == domain.CropSoybean || p.NeedsBalanced {
				return domain.FertilizerOrganic, true
			}
			if p.Prefers == domain.FertilizerMixed {
				return domain.FertilizerMixed, true
			}
			return domain.FertilizerOrganic, true
		},
	},
}

// LabelFertilizer returns the training label for the fertilizer class.
func LabelFertilizer(s domain.SoilSample) domain.FertilizerType {
	ft, _ := labelFertilizer(s)
	return ft
}

// labelFertilizer also returns the name of the guard that decided.
func labelFertilizer(s domain.SoilSample) (domain.FertilizerType, string) {
	profile := ProfileOf(s.Crop)
	for _, rule := range fertilizerRules {
		if ft, ok := rule.match(s, profile); ok {
			return ft, rule.name
		}
	}
	return domain.FertilizerMixed, "fallback"
}

// LabelQuantity returns the training label for the application quantity in
// kg/acre. The result is capped at 200 but has no lower bound.
func LabelQuantity(s domain.SoilSample) float64 {
	profile := ProfileOf(s.Crop)

	deficit := math.Max(0, 50-s.Nitrogen) + math.Max(0, 40-s.Phosphorus) + math.Max(0, 50-s.Potassium)
	quantity := profile.BaseQuantity + deficit*1.5
	quantity *= quantityMultiplier(s.Crop)

	return math.Min(quantity, maxQuantity)
}

// LabelHealthScore returns the 0-100 soil health label: the mean of the N, P,
// K, pH and moisture component scores, rounded to two decimals.
func LabelHealthScore(s domain.SoilSample) float64 {
	opt := ProfileOf(s.Crop).Optimal

	scores := [5]float64{
		nutrientScore(s.Nitrogen, opt.N),
		nutrientScore(s.Phosphorus, opt.P),
		nutrientScore(s.Potassium, opt.K),
		phScore(s.PH, opt.PH),
		moistureScore(s.Moisture),
	}

	var sum float64
	for _, v := range scores {
		sum += v
	}
	return round2(sum / float64(len(scores)))
}

// LabelSample computes the full label triple for one sample.
func LabelSample(s domain.SoilSample) domain.Recommendation {
	return domain.Recommendation{
		FertilizerType: LabelFertilizer(s),
		Quantity:       LabelQuantity(s),
		HealthScore:    LabelHealthScore(s),
	}
}

// Label labels a batch. The result has the same length and order as batch.
func Label(batch []domain.SoilSample) []domain.Recommendation {
	out := make([]domain.Recommendation, len(batch))
	for i, s := range batch {
		out[i] = LabelSample(s)
	}
	return out
}

// nutrientScore scores a nutrient against its optimal range. Below the range
// the score falls linearly to 0; above it the penalty is at most 30 points.
func nutrientScore(value float64, r Range) float64 {
	switch {
	case value < r.Min:
		return value / r.Min * 100
	case value > r.Max:
		return math.Max(70, 100-(value-r.Max)/(100-r.Max)*30)
	default:
		return 100
	}
}

func phScore(ph float64, r Range) float64 {
	switch {
	case ph < r.Min:
		return 50 + (ph-4.0)/(r.Min-4.0)*50
	case ph > r.Max:
		return 100 - (ph-r.Max)/(8.5-r.Max)*30
	default:
		return 100
	}
}

// moistureScore uses the fixed 40-60% band regardless of crop.
func moistureScore(moisture float64) float64 {
	switch {
	case moisture < 40:
		return moisture / 40 * 100
	case moisture > 60:
		return 100 - (moisture-60)/20*50
	default:
		return 100
	}
}
