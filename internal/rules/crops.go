// Package rules implements the deterministic fertilizer rule engine: the crop
// rule table, training-label generation, inference-time adjustment of model
// predictions, deficiency analysis and improvement suggestions.
//
// Every function in this package is pure and safe for concurrent use.
package rules

import (
	"github.com/fertilizer-advisor/internal/domain"
)

// Range is a closed [Min, Max] interval.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies within the range, bounds included.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// OptimalRanges holds the per-crop optimal bands used by health scoring.
type OptimalRanges struct {
	N  Range `json:"nitrogen"`
	P  Range `json:"phosphorus"`
	K  Range `json:"potassium"`
	PH Range `json:"ph"`
}

// CropProfile is the static rule parameter set of one crop.
type CropProfile struct {
	Crop          domain.CropID         `json:"crop"`
	Prefers       domain.FertilizerType `json:"prefers"`
	BaseQuantity  float64               `json:"base_quantity"`
	NeedsHighN    bool                  `json:"needs_high_n"`
	NeedsHighP    bool                  `json:"needs_high_p"`
	NeedsHighK    bool                  `json:"needs_high_k"`
	NeedsBalanced bool                  `json:"needs_balanced"`
	FixesN        bool                  `json:"fixes_n"`
	Optimal       OptimalRanges         `json:"optimal"`
}

// defaultBaseQuantity is the dataset-wide baseline quantity in kg/acre.
const defaultBaseQuantity = 50.0

var defaultProfile = CropProfile{
	Prefers:      domain.FertilizerMixed,
	BaseQuantity: defaultBaseQuantity,
	Optimal: OptimalRanges{
		N:  Range{40, 70},
		P:  Range{25, 50},
		K:  Range{30, 70},
		PH: Range{6.0, 7.5},
	},
}

var cropTable = map[domain.CropID]CropProfile{
	domain.CropWheat: {
		Crop: domain.CropWheat, Prefers: domain.FertilizerN, BaseQuantity: 60, NeedsHighN: true,
		Optimal: OptimalRanges{N: Range{40, 70}, P: Range{25, 50}, K: Range{30, 70}, PH: Range{6.0, 7.5}},
	},
	domain.CropRice: {
		Crop: domain.CropRice, Prefers: domain.FertilizerN, BaseQuantity: 80, NeedsHighN: true,
		Optimal: OptimalRanges{N: Range{50, 80}, P: Range{20, 45}, K: Range{30, 70}, PH: Range{5.5, 7.0}},
	},
	domain.CropCorn: {
		Crop: domain.CropCorn, Prefers: domain.FertilizerN, BaseQuantity: 70, NeedsHighN: true,
		Optimal: OptimalRanges{N: Range{50, 80}, P: Range{25, 50}, K: Range{30, 70}, PH: Range{6.0, 7.5}},
	},
	domain.CropSoybean: {
		Crop: domain.CropSoybean, Prefers: domain.FertilizerP, BaseQuantity: 40, NeedsHighP: true, FixesN: true,
		Optimal: OptimalRanges{N: Range{30, 60}, P: Range{30, 60}, K: Range{30, 70}, PH: Range{6.0, 7.0}},
	},
	domain.CropCotton: {
		Crop: domain.CropCotton, Prefers: domain.FertilizerK, BaseQuantity: 65, NeedsHighK: true,
		Optimal: OptimalRanges{N: Range{40, 70}, P: Range{25, 50}, K: Range{40, 80}, PH: Range{5.5, 8.0}},
	},
	domain.CropTomato: {
		Crop: domain.CropTomato, Prefers: domain.FertilizerMixed, BaseQuantity: 55, NeedsBalanced: true,
		Optimal: OptimalRanges{N: Range{40, 70}, P: Range{30, 60}, K: Range{40, 80}, PH: Range{6.0, 7.0}},
	},
	domain.CropPotato: {
		Crop: domain.CropPotato, Prefers: domain.FertilizerP, BaseQuantity: 75, NeedsHighP: true,
		Optimal: OptimalRanges{N: Range{40, 70}, P: Range{30, 60}, K: Range{30, 70}, PH: Range{5.0, 6.5}},
	},
	domain.CropSugarcane: {
		Crop: domain.CropSugarcane, Prefers: domain.FertilizerK, BaseQuantity: 90, NeedsHighK: true,
		Optimal: OptimalRanges{N: Range{50, 80}, P: Range{25, 50}, K: Range{40, 80}, PH: Range{6.0, 7.5}},
	},
}

// ProfileOf returns the rule profile for crop. Unknown crops get the default
// profile with Crop set to the given identifier.
func ProfileOf(crop domain.CropID) CropProfile {
	if p, ok := cropTable[crop]; ok {
		return p
	}
	p := defaultProfile
	p.Crop = crop
	return p
}

// DefaultProfile returns the profile used for crops outside the table.
func DefaultProfile() CropProfile {
	return defaultProfile
}

// quantityMultiplier is the crop-specific scaling shared by labeling and
// adjustment: Rice and Sugarcane need more, Soybean fixes its own nitrogen.
func quantityMultiplier(crop domain.CropID) float64 {
	switch crop {
	case domain.CropRice, domain.CropSugarcane:
		return 1.1
	case domain.CropSoybean:
		return 0.8
	default:
		return 1.0
	}
}
