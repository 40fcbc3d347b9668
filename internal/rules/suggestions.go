package rules

import (
	"github.com/fertilizer-advisor/internal/domain"
)

// SuggestionInput carries everything the suggestion rules look at.
type SuggestionInput struct {
	Nitrogen       float64
	Phosphorus     float64
	Potassium      float64
	PH             float64
	Moisture       float64
	Temperature    float64
	Crop           domain.CropID
	FertilizerType domain.FertilizerType
	HealthScore    float64
}

const (
	suggestLowHealth    = "⚠️ Soil health is below optimal. Consider regular soil testing and balanced fertilization."
	suggestOrganic      = "✓ Use organic fertilizers like compost, manure, or bio-fertilizers for sustainable farming."
	suggestMixed        = "📊 Mixed fertilizer recommended. Use NPK blend based on specific crop requirements."
	suggestIrrigation   = "💧 Soil moisture is low. Implement proper irrigation practices."
	suggestDrainage     = "🌧️ Soil moisture is high. Improve drainage to prevent waterlogging."
	suggestCold         = "🌡️ Low temperature detected. Consider using mulch or protective covers."
	suggestHeat         = "🌡️ High temperature detected. Ensure adequate irrigation and shade management."
	suggestConditionsOK = "✓ Soil conditions are good. Maintain current practices and monitor regularly."

	cropTipPrefix = "🌾 "
)

var cropTips = map[domain.CropID]string{
	domain.CropWheat:     "Apply nitrogen in split doses during tillering and flowering stages.",
	domain.CropRice:      "Maintain water level and apply balanced NPK during transplanting.",
	domain.CropCorn:      "Apply nitrogen during V6 and tasseling stages for better yield.",
	domain.CropSoybean:   "Inoculate seeds with Rhizobium for nitrogen fixation.",
	domain.CropCotton:    "Apply potassium during boll development stage.",
	domain.CropTomato:    "Maintain consistent moisture and apply calcium to prevent blossom end rot.",
	domain.CropPotato:    "Apply phosphorus during tuber initiation for better development.",
	domain.CropSugarcane: "Apply higher potassium during grand growth period.",
}

// CropTip returns the agronomic tip for a known crop.
func CropTip(crop domain.CropID) (string, bool) {
	tip, ok := cropTips[crop]
	return tip, ok
}

// Suggest composes improvement suggestions. Rules are independent and append
// in a fixed order; the result is never empty.
func Suggest(in SuggestionInput) []string {
	var out []string

	if in.HealthScore < 60 {
		out = append(out, suggestLowHealth)
	}

	switch in.FertilizerType {
	case domain.FertilizerOrganic:
		out = append(out, suggestOrganic)
	case domain.FertilizerMixed:
		out = append(out, suggestMixed)
	}

	switch {
	case in.Moisture < 40:
		out = append(out, suggestIrrigation)
	case in.Moisture > 60:
		out = append(out, suggestDrainage)
	}

	switch {
	case in.Temperature < 20:
		out = append(out, suggestCold)
	case in.Temperature > 30:
		out = append(out, suggestHeat)
	}

	if tip, ok := CropTip(in.Crop); ok {
		out = append(out, cropTipPrefix+tip)
	}

	if len(out) == 0 {
		out = append(out, suggestConditionsOK)
	}
	return out
}
