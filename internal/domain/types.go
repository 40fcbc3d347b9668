// Package domain contains the value types shared by the fertilizer rule engine,
// its model collaborators and the serving layer.
//
// Nutrient indices (nitrogen, phosphorus, potassium) use a 0-100 scale, pH is
// expected in 4.0-8.5, moisture is a percentage and temperature is in °C.
package domain

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// FertilizerType is the fertilizer class recommended for a soil sample.
// Labels produced offline and adjusted predictions served online share this set.
type FertilizerType string

const (
	FertilizerN       FertilizerType = "N"
	FertilizerP       FertilizerType = "P"
	FertilizerK       FertilizerType = "K"
	FertilizerMixed   FertilizerType = "Mixed"
	FertilizerOrganic FertilizerType = "Organic"
)

// CropID identifies a crop. Values outside the known set are kept verbatim and
// resolve to the default crop profile.
type CropID string

const (
	CropWheat     CropID = "Wheat"
	CropRice      CropID = "Rice"
	CropCorn      CropID = "Corn"
	CropSoybean   CropID = "Soybean"
	CropCotton    CropID = "Cotton"
	CropTomato    CropID = "Tomato"
	CropPotato    CropID = "Potato"
	CropSugarcane CropID = "Sugarcane"
)

// Nutrient names used in deficiency findings.
type Nutrient string

const (
	NutrientNitrogen   Nutrient = "Nitrogen"
	NutrientPhosphorus Nutrient = "Phosphorus"
	NutrientPotassium  Nutrient = "Potassium"
	NutrientPH         Nutrient = "pH"
)

// FindingStatus classifies a nutrient or pH level.
type FindingStatus string

const (
	StatusDeficient FindingStatus = "Deficient"
	StatusExcessive FindingStatus = "Excessive"
	StatusOptimal   FindingStatus = "Optimal"
	StatusAcidic    FindingStatus = "Acidic"
	StatusAlkaline  FindingStatus = "Alkaline"
)

// Severity grades a finding.
type Severity string

const (
	SeverityNone     Severity = "None"
	SeverityModerate Severity = "Moderate"
	SeverityHigh     Severity = "High"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrModelUnavailable      = errors.New("models not loaded")
	ErrInvalidFertilizerType = errors.New("invalid fertilizer type")
)

var allFertilizerTypes = []FertilizerType{
	FertilizerN, FertilizerP, FertilizerK, FertilizerMixed, FertilizerOrganic,
}

var allCrops = []CropID{
	CropWheat, CropRice, CropCorn, CropSoybean, CropCotton, CropTomato, CropPotato, CropSugarcane,
}

// AllFertilizerTypes returns the five fertilizer classes.
func AllFertilizerTypes() []FertilizerType {
	out := make([]FertilizerType, len(allFertilizerTypes))
	copy(out, allFertilizerTypes)
	return out
}

// AllCrops returns the known crops in rule-table order.
func AllCrops() []CropID {
	out := make([]CropID, len(allCrops))
	copy(out, allCrops)
	return out
}

// IsValid reports whether f is one of the five fertilizer classes.
func (f FertilizerType) IsValid() bool {
	switch f {
	case FertilizerN, FertilizerP, FertilizerK, FertilizerMixed, FertilizerOrganic:
		return true
	default:
		return false
	}
}

// String returns the string representation of FertilizerType
func (f FertilizerType) String() string {
	return string(f)
}

// ParseFertilizerType converts a model label into a FertilizerType.
func ParseFertilizerType(s string) (FertilizerType, error) {
	f := FertilizerType(s)
	if !f.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidFertilizerType, s)
	}
	return f, nil
}

// Known reports whether c belongs to the enumerated crop set.
func (c CropID) Known() bool {
	for _, known := range allCrops {
		if c == known {
			return true
		}
	}
	return false
}

// String returns the string representation of CropID
func (c CropID) String() string {
	return string(c)
}

// SoilSample is one set of soil and crop measurements.
type SoilSample struct {
	Nitrogen    float64 `json:"nitrogen"`
	Phosphorus  float64 `json:"phosphorus"`
	Potassium   float64 `json:"potassium"`
	PH          float64 `json:"ph"`
	Moisture    float64 `json:"moisture"`
	Temperature float64 `json:"temperature"`
	Crop        CropID  `json:"crop_type"`
}

// Validate checks that the sample is usable by the serving layer. The rule
// engine itself accepts any finite input; these bounds mirror the ranges the
// measurement forms accept.
func (s SoilSample) Validate() error {
	checks := []struct {
		field    string
		value    float64
		min, max float64
	}{
		{"nitrogen", s.Nitrogen, 0, 100},
		{"phosphorus", s.Phosphorus, 0, 100},
		{"potassium", s.Potassium, 0, 100},
		{"ph", s.PH, 4.0, 8.5},
		{"moisture", s.Moisture, 0, 100},
		{"temperature", s.Temperature, 0, 50},
	}
	for _, c := range checks {
		if math.IsNaN(c.value) || math.IsInf(c.value, 0) {
			return NewValidationError(c.field, "must be a finite number", c.value)
		}
		if c.value < c.min || c.value > c.max {
			return NewValidationError(c.field, fmt.Sprintf("must be between %g and %g", c.min, c.max), c.value)
		}
	}
	if s.Crop == "" {
		return NewValidationError("crop_type", "is required", s.Crop)
	}
	return nil
}

// Recommendation is the label triple produced for one sample.
type Recommendation struct {
	FertilizerType FertilizerType `json:"fertilizer_type"`
	Quantity       float64        `json:"quantity_kg_per_acre"`
	HealthScore    float64        `json:"soil_health_score"`
}

// DeficiencyFinding describes the state of one nutrient or of pH.
type DeficiencyFinding struct {
	Nutrient       Nutrient      `json:"nutrient"`
	Level          float64       `json:"level"`
	Status         FindingStatus `json:"status"`
	Severity       Severity      `json:"severity"`
	Recommendation string        `json:"recommendation"`
}

// RawPrediction is the unadjusted output of the statistical models.
type RawPrediction struct {
	FertilizerType FertilizerType `json:"fertilizer_type"`
	Quantity       float64        `json:"quantity"`
	HealthScore    float64        `json:"health_score"`
}

// RecommendationResponse is the combined answer returned to callers.
type RecommendationResponse struct {
	FertilizerType         FertilizerType      `json:"fertilizer_type"`
	QuantityKgPerAcre      float64             `json:"quantity_kg_per_acre"`
	SoilHealthScore        float64             `json:"soil_health_score"`
	DeficiencyAnalysis     []DeficiencyFinding `json:"deficiency_analysis"`
	ImprovementSuggestions []string            `json:"improvement_suggestions"`
	InputData              SoilSample          `json:"input_data"`
}

// FeatureVector is the 7-feature model input.
type FeatureVector struct {
	Nitrogen    float64
	Phosphorus  float64
	Potassium   float64
	PH          float64
	Moisture    float64
	Temperature float64
	CropCode    int
}

// NewFeatureVector builds the model input for a sample and its encoded crop.
func NewFeatureVector(s SoilSample, cropCode int) FeatureVector {
	return FeatureVector{
		Nitrogen:    s.Nitrogen,
		Phosphorus:  s.Phosphorus,
		Potassium:   s.Potassium,
		PH:          s.PH,
		Moisture:    s.Moisture,
		Temperature: s.Temperature,
		CropCode:    cropCode,
	}
}

// Slice returns the features in model column order.
func (v FeatureVector) Slice() []float64 {
	return []float64{v.Nitrogen, v.Phosphorus, v.Potassium, v.PH, v.Moisture, v.Temperature, float64(v.CropCode)}
}

// ModelBundle is the read-only set of model handles used at serving time.
// A bundle is built once and replaced as a whole on reload.
type ModelBundle struct {
	Predictor Predictor
	Encoder   CropEncoder
	Version   string
	Backend   string
	LoadedAt  time.Time
}
