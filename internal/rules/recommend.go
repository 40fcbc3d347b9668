package rules

import (
	"math"

	"github.com/fertilizer-advisor/internal/domain"
)

// Recommend turns a raw model prediction for sample into the served response:
// the prediction is adjusted against the crop table, the soil is analyzed and
// suggestions are generated from the adjusted type and the raw health score.
// Quantity and health score are rounded to two decimals.
func Recommend(sample domain.SoilSample, raw domain.RawPrediction) domain.RecommendationResponse {
	fertilizer, quantity := Adjust(sample.Crop, raw.FertilizerType, raw.Quantity,
		sample.Nitrogen, sample.Phosphorus, sample.Potassium)

	return domain.RecommendationResponse{
		FertilizerType:     fertilizer,
		QuantityKgPerAcre:  round2(quantity),
		SoilHealthScore:    round2(raw.HealthScore),
		DeficiencyAnalysis: Analyze(sample.Nitrogen, sample.Phosphorus, sample.Potassium, sample.PH),
		ImprovementSuggestions: Suggest(SuggestionInput{
			Nitrogen:       sample.Nitrogen,
			Phosphorus:     sample.Phosphorus,
			Potassium:      sample.Potassium,
			PH:             sample.PH,
			Moisture:       sample.Moisture,
			Temperature:    sample.Temperature,
			Crop:           sample.Crop,
			FertilizerType: fertilizer,
			HealthScore:    raw.HealthScore,
		}),
		InputData: sample,
	}
}

// Assess is the model-free counterpart of Recommend: the labeling rules stand
// in for the models and no adjustment is applied.
func Assess(sample domain.SoilSample) domain.RecommendationResponse {
	label := LabelSample(sample)

	return domain.RecommendationResponse{
		FertilizerType:     label.FertilizerType,
		QuantityKgPerAcre:  round2(label.Quantity),
		SoilHealthScore:    label.HealthScore,
		DeficiencyAnalysis: Analyze(sample.Nitrogen, sample.Phosphorus, sample.Potassium, sample.PH),
		ImprovementSuggestions: Suggest(SuggestionInput{
			Nitrogen:       sample.Nitrogen,
			Phosphorus:     sample.Phosphorus,
			Potassium:      sample.Potassium,
			PH:             sample.PH,
			Moisture:       sample.Moisture,
			Temperature:    sample.Temperature,
			Crop:           sample.Crop,
			FertilizerType: label.FertilizerType,
			HealthScore:    label.HealthScore,
		}),
		InputData: sample,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
