package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fertilizer-advisor/internal/domain"
)

func TestRecommend(t *testing.T) {
	s := domain.SoilSample{Nitrogen: 45, Phosphorus: 40, Potassium: 50, PH: 6.8, Moisture: 50, Temperature: 25, Crop: domain.CropWheat}
	raw := domain.RawPrediction{FertilizerType: domain.FertilizerOrganic, Quantity: 41.6789, HealthScore: 87.3456}

	resp := Recommend(s, raw)

	assert.Equal(t, domain.FertilizerN, resp.FertilizerType)
	assert.Equal(t, 50.01, resp.QuantityKgPerAcre)
	assert.Equal(t, 87.35, resp.SoilHealthScore)
	assert.Equal(t, s, resp.InputData)
	require.Len(t, resp.DeficiencyAnalysis, 4)
	assert.Equal(t, []string{"🌾 Apply nitrogen in split doses during tillering and flowering stages."}, resp.ImprovementSuggestions)
}

func TestRecommendSuggestionsUseAdjustedTypeAndRawHealth(t *testing.T) {
	s := domain.SoilSample{Nitrogen: 50, Phosphorus: 40, Potassium: 50, PH: 6.5, Moisture: 50, Temperature: 25, Crop: domain.CropTomato}
	raw := domain.RawPrediction{FertilizerType: domain.FertilizerOrganic, Quantity: 50, HealthScore: 55.554}

	resp := Recommend(s, raw)

	assert.Equal(t, domain.FertilizerMixed, resp.FertilizerType)
	assert.Equal(t, 55.55, resp.SoilHealthScore)
	assert.Contains(t, resp.ImprovementSuggestions, suggestMixed)
	assert.NotContains(t, resp.ImprovementSuggestions, suggestOrganic)
	assert.Equal(t, suggestLowHealth, resp.ImprovementSuggestions[0])
}

func TestScenarios(t *testing.T) {
	t.Run("all nutrients deficient wheat is mixed", func(t *testing.T) {
		s := domain.SoilSample{Nitrogen: 15, Phosphorus: 20, Potassium: 25, PH: 6.5, Moisture: 50, Temperature: 25, Crop: domain.CropWheat}
		assert.Equal(t, domain.FertilizerMixed, LabelFertilizer(s))
	})

	t.Run("balanced soybean is organic", func(t *testing.T) {
		s := domain.SoilSample{Nitrogen: 50, Phosphorus: 40, Potassium: 50, PH: 6.8, Moisture: 50, Temperature: 25, Crop: domain.CropSoybean}
		assert.Equal(t, domain.FertilizerOrganic, LabelFertilizer(s))
	})

	t.Run("sugarcane baseline quantity", func(t *testing.T) {
		s := domain.SoilSample{Nitrogen: 60, Phosphorus: 40, Potassium: 60, PH: 6.8, Moisture: 50, Temperature: 25, Crop: domain.CropSugarcane}
		resp := Recommend(s, domain.RawPrediction{FertilizerType: domain.FertilizerK, Quantity: 50, HealthScore: 90})
		assert.Equal(t, 99.0, resp.QuantityKgPerAcre)
	})
}

func TestAssess(t *testing.T) {
	s := domain.SoilSample{Nitrogen: 50, Phosphorus: 40, Potassium: 50, PH: 6.8, Moisture: 50, Temperature: 25, Crop: domain.CropSoybean}

	resp := Assess(s)

	assert.Equal(t, domain.FertilizerOrganic, resp.FertilizerType)
	assert.Equal(t, 32.0, resp.QuantityKgPerAcre)
	assert.Equal(t, 100.0, resp.SoilHealthScore)
	assert.Contains(t, resp.ImprovementSuggestions, suggestOrganic)
	assert.Len(t, resp.DeficiencyAnalysis, 4)
}
