package rules

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fertilizer-advisor/internal/domain"
)

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name     string
		level    float64
		index    int
		status   domain.FindingStatus
		severity domain.Severity
		advice   string
	}{
		{"nitrogen very low", 10, 0, domain.StatusDeficient, domain.SeverityHigh, "Apply nitrogen-rich fertilizer immediately"},
		{"nitrogen low", 25, 0, domain.StatusDeficient, domain.SeverityModerate, "Apply nitrogen-rich fertilizer immediately"},
		{"nitrogen optimal", 50, 0, domain.StatusOptimal, domain.SeverityNone, "Nitrogen level is in optimal range"},
		{"nitrogen high", 75, 0, domain.StatusExcessive, domain.SeverityModerate, "Reduce nitrogen application"},
		{"nitrogen very high", 85, 0, domain.StatusExcessive, domain.SeverityHigh, "Reduce nitrogen application"},
		{"phosphorus very low", 14, 1, domain.StatusDeficient, domain.SeverityHigh, "Apply phosphorus-rich fertilizer"},
		{"phosphorus at low edge", 15, 1, domain.StatusDeficient, domain.SeverityModerate, "Apply phosphorus-rich fertilizer"},
		{"phosphorus at high edge", 60, 1, domain.StatusOptimal, domain.SeverityNone, "Phosphorus level is in optimal range"},
		{"phosphorus very high", 71, 1, domain.StatusExcessive, domain.SeverityHigh, "Reduce phosphorus application"},
		{"potassium low", 20, 2, domain.StatusDeficient, domain.SeverityModerate, "Apply potassium-rich fertilizer"},
		{"potassium at threshold", 30, 2, domain.StatusOptimal, domain.SeverityNone, "Potassium level is in optimal range"},
		{"potassium high", 80, 2, domain.StatusExcessive, domain.SeverityModerate, "Reduce potassium application"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			levels := [3]float64{50, 40, 50}
			levels[tt.index] = tt.level
			findings := Analyze(levels[0], levels[1], levels[2], 6.5)
			require.Len(t, findings, 4)

			f := findings[tt.index]
			assert.Equal(t, tt.level, f.Level)
			assert.Equal(t, tt.status, f.Status)
			assert.Equal(t, tt.severity, f.Severity)
			assert.Equal(t, tt.advice, f.Recommendation)
		})
	}
}

func TestAnalyzePH(t *testing.T) {
	tests := []struct {
		ph       float64
		status   domain.FindingStatus
		severity domain.Severity
		advice   string
	}{
		{5.5, domain.StatusAcidic, domain.SeverityModerate, "Apply lime to raise pH"},
		{6.0, domain.StatusOptimal, domain.SeverityNone, "pH is in optimal range"},
		{7.5, domain.StatusOptimal, domain.SeverityNone, "pH is in optimal range"},
		{7.6, domain.StatusAlkaline, domain.SeverityModerate, "Apply sulfur or organic matter to lower pH"},
	}

	for _, tt := range tests {
		findings := Analyze(50, 40, 50, tt.ph)
		f := findings[3]
		assert.Equal(t, domain.NutrientPH, f.Nutrient)
		assert.Equal(t, tt.status, f.Status, "ph %v", tt.ph)
		assert.Equal(t, tt.severity, f.Severity, "ph %v", tt.ph)
		assert.Equal(t, tt.advice, f.Recommendation, "ph %v", tt.ph)
	}
}

func TestAnalyzeAlwaysFourFindingsInOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	order := []domain.Nutrient{domain.NutrientNitrogen, domain.NutrientPhosphorus, domain.NutrientPotassium, domain.NutrientPH}
	for i := 0; i < 2000; i++ {
		findings := Analyze(rng.Float64()*200-50, rng.Float64()*200-50, rng.Float64()*200-50, rng.Float64()*14)
		require.Len(t, findings, 4)
		for j, nutrient := range order {
			assert.Equal(t, nutrient, findings[j].Nutrient)
		}
	}
}

func TestScenarioSevereNitrogenAcidicSoil(t *testing.T) {
	findings := Analyze(10, 40, 50, 5.5)
	assert.Equal(t, domain.SeverityHigh, findings[0].Severity)
	assert.Equal(t, domain.StatusAcidic, findings[3].Status)
}
