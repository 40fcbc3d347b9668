package corpus

import (
	"math"

	"github.com/fertilizer-advisor/internal/domain"
)

// Summary describes a labeled corpus.
type Summary struct {
	Count        int                           `json:"count"`
	Distribution map[domain.FertilizerType]int `json:"distribution"`
	HealthMean   float64                       `json:"health_mean"`
	HealthMin    float64                       `json:"health_min"`
	HealthMax    float64                       `json:"health_max"`
}

// Summarize computes the fertilizer type distribution and soil health
// statistics of a corpus.
func Summarize(samples []LabeledSample) Summary {
	summary := Summary{Distribution: make(map[domain.FertilizerType]int)}
	if len(samples) == 0 {
		return summary
	}

	summary.Count = len(samples)
	summary.HealthMin = math.Inf(1)
	summary.HealthMax = math.Inf(-1)

	var total float64
	for _, s := range samples {
		summary.Distribution[s.FertilizerType]++
		total += s.HealthScore
		summary.HealthMin = math.Min(summary.HealthMin, s.HealthScore)
		summary.HealthMax = math.Max(summary.HealthMax, s.HealthScore)
	}
	summary.HealthMean = math.Round(total/float64(len(samples))*100) / 100

	return summary
}
