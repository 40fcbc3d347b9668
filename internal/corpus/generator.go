// Package corpus builds labeled training corpora for the fertilizer models:
// synthetic soil samples, parallel rule labeling and CSV/XLSX/PostgreSQL
// sinks.
package corpus

import (
	"math/rand/v2"

	"github.com/fertilizer-advisor/internal/domain"
)

const (
	DefaultSamples = 2000
	DefaultSeed    = 42
)

// GeneratorConfig bounds the uniform distributions samples are drawn from.
// Upper bounds are exclusive.
type GeneratorConfig struct {
	Seed           uint64
	NutrientMax    float64
	PHMin, PHMax   float64
	MoistureMin    float64
	MoistureMax    float64
	TemperatureMin float64
	TemperatureMax float64
	Crops          []domain.CropID
}

// DefaultGeneratorConfig returns the distributions used for the shipped
// training corpus.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:           DefaultSeed,
		NutrientMax:    100,
		PHMin:          4.0,
		PHMax:          8.5,
		MoistureMin:    20,
		MoistureMax:    80,
		TemperatureMin: 15,
		TemperatureMax: 35,
		Crops:          domain.AllCrops(),
	}
}

// Generator draws reproducible soil samples. It is not safe for concurrent
// use.
type Generator struct {
	config GeneratorConfig
	rng    *rand.Rand
}

// NewGenerator creates a generator. An empty crop list falls back to all
// known crops.
func NewGenerator(config GeneratorConfig) *Generator {
	if len(config.Crops) == 0 {
		config.Crops = domain.AllCrops()
	}
	return &Generator{
		config: config,
		rng:    rand.New(rand.NewPCG(config.Seed, config.Seed^0x9e3779b97f4a7c15)),
	}
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

// Next draws one sample.
func (g *Generator) Next() domain.SoilSample {
	c := g.config
	return domain.SoilSample{
		Nitrogen:    g.uniform(0, c.NutrientMax),
		Phosphorus:  g.uniform(0, c.NutrientMax),
		Potassium:   g.uniform(0, c.NutrientMax),
		PH:          g.uniform(c.PHMin, c.PHMax),
		Moisture:    g.uniform(c.MoistureMin, c.MoistureMax),
		Temperature: g.uniform(c.TemperatureMin, c.TemperatureMax),
		Crop:        c.Crops[g.rng.IntN(len(c.Crops))],
	}
}

// Generate draws n samples.
func (g *Generator) Generate(n int) []domain.SoilSample {
	if n < 0 {
		n = 0
	}
	samples := make([]domain.SoilSample, n)
	for i := range samples {
		samples[i] = g.Next()
	}
	return samples
}
