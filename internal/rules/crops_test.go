package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fertilizer-advisor/internal/domain"
)

func TestProfileOfKnownCrops(t *testing.T) {
	tests := []struct {
		crop    domain.CropID
		prefers domain.FertilizerType
		base    float64
		ph      Range
	}{
		{domain.CropWheat, domain.FertilizerN, 60, Range{6.0, 7.5}},
		{domain.CropRice, domain.FertilizerN, 80, Range{5.5, 7.0}},
		{domain.CropCorn, domain.FertilizerN, 70, Range{6.0, 7.5}},
		{domain.CropSoybean, domain.FertilizerP, 40, Range{6.0, 7.0}},
		{domain.CropCotton, domain.FertilizerK, 65, Range{5.5, 8.0}},
		{domain.CropTomato, domain.FertilizerMixed, 55, Range{6.0, 7.0}},
		{domain.CropPotato, domain.FertilizerP, 75, Range{5.0, 6.5}},
		{domain.CropSugarcane, domain.FertilizerK, 90, Range{6.0, 7.5}},
	}

	for _, tt := range tests {
		t.Run(string(tt.crop), func(t *testing.T) {
			p := ProfileOf(tt.crop)
			assert.Equal(t, tt.crop, p.Crop)
			assert.Equal(t, tt.prefers, p.Prefers)
			assert.Equal(t, tt.base, p.BaseQuantity)
			assert.Equal(t, tt.ph, p.Optimal.PH)
		})
	}
}

func TestEveryKnownCropHasProfile(t *testing.T) {
	for _, crop := range domain.AllCrops() {
		p, ok := cropTable[crop]
		assert.True(t, ok, "missing profile for %s", crop)
		assert.Greater(t, p.BaseQuantity, 0.0)
		assert.True(t, p.Prefers.IsValid())
	}
	assert.Len(t, cropTable, len(domain.AllCrops()))
}

func TestNeedFlags(t *testing.T) {
	assert.True(t, ProfileOf(domain.CropWheat).NeedsHighN)
	assert.True(t, ProfileOf(domain.CropSoybean).NeedsHighP)
	assert.True(t, ProfileOf(domain.CropSoybean).FixesN)
	assert.True(t, ProfileOf(domain.CropSugarcane).NeedsHighK)
	assert.True(t, ProfileOf(domain.CropTomato).NeedsBalanced)
	assert.False(t, ProfileOf(domain.CropTomato).NeedsHighN)
}

func TestProfileOfUnknownCrop(t *testing.T) {
	p := ProfileOf("Barley")
	assert.Equal(t, domain.CropID("Barley"), p.Crop)
	assert.Equal(t, domain.FertilizerMixed, p.Prefers)
	assert.Equal(t, 50.0, p.BaseQuantity)
	assert.False(t, p.NeedsHighN || p.NeedsHighP || p.NeedsHighK || p.NeedsBalanced || p.FixesN)
	assert.Equal(t, OptimalRanges{N: Range{40, 70}, P: Range{25, 50}, K: Range{30, 70}, PH: Range{6.0, 7.5}}, p.Optimal)

	assert.Equal(t, domain.CropID(""), DefaultProfile().Crop)
}
