package domain

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFertilizerTypeConstants(t *testing.T) {
	tests := []struct {
		name     string
		value    FertilizerType
		expected string
	}{
		{"Nitrogen", FertilizerN, "N"},
		{"Phosphorus", FertilizerP, "P"},
		{"Potassium", FertilizerK, "K"},
		{"Mixed", FertilizerMixed, "Mixed"},
		{"Organic", FertilizerOrganic, "Organic"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.value.String())
			assert.True(t, tt.value.IsValid())
		})
	}
}

func TestParseFertilizerType(t *testing.T) {
	ft, err := ParseFertilizerType("Organic")
	require.NoError(t, err)
	assert.Equal(t, FertilizerOrganic, ft)

	_, err = ParseFertilizerType("Urea")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidFertilizerType))

	_, err = ParseFertilizerType("organic")
	assert.Error(t, err, "labels are case sensitive")
}

func TestCropIDKnown(t *testing.T) {
	for _, crop := range AllCrops() {
		assert.True(t, crop.Known(), crop)
	}
	assert.False(t, CropID("Barley").Known())
	assert.False(t, CropID("wheat").Known())
	assert.Len(t, AllCrops(), 8)
}

func TestAllCropsReturnsCopy(t *testing.T) {
	crops := AllCrops()
	crops[0] = "Barley"
	assert.Equal(t, CropWheat, AllCrops()[0])
}

func TestSoilSampleValidate(t *testing.T) {
	valid := SoilSample{Nitrogen: 40, Phosphorus: 30, Potassium: 50, PH: 6.5, Moisture: 45, Temperature: 25, Crop: CropWheat}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*SoilSample)
		field  string
	}{
		{"nitrogen above range", func(s *SoilSample) { s.Nitrogen = 101 }, "nitrogen"},
		{"phosphorus negative", func(s *SoilSample) { s.Phosphorus = -1 }, "phosphorus"},
		{"potassium NaN", func(s *SoilSample) { s.Potassium = math.NaN() }, "potassium"},
		{"ph too acidic", func(s *SoilSample) { s.PH = 3.9 }, "ph"},
		{"moisture infinite", func(s *SoilSample) { s.Moisture = math.Inf(1) }, "moisture"},
		{"temperature too hot", func(s *SoilSample) { s.Temperature = 51 }, "temperature"},
		{"missing crop", func(s *SoilSample) { s.Crop = "" }, "crop_type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			tt.mutate(&s)
			err := s.Validate()
			require.Error(t, err)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestUnknownCropPassesValidation(t *testing.T) {
	s := SoilSample{Nitrogen: 40, Phosphorus: 30, Potassium: 50, PH: 6.5, Moisture: 45, Temperature: 25, Crop: "Barley"}
	assert.NoError(t, s.Validate())
}

func TestFeatureVectorSlice(t *testing.T) {
	s := SoilSample{Nitrogen: 1, Phosphorus: 2, Potassium: 3, PH: 4, Moisture: 5, Temperature: 6, Crop: CropRice}
	v := NewFeatureVector(s, 3)
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6, 3}, v.Slice())
}
