package model

import (
	"context"

	"github.com/fertilizer-advisor/internal/domain"
	"github.com/fertilizer-advisor/internal/rules"
)

// RuleSurrogate predicts by replaying the labeling rules on the feature
// vector. It reproduces the training labels exactly, which makes it the
// reference backend when no trained model server is available.
type RuleSurrogate struct {
	encoder *LabelEncoder
}

// NewRuleSurrogate creates a surrogate that decodes crop codes with encoder.
func NewRuleSurrogate(encoder *LabelEncoder) *RuleSurrogate {
	return &RuleSurrogate{encoder: encoder}
}

func (r *RuleSurrogate) sample(features domain.FeatureVector) domain.SoilSample {
	crop, _ := r.encoder.Decode(features.CropCode)
	return domain.SoilSample{
		Nitrogen:    features.Nitrogen,
		Phosphorus:  features.Phosphorus,
		Potassium:   features.Potassium,
		PH:          features.PH,
		Moisture:    features.Moisture,
		Temperature: features.Temperature,
		Crop:        domain.CropID(crop),
	}
}

// PredictType implements domain.FertilizerClassifier.
func (r *RuleSurrogate) PredictType(ctx context.Context, features domain.FeatureVector) (domain.FertilizerType, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return rules.LabelFertilizer(r.sample(features)), nil
}

// PredictQuantity implements domain.QuantityRegressor.
func (r *RuleSurrogate) PredictQuantity(ctx context.Context, features domain.FeatureVector) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return rules.LabelQuantity(r.sample(features)), nil
}

// PredictHealth implements domain.HealthRegressor.
func (r *RuleSurrogate) PredictHealth(ctx context.Context, features domain.FeatureVector) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return rules.LabelHealthScore(r.sample(features)), nil
}
