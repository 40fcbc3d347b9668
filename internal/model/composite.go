package model

import (
	"context"
	"fmt"

	"github.com/fertilizer-advisor/internal/domain"
)

// Composite joins three single-output models into a domain.Predictor.
type Composite struct {
	Classifier domain.FertilizerClassifier
	Quantity   domain.QuantityRegressor
	Health     domain.HealthRegressor
}

// NewComposite creates a composite predictor
func NewComposite(classifier domain.FertilizerClassifier, quantity domain.QuantityRegressor, health domain.HealthRegressor) *Composite {
	return &Composite{Classifier: classifier, Quantity: quantity, Health: health}
}

// Predict runs the three models on the same feature vector.
func (c *Composite) Predict(ctx context.Context, features domain.FeatureVector) (domain.RawPrediction, error) {
	ft, err := c.Classifier.PredictType(ctx, features)
	if err != nil {
		return domain.RawPrediction{}, fmt.Errorf("fertilizer type prediction failed: %w", err)
	}

	quantity, err := c.Quantity.PredictQuantity(ctx, features)
	if err != nil {
		return domain.RawPrediction{}, fmt.Errorf("quantity prediction failed: %w", err)
	}

	health, err := c.Health.PredictHealth(ctx, features)
	if err != nil {
		return domain.RawPrediction{}, fmt.Errorf("health prediction failed: %w", err)
	}

	return domain.RawPrediction{FertilizerType: ft, Quantity: quantity, HealthScore: health}, nil
}
