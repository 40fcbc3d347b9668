package domain

import (
	"context"
)

// FertilizerClassifier maps a feature vector to a fertilizer class.
type FertilizerClassifier interface {
	PredictType(ctx context.Context, features FeatureVector) (FertilizerType, error)
}

// QuantityRegressor estimates the application quantity in kg/acre.
type QuantityRegressor interface {
	PredictQuantity(ctx context.Context, features FeatureVector) (float64, error)
}

// HealthRegressor estimates the soil health score.
type HealthRegressor interface {
	PredictHealth(ctx context.Context, features FeatureVector) (float64, error)
}

// Predictor produces all three raw outputs for one feature vector.
type Predictor interface {
	Predict(ctx context.Context, features FeatureVector) (RawPrediction, error)
}

// CropEncoder maps crop names to the integer codes the models were trained on.
// Unrecognized names encode to 0.
type CropEncoder interface {
	Encode(crop string) int
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetDatabaseConfig() *DatabaseConfig
	Reload() error
	Validate() error
	GetDatabaseConnectionString() string
	GetDatabaseURL() string
	IsProduction() bool
	IsDevelopment() bool
}
