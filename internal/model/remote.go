package model

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/fertilizer-advisor/internal/domain"
)

// RemoteConfig represents configuration for the model server client
type RemoteConfig struct {
	BaseURL   string        `json:"base_url"`
	Timeout   time.Duration `json:"timeout"`
	RateLimit int           `json:"rate_limit"` // requests per second
}

// RemoteClient calls a model server that hosts the trained fertilizer,
// quantity and health models.
type RemoteClient struct {
	baseURL    string
	httpClient *http.Client
	rateLimit  *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	logger     *logrus.Logger
}

type predictRequest struct {
	Features [][]float64 `json:"features"`
}

type predictResponse struct {
	FertilizerType string  `json:"fertilizer_type"`
	Quantity       float64 `json:"quantity"`
	HealthScore    float64 `json:"health_score"`
	Error          string  `json:"error,omitempty"`
}

// RemoteHealth is the model server's health report.
type RemoteHealth struct {
	Status       string `json:"status"`
	ModelsLoaded bool   `json:"models_loaded"`
	ModelVersion string `json:"model_version,omitempty"`
}

// NewRemoteClient creates a new model server client
func NewRemoteClient(config RemoteConfig, logger *logrus.Logger) *RemoteClient {
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 20
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "model-server",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return &RemoteClient{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimit: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		breaker:   breaker,
		logger:    logger,
	}
}

// Predict implements domain.Predictor.
func (c *RemoteClient) Predict(ctx context.Context, features domain.FeatureVector) (domain.RawPrediction, error) {
	if err := c.rateLimit.Wait(ctx); err != nil {
		return domain.RawPrediction{}, fmt.Errorf("rate limit wait failed: %w", err)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.predict(ctx, features)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return domain.RawPrediction{}, fmt.Errorf("%w: %v", domain.ErrModelUnavailable, err)
		}
		return domain.RawPrediction{}, err
	}

	return result.(domain.RawPrediction), nil
}

func (c *RemoteClient) predict(ctx context.Context, features domain.FeatureVector) (domain.RawPrediction, error) {
	body, err := json.Marshal(predictRequest{Features: [][]float64{features.Slice()}})
	if err != nil {
		return domain.RawPrediction{}, fmt.Errorf("failed to marshal predict request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return domain.RawPrediction{}, fmt.Errorf("failed to create predict request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.RawPrediction{}, fmt.Errorf("failed to execute predict request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.RawPrediction{}, fmt.Errorf("failed to read predict response: %w", err)
	}

	var pr predictResponse
	if resp.StatusCode != http.StatusOK {
		if json.Unmarshal(payload, &pr) == nil && pr.Error != "" {
			return domain.RawPrediction{}, fmt.Errorf("model server returned status %d: %s", resp.StatusCode, pr.Error)
		}
		return domain.RawPrediction{}, fmt.Errorf("model server returned status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(payload, &pr); err != nil {
		return domain.RawPrediction{}, fmt.Errorf("failed to parse predict response: %w", err)
	}

	ft, err := domain.ParseFertilizerType(pr.FertilizerType)
	if err != nil {
		return domain.RawPrediction{}, fmt.Errorf("model server returned unusable class: %w", err)
	}

	return domain.RawPrediction{FertilizerType: ft, Quantity: pr.Quantity, HealthScore: pr.HealthScore}, nil
}

// Health queries the model server health endpoint.
func (c *RemoteClient) Health(ctx context.Context) (*RemoteHealth, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create health request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute health request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("model server health returned status %d", resp.StatusCode)
	}

	var health RemoteHealth
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, fmt.Errorf("failed to parse health response: %w", err)
	}
	return &health, nil
}

// BreakerState returns the current circuit breaker state.
func (c *RemoteClient) BreakerState() gobreaker.State {
	return c.breaker.State()
}
