package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/fertilizer-advisor/internal/cache"
	"github.com/fertilizer-advisor/internal/domain"
	"github.com/fertilizer-advisor/internal/history"
	"github.com/fertilizer-advisor/internal/rules"
)

// BundleSource provides the currently installed model bundle.
type BundleSource interface {
	Current() (*domain.ModelBundle, error)
}

// RecommendationResult is a served recommendation with its bookkeeping.
type RecommendationResult struct {
	ID           string                        `json:"id,omitempty"`
	Response     domain.RecommendationResponse `json:"response"`
	ModelVersion string                        `json:"model_version"`
	Cached       bool                          `json:"cached"`
	Duration     time.Duration                 `json:"-"`
}

type userKey struct{}

// WithUser returns a context attributing recommendations and history access
// to userID. An empty userID leaves ctx unchanged.
func WithUser(ctx context.Context, userID string) context.Context {
	if userID == "" {
		return ctx
	}
	return context.WithValue(ctx, userKey{}, userID)
}

// UserFrom returns the user set by WithUser, or "".
func UserFrom(ctx context.Context) string {
	userID, _ := ctx.Value(userKey{}).(string)
	return userID
}

// RecommenderService runs the serving pipeline: validation, cache lookup,
// model prediction, rule adjustment, deficiency analysis, suggestions and
// persistence.
type RecommenderService struct {
	logger  *logrus.Logger
	models  BundleSource
	cache   cache.Cache   // optional
	history history.Store // optional
}

// NewRecommenderService creates a new recommender service. cache and store
// may be nil.
func NewRecommenderService(logger *logrus.Logger, models BundleSource, c cache.Cache, store history.Store) *RecommenderService {
	return &RecommenderService{
		logger:  logger,
		models:  models,
		cache:   c,
		history: store,
	}
}

// Recommend produces a recommendation for sample. Computed recommendations
// are stored in history; a cache hit is stored only when ctx carries a user,
// so every user's history lists what they were served.
func (s *RecommenderService) Recommend(ctx context.Context, sample domain.SoilSample) (*RecommendationResult, error) {
	start := time.Now()

	if err := sample.Validate(); err != nil {
		return nil, err
	}

	bundle, err := s.models.Current()
	if err != nil {
		return nil, err
	}

	key := cache.GenerateKey(bundle.Version, sample)
	if s.cache != nil {
		if cached, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			s.logger.WithFields(logrus.Fields{
				"crop_type":       sample.Crop,
				"fertilizer_type": cached.FertilizerType,
			}).Debug("Recommendation served from cache")
			result := &RecommendationResult{
				Response:     *cached,
				ModelVersion: bundle.Version,
				Cached:       true,
			}
			if UserFrom(ctx) != "" {
				s.save(ctx, result)
			}
			result.Duration = time.Since(start)
			return result, nil
		}
	}

	features := domain.NewFeatureVector(sample, bundle.Encoder.Encode(string(sample.Crop)))
	raw, err := bundle.Predictor.Predict(ctx, features)
	if err != nil {
		return nil, fmt.Errorf("prediction failed: %w", err)
	}

	response := rules.Recommend(sample, raw)
	result := &RecommendationResult{
		Response:     response,
		ModelVersion: bundle.Version,
	}

	s.save(ctx, result)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, &response); err != nil {
			s.logger.WithError(err).Warn("Failed to cache recommendation")
		}
	}

	result.Duration = time.Since(start)
	s.logger.WithFields(logrus.Fields{
		"crop_type":       sample.Crop,
		"raw_type":        raw.FertilizerType,
		"fertilizer_type": response.FertilizerType,
		"quantity":        response.QuantityKgPerAcre,
		"health_score":    response.SoilHealthScore,
		"model_version":   bundle.Version,
		"duration":        result.Duration,
	}).Info("Recommendation completed")

	return result, nil
}

// save records result in history and sets its ID. Failures are logged only.
func (s *RecommenderService) save(ctx context.Context, result *RecommendationResult) {
	if s.history == nil {
		return
	}
	record := &history.Record{
		UserID:       UserFrom(ctx),
		Response:     result.Response,
		ModelVersion: result.ModelVersion,
	}
	if err := s.history.Save(ctx, record); err != nil {
		s.logger.WithError(err).Warn("Failed to save recommendation history")
		return
	}
	result.ID = record.ID
}

// Analyze assesses a sample with the labeling rules alone. It needs no
// models and stores nothing.
func (s *RecommenderService) Analyze(sample domain.SoilSample) (*domain.RecommendationResponse, error) {
	if err := sample.Validate(); err != nil {
		return nil, err
	}
	response := rules.Assess(sample)
	return &response, nil
}

// ErrHistoryDisabled is returned by history operations when no store is
// configured.
var ErrHistoryDisabled = errors.New("recommendation history is disabled")

// History lists stored recommendations newest first, restricted to the
// user in ctx when there is one.
func (s *RecommenderService) History(ctx context.Context, limit, offset int) ([]*history.Record, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	return s.history.List(ctx, UserFrom(ctx), limit, offset)
}

// Count returns the number of stored recommendations visible to ctx.
func (s *RecommenderService) Count(ctx context.Context) (int64, error) {
	if s.history == nil {
		return 0, ErrHistoryDisabled
	}
	return s.history.Count(ctx, UserFrom(ctx))
}

// Get returns one stored recommendation or domain.ErrNotFound. Records of
// other users are reported as not found.
func (s *RecommenderService) Get(ctx context.Context, id string) (*history.Record, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	// Stored IDs are UUIDs; anything else cannot match.
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	record, err := s.history.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if userID := UserFrom(ctx); userID != "" && record.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return record, nil
}

// Delete removes a stored recommendation visible to ctx.
func (s *RecommenderService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.history.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.WithField("id", id).Info("Recommendation deleted")
	return nil
}

// Export writes the recommendations visible to ctx as a JSON export.
func (s *RecommenderService) Export(ctx context.Context, w io.Writer) error {
	if s.history == nil {
		return ErrHistoryDisabled
	}
	return history.Export(ctx, s.history, UserFrom(ctx), w)
}

// Import stores the records of a JSON export, attributing them to the user in
// ctx when there is one. Records already stored are skipped.
func (s *RecommenderService) Import(ctx context.Context, r io.Reader) (imported, skipped int, err error) {
	if s.history == nil {
		return 0, 0, ErrHistoryDisabled
	}
	imported, skipped, err = history.Import(ctx, s.history, UserFrom(ctx), r)
	if err != nil {
		return imported, skipped, err
	}
	s.logger.WithFields(logrus.Fields{
		"imported": imported,
		"skipped":  skipped,
	}).Info("Recommendation history imported")
	return imported, skipped, nil
}

// ModelsLoaded reports whether a model bundle is installed, with its version.
func (s *RecommenderService) ModelsLoaded() (bool, string) {
	bundle, err := s.models.Current()
	if err != nil {
		return false, ""
	}
	return true, bundle.Version
}
