package service

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fertilizer-advisor/internal/domain"
	"github.com/fertilizer-advisor/internal/history"
	"github.com/fertilizer-advisor/internal/model"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

type fixedBundle struct {
	bundle *domain.ModelBundle
}

func (f fixedBundle) Current() (*domain.ModelBundle, error) {
	if f.bundle == nil {
		return nil, domain.ErrModelUnavailable
	}
	return f.bundle, nil
}

type countingPredictor struct {
	raw   domain.RawPrediction
	err   error
	calls int
	last  domain.FeatureVector
}

func (p *countingPredictor) Predict(_ context.Context, features domain.FeatureVector) (domain.RawPrediction, error) {
	p.calls++
	p.last = features
	return p.raw, p.err
}

func bundleWith(p domain.Predictor) fixedBundle {
	return fixedBundle{bundle: &domain.ModelBundle{
		Predictor: p,
		Encoder:   model.NewCropEncoder(),
		Version:   "test-1",
	}}
}

type mapCache struct {
	entries map[string]*domain.RecommendationResponse
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string]*domain.RecommendationResponse)}
}

func (m *mapCache) Get(_ context.Context, key string) (*domain.RecommendationResponse, bool, error) {
	r, ok := m.entries[key]
	return r, ok, nil
}

func (m *mapCache) Set(_ context.Context, key string, resp *domain.RecommendationResponse) error {
	m.entries[key] = resp
	return nil
}

type memoryStore struct {
	records []*history.Record
	saveErr error
}

func (m *memoryStore) Save(_ context.Context, r *history.Record) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	m.records = append(m.records, r)
	return nil
}

func (m *memoryStore) Get(_ context.Context, id string) (*history.Record, error) {
	for _, r := range m.records {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memoryStore) visible(userID string) []*history.Record {
	var out []*history.Record
	for _, r := range m.records {
		if userID == "" || r.UserID == userID {
			out = append(out, r)
		}
	}
	return out
}

func (m *memoryStore) List(_ context.Context, userID string, limit, offset int) ([]*history.Record, error) {
	records := m.visible(userID)
	out := []*history.Record{}
	for i := len(records) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, records[i])
	}
	return out, nil
}

func (m *memoryStore) Count(_ context.Context, userID string) (int64, error) {
	return int64(len(m.visible(userID))), nil
}

func (m *memoryStore) Delete(_ context.Context, id string) error {
	for i, r := range m.records {
		if r.ID == id {
			m.records = append(m.records[:i], m.records[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memoryStore) Close() error { return nil }

func wheatSample() domain.SoilSample {
	return domain.SoilSample{Nitrogen: 20, Phosphorus: 40, Potassium: 50, PH: 6.5, Moisture: 50, Temperature: 25, Crop: domain.CropWheat}
}

func TestRecommend(t *testing.T) {
	predictor := &countingPredictor{raw: domain.RawPrediction{FertilizerType: domain.FertilizerOrganic, Quantity: 50, HealthScore: 70}}
	store := &memoryStore{}
	svc := NewRecommenderService(testLogger(), bundleWith(predictor), newMapCache(), store)

	result, err := svc.Recommend(context.Background(), wheatSample())
	require.NoError(t, err)

	assert.Equal(t, domain.FertilizerN, result.Response.FertilizerType, "organic prediction for low-N wheat switches to N")
	assert.Equal(t, 60.0, result.Response.QuantityKgPerAcre)
	assert.Equal(t, 70.0, result.Response.SoilHealthScore)
	assert.Len(t, result.Response.DeficiencyAnalysis, 4)
	assert.Equal(t, wheatSample(), result.Response.InputData)
	assert.Equal(t, "test-1", result.ModelVersion)
	assert.False(t, result.Cached)

	assert.Equal(t, 7, predictor.last.CropCode, "crop codes follow sorted class order")
	require.Len(t, store.records, 1)
	assert.Equal(t, store.records[0].ID, result.ID)
	assert.Equal(t, "test-1", store.records[0].ModelVersion)
}

func TestRecommendServesFromCache(t *testing.T) {
	predictor := &countingPredictor{raw: domain.RawPrediction{FertilizerType: domain.FertilizerMixed, Quantity: 50, HealthScore: 70}}
	store := &memoryStore{}
	svc := NewRecommenderService(testLogger(), bundleWith(predictor), newMapCache(), store)
	ctx := context.Background()

	first, err := svc.Recommend(ctx, wheatSample())
	require.NoError(t, err)
	second, err := svc.Recommend(ctx, wheatSample())
	require.NoError(t, err)

	assert.Equal(t, 1, predictor.calls)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Response, second.Response)
	assert.Len(t, store.records, 1, "cache hits are not stored again")
}

func TestRecommendErrors(t *testing.T) {
	tests := []struct {
		name    string
		source  BundleSource
		sample  domain.SoilSample
		checkFn func(t *testing.T, err error)
	}{
		{
			name:   "invalid sample",
			source: bundleWith(&countingPredictor{}),
			sample: domain.SoilSample{Nitrogen: 120, PH: 6.5, Crop: domain.CropRice},
			checkFn: func(t *testing.T, err error) {
				var verr *domain.ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, "nitrogen", verr.Field)
			},
		},
		{
			name:   "models not loaded",
			source: fixedBundle{},
			sample: wheatSample(),
			checkFn: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, domain.ErrModelUnavailable)
			},
		},
		{
			name:   "prediction failure",
			source: bundleWith(&countingPredictor{err: domain.ErrModelUnavailable}),
			sample: wheatSample(),
			checkFn: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, domain.ErrModelUnavailable)
				assert.Contains(t, err.Error(), "prediction failed")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewRecommenderService(testLogger(), tt.source, nil, nil)
			_, err := svc.Recommend(context.Background(), tt.sample)
			require.Error(t, err)
			tt.checkFn(t, err)
		})
	}
}

func TestRecommendSurvivesHistoryFailure(t *testing.T) {
	predictor := &countingPredictor{raw: domain.RawPrediction{FertilizerType: domain.FertilizerN, Quantity: 50, HealthScore: 70}}
	store := &memoryStore{saveErr: errors.New("disk full")}
	svc := NewRecommenderService(testLogger(), bundleWith(predictor), nil, store)

	result, err := svc.Recommend(context.Background(), wheatSample())
	require.NoError(t, err)
	assert.Empty(t, result.ID)
	assert.Equal(t, domain.FertilizerN, result.Response.FertilizerType)
}

func TestRecommendWithRuleSurrogate(t *testing.T) {
	registry := model.NewRegistry(mustLoader(t), testLogger())
	require.NoError(t, registry.Load(context.Background()))
	svc := NewRecommenderService(testLogger(), registry, nil, nil)

	sample := domain.SoilSample{Nitrogen: 50, Phosphorus: 40, Potassium: 50, PH: 6.5, Moisture: 50, Temperature: 25, Crop: domain.CropSoybean}
	result, err := svc.Recommend(context.Background(), sample)
	require.NoError(t, err)
	assert.Equal(t, domain.FertilizerP, result.Response.FertilizerType)
}

func mustLoader(t *testing.T) model.Loader {
	t.Helper()
	loader, err := model.NewLoader(domain.ModelConfig{Backend: model.BackendRules}, testLogger())
	require.NoError(t, err)
	return loader
}

func TestAnalyze(t *testing.T) {
	svc := NewRecommenderService(testLogger(), fixedBundle{}, nil, nil)

	resp, err := svc.Analyze(wheatSample())
	require.NoError(t, err)
	assert.Equal(t, domain.FertilizerN, resp.FertilizerType)
	assert.Len(t, resp.DeficiencyAnalysis, 4)

	_, err = svc.Analyze(domain.SoilSample{PH: 6.5})
	assert.Error(t, err)
}

func TestHistoryAndGet(t *testing.T) {
	predictor := &countingPredictor{raw: domain.RawPrediction{FertilizerType: domain.FertilizerN, Quantity: 50, HealthScore: 70}}
	store := &memoryStore{}
	svc := NewRecommenderService(testLogger(), bundleWith(predictor), nil, store)
	ctx := context.Background()

	result, err := svc.Recommend(ctx, wheatSample())
	require.NoError(t, err)

	records, err := svc.History(ctx, 50, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)

	got, err := svc.Get(ctx, result.ID)
	require.NoError(t, err)
	assert.Equal(t, result.Response, got.Response)

	_, err = svc.Get(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.Get(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestHistoryScopedByUser(t *testing.T) {
	predictor := &countingPredictor{raw: domain.RawPrediction{FertilizerType: domain.FertilizerN, Quantity: 50, HealthScore: 70}}
	store := &memoryStore{}
	svc := NewRecommenderService(testLogger(), bundleWith(predictor), newMapCache(), store)
	alice := WithUser(context.Background(), "alice")
	bob := WithUser(context.Background(), "bob")

	assert.Equal(t, "alice", UserFrom(alice))
	assert.Empty(t, UserFrom(WithUser(context.Background(), "")))

	mine, err := svc.Recommend(alice, wheatSample())
	require.NoError(t, err)
	theirs, err := svc.Recommend(bob, wheatSample())
	require.NoError(t, err)
	assert.True(t, theirs.Cached)
	assert.NotEmpty(t, theirs.ID, "cache hits are stored for signed-in users")
	assert.Equal(t, 1, predictor.calls)

	records, err := svc.History(alice, 50, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, mine.ID, records[0].ID)
	assert.Equal(t, "alice", records[0].UserID)

	count, err := svc.Count(bob)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	count, err = svc.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	_, err = svc.Get(bob, mine.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound, "other users' records are hidden")
	assert.ErrorIs(t, svc.Delete(bob, mine.ID), domain.ErrNotFound)

	require.NoError(t, svc.Delete(alice, mine.ID))
	_, err = svc.Get(alice, mine.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Len(t, store.records, 1)
}

func TestExportImport(t *testing.T) {
	predictor := &countingPredictor{raw: domain.RawPrediction{FertilizerType: domain.FertilizerN, Quantity: 50, HealthScore: 70}}
	source := &memoryStore{}
	svc := NewRecommenderService(testLogger(), bundleWith(predictor), nil, source)
	alice := WithUser(context.Background(), "alice")

	_, err := svc.Recommend(alice, wheatSample())
	require.NoError(t, err)
	_, err = svc.Recommend(WithUser(context.Background(), "bob"), wheatSample())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, svc.Export(alice, &buf))

	target := &memoryStore{}
	other := NewRecommenderService(testLogger(), bundleWith(predictor), nil, target)
	carol := WithUser(context.Background(), "carol")
	imported, skipped, err := other.Import(carol, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 1, imported)
	assert.Equal(t, 0, skipped)
	require.Len(t, target.records, 1)
	assert.Equal(t, "carol", target.records[0].UserID)

	imported, skipped, err = other.Import(carol, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 0, imported)
	assert.Equal(t, 1, skipped)

	_, _, err = other.Import(carol, bytes.NewReader([]byte("{")))
	assert.ErrorIs(t, err, history.ErrInvalidExport)
}

func TestHistoryDisabled(t *testing.T) {
	svc := NewRecommenderService(testLogger(), fixedBundle{}, nil, nil)
	ctx := context.Background()
	_, err := svc.History(ctx, 10, 0)
	assert.ErrorIs(t, err, ErrHistoryDisabled)
	_, err = svc.Count(ctx)
	assert.ErrorIs(t, err, ErrHistoryDisabled)
	assert.ErrorIs(t, svc.Delete(ctx, uuid.NewString()), ErrHistoryDisabled)
	assert.ErrorIs(t, svc.Export(ctx, &bytes.Buffer{}), ErrHistoryDisabled)
	_, _, err = svc.Import(ctx, &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrHistoryDisabled)

	loaded, version := svc.ModelsLoaded()
	assert.False(t, loaded)
	assert.Empty(t, version)
}
