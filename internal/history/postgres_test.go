package history

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fertilizer-advisor/internal/domain"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store, err := NewPostgresStore(db)
	require.NoError(t, err)
	return store, mock
}

var recordColumnNames = []string{
	"id", "user_id", "crop_type", "nitrogen", "phosphorus", "potassium", "ph", "moisture", "temperature",
	"fertilizer_type", "quantity_kg_per_acre", "soil_health_score",
	"deficiency_analysis", "improvement_suggestions", "model_version", "created_at",
}

func TestNewPostgresStore_NilDB(t *testing.T) {
	_, err := NewPostgresStore(nil)
	assert.Error(t, err)
}

func TestPostgresStore_SaveReturnsCreatedAt(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO recommendations").
		WithArgs(
			sqlmock.AnyArg(), // id
			"alice",
			"Wheat",
			15.0, 40.0, 50.0, 6.5, 45.0, 24.0,
			"N",
			55.5,
			72.25,
			sqlmock.AnyArg(), // deficiency_analysis
			"{\"first\",\"second\"}",
			"rules-1",
			sqlmock.AnyArg(), // created_at
		).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))

	record := testRecord(domain.CropWheat, domain.FertilizerN)
	record.UserID = "alice"
	require.NoError(t, store.Save(context.Background(), record))
	assert.NotEmpty(t, record.ID)
	assert.Equal(t, created, record.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT .+ FROM recommendations WHERE id").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_List(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)
	findings := `[{"nutrient":"Nitrogen","level":15,"status":"Deficient","severity":"High","recommendation":"Apply nitrogen-rich fertilizer"}]`

	rows := sqlmock.NewRows(recordColumnNames).
		AddRow("b", "alice", "Rice", 15.0, 40.0, 50.0, 6.5, 45.0, 24.0, "Mixed", 66.0, 70.5,
			[]byte(findings), "{\"keep soil moist\",other}", "rules-1", created).
		AddRow("a", "", "Cotton", 50.0, 40.0, 50.0, 6.5, 45.0, 24.0, "Organic", 40.0, 88.0,
			[]byte("[]"), "{}", "rules-1", created.Add(-time.Hour))

	mock.ExpectQuery("SELECT .+ FROM recommendations ORDER BY created_at DESC").
		WithArgs(50, 0).
		WillReturnRows(rows)

	all, err := store.List(context.Background(), "", 50, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)

	assert.Equal(t, "b", all[0].ID)
	assert.Equal(t, "alice", all[0].UserID)
	assert.Equal(t, domain.CropRice, all[0].Sample().Crop)
	assert.Equal(t, domain.FertilizerMixed, all[0].Response.FertilizerType)
	assert.Equal(t, []string{"keep soil moist", "other"}, all[0].Response.ImprovementSuggestions)
	require.Len(t, all[0].Response.DeficiencyAnalysis, 1)
	assert.Equal(t, domain.StatusDeficient, all[0].Response.DeficiencyAnalysis[0].Status)

	assert.Equal(t, []string{}, all[1].Response.ImprovementSuggestions)
	assert.Empty(t, all[1].Response.DeficiencyAnalysis)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListByUser(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT .+ FROM recommendations WHERE user_id = \\$1 ORDER BY created_at DESC LIMIT \\$2 OFFSET \\$3").
		WithArgs("alice", 10, 0).
		WillReturnRows(sqlmock.NewRows(recordColumnNames))

	all, err := store.List(context.Background(), "alice", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, all)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CountAndDelete(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery("SELECT COUNT").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM recommendations WHERE user_id").
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectExec("DELETE FROM recommendations").WithArgs("x").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM recommendations").WithArgs("y").WillReturnResult(sqlmock.NewResult(0, 0))

	count, err := store.Count(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)

	count, err = store.Count(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	require.NoError(t, store.Delete(ctx, "x"))
	assert.ErrorIs(t, store.Delete(ctx, "y"), domain.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

// TestPostgresStore_Live exercises the store against a real database.
// Skipped unless TEST_DATABASE_URL is set.
func TestPostgresStore_Live(t *testing.T) {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping PostgreSQL tests")
	}

	store, err := NewPostgresStoreFromURL(dbURL, domain.DatabaseConfig{})
	require.NoError(t, err)
	defer store.Close()

	_, err = store.db.Exec(`
		CREATE TABLE IF NOT EXISTS recommendations (
			id UUID PRIMARY KEY,
			user_id TEXT NOT NULL DEFAULT '',
			crop_type TEXT NOT NULL,
			nitrogen DOUBLE PRECISION NOT NULL,
			phosphorus DOUBLE PRECISION NOT NULL,
			potassium DOUBLE PRECISION NOT NULL,
			ph DOUBLE PRECISION NOT NULL,
			moisture DOUBLE PRECISION NOT NULL,
			temperature DOUBLE PRECISION NOT NULL,
			fertilizer_type TEXT NOT NULL,
			quantity_kg_per_acre DOUBLE PRECISION NOT NULL,
			soil_health_score DOUBLE PRECISION NOT NULL,
			deficiency_analysis JSONB NOT NULL DEFAULT '[]',
			improvement_suggestions TEXT[] NOT NULL DEFAULT '{}',
			model_version TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	require.NoError(t, err)

	ctx := context.Background()
	record := testRecord(domain.CropTomato, domain.FertilizerP)
	require.NoError(t, store.Save(ctx, record))
	defer store.Delete(ctx, record.ID)

	got, err := store.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.Response.ImprovementSuggestions, got.Response.ImprovementSuggestions)
	assert.Equal(t, record.Response.DeficiencyAnalysis, got.Response.DeficiencyAnalysis)
}
