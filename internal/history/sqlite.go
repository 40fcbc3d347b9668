package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/fertilizer-advisor/internal/domain"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite history store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

const recordColumns = `id, user_id, crop_type, nitrogen, phosphorus, potassium, ph, moisture, temperature,
	fertilizer_type, quantity_kg_per_acre, soil_health_score,
	deficiency_analysis, improvement_suggestions, model_version, created_at`

// scanSQLiteRecord scans a row into a Record. Findings and suggestions are
// stored as JSON text.
func scanSQLiteRecord(s scanner) (*Record, error) {
	r := &Record{}
	var fertilizerType, deficiencies, suggestions string
	resp := &r.Response
	in := &resp.InputData

	err := s.Scan(
		&r.ID, &r.UserID, &in.Crop, &in.Nitrogen, &in.Phosphorus, &in.Potassium, &in.PH, &in.Moisture, &in.Temperature,
		&fertilizerType, &resp.QuantityKgPerAcre, &resp.SoilHealthScore,
		&deficiencies, &suggestions, &r.ModelVersion, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	resp.FertilizerType = domain.FertilizerType(fertilizerType)
	if err := json.Unmarshal([]byte(deficiencies), &resp.DeficiencyAnalysis); err != nil {
		return nil, fmt.Errorf("failed to decode deficiency analysis: %w", err)
	}
	if err := json.Unmarshal([]byte(suggestions), &resp.ImprovementSuggestions); err != nil {
		return nil, fmt.Errorf("failed to decode suggestions: %w", err)
	}
	return r, nil
}

// createSchema creates the database tables and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS recommendations (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL DEFAULT '',
		crop_type TEXT NOT NULL,
		nitrogen REAL NOT NULL,
		phosphorus REAL NOT NULL,
		potassium REAL NOT NULL,
		ph REAL NOT NULL,
		moisture REAL NOT NULL,
		temperature REAL NOT NULL,
		fertilizer_type TEXT NOT NULL,
		quantity_kg_per_acre REAL NOT NULL,
		soil_health_score REAL NOT NULL,
		deficiency_analysis TEXT NOT NULL DEFAULT '[]',
		improvement_suggestions TEXT NOT NULL DEFAULT '[]',
		model_version TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_recommendations_crop_type ON recommendations(crop_type);
	CREATE INDEX IF NOT EXISTS idx_recommendations_created_at ON recommendations(created_at);
	CREATE INDEX IF NOT EXISTS idx_recommendations_user_id ON recommendations(user_id, created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// Save stores a recommendation record.
func (s *SQLiteStore) Save(ctx context.Context, record *Record) error {
	prepare(record)

	deficiencies, err := json.Marshal(record.Response.DeficiencyAnalysis)
	if err != nil {
		return fmt.Errorf("failed to encode deficiency analysis: %w", err)
	}
	suggestions, err := json.Marshal(record.Response.ImprovementSuggestions)
	if err != nil {
		return fmt.Errorf("failed to encode suggestions: %w", err)
	}

	in := record.Response.InputData
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO recommendations (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		record.ID,
		record.UserID,
		string(in.Crop),
		in.Nitrogen,
		in.Phosphorus,
		in.Potassium,
		in.PH,
		in.Moisture,
		in.Temperature,
		string(record.Response.FertilizerType),
		record.Response.QuantityKgPerAcre,
		record.Response.SoilHealthScore,
		string(deficiencies),
		string(suggestions),
		record.ModelVersion,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}
	return nil
}

// Get retrieves a record by ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM recommendations
		WHERE id = ?
	`, id)

	r, err := scanSQLiteRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return r, nil
}

// List returns records newest first with pagination.
func (s *SQLiteStore) List(ctx context.Context, userID string, limit, offset int) ([]*Record, error) {
	where, args := sqliteUserFilter(userID)
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM recommendations
		`+where+`
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?
	`, append(args, limit, offset)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	result := []*Record{}
	for rows.Next() {
		r, err := scanSQLiteRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func sqliteUserFilter(userID string) (string, []interface{}) {
	if userID == "" {
		return "", nil
	}
	return "WHERE user_id = ?", []interface{}{userID}
}

// Count returns the number of records.
func (s *SQLiteStore) Count(ctx context.Context, userID string) (int64, error) {
	where, args := sqliteUserFilter(userID)
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM recommendations "+where, args...).Scan(&count)
	return count, err
}

// Delete removes a record by ID.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM recommendations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DB returns the underlying database, shared with the account store.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
