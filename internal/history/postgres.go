package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/fertilizer-advisor/internal/domain"
)

// PostgresStore implements the Store interface using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL history store.
// It expects the schema to already exist (created via migrations).
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL creates a new PostgreSQL history store from a connection URL.
func NewPostgresStoreFromURL(databaseURL string, config domain.DatabaseConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	maxOpen, maxIdle, lifetime := config.MaxOpenConns, config.MaxIdleConns, config.ConnMaxLifetime
	if maxOpen == 0 {
		maxOpen = 25
	}
	if maxIdle == 0 {
		maxIdle = 5
	}
	if lifetime == 0 {
		lifetime = 5 * time.Minute
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(lifetime)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// scanPostgresRecord scans a row into a Record. Findings are JSONB and
// suggestions a TEXT[] column.
func scanPostgresRecord(s scanner) (*Record, error) {
	r := &Record{}
	var fertilizerType string
	var deficiencies []byte
	var suggestions []string
	resp := &r.Response
	in := &resp.InputData

	err := s.Scan(
		&r.ID, &r.UserID, &in.Crop, &in.Nitrogen, &in.Phosphorus, &in.Potassium, &in.PH, &in.Moisture, &in.Temperature,
		&fertilizerType, &resp.QuantityKgPerAcre, &resp.SoilHealthScore,
		&deficiencies, pq.Array(&suggestions), &r.ModelVersion, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	resp.FertilizerType = domain.FertilizerType(fertilizerType)
	if err := json.Unmarshal(deficiencies, &resp.DeficiencyAnalysis); err != nil {
		return nil, fmt.Errorf("failed to decode deficiency analysis: %w", err)
	}
	if suggestions == nil {
		suggestions = []string{}
	}
	resp.ImprovementSuggestions = suggestions
	return r, nil
}

// Save stores a recommendation record.
func (s *PostgresStore) Save(ctx context.Context, record *Record) error {
	prepare(record)

	deficiencies, err := json.Marshal(record.Response.DeficiencyAnalysis)
	if err != nil {
		return fmt.Errorf("failed to encode deficiency analysis: %w", err)
	}

	in := record.Response.InputData
	query := `
		INSERT INTO recommendations (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING created_at
	`

	err = s.db.QueryRowContext(ctx, query,
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
		deficiencies,
		pq.Array(record.Response.ImprovementSuggestions),
		record.ModelVersion,
		record.CreatedAt,
	).Scan(&record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}
	return nil
}

// Get retrieves a record by ID.
func (s *PostgresStore) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM recommendations
		WHERE id = $1
	`, id)

	r, err := scanPostgresRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return r, nil
}

// List returns records newest first with pagination.
func (s *PostgresStore) List(ctx context.Context, userID string, limit, offset int) ([]*Record, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM recommendations
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	args := []interface{}{limit, offset}
	if userID != "" {
		query = `
		SELECT ` + recordColumns + `
		FROM recommendations
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
		args = []interface{}{userID, limit, offset}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	result := []*Record{}
	for rows.Next() {
		r, err := scanPostgresRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// Count returns the number of records.
func (s *PostgresStore) Count(ctx context.Context, userID string) (int64, error) {
	var count int64
	var err error
	if userID == "" {
		err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM recommendations").Scan(&count)
	} else {
		err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM recommendations WHERE user_id = $1", userID).Scan(&count)
	}
	return count, err
}

// Delete removes a record by ID.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM recommendations WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DB returns the underlying database, shared with the account store.
func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

// Close closes the store and releases resources.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
