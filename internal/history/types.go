// Package history stores served fertilizer recommendations so callers can
// list and revisit them.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/fertilizer-advisor/internal/domain"
)

// Record is one served recommendation.
type Record struct {
	ID           string                        `json:"id"`
	UserID       string                        `json:"user_id,omitempty"`
	Response     domain.RecommendationResponse `json:"response"`
	ModelVersion string                        `json:"model_version"`
	CreatedAt    time.Time                     `json:"created_at"`
}

// Sample returns the soil sample the recommendation was computed for.
func (r *Record) Sample() domain.SoilSample {
	return r.Response.InputData
}

// Store defines the interface for recommendation history storage.
type Store interface {
	// Save stores a record, assigning ID and CreatedAt when they are empty.
	Save(ctx context.Context, record *Record) error

	// Get returns the record with the given ID or domain.ErrNotFound.
	Get(ctx context.Context, id string) (*Record, error)

	// List returns records newest first. A non-empty userID restricts the
	// result to that user's records.
	List(ctx context.Context, userID string, limit, offset int) ([]*Record, error)

	// Count returns the number of records, restricted to userID when it is
	// non-empty.
	Count(ctx context.Context, userID string) (int64, error)

	// Delete removes a record by ID or returns domain.ErrNotFound.
	Delete(ctx context.Context, id string) error

	// Close closes the store and releases resources.
	Close() error
}

// ExportDocument represents the JSON export format.
type ExportDocument struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	Count      int       `json:"count"`
	Records    []*Record `json:"records"`
}

// maxExportLimit is the maximum number of records to export at once.
const maxExportLimit = 1000000

// ErrInvalidExport is returned by Import for input that is not an export.
var ErrInvalidExport = errors.New("invalid history export")

// prepare fills in generated fields before a record is written.
func prepare(record *Record) {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	if record.Response.DeficiencyAnalysis == nil {
		record.Response.DeficiencyAnalysis = []domain.DeficiencyFinding{}
	}
	if record.Response.ImprovementSuggestions == nil {
		record.Response.ImprovementSuggestions = []string{}
	}
}

// Export writes the records of userID (all records when empty) to writer as
// an indented ExportDocument.
func Export(ctx context.Context, store Store, userID string, writer io.Writer) error {
	all, err := store.List(ctx, userID, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list records: %w", err)
	}

	export := &ExportDocument{
		Version:    "1.0",
		ExportedAt: time.Now(),
		Count:      len(all),
		Records:    all,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// Import saves the records of an export whose IDs are not yet stored and
// returns the number of imported and skipped records. A non-empty userID
// takes ownership of every imported record.
func Import(ctx context.Context, store Store, userID string, reader io.Reader) (imported int, skipped int, err error) {
	var export ExportDocument
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrInvalidExport, err)
	}

	for _, record := range export.Records {
		if record == nil {
			continue
		}
		if record.ID != "" {
			_, err := store.Get(ctx, record.ID)
			if err == nil {
				skipped++
				continue
			}
			if !errors.Is(err, domain.ErrNotFound) {
				return imported, skipped, fmt.Errorf("failed to check existing: %w", err)
			}
		}

		if userID != "" {
			record.UserID = userID
		}
		if err := store.Save(ctx, record); err != nil {
			return imported, skipped, fmt.Errorf("failed to save: %w", err)
		}
		imported++
	}

	return imported, skipped, nil
}
