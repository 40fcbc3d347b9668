package corpus

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
)

// Copier is the subset of pgxpool.Pool used by PostgresSink.
type Copier interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

var trainingTable = pgx.Identifier{"training_samples"}

// PostgresSink bulk-loads labeled samples into the training_samples table.
// Every Write call is tagged with a fresh batch ID.
type PostgresSink struct {
	conn   Copier
	logger *logrus.Logger
}

// NewPostgresSink creates a sink over conn.
func NewPostgresSink(conn Copier, logger *logrus.Logger) *PostgresSink {
	return &PostgresSink{conn: conn, logger: logger}
}

// Write copies samples and returns the batch ID they were stored under.
func (p *PostgresSink) Write(ctx context.Context, samples []LabeledSample) (uuid.UUID, error) {
	batchID := uuid.New()
	columns := append([]string{"batch_id"}, Columns...)

	rows := make([][]any, len(samples))
	for i, s := range samples {
		rows[i] = []any{
			batchID,
			s.Nitrogen, s.Phosphorus, s.Potassium, s.PH, s.Moisture, s.Temperature,
			string(s.Crop), string(s.FertilizerType), s.Quantity, s.HealthScore,
		}
	}

	copied, err := p.conn.CopyFrom(ctx, trainingTable, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return uuid.Nil, fmt.Errorf("copying training samples: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"batch_id": batchID.String(),
		"rows":     copied,
	}).Info("Training samples copied to PostgreSQL")

	return batchID, nil
}
