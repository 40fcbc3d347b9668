package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/fertilizer-advisor/internal/domain"
)

// SQLStore implements Store on database/sql. It serves both SQLite and
// PostgreSQL; only the placeholder style differs.
type SQLStore struct {
	db       *sql.DB
	postgres bool
}

const userColumns = `id, name, email, password_hash, role, reset_token_hash, reset_expires_at, created_at`

// NewSQLiteStore creates the users table in db if needed.
func NewSQLiteStore(db *sql.DB) (*SQLStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'user',
		reset_token_hash TEXT NOT NULL DEFAULT '',
		reset_expires_at DATETIME,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_users_reset_token_hash ON users(reset_token_hash);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create users schema: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// NewPostgresStore returns a store over db. The users table comes from the
// migrations.
func NewPostgresStore(db *sql.DB) (*SQLStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	return &SQLStore{db: db, postgres: true}, nil
}

// rebind rewrites ? placeholders as $n for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if !s.postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row scanner) (*User, error) {
	u := &User{}
	var resetExpires sql.NullTime
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.ResetTokenHash, &resetExpires, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	if resetExpires.Valid {
		u.ResetExpiresAt = resetExpires.Time
	}
	return u, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// isUniqueViolation recognizes duplicate key errors from both drivers.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Create inserts a new account.
func (s *SQLStore) Create(ctx context.Context, user *User) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`),
		user.ID, user.Name, user.Email, user.PasswordHash, user.Role,
		user.ResetTokenHash, nullTime(user.ResetExpiresAt), user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (s *SQLStore) getBy(ctx context.Context, column, value string) (*User, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+userColumns+` FROM users WHERE `+column+` = ?`), value)
	return scanUser(row)
}

// GetByID returns the account with id.
func (s *SQLStore) GetByID(ctx context.Context, id string) (*User, error) {
	return s.getBy(ctx, "id", id)
}

// GetByEmail returns the account with email.
func (s *SQLStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.getBy(ctx, "email", email)
}

// GetByResetToken returns the account holding tokenHash.
func (s *SQLStore) GetByResetToken(ctx context.Context, tokenHash string) (*User, error) {
	if tokenHash == "" {
		return nil, domain.ErrNotFound
	}
	return s.getBy(ctx, "reset_token_hash", tokenHash)
}

// Update stores the password and reset fields.
func (s *SQLStore) Update(ctx context.Context, user *User) error {
	result, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE users
		SET password_hash = ?, reset_token_hash = ?, reset_expires_at = ?
		WHERE id = ?
	`), user.PasswordHash, user.ResetTokenHash, nullTime(user.ResetExpiresAt), user.ID)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
