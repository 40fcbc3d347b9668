package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/fertilizer-advisor/internal/domain"
)

const minPasswordLength = 6

// Service registers and authenticates users.
type Service struct {
	store    Store
	secret   []byte
	issuer   string
	tokenTTL time.Duration
	resetTTL time.Duration
	cost     int
	logger   *logrus.Logger
	now      func() time.Time
}

// NewService creates an account service signing tokens with cfg.JWTSecret.
func NewService(store Store, cfg domain.AuthConfig, logger *logrus.Logger) (*Service, error) {
	if store == nil {
		return nil, errors.New("account store is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("auth.jwt_secret is required")
	}

	s := &Service{
		store:    store,
		secret:   []byte(cfg.JWTSecret),
		issuer:   cfg.Issuer,
		tokenTTL: cfg.TokenTTL,
		resetTTL: cfg.ResetTTL,
		cost:     bcrypt.DefaultCost,
		logger:   logger,
		now:      time.Now,
	}
	if s.issuer == "" {
		s.issuer = "fertilizer-advisor"
	}
	if s.tokenTTL <= 0 {
		s.tokenTTL = 7 * 24 * time.Hour
	}
	if s.resetTTL <= 0 {
		s.resetTTL = 10 * time.Minute
	}
	return s, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return domain.NewValidationError("password", fmt.Sprintf("must be at least %d characters", minPasswordLength), nil)
	}
	return nil
}

// Register creates an account and signs a token for it.
func (s *Service) Register(ctx context.Context, name, email, password string) (*Session, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)

	if name == "" {
		return nil, domain.NewValidationError("name", "is required", name)
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, domain.NewValidationError("email", "must be a valid email address", email)
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	if _, err := s.store.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		Role:         RoleUser,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.WithField("user_id", user.ID).Info("Account registered")
	return s.session(user)
}

// Login checks the password and signs a token.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.store.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.session(user)
}

// User returns the account with the given ID.
func (s *Service) User(ctx context.Context, id string) (*User, error) {
	return s.store.GetByID(ctx, id)
}

func (s *Service) session(user *User) (*Session, error) {
	now := s.now()
	expires := now.Add(s.tokenTTL)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   user.ID,
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &Session{Token: signed, ExpiresAt: expires.UTC(), User: user}, nil
}

// Verify checks a bearer token and returns the user ID it was issued to.
func (s *Service) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (interface{}, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// ForgotPassword issues a reset token for the account with email. It returns
// an empty token and no error when no such account exists, so the response
// does not reveal which addresses are registered.
func (s *Service) ForgotPassword(ctx context.Context, email string) (string, error) {
	user, err := s.store.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, domain.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up account: %w", err)
	}

	raw := make([]byte, 20)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate reset token: %w", err)
	}
	token := hex.EncodeToString(raw)

	user.ResetTokenHash = hashResetToken(token)
	user.ResetExpiresAt = s.now().Add(s.resetTTL).UTC()
	if err := s.store.Update(ctx, user); err != nil {
		return "", err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":    user.ID,
		"expires_at": user.ResetExpiresAt,
	}).Info("Password reset requested")
	return token, nil
}

// ResetPassword sets a new password using a token from ForgotPassword. The
// token is single use.
func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	if err := validatePassword(password); err != nil {
		return err
	}
	if token == "" {
		return ErrInvalidResetToken
	}

	user, err := s.store.GetByResetToken(ctx, hashResetToken(token))
	if errors.Is(err, domain.ErrNotFound) {
		return ErrInvalidResetToken
	}
	if err != nil {
		return fmt.Errorf("failed to look up reset token: %w", err)
	}
	if !s.now().Before(user.ResetExpiresAt) {
		return ErrInvalidResetToken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = string(hash)
	user.ResetTokenHash = ""
	user.ResetExpiresAt = time.Time{}
	if err := s.store.Update(ctx, user); err != nil {
		return err
	}

	s.logger.WithField("user_id", user.ID).Info("Password reset completed")
	return nil
}
