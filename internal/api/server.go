// Package api exposes the recommender over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/fertilizer-advisor/internal/auth"
	"github.com/fertilizer-advisor/internal/domain"
	"github.com/fertilizer-advisor/internal/history"
	"github.com/fertilizer-advisor/internal/middleware"
	"github.com/fertilizer-advisor/internal/service"
)

// Recommender is the serving surface the handlers depend on.
type Recommender interface {
	Recommend(ctx context.Context, sample domain.SoilSample) (*service.RecommendationResult, error)
	Analyze(sample domain.SoilSample) (*domain.RecommendationResponse, error)
	History(ctx context.Context, limit, offset int) ([]*history.Record, error)
	Count(ctx context.Context) (int64, error)
	Get(ctx context.Context, id string) (*history.Record, error)
	Delete(ctx context.Context, id string) error
	Export(ctx context.Context, w io.Writer) error
	Import(ctx context.Context, r io.Reader) (imported, skipped int, err error)
	ModelsLoaded() (bool, string)
}

// ModelReloader reloads the installed model bundle.
type ModelReloader interface {
	Reload(ctx context.Context) error
}

// Accounts registers and authenticates users.
type Accounts interface {
	Register(ctx context.Context, name, email, password string) (*auth.Session, error)
	Login(ctx context.Context, email, password string) (*auth.Session, error)
	User(ctx context.Context, id string) (*auth.User, error)
	ForgotPassword(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, token, password string) error
	Verify(token string) (string, error)
}

// StatusReporter describes backing components for the health endpoint.
type StatusReporter interface {
	Status(ctx context.Context) map[string]interface{}
}

// Option configures optional server features.
type Option func(*Server)

// WithAccounts enables the account routes and requires a bearer token for
// recommendation history.
func WithAccounts(accounts Accounts) Option {
	return func(s *Server) { s.accounts = accounts }
}

// WithStatus adds component status to the health endpoint.
func WithStatus(status StatusReporter) Option {
	return func(s *Server) { s.status = status }
}

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	recommender   Recommender
	reloader      ModelReloader
	accounts      Accounts
	status        StatusReporter
	limiter       *middleware.RateLimiter
	logger        *logrus.Logger
	router        *gin.Engine
	server        *http.Server
}

// NewServer creates a new HTTP server instance
func NewServer(configManager domain.ConfigManager, recommender Recommender, reloader ModelReloader, logger *logrus.Logger, opts ...Option) *Server {
	cfg := configManager.GetConfig()

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))

	server := &Server{
		configManager: configManager,
		recommender:   recommender,
		reloader:      reloader,
		logger:        logger,
		router:        router,
	}
	for _, opt := range opts {
		opt(server)
	}

	if cfg.RateLimit.Enabled {
		server.limiter = middleware.NewRateLimiter(float64(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst, 0)
		router.Use(server.limiter.Middleware())
	}

	server.setupRoutes()

	return server
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}

// authenticate resolves bearer tokens when accounts are enabled.
func (s *Server) authenticate(required bool) gin.HandlerFunc {
	if s.accounts == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return middleware.Authenticate(s.accounts, required)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	optional := s.authenticate(false)
	required := s.authenticate(true)

	s.router.GET("/health", s.handleHealth)
	s.router.POST("/predict", optional, s.handlePredict)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/recommend", optional, s.handleRecommend)
		v1.POST("/analyze", s.handleAnalyze)
		v1.GET("/crops", s.handleListCrops)
		v1.GET("/crops/:crop", s.handleGetCrop)
		v1.POST("/models/reload", s.handleReloadModels)
		v1.GET("/stream", optional, s.handleStream)
	}

	recommendations := v1.Group("/recommendations", required)
	{
		recommendations.GET("", s.handleListRecommendations)
		recommendations.GET("/export", s.handleExportRecommendations)
		recommendations.POST("/import", s.handleImportRecommendations)
		recommendations.GET("/:id", s.handleGetRecommendation)
		recommendations.DELETE("/:id", s.handleDeleteRecommendation)
	}

	if s.accounts != nil {
		accounts := v1.Group("/auth")
		{
			accounts.POST("/register", s.handleRegister)
			accounts.POST("/login", s.handleLogin)
			accounts.POST("/forgot-password", s.handleForgotPassword)
			accounts.PUT("/reset-password/:token", s.handleResetPassword)
			accounts.GET("/me", required, s.handleMe)
		}
	}
}
