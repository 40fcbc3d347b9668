package model

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/fertilizer-advisor/internal/domain"
)

// Backend names accepted in model.backend.
const (
	BackendRules  = "rules"
	BackendRemote = "remote"
)

// rulesVersion identifies bundles built on the rule surrogate. It changes
// only when the labeling rules change.
const rulesVersion = "rules-1"

// Loader builds a model bundle.
type Loader interface {
	Load(ctx context.Context) (*domain.ModelBundle, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context) (*domain.ModelBundle, error)

// Load calls f(ctx).
func (f LoaderFunc) Load(ctx context.Context) (*domain.ModelBundle, error) {
	return f(ctx)
}

// NewLoader returns a Loader for the configured backend.
func NewLoader(config domain.ModelConfig, logger *logrus.Logger) (Loader, error) {
	switch config.Backend {
	case "", BackendRules:
		return LoaderFunc(func(ctx context.Context) (*domain.ModelBundle, error) {
			encoder := NewCropEncoder()
			surrogate := NewRuleSurrogate(encoder)
			return &domain.ModelBundle{
				Predictor: NewComposite(surrogate, surrogate, surrogate),
				Encoder:   encoder,
				Version:   rulesVersion,
				Backend:   BackendRules,
				LoadedAt:  time.Now().UTC(),
			}, nil
		}), nil

	case BackendRemote:
		if config.RemoteURL == "" {
			return nil, fmt.Errorf("model.remote_url is required for the remote backend")
		}
		client := NewRemoteClient(RemoteConfig{
			BaseURL:   config.RemoteURL,
			Timeout:   config.Timeout,
			RateLimit: config.RateLimit,
		}, logger)
		return &remoteLoader{client: client}, nil

	default:
		return nil, fmt.Errorf("unsupported model backend: %s", config.Backend)
	}
}

// BreakerReporter is implemented by loaders whose predictor sits behind a
// circuit breaker.
type BreakerReporter interface {
	BreakerState() gobreaker.State
}

// remoteLoader builds bundles that predict through a model server.
type remoteLoader struct {
	client *RemoteClient
}

func (l *remoteLoader) Load(ctx context.Context) (*domain.ModelBundle, error) {
	health, err := l.client.Health(ctx)
	if err != nil {
		return nil, fmt.Errorf("model server unreachable: %w", err)
	}
	if !health.ModelsLoaded {
		return nil, domain.ErrModelUnavailable
	}
	version := health.ModelVersion
	if version == "" {
		version = BackendRemote
	}
	return &domain.ModelBundle{
		Predictor: l.client,
		Encoder:   NewCropEncoder(),
		Version:   version,
		Backend:   BackendRemote,
		LoadedAt:  time.Now().UTC(),
	}, nil
}

// BreakerState reports the model server circuit breaker.
func (l *remoteLoader) BreakerState() gobreaker.State {
	return l.client.BreakerState()
}

// Registry holds the current model bundle. Readers never block; a reload
// swaps the whole bundle and a failed reload keeps the previous one.
type Registry struct {
	loader  Loader
	logger  *logrus.Logger
	current atomic.Pointer[domain.ModelBundle]
	mu      sync.Mutex // serializes loads
}

// NewRegistry creates an empty registry backed by loader.
func NewRegistry(loader Loader, logger *logrus.Logger) *Registry {
	return &Registry{loader: loader, logger: logger}
}

// Load builds a bundle and installs it.
func (r *Registry) Load(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	bundle, err := r.loader.Load(ctx)
	if err != nil {
		r.logger.WithError(err).Error("Failed to load model bundle")
		return fmt.Errorf("failed to load model bundle: %w", err)
	}

	previous := r.current.Swap(bundle)

	fields := logrus.Fields{
		"backend":  bundle.Backend,
		"version":  bundle.Version,
		"duration": time.Since(start),
	}
	if previous != nil {
		fields["previous_version"] = previous.Version
	}
	r.logger.WithFields(fields).Info("Model bundle loaded")
	return nil
}

// Reload replaces the installed bundle with a freshly loaded one.
func (r *Registry) Reload(ctx context.Context) error {
	return r.Load(ctx)
}

// Current returns the installed bundle or domain.ErrModelUnavailable.
func (r *Registry) Current() (*domain.ModelBundle, error) {
	bundle := r.current.Load()
	if bundle == nil {
		return nil, domain.ErrModelUnavailable
	}
	return bundle, nil
}

// Loaded reports whether a bundle is installed.
func (r *Registry) Loaded() bool {
	return r.current.Load() != nil
}
