package model

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Reloader replaces the installed model bundle.
type Reloader interface {
	Reload(ctx context.Context) error
}

// ReloadScheduler runs a Reloader on a cron schedule.
type ReloadScheduler struct {
	cron     *cron.Cron
	reloader Reloader
	logger   *logrus.Logger
	timeout  time.Duration
}

// NewReloadScheduler registers a reload job for spec, a standard five-field
// cron expression or a descriptor such as "@every 1h".
func NewReloadScheduler(spec string, reloader Reloader, logger *logrus.Logger) (*ReloadScheduler, error) {
	s := &ReloadScheduler{
		cron:     cron.New(),
		reloader: reloader,
		logger:   logger,
		timeout:  time.Minute,
	}

	if _, err := s.cron.AddFunc(spec, s.reload); err != nil {
		return nil, fmt.Errorf("invalid reload schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *ReloadScheduler) reload() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.reloader.Reload(ctx); err != nil {
		s.logger.WithError(err).Warn("Scheduled model reload failed, keeping previous bundle")
	}
}

// Start runs the scheduler in its own goroutine.
func (s *ReloadScheduler) Start() {
	s.cron.Start()
	s.logger.WithField("jobs", len(s.cron.Entries())).Info("Model reload scheduler started")
}

// Stop halts the scheduler and waits for a running reload to finish.
func (s *ReloadScheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Model reload scheduler stopped")
}
