package services

import (
	"context"
	"time"

	"btg-funds/internal/pkg/metrics"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// DefaultSweepSchedule runs the sweeper hourly
const DefaultSweepSchedule = "@every 1h"

// TokenSweeper periodically deletes refresh tokens that expired more than retention ago
type TokenSweeper struct {
	users     UserStore
	schedule  string
	retention time.Duration
	cron      *cron.Cron
	now       func() time.Time
	log       zerolog.Logger
}

// NewTokenSweeper creates a sweeper running on the given cron schedule
func NewTokenSweeper(users UserStore, schedule string, retention time.Duration, logger zerolog.Logger) *TokenSweeper {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	return &TokenSweeper{
		users:     users,
		schedule:  schedule,
		retention: retention,
		cron:      cron.New(),
		now:       time.Now,
		log:       logger.With().Str("component", "token_sweeper").Logger(),
	}
}

// Start registers the sweep job and starts the scheduler
func (s *TokenSweeper) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := s.Sweep(context.Background()); err != nil {
			s.log.Error().Err(err).Msg("❌ Refresh token sweep failed")
		}
	}); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info().Str("schedule", s.schedule).Msg("🚀 Token sweeper started")
	return nil
}

// Stop stops the scheduler and waits for a running sweep
func (s *TokenSweeper) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info().Msg("🛑 Token sweeper stopped")
}

// Sweep deletes every refresh token whose expiry is older than the retention window
func (s *TokenSweeper) Sweep(ctx context.Context) (int64, error) {
	removed, err := s.users.DeleteExpiredRefreshTokens(ctx, s.now().Add(-s.retention))
	if err != nil {
		return 0, err
	}
	metrics.RecordSweptTokens(removed)
	if removed > 0 {
		s.log.Info().Int64("removed", removed).Msg("✅ Expired refresh tokens swept")
	}
	return removed, nil
}
