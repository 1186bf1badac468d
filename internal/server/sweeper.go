package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/nexauth/nexauth/internal/domain/oidc"
	"github.com/nexauth/nexauth/internal/domain/session"
)

// Sweeper periodically deletes expired sessions and authorization codes so
// the hot tables stay small without a dedicated cron job.
type Sweeper struct {
	sessions session.Service
	oidc     oidc.ServiceInterface
	interval time.Duration
}

// NewSweeper creates a Sweeper running every interval
func NewSweeper(sessions session.Service, oidcService oidc.ServiceInterface, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{
		sessions: sessions,
		oidc:     oidcService,
		interval: interval,
	}
}

// Run blocks until ctx is cancelled, sweeping once per interval
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Sweeper) sweep() {
	sessions, err := s.sessions.SweepExpired()
	if err != nil {
		slog.Warn("Session sweep failed", "error", err)
	}

	codes, err := s.oidc.SweepExpiredCodes()
	if err != nil {
		slog.Warn("Authorization code sweep failed", "error", err)
	}

	if sessions > 0 || codes > 0 {
		slog.Info("Swept expired records", "sessions", sessions, "codes", codes)
	}
}
