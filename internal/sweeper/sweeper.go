// Package sweeper runs the periodic expiration pass over earned points.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/loyaltyhub/points-ledger/internal/ledger"
)

// Sweeper triggers the ledger's expiration sweep on a fixed interval. An
// external scheduler can also trigger sweeps through the HTTP API; both
// paths converge on the same serialized service call.
type Sweeper struct {
	svc      *ledger.Service
	interval time.Duration
}

// New creates a new Sweeper.
func New(svc *ledger.Service, interval time.Duration) *Sweeper {
	return &Sweeper{
		svc:      svc,
		interval: interval,
	}
}

// Start begins the sweep loop. It blocks until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	slog.Info("expiration sweeper started", "interval", s.interval.String())
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("expiration sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	result, err := s.svc.SweepExpired(ctx)
	if err != nil {
		slog.Error("expiration sweep failed", "error", err)
		return
	}

	if result.EntriesExpired == 0 {
		slog.Debug("expiration sweep found nothing to expire")
		return
	}

	slog.Info("expiration sweep completed",
		"members", result.MembersSwept,
		"entries", result.EntriesExpired,
		"points", result.PointsExpired,
	)
}
