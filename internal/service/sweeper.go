package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/vyomverma2873-dotcom/quicksnack-auth/internal/repository"
)

// Sweeper periodically removes expired tickets. Verification checks expiry
// on read, so the sweeper only reclaims storage; correctness never depends
// on it having run.
type Sweeper struct {
	tickets  repository.TicketRepository
	interval time.Duration
	logger   *slog.Logger
}

// NewSweeper creates a sweeper that runs every interval.
func NewSweeper(tickets repository.TicketRepository, interval time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		tickets:  tickets,
		interval: interval,
		logger:   logger,
	}
}

// Run sweeps until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	removed, err := s.tickets.DeleteExpired(ctx, time.Now().UTC())
	if err != nil {
		s.logger.ErrorContext(ctx, "ticket sweep failed",
			slog.String("error", err.Error()),
		)
		return
	}

	if removed > 0 {
		otpTicketsSweptTotal.Add(float64(removed))
		s.logger.InfoContext(ctx, "swept expired tickets",
			slog.Int64("removed", removed),
		)
	}
}
