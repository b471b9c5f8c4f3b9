// internal/service/sweeper.go
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper runs the two background reconciliation jobs on a cron schedule:
// the expiry sweep, which persists the EXPIRED status for cards past their
// expiry date, and the stale-pending sweep, which fails PENDING transactions
// abandoned by a crash.
type Sweeper struct {
	cards       CardService
	transfers   TransferService
	staleCutoff time.Duration
	cron        *cron.Cron
	logger      *slog.Logger
}

// NewSweeper creates a Sweeper. staleCutoff is how long a transaction may
// stay PENDING before the sweep reconciles it to FAILED.
func NewSweeper(cards CardService, transfers TransferService, staleCutoff time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		cards:       cards,
		transfers:   transfers,
		staleCutoff: staleCutoff,
		cron:        cron.New(),
		logger:      logger,
	}
}

// Start registers both sweeps on the given cron spec and starts the
// scheduler.
func (s *Sweeper) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.runExpiry); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(spec, s.runStalePending); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("sweeper started", "schedule", spec, "stale_cutoff", s.staleCutoff.String())
	return nil
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("sweeper stopped")
}

// RunExpiry executes the expiry sweep once, as of now. Exposed for the
// manual admin trigger.
func (s *Sweeper) RunExpiry(ctx context.Context) (int, error) {
	return s.cards.SweepExpired(ctx, time.Now().UTC())
}

// RunStalePending executes the stale-pending sweep once. Exposed for the
// manual admin trigger.
func (s *Sweeper) RunStalePending(ctx context.Context) (int, error) {
	return s.transfers.SweepStalePending(ctx, time.Now().UTC().Add(-s.staleCutoff))
}

func (s *Sweeper) runExpiry() {
	if _, err := s.RunExpiry(context.Background()); err != nil {
		s.logger.Error("scheduled expiry sweep failed", "error", err)
	}
}

func (s *Sweeper) runStalePending() {
	if _, err := s.RunStalePending(context.Background()); err != nil {
		s.logger.Error("scheduled stale-pending sweep failed", "error", err)
	}
}
