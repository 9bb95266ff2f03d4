package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"usdt-storefront/internal/usecase"
)

// ExpiryWorker periodically deactivates entitlements past their expiry.
type ExpiryWorker struct {
	interval  time.Duration
	sweeperUC usecase.SweeperUseCase
	log       *zerolog.Logger
}

func NewExpiryWorker(interval time.Duration, sweeperUC usecase.SweeperUseCase, logger *zerolog.Logger) *ExpiryWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	exprLog := logger.With().Str("component", "ExpiryWorker").Logger()
	return &ExpiryWorker{
		interval:  interval,
		sweeperUC: sweeperUC,
		log:       &exprLog,
	}
}

func (w *ExpiryWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting expiry worker")
	// Run once on startup, then on every tick
	w.sweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping expiry worker")
			return ctx.Err()
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *ExpiryWorker) sweep(ctx context.Context) {
	if _, err := w.sweeperUC.DeactivateExpired(ctx); err != nil {
		w.log.Error().Err(err).Msg("entitlement sweep failed")
	}
}
