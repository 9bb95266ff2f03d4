package sched

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"usdt-storefront/internal/domain/ports/adapter"
	"usdt-storefront/internal/domain/ports/repository"
	"usdt-storefront/internal/infra/metrics"
	"usdt-storefront/internal/usecase"
)

// PaymentMonitor is the background settlement loop: every tick it expires
// stale pending orders, fetches recent wallet transfers once, and settles
// every pending order a transfer matches. This covers buyers who paid and
// closed the tab without ever polling.
type PaymentMonitor struct {
	orders   repository.OrderRepository
	observer adapter.ChainObserver
	settleUC usecase.SettlementUseCase

	wallet     string
	lookback   time.Duration
	interval   time.Duration
	retryDelay time.Duration

	started atomic.Bool
	log     *zerolog.Logger
}

func NewPaymentMonitor(
	orders repository.OrderRepository,
	observer adapter.ChainObserver,
	settleUC usecase.SettlementUseCase,
	wallet string,
	lookback, interval, retryDelay time.Duration,
	logger *zerolog.Logger,
) *PaymentMonitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if retryDelay <= 0 {
		retryDelay = interval
	}
	monLog := logger.With().Str("component", "PaymentMonitor").Logger()
	return &PaymentMonitor{
		orders:     orders,
		observer:   observer,
		settleUC:   settleUC,
		wallet:     wallet,
		lookback:   lookback,
		interval:   interval,
		retryDelay: retryDelay,
		log:        &monLog,
	}
}

// Run blocks until ctx is cancelled. Calling it twice is a no-op: there is
// never more than one monitor loop per process.
func (w *PaymentMonitor) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		w.log.Warn().Msg("payment monitor already running")
		return nil
	}
	w.log.Info().Dur("interval", w.interval).Msg("Starting payment monitor")

	timer := time.NewTimer(w.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping payment monitor")
			return ctx.Err()
		case <-timer.C:
			delay := w.interval
			if !w.tick(ctx) {
				delay = w.retryDelay
			}
			timer.Reset(delay)
		}
	}
}

// tick runs one settlement pass. Panics are contained to the tick so one bad
// pass never kills the loop. Returns false when any part of the pass failed,
// so Run moves to the fallback delay before the next attempt.
func (w *PaymentMonitor) tick(ctx context.Context) (ok bool) {
	ok = true
	defer func() {
		if r := recover(); r != nil {
			w.log.Error().Interface("panic", r).Msg("payment monitor tick panicked")
			ok = false
		}
	}()

	now := time.Now().UTC()
	if n, err := w.orders.ExpireStalePending(ctx, repository.NoTX, now); err != nil {
		w.log.Error().Err(err).Msg("expire stale pending orders failed")
		ok = false
	} else if n > 0 {
		metrics.AddOrdersExpired(n)
		w.log.Info().Int("count", n).Msg("stale pending orders expired")
	}

	pending, err := w.orders.ListPendingWithinWindow(ctx, repository.NoTX, now, 200)
	if err != nil {
		w.log.Error().Err(err).Msg("list pending orders failed")
		return false
	}
	if len(pending) == 0 {
		return ok
	}

	// One provider call per tick: look back from the oldest open order. The
	// matcher re-applies the window per order, so a transfer fetched for an
	// old order cannot settle a newer one it predates.
	since := pending[0].CreatedAt.Add(-w.lookback)
	transfers, err := w.observer.FetchTransfers(ctx, w.wallet, since)
	if err != nil {
		w.log.Warn().Err(err).Msg("transfer fetch failed, backing off")
		return false
	}
	if len(transfers) == 0 {
		return ok
	}

	// A transfer settles at most one order per tick.
	claimed := make(map[string]bool, len(transfers))
	for _, order := range pending {
		tr := usecase.FindSettlingTransfer(order, w.wallet, w.lookback, transfers)
		if tr == nil || claimed[tr.Hash] {
			continue
		}
		applied, err := w.settleUC.Settle(ctx, order.ID, tr.Hash, usecase.TriggerMonitor)
		if err != nil {
			w.log.Error().Err(err).Str("order_code", order.Code).Msg("settlement failed")
			continue
		}
		if applied {
			claimed[tr.Hash] = true
		}
	}
	return ok
}
