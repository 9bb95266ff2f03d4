package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"usdt-storefront/internal/domain"
	"usdt-storefront/internal/domain/model"
	"usdt-storefront/internal/domain/ports/adapter"
	"usdt-storefront/internal/domain/ports/repository"
	"usdt-storefront/internal/infra/metrics"
)

// Settlement triggers, recorded in metrics so we can tell which path
// settled an order.
const (
	TriggerMonitor = "monitor" // background payment monitor
	TriggerPoll    = "poll"    // buyer polling the status endpoint
	TriggerManual  = "manual"  // admin override
	TriggerTrial   = "trial"   // trial grant
)

// manualRefLayout is the timestamp baked into admin-override references,
// e.g. MANUAL-20260823143000.
const manualRefLayout = "20060102150405"

// Compile-time check
var _ SettlementUseCase = (*settlementUC)(nil)

// CheckResult is what the status-poll endpoint reports back to the buyer.
type CheckResult struct {
	Status  model.OrderStatus
	Settled bool
	Expired bool
	Message string
}

// SettlementUseCase owns every transition out of the pending and
// trial_requested states. All settlement paths funnel through Settle, whose
// compare-and-swap guard makes concurrent attempts on the same order resolve
// to exactly one applied settlement.
type SettlementUseCase interface {
	// Settle moves a pending order to paid and creates its entitlement,
	// stock decrement and promo usage bump in one transaction. Returns
	// false (no error) when the order was no longer pending.
	Settle(ctx context.Context, orderID, txRef, trigger string) (bool, error)
	// ConfirmManual settles an order without an on-chain transfer, stamping
	// a synthetic MANUAL-<timestamp> reference.
	ConfirmManual(ctx context.Context, orderID string) (bool, error)
	// CancelOrder moves a pending order to cancelled. Admin-only; there is
	// no buyer-facing cancel.
	CancelOrder(ctx context.Context, orderID string) (bool, error)
	// GrantTrial persists a trial_requested order and immediately grants it.
	GrantTrial(ctx context.Context, order *model.Order) error
	// CheckOrder is the buyer-facing poll: lazily expires the order when the
	// payment window has passed, otherwise scans recent transfers and
	// settles on a match.
	CheckOrder(ctx context.Context, userID, code string) (*CheckResult, error)
}

type settlementUC struct {
	orders   repository.OrderRepository
	products repository.ProductRepository
	promos   repository.PromoCodeRepository
	ents     repository.EntitlementRepository
	users    repository.UserRepository
	observer adapter.ChainObserver
	sink     adapter.NotificationSink
	tm       repository.TransactionManager

	wallet   string
	lookback time.Duration

	log *zerolog.Logger
}

func NewSettlementUseCase(
	orders repository.OrderRepository,
	products repository.ProductRepository,
	promos repository.PromoCodeRepository,
	ents repository.EntitlementRepository,
	users repository.UserRepository,
	observer adapter.ChainObserver,
	sink adapter.NotificationSink,
	tm repository.TransactionManager,
	wallet string,
	lookback time.Duration,
	logger *zerolog.Logger,
) *settlementUC {
	ucLog := logger.With().Str("component", "SettlementUseCase").Logger()
	return &settlementUC{
		orders:   orders,
		products: products,
		promos:   promos,
		ents:     ents,
		users:    users,
		observer: observer,
		sink:     sink,
		tm:       tm,
		wallet:   wallet,
		lookback: lookback,
		log:      &ucLog,
	}
}

func (u *settlementUC) Settle(ctx context.Context, orderID, txRef, trigger string) (bool, error) {
	var settled *model.Order
	applied := false

	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		ok, err := u.orders.UpdateStatusFrom(ctx, tx, orderID, model.OrderStatusPending, model.OrderStatusPaid, &txRef)
		if err != nil {
			return err
		}
		if !ok {
			// Lost the race or the order already left pending; not an error.
			return nil
		}
		order, err := u.orders.FindByID(ctx, tx, orderID)
		if err != nil {
			return err
		}
		ent, err := model.NewEntitlement(order)
		if err != nil {
			return err
		}
		if err := u.ents.Save(ctx, tx, ent); err != nil {
			return err
		}
		if err := u.products.DecrementStock(ctx, tx, order.ProductID, order.Quantity); err != nil {
			return err
		}
		if order.PromoCodeID != nil {
			if err := u.promos.IncrementUsage(ctx, tx, *order.PromoCodeID); err != nil {
				return err
			}
		}
		settled = order
		applied = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("settle order %s: %w", orderID, err)
	}
	if !applied {
		return false, nil
	}

	metrics.IncOrderSettled(trigger)
	metrics.AddSettlementRevenue(settled.Amount.InexactFloat64())
	u.log.Info().
		Str("order_code", settled.Code).
		Str("tx_ref", txRef).
		Str("trigger", trigger).
		Str("amount", settled.Amount.String()).
		Msg("order settled")

	u.notify(ctx, settled)
	return true, nil
}

func (u *settlementUC) ConfirmManual(ctx context.Context, orderID string) (bool, error) {
	ref := "MANUAL-" + time.Now().UTC().Format(manualRefLayout)
	return u.Settle(ctx, orderID, ref, TriggerManual)
}

func (u *settlementUC) CancelOrder(ctx context.Context, orderID string) (bool, error) {
	ok, err := u.orders.UpdateStatusFrom(ctx, repository.NoTX, orderID, model.OrderStatusPending, model.OrderStatusCancelled, nil)
	if err != nil {
		return false, fmt.Errorf("cancel order %s: %w", orderID, err)
	}
	if ok {
		u.log.Info().Str("order_id", orderID).Msg("order cancelled")
	}
	return ok, nil
}

func (u *settlementUC) GrantTrial(ctx context.Context, order *model.Order) error {
	if order == nil || order.Status != model.OrderStatusTrialRequested {
		return domain.ErrInvalidArgument
	}
	applied := false
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := u.orders.Save(ctx, tx, order); err != nil {
			return err
		}
		ok, err := u.orders.UpdateStatusFrom(ctx, tx, order.ID, model.OrderStatusTrialRequested, model.OrderStatusTrialGranted, nil)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		order.Status = model.OrderStatusTrialGranted
		ent, err := model.NewEntitlement(order)
		if err != nil {
			return err
		}
		if err := u.ents.Save(ctx, tx, ent); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return fmt.Errorf("grant trial %s: %w", order.Code, err)
	}
	if !applied {
		return nil
	}

	metrics.IncOrderSettled(TriggerTrial)
	u.log.Info().Str("order_code", order.Code).Msg("trial granted")
	u.notify(ctx, order)
	return nil
}

// checkResultFor maps an order's current status to the poll response.
func checkResultFor(order *model.Order) *CheckResult {
	switch order.Status {
	case model.OrderStatusPaid, model.OrderStatusTrialGranted:
		return &CheckResult{Status: order.Status, Settled: true, Message: "payment confirmed"}
	case model.OrderStatusExpired:
		return &CheckResult{Status: order.Status, Expired: true, Message: "payment window has expired"}
	case model.OrderStatusCancelled:
		return &CheckResult{Status: order.Status, Message: "order was cancelled"}
	default:
		return &CheckResult{Status: order.Status, Message: "payment not found yet"}
	}
}

func (u *settlementUC) CheckOrder(ctx context.Context, userID, code string) (*CheckResult, error) {
	order, err := u.orders.FindByCode(ctx, repository.NoTX, code)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, domain.ErrNotOrderOwner
	}

	if order.Status != model.OrderStatusPending {
		return checkResultFor(order), nil
	}

	// Expiry is checked before the chain is consulted: a transfer that lands
	// after the deadline does not resurrect the order.
	now := time.Now().UTC()
	if order.PaymentWindowElapsed(now) {
		ok, err := u.orders.UpdateStatusFrom(ctx, repository.NoTX, order.ID, model.OrderStatusPending, model.OrderStatusExpired, nil)
		if err != nil {
			return nil, err
		}
		if ok {
			metrics.IncOrderExpired()
			u.log.Info().Str("order_code", order.Code).Msg("order expired on poll")
		}
		return &CheckResult{Status: model.OrderStatusExpired, Expired: true, Message: "payment window has expired"}, nil
	}

	since := order.CreatedAt.Add(-u.lookback)
	transfers, err := u.observer.FetchTransfers(ctx, u.wallet, since)
	if err != nil {
		// Best-effort: the buyer keeps polling, the monitor keeps running.
		u.log.Warn().Err(err).Str("order_code", order.Code).Msg("transfer fetch failed during poll")
		transfers = nil
	}
	tr := FindSettlingTransfer(order, u.wallet, u.lookback, transfers)
	if tr == nil {
		return &CheckResult{Status: model.OrderStatusPending, Message: "payment not found yet"}, nil
	}

	applied, err := u.Settle(ctx, order.ID, tr.Hash, TriggerPoll)
	if err != nil {
		return nil, err
	}
	if applied {
		return &CheckResult{Status: model.OrderStatusPaid, Settled: true, Message: "payment confirmed"}, nil
	}
	// Lost the CAS: a concurrent settle, an admin cancel or the expiry sweep
	// got there first. Report whatever the order actually became.
	order, err = u.orders.FindByID(ctx, repository.NoTX, order.ID)
	if err != nil {
		return nil, err
	}
	return checkResultFor(order), nil
}

// notify delivers the confirmed-order event. Failures are logged and
// swallowed; settlement has already committed.
func (u *settlementUC) notify(ctx context.Context, order *model.Order) {
	if u.sink == nil {
		return
	}
	user, err := u.users.FindByID(ctx, repository.NoTX, order.UserID)
	if err != nil {
		u.log.Warn().Err(err).Str("order_code", order.Code).Msg("notification skipped: user lookup failed")
		return
	}
	product, err := u.products.FindByID(ctx, repository.NoTX, order.ProductID)
	if err != nil {
		u.log.Warn().Err(err).Str("order_code", order.Code).Msg("notification skipped: product lookup failed")
		return
	}
	var promo *model.PromoCode
	if order.PromoCodeID != nil {
		promo, err = u.promos.FindByID(ctx, repository.NoTX, *order.PromoCodeID)
		if err != nil {
			// The notification still goes out, just without the code.
			u.log.Warn().Err(err).Str("order_code", order.Code).Msg("promo lookup failed for notification")
			promo = nil
		}
	}
	ev := adapter.OrderConfirmedEvent{Order: order, User: user, Product: product, Promo: promo, FormData: order.FormData}
	if err := u.sink.OrderConfirmed(ctx, ev); err != nil {
		u.log.Warn().Err(err).Str("order_code", order.Code).Msg("notification delivery failed")
	}
}
