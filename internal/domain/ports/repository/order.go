package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"usdt-storefront/internal/domain/model"
)

// OrderRepository persists orders. Status transitions are compare-and-swap
// updates: they succeed only when the stored status matches the expected
// source state, which is the settlement engine's sole concurrency guard.
type OrderRepository interface {
	Save(ctx context.Context, tx Tx, o *model.Order) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Order, error)
	FindByCode(ctx context.Context, tx Tx, code string) (*model.Order, error)

	// ListPendingWithinWindow returns pending orders whose payment deadline
	// has not yet passed, oldest first.
	ListPendingWithinWindow(ctx context.Context, tx Tx, now time.Time, limit int) ([]*model.Order, error)

	// ExpireStalePending moves every pending order whose payment deadline has
	// passed to expired. Idempotent; returns the number of rows updated.
	ExpireStalePending(ctx context.Context, tx Tx, now time.Time) (int, error)

	// UpdateStatusFrom atomically moves an order from one status to another,
	// recording txRef when provided. Returns false (no error) when the order
	// was not in the expected source status.
	UpdateStatusFrom(ctx context.Context, tx Tx, id string, from, to model.OrderStatus, txRef *string) (bool, error)

	// CountTrialOrders counts trial-status orders for a user; productID nil
	// counts across all products.
	CountTrialOrders(ctx context.Context, tx Tx, userID string, productID *string) (int, error)

	// HasSettledPromoUse reports whether the user already has a settled order
	// that referenced the promo code.
	HasSettledPromoUse(ctx context.Context, tx Tx, userID, promoID string) (bool, error)

	List(ctx context.Context, tx Tx, offset, limit int) ([]*model.Order, error)
	CountByStatus(ctx context.Context, tx Tx) (map[model.OrderStatus]int, error)
	SumPaidAmount(ctx context.Context, tx Tx, since time.Time) (decimal.Decimal, error)
}
