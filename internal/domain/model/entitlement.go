package model

import (
	"time"

	"usdt-storefront/internal/domain"
)

// Entitlement grants a user access to a product. Created exactly once per
// settled order by the settlement engine; afterwards mutated only by the
// expiry sweeper (deactivation).
type Entitlement struct {
	ID        string
	UserID    string
	ProductID string
	OrderID   string
	ExpiresAt *time.Time // nil = perpetual (one-time purchases)
	Active    bool
	Trial     bool
	CreatedAt time.Time
}

// NewEntitlement builds the entitlement for a settled order, copying the
// order's expiry.
func NewEntitlement(order *Order) (*Entitlement, error) {
	if order == nil || !order.Status.Settled() {
		return nil, domain.ErrInvalidArgument
	}
	return &Entitlement{
		ID:        NewID(),
		UserID:    order.UserID,
		ProductID: order.ProductID,
		OrderID:   order.ID,
		ExpiresAt: order.EntitlementExpiry,
		Active:    true,
		Trial:     order.Kind == PaymentKindTrial,
		CreatedAt: time.Now().UTC(),
	}, nil
}
