package repository

import (
	"context"
	"time"

	"usdt-storefront/internal/domain/model"
)

type EntitlementRepository interface {
	Save(ctx context.Context, tx Tx, e *model.Entitlement) error
	FindByOrder(ctx context.Context, tx Tx, orderID string) (*model.Entitlement, error)
	ListActiveByUser(ctx context.Context, tx Tx, userID string) ([]*model.Entitlement, error)

	// DeactivateExpired flips active=false on every entitlement whose expiry
	// is before now. Idempotent; returns the number of rows updated.
	DeactivateExpired(ctx context.Context, tx Tx, now time.Time) (int, error)
}
