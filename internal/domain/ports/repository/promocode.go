package repository

import (
	"context"

	"usdt-storefront/internal/domain/model"
)

type PromoCodeRepository interface {
	Save(ctx context.Context, tx Tx, p *model.PromoCode) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.PromoCode, error)
	FindByCode(ctx context.Context, tx Tx, code string) (*model.PromoCode, error)

	// IncrementUsage bumps used_count by one. Called exactly once per settled
	// order referencing the code, inside the settlement transaction.
	IncrementUsage(ctx context.Context, tx Tx, id string) error
}
