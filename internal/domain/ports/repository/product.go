package repository

import (
	"context"

	"usdt-storefront/internal/domain/model"
)

type ProductRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Product) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Product, error)
	ListActive(ctx context.Context, tx Tx) ([]*model.Product, error)

	// DecrementStock subtracts qty from the stored quantity only when the
	// stored value is positive (non-positive stock is the unlimited sentinel).
	DecrementStock(ctx context.Context, tx Tx, id string, qty int) error
}
