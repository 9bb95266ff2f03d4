package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"usdt-storefront/internal/domain"
	"usdt-storefront/internal/domain/model"
	"usdt-storefront/internal/domain/ports/repository"
)

var _ repository.ProductRepository = (*productRepo)(nil)

type productRepo struct{ pool *pgxpool.Pool }

func NewProductRepo(pool *pgxpool.Pool) *productRepo {
	return &productRepo{pool: pool}
}

const productColumns = `id, name, description, price_micros, kind, subscription_days, trial_days, stock, max_trial_per_user, form_fields, active, created_at`

func (r *productRepo) Save(ctx context.Context, tx repository.Tx, p *model.Product) error {
	const q = `
INSERT INTO products (
  id, name, description, price_micros, kind, subscription_days, trial_days, stock, max_trial_per_user, form_fields, active, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
) ON CONFLICT (id) DO UPDATE SET
  name=$2, description=$3, price_micros=$4, kind=$5, subscription_days=$6, trial_days=$7, stock=$8, max_trial_per_user=$9, form_fields=$10, active=$11;`

	_, err := execSQL(ctx, r.pool, tx, q,
		p.ID, p.Name, p.Description, toMicros(p.Price), p.Kind, p.SubscriptionDays,
		p.TrialDays, p.Stock, p.MaxTrialPerUser, p.FormFields, p.Active, p.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func scanProduct(row pgx.Row) (*model.Product, error) {
	p := &model.Product{}
	var price int64
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &price, &p.Kind, &p.SubscriptionDays,
		&p.TrialDays, &p.Stock, &p.MaxTrialPerUser, &p.FormFields, &p.Active, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	p.Price = fromMicros(price)
	return p, nil
}

func (r *productRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Product, error) {
	const q = `SELECT ` + productColumns + ` FROM products WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanProduct(row)
}

func (r *productRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.Product, error) {
	const q = `SELECT ` + productColumns + ` FROM products WHERE active ORDER BY created_at DESC;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DecrementStock touches only rows with a positive stored quantity; the
// non-positive sentinel (unlimited stock) is left alone.
func (r *productRepo) DecrementStock(ctx context.Context, tx repository.Tx, id string, qty int) error {
	const q = `UPDATE products SET stock = stock - $2 WHERE id=$1 AND stock > 0;`
	_, err := execSQL(ctx, r.pool, tx, q, id, qty)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}
