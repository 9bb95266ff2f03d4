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

var _ repository.PromoCodeRepository = (*promoRepo)(nil)

type promoRepo struct{ pool *pgxpool.Pool }

func NewPromoCodeRepo(pool *pgxpool.Pool) *promoRepo {
	return &promoRepo{pool: pool}
}

const promoColumns = `id, code, type, value_micros, product_id, usage_limit, used_count, valid_from, valid_until, active, created_at`

func (r *promoRepo) Save(ctx context.Context, tx repository.Tx, p *model.PromoCode) error {
	const q = `
INSERT INTO promo_codes (
  id, code, type, value_micros, product_id, usage_limit, used_count, valid_from, valid_until, active, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
) ON CONFLICT (id) DO UPDATE SET
  code=$2, type=$3, value_micros=$4, product_id=$5, usage_limit=$6, used_count=$7, valid_from=$8, valid_until=$9, active=$10;`

	_, err := execSQL(ctx, r.pool, tx, q,
		p.ID, p.Code, p.Type, toMicros(p.Value), p.ProductID, p.UsageLimit,
		p.UsedCount, p.ValidFrom, p.ValidUntil, p.Active, p.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func scanPromo(row pgx.Row) (*model.PromoCode, error) {
	p := &model.PromoCode{}
	var value int64
	if err := row.Scan(&p.ID, &p.Code, &p.Type, &value, &p.ProductID, &p.UsageLimit,
		&p.UsedCount, &p.ValidFrom, &p.ValidUntil, &p.Active, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	p.Value = fromMicros(value)
	return p, nil
}

func (r *promoRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PromoCode, error) {
	const q = `SELECT ` + promoColumns + ` FROM promo_codes WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanPromo(row)
}

func (r *promoRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.PromoCode, error) {
	const q = `SELECT ` + promoColumns + ` FROM promo_codes WHERE code=$1 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, code)
	if err != nil {
		return nil, err
	}
	return scanPromo(row)
}

func (r *promoRepo) IncrementUsage(ctx context.Context, tx repository.Tx, id string) error {
	const q = `UPDATE promo_codes SET used_count = used_count + 1 WHERE id=$1;`
	_, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}
