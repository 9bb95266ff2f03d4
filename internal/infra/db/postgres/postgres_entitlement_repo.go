package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"usdt-storefront/internal/domain"
	"usdt-storefront/internal/domain/model"
	"usdt-storefront/internal/domain/ports/repository"
)

var _ repository.EntitlementRepository = (*entitlementRepo)(nil)

type entitlementRepo struct{ pool *pgxpool.Pool }

func NewEntitlementRepo(pool *pgxpool.Pool) *entitlementRepo {
	return &entitlementRepo{pool: pool}
}

const entitlementColumns = `id, user_id, product_id, order_id, expires_at, active, trial, created_at`

func (r *entitlementRepo) Save(ctx context.Context, tx repository.Tx, e *model.Entitlement) error {
	const q = `
INSERT INTO entitlements (
  id, user_id, product_id, order_id, expires_at, active, trial, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8
) ON CONFLICT (id) DO UPDATE SET
  expires_at=$5, active=$6;`

	_, err := execSQL(ctx, r.pool, tx, q,
		e.ID, e.UserID, e.ProductID, e.OrderID, e.ExpiresAt, e.Active, e.Trial, e.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func scanEntitlement(row pgx.Row) (*model.Entitlement, error) {
	e := &model.Entitlement{}
	if err := row.Scan(&e.ID, &e.UserID, &e.ProductID, &e.OrderID, &e.ExpiresAt, &e.Active, &e.Trial, &e.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return e, nil
}

func (r *entitlementRepo) FindByOrder(ctx context.Context, tx repository.Tx, orderID string) (*model.Entitlement, error) {
	const q = `SELECT ` + entitlementColumns + ` FROM entitlements WHERE order_id=$1 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, orderID)
	if err != nil {
		return nil, err
	}
	return scanEntitlement(row)
}

func (r *entitlementRepo) ListActiveByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Entitlement, error) {
	const q = `SELECT ` + entitlementColumns + ` FROM entitlements WHERE user_id=$1 AND active ORDER BY created_at DESC;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Entitlement
	for rows.Next() {
		e, err := scanEntitlement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *entitlementRepo) DeactivateExpired(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	const q = `UPDATE entitlements SET active=false WHERE active AND expires_at IS NOT NULL AND expires_at < $1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, now)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return 0, err
		}
		return 0, domain.ErrOperationFailed
	}
	return int(cmd.RowsAffected()), nil
}
