package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/shopspring/decimal"

	"usdt-storefront/internal/domain"
	"usdt-storefront/internal/domain/model"
	"usdt-storefront/internal/domain/ports/repository"
)

var _ repository.OrderRepository = (*orderRepo)(nil)

type orderRepo struct{ pool *pgxpool.Pool }

func NewOrderRepo(pool *pgxpool.Pool) *orderRepo {
	return &orderRepo{pool: pool}
}

const orderColumns = `id, code, user_id, product_id, promo_code_id, quantity, amount_micros, original_micros, discount_micros, kind, status, tx_ref, form_data, payment_deadline, entitlement_expiry, created_at`

func (r *orderRepo) Save(ctx context.Context, tx repository.Tx, o *model.Order) error {
	const q = `
INSERT INTO orders (
  id, code, user_id, product_id, promo_code_id, quantity, amount_micros, original_micros, discount_micros, kind, status, tx_ref, form_data, payment_deadline, entitlement_expiry, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16
) ON CONFLICT (id) DO UPDATE SET
  promo_code_id=$5, quantity=$6, amount_micros=$7, original_micros=$8, discount_micros=$9, kind=$10, status=$11, tx_ref=$12, form_data=$13, payment_deadline=$14, entitlement_expiry=$15;`

	_, err := execSQL(ctx, r.pool, tx, q,
		o.ID, o.Code, o.UserID, o.ProductID, o.PromoCodeID, o.Quantity,
		toMicros(o.Amount), toMicros(o.OriginalAmount), toMicros(o.DiscountAmount),
		o.Kind, o.Status, o.TxRef, o.FormData, o.PaymentDeadline, o.EntitlementExpiry, o.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	o := &model.Order{}
	var amount, original, discount int64
	if err := row.Scan(&o.ID, &o.Code, &o.UserID, &o.ProductID, &o.PromoCodeID, &o.Quantity,
		&amount, &original, &discount, &o.Kind, &o.Status, &o.TxRef, &o.FormData,
		&o.PaymentDeadline, &o.EntitlementExpiry, &o.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	o.Amount = fromMicros(amount)
	o.OriginalAmount = fromMicros(original)
	o.DiscountAmount = fromMicros(discount)
	return o, nil
}

func (r *orderRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", id)
	if err != nil {
		return nil, err
	}
	return scanOrder(row)
}

func (r *orderRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE code=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", code)
	if err != nil {
		return nil, err
	}
	return scanOrder(row)
}

func (r *orderRepo) ListPendingWithinWindow(ctx context.Context, tx repository.Tx, now time.Time, limit int) ([]*model.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + orderColumns + ` FROM orders WHERE status='pending' AND payment_deadline > $1 ORDER BY created_at ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, now, limit)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *orderRepo) ExpireStalePending(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	const q = `UPDATE orders SET status='expired' WHERE status='pending' AND payment_deadline < $1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, now)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return 0, err
		}
		return 0, domain.ErrOperationFailed
	}
	return int(cmd.RowsAffected()), nil
}

// UpdateStatusFrom is the settlement engine's compare-and-swap: the UPDATE
// succeeds only when the stored status still equals `from`, so concurrent
// callers racing on the same order see exactly one RowsAffected()==1.
func (r *orderRepo) UpdateStatusFrom(ctx context.Context, tx repository.Tx, id string, from, to model.OrderStatus, txRef *string) (bool, error) {
	const q = `
UPDATE orders
   SET status = $3,
       tx_ref = COALESCE($4, tx_ref)
 WHERE id = $1
   AND status = $2;`

	cmd, err := execSQL(ctx, r.pool, tx, q, id, from, to, txRef)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *orderRepo) CountTrialOrders(ctx context.Context, tx repository.Tx, userID string, productID *string) (int, error) {
	q := `SELECT COUNT(*) FROM orders WHERE user_id=$1 AND status IN ('trial_requested','trial_granted')`
	args := []interface{}{userID}
	if productID != nil {
		q += ` AND product_id=$2`
		args = append(args, *productID)
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", args...)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}

func (r *orderRepo) HasSettledPromoUse(ctx context.Context, tx repository.Tx, userID, promoID string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM orders WHERE user_id=$1 AND promo_code_id=$2 AND status='paid');`
	row, err := pickRow(ctx, r.pool, tx, q, userID, promoID)
	if err != nil {
		return false, err
	}
	var used bool
	if err := row.Scan(&used); err != nil {
		return false, domain.ErrReadDatabaseRow
	}
	return used, nil
}

func (r *orderRepo) List(ctx context.Context, tx repository.Tx, offset, limit int) ([]*model.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC OFFSET $1 LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, offset, limit)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *orderRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.OrderStatus]int, error) {
	const q = `SELECT status, COUNT(*) FROM orders GROUP BY status;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	out := make(map[model.OrderStatus]int)
	for rows.Next() {
		var status model.OrderStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out[status] = n
	}
	return out, rows.Err()
}

func (r *orderRepo) SumPaidAmount(ctx context.Context, tx repository.Tx, since time.Time) (decimal.Decimal, error) {
	const q = `SELECT COALESCE(SUM(amount_micros),0) FROM orders WHERE status='paid' AND created_at >= $1;`
	row, err := pickRow(ctx, r.pool, tx, q, since)
	if err != nil {
		return decimal.Zero, err
	}
	var micros int64
	if err := row.Scan(&micros); err != nil {
		return decimal.Zero, domain.ErrReadDatabaseRow
	}
	return fromMicros(micros), nil
}
