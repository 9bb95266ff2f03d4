package usecase

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"usdt-storefront/internal/domain/model"
	"usdt-storefront/internal/domain/ports/adapter"
)

// paymentTolerance allows a transfer to undershoot the requested amount by
// 1% (rounding and fee slippage). Asymmetric: overpayment is always accepted.
var paymentTolerance = decimal.RequireFromString("0.99")

// FindSettlingTransfer returns the first transfer (in provider order) that
// satisfies the order: confirmed, addressed to the receiving wallet
// (case-insensitive), landed no earlier than lookback before the order was
// created, and at least order.Amount * 0.99. Nil when none qualifies.
//
// The time bound is enforced per order, not per fetch: a batched fetch may
// span several orders' windows, and a transfer that predates an order's own
// window must never settle it.
func FindSettlingTransfer(order *model.Order, wallet string, lookback time.Duration, transfers []adapter.Transfer) *adapter.Transfer {
	required := order.Amount.Mul(paymentTolerance)
	notBefore := order.CreatedAt.Add(-lookback)
	for i := range transfers {
		tr := &transfers[i]
		if !tr.Confirmed {
			continue
		}
		if tr.Timestamp.Before(notBefore) {
			continue
		}
		if !strings.EqualFold(tr.To, wallet) {
			continue
		}
		if tr.Amount.LessThan(required) {
			continue
		}
		return tr
	}
	return nil
}
