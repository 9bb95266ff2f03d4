package adapter

import (
	"context"

	"usdt-storefront/internal/domain/model"
)

// OrderConfirmedEvent is the payload handed to the notification sink after a
// settlement commits. FormData is the buyer's opaque payload, passed through
// unparsed. Promo is nil when the order carried no code.
type OrderConfirmedEvent struct {
	Order    *model.Order
	User     *model.User
	Product  *model.Product
	Promo    *model.PromoCode
	FormData []byte
}

// NotificationSink consumes confirmed-order events. Delivery is one-way and
// best-effort: the settlement engine logs failures and never retries.
type NotificationSink interface {
	OrderConfirmed(ctx context.Context, ev OrderConfirmedEvent) error
}
