package model

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"usdt-storefront/internal/domain"
)

type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"         // awaiting an on-chain transfer
	OrderStatusPaid           OrderStatus = "paid"            // settled (matched transfer or manual override)
	OrderStatusExpired        OrderStatus = "expired"         // payment window elapsed without settlement
	OrderStatusCancelled      OrderStatus = "cancelled"       // explicit admin cancel
	OrderStatusTrialRequested OrderStatus = "trial_requested" // trial order created, grant pending
	OrderStatusTrialGranted   OrderStatus = "trial_granted"   // trial entitlement granted
)

// Terminal reports whether no further transition is possible from s.
func (s OrderStatus) Terminal() bool {
	return s != OrderStatusPending && s != OrderStatusTrialRequested
}

// Settled reports whether the order carries an entitlement.
func (s OrderStatus) Settled() bool {
	return s == OrderStatusPaid || s == OrderStatusTrialGranted
}

type PaymentKind string

const (
	PaymentKindOneTime      PaymentKind = "one_time"
	PaymentKindSubscription PaymentKind = "subscription"
	PaymentKindTrial        PaymentKind = "trial"
	PaymentKindUSDTTRC20    PaymentKind = "usdt_trc20"
)

// Order is a single purchase attempt. Amount = OriginalAmount - DiscountAmount,
// clamped at zero. TxRef is set iff the order reached a settled status.
type Order struct {
	ID          string // ULID
	Code        string // external order code, unique, human-shareable
	UserID      string
	ProductID   string
	PromoCodeID *string
	Quantity    int

	Amount         decimal.Decimal
	OriginalAmount decimal.Decimal
	DiscountAmount decimal.Decimal

	Kind   PaymentKind
	Status OrderStatus
	TxRef  *string

	FormData []byte // opaque buyer-supplied payload (JSON blob)

	PaymentDeadline   *time.Time // nil for trial orders
	EntitlementExpiry *time.Time // set for subscription/trial orders
	CreatedAt         time.Time
}

// NewOrderCode returns an external code like ORD-1A2B3C4D.
func NewOrderCode(prefix string) string {
	hex := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return fmt.Sprintf("%s-%s", prefix, hex[:8])
}

// NewID returns a ULID string for entity primary keys.
func NewID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

// NewPendingOrder builds a crypto-transfer order awaiting payment.
// The amount invariant is enforced here: amount = original - discount, floored at zero.
func NewPendingOrder(userID string, product *Product, promoID *string, quantity int, original, discount decimal.Decimal, formData []byte, paymentWindow time.Duration) (*Order, error) {
	if userID == "" || product == nil || quantity <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	amount := original.Sub(discount)
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	now := time.Now().UTC()
	deadline := now.Add(paymentWindow)
	o := &Order{
		ID:              NewID(),
		Code:            NewOrderCode("ORD"),
		UserID:          userID,
		ProductID:       product.ID,
		PromoCodeID:     promoID,
		Quantity:        quantity,
		Amount:          amount,
		OriginalAmount:  original,
		DiscountAmount:  discount,
		Kind:            PaymentKindUSDTTRC20,
		Status:          OrderStatusPending,
		FormData:        formData,
		PaymentDeadline: &deadline,
		CreatedAt:       now,
	}
	if product.Kind == PaymentKindSubscription {
		exp := now.Add(time.Duration(product.SubscriptionDays) * 24 * time.Hour)
		o.EntitlementExpiry = &exp
	}
	return o, nil
}

// NewTrialOrder builds a zero-amount trial order. Trials carry no payment
// window and start in trial_requested; the settlement engine grants them.
func NewTrialOrder(userID string, product *Product, formData []byte) (*Order, error) {
	if userID == "" || product == nil {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now().UTC()
	exp := now.Add(time.Duration(product.TrialDays) * 24 * time.Hour)
	return &Order{
		ID:                NewID(),
		Code:              NewOrderCode("TRIAL"),
		UserID:            userID,
		ProductID:         product.ID,
		Quantity:          1,
		Amount:            decimal.Zero,
		OriginalAmount:    decimal.Zero,
		DiscountAmount:    decimal.Zero,
		Kind:              PaymentKindTrial,
		Status:            OrderStatusTrialRequested,
		FormData:          formData,
		EntitlementExpiry: &exp,
		CreatedAt:         now,
	}, nil
}

// PaymentWindowElapsed reports whether the order is still pending but its
// payment deadline has passed.
func (o *Order) PaymentWindowElapsed(now time.Time) bool {
	return o.Status == OrderStatusPending && o.PaymentDeadline != nil && now.After(*o.PaymentDeadline)
}
