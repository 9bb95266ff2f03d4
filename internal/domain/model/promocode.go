package model

import (
	"time"

	"github.com/shopspring/decimal"

	"usdt-storefront/internal/domain"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// PromoCode is a discount rule. UsageLimit zero means unlimited. UsedCount
// increments exactly once per settled order referencing the code and is
// never decremented.
type PromoCode struct {
	ID         string
	Code       string
	Type       DiscountType
	Value      decimal.Decimal
	ProductID  *string // nil = applies to all products
	UsageLimit int
	UsedCount  int
	ValidFrom  time.Time
	ValidUntil *time.Time
	Active     bool
	CreatedAt  time.Time
}

// NewPromoCode validates and constructs a promo code.
func NewPromoCode(code string, typ DiscountType, value decimal.Decimal, productID *string, usageLimit int, validFrom time.Time, validUntil *time.Time) (*PromoCode, error) {
	if code == "" || value.IsNegative() {
		return nil, domain.ErrInvalidArgument
	}
	if typ != DiscountPercentage && typ != DiscountFixed {
		return nil, domain.ErrInvalidArgument
	}
	return &PromoCode{
		ID:         NewID(),
		Code:       code,
		Type:       typ,
		Value:      value,
		ProductID:  productID,
		UsageLimit: usageLimit,
		ValidFrom:  validFrom,
		ValidUntil: validUntil,
		Active:     true,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

var hundred = decimal.NewFromInt(100)

// DiscountedPrice applies the rule to price. Percentage computes
// price*(1-value/100); fixed computes max(price-value, 0).
func (p *PromoCode) DiscountedPrice(price decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal
	if p.Type == DiscountPercentage {
		discount = price.Mul(p.Value).Div(hundred)
	} else {
		discount = p.Value
	}
	out := price.Sub(discount)
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}

// Exhausted reports whether the usage ceiling has been reached.
func (p *PromoCode) Exhausted() bool {
	return p.UsageLimit > 0 && p.UsedCount >= p.UsageLimit
}

// WithinWindow reports whether now falls inside the validity window.
func (p *PromoCode) WithinWindow(now time.Time) bool {
	if now.Before(p.ValidFrom) {
		return false
	}
	if p.ValidUntil != nil && now.After(*p.ValidUntil) {
		return false
	}
	return true
}
