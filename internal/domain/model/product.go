package model

import (
	"time"

	"github.com/shopspring/decimal"

	"usdt-storefront/internal/domain"
)

// Product is a catalog item. Stock uses a sentinel: a non-positive stored
// value means unlimited and is never decremented.
type Product struct {
	ID               string
	Name             string
	Description      string
	Price            decimal.Decimal
	Kind             PaymentKind // one_time | subscription | trial
	SubscriptionDays int
	TrialDays        int
	Stock            int
	MaxTrialPerUser  int
	FormFields       []byte // opaque form schema (JSON), not parsed by the core
	Active           bool
	CreatedAt        time.Time
}

// NewProduct validates and constructs a product.
func NewProduct(name string, price decimal.Decimal, kind PaymentKind, stock int) (*Product, error) {
	if name == "" || price.IsNegative() {
		return nil, domain.ErrInvalidArgument
	}
	switch kind {
	case PaymentKindOneTime, PaymentKindSubscription, PaymentKindTrial:
	default:
		return nil, domain.ErrInvalidArgument
	}
	return &Product{
		ID:               NewID(),
		Name:             name,
		Price:            price,
		Kind:             kind,
		SubscriptionDays: 30,
		TrialDays:        7,
		Stock:            stock,
		MaxTrialPerUser:  1,
		Active:           true,
		CreatedAt:        time.Now().UTC(),
	}, nil
}

// LimitedStock reports whether the stored quantity takes part in decrements.
func (p *Product) LimitedStock() bool { return p.Stock > 0 }
