package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"usdt-storefront/internal/domain"
	"usdt-storefront/internal/domain/model"
	"usdt-storefront/internal/domain/ports/repository"
)

// Compile-time check
var _ PromoCodeUseCase = (*promoUC)(nil)

// PromoValidation is the outcome of a validation call. Rejections are
// outcomes with user-facing messages, not errors.
type PromoValidation struct {
	Valid   bool
	Message string
	Promo   *model.PromoCode
}

type PromoCodeUseCase interface {
	// Validate checks a code against activity, validity window, usage
	// ceiling, product binding, and the caller's prior settled use.
	Validate(ctx context.Context, code, productID, userID string) (*PromoValidation, error)
	// Quote returns the discounted price and the discount amount for price.
	Quote(price decimal.Decimal, promo *model.PromoCode) (discounted, discount decimal.Decimal)
}

type promoUC struct {
	promos repository.PromoCodeRepository
	orders repository.OrderRepository
	log    *zerolog.Logger
}

func NewPromoCodeUseCase(promos repository.PromoCodeRepository, orders repository.OrderRepository, logger *zerolog.Logger) *promoUC {
	ucLog := logger.With().Str("component", "PromoCodeUseCase").Logger()
	return &promoUC{promos: promos, orders: orders, log: &ucLog}
}

func reject(msg string) *PromoValidation {
	return &PromoValidation{Valid: false, Message: msg}
}

func (u *promoUC) Validate(ctx context.Context, code, productID, userID string) (*PromoValidation, error) {
	promo, err := u.promos.FindByCode(ctx, nil, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return reject("promo code not found"), nil
		}
		return nil, err
	}
	if !promo.Active {
		return reject("promo code not found"), nil
	}

	now := time.Now().UTC()
	if now.Before(promo.ValidFrom) {
		return reject("promo code is not active yet"), nil
	}
	if promo.ValidUntil != nil && now.After(*promo.ValidUntil) {
		return reject("promo code has expired"), nil
	}
	if promo.Exhausted() {
		return reject("promo code usage limit reached"), nil
	}
	if promo.ProductID != nil && *promo.ProductID != productID {
		return reject("promo code is not valid for this product"), nil
	}
	if userID != "" {
		used, err := u.orders.HasSettledPromoUse(ctx, nil, userID, promo.ID)
		if err != nil {
			return nil, err
		}
		if used {
			return reject("you have already used this promo code"), nil
		}
	}
	return &PromoValidation{Valid: true, Promo: promo}, nil
}

func (u *promoUC) Quote(price decimal.Decimal, promo *model.PromoCode) (decimal.Decimal, decimal.Decimal) {
	if promo == nil {
		return price, decimal.Zero
	}
	discounted := promo.DiscountedPrice(price)
	return discounted, price.Sub(discounted)
}
