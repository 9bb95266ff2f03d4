package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"usdt-storefront/internal/domain"
	"usdt-storefront/internal/domain/model"
	"usdt-storefront/internal/domain/ports/repository"
)

// Compile-time check
var _ CheckoutUseCase = (*checkoutUC)(nil)

// PromoRejectedError carries the user-facing reason a promo code was turned
// down at checkout.
type PromoRejectedError struct {
	Message string
}

func (e *PromoRejectedError) Error() string {
	return "promo code rejected: " + e.Message
}

type CheckoutUseCase interface {
	// PlaceOrder creates a pending crypto-transfer order for the product,
	// applying the promo code when one is given. A rejected promo aborts the
	// order with *PromoRejectedError.
	PlaceOrder(ctx context.Context, userID, productID string, quantity int, promoCode string, formData []byte) (*model.Order, error)
	// StartTrial creates and immediately grants a trial order, subject to the
	// per-product and per-user trial ceilings.
	StartTrial(ctx context.Context, userID, productID string, formData []byte) (*model.Order, error)
	// CanGrantTrial reports whether the user may still take a trial of the
	// product, with a user-facing reason when not.
	CanGrantTrial(ctx context.Context, userID, productID string) (bool, string, error)
}

type checkoutUC struct {
	orders   repository.OrderRepository
	products repository.ProductRepository
	promoUC  PromoCodeUseCase
	settleUC SettlementUseCase

	paymentWindow time.Duration

	log *zerolog.Logger
}

func NewCheckoutUseCase(
	orders repository.OrderRepository,
	products repository.ProductRepository,
	promoUC PromoCodeUseCase,
	settleUC SettlementUseCase,
	paymentWindow time.Duration,
	logger *zerolog.Logger,
) *checkoutUC {
	ucLog := logger.With().Str("component", "CheckoutUseCase").Logger()
	return &checkoutUC{
		orders:        orders,
		products:      products,
		promoUC:       promoUC,
		settleUC:      settleUC,
		paymentWindow: paymentWindow,
		log:           &ucLog,
	}
}

func (u *checkoutUC) PlaceOrder(ctx context.Context, userID, productID string, quantity int, promoCode string, formData []byte) (*model.Order, error) {
	if quantity <= 0 {
		quantity = 1
	}
	product, err := u.products.FindByID(ctx, repository.NoTX, productID)
	if err != nil {
		return nil, err
	}
	if !product.Active {
		return nil, domain.ErrProductInactive
	}
	if product.Kind == model.PaymentKindTrial {
		return nil, fmt.Errorf("%w: trial products are started, not purchased", domain.ErrInvalidArgument)
	}

	original := product.Price.Mul(decimal.NewFromInt(int64(quantity)))
	discount := decimal.Zero
	var promoID *string
	if promoCode != "" {
		validation, err := u.promoUC.Validate(ctx, promoCode, productID, userID)
		if err != nil {
			return nil, err
		}
		if !validation.Valid {
			return nil, &PromoRejectedError{Message: validation.Message}
		}
		_, discount = u.promoUC.Quote(original, validation.Promo)
		promoID = &validation.Promo.ID
	}

	order, err := model.NewPendingOrder(userID, product, promoID, quantity, original, discount, formData, u.paymentWindow)
	if err != nil {
		return nil, err
	}
	if err := u.orders.Save(ctx, repository.NoTX, order); err != nil {
		return nil, fmt.Errorf("save order: %w", err)
	}

	u.log.Info().
		Str("order_code", order.Code).
		Str("product_id", productID).
		Str("amount", order.Amount.String()).
		Msg("order placed")
	return order, nil
}

func (u *checkoutUC) StartTrial(ctx context.Context, userID, productID string, formData []byte) (*model.Order, error) {
	product, err := u.products.FindByID(ctx, repository.NoTX, productID)
	if err != nil {
		return nil, err
	}
	if !product.Active {
		return nil, domain.ErrProductInactive
	}
	if product.Kind != model.PaymentKindTrial {
		return nil, fmt.Errorf("%w: product has no trial", domain.ErrInvalidArgument)
	}

	allowed, reason, err := u.CanGrantTrial(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, fmt.Errorf("%w: %s", domain.ErrTrialNotAllowed, reason)
	}

	order, err := model.NewTrialOrder(userID, product, formData)
	if err != nil {
		return nil, err
	}
	if err := u.settleUC.GrantTrial(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (u *checkoutUC) CanGrantTrial(ctx context.Context, userID, productID string) (bool, string, error) {
	perProduct, err := u.orders.CountTrialOrders(ctx, repository.NoTX, userID, &productID)
	if err != nil {
		return false, "", err
	}
	if perProduct > 0 {
		return false, "you have already used the trial period for this product", nil
	}

	product, err := u.products.FindByID(ctx, repository.NoTX, productID)
	if err != nil {
		return false, "", err
	}
	total, err := u.orders.CountTrialOrders(ctx, repository.NoTX, userID, nil)
	if err != nil {
		return false, "", err
	}
	if product.MaxTrialPerUser > 0 && total >= product.MaxTrialPerUser {
		return false, fmt.Sprintf("trial limit reached (%d per user)", product.MaxTrialPerUser), nil
	}
	return true, "", nil
}
