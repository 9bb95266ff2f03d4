package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"usdt-storefront/internal/domain"
	"usdt-storefront/internal/domain/model"
	"usdt-storefront/internal/domain/ports/repository"
	"usdt-storefront/internal/infra/logging"
	"usdt-storefront/internal/usecase"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps use-case errors onto HTTP statuses. Anything
// unrecognized is a 500 with the detail kept out of the response body.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	var promoErr *usecase.PromoRejectedError
	switch {
	case errors.As(err, &promoErr):
		writeError(w, http.StatusBadRequest, promoErr.Message)
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrNotOrderOwner):
		writeError(w, http.StatusForbidden, "order belongs to another user")
	case errors.Is(err, domain.ErrTrialNotAllowed):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrProductInactive):
		writeError(w, http.StatusConflict, "product is not available")
	case errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

type orderResponse struct {
	Code              string     `json:"code"`
	Status            string     `json:"status"`
	ProductID         string     `json:"product_id"`
	Quantity          int        `json:"quantity"`
	Amount            string     `json:"amount"`
	OriginalAmount    string     `json:"original_amount"`
	DiscountAmount    string     `json:"discount_amount"`
	TxRef             *string    `json:"tx_ref,omitempty"`
	PaymentDeadline   *time.Time `json:"payment_deadline,omitempty"`
	EntitlementExpiry *time.Time `json:"entitlement_expiry,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

func toOrderResponse(o *model.Order) orderResponse {
	return orderResponse{
		Code:              o.Code,
		Status:            string(o.Status),
		ProductID:         o.ProductID,
		Quantity:          o.Quantity,
		Amount:            o.Amount.String(),
		OriginalAmount:    o.OriginalAmount.String(),
		DiscountAmount:    o.DiscountAmount.String(),
		TxRef:             o.TxRef,
		PaymentDeadline:   o.PaymentDeadline,
		EntitlementExpiry: o.EntitlementExpiry,
		CreatedAt:         o.CreatedAt,
	}
}

// paymentInstructions tells the buyer where and how much to send.
type paymentInstructions struct {
	Wallet   string     `json:"wallet"`
	Amount   string     `json:"amount"`
	Currency string     `json:"currency"`
	Network  string     `json:"network"`
	Deadline *time.Time `json:"deadline,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// handleLogin upserts the account and mints a session token. There is no
// password: the storefront identifies buyers, it does not protect them from
// each other beyond order ownership.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.users.FindByUsername(ctx, repository.NoTX, req.Username)
	if errors.Is(err, domain.ErrNotFound) {
		user, err = model.NewUser(req.Username, req.Email)
		if err == nil {
			err = s.users.Save(ctx, repository.NoTX, user)
		}
	}
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	token, err := s.auth.Mint(w, user)
	if err != nil {
		s.log.Error().Err(err).Msg("mint session token failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user": map[string]string{
			"id":       user.ID,
			"username": user.Username,
			"email":    user.Email,
		},
	})
}

// handleLogout drops the session cookie. The token itself stays valid until
// its expiry; there is no server-side session store to revoke.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if claims := claimsFromContext(r.Context()); claims != nil {
		s.log.Debug().Str("username", claims.Username).Msg("session logged out")
	}
	s.auth.Clear(w)
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	products, err := s.products.ListActive(ctx, repository.NoTX)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	type productResponse struct {
		ID               string `json:"id"`
		Name             string `json:"name"`
		Description      string `json:"description,omitempty"`
		Price            string `json:"price"`
		Kind             string `json:"kind"`
		SubscriptionDays int    `json:"subscription_days,omitempty"`
		TrialDays        int    `json:"trial_days,omitempty"`
		InStock          bool   `json:"in_stock"`
	}
	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, productResponse{
			ID:               p.ID,
			Name:             p.Name,
			Description:      p.Description,
			Price:            p.Price.String(),
			Kind:             string(p.Kind),
			SubscriptionDays: p.SubscriptionDays,
			TrialDays:        p.TrialDays,
			InStock:          !p.LimitedStock() || p.Stock > 0,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"data": out})
}

type checkoutRequest struct {
	Quantity  int             `json:"quantity"`
	PromoCode string          `json:"promo_code"`
	FormData  json.RawMessage `json:"form_data"`
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := logging.UserIDFromContext(ctx)
	productID := chi.URLParam(r, "productID")

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := s.checkoutUC.PlaceOrder(ctx, userID, productID, req.Quantity, req.PromoCode, req.FormData)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	ctx = logging.WithOrderCode(ctx, order.Code)
	logging.With(ctx, s.log).Info().Str("amount", order.Amount.String()).Msg("order placed")

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"order": toOrderResponse(order),
		"payment": paymentInstructions{
			Wallet:   s.wallet,
			Amount:   order.Amount.String(),
			Currency: "USDT",
			Network:  "TRC20",
			Deadline: order.PaymentDeadline,
		},
	})
}

type trialRequest struct {
	FormData json.RawMessage `json:"form_data"`
}

func (s *Server) handleTrial(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := logging.UserIDFromContext(ctx)
	productID := chi.URLParam(r, "productID")

	// Trial body is optional; tolerate an empty payload.
	var req trialRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	order, err := s.checkoutUC.StartTrial(ctx, userID, productID, req.FormData)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"order": toOrderResponse(order)})
}

func (s *Server) handleOrderStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := logging.UserIDFromContext(ctx)
	code := chi.URLParam(r, "code")

	res, err := s.settleUC.CheckOrder(ctx, userID, code)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	if res.Settled {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":  true,
			"redirect": "/orders/" + code,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": false,
		"message": res.Message,
		"expired": res.Expired,
	})
}

type promoCheckRequest struct {
	Code      string `json:"code"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (s *Server) handlePromoCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := logging.UserIDFromContext(ctx)

	var req promoCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Code == "" || req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "code and product_id are required")
		return
	}
	if req.Quantity <= 0 {
		req.Quantity = 1
	}

	validation, err := s.promoUC.Validate(ctx, req.Code, req.ProductID, userID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if !validation.Valid {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"valid":   false,
			"message": validation.Message,
		})
		return
	}

	product, err := s.products.FindByID(ctx, repository.NoTX, req.ProductID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	original := product.Price.Mul(decimal.NewFromInt(int64(req.Quantity)))
	discounted, discount := s.promoUC.Quote(original, validation.Promo)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"valid":            true,
		"original_price":   original.String(),
		"discounted_price": discounted.String(),
		"discount_amount":  discount.String(),
	})
}
