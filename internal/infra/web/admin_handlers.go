package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"usdt-storefront/internal/domain"
	"usdt-storefront/internal/domain/model"
	"usdt-storefront/internal/domain/ports/repository"
)

func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := s.statsUC.Snapshot(ctx)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	byStatus := make(map[string]int, len(stats.OrdersByStatus))
	for status, n := range stats.OrdersByStatus {
		byStatus[string(status)] = n
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"orders_by_status": byStatus,
		"revenue_usdt": map[string]string{
			"week":  stats.RevenueWeek.String(),
			"month": stats.RevenueMonth.String(),
		},
	})
}

// handleAdminOrdersList returns a paginated order list.
// It accepts 'offset' and 'limit' query parameters.
func (s *Server) handleAdminOrdersList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 50 // Default page size
	}
	if offset < 0 {
		offset = 0
	}

	orders, err := s.orders.List(ctx, repository.NoTX, offset, limit)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	counts, err := s.orders.CountByStatus(ctx, repository.NoTX)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	total := 0
	for _, n := range counts {
		total += n
	}

	data := make([]adminOrderResponse, 0, len(orders))
	for _, o := range orders {
		data = append(data, toAdminOrderResponse(o))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":   data,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// adminOrderResponse extends the buyer view with internal identifiers.
type adminOrderResponse struct {
	ID string `json:"id"`
	orderResponse
	UserID      string  `json:"user_id"`
	PromoCodeID *string `json:"promo_code_id,omitempty"`
}

func toAdminOrderResponse(o *model.Order) adminOrderResponse {
	return adminOrderResponse{
		ID:            o.ID,
		orderResponse: toOrderResponse(o),
		UserID:        o.UserID,
		PromoCodeID:   o.PromoCodeID,
	}
}

func (s *Server) handleAdminOrderGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	order, err := s.orders.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	response := map[string]interface{}{"order": toAdminOrderResponse(order)}

	ent, err := s.ents.FindByOrder(ctx, repository.NoTX, order.ID)
	switch {
	case err == nil:
		response["entitlement"] = map[string]interface{}{
			"id":         ent.ID,
			"active":     ent.Active,
			"trial":      ent.Trial,
			"expires_at": ent.ExpiresAt,
		}
	case errors.Is(err, domain.ErrNotFound):
		// unsettled order, no entitlement yet
	default:
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, response)
}

// handleAdminOrderConfirm settles an order without an on-chain transfer.
// Safe to call concurrently with the monitor: exactly one path wins.
func (s *Server) handleAdminOrderConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if _, err := s.orders.FindByID(ctx, repository.NoTX, id); err != nil {
		s.writeDomainError(w, err)
		return
	}

	applied, err := s.settleUC.ConfirmManual(ctx, id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if !applied {
		writeError(w, http.StatusConflict, "order is not pending")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"applied": true})
}

func (s *Server) handleAdminOrderCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if _, err := s.orders.FindByID(ctx, repository.NoTX, id); err != nil {
		s.writeDomainError(w, err)
		return
	}

	applied, err := s.settleUC.CancelOrder(ctx, id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if !applied {
		writeError(w, http.StatusConflict, "order is not pending")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"applied": true})
}

// handleAdminSweep runs the entitlement expiry sweep on demand.
func (s *Server) handleAdminSweep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	n, err := s.sweeperUC.DeactivateExpired(ctx)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": n})
}
