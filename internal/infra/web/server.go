package web

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"usdt-storefront/internal/domain/ports/repository"
	"usdt-storefront/internal/infra/logging"
	"usdt-storefront/internal/infra/redis"
	"usdt-storefront/internal/usecase"
)

type Server struct {
	checkoutUC usecase.CheckoutUseCase
	settleUC   usecase.SettlementUseCase
	promoUC    usecase.PromoCodeUseCase
	sweeperUC  usecase.SweeperUseCase
	statsUC    usecase.StatsUseCase

	orders   repository.OrderRepository
	products repository.ProductRepository
	ents     repository.EntitlementRepository
	users    repository.UserRepository

	auth    *AuthManager
	limiter *redis.RateLimiter

	wallet     string
	apiKey     string
	pollLimit  int
	pollWindow time.Duration

	log *zerolog.Logger
}

func NewServer(
	checkoutUC usecase.CheckoutUseCase,
	settleUC usecase.SettlementUseCase,
	promoUC usecase.PromoCodeUseCase,
	sweeperUC usecase.SweeperUseCase,
	statsUC usecase.StatsUseCase,
	orders repository.OrderRepository,
	products repository.ProductRepository,
	ents repository.EntitlementRepository,
	users repository.UserRepository,
	auth *AuthManager,
	limiter *redis.RateLimiter,
	wallet, apiKey string,
	pollLimit int,
	pollWindow time.Duration,
	logger *zerolog.Logger,
) *Server {
	srvLog := logger.With().Str("component", "WebServer").Logger()
	return &Server{
		checkoutUC: checkoutUC,
		settleUC:   settleUC,
		promoUC:    promoUC,
		sweeperUC:  sweeperUC,
		statsUC:    statsUC,
		orders:     orders,
		products:   products,
		ents:       ents,
		users:      users,
		auth:       auth,
		limiter:    limiter,
		wallet:     wallet,
		apiKey:     apiKey,
		pollLimit:  pollLimit,
		pollWindow: pollWindow,
		log:        &srvLog,
	}
}

// Routes builds the full router: public storefront endpoints, session-scoped
// buyer endpoints and the API-key-guarded admin surface.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.traceMiddleware)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)
		r.Get("/products", s.handleListProducts)

		r.Group(func(r chi.Router) {
			r.Use(s.sessionMiddleware)
			r.Post("/auth/logout", s.handleLogout)
			r.Post("/checkout/{productID}", s.handleCheckout)
			r.Post("/trial/{productID}", s.handleTrial)
			r.Post("/promocodes/check", s.handlePromoCheck)

			r.Group(func(r chi.Router) {
				r.Use(s.pollRateLimit)
				r.Get("/orders/{code}/status", s.handleOrderStatus)
				r.Post("/orders/{code}/confirm", s.handleOrderStatus)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.adminMiddleware)
			r.Get("/stats", s.handleAdminStats)
			r.Get("/orders", s.handleAdminOrdersList)
			r.Get("/orders/{id}", s.handleAdminOrderGet)
			r.Post("/orders/{id}/confirm", s.handleAdminOrderConfirm)
			r.Post("/orders/{id}/cancel", s.handleAdminOrderCancel)
			r.Post("/entitlements/sweep", s.handleAdminSweep)
		})
	})
	return r
}

func (s *Server) traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithTraceID(r.Context(), uuid.NewString())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionMiddleware rejects requests without a valid session token and puts
// the claims plus the user id into the request context.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.auth.ParseFromRequest(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		ctx := context.WithValue(r.Context(), ctxClaims, claims)
		ctx = logging.WithUserID(ctx, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// pollRateLimit throttles order status polling per user. Redis being down
// fails open: polls go through unthrottled rather than blocking buyers.
func (s *Server) pollRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		userID := logging.UserIDFromContext(r.Context())
		ok, err := s.limiter.Allow(r.Context(), redis.StatusPollKey(userID), s.pollLimit, s.pollWindow)
		if err != nil {
			s.log.Warn().Err(err).Msg("rate limiter unavailable, failing open")
			next.ServeHTTP(w, r)
			return
		}
		if !ok {
			writeError(w, http.StatusTooManyRequests, "too many status checks, slow down")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// adminMiddleware provides simple Bearer token authentication for the admin API.
func (s *Server) adminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" {
			s.log.Error().Msg("Admin API key is not configured")
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || strings.ToLower(tokenParts[0]) != "bearer" {
			writeError(w, http.StatusUnauthorized, "unauthorized: malformed token")
			return
		}

		if tokenParts[1] != s.apiKey {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}

		next.ServeHTTP(w, r)
	})
}
