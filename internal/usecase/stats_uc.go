package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"usdt-storefront/internal/domain/model"
	"usdt-storefront/internal/domain/ports/repository"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

// StoreStats is the admin dashboard snapshot.
type StoreStats struct {
	OrdersByStatus map[model.OrderStatus]int
	RevenueWeek    decimal.Decimal
	RevenueMonth   decimal.Decimal
}

type StatsUseCase interface {
	Snapshot(ctx context.Context) (*StoreStats, error)
}

type statsUC struct {
	orders repository.OrderRepository
	log    *zerolog.Logger
}

func NewStatsUseCase(orders repository.OrderRepository, logger *zerolog.Logger) *statsUC {
	ucLog := logger.With().Str("component", "StatsUseCase").Logger()
	return &statsUC{orders: orders, log: &ucLog}
}

func (u *statsUC) Snapshot(ctx context.Context) (*StoreStats, error) {
	counts, err := u.orders.CountByStatus(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	week, err := u.orders.SumPaidAmount(ctx, repository.NoTX, now.AddDate(0, 0, -7))
	if err != nil {
		return nil, err
	}
	month, err := u.orders.SumPaidAmount(ctx, repository.NoTX, now.AddDate(0, 0, -30))
	if err != nil {
		return nil, err
	}
	return &StoreStats{OrdersByStatus: counts, RevenueWeek: week, RevenueMonth: month}, nil
}
