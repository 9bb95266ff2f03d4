package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"usdt-storefront/internal/domain/ports/repository"
	"usdt-storefront/internal/infra/metrics"
)

// Compile-time check
var _ SweeperUseCase = (*sweeperUC)(nil)

// SweeperUseCase deactivates entitlements past their expiry. Runs on a timer
// and on demand via the admin sweep endpoint; both paths are idempotent.
type SweeperUseCase interface {
	DeactivateExpired(ctx context.Context) (int, error)
}

type sweeperUC struct {
	ents repository.EntitlementRepository
	log  *zerolog.Logger
}

func NewSweeperUseCase(ents repository.EntitlementRepository, logger *zerolog.Logger) *sweeperUC {
	ucLog := logger.With().Str("component", "SweeperUseCase").Logger()
	return &sweeperUC{ents: ents, log: &ucLog}
}

func (u *sweeperUC) DeactivateExpired(ctx context.Context) (int, error) {
	n, err := u.ents.DeactivateExpired(ctx, repository.NoTX, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("deactivate expired entitlements: %w", err)
	}
	if n > 0 {
		metrics.IncEntitlementsDeactivated(n)
		u.log.Info().Int("count", n).Msg("expired entitlements deactivated")
	}
	return n, nil
}
