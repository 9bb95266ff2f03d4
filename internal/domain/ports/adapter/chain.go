package adapter

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Transfer is a candidate incoming token transfer observed on chain.
// Amount is already converted from smallest units to a decimal token amount.
type Transfer struct {
	Amount    decimal.Decimal
	To        string
	Hash      string
	Confirmed bool
	Timestamp time.Time
}

// ChainObserver fetches transfer history for a wallet from a remote provider.
//
// Best-effort contract: provider unreachable, non-success responses and
// malformed bodies all yield an empty slice, not an error. Callers must
// treat "no transfers found" and "provider unreachable" identically.
// A zero since means the provider default lookback (1 hour before now).
type ChainObserver interface {
	FetchTransfers(ctx context.Context, wallet string, since time.Time) ([]Transfer, error)
}
