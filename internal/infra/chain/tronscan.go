package chain

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"usdt-storefront/internal/config"
	"usdt-storefront/internal/domain/ports/adapter"
	"usdt-storefront/internal/infra/metrics"
)

// Compile-time check
var _ adapter.ChainObserver = (*TronScanObserver)(nil)

// TronScanObserver fetches TRC20 transfer history from a TronScan-style API.
//
// The contract is best-effort: network failures, non-2xx responses and
// malformed bodies all yield an empty slice and a nil error. "Provider
// unreachable" and "no transfers found" are indistinguishable to callers.
type TronScanObserver struct {
	baseURL  string
	lookback time.Duration
	pageSize int
	client   *http.Client
	log      *zerolog.Logger
}

func NewTronScanObserver(cfg config.ChainConfig, logger *zerolog.Logger) *TronScanObserver {
	obsLog := logger.With().Str("component", "TronScanObserver").Logger()
	return &TronScanObserver{
		baseURL:  cfg.APIURL,
		lookback: cfg.Lookback,
		pageSize: cfg.PageSize,
		client:   &http.Client{Timeout: cfg.Timeout},
		log:      &obsLog,
	}
}

// transferRecord mirrors the provider's transaction list entry. Amount is the
// smallest-unit integer of a 6-decimal token.
type transferRecord struct {
	TokenInfo struct {
		TokenAbbr string `json:"tokenAbbr"`
	} `json:"tokenInfo"`
	Amount    json.Number `json:"amount"`
	ToAddress string      `json:"toAddress"`
	Confirmed bool        `json:"confirmed"`
	Hash      string      `json:"hash"`
	Timestamp int64       `json:"timestamp"` // epoch millis
}

type transferPage struct {
	Data []transferRecord `json:"data"`
}

const usdtTokenAbbr = "USDT"

var sunPerToken = decimal.New(1, 6) // 10^6 smallest units per USDT

// FetchTransfers queries the provider for transfers to wallet since the given
// time. A zero since falls back to the configured default lookback.
func (o *TronScanObserver) FetchTransfers(ctx context.Context, wallet string, since time.Time) ([]adapter.Transfer, error) {
	now := time.Now().UTC()
	if since.IsZero() {
		since = now.Add(-o.lookback)
	}

	q := url.Values{}
	q.Set("address", wallet)
	q.Set("start_timestamp", strconv.FormatInt(since.UnixMilli(), 10))
	q.Set("end_timestamp", strconv.FormatInt(now.UnixMilli(), 10))
	q.Set("sort", "-timestamp")
	q.Set("count", strconv.Itoa(o.pageSize))

	metrics.IncChainFetch()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/transaction?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := o.client.Do(req)
	if err != nil {
		metrics.IncChainFetchError()
		o.log.Warn().Err(err).Msg("provider unreachable")
		return nil, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.IncChainFetchError()
		o.log.Warn().Int("status", resp.StatusCode).Msg("provider returned non-success response")
		return nil, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.IncChainFetchError()
		o.log.Warn().Err(err).Msg("failed to read provider response")
		return nil, nil
	}

	var page transferPage
	if err := json.Unmarshal(body, &page); err != nil {
		// Some deployments return a bare array instead of {"data": [...]}.
		if err2 := json.Unmarshal(body, &page.Data); err2 != nil {
			metrics.IncChainFetchError()
			o.log.Warn().Err(err).Msg("malformed provider response")
			return nil, nil
		}
	}

	out := make([]adapter.Transfer, 0, len(page.Data))
	for _, rec := range page.Data {
		if rec.TokenInfo.TokenAbbr != usdtTokenAbbr {
			continue
		}
		raw, err := decimal.NewFromString(rec.Amount.String())
		if err != nil {
			continue
		}
		out = append(out, adapter.Transfer{
			Amount:    raw.Div(sunPerToken),
			To:        rec.ToAddress,
			Hash:      rec.Hash,
			Confirmed: rec.Confirmed,
			Timestamp: time.UnixMilli(rec.Timestamp).UTC(),
		})
	}
	return out, nil
}
