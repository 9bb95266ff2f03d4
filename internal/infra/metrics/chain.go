package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		chainFetchesTotal,
		chainFetchErrorsTotal,
	)
}

var (
	chainFetchesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chain_fetches_total",
			Help: "Transfer-history fetches against the chain provider.",
		},
	)

	chainFetchErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chain_fetch_errors_total",
			Help: "Fetches that failed or returned a non-success response.",
		},
	)
)

func IncChainFetch()      { chainFetchesTotal.Inc() }
func IncChainFetchError() { chainFetchErrorsTotal.Inc() }
