package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		ordersSettledTotal,
		ordersExpiredTotal,
		settlementRevenueTotal,
	)
}

var (
	ordersSettledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_settled_total",
			Help: "Orders settled, labeled by trigger (monitor/poll/manual/trial).",
		},
		[]string{"trigger"},
	)

	ordersExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_expired_total",
			Help: "Pending orders whose payment window elapsed.",
		},
	)

	settlementRevenueTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "settlement_revenue_usdt_total",
			Help: "Total USDT value of settled orders.",
		},
	)
)

func IncOrderSettled(trigger string) {
	ordersSettledTotal.WithLabelValues(trigger).Inc()
}

func IncOrderExpired() {
	ordersExpiredTotal.Inc()
}

func AddOrdersExpired(n int) {
	ordersExpiredTotal.Add(float64(n))
}

func AddSettlementRevenue(usdt float64) {
	settlementRevenueTotal.Add(usdt)
}
