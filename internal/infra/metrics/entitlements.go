package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(entitlementsDeactivated)
}

var entitlementsDeactivated = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "entitlements_deactivated_total",
		Help: "Entitlements deactivated by the expiry sweeper.",
	},
)

func IncEntitlementsDeactivated(n int) {
	entitlementsDeactivated.Add(float64(n))
}
