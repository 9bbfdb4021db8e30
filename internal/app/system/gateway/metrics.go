// internal/app/system/gateway/metrics.go
package gateway

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Refresh outcomes recorded on refreshTotal.
const (
	outcomeRefreshed = "refreshed"
	outcomeFailed    = "failed"
	outcomeNoToken   = "no_token"
	outcomeCoalesced = "coalesced"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stockconsole",
		Subsystem: "gateway",
		Name:      "requests_total",
		Help:      "Backend requests by method and status class.",
	}, []string{"method", "status_class"})

	refreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stockconsole",
		Subsystem: "gateway",
		Name:      "refresh_total",
		Help:      "Token refresh attempts by outcome.",
	}, []string{"outcome"})

	requestSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "stockconsole",
		Subsystem: "gateway",
		Name:      "request_seconds",
		Help:      "Backend request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})
)

func statusClass(status int) string {
	if status <= 0 {
		return "error"
	}
	return strconv.Itoa(status/100) + "xx"
}
