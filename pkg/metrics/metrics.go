package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	AuthAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "pennywise", Name: "auth_attempts_total", Help: "Identity operations by operation and outcome."},
		[]string{"operation", "outcome"},
	)
	ForecastWake = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "pennywise", Name: "forecast_wake_total", Help: "Forecast service wake-up pings by outcome."},
		[]string{"outcome"},
	)
)

// ObserveAuth records one identity operation. outcome is "success" or an
// error kind.
func ObserveAuth(operation, outcome string) {
	AuthAttempts.WithLabelValues(operation, outcome).Inc()
}

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(AuthAttempts)
	reg.MustRegister(ForecastWake)
}
