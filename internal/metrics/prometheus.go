package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var (
	LoginSuccessTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quizdesk_logins_success_total",
		Help: "Total number of successful logins.",
	})
	LoginFailureTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quizdesk_logins_failure_total",
		Help: "Total number of failed logins.",
	})
	TokensIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quizdesk_tokens_issued_total",
		Help: "Total number of token pairs issued.",
	})
	CacheFallbackTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quizdesk_cache_fallback_total",
		Help: "Times the ephemeral cache degraded to the in-process store.",
	})
	WSConnectionsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "quizdesk_ws_connections",
		Help: "Current number of live realtime connections.",
	})
	IdleEvictionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quizdesk_ws_idle_evictions_total",
		Help: "Realtime connections force-closed by the idle sweep.",
	})
)

// Register registers the custom metrics with the given registerer. It
// should be called once at startup; duplicate registration is logged
// and ignored so tests can share the default registry.
func Register(reg prometheus.Registerer) {
	collectors := []prometheus.Collector{
		LoginSuccessTotal,
		LoginFailureTotal,
		TokensIssuedTotal,
		CacheFallbackTotal,
		WSConnectionsGauge,
		IdleEvictionsTotal,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			log.Warn().Err(err).Msg("failed to register metric")
		}
	}
}
