// Package metrics exposes Prometheus instrumentation for the verification
// service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Verifications counts verification requests by outcome: "whatsapp",
	// "not_whatsapp", or the error class.
	Verifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wcv_verifications_total",
		Help: "Verification requests by outcome.",
	}, []string{"outcome"})

	// CacheLookups counts cache consults by result ("hit" / "miss").
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wcv_cache_lookups_total",
		Help: "Verification cache lookups by result.",
	}, []string{"result"})

	// VerifyDuration observes end-to-end verification latency. Cache hits and
	// upstream round trips land in very different buckets, hence the label.
	VerifyDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wcv_verify_duration_seconds",
		Help:    "Verification request duration.",
		Buckets: prometheus.DefBuckets,
	}, []string{"cached"})
)
