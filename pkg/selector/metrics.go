package selector

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/grafana/stackscope/pkg/util"
)

const (
	resultHit  = "hit"
	resultMiss = "miss"
)

type metrics struct {
	lookups       *prometheus.CounterVec
	buildDuration *prometheus.HistogramVec
	evictions     prometheus.Counter
	cached        prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	return &metrics{
		lookups: util.RegisterOrGet(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stackscope",
			Subsystem: "selector",
			Name:      "cache_lookups_total",
			Help:      "Total number of attribution info lookups by mode and result.",
		}, []string{"mode", "result"})),
		buildDuration: util.RegisterOrGet(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "stackscope",
			Subsystem: "selector",
			Name:      "build_duration_seconds",
			Help:      "Time spent building attribution info for a target.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"mode"})),
		evictions: util.RegisterOrGet(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stackscope",
			Subsystem: "selector",
			Name:      "cache_evictions_total",
			Help:      "Total number of attribution infos evicted from the cache.",
		})),
		cached: util.RegisterOrGet(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "stackscope",
			Subsystem: "selector",
			Name:      "cache_entries",
			Help:      "Number of attribution infos held in the cache.",
		})),
	}
}
