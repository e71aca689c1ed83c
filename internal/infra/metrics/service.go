package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(buildInfo, startTime, cacheLookupsTotal) }

var (
	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "payments_build_info",
			Help: "Always 1; labels carry the binary version, commit and Go runtime.",
		},
		[]string{"version", "commit", "go_version"},
	)
	startTime = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "payments_start_time_seconds",
			Help: "Unix time the service started.",
		},
	)
	cacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_cache_lookups_total",
			Help: "Redis-backed lookups by cache and result.",
		},
		[]string{"cache", "result"}, // hit, miss, error, replay
	)
)

func SetBuildInfo(version, commit string) {
	buildInfo.WithLabelValues(version, commit, runtime.Version()).Set(1)
	startTime.Set(float64(time.Now().Unix()))
}

func IncCacheRequest(cache, result string) {
	cacheLookupsTotal.WithLabelValues(norm(cache), norm(result)).Inc()
}
