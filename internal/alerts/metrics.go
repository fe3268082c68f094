package alerts

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricsMu          sync.Mutex
	metricsInitialized bool
	metricsError       error

	computedCounter  *prometheus.CounterVec
	emittedCounter   *prometheus.CounterVec
	cacheHitCounter  *prometheus.CounterVec
	cacheMissCounter *prometheus.CounterVec
	computeHistogram *prometheus.HistogramVec
)

// SetupMetrics registers the low-stock collectors once; later calls are ignored.
func SetupMetrics(reg prometheus.Registerer) error {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	if metricsInitialized {
		return metricsError
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	computed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stockwatch_alerts_computed_total",
		Help: "Low-stock computations run against the database.",
	}, []string{"mode"})
	emitted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stockwatch_alerts_emitted_total",
		Help: "Low-stock alerts returned by computations.",
	}, []string{"company"})
	hits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stockwatch_alerts_cache_hits_total",
		Help: "Low-stock envelopes served from cache.",
	}, []string{"company"})
	misses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stockwatch_alerts_cache_miss_total",
		Help: "Low-stock envelopes not found in cache.",
	}, []string{"company"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stockwatch_alerts_compute_duration_seconds",
		Help:    "Duration of low-stock computations.",
		Buckets: prometheus.DefBuckets,
	}, []string{"mode"})

	computedCounter, emittedCounter, cacheHitCounter, cacheMissCounter, computeHistogram = computed, emitted, hits, misses, duration

	for _, collector := range []prometheus.Collector{computed, emitted, hits, misses, duration} {
		if err := reg.Register(collector); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				metricsError = err
				computedCounter, emittedCounter, cacheHitCounter, cacheMissCounter, computeHistogram = nil, nil, nil, nil, nil
				metricsInitialized = true
				return metricsError
			}
			switch c := already.ExistingCollector.(type) {
			case *prometheus.CounterVec:
				switch collector {
				case computed:
					computedCounter = c
				case emitted:
					emittedCounter = c
				case hits:
					cacheHitCounter = c
				case misses:
					cacheMissCounter = c
				}
			case *prometheus.HistogramVec:
				computeHistogram = c
			default:
				metricsError = fmt.Errorf("alerts metrics: unexpected collector type %T", c)
			}
		}
	}

	metricsInitialized = true
	return metricsError
}

func modeLabel(suppress bool) string {
	if suppress {
		return "suppress_unknown"
	}
	return "include_unknown"
}

func recordComputation(suppress bool, companyID int64, alerts int, took time.Duration) {
	if computedCounter != nil {
		computedCounter.WithLabelValues(modeLabel(suppress)).Inc()
	}
	if computeHistogram != nil {
		computeHistogram.WithLabelValues(modeLabel(suppress)).Observe(took.Seconds())
	}
	if emittedCounter != nil && alerts > 0 {
		emittedCounter.WithLabelValues(strconv.FormatInt(companyID, 10)).Add(float64(alerts))
	}
}

func recordCacheHit(companyID int64) {
	if cacheHitCounter == nil {
		return
	}
	cacheHitCounter.WithLabelValues(strconv.FormatInt(companyID, 10)).Inc()
}

func recordCacheMiss(companyID int64) {
	if cacheMissCounter == nil {
		return
	}
	cacheMissCounter.WithLabelValues(strconv.FormatInt(companyID, 10)).Inc()
}
