package service

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/somashare-api/internal/models"
	"github.com/noah-isme/somashare-api/pkg/changefeed"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	uploads         *prometheus.CounterVec
	compensations   *prometheus.CounterVec
	activity        *prometheus.CounterVec
	subscriptions   prometheus.Gauge
	screens         *prometheus.GaugeVec

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	openSubscriptions    int64
	openScreens          int64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	uploads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "somashare_uploads_total",
		Help: "Paper uploads by result",
	}, []string{"result"})

	compensations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "somashare_saga_compensations_total",
		Help: "Compensating actions run after a failed saga step",
	}, []string{"saga", "step", "result"})

	activity := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "somashare_activity_events_total",
		Help: "Recorded user events by kind",
	}, []string{"kind"})

	subscriptions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "somashare_stream_subscriptions",
		Help: "Open change feed subscriptions",
	})

	screens := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "somashare_screen_sessions",
		Help: "Mounted screen controllers",
	}, []string{"screen"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		uploads, compensations, activity, subscriptions, screens, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		uploads:         uploads,
		compensations:   compensations,
		activity:        activity,
		subscriptions:   subscriptions,
		screens:         screens,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordUpload counts an upload outcome ("success" or "failed").
func (m *MetricsService) RecordUpload(result string) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(result).Inc()
}

// RecordCompensation matches saga.CompensationHook.
func (m *MetricsService) RecordCompensation(saga, step string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "failed"
	}
	m.compensations.WithLabelValues(saga, step, result).Inc()
}

// RecordActivity counts a recorded user event.
func (m *MetricsService) RecordActivity(kind models.EventKind) {
	if m == nil {
		return
	}
	m.activity.WithLabelValues(string(kind)).Inc()
}

// ScreenMounted tracks a screen session; call the returned func on unmount.
func (m *MetricsService) ScreenMounted(screen string) func() {
	if m == nil {
		return func() {}
	}
	m.screens.WithLabelValues(screen).Inc()
	atomic.AddInt64(&m.openScreens, 1)
	var once sync.Once
	return func() {
		once.Do(func() {
			m.screens.WithLabelValues(screen).Dec()
			atomic.AddInt64(&m.openScreens, -1)
		})
	}
}

// TrackFeed wraps feed so that open subscriptions are reported.
func (m *MetricsService) TrackFeed(feed changefeed.Feed) changefeed.Feed {
	if m == nil {
		return feed
	}
	return &trackedFeed{Feed: feed, metrics: m}
}

// OpenSubscriptions returns the number of live change feed subscriptions.
func (m *MetricsService) OpenSubscriptions() int64 {
	if m == nil {
		return 0
	}
	return atomic.LoadInt64(&m.openSubscriptions)
}

// Snapshot returns aggregated metrics suitable for a JSON status endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var cacheRatio float64
	if totalLookups := hits + misses; totalLookups > 0 {
		cacheRatio = float64(hits) / float64(totalLookups)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return models.SystemMetrics{
		CacheHitRatio:            cacheRatio,
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		OpenSubscriptions:        atomic.LoadInt64(&m.openSubscriptions),
		OpenScreens:              atomic.LoadInt64(&m.openScreens),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}

type trackedFeed struct {
	changefeed.Feed
	metrics *MetricsService
}

func (f *trackedFeed) Subscribe(ctx context.Context, topics ...string) (changefeed.Subscription, error) {
	sub, err := f.Feed.Subscribe(ctx, topics...)
	if err != nil {
		return nil, err
	}
	f.metrics.subscriptions.Inc()
	atomic.AddInt64(&f.metrics.openSubscriptions, 1)
	return &trackedSubscription{Subscription: sub, metrics: f.metrics}, nil
}

type trackedSubscription struct {
	changefeed.Subscription
	metrics *MetricsService
	once    sync.Once
}

func (s *trackedSubscription) Close() error {
	s.once.Do(func() {
		s.metrics.subscriptions.Dec()
		atomic.AddInt64(&s.metrics.openSubscriptions, -1)
	})
	return s.Subscription.Close()
}
