package service

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/dept-csat-engine/internal/dto"
)

// Submission outcomes recorded by MetricsService.
const (
	OutcomeSubmitted  = "submitted"
	OutcomeIncomplete = "incomplete"
	OutcomeDuplicate  = "duplicate"
	OutcomeRejected   = "rejected"
	OutcomeDraft      = "draft"
)

// MetricsService encapsulates Prometheus instrumentation for the engine.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	syncActions     *prometheus.CounterVec
	submissions     *prometheus.CounterVec
	rollupDuration  prometheus.Histogram
	superOverall    *prometheus.GaugeVec
	compliance      *prometheus.GaugeVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers the engine collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of operational HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	syncActions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "survey_sync_actions_total",
		Help: "Surveys created, deleted or skipped by catalog synchronization",
	}, []string{"action"})

	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "survey_submissions_total",
		Help: "Survey submissions by outcome",
	}, []string{"outcome"})

	rollupDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "department_rollup_duration_seconds",
		Help:    "Time spent recomputing a department super overall",
		Buckets: prometheus.DefBuckets,
	})

	superOverall := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "department_super_overall",
		Help: "Latest super overall rating per department",
	}, []string{"department_id"})

	compliance := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "compliance_departments",
		Help: "Departments per compliance bucket in the latest snapshot",
	}, []string{"bucket"})

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

	registry.MustRegister(
		requestDuration, syncActions, submissions, rollupDuration, superOverall, compliance,
		cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		collectors.NewGoCollector(),
	)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		syncActions:     syncActions,
		submissions:     submissions,
		rollupDuration:  rollupDuration,
		superOverall:    superOverall,
		compliance:      compliance,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
	}
}

// Registry exposes the underlying registry, mostly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
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

// ObserveHTTPRequest records ops endpoint latency.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

// RecordSync counts the actions of one synchronization run.
func (m *MetricsService) RecordSync(result dto.SyncResult) {
	if m == nil {
		return
	}
	m.syncActions.WithLabelValues("created").Add(float64(result.Created))
	m.syncActions.WithLabelValues("deleted").Add(float64(result.Deleted))
	m.syncActions.WithLabelValues("skipped").Add(float64(result.Skipped))
}

// RecordSubmission counts a submission attempt by outcome.
func (m *MetricsService) RecordSubmission(outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
}

// ObserveRollup records a roll-up and, when present, the resulting value.
func (m *MetricsService) ObserveRollup(departmentID string, value *float64, duration time.Duration) {
	if m == nil {
		return
	}
	m.rollupDuration.Observe(duration.Seconds())
	if value != nil {
		m.superOverall.WithLabelValues(departmentID).Set(*value)
	}
}

// SetCompliance publishes the bucket sizes of a compliance snapshot.
func (m *MetricsService) SetCompliance(report dto.ComplianceReport) {
	if m == nil {
		return
	}
	m.compliance.WithLabelValues("on_time").Set(float64(len(report.OnTimeDepartments)))
	m.compliance.WithLabelValues("late").Set(float64(len(report.LateDepartments)))
	m.compliance.WithLabelValues("missed").Set(float64(len(report.MissedDepartments)))
	m.compliance.WithLabelValues("pending").Set(float64(len(report.PendingDepartments)))
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
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total > 0 {
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
