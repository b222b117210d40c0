// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Store metrics
	ValuesWritten    *prometheus.CounterVec
	BatchRetries     prometheus.Counter
	UnprocessedItems prometheus.Counter
	StoreOpDuration  *prometheus.HistogramVec
	StoreOpErrors    *prometheus.CounterVec
	CatalogWrites    prometheus.Counter
	CatalogCacheHits prometheus.Counter

	// Derivation metrics
	DerivationsTotal *prometheus.CounterVec

	// API metrics
	APIRequests        *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec

	// Ingest metrics
	IngestFrames      *prometheus.CounterVec
	IngestConnections prometheus.Gauge

	// Health metrics
	LastSuccessfulWrite      prometheus.Gauge
	LastSuccessfulDerivation prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "energy_tariffs"
	}

	return &Metrics{
		ValuesWritten: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "values_written_total",
			Help:      "Total number of indexing values written by origin",
		}, []string{"origin"}),
		BatchRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "batch_retries_total",
			Help:      "Total number of batch resubmissions of unprocessed items",
		}),
		UnprocessedItems: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "unprocessed_items_total",
			Help:      "Total number of items left unprocessed after all retries",
		}),
		StoreOpDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Store operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		StoreOpErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operation_errors_total",
			Help:      "Total number of failed store operations",
		}, []string{"operation"}),
		CatalogWrites: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "writes_total",
			Help:      "Total number of catalog entries upserted",
		}),
		CatalogCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "cache_hits_total",
			Help:      "Total number of catalog writes skipped by the seen-cache",
		}),

		DerivationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "derivation",
			Name:      "rules_total",
			Help:      "Total number of derivation rule runs by outcome",
		}, []string{"rule", "outcome"}),

		APIRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of API requests by method and status",
		}, []string{"method", "status"}),
		APIRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "API request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		IngestFrames: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "frames_total",
			Help:      "Total number of websocket frames by result",
		}, []string{"result"}),
		IngestConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "connections",
			Help:      "Number of open feeder connections",
		}),

		LastSuccessfulWrite: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_write_timestamp",
			Help:      "Unix timestamp of last successful value write",
		}),
		LastSuccessfulDerivation: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_derivation_timestamp",
			Help:      "Unix timestamp of last derivation run that stored values",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordValuesWritten counts stored values.
func RecordValuesWritten(origin string, n int) {
	if n <= 0 {
		return
	}
	DefaultMetrics.ValuesWritten.WithLabelValues(origin).Add(float64(n))
	DefaultMetrics.LastSuccessfulWrite.Set(float64(time.Now().Unix()))
}

// RecordBatchRetry counts one resubmission of unprocessed items.
func RecordBatchRetry() {
	DefaultMetrics.BatchRetries.Inc()
}

// RecordUnprocessed counts items that were given up on.
func RecordUnprocessed(n int) {
	DefaultMetrics.UnprocessedItems.Add(float64(n))
}

// RecordStoreOp records store operation metrics.
func RecordStoreOp(operation string, started time.Time, err error) {
	DefaultMetrics.StoreOpDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
	if err != nil {
		DefaultMetrics.StoreOpErrors.WithLabelValues(operation).Inc()
	}
}

// RecordCatalogWrites counts upserted catalog entries.
func RecordCatalogWrites(n int) {
	DefaultMetrics.CatalogWrites.Add(float64(n))
}

// RecordCatalogCacheHit counts a catalog write skipped by the cache.
func RecordCatalogCacheHit() {
	DefaultMetrics.CatalogCacheHits.Inc()
}

// RecordDerivation records the outcome of one rule: stored, pending or failed.
func RecordDerivation(rule, outcome string) {
	DefaultMetrics.DerivationsTotal.WithLabelValues(rule, outcome).Inc()
	if outcome == "stored" {
		DefaultMetrics.LastSuccessfulDerivation.Set(float64(time.Now().Unix()))
	}
}

// RecordAPIRequest records an API call.
func RecordAPIRequest(method string, status int, started time.Time) {
	DefaultMetrics.APIRequests.WithLabelValues(method, http.StatusText(status)).Inc()
	DefaultMetrics.APIRequestDuration.WithLabelValues(method).Observe(time.Since(started).Seconds())
}

// RecordIngestFrame records a websocket frame by result (accepted, rejected, partial).
func RecordIngestFrame(result string) {
	DefaultMetrics.IngestFrames.WithLabelValues(result).Inc()
}

// ConnectionOpened increments the open feeder connection gauge.
func ConnectionOpened() { DefaultMetrics.IngestConnections.Inc() }

// ConnectionClosed decrements the open feeder connection gauge.
func ConnectionClosed() { DefaultMetrics.IngestConnections.Dec() }
