package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gestation"

var (
	registerOnce sync.Once

	relayPackets = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "packets_total",
			Help:      "Inbound OSC messages handed to the handlers.",
		},
		[]string{"mode"},
	)
	decodeFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "decode_failures_total",
			Help:      "Inbound datagrams dropped because they did not decode.",
		},
		[]string{"mode"},
	)
	handlerPanics = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "handler_panics_total",
			Help:      "Handler panics recovered during fan-out.",
		},
	)
	sends = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "sends_total",
			Help:      "Outbound OSC messages by address and outcome.",
		},
		[]string{"address", "success"},
	)
	metadataLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "metadata",
			Name:      "lookups_total",
			Help:      "Metadata cache lookups by kind and result.",
		},
		[]string{"kind", "result"},
	)
	storeWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "writes_total",
			Help:      "Save store writes by outcome.",
		},
		[]string{"success"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"server", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"server", "method", "path", "status"},
	)
)

// Lookup results for RecordMetadataLookup.
const (
	LookupHit   = "hit"
	LookupMiss  = "miss"
	LookupError = "error"
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			relayPackets,
			decodeFailures,
			handlerPanics,
			sends,
			metadataLookups,
			storeWrites,
			httpRequests,
			httpDuration,
		)
	})
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	RegisterMetrics()
	return promhttp.Handler()
}

func RecordPacket(mode string) {
	RegisterMetrics()
	relayPackets.WithLabelValues(mode).Inc()
}

func RecordDecodeFailure(mode string) {
	RegisterMetrics()
	decodeFailures.WithLabelValues(mode).Inc()
}

func RecordHandlerPanic() {
	RegisterMetrics()
	handlerPanics.Inc()
}

func RecordSend(address string, success bool) {
	RegisterMetrics()
	sends.WithLabelValues(address, strconv.FormatBool(success)).Inc()
}

func RecordMetadataLookup(kind, result string) {
	RegisterMetrics()
	metadataLookups.WithLabelValues(kind, result).Inc()
}

func RecordStoreWrite(success bool) {
	RegisterMetrics()
	storeWrites.WithLabelValues(strconv.FormatBool(success)).Inc()
}

func RecordHTTPRequest(server, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(server, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(server, method, path, statusLabel).Observe(duration.Seconds())
}
