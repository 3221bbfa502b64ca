package internal

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is a real Prometheus registry, the same
// "prometheus.NewCounterVec + promhttp.Handler" shape this proxy's sibling
// HTTP/3-to-WebSocket gateway already uses, replacing the hand-rolled text
// exporter this codebase originally carried for its outbound upstream
// selection stats.
type Metrics struct {
	registry *prometheus.Registry

	sessionsAccepted prometheus.Counter
	sessionsRejected *prometheus.CounterVec
	sessionsActive   prometheus.Gauge
	bytesTotal       *prometheus.CounterVec
	dialFailures     *prometheus.CounterVec
	sessionDuration  prometheus.Histogram
}

// NewMetrics constructs and registers a fresh metric set against its own
// registry, so multiple *Metrics instances (as in tests) never collide on
// prometheus's global default registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		sessionsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vlessws_sessions_accepted_total",
			Help: "WebSocket sessions accepted for VLESS handshake processing.",
		}),
		sessionsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vlessws_sessions_rejected_total",
			Help: "Sessions rejected before relaying began, by reason.",
		}, []string{"reason"}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vlessws_sessions_active",
			Help: "Sessions currently open, from WebSocket accept until the session ends.",
		}),
		bytesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vlessws_bytes_total",
			Help: "Bytes relayed, by direction.",
		}, []string{"dir"}), // "upstream" (ws -> tcp), "downstream" (tcp -> ws)
		dialFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vlessws_dial_failures_total",
			Help: "Outbound TCP dial failures, by reason.",
		}, []string{"reason"}),
		sessionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "vlessws_session_duration_seconds",
			Help:    "Session lifetime from accept to relay teardown.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 14),
		}),
	}
	m.registry = prometheus.NewRegistry()
	m.registry.MustRegister(
		m.sessionsAccepted, m.sessionsRejected, m.sessionsActive,
		m.bytesTotal, m.dialFailures, m.sessionDuration,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRejected increments the rejection counter for reason, the same
// taxonomy failureReason used to bucket outbound dial errors, repointed at
// inbound handshake/auth failures.
func (m *Metrics) RecordRejected(reason string) {
	m.sessionsRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordDialFailure(reason string) {
	m.dialFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) SessionStarted() {
	m.sessionsAccepted.Inc()
	m.sessionsActive.Inc()
}

func (m *Metrics) SessionEnded(d time.Duration) {
	m.sessionsActive.Dec()
	m.sessionDuration.Observe(d.Seconds())
}

func (m *Metrics) AddBytesUpstream(n int)   { m.bytesTotal.WithLabelValues("upstream").Add(float64(n)) }
func (m *Metrics) AddBytesDownstream(n int) { m.bytesTotal.WithLabelValues("downstream").Add(float64(n)) }

// FailureReason buckets a dial error into a small label set, the same
// substring-matching classifier this codebase's original metrics used for
// outbound upstream failures, reused here for the inbound dial side.
func FailureReason(err error) string {
	if err == nil {
		return "unknown"
	}
	e := strings.ToLower(err.Error())
	switch {
	case strings.Contains(e, "timeout") || strings.Contains(e, "deadline"):
		return "timeout"
	case strings.Contains(e, "refused"):
		return "refused"
	case strings.Contains(e, "no such host") || strings.Contains(e, "dns"):
		return "dns"
	case strings.Contains(e, "network is unreachable") || strings.Contains(e, "no route to host"):
		return "unreachable"
	default:
		return "other"
	}
}

// StartMetricsServer serves /metrics and /healthz on addr until ctx is
// canceled, the same "own http.Server, shut down on ctx.Done" shape this
// codebase's original metrics server used.
func StartMetricsServer(ctx context.Context, addr string, m *Metrics) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	err := srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
