/*
Package metrics exposes the Checker's counters as Prometheus collectors (github.com/prometheus/
client_golang, a dependency several of the servers in the retrieved corpus ship) behind an optional
HTTP /metrics endpoint, and re-homes the teacher's internal/connectiontracker package as
CheckTracker: the same connection-lifecycle bookkeeping, generalized from "inbound HTTP connection"
to "in-flight proxy check", still exposing the shared Reporter interface so it plugs into the same
periodic-status-line convention the teacher's cmd/* binaries use.
*/
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the Prometheus collectors the checker updates as it works.
type Metrics struct {
	ProxiesChecked prometheus.Counter
	ProxiesWorking prometheus.Counter
	Attempts       *prometheus.CounterVec // labels: tag, outcome
	InflightChecks prometheus.Gauge
}

// New registers a fresh set of collectors against reg. Pass prometheus.NewRegistry() in tests to
// avoid colliding with the global default registry across test runs.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ProxiesChecked: f.NewCounter(prometheus.CounterOpts{
			Name: "proxysentry_proxies_checked_total",
			Help: "Total candidates drawn from the queue and checked.",
		}),
		ProxiesWorking: f.NewCounter(prometheus.CounterOpts{
			Name: "proxysentry_proxies_working_total",
			Help: "Total candidates that yielded at least one successful protocol check.",
		}),
		Attempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "proxysentry_attempts_total",
			Help: "Protocol check attempts by tag and outcome.",
		}, []string{"tag", "outcome"}),
		InflightChecks: f.NewGauge(prometheus.GaugeOpts{
			Name: "proxysentry_inflight_checks",
			Help: "Number of proxy checks currently in flight.",
		}),
	}
}

// Server wraps an http.Server exposing /metrics.
type Server struct {
	httpServer *http.Server
}

// NewServer builds a /metrics server listening on addr, using reg as the Prometheus gatherer.
func NewServer(addr string, reg prometheus.Gatherer) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return &Server{httpServer: &http.Server{Addr: addr, Handler: mux}}
}

// ListenAndServe blocks serving /metrics until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithCancel(context.Background())
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
