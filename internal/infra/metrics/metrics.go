// Package metrics collects authorization metrics for Prometheus.
package metrics

import (
	"net/http"

	"gatekeeper/internal/domain/entity"
	"gatekeeper/internal/domain/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector implements service.AuthMetrics on Prometheus counters.
type Collector struct {
	resolutions *prometheus.CounterVec
	issued      *prometheus.CounterVec
	revoked     *prometheus.CounterVec
}

var _ service.AuthMetrics = (*Collector)(nil)

// NewCollector creates the collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gatekeeper_authorization_resolutions_total",
			Help: "Credential resolutions by kind and outcome.",
		}, []string{"kind", "outcome"}),
		issued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gatekeeper_credentials_issued_total",
			Help: "Credentials issued by kind.",
		}, []string{"kind"}),
		revoked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gatekeeper_credentials_revoked_total",
			Help: "Credential rows removed by kind, including lazy expiry.",
		}, []string{"kind"}),
	}

	reg.MustRegister(c.resolutions, c.issued, c.revoked)

	return c
}

// ObserveResolution counts a resolution. Undecodable tokens are reported with kind "unknown".
func (c *Collector) ObserveResolution(kind entity.CredentialKind, outcome string) {
	label := kind.String()
	if !kind.IsValid() {
		label = "unknown"
	}
	c.resolutions.WithLabelValues(label, outcome).Inc()
}

// ObserveIssued counts an issued credential.
func (c *Collector) ObserveIssued(kind entity.CredentialKind) {
	c.issued.WithLabelValues(kind.String()).Inc()
}

// ObserveRevoked counts removed rows.
func (c *Collector) ObserveRevoked(kind entity.CredentialKind, count int) {
	if count <= 0 {
		return
	}
	c.revoked.WithLabelValues(kind.String()).Add(float64(count))
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// NewRegistry creates the registry the service exposes, with Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return reg
}
