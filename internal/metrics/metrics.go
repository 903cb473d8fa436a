package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the controller's instrumentation: builds, probes, restarts,
// and the number of deployments currently tracked.
type Metrics struct {
	BuildsTotal       *prometheus.CounterVec
	ProbesTotal       *prometheus.CounterVec
	RestartsTotal     *prometheus.CounterVec
	DeploymentsActive prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		BuildsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "graphdeploy",
			Name:      "builds_total",
			Help:      "Image builds by result.",
		}, []string{"result"}),
		ProbesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "graphdeploy",
			Name:      "probes_total",
			Help:      "Liveness probes by deployment and outcome.",
		}, []string{"deployment", "outcome"}),
		RestartsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "graphdeploy",
			Name:      "restarts_total",
			Help:      "Containers restarted after failed liveness probes.",
		}, []string{"deployment"}),
		DeploymentsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "graphdeploy",
			Name:      "deployments_active",
			Help:      "Deployments currently tracked by the controller.",
		}),
	}
}
