// Package metrics holds the Prometheus collectors of the parking services.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

const namespace = "parkgo"

// Recorder is safe to use as a nil pointer, every method is then a no-op.
type Recorder struct {
	registry   *prometheus.Registry
	parked     *prometheus.CounterVec
	exited     *prometheus.CounterVec
	revenue    prometheus.Counter
	rejections *prometheus.CounterVec
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		parked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vehicles_parked_total",
			Help:      "Vehicles admitted, by vehicle type.",
		}, []string{"vehicle_type"}),
		exited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vehicles_exited_total",
			Help:      "Vehicles that left, by vehicle type and pricing strategy.",
		}, []string{"vehicle_type", "strategy"}),
		revenue: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "revenue_total",
			Help:      "Fees collected at exit.",
		}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "park_rejections_total",
			Help:      "Refused park requests, by reason.",
		}, []string{"reason"}),
	}

	r.registry.MustRegister(
		r.parked,
		r.exited,
		r.revenue,
		r.rejections,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

func (r *Recorder) Parked(vehicleType string) {
	if r == nil {
		return
	}
	r.parked.WithLabelValues(vehicleType).Inc()
}

func (r *Recorder) Exited(vehicleType, strategy string, fee decimal.Decimal) {
	if r == nil {
		return
	}
	r.exited.WithLabelValues(vehicleType, strategy).Inc()
	r.revenue.Add(fee.InexactFloat64())
}

func (r *Recorder) Rejected(reason string) {
	if r == nil {
		return
	}
	r.rejections.WithLabelValues(reason).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
