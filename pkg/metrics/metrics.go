package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/servokit/servod/pkg/servo"
)

const namespace = "servod"

// Exporter holds the servo gauges and the registry they are served from.
type Exporter struct {
	registry *prometheus.Registry

	pulse    *prometheus.GaugeVec
	value    *prometheus.GaugeVec
	level    *prometheus.GaugeVec
	enabled  *prometheus.GaugeVec
	fault    *prometheus.GaugeVec
	commands *prometheus.CounterVec
}

// NewExporter creates an Exporter with its own registry.
func NewExporter() *Exporter {
	labels := []string{"servo"}
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		pulse: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pulse_microseconds",
			Help:      "Last pulse width driven, in microseconds.",
		}, labels),
		value: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "value",
			Help:      "Last commanded value in calibration units.",
		}, labels),
		level: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "level",
			Help:      "Duty count currently written to the pin.",
		}, labels),
		enabled: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "enabled",
			Help:      "1 if the servo is being driven.",
		}, labels),
		fault: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "driver_fault",
			Help:      "1 if the last write to the pwm driver failed.",
		}, labels),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands applied to a servo, by source.",
		}, []string{"servo", "source"}),
	}

	e.registry.MustRegister(e.pulse, e.value, e.level, e.enabled, e.fault, e.commands)

	return e
}

// Observe records the state of a servo after a command from source.
func (e *Exporter) Observe(st servo.Status, source string) {
	if e == nil {
		return
	}

	enabled := 0.0
	if st.State == servo.Enabled {
		enabled = 1
	}

	e.pulse.WithLabelValues(st.Name).Set(st.Pulse)
	e.value.WithLabelValues(st.Name).Set(st.Value)
	e.level.WithLabelValues(st.Name).Set(float64(st.Level))
	e.enabled.WithLabelValues(st.Name).Set(enabled)
	fault := 0.0
	if st.Fault != "" {
		fault = 1
	}
	e.fault.WithLabelValues(st.Name).Set(fault)
	e.commands.WithLabelValues(st.Name, source).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
