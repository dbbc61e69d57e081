package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/servokit/servod/pkg/servo"
)

func TestObserve(t *testing.T) {
	e := NewExporter()

	e.Observe(servo.Status{Name: "pan", State: servo.Enabled, Value: 45, Pulse: 2000, Level: 2000}, "api")
	e.Observe(servo.Status{Name: "pan", State: servo.Disabled, Value: 45, Pulse: 2000}, "idle")

	assert.Equal(t, 2000.0, testutil.ToFloat64(e.pulse.WithLabelValues("pan")))
	assert.Equal(t, 45.0, testutil.ToFloat64(e.value.WithLabelValues("pan")))
	assert.Equal(t, 0.0, testutil.ToFloat64(e.level.WithLabelValues("pan")))
	assert.Equal(t, 0.0, testutil.ToFloat64(e.enabled.WithLabelValues("pan")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.commands.WithLabelValues("pan", "api")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.commands.WithLabelValues("pan", "idle")))
}

func TestObserveFault(t *testing.T) {
	e := NewExporter()
	e.Observe(servo.Status{Name: "pan", Fault: "unplugged"}, "api")
	e.Observe(servo.Status{Name: "tilt"}, "api")

	assert.Equal(t, 1.0, testutil.ToFloat64(e.fault.WithLabelValues("pan")))
	assert.Equal(t, 0.0, testutil.ToFloat64(e.fault.WithLabelValues("tilt")))

	e.Observe(servo.Status{Name: "pan"}, "api")
	assert.Equal(t, 0.0, testutil.ToFloat64(e.fault.WithLabelValues("pan")))
}

func TestHandler(t *testing.T) {
	e := NewExporter()
	e.Observe(servo.Status{Name: "pan", State: servo.Enabled, Pulse: 1500, Level: 1500}, "api")

	w := httptest.NewRecorder()
	e.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), `servod_pulse_microseconds{servo="pan"} 1500`)
	assert.Contains(t, w.Body.String(), `servod_enabled{servo="pan"} 1`)
}

func TestNilExporter(t *testing.T) {
	var e *Exporter
	e.Observe(servo.Status{Name: "pan"}, "api")
}
