package daemon

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/servokit/servod/pkg/calibration"
	"github.com/servokit/servod/pkg/config"
	"github.com/servokit/servod/pkg/events"
	"github.com/servokit/servod/pkg/metrics"
	"github.com/servokit/servod/pkg/pwm"
	"github.com/servokit/servod/pkg/servo"
	"github.com/servokit/servod/pkg/types"
	"github.com/servokit/servod/pkg/utils/ptr"
)

func testConfig() *config.RawFileConfig {
	return &config.RawFileConfig{
		IdleTimeoutSeconds: ptr.To(1),
		Servos: []config.ServoConfig{
			{Name: "pan", Pin: 0, Type: calibration.Angular},
			{Name: "grip", Pin: 3, Type: calibration.Linear, InitialValue: ptr.To(0.5)},
		},
		Schedules: []config.ScheduleConfig{
			{Cron: "0 8 * * *", Servo: "pan", Action: config.ActionMid},
		},
	}
}

// setupTestDaemon wires the package state the way Run does, on a memory
// actuator and a config file in a temp dir.
func setupTestDaemon(t *testing.T, raw *config.RawFileConfig) (*gin.Engine, *pwm.Memory, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "servod.json")
	conf = config.NewFileFromConfig(raw, path)
	sseHub = events.NewEventHub()
	exporter = metrics.NewExporter()

	mem := pwm.NewMemory(0)
	var err error
	bank, err = buildBank(mem, conf.Servos(), onServoChange)
	require.NoError(t, err)

	schedules = NewPoseScheduler(bank)
	require.NoError(t, schedules.Load(conf.Schedules()))
	t.Cleanup(schedules.Stop)

	return setupRoutes(), mem, path
}

func request(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestListAndGetServos(t *testing.T) {
	r, _, _ := setupTestDaemon(t, testConfig())

	w := request(t, r, "GET", "/servos", "")
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]servo.Status](t, w)
	require.Len(t, list, 2)
	assert.Equal(t, "pan", list[0].Name)
	assert.Equal(t, servo.Disabled, list[0].State)
	assert.Equal(t, "grip", list[1].Name)
	assert.Equal(t, servo.Enabled, list[1].State)
	assert.Equal(t, 1500.0, list[1].Pulse)

	w = request(t, r, "GET", "/servos/pan", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, calibration.Angular, decode[servo.Status](t, w).Type)

	w = request(t, r, "GET", "/servos/ghost", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSetValueAndPulse(t *testing.T) {
	r, mem, _ := setupTestDaemon(t, testConfig())

	w := request(t, r, "PUT", "/servos/pan/value", "45")
	require.Equal(t, http.StatusCreated, w.Code)
	st := decode[servo.Status](t, w)
	assert.Equal(t, servo.Enabled, st.State)
	assert.Equal(t, 2000.0, st.Pulse)

	pin, ok := mem.Pin(0)
	require.True(t, ok)
	assert.Equal(t, uint32(2000), pin.Level)

	w = request(t, r, "PUT", "/servos/pan/pulse", "0")
	require.Equal(t, http.StatusCreated, w.Code)
	st = decode[servo.Status](t, w)
	assert.Equal(t, servo.Disabled, st.State)
	assert.Equal(t, 45.0, st.Value)

	assert.Equal(t, http.StatusBadRequest, request(t, r, "PUT", "/servos/pan/value", "forty").Code)
	assert.Equal(t, http.StatusNotFound, request(t, r, "PUT", "/servos/ghost/value", "1").Code)
}

func TestSetPercent(t *testing.T) {
	r, _, _ := setupTestDaemon(t, testConfig())

	w := request(t, r, "PUT", "/servos/pan/percent", `{"in": 50, "inMin": 0, "inMax": 100}`)
	require.Equal(t, http.StatusCreated, w.Code)
	st := decode[servo.Status](t, w)
	assert.Equal(t, 0.0, st.Value)
	assert.Equal(t, 1500.0, st.Pulse)
	assert.Equal(t, servo.Enabled, st.State)

	w = request(t, r, "PUT", "/servos/pan/percent", `{"in": 1}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 90.0, decode[servo.Status](t, w).Value)

	w = request(t, r, "PUT", "/servos/pan/percent", `{"in": 0.5, "valueMin": 0, "valueMax": 40}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 20.0, decode[servo.Status](t, w).Value)

	assert.Equal(t, http.StatusBadRequest, request(t, r, "PUT", "/servos/pan/percent", `{"in": 1, "inMin": 2, "inMax": 2}`).Code)
	assert.Equal(t, http.StatusBadRequest, request(t, r, "PUT", "/servos/pan/percent", `{"in": 1, "valueMin": 2}`).Code)
}

func TestActions(t *testing.T) {
	r, _, _ := setupTestDaemon(t, testConfig())

	for _, tc := range []struct {
		action string
		state  servo.State
		value  float64
	}{
		{"enable", servo.Enabled, 0},
		{"min", servo.Enabled, -90},
		{"max", servo.Enabled, 90},
		{"disable", servo.Disabled, 90},
		{"mid", servo.Enabled, 0},
	} {
		w := request(t, r, "POST", "/servos/pan/"+tc.action, "")
		require.Equal(t, http.StatusCreated, w.Code, tc.action)
		st := decode[servo.Status](t, w)
		assert.Equal(t, tc.state, st.State, tc.action)
		assert.Equal(t, tc.value, st.Value, tc.action)
	}
}

func TestCalibrationEndpoints(t *testing.T) {
	r, _, path := setupTestDaemon(t, testConfig())

	w := request(t, r, "GET", "/servos/pan/calibration", "")
	require.Equal(t, http.StatusOK, w.Code)
	cc := decode[config.CalibrationConfig](t, w)
	assert.Len(t, cc.Points, 3)
	assert.True(t, *cc.LimitLower)

	// unordered tables are refused and leave the servo alone
	w = request(t, r, "PUT", "/servos/pan/calibration", `{"points": [{"pulse": 2000, "value": 10}, {"pulse": 1000, "value": 0}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = request(t, r, "PUT", "/servos/pan/calibration", `{"points": [{"pulse": 1000, "value": 0}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	cc = decode[config.CalibrationConfig](t, request(t, r, "GET", "/servos/pan/calibration", ""))
	assert.Len(t, cc.Points, 3)

	w = request(t, r, "PUT", "/servos/pan/calibration", `{"points": [{"pulse": 1000, "value": 0}, {"pulse": 2000, "value": 100}], "limitUpper": false}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = request(t, r, "PUT", "/servos/pan/value", "50")
	assert.Equal(t, 1500.0, decode[servo.Status](t, w).Pulse)
	w = request(t, r, "PUT", "/servos/pan/value", "150")
	assert.Equal(t, 2500.0, decode[servo.Status](t, w).Pulse)

	saved, err := config.NewFile(path)
	require.NoError(t, err)
	servos := saved.Servos()
	require.NotNil(t, servos[0].Calibration)
	assert.Equal(t, []calibration.Point{{Pulse: 1000, Value: 0}, {Pulse: 2000, Value: 100}}, servos[0].Calibration.Points)
	assert.False(t, *servos[0].Calibration.LimitUpper)
}

func TestCalibrationSaveFailureRestores(t *testing.T) {
	r, _, path := setupTestDaemon(t, testConfig())
	// a directory in place of the config file makes Save fail
	require.NoError(t, os.Mkdir(path, 0o755))

	before := decode[config.CalibrationConfig](t, request(t, r, "GET", "/servos/pan/calibration", ""))

	w := request(t, r, "PUT", "/servos/pan/calibration", `{"points": [{"pulse": 1000, "value": 0}, {"pulse": 2000, "value": 100}]}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	w = request(t, r, "PUT", "/servos/pan/limits", `{"lower": false, "upper": false}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	after := decode[config.CalibrationConfig](t, request(t, r, "GET", "/servos/pan/calibration", ""))
	assert.Equal(t, before, after)

	w = request(t, r, "PUT", "/servos/pan/value", "0")
	assert.Equal(t, 1500.0, decode[servo.Status](t, w).Pulse)

	cc := conf.Servos()[0].Calibration
	require.NotNil(t, cc)
	assert.Equal(t, before.Points, cc.Points)
}

func TestCalibrationPointEndpoint(t *testing.T) {
	r, _, _ := setupTestDaemon(t, testConfig())

	assert.Equal(t, http.StatusBadRequest, request(t, r, "PUT", "/servos/pan/calibration/points/3", `{"pulse": 1, "value": 1}`).Code)
	assert.Equal(t, http.StatusBadRequest, request(t, r, "PUT", "/servos/pan/calibration/points/x", `{"pulse": 1, "value": 1}`).Code)
	assert.Equal(t, http.StatusBadRequest, request(t, r, "PUT", "/servos/pan/calibration/points/1", `{"pulse": 3000, "value": 0}`).Code)

	w := request(t, r, "PUT", "/servos/pan/calibration/points/1", `{"pulse": 1600, "value": 0}`)
	require.Equal(t, http.StatusCreated, w.Code)
	cc := decode[config.CalibrationConfig](t, w)
	assert.Equal(t, calibration.Point{Pulse: 1600, Value: 0}, cc.Points[1])

	assert.Equal(t, http.StatusNotFound, request(t, r, "PUT", "/servos/ghost/calibration/points/1", `{"pulse": 1600, "value": 0}`).Code)
}

func TestUniformDefaultAndLimits(t *testing.T) {
	r, _, _ := setupTestDaemon(t, testConfig())

	w := request(t, r, "POST", "/servos/grip/calibration/uniform", `{"points": 1, "minPulse": 1000, "maxPulse": 2000, "maxValue": 10}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = request(t, r, "POST", "/servos/grip/calibration/uniform", `{"points": 3, "minPulse": 1000, "minValue": 0, "maxPulse": 2000, "maxValue": 10}`)
	require.Equal(t, http.StatusCreated, w.Code)
	cc := decode[config.CalibrationConfig](t, w)
	assert.Equal(t, []calibration.Point{{Pulse: 1000, Value: 0}, {Pulse: 1500, Value: 5}, {Pulse: 2000, Value: 10}}, cc.Points)

	w = request(t, r, "PUT", "/servos/grip/limits", `{"lower": false, "upper": true}`)
	require.Equal(t, http.StatusCreated, w.Code)
	cc = decode[config.CalibrationConfig](t, w)
	assert.False(t, *cc.LimitLower)
	assert.True(t, *cc.LimitUpper)

	w = request(t, r, "POST", "/servos/grip/calibration/default", "")
	require.Equal(t, http.StatusCreated, w.Code)
	cc = decode[config.CalibrationConfig](t, w)
	assert.Equal(t, []calibration.Point{{Pulse: 500, Value: 0}, {Pulse: 2500, Value: 1}}, cc.Points)
}

func TestConfigVersionMetrics(t *testing.T) {
	r, _, _ := setupTestDaemon(t, testConfig())

	w := request(t, r, "GET", "/config", "")
	require.Equal(t, http.StatusOK, w.Code)
	raw := decode[config.RawFileConfig](t, w)
	assert.Len(t, raw.Servos, 2)
	assert.Equal(t, 1, *raw.IdleTimeoutSeconds)

	w = request(t, r, "GET", "/version", "")
	require.Equal(t, http.StatusOK, w.Code)

	request(t, r, "PUT", "/servos/pan/pulse", "1250")
	w = request(t, r, "GET", "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `servod_pulse_microseconds{servo="pan"} 1250`)
	assert.Contains(t, w.Body.String(), `servod_commands_total{servo="grip",source="startup"} 1`)
}

func TestSchedulesEndpoints(t *testing.T) {
	r, _, _ := setupTestDaemon(t, testConfig())

	w := request(t, r, "GET", "/schedules", "")
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]types.ScheduleStatus](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, "pan", list[0].Servo)
	assert.False(t, list[0].NextRun.IsZero())

	w = request(t, r, "POST", "/schedules/0/skip", "")
	require.Equal(t, http.StatusCreated, w.Code)
	after := schedules.Status()[0].NextRun
	assert.True(t, after.After(list[0].NextRun))

	assert.Equal(t, http.StatusNotFound, request(t, r, "POST", "/schedules/4/skip", "").Code)
	assert.Equal(t, http.StatusBadRequest, request(t, r, "POST", "/schedules/x/skip", "").Code)
}

func TestCommandPublishesEvent(t *testing.T) {
	r, _, _ := setupTestDaemon(t, testConfig())
	ch := sseHub.Subscribe()
	defer sseHub.Unsubscribe(ch)

	request(t, r, "POST", "/servos/pan/max", "")

	select {
	case ev := <-ch:
		require.Equal(t, events.ServoState, ev.Name)
		payload, err := events.DecodeAs[events.ServoStateEvent](ev)
		require.NoError(t, err)
		assert.Equal(t, "pan", payload.Servo)
		assert.Equal(t, sourceAPI, payload.Source)
		assert.Equal(t, 2500.0, payload.Pulse)
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}
}

func TestEventStream(t *testing.T) {
	r, _, _ := setupTestDaemon(t, testConfig())
	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Eventually(t, func() bool { return sseHub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)
	request(t, r, "POST", "/servos/pan/min", "")

	sc := bufio.NewScanner(resp.Body)
	var lines []string
	for sc.Scan() {
		line := sc.Text()
		if line == "" && len(lines) > 0 {
			break
		}
		lines = append(lines, line)
	}

	require.Len(t, lines, 2)
	assert.Equal(t, "event:"+events.ServoState, lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "data:{"), lines[1])
	assert.Contains(t, lines[1], `"servo":"pan"`)
}

func TestReloadCalibration(t *testing.T) {
	r, _, path := setupTestDaemon(t, testConfig())

	w := request(t, r, "PUT", "/servos/pan/calibration", `{"points": [{"pulse": 1000, "value": 0}, {"pulse": 2000, "value": 100}], "limitLower": false}`)
	require.Equal(t, http.StatusCreated, w.Code)

	// reload picks up the saved table
	require.NoError(t, reload())
	cc := decode[config.CalibrationConfig](t, request(t, r, "GET", "/servos/pan/calibration", ""))
	assert.Len(t, cc.Points, 2)
	assert.False(t, *cc.LimitLower)

	// the calibration is dropped from the file
	require.NoError(t, config.NewFileFromConfig(testConfig(), path).Save())
	require.NoError(t, reload())

	cc = decode[config.CalibrationConfig](t, request(t, r, "GET", "/servos/pan/calibration", ""))
	assert.Equal(t, []calibration.Point{{Pulse: 500, Value: -90}, {Pulse: 1500, Value: 0}, {Pulse: 2500, Value: 90}}, cc.Points)
	assert.True(t, *cc.LimitLower)
	assert.True(t, *cc.LimitUpper)
}
