package daemon

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/servokit/servod/pkg/calibration"
	"github.com/servokit/servod/pkg/config"
	"github.com/servokit/servod/pkg/events"
	"github.com/servokit/servod/pkg/servo"
	"github.com/servokit/servod/pkg/types"
	"github.com/servokit/servod/pkg/version"
)

func abortWithError(c *gin.Context, code int, err error) {
	c.IndentedJSON(code, err.Error())
	_ = c.AbortWithError(code, err)
}

// statusCodeFor maps domain errors to HTTP status codes.
func statusCodeFor(err error) int {
	switch {
	case errors.Is(err, ErrServoNotFound), errors.Is(err, ErrScheduleNotFound):
		return http.StatusNotFound
	case errors.Is(err, calibration.ErrTooFewPoints),
		errors.Is(err, calibration.ErrIndexOutOfRange),
		errors.Is(err, calibration.ErrNotAscending):
		return http.StatusBadRequest
	case errors.Is(err, ErrBankClosed):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func getConfig(c *gin.Context) {
	fc, err := config.NewRawFileConfigFromConfig(conf)
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	c.IndentedJSON(http.StatusOK, fc)
}

func getVersion(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, version.Version)
}

func listServos(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, bank.List())
}

func getServo(c *gin.Context) {
	st, err := bank.Status(c.Param("name"))
	if err != nil {
		abortWithError(c, statusCodeFor(err), err)
		return
	}
	c.IndentedJSON(http.StatusOK, st)
}

// command runs fn on the servo named in the path and responds with its new
// status.
func command(c *gin.Context, fn func(s *servo.Servo) error) {
	name := c.Param("name")

	st, err := bank.Do(name, sourceAPI, fn)
	if err != nil {
		abortWithError(c, statusCodeFor(err), err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"servo":   name,
		"state":   st.State,
		"value":   st.Value,
		"pulse":   st.Pulse,
		"request": c.Request.URL.Path,
	}).Info("servo commanded")

	c.IndentedJSON(http.StatusCreated, st)
}

func setValue(c *gin.Context) {
	var v float64
	if err := c.ShouldBindJSON(&v); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	command(c, func(s *servo.Servo) error {
		s.SetValue(v)
		return nil
	})
}

func setPulse(c *gin.Context) {
	var p float64
	if err := c.ShouldBindJSON(&p); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	command(c, func(s *servo.Servo) error {
		s.SetPulse(p)
		return nil
	})
}

func setPercent(c *gin.Context) {
	var req types.PercentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	inMin, inMax := 0.0, 1.0
	if req.InMin != nil {
		inMin = *req.InMin
	}
	if req.InMax != nil {
		inMax = *req.InMax
	}
	if inMin == inMax {
		abortWithError(c, http.StatusBadRequest, pkgerrors.Errorf("input range is empty: %g..%g", inMin, inMax))
		return
	}
	if (req.ValueMin == nil) != (req.ValueMax == nil) {
		abortWithError(c, http.StatusBadRequest, errors.New("valueMin and valueMax must be set together"))
		return
	}

	command(c, func(s *servo.Servo) error {
		if req.ValueMin != nil {
			s.ToPercentRange(req.In, inMin, inMax, *req.ValueMin, *req.ValueMax)
		} else {
			s.ToPercent(req.In, inMin, inMax)
		}
		return nil
	})
}

// runAction returns a handler for an action that takes no argument.
func runAction(action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		command(c, func(s *servo.Servo) error {
			return applyAction(s, action, 0)
		})
	}
}

func getCalibration(c *gin.Context) {
	var cc config.CalibrationConfig
	err := bank.View(c.Param("name"), func(s *servo.Servo) error {
		cc = config.CalibrationFromTable(s.Calibration())
		return nil
	})
	if err != nil {
		abortWithError(c, statusCodeFor(err), err)
		return
	}
	c.IndentedJSON(http.StatusOK, cc)
}

// updateCalibration applies fn to the table of the servo named in the path,
// persists the result and responds with it. fn must leave the table untouched
// when it fails. The previous table is put back if it cannot be saved.
func updateCalibration(c *gin.Context, fn func(t *calibration.Table, typ calibration.Type) error) {
	name := c.Param("name")

	var prev, cc config.CalibrationConfig
	err := bank.View(name, func(s *servo.Servo) error {
		prev = config.CalibrationFromTable(s.Calibration())
		if err := fn(s.Calibration(), s.Type()); err != nil {
			return err
		}
		cc = config.CalibrationFromTable(s.Calibration())
		return nil
	})
	if err != nil {
		abortWithError(c, statusCodeFor(err), err)
		return
	}

	if err := conf.SetServoCalibration(name, cc); err != nil {
		logrus.WithField("servo", name).Warnf("calibration not persisted: %v", err)
	} else if err := conf.Save(); err != nil {
		logrus.Errorf("saveConfig failed: %v", err)
		restoreCalibration(name, prev)
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}

	sseHub.Publish(events.CalibrationChanged, events.CalibrationChangedEvent{
		Servo:  name,
		Points: len(cc.Points),
		Ts:     time.Now().Unix(),
	})

	logrus.WithFields(logrus.Fields{
		"servo":  name,
		"points": len(cc.Points),
	}).Info("calibration updated")

	c.IndentedJSON(http.StatusCreated, cc)
}

func restoreCalibration(name string, prev config.CalibrationConfig) {
	err := bank.View(name, func(s *servo.Servo) error {
		return prev.ApplyTo(s.Calibration())
	})
	if err != nil {
		logrus.WithField("servo", name).Errorf("failed to restore calibration: %v", err)
	}
	if err := conf.SetServoCalibration(name, prev); err != nil {
		logrus.WithField("servo", name).Errorf("failed to restore calibration config: %v", err)
	}
}

func setCalibration(c *gin.Context) {
	var req config.CalibrationConfig
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	updateCalibration(c, func(t *calibration.Table, _ calibration.Type) error {
		return req.ApplyTo(t)
	})
}

func setCalibrationPoint(c *gin.Context) {
	i, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, pkgerrors.Wrapf(err, "invalid point index"))
		return
	}

	var p calibration.Point
	if err := c.ShouldBindJSON(&p); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	updateCalibration(c, func(t *calibration.Table, _ calibration.Type) error {
		if _, err := t.Point(i); err != nil {
			return err
		}
		pts := t.Points()
		pts[i] = p
		return config.CalibrationConfig{Points: pts}.ApplyTo(t)
	})
}

func setUniformCalibration(c *gin.Context) {
	var req types.UniformRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	updateCalibration(c, func(t *calibration.Table, _ calibration.Type) error {
		var tmp calibration.Table
		if err := tmp.CreateUniform(req.Points, req.MinPulse, req.MinValue, req.MaxPulse, req.MaxValue); err != nil {
			return err
		}
		return config.CalibrationConfig{Points: tmp.Points()}.ApplyTo(t)
	})
}

func setDefaultCalibration(c *gin.Context) {
	updateCalibration(c, func(t *calibration.Table, typ calibration.Type) error {
		t.CreateDefault(typ)
		return nil
	})
}

func setLimits(c *gin.Context) {
	var req types.LimitsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	updateCalibration(c, func(t *calibration.Table, _ calibration.Type) error {
		t.LimitTo(req.Lower, req.Upper)
		return nil
	})
}

func getSchedules(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, schedules.Status())
}

func skipSchedule(c *gin.Context) {
	i, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, pkgerrors.Wrapf(err, "invalid schedule index"))
		return
	}

	if err := schedules.Skip(i); err != nil {
		abortWithError(c, statusCodeFor(err), err)
		return
	}

	logrus.WithField("index", i).Info("next scheduled run skipped")

	c.IndentedJSON(http.StatusCreated, "ok")
}

// streamEvents forwards hub events to the client as server-sent events until
// the client goes away.
func streamEvents(c *gin.Context) {
	ch := sseHub.Subscribe()
	defer sseHub.Unsubscribe(ch)

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("Content-Type", "text/event-stream")
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	c.Stream(func(_ io.Writer) bool {
		select {
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(ev.Name, string(ev.Data))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
