package daemon

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/servokit/servod/pkg/calibration"
	"github.com/servokit/servod/pkg/config"
	"github.com/servokit/servod/pkg/events"
	"github.com/servokit/servod/pkg/metrics"
	"github.com/servokit/servod/pkg/servo"
)

var (
	conf      config.Config
	bank      *Bank
	schedules *PoseScheduler
	sseHub    *events.EventHub
	exporter  *metrics.Exporter
)

func setupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logrus.StandardLogger()))
	router.GET("/config", getConfig)
	router.GET("/version", getVersion)
	router.GET("/events", streamEvents)
	router.GET("/metrics", gin.WrapH(exporter.Handler()))
	router.GET("/schedules", getSchedules)
	router.POST("/schedules/:index/skip", skipSchedule)

	servos := router.Group("/servos")
	servos.GET("", listServos)
	servos.GET("/:name", getServo)
	servos.PUT("/:name/value", setValue)
	servos.PUT("/:name/pulse", setPulse)
	servos.PUT("/:name/percent", setPercent)
	servos.POST("/:name/enable", runAction(config.ActionEnable))
	servos.POST("/:name/disable", runAction(config.ActionDisable))
	servos.POST("/:name/min", runAction(config.ActionMin))
	servos.POST("/:name/mid", runAction(config.ActionMid))
	servos.POST("/:name/max", runAction(config.ActionMax))
	servos.GET("/:name/calibration", getCalibration)
	servos.PUT("/:name/calibration", setCalibration)
	servos.PUT("/:name/calibration/points/:index", setCalibrationPoint)
	servos.POST("/:name/calibration/uniform", setUniformCalibration)
	servos.POST("/:name/calibration/default", setDefaultCalibration)
	servos.PUT("/:name/limits", setLimits)

	return router
}

// onServoChange publishes the state of a servo after every command.
func onServoChange(st servo.Status, source string) {
	sseHub.Publish(events.ServoState, events.ServoStateEvent{
		Servo:   st.Name,
		Enabled: st.State == servo.Enabled,
		Value:   st.Value,
		Pulse:   st.Pulse,
		Level:   st.Level,
		Source:  source,
		Ts:      time.Now().Unix(),
	})
	exporter.Observe(st, source)
}

// reload re-reads the config file. Calibrations and schedules take effect
// immediately; a servo without a calibration goes back to the default table
// for its type. Driver and servo set changes need a restart.
func reload() error {
	if err := conf.Load(); err != nil {
		return err
	}

	for _, sc := range conf.Servos() {
		err := bank.View(sc.Name, func(s *servo.Servo) error {
			if sc.Calibration == nil {
				*s.Calibration() = calibration.New(s.Type())
				return nil
			}
			return sc.Calibration.ApplyTo(s.Calibration())
		})
		if errors.Is(err, ErrServoNotFound) {
			logrus.WithField("servo", sc.Name).Warn("new servo in config, restart the daemon to use it")
			continue
		}
		if err != nil {
			logrus.WithField("servo", sc.Name).Errorf("failed to apply calibration: %v", err)
		}
	}

	if err := schedules.Load(conf.Schedules()); err != nil {
		logrus.Errorf("some schedules were not loaded: %v", err)
	}

	return nil
}

func Run(configPath string, unixSocketPath string, allowNonRoot bool) error {
	var err error
	conf, err = config.NewFile(configPath)
	if err != nil {
		logrus.Fatalf("failed to parse config during startup: %v", err)
	}
	logrus.WithFields(conf.LogrusFields()).Infof("config loaded")

	sseHub = events.NewEventHub()
	exporter = metrics.NewExporter()

	actuator, closeActuator, err := openActuator(conf.Driver())
	if err != nil {
		logrus.Fatalf("failed to open pwm driver: %v", err)
	}

	bank, err = buildBank(actuator, conf.Servos(), onServoChange)
	if err != nil {
		logrus.Fatalf("failed to set up servos: %v", err)
	}

	schedules = NewPoseScheduler(bank)
	if err := schedules.Load(conf.Schedules()); err != nil {
		logrus.Errorf("some schedules were not loaded: %v", err)
	}

	router := setupRoutes()

	// Receive SIGHUP to reload config
	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGHUP)
		for range sigc {
			err := reload()
			if err != nil {
				logrus.Errorf("failed to reload config: %v", err)
				continue
			}
			logrus.Infof("config reloaded")
		}
	}()

	// Cancelled before shutdown so that event streams end.
	baseCtx, cancelBase := context.WithCancel(context.Background())
	srv := &http.Server{
		Handler:     router,
		BaseContext: func(net.Listener) context.Context { return baseCtx },
	}

	// Remove a stale socket left by a crashed daemon.
	if _, err := os.Stat(unixSocketPath); err == nil {
		logrus.Warnf("removing stale socket %s", unixSocketPath)
		_ = os.Remove(unixSocketPath)
	}

	// Create the socket to listen on:
	l, err := net.Listen("unix", unixSocketPath)
	if err != nil {
		logrus.Fatal(err)
	}

	if conf.AllowNonRootAccess() || allowNonRoot {
		logrus.Infof("non-root access is allowed, changing permissions of %s to 0777", unixSocketPath)
		err = os.Chmod(unixSocketPath, 0777)
		if err != nil {
			logrus.Fatal(err)
		}
	}

	// Serve HTTP on unix socket
	go func() {
		logrus.Infof("http server listening on %s", l.Addr().String())
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatal(err)
		}
	}()

	loopCtx, stopLoop := context.WithCancel(context.Background())
	go func() {
		logrus.Debugln("idle loop starts")
		idleLoop(loopCtx)
		logrus.Debugln("idle loop stopped")
	}()

	// Handle common process-killing signals, so we can gracefully shut down:
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	// Wait for a SIGINT or SIGTERM:
	sig := <-sigc
	logrus.Infof("caught signal \"%s\": shutting down.", sig)

	logrus.Info("shutting down http server")
	cancelBase()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = srv.Shutdown(ctx)
	if err != nil {
		logrus.Errorf("failed to shutdown http server: %v", err)
	}
	cancel()

	stopLoop()
	schedules.Stop()

	logrus.Info("releasing servo pins")
	bank.Close()

	logrus.Info("closing pwm driver")
	if err := closeActuator(); err != nil {
		logrus.Errorf("failed to close pwm driver: %v", err)
	}

	logrus.Info("exiting")
	return nil
}
