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
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/handbrake/pkg/calibration"
	"github.com/charlie0129/handbrake/pkg/config"
	"github.com/charlie0129/handbrake/pkg/events"
	"github.com/charlie0129/handbrake/pkg/hid"
	"github.com/charlie0129/handbrake/pkg/hw"
)

// mqttMinInterval rate-limits the telemetry mirror; the host report itself
// is not limited.
const mqttMinInterval = 50 * time.Millisecond

// Options are the runtime switches of the daemon that do not belong in the
// device config.
type Options struct {
	// Simulate runs against an in-memory board and transport.
	Simulate bool
	// AllowNonRoot opens the status socket to every user.
	AllowNonRoot bool
}

func setupRoutes(s *server) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logrus.StandardLogger()))
	router.GET("/status", s.getStatus)
	router.GET("/calibration", s.getCalibration)
	router.GET("/events", s.getEvents)
	router.GET("/version", getVersion)

	return router
}

func openBoard(conf config.Config, simulate bool) (*hw.Board, error) {
	if simulate {
		logrus.Info("simulating hardware")
		return hw.NewMock(simulatedSweep(conf.DefaultCalibration())...).Board(), nil
	}

	return hw.Open(hw.Options{
		I2CBus:       conf.I2CBus(),
		ADCAddress:   conf.ADCAddress(),
		ADCChannel:   conf.ADCChannel(),
		ButtonPin:    conf.ButtonPin(),
		IndicatorPin: conf.IndicatorPin(),
		SampleMax:    conf.SampleMax(),
	})
}

// simulatedSweep moves across the default range and back so a simulated
// daemon produces a moving axis.
func simulatedSweep(r calibration.Record) []int {
	lo, hi := r.Bounds()
	const steps = 100
	samples := make([]int, 0, 2*steps)
	for i := 0; i <= steps; i++ {
		samples = append(samples, lo+(hi-lo)*i/steps)
	}
	for i := steps - 1; i > 0; i-- {
		samples = append(samples, lo+(hi-lo)*i/steps)
	}
	return samples
}

func openTransport(conf config.Config, simulate bool) (hid.Transport, error) {
	var ts []hid.Transport

	if simulate {
		ts = append(ts, hid.NewMemory())
	} else {
		g, err := hid.OpenGadget(conf.HIDDevice(), conf.LoopInterval())
		if err != nil {
			return nil, err
		}
		ts = append(ts, g)
	}

	if broker := conf.MQTTBroker(); broker != "" {
		m, err := hid.DialMQTT(hid.MQTTOptions{
			Broker:      broker,
			ClientID:    conf.MQTTClientID(),
			Topic:       conf.MQTTTopic(),
			MinInterval: mqttMinInterval,
		})
		if err != nil {
			// Telemetry is optional; the host report is what matters.
			logrus.WithError(err).Warn("mqtt telemetry disabled")
		} else {
			ts = append(ts, m)
		}
	}

	if len(ts) == 1 {
		return ts[0], nil
	}
	return hid.Multi(ts...), nil
}

func Run(conf config.Config, unixSocketPath string, opts Options) error {
	logrus.WithFields(conf.LogrusFields()).Infof("config loaded")

	board, err := openBoard(conf, opts.Simulate)
	if err != nil {
		return pkgerrors.Wrap(err, "failed to open hardware")
	}
	defer func() {
		logrus.Info("releasing hardware")
		if err := board.Close(); err != nil {
			logrus.Errorf("failed to release hardware: %v", err)
		}
	}()

	transport, err := openTransport(conf, opts.Simulate)
	if err != nil {
		return pkgerrors.Wrap(err, "failed to open HID transport")
	}
	defer func() {
		logrus.Info("closing HID transport")
		if err := transport.Close(); err != nil {
			logrus.Errorf("failed to close HID transport: %v", err)
		}
	}()

	store := calibration.NewFileStore(conf.CalibrationFile())
	hub := events.NewEventHub(64)
	status := newStatusBoard()

	srv := &http.Server{
		Handler: setupRoutes(&server{
			status: status,
			hub:    hub,
			store:  store,
		}),
	}

	// Remove a stale socket left by an unclean shutdown.
	_ = os.Remove(unixSocketPath)
	l, err := net.Listen("unix", unixSocketPath)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to listen on %s", unixSocketPath)
	}

	if opts.AllowNonRoot {
		logrus.Infof("non-root access is allowed, changing permissions of %s to 0777", unixSocketPath)
		err = os.Chmod(unixSocketPath, 0777)
		if err != nil {
			return pkgerrors.Wrapf(err, "failed to chmod %s", unixSocketPath)
		}
	}

	// Serve HTTP on unix socket
	go func() {
		logrus.Infof("http server listening on %s", l.Addr().String())
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatal(err)
		}
	}()

	sup := &Supervisor{
		Analog:        board.Analog,
		Button:        board.Button,
		Indicator:     board.Indicator,
		Transport:     transport,
		Store:         store,
		Defaults:      conf.DefaultCalibration(),
		Debounce:      conf.Debounce(),
		TrackInterval: conf.TrackInterval(),
		LoopInterval:  conf.LoopInterval(),
		SampleMax:     conf.SampleMax(),
		Hub:           hub,
		status:        status,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		logrus.Debugln("supervisor starts")
		sup.Run(ctx)
	}()

	// Handle common process-killing signals, so we can gracefully shut down:
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	// Wait for a SIGINT or SIGTERM:
	sig := <-sigc
	logrus.Infof("caught signal \"%s\": shutting down.", sig)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		// A calibration session cannot be interrupted.
		logrus.Warn("supervisor did not stop in time")
	}

	logrus.Info("shutting down http server")
	hub.Close()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = srv.Shutdown(shutdownCtx)
	if err != nil {
		logrus.Errorf("failed to shutdown http server: %v", err)
	}
	shutdownCancel()

	if err := board.Indicator.Set(false); err != nil {
		logrus.Errorf("failed to turn off indicator: %v", err)
	}

	logrus.Info("exiting")
	return nil
}
