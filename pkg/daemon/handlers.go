package daemon

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/handbrake/pkg/calibration"
	"github.com/charlie0129/handbrake/pkg/events"
	"github.com/charlie0129/handbrake/pkg/types"
	"github.com/charlie0129/handbrake/pkg/version"
)

// server holds what the handlers read. Every endpoint is read-only: the
// device is configured at power-up with the trigger, not over the socket.
type server struct {
	status *statusBoard
	hub    *events.EventHub
	store  *calibration.FileStore
}

func (s *server) getStatus(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, s.status.Snapshot())
}

func (s *server) getCalibration(c *gin.Context) {
	st := s.status.Snapshot()
	info := types.CalibrationInfo{
		Active: st.Calibration,
		Loaded: st.Loaded,
	}
	if s.store != nil {
		info.Path = s.store.Path()
	}

	// Before boot has settled, report what is on disk.
	if st.Phase != types.PhaseRunning && s.store != nil {
		rec, err := s.store.Load()
		switch {
		case err == nil:
			info.Active, info.Loaded = rec, true
		case errors.Is(err, calibration.ErrNotFound):
		default:
			logrus.Errorf("getCalibration failed: %v", err)
			c.IndentedJSON(http.StatusInternalServerError, err.Error())
			_ = c.AbortWithError(http.StatusInternalServerError, err)
			return
		}
	}

	c.IndentedJSON(http.StatusOK, info)
}

// getEvents streams hub events as server-sent events until the client goes
// away or the hub is closed.
func (s *server) getEvents(c *gin.Context) {
	ch := s.hub.Subscribe()
	defer s.hub.Unsubscribe(ch)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	// Clients block on the headers, which c.Stream only sends with the
	// first event.
	c.Status(http.StatusOK)
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(ev.Name, string(ev.Data))
			return true
		}
	})
}

func getVersion(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, version.Version)
}
