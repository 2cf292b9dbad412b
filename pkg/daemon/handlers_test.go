package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charlie0129/handbrake/pkg/calibration"
	"github.com/charlie0129/handbrake/pkg/client"
	"github.com/charlie0129/handbrake/pkg/events"
	"github.com/charlie0129/handbrake/pkg/types"
	"github.com/charlie0129/handbrake/pkg/version"
)

func newTestServer(t *testing.T) *server {
	t.Helper()
	return &server{
		status: newStatusBoard(),
		hub:    events.NewEventHub(16),
		store:  calibration.NewFileStore(filepath.Join(t.TempDir(), "calibration.txt")),
	}
}

func get(t *testing.T, s *server, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	setupRoutes(s).ServeHTTP(w, req)
	return w
}

func TestGetStatus(t *testing.T) {
	s := newTestServer(t)
	s.status.setCalibration(calibration.Record{Min: 15000, Max: 28000}, true)
	s.status.setPhase(types.PhaseRunning)
	s.status.setTick(21500, 127, true)

	w := get(t, s, "/status")
	if w.Code != http.StatusOK {
		t.Fatalf("status code = %d, want 200", w.Code)
	}

	var st types.Status
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if st.Phase != types.PhaseRunning || st.Raw != 21500 || st.Axis != 127 || !st.Pressed {
		t.Errorf("status = %+v", st)
	}
	if st.Calibration != (calibration.Record{Min: 15000, Max: 28000}) || !st.Loaded {
		t.Errorf("calibration = %+v loaded %v", st.Calibration, st.Loaded)
	}
}

func TestGetCalibration(t *testing.T) {
	t.Run("running reports the active record", func(t *testing.T) {
		s := newTestServer(t)
		s.status.setCalibration(calibration.DefaultRecord, false)
		s.status.setPhase(types.PhaseRunning)
		// Saved after boot: not active until the next power-up.
		if err := s.store.Save(calibration.Record{Min: 1, Max: 2}); err != nil {
			t.Fatal(err)
		}

		var info types.CalibrationInfo
		w := get(t, s, "/calibration")
		if err := json.Unmarshal(w.Body.Bytes(), &info); err != nil {
			t.Fatalf("failed to unmarshal: %v", err)
		}
		if info.Active != calibration.DefaultRecord || info.Loaded {
			t.Errorf("info = %+v, want defaults not loaded", info)
		}
		if info.Path != s.store.Path() {
			t.Errorf("path = %q, want %q", info.Path, s.store.Path())
		}
	})

	t.Run("booting reports the stored record", func(t *testing.T) {
		s := newTestServer(t)
		want := calibration.Record{Min: 15000, Max: 28000}
		if err := s.store.Save(want); err != nil {
			t.Fatal(err)
		}

		var info types.CalibrationInfo
		w := get(t, s, "/calibration")
		if w.Code != http.StatusOK {
			t.Fatalf("status code = %d, want 200", w.Code)
		}
		if err := json.Unmarshal(w.Body.Bytes(), &info); err != nil {
			t.Fatalf("failed to unmarshal: %v", err)
		}
		if info.Active != want || !info.Loaded {
			t.Errorf("info = %+v, want %+v loaded", info, want)
		}
	})
}

func TestGetVersion(t *testing.T) {
	w := get(t, newTestServer(t), "/version")
	var v string
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if v != version.Version {
		t.Errorf("version = %q, want %q", v, version.Version)
	}
}

func TestGetEvents(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(setupRoutes(s))
	defer ts.Close()

	c := &http.Client{Timeout: 10 * time.Second}
	resp, err := c.Get(ts.URL + "/events")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("content type = %q", ct)
	}

	deadline := time.Now().Add(5 * time.Second)
	for s.hub.Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("handler did not subscribe")
		}
		time.Sleep(time.Millisecond)
	}

	s.hub.Publish(events.CalibrationProgress, events.CalibrationProgressEvent{Raw: 1, Min: 1, Max: 1})
	s.hub.Close()

	var lines []string
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	body := strings.Join(lines, "\n")
	if !strings.Contains(body, "event:"+events.CalibrationProgress) {
		t.Errorf("stream = %q, missing event name", body)
	}
	if !strings.Contains(body, `"raw":1`) {
		t.Errorf("stream = %q, missing payload", body)
	}
}

func TestGetEventsSendsHeadersBeforeFirstEvent(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(setupRoutes(s))
	defer ts.Close()

	c := &http.Client{Transport: &http.Transport{ResponseHeaderTimeout: 2 * time.Second}}
	resp, err := c.Get(ts.URL + "/events")
	if err != nil {
		t.Fatalf("no headers with an idle hub: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status code = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("content type = %q", ct)
	}

	s.hub.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
}

func TestSubscribeEventsFromDaemon(t *testing.T) {
	s := newTestServer(t)

	// Socket paths are length-limited, t.TempDir() can be too long.
	dir, err := os.MkdirTemp("", "hb")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "s.sock")
	l, err := net.Listen("unix", path)
	if err != nil {
		t.Fatal(err)
	}
	srv := &http.Server{Handler: setupRoutes(s)}
	go func() { _ = srv.Serve(l) }()
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	ch := client.NewClient(path).SubscribeEvents(ctx)

	for s.hub.Len() == 0 {
		select {
		case <-ctx.Done():
			t.Fatal("client did not subscribe")
		case <-time.After(time.Millisecond):
		}
	}
	s.hub.Publish(events.SupervisorPhase, events.SupervisorPhaseEvent{From: "Boot", To: "Calibrating"})

	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatal("stream closed before the first event")
		}
		p, err := events.DecodeAs[events.SupervisorPhaseEvent](ev)
		if err != nil {
			t.Fatal(err)
		}
		if ev.Name != events.SupervisorPhase || p.To != "Calibrating" {
			t.Errorf("event = %s %+v", ev.Name, p)
		}
	case <-ctx.Done():
		t.Fatal("no event received")
	}

	// Closing the hub ends the stream and the client closes its channel.
	s.hub.Close()
	for range ch {
	}
	if ctx.Err() != nil {
		t.Error("stream did not end when the hub closed")
	}
}
