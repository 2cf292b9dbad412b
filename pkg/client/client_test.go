package client

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charlie0129/handbrake/pkg/events"
	"github.com/charlie0129/handbrake/pkg/types"
)

// serve starts h on a unix socket and returns its path.
func serve(t *testing.T, h http.Handler) string {
	t.Helper()

	// Socket paths are length-limited, t.TempDir() can be too long.
	dir, err := os.MkdirTemp("", "hb")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	path := filepath.Join(dir, "s.sock")
	l, err := net.Listen("unix", path)
	if err != nil {
		t.Fatal(err)
	}
	srv := &http.Server{Handler: h}
	go func() { _ = srv.Serve(l) }()
	t.Cleanup(func() { _ = srv.Close() })

	return path
}

func TestGetStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"phase":"Running","calibration":{"min":15000,"max":28000},"loaded":true,"raw":21500,"axis":127}`))
	})
	c := NewClient(serve(t, mux))

	st, err := c.GetStatus()
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	if st.Phase != types.PhaseRunning || st.Axis != 127 || st.Raw != 21500 {
		t.Errorf("GetStatus() = %+v", st)
	}
	if st.Calibration.Min != 15000 || st.Calibration.Max != 28000 || !st.Loaded {
		t.Errorf("calibration = %+v loaded %v", st.Calibration, st.Loaded)
	}
}

func TestGetVersion(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/version", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`"v1.2.3"`))
	})
	c := NewClient(serve(t, mux))

	v, err := c.GetVersion()
	if err != nil {
		t.Fatalf("GetVersion() error = %v", err)
	}
	if v != "v1.2.3" {
		t.Errorf("GetVersion() = %q, want v1.2.3", v)
	}
}

func TestErrors(t *testing.T) {
	t.Run("daemon not running", func(t *testing.T) {
		c := NewClient(filepath.Join(os.TempDir(), "handbrake-missing.sock"))
		_, err := c.GetStatus()
		if !errors.Is(err, ErrDaemonNotRunning) {
			t.Errorf("GetStatus() error = %v, want ErrDaemonNotRunning", err)
		}
	})

	t.Run("not found", func(t *testing.T) {
		c := NewClient(serve(t, http.NewServeMux()))
		_, err := c.GetCalibration()
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("GetCalibration() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("server error", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/calibration", func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "disk on fire", http.StatusInternalServerError)
		})
		c := NewClient(serve(t, mux))
		_, err := c.GetCalibration()
		if err == nil || !strings.Contains(err.Error(), "disk on fire") {
			t.Errorf("GetCalibration() error = %v, want server message", err)
		}
	})
}

func TestSubscribeEvents(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/events", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte("event:calibration.progress\ndata:{\"raw\":1,\"min\":1,\"max\":2}\n\n"))
		_, _ = w.Write([]byte("event: supervisor.phase\ndata: {\"from\":\"Boot\",\"to\":\"Running\"}\n\n"))
	})
	c := NewClient(serve(t, mux))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var got []events.Event
	for ev := range c.SubscribeEvents(ctx) {
		got = append(got, ev)
	}
	if len(got) != 2 {
		t.Fatalf("events = %d, want 2", len(got))
	}

	p, err := events.DecodeAs[events.CalibrationProgressEvent](got[0])
	if err != nil {
		t.Fatal(err)
	}
	if got[0].Name != events.CalibrationProgress || p.Max != 2 {
		t.Errorf("first event = %s %+v", got[0].Name, p)
	}

	ph, err := events.DecodeAs[events.SupervisorPhaseEvent](got[1])
	if err != nil {
		t.Fatal(err)
	}
	if got[1].Name != events.SupervisorPhase || ph.To != "Running" {
		t.Errorf("second event = %s %+v", got[1].Name, ph)
	}
}

func TestParseStreamMultilineData(t *testing.T) {
	in := "event:x\ndata:[1,\ndata:2]\n\n: comment\n\n"
	out := make(chan events.Event, 4)
	parseStream(context.Background(), bufio.NewScanner(strings.NewReader(in)), out)
	close(out)

	var got []events.Event
	for ev := range out {
		got = append(got, ev)
	}
	if len(got) != 1 {
		t.Fatalf("events = %d, want 1", len(got))
	}
	if got[0].Name != "x" || string(got[0].Data) != "[1,\n2]" {
		t.Errorf("event = %s %q", got[0].Name, got[0].Data)
	}
}
