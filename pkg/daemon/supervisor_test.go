package daemon

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/charlie0129/handbrake/pkg/calibration"
	"github.com/charlie0129/handbrake/pkg/events"
	"github.com/charlie0129/handbrake/pkg/hid"
	"github.com/charlie0129/handbrake/pkg/hw"
	"github.com/charlie0129/handbrake/pkg/types"
)

func newTestSupervisor(mock *hw.Mock, store calibration.Store) *Supervisor {
	return &Supervisor{
		Analog:       mock,
		Button:       mock,
		Indicator:    mock,
		Transport:    hid.NewMemory(),
		Store:        store,
		Defaults:     calibration.DefaultRecord,
		Debounce:     500 * time.Millisecond,
		LoopInterval: time.Millisecond,
		status:       newStatusBoard(),
		sleep:        func(time.Duration) {},
	}
}

func TestSupervisorBoot(t *testing.T) {
	tests := []struct {
		name           string
		stored         *calibration.Record
		pressAtBoot    bool
		samples        []int
		want           calibration.Record
		wantLoaded     bool
		wantCalibrated bool
	}{
		{
			name:       "no calibration, not pressed",
			want:       calibration.Record{Min: 20000, Max: 30000},
			wantLoaded: false,
		},
		{
			name:       "stored calibration, not pressed",
			stored:     &calibration.Record{Min: 15000, Max: 28000},
			want:       calibration.Record{Min: 15000, Max: 28000},
			wantLoaded: true,
		},
		{
			name:           "pressed at boot replaces stored calibration",
			stored:         &calibration.Record{Min: 15000, Max: 28000},
			pressAtBoot:    true,
			samples:        []int{22000, 18000, 29000, 25000},
			want:           calibration.Record{Min: 18000, Max: 29000},
			wantLoaded:     true,
			wantCalibrated: true,
		},
		{
			name:           "pressed at boot without stored calibration",
			pressAtBoot:    true,
			samples:        []int{100, 40000},
			want:           calibration.Record{Min: 100, Max: 40000},
			wantLoaded:     true,
			wantCalibrated: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := calibration.NewFileStore(filepath.Join(t.TempDir(), "calibration.txt"))
			if tt.stored != nil {
				if err := store.Save(*tt.stored); err != nil {
					t.Fatal(err)
				}
			}

			mock := hw.NewMock(tt.samples...)
			n := len(tt.samples)
			press := tt.pressAtBoot
			mock.SetButtonScript(func(reads int) bool {
				if reads == 0 {
					return press
				}
				return reads >= n
			})

			s := newTestSupervisor(mock, store)
			res := s.Boot()

			if res.Calibration != tt.want {
				t.Errorf("Calibration = %+v, want %+v", res.Calibration, tt.want)
			}
			if res.Loaded != tt.wantLoaded {
				t.Errorf("Loaded = %v, want %v", res.Loaded, tt.wantLoaded)
			}
			if res.Calibrated != tt.wantCalibrated {
				t.Errorf("Calibrated = %v, want %v", res.Calibrated, tt.wantCalibrated)
			}
			if res.SessionErr != nil {
				t.Errorf("SessionErr = %v", res.SessionErr)
			}
			if !tt.pressAtBoot && mock.Reads() != 0 {
				t.Errorf("reads = %d, want none before the control loop", mock.Reads())
			}

			snap := s.status.Snapshot()
			if snap.Calibration != tt.want || snap.Loaded != tt.wantLoaded {
				t.Errorf("status calibration = %+v loaded %v", snap.Calibration, snap.Loaded)
			}
		})
	}
}

func TestSupervisorBootSaveFailureFallsBack(t *testing.T) {
	mock := hw.NewMock(22000, 18000, 29000, 25000)
	mock.SetButtonScript(func(reads int) bool { return reads == 0 || reads >= 4 })
	store := &memStore{
		rec:     calibration.Record{Min: 15000, Max: 28000},
		ok:      true,
		saveErr: pkgerrors.Wrap(calibration.ErrWrite, "read-only file system"),
	}

	s := newTestSupervisor(mock, store)
	res := s.Boot()

	if !errors.Is(res.SessionErr, calibration.ErrWrite) {
		t.Fatalf("SessionErr = %v, want ErrWrite", res.SessionErr)
	}
	// The record that failed to save is not used; the previous one is.
	if want := (calibration.Record{Min: 15000, Max: 28000}); res.Calibration != want {
		t.Errorf("Calibration = %+v, want %+v", res.Calibration, want)
	}
}

func TestSupervisorBootWaitsOutDebounce(t *testing.T) {
	mock := hw.NewMock(21000)
	mock.SetPressed(true)
	s := newTestSupervisor(mock, &memStore{})
	rec := &sleepRecorder{}
	s.sleep = rec.sleep

	s.Boot()

	// Boot debounce, then the session's own debounce after its first read.
	if len(rec.calls) != 2 || rec.calls[0] != s.Debounce || rec.calls[1] != s.Debounce {
		t.Errorf("sleeps = %v, want two debounces", rec.calls)
	}
}

func TestSupervisorRun(t *testing.T) {
	mock := hw.NewMock(25000)
	s := newTestSupervisor(mock, &memStore{})
	hub := events.NewEventHub(16)
	ch := hub.Subscribe()
	s.Hub = hub

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()

	deadline := time.After(5 * time.Second)
	for s.status.Snapshot().Ticks == 0 {
		select {
		case <-deadline:
			t.Fatal("control loop did not start")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()
	<-done

	snap := s.status.Snapshot()
	if snap.Phase != types.PhaseRunning {
		t.Errorf("phase = %s, want Running", snap.Phase)
	}
	// Defaults {20000, 30000}: 25000 is half way.
	if snap.Axis != 127 {
		t.Errorf("axis = %d, want 127", snap.Axis)
	}

	select {
	case ev := <-ch:
		p, err := events.DecodeAs[events.SupervisorPhaseEvent](ev)
		if err != nil {
			t.Fatal(err)
		}
		if ev.Name != events.SupervisorPhase || p.From != string(types.PhaseBoot) || p.To != string(types.PhaseRunning) {
			t.Errorf("event = %s %+v, want Boot -> Running", ev.Name, p)
		}
	default:
		t.Error("no phase event published")
	}
}
