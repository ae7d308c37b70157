package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/homeboard/internal/models"
	"github.com/desertthunder/homeboard/internal/picker"
	"github.com/desertthunder/homeboard/internal/shared"
	"github.com/desertthunder/homeboard/internal/tasks"
)

type fakePicker struct {
	sessionErr error
	pending    int
	polls      int
	syncErr    error
	synced     bool
}

func (f *fakePicker) CreateSession(context.Context) (*models.PickerSession, error) {
	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	return &models.PickerSession{SessionID: "s1", PickerURI: "https://photos.google.com/picker/s1"}, nil
}

func (f *fakePicker) PollStatus(context.Context) (*picker.Status, error) {
	f.polls++
	if f.polls <= f.pending {
		return &picker.Status{State: picker.StatePending, SessionID: "s1"}, nil
	}
	return &picker.Status{State: picker.StateComplete, SessionID: "s1", Count: 2}, nil
}

func (f *fakePicker) SyncSelectedMedia(context.Context) (*models.SyncState, error) {
	if f.syncErr != nil {
		return nil, f.syncErr
	}
	f.synced = true
	return &models.SyncState{Downloaded: 2, Skipped: 1}, nil
}

func (f *fakePicker) Photos(context.Context) ([]string, error) {
	return []string{"a.jpg", "b.jpg"}, nil
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestModel(p PhotoPicker, c *clock) *Model {
	return NewModel(context.Background(), Opts{Picker: p, Interval: time.Millisecond, Timeout: time.Minute, Now: c.now})
}

// step feeds msg to the model and returns its follow-up command without running it.
func step(t *testing.T, m *Model, msg tea.Msg) tea.Cmd {
	t.Helper()
	_, cmd := m.Update(msg)
	return cmd
}

func TestModel(t *testing.T) {
	t.Run("Full Flow", func(t *testing.T) {
		p := &fakePicker{pending: 1}
		c := &clock{t: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}
		m := newTestModel(p, c)

		step(t, m, m.createSession()())
		if m.State() != WaitView {
			t.Fatalf("expected wait view, got %v", m.State())
		}
		if !strings.Contains(m.View(), "https://photos.google.com/picker/s1") {
			t.Error("expected picker link in view")
		}

		step(t, m, pollTickMsg(c.t))
		step(t, m, m.poll()())
		if m.State() != WaitView {
			t.Fatalf("expected to keep waiting while pending, got %v", m.State())
		}

		step(t, m, pollTickMsg(c.t))
		step(t, m, m.poll()())
		if m.State() != SyncView {
			t.Fatalf("expected sync view, got %v", m.State())
		}

		step(t, m, m.sync()())
		if m.State() != ResultView || m.Err() != nil {
			t.Fatalf("expected result without error, got %v, %v", m.State(), m.Err())
		}
		if !p.synced || m.Result().Downloaded != 2 {
			t.Errorf("unexpected result %+v", m.Result())
		}
		if view := m.View(); !strings.Contains(view, "Downloaded: 2") || !strings.Contains(view, "a.jpg") {
			t.Errorf("unexpected result view:\n%s", view)
		}
	})

	t.Run("Times Out", func(t *testing.T) {
		p := &fakePicker{pending: 100}
		c := &clock{t: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}
		m := newTestModel(p, c)

		step(t, m, m.createSession()())
		c.t = c.t.Add(2 * time.Minute)
		step(t, m, pollTickMsg(c.t))

		if !errors.Is(m.Err(), shared.ErrTimeout) {
			t.Errorf("expected timeout, got %v", m.Err())
		}
		if p.polls != 0 {
			t.Errorf("expected no poll after deadline, got %d", p.polls)
		}
	})

	t.Run("Session Error", func(t *testing.T) {
		m := newTestModel(&fakePicker{sessionErr: shared.ErrNotAuthenticated}, &clock{})

		step(t, m, m.createSession()())
		if m.State() != ResultView || !errors.Is(m.Err(), shared.ErrNotAuthenticated) {
			t.Fatalf("expected auth error result, got %v, %v", m.State(), m.Err())
		}
		if !strings.Contains(m.View(), "Picker failed") {
			t.Error("expected failure view")
		}
	})

	t.Run("Retry Restarts", func(t *testing.T) {
		m := newTestModel(&fakePicker{syncErr: errors.New("disk full")}, &clock{})
		step(t, m, m.createSession()())
		step(t, m, m.poll()())
		step(t, m, m.sync()())
		if m.Err() == nil {
			t.Fatal("expected sync error")
		}

		cmd := step(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
		if m.State() != SessionView || m.Err() != nil || cmd == nil {
			t.Errorf("expected a fresh session, got %v, %v", m.State(), m.Err())
		}
	})

	t.Run("Shows Sync Progress", func(t *testing.T) {
		progress := make(chan tasks.ProgressUpdate, 1)
		m := NewModel(context.Background(), Opts{Picker: &fakePicker{}, Progress: progress, Now: (&clock{}).now})
		step(t, m, m.createSession()())
		step(t, m, m.poll()())
		if m.State() != SyncView {
			t.Fatalf("expected sync view, got %v", m.State())
		}

		progress <- tasks.ProgressUpdate{Phase: tasks.Download, Step: 1, Total: 2, Message: "download a.jpg (1/2)"}
		if cmd := step(t, m, m.waitProgress()()); cmd == nil {
			t.Error("expected to keep listening for progress")
		}
		if !strings.Contains(m.View(), "download a.jpg (1/2)") {
			t.Errorf("expected progress in view:\n%s", m.View())
		}

		step(t, m, m.sync()())
		if cmd := step(t, m, progressMsg{Step: 2, Total: 2}); cmd != nil {
			t.Error("expected progress after the sync to be ignored")
		}
	})

	t.Run("No Progress Channel", func(t *testing.T) {
		m := newTestModel(&fakePicker{}, &clock{})
		if m.waitProgress() != nil {
			t.Error("expected no progress command without a channel")
		}
	})

	t.Run("Stale Tick Ignored", func(t *testing.T) {
		p := &fakePicker{}
		m := newTestModel(p, &clock{})
		if cmd := step(t, m, pollTickMsg(time.Now())); cmd != nil {
			t.Error("expected no poll before a session exists")
		}
	})
}
