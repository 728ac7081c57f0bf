package app

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	sessiondto "cadence/internal/modules/session/dto"
	timerdto "cadence/internal/modules/timer/dto"
	"cadence/internal/platform/clock"
	apperrors "cadence/internal/platform/errors"
	"cadence/internal/ui/components"
)

type fakeTimer struct {
	snap   timerdto.MetricsSnapshot
	starts int
}

func (f *fakeTimer) Start() timerdto.MetricsSnapshot {
	f.starts++
	f.snap.Running = true
	return f.snap
}

func (f *fakeTimer) Toggle() timerdto.MetricsSnapshot {
	f.snap.Running = !f.snap.Running
	return f.snap
}

func (f *fakeTimer) Tap() timerdto.MetricsSnapshot {
	f.snap.Clicks++
	f.snap.ElapsedMs += 400
	return f.snap
}

func (f *fakeTimer) Reset() timerdto.MetricsSnapshot {
	f.snap = timerdto.MetricsSnapshot{Running: true}
	return f.snap
}

func (f *fakeTimer) Pause() timerdto.MetricsSnapshot {
	f.snap.Running = false
	return f.snap
}

func (f *fakeTimer) Current() timerdto.MetricsSnapshot { return f.snap }

func (f *fakeTimer) Updates(ctx context.Context) <-chan timerdto.MetricsSnapshot {
	ch := make(chan timerdto.MetricsSnapshot)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch
}

type fakeSession struct {
	active   bool
	ended    sessiondto.EndInput
	notes    []string
	startErr error
}

func (f *fakeSession) Start(context.Context) (sessiondto.SessionOutput, error) {
	if f.startErr != nil {
		return sessiondto.SessionOutput{}, f.startErr
	}
	if f.active {
		return sessiondto.SessionOutput{}, apperrors.ErrActiveSessionExists
	}
	f.active = true
	return sessiondto.SessionOutput{ID: "100", StartTime: playStart}, nil
}

func (f *fakeSession) GetActive(context.Context) (sessiondto.SessionOutput, error) {
	if !f.active {
		return sessiondto.SessionOutput{}, apperrors.ErrNoActiveSession
	}
	return sessiondto.SessionOutput{ID: "99", StartTime: playStart.Add(-time.Hour)}, nil
}

func (f *fakeSession) Note(_ context.Context, _ int64, text string) (sessiondto.SessionOutput, error) {
	f.notes = append(f.notes, text)
	out := sessiondto.SessionOutput{ID: "100"}
	for _, n := range f.notes {
		out.Notes = append(out.Notes, sessiondto.NoteOutput{Text: n})
	}
	return out, nil
}

func (f *fakeSession) EndWithMetrics(_ context.Context, input sessiondto.EndInput) (sessiondto.SessionOutput, error) {
	f.ended = input
	f.active = false
	return sessiondto.SessionOutput{ID: input.SessionID, Complete: true}, nil
}

func press(t *testing.T, m Model, k string) (Model, tea.Cmd) {
	t.Helper()
	var msg tea.KeyMsg
	switch k {
	case " ":
		msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

var playStart = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func ready(t *testing.T, timer *fakeTimer, session *fakeSession) Model {
	t.Helper()
	return readyAt(t, timer, session, clock.NewManual(playStart))
}

func readyAt(t *testing.T, timer *fakeTimer, session *fakeSession, clk clock.Clock) Model {
	t.Helper()
	m := NewModel(timer, session, clk, nil)
	t.Cleanup(m.cancel)
	next, _ := m.Update(m.openSessionCmd()())
	return next.(Model)
}

func TestOpensNewSession(t *testing.T) {
	t.Parallel()
	m := ready(t, &fakeTimer{}, &fakeSession{})
	if !m.hasActive || m.active.ID != "100" {
		t.Fatalf("expected new session, got %+v", m.active)
	}
}

func TestResumesOpenSession(t *testing.T) {
	t.Parallel()
	m := ready(t, &fakeTimer{}, &fakeSession{active: true})
	if !m.hasActive || m.active.ID != "99" {
		t.Fatalf("expected resumed session, got %+v", m.active)
	}
}

func TestSessionFailureBlocksTaps(t *testing.T) {
	t.Parallel()
	timer := &fakeTimer{}
	m := ready(t, timer, &fakeSession{startErr: errors.New("store offline")})
	if m.hasActive {
		t.Fatalf("expected no active session")
	}
	m, _ = press(t, m, " ")
	if timer.snap.Clicks != 0 {
		t.Fatalf("tap must be ignored without a session")
	}
	_, cmd := press(t, m, "q")
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected immediate quit")
	}
}

func TestTapStartsTimer(t *testing.T) {
	t.Parallel()
	timer := &fakeTimer{}
	m := ready(t, timer, &fakeSession{})
	m, _ = press(t, m, " ")
	m, _ = press(t, m, " ")
	if timer.starts != 1 {
		t.Fatalf("expected one start, got %d", timer.starts)
	}
	if m.snapshot.Clicks != 2 || !m.snapshot.Running {
		t.Fatalf("unexpected snapshot: %+v", m.snapshot)
	}
	m, _ = press(t, m, "p")
	if m.snapshot.Running {
		t.Fatalf("expected paused after p")
	}
}

func TestNoteFlow(t *testing.T) {
	t.Parallel()
	session := &fakeSession{}
	m := ready(t, &fakeTimer{}, session)
	m, _ = press(t, m, "n")
	if !m.note.Visible() {
		t.Fatalf("expected note input open")
	}
	m, _ = press(t, m, "h")
	m, _ = press(t, m, "i")
	m, cmd := press(t, m, "enter")
	submit, ok := cmd().(components.NoteSubmitMsg)
	if !ok || submit.Text != "hi" {
		t.Fatalf("expected submitted note, got %#v", submit)
	}
	next, saveCmd := m.Update(submit)
	m = next.(Model)
	next, _ = m.Update(saveCmd())
	m = next.(Model)
	if len(session.notes) != 1 || len(m.active.Notes) != 1 {
		t.Fatalf("note not saved: %v", session.notes)
	}
}

func TestQuitEndsSessionWithFinalMetrics(t *testing.T) {
	t.Parallel()
	timer := &fakeTimer{}
	session := &fakeSession{}
	m := ready(t, timer, session)
	for range 3 {
		m, _ = press(t, m, " ")
	}
	m, cmd := press(t, m, "q")
	if !m.ending || m.snapshot.Running {
		t.Fatalf("expected paused and ending, got %+v", m.snapshot)
	}
	next, quit := m.Update(cmd())
	if session.ended.Clicks != 3 || session.ended.ElapsedMs != 1200 || session.ended.SessionID != "100" {
		t.Fatalf("unexpected end input: %+v", session.ended)
	}
	if next.(Model).ending {
		t.Fatalf("ending flag should clear")
	}
	if _, ok := quit().(tea.QuitMsg); !ok {
		t.Fatalf("expected quit after end")
	}
}

func TestNoteStampedFromSessionStart(t *testing.T) {
	t.Parallel()
	for name, tc := range map[string]struct {
		resumed bool
		want    int64
	}{
		"new":     {want: 90_000},
		"resumed": {resumed: true, want: 3_690_000},
	} {
		t.Run(name, func(t *testing.T) {
			clk := clock.NewManual(playStart)
			timer := &fakeTimer{}
			m := readyAt(t, timer, &fakeSession{active: tc.resumed}, clk)
			m, _ = press(t, m, " ")
			clk.Advance(90 * time.Second)
			m, _ = press(t, m, "r")
			m, _ = press(t, m, "n")
			m, _ = press(t, m, "x")
			_, cmd := press(t, m, "enter")
			submit, ok := cmd().(components.NoteSubmitMsg)
			if !ok {
				t.Fatalf("expected submitted note")
			}
			if submit.TimestampMs != tc.want {
				t.Fatalf("expected note at %dms, got %d", tc.want, submit.TimestampMs)
			}
		})
	}
}
