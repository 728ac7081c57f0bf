package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	sessiondto "cadence/internal/modules/session/dto"
	timerdto "cadence/internal/modules/timer/dto"
	"cadence/internal/platform/clock"
	apperrors "cadence/internal/platform/errors"
	"cadence/internal/platform/logging"
	"cadence/internal/ui/components"
	"cadence/internal/ui/theme"
	"cadence/internal/ui/views/metrics"
)

// ─── ports ───────────────────────────────────────────────────────────────────

type timerPort interface {
	Start() timerdto.MetricsSnapshot
	Toggle() timerdto.MetricsSnapshot
	Tap() timerdto.MetricsSnapshot
	Reset() timerdto.MetricsSnapshot
	Pause() timerdto.MetricsSnapshot
	Current() timerdto.MetricsSnapshot
	Updates(ctx context.Context) <-chan timerdto.MetricsSnapshot
}

type sessionPort interface {
	Start(ctx context.Context) (sessiondto.SessionOutput, error)
	GetActive(ctx context.Context) (sessiondto.SessionOutput, error)
	Note(ctx context.Context, timestampMs int64, text string) (sessiondto.SessionOutput, error)
	EndWithMetrics(ctx context.Context, input sessiondto.EndInput) (sessiondto.SessionOutput, error)
}

// ─── async messages ──────────────────────────────────────────────────────────

type sessionReadyMsg struct {
	session sessiondto.SessionOutput
	resumed bool
	err     error
}

type metricsMsg struct{ snapshot timerdto.MetricsSnapshot }

type updatesClosedMsg struct{}

type noteSavedMsg struct {
	session sessiondto.SessionOutput
	err     error
}

type sessionEndedMsg struct {
	session sessiondto.SessionOutput
	err     error
}

// ─── key bindings ────────────────────────────────────────────────────────────

type keyMap struct {
	Tap   key.Binding
	Pause key.Binding
	Reset key.Binding
	Note  key.Binding
	Help  key.Binding
	Quit  key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Tap:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "tap")),
		Pause: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pause/resume")),
		Reset: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset")),
		Note:  key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "note")),
		Help:  key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:  key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "end & quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tap, k.Pause, k.Note, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tap, k.Pause, k.Reset},
		{k.Note, k.Help, k.Quit},
	}
}

// ─── model ───────────────────────────────────────────────────────────────────

// Model is the play screen. It opens (or resumes) a session on start, feeds
// taps into the timer and closes the session with the final metrics on quit.
type Model struct {
	timer   timerPort
	session sessionPort
	clock   clock.Clock
	logger  *slog.Logger

	updates <-chan timerdto.MetricsSnapshot
	cancel  context.CancelFunc

	keys     keyMap
	help     help.Model
	showHelp bool
	note     components.NoteInput

	snapshot  timerdto.MetricsSnapshot
	active    sessiondto.SessionOutput
	hasActive bool
	ending    bool
	endFailed bool
	status    string
	width     int
	height    int
}

func NewModel(timer timerPort, session sessionPort, clk clock.Clock, logger *slog.Logger) Model {
	ctx, cancel := context.WithCancel(context.Background())
	return Model{
		timer:    timer,
		session:  session,
		clock:    clk,
		logger:   logging.OrDiscard(logger),
		updates:  timer.Updates(ctx),
		cancel:   cancel,
		keys:     defaultKeys(),
		help:     help.New(),
		note:     components.NewNoteInput(),
		snapshot: timer.Current(),
		status:   "opening session",
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.openSessionCmd(), m.waitForMetrics())
}

// ─── update ──────────────────────────────────────────────────────────────────

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.note.Visible() {
		if _, isKey := msg.(tea.KeyMsg); isKey {
			var cmd tea.Cmd
			m.note, cmd = m.note.Update(msg)
			return m, cmd
		}
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = m.width
		m.note.SetWidth(min(m.width-4, 72))

	case metricsMsg:
		m.snapshot = msg.snapshot
		return m, m.waitForMetrics()

	case updatesClosedMsg:
		return m, nil

	case sessionReadyMsg:
		if msg.err != nil {
			m.status = "session unavailable: " + msg.err.Error()
			m.logger.Error("open session failed", "error", msg.err)
			return m, nil
		}
		m.active = msg.session
		m.hasActive = true
		if msg.resumed {
			m.status = "resumed session " + msg.session.ID
		} else {
			m.status = "session " + msg.session.ID + " open, space to start"
		}

	case components.NoteSubmitMsg:
		if msg.Text == "" {
			m.status = "empty note discarded"
			return m, nil
		}
		return m, m.addNoteCmd(msg.TimestampMs, msg.Text)

	case components.NoteCancelMsg:
		m.status = "note cancelled"

	case noteSavedMsg:
		if msg.err != nil {
			m.status = "note failed: " + msg.err.Error()
			return m, nil
		}
		m.active = msg.session
		m.status = fmt.Sprintf("note saved (%d total)", len(msg.session.Notes))

	case sessionEndedMsg:
		m.ending = false
		if msg.err != nil {
			m.endFailed = true
			m.status = "session end failed: " + msg.err.Error() + " (q again to quit)"
			m.logger.Error("end session failed", "error", msg.err)
			return m, nil
		}
		m.cancel()
		m.logger.Info("play finished", "session_id", msg.session.ID, "final_upm", msg.session.FinalUPM)
		return m, tea.Quit

	case tea.KeyMsg:
		if m.showHelp {
			if msg.String() == "?" || msg.String() == "esc" {
				m.showHelp = false
			}
			return m, nil
		}
		if m.ending {
			return m, nil
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			return m.quit()
		case key.Matches(msg, m.keys.Help):
			m.showHelp = true
		case key.Matches(msg, m.keys.Tap):
			if !m.hasActive {
				return m, nil
			}
			if !m.snapshot.Running {
				m.timer.Start()
			}
			m.snapshot = m.timer.Tap()
		case key.Matches(msg, m.keys.Pause):
			if !m.hasActive {
				return m, nil
			}
			m.snapshot = m.timer.Toggle()
		case key.Matches(msg, m.keys.Reset):
			if !m.hasActive {
				return m, nil
			}
			m.snapshot = m.timer.Reset()
			m.status = "timer reset"
		case key.Matches(msg, m.keys.Note):
			if !m.hasActive {
				return m, nil
			}
			cmd := m.note.Open(m.sinceSessionStart())
			return m, cmd
		}
	}
	return m, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if !m.hasActive || m.endFailed {
		m.cancel()
		return m, tea.Quit
	}
	m.ending = true
	m.snapshot = m.timer.Pause()
	m.status = "ending session"
	return m, m.endSessionCmd(m.snapshot)
}

// sinceSessionStart stamps notes against the session's wall-clock start, so
// timer resets and resumed sessions do not shift them.
func (m Model) sinceSessionStart() int64 {
	return max(m.clock.Now().Sub(m.active.StartTime).Milliseconds(), 0)
}

// ─── commands ────────────────────────────────────────────────────────────────

func (m Model) waitForMetrics() tea.Cmd {
	updates := m.updates
	return func() tea.Msg {
		snapshot, ok := <-updates
		if !ok {
			return updatesClosedMsg{}
		}
		return metricsMsg{snapshot: snapshot}
	}
}

func (m Model) openSessionCmd() tea.Cmd {
	session := m.session
	return func() tea.Msg {
		ctx := context.Background()
		out, err := session.Start(ctx)
		if errors.Is(err, apperrors.ErrActiveSessionExists) {
			active, getErr := session.GetActive(ctx)
			return sessionReadyMsg{session: active, resumed: getErr == nil, err: getErr}
		}
		return sessionReadyMsg{session: out, err: err}
	}
}

func (m Model) addNoteCmd(timestampMs int64, text string) tea.Cmd {
	session := m.session
	return func() tea.Msg {
		out, err := session.Note(context.Background(), timestampMs, text)
		return noteSavedMsg{session: out, err: err}
	}
}

func (m Model) endSessionCmd(final timerdto.MetricsSnapshot) tea.Cmd {
	session := m.session
	input := sessiondto.EndInput{
		SessionID: m.active.ID,
		Clicks:    final.Clicks,
		ElapsedMs: final.ElapsedMs,
		Smoothness: sessiondto.SmoothnessMetrics{
			Consistency:     final.Smoothness.Consistency,
			Rhythm:          final.Smoothness.Rhythm,
			FlowState:       final.Smoothness.FlowState,
			CriticalSuccess: final.Smoothness.CriticalSuccess,
			CriticalFailure: final.Smoothness.CriticalFailure,
		},
	}
	return func() tea.Msg {
		out, err := session.EndWithMetrics(context.Background(), input)
		return sessionEndedMsg{session: out, err: err}
	}
}

// ─── view ────────────────────────────────────────────────────────────────────

func (m Model) View() string {
	header := m.renderHeader()
	statusBar := m.renderStatusBar()

	var content string
	switch {
	case m.showHelp:
		content = m.help.FullHelpView(m.keys.FullHelp())
	case m.note.Visible():
		content = lipgloss.JoinVertical(lipgloss.Left, metrics.Render(m.snapshot, m.width), "", m.note.View())
	default:
		content = lipgloss.JoinVertical(lipgloss.Left, metrics.Render(m.snapshot, m.width), "", m.help.View(m.keys))
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
}

func (m Model) renderHeader() string {
	title := theme.Title.Render("cadence")
	if m.hasActive {
		title += "  " + theme.Muted.Render("session "+m.active.ID)
	}
	return lipgloss.NewStyle().Background(theme.Mantle).Width(m.width).Render(title) + "\n"
}

func (m Model) renderStatusBar() string {
	left := m.status
	right := ""
	if m.hasActive && len(m.active.Notes) > 0 {
		right = theme.Muted.Render(fmt.Sprintf("%d notes", len(m.active.Notes)))
	}
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	bar := left + strings.Repeat(" ", gap) + right
	return "\n" + lipgloss.NewStyle().Background(theme.Mantle).Width(m.width).Render(bar)
}
