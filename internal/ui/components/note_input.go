package components

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"cadence/internal/platform/timefmt"
	"cadence/internal/ui/theme"
)

// NoteSubmitMsg is emitted when the user confirms a note.
type NoteSubmitMsg struct {
	TimestampMs int64
	Text        string
}

// NoteCancelMsg is emitted when the user presses esc.
type NoteCancelMsg struct{}

var noteStyle = lipgloss.NewStyle().
	BorderStyle(lipgloss.RoundedBorder()).
	BorderForeground(theme.Peach).
	Background(theme.Mantle).
	Foreground(theme.Text).
	Padding(0, 1)

// NoteInput is a one-line overlay for annotating the running session. The
// timestamp is pinned when the overlay opens.
type NoteInput struct {
	input       textinput.Model
	visible     bool
	width       int
	timestampMs int64
}

func NewNoteInput() NoteInput {
	ti := textinput.New()
	ti.Placeholder = "what's happening?"
	ti.CharLimit = 280
	return NoteInput{input: ti}
}

func (n NoteInput) Visible() bool { return n.visible }

// Open shows the overlay stamped at timestampMs and returns the focus command.
func (n *NoteInput) Open(timestampMs int64) tea.Cmd {
	n.visible = true
	n.timestampMs = timestampMs
	n.input.SetValue("")
	return n.input.Focus()
}

func (n *NoteInput) SetWidth(w int) { n.width = w }

func (n NoteInput) Update(msg tea.Msg) (NoteInput, tea.Cmd) {
	if !n.visible {
		return n, nil
	}
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "esc":
			n.visible = false
			n.input.Blur()
			return n, func() tea.Msg { return NoteCancelMsg{} }
		case "enter":
			text := strings.TrimSpace(n.input.Value())
			at := n.timestampMs
			n.visible = false
			n.input.Blur()
			return n, func() tea.Msg { return NoteSubmitMsg{TimestampMs: at, Text: text} }
		}
	}
	var cmd tea.Cmd
	n.input, cmd = n.input.Update(msg)
	return n, cmd
}

func (n NoteInput) View() string {
	if !n.visible {
		return ""
	}
	at := timefmt.Clock(time.Duration(n.timestampMs) * time.Millisecond)
	var sb strings.Builder
	sb.WriteString(theme.Title.Render("Note @ "+at) + "\n")
	sb.WriteString("> " + n.input.View())

	w := n.width
	if w < 20 {
		w = 64
	}
	return noteStyle.Width(w - 2).Render(sb.String())
}
