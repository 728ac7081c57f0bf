package out

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cadence/internal/modules/session/domain"
	sessionout "cadence/internal/modules/session/port/out"
	"cadence/internal/platform/markdown"
	"cadence/internal/platform/slug"
	"cadence/internal/platform/timefmt"
)

// MarkdownExporter writes one note per session under
// sessions/YYYY/MM/DD. Re-exporting keeps hand-written text and only
// regenerates the frontmatter and the managed summary block.
type MarkdownExporter struct{}

func NewMarkdownExporter() sessionout.SessionExporter {
	return &MarkdownExporter{}
}

func (e *MarkdownExporter) Export(ctx context.Context, dir string, session domain.Session) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	date := session.StartTime.Local()
	target := filepath.Join(dir, "sessions", date.Format("2006"), date.Format("01"), date.Format("02"))
	if err := os.MkdirAll(target, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(target, fmt.Sprintf("%s-%s.md", date.Format("150405"), slug.Make(session.ID)))

	note := markdown.Note{Body: fmt.Sprintf("# Session %s\n", session.ID)}
	existing, err := os.ReadFile(path)
	switch {
	case err == nil:
		note, err = markdown.Parse(string(existing))
		if err != nil {
			return "", fmt.Errorf("read exported note %s: %w", path, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return "", fmt.Errorf("read exported note %s: %w", path, err)
	}

	note.Meta = frontmatter(session)
	note.SetBlock("summary", renderSummary(session))
	rendered, err := note.Render()
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(rendered), 0o644); err != nil {
		return "", fmt.Errorf("write exported note: %w", err)
	}
	return path, nil
}

func frontmatter(session domain.Session) map[string]any {
	m := session.SmoothnessMetrics
	meta := map[string]any{
		"schema_version":   domain.SchemaVersion,
		"id":               session.ID,
		"start_time":       session.StartTime.Format("2006-01-02T15:04:05Z07:00"),
		"total_clicks":     session.TotalClicks,
		"final_upm":        session.FinalUPM,
		"duration_ms":      session.Duration.Milliseconds(),
		"consistency":      m.Consistency,
		"rhythm":           m.Rhythm,
		"flow_state":       m.FlowState,
		"critical_success": m.CriticalSuccess,
		"critical_failure": m.CriticalFailure,
	}
	if session.IsComplete() {
		meta["end_time"] = session.EndTime.Format("2006-01-02T15:04:05Z07:00")
	}
	return meta
}

func renderSummary(session domain.Session) string {
	m := session.SmoothnessMetrics
	b := strings.Builder{}
	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- Duration: %s\n", timefmt.Clock(session.Duration))
	fmt.Fprintf(&b, "- Clicks: %d\n", session.TotalClicks)
	fmt.Fprintf(&b, "- Units per minute: %.1f\n", session.FinalUPM)
	fmt.Fprintf(&b, "- Consistency %d, rhythm %d, flow %d\n", m.Consistency, m.Rhythm, m.FlowState)
	fmt.Fprintf(&b, "- Critical successes %d, failures %d\n", m.CriticalSuccess, m.CriticalFailure)
	if len(session.Notes) == 0 {
		return b.String()
	}
	b.WriteString("\n## Notes\n\n")
	for _, note := range session.Notes {
		at := timefmt.Clock(time.Duration(note.TimestampMs) * time.Millisecond)
		fmt.Fprintf(&b, "- [%s] %s\n", at, strings.TrimSpace(note.Text))
	}
	return b.String()
}
