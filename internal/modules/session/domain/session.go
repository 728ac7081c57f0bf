package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apperrors "cadence/internal/platform/errors"
	"cadence/internal/platform/throughput"
)

const SchemaVersion = 1

type SmoothnessMetrics struct {
	Consistency     int `json:"consistency"`
	Rhythm          int `json:"rhythm"`
	FlowState       int `json:"flowState"`
	CriticalSuccess int `json:"criticalSuccess"`
	CriticalFailure int `json:"criticalFailure"`
}

// Note is a remark taken during a session, stamped relative to its start.
type Note struct {
	TimestampMs int64  `json:"timestamp"`
	Text        string `json:"text"`
}

func (n Note) Validate() error {
	if strings.TrimSpace(n.Text) == "" {
		return fmt.Errorf("%w: note text is required", apperrors.ErrInvalidInput)
	}
	if n.TimestampMs < 0 {
		return fmt.Errorf("%w: note timestamp must be non-negative", apperrors.ErrInvalidInput)
	}
	return nil
}

// Session is a durable record of one period of tracked work. A zero EndTime
// marks the open session.
type Session struct {
	ID                string
	StartTime         time.Time
	EndTime           time.Time
	TotalClicks       int
	FinalUPM          float64
	Duration          time.Duration
	Notes             []Note
	SmoothnessMetrics SmoothnessMetrics
}

// New opens a session. Times and durations are kept at millisecond
// resolution, the resolution they are stored at.
func New(id string, startTime time.Time) Session {
	return Session{ID: id, StartTime: startTime.Truncate(time.Millisecond), Notes: []Note{}}
}

func (s Session) IsComplete() bool {
	return !s.EndTime.IsZero()
}

func (s *Session) AddNote(note Note) error {
	if s.IsComplete() {
		return fmt.Errorf("%w: cannot annotate session %s", apperrors.ErrSessionComplete, s.ID)
	}
	if err := note.Validate(); err != nil {
		return err
	}
	s.Notes = append(s.Notes, note)
	return nil
}

// Complete closes the session. Throughput is taken from the tracked elapsed
// time, so pauses do not dilute it. An end before the start is pinned to the
// start.
func (s *Session) Complete(endTime time.Time, clicks int, elapsed time.Duration, metrics SmoothnessMetrics) error {
	if s.IsComplete() {
		return fmt.Errorf("%w: session %s", apperrors.ErrSessionComplete, s.ID)
	}
	if clicks < 0 {
		return fmt.Errorf("%w: clicks must be non-negative", apperrors.ErrInvalidInput)
	}
	if elapsed < 0 {
		return fmt.Errorf("%w: elapsed time must be non-negative", apperrors.ErrInvalidInput)
	}
	endTime = endTime.Truncate(time.Millisecond)
	if endTime.Before(s.StartTime) {
		endTime = s.StartTime
	}
	elapsed = elapsed.Truncate(time.Millisecond)
	s.TotalClicks = clicks
	s.Duration = elapsed
	s.FinalUPM = throughput.PerMinute(clicks, elapsed)
	s.SmoothnessMetrics = metrics
	s.EndTime = endTime
	return nil
}

func (s Session) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("%w: session id is required", apperrors.ErrInvalidInput)
	}
	if s.IsComplete() && s.EndTime.Before(s.StartTime) {
		return fmt.Errorf("%w: session %s ends before it starts", apperrors.ErrInvalidInput, s.ID)
	}
	if s.TotalClicks < 0 || s.FinalUPM < 0 || s.Duration < 0 {
		return fmt.Errorf("%w: session %s has negative totals", apperrors.ErrInvalidInput, s.ID)
	}
	for _, note := range s.Notes {
		if err := note.Validate(); err != nil {
			return fmt.Errorf("session %s: %w", s.ID, err)
		}
	}
	return nil
}

// Clone copies the note list so callers cannot reach repository state.
func (s Session) Clone() Session {
	out := s
	out.Notes = append([]Note{}, s.Notes...)
	return out
}

type sessionRecord struct {
	ID                string            `json:"id"`
	StartTime         *int64            `json:"startTime"`
	EndTime           *int64            `json:"endTime"`
	TotalClicks       int               `json:"totalClicks"`
	Notes             []Note            `json:"notes"`
	FinalUPM          float64           `json:"finalUPM"`
	SmoothnessMetrics SmoothnessMetrics `json:"smoothnessMetrics"`
	DurationMs        *int64            `json:"durationMs,omitempty"`
}

func (s Session) MarshalJSON() ([]byte, error) {
	start := s.StartTime.UnixMilli()
	rec := sessionRecord{
		ID:                s.ID,
		StartTime:         &start,
		TotalClicks:       s.TotalClicks,
		Notes:             s.Notes,
		FinalUPM:          s.FinalUPM,
		SmoothnessMetrics: s.SmoothnessMetrics,
	}
	if rec.Notes == nil {
		rec.Notes = []Note{}
	}
	if s.IsComplete() {
		end := s.EndTime.UnixMilli()
		rec.EndTime = &end
	}
	if s.Duration > 0 {
		ms := s.Duration.Milliseconds()
		rec.DurationMs = &ms
	}
	return json.Marshal(rec)
}

func (s *Session) UnmarshalJSON(payload []byte) error {
	rec := sessionRecord{}
	if err := json.Unmarshal(payload, &rec); err != nil {
		return fmt.Errorf("%w: decode session: %v", apperrors.ErrInvalidInput, err)
	}
	if rec.StartTime == nil {
		return fmt.Errorf("%w: session %q has no startTime", apperrors.ErrInvalidInput, rec.ID)
	}
	decoded := Session{
		ID:                rec.ID,
		StartTime:         time.UnixMilli(*rec.StartTime),
		TotalClicks:       rec.TotalClicks,
		Notes:             rec.Notes,
		FinalUPM:          rec.FinalUPM,
		SmoothnessMetrics: rec.SmoothnessMetrics,
	}
	if decoded.Notes == nil {
		decoded.Notes = []Note{}
	}
	if rec.EndTime != nil {
		decoded.EndTime = time.UnixMilli(*rec.EndTime)
	}
	if rec.DurationMs != nil {
		decoded.Duration = time.Duration(*rec.DurationMs) * time.Millisecond
	}
	if err := decoded.Validate(); err != nil {
		return err
	}
	*s = decoded
	return nil
}

// EncodeSessionList renders sessions as a JSON array.
func EncodeSessionList(sessions []Session) ([]byte, error) {
	if sessions == nil {
		sessions = []Session{}
	}
	payload, err := json.Marshal(sessions)
	if err != nil {
		return nil, fmt.Errorf("encode sessions: %w", err)
	}
	return payload, nil
}

// DecodeSessionList keeps every entry that decodes and reports the rest in
// skipped. Only a payload that is not a JSON array fails outright.
func DecodeSessionList(payload []byte) (sessions []Session, skipped []error, err error) {
	raw := []json.RawMessage{}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, nil, fmt.Errorf("decode session list: %w", err)
	}
	sessions = make([]Session, 0, len(raw))
	for i, entry := range raw {
		s := Session{}
		if err := json.Unmarshal(entry, &s); err != nil {
			skipped = append(skipped, fmt.Errorf("entry %d: %w", i, err))
			continue
		}
		sessions = append(sessions, s)
	}
	return sessions, skipped, nil
}

// Stats summarizes completed sessions.
type Stats struct {
	Sessions      int
	TotalClicks   int
	TotalDuration time.Duration
	AverageUPM    float64
	BestUPM       float64
	BestFlow      int
	Notes         int
}

// Summarize folds the completed sessions into Stats. Open sessions are
// skipped.
func Summarize(sessions []Session) Stats {
	stats := Stats{}
	upmTotal := 0.0
	for _, s := range sessions {
		if !s.IsComplete() {
			continue
		}
		stats.Sessions++
		stats.TotalClicks += s.TotalClicks
		stats.TotalDuration += s.Duration
		stats.Notes += len(s.Notes)
		upmTotal += s.FinalUPM
		if s.FinalUPM > stats.BestUPM {
			stats.BestUPM = s.FinalUPM
		}
		if s.SmoothnessMetrics.FlowState > stats.BestFlow {
			stats.BestFlow = s.SmoothnessMetrics.FlowState
		}
	}
	if stats.Sessions > 0 {
		stats.AverageUPM = upmTotal / float64(stats.Sessions)
	}
	return stats
}
