package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	sessiondomain "cadence/internal/modules/session/domain"
	sessiondto "cadence/internal/modules/session/dto"
	sessionin "cadence/internal/modules/session/port/in"
	sessionout "cadence/internal/modules/session/port/out"
	"cadence/internal/modules/session/service"
	apperrors "cadence/internal/platform/errors"
	"cadence/internal/platform/logging"
)

type Interactor struct {
	repo     *service.Repository
	index    sessionout.SessionIndex
	exporter sessionout.SessionExporter
	logger   *slog.Logger
}

// NewInteractor wires the repository with the optional index and exporter.
// Either may be nil.
func NewInteractor(repo *service.Repository, index sessionout.SessionIndex, exporter sessionout.SessionExporter, logger *slog.Logger) sessionin.Usecase {
	return &Interactor{repo: repo, index: index, exporter: exporter, logger: logging.OrDiscard(logger)}
}

func (i *Interactor) Initialize(ctx context.Context) error {
	return i.repo.Initialize(ctx)
}

func (i *Interactor) Start(ctx context.Context) (sessiondto.SessionOutput, error) {
	session, err := i.repo.StartNewSession(ctx)
	if err != nil {
		return sessiondto.SessionOutput{}, err
	}
	return toOutput(session), nil
}

func (i *Interactor) End(ctx context.Context, input sessiondto.EndInput) (sessiondto.SessionOutput, error) {
	if input.ElapsedMs < 0 {
		return sessiondto.SessionOutput{}, fmt.Errorf("%w: elapsed must be non-negative", apperrors.ErrInvalidInput)
	}
	if input.SessionID != "" {
		active, err := i.repo.Current(ctx)
		if err != nil {
			return sessiondto.SessionOutput{}, err
		}
		if active.ID != input.SessionID {
			return sessiondto.SessionOutput{}, fmt.Errorf("%w: session %s is not the open session", apperrors.ErrInvalidInput, input.SessionID)
		}
	}

	closed, err := i.repo.EndCurrentSession(ctx, service.EndInput{
		Clicks:     input.Clicks,
		Elapsed:    time.Duration(input.ElapsedMs) * time.Millisecond,
		Smoothness: fromSmoothness(input.Smoothness),
	})
	if err != nil {
		return sessiondto.SessionOutput{}, err
	}
	if i.index != nil {
		if err := i.index.UpsertSession(ctx, closed); err != nil {
			i.logger.Warn("index session failed", "session_id", closed.ID, "error", err)
		}
	}
	return toOutput(closed), nil
}

func (i *Interactor) AddNote(ctx context.Context, input sessiondto.NoteInput) (sessiondto.SessionOutput, error) {
	session, err := i.repo.AddNote(ctx, sessiondomain.Note{TimestampMs: input.TimestampMs, Text: input.Text})
	if err != nil {
		return sessiondto.SessionOutput{}, err
	}
	return toOutput(session), nil
}

func (i *Interactor) GetActive(ctx context.Context) (sessiondto.SessionOutput, error) {
	session, err := i.repo.Current(ctx)
	if err != nil {
		return sessiondto.SessionOutput{}, err
	}
	return toOutput(session), nil
}

func (i *Interactor) List(ctx context.Context) ([]sessiondto.SessionOutput, error) {
	sessions, err := i.repo.AllSessions(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]sessiondto.SessionOutput, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, toOutput(s))
	}
	return out, nil
}

func (i *Interactor) Get(ctx context.Context, sessionID string) (sessiondto.SessionOutput, error) {
	session, err := i.repo.FindByID(ctx, sessionID)
	if err != nil {
		return sessiondto.SessionOutput{}, err
	}
	return toOutput(session), nil
}

// Stats reads the index when one is configured and falls back to folding
// the repository contents when the index fails or is empty.
func (i *Interactor) Stats(ctx context.Context) (sessiondto.StatsOutput, error) {
	indexed := false
	if i.index != nil {
		stats, err := i.index.Stats(ctx)
		switch {
		case err != nil:
			i.logger.Warn("index stats failed, summarizing repository", "error", err)
		case stats.Sessions > 0:
			return toStatsOutput(stats), nil
		default:
			indexed = true
		}
	}
	sessions, err := i.repo.AllSessions(ctx)
	if err != nil {
		return sessiondto.StatsOutput{}, err
	}
	summary := sessiondomain.Summarize(sessions)
	if indexed && summary.Sessions > 0 {
		i.logger.Warn("session index is empty, run reindex", "completed_sessions", summary.Sessions)
	}
	return toStatsOutput(summary), nil
}

func (i *Interactor) Reindex(ctx context.Context) error {
	if i.index == nil {
		return fmt.Errorf("%w: session index is not configured", apperrors.ErrInvalidInput)
	}
	sessions, err := i.repo.AllSessions(ctx)
	if err != nil {
		return err
	}
	if err := i.index.Reset(ctx); err != nil {
		return err
	}
	indexed := 0
	for _, s := range sessions {
		if !s.IsComplete() {
			continue
		}
		if err := i.index.UpsertSession(ctx, s); err != nil {
			return err
		}
		indexed++
	}
	i.logger.Info("sessions reindexed", "count", indexed)
	return nil
}

func (i *Interactor) Export(ctx context.Context, input sessiondto.ExportInput) (sessiondto.ExportOutput, error) {
	if i.exporter == nil {
		return sessiondto.ExportOutput{}, fmt.Errorf("%w: session export is not configured", apperrors.ErrInvalidInput)
	}
	if input.Dir == "" {
		return sessiondto.ExportOutput{}, fmt.Errorf("%w: export directory is required", apperrors.ErrInvalidInput)
	}

	var targets []sessiondomain.Session
	if input.SessionID != "" {
		session, err := i.repo.FindByID(ctx, input.SessionID)
		if err != nil {
			return sessiondto.ExportOutput{}, err
		}
		targets = []sessiondomain.Session{session}
	} else {
		all, err := i.repo.AllSessions(ctx)
		if err != nil {
			return sessiondto.ExportOutput{}, err
		}
		for _, s := range all {
			if s.IsComplete() {
				targets = append(targets, s)
			}
		}
	}

	out := sessiondto.ExportOutput{Paths: make([]string, 0, len(targets))}
	for _, s := range targets {
		path, err := i.exporter.Export(ctx, input.Dir, s)
		if err != nil {
			return out, err
		}
		out.Paths = append(out.Paths, path)
	}
	i.logger.Info("sessions exported", "count", len(out.Paths), "dir", input.Dir)
	return out, nil
}

func fromSmoothness(in sessiondto.SmoothnessMetrics) sessiondomain.SmoothnessMetrics {
	return sessiondomain.SmoothnessMetrics{
		Consistency:     in.Consistency,
		Rhythm:          in.Rhythm,
		FlowState:       in.FlowState,
		CriticalSuccess: in.CriticalSuccess,
		CriticalFailure: in.CriticalFailure,
	}
}

func toOutput(s sessiondomain.Session) sessiondto.SessionOutput {
	notes := make([]sessiondto.NoteOutput, 0, len(s.Notes))
	for _, n := range s.Notes {
		notes = append(notes, sessiondto.NoteOutput{TimestampMs: n.TimestampMs, Text: n.Text})
	}
	m := s.SmoothnessMetrics
	return sessiondto.SessionOutput{
		ID:          s.ID,
		StartTime:   s.StartTime,
		EndTime:     s.EndTime,
		Complete:    s.IsComplete(),
		TotalClicks: s.TotalClicks,
		FinalUPM:    s.FinalUPM,
		DurationMs:  s.Duration.Milliseconds(),
		Notes:       notes,
		Smoothness: sessiondto.SmoothnessMetrics{
			Consistency:     m.Consistency,
			Rhythm:          m.Rhythm,
			FlowState:       m.FlowState,
			CriticalSuccess: m.CriticalSuccess,
			CriticalFailure: m.CriticalFailure,
		},
	}
}

func toStatsOutput(s sessiondomain.Stats) sessiondto.StatsOutput {
	return sessiondto.StatsOutput{
		Sessions:        s.Sessions,
		TotalClicks:     s.TotalClicks,
		TotalDurationMs: s.TotalDuration.Milliseconds(),
		AverageUPM:      s.AverageUPM,
		BestUPM:         s.BestUPM,
		BestFlow:        s.BestFlow,
		Notes:           s.Notes,
	}
}
