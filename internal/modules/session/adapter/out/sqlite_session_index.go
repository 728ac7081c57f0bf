package out

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"cadence/internal/modules/session/domain"
	sessionout "cadence/internal/modules/session/port/out"
)

type SQLiteSessionIndex struct {
	db *sql.DB
}

func NewSQLiteSessionIndex(dbPath string) (sessionout.SessionIndex, error) {
	db, err := openSQLite(dbPath)
	if err != nil {
		return nil, err
	}
	index := &SQLiteSessionIndex{db: db}
	if err := index.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return index, nil
}

func (s *SQLiteSessionIndex) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS sessions (
  id TEXT PRIMARY KEY,
  start_time INTEGER NOT NULL,
  end_time INTEGER NOT NULL,
  duration_ms INTEGER NOT NULL,
  total_clicks INTEGER NOT NULL,
  final_upm REAL NOT NULL,
  consistency INTEGER NOT NULL,
  rhythm INTEGER NOT NULL,
  flow_state INTEGER NOT NULL,
  critical_success INTEGER NOT NULL,
  critical_failure INTEGER NOT NULL,
  note_count INTEGER NOT NULL
);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create sessions table: %w", err)
	}
	return nil
}

func (s *SQLiteSessionIndex) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions`); err != nil {
		return fmt.Errorf("reset sessions: %w", err)
	}
	return nil
}

// UpsertSession indexes completed sessions only; open ones are ignored.
func (s *SQLiteSessionIndex) UpsertSession(ctx context.Context, session domain.Session) error {
	if !session.IsComplete() {
		return nil
	}
	const stmt = `
INSERT INTO sessions (id, start_time, end_time, duration_ms, total_clicks, final_upm, consistency, rhythm, flow_state, critical_success, critical_failure, note_count)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  start_time=excluded.start_time,
  end_time=excluded.end_time,
  duration_ms=excluded.duration_ms,
  total_clicks=excluded.total_clicks,
  final_upm=excluded.final_upm,
  consistency=excluded.consistency,
  rhythm=excluded.rhythm,
  flow_state=excluded.flow_state,
  critical_success=excluded.critical_success,
  critical_failure=excluded.critical_failure,
  note_count=excluded.note_count;
`
	m := session.SmoothnessMetrics
	_, err := s.db.ExecContext(ctx, stmt,
		session.ID,
		session.StartTime.UnixMilli(),
		session.EndTime.UnixMilli(),
		session.Duration.Milliseconds(),
		session.TotalClicks,
		session.FinalUPM,
		m.Consistency,
		m.Rhythm,
		m.FlowState,
		m.CriticalSuccess,
		m.CriticalFailure,
		len(session.Notes),
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

func (s *SQLiteSessionIndex) Stats(ctx context.Context) (domain.Stats, error) {
	const query = `
SELECT
  COUNT(*),
  COALESCE(SUM(total_clicks), 0),
  COALESCE(SUM(duration_ms), 0),
  COALESCE(AVG(final_upm), 0),
  COALESCE(MAX(final_upm), 0),
  COALESCE(MAX(flow_state), 0),
  COALESCE(SUM(note_count), 0)
FROM sessions;
`
	var (
		stats      domain.Stats
		durationMs int64
	)
	err := s.db.QueryRowContext(ctx, query).Scan(
		&stats.Sessions,
		&stats.TotalClicks,
		&durationMs,
		&stats.AverageUPM,
		&stats.BestUPM,
		&stats.BestFlow,
		&stats.Notes,
	)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("query session stats: %w", err)
	}
	stats.TotalDuration = time.Duration(durationMs) * time.Millisecond
	return stats, nil
}

func (s *SQLiteSessionIndex) Close() error {
	return s.db.Close()
}
