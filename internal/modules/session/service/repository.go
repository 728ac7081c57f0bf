package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"cadence/internal/modules/session/domain"
	sessionout "cadence/internal/modules/session/port/out"
	"cadence/internal/platform/clock"
	apperrors "cadence/internal/platform/errors"
	"cadence/internal/platform/id"
	"cadence/internal/platform/logging"
)

const (
	SessionsKey       = "sessions"
	CurrentSessionKey = "current-session"
)

type EndInput struct {
	Clicks     int
	Elapsed    time.Duration
	Smoothness domain.SmoothnessMetrics
}

// Repository owns every Session and guarantees at most one is open. Every
// call re-reads the store. A mutation reloads, writes the full list and the
// open-session pointer, and only then updates memory, all inside one store
// transaction when the store is a Transactor, so another process sharing
// the store cannot lose updates. Calls within one process are serialized on
// an internal lock.
type Repository struct {
	mu     sync.Mutex
	clock  clock.Clock
	idGen  id.Generator
	store  sessionout.KVStore
	logger *slog.Logger

	sessions  []domain.Session
	currentID string
}

func NewRepository(clock clock.Clock, idGen id.Generator, store sessionout.KVStore, logger *slog.Logger) *Repository {
	return &Repository{clock: clock, idGen: idGen, store: store, logger: logging.OrDiscard(logger)}
}

// Initialize loads persisted state. Every other call reloads on its own, so
// it only surfaces load errors early.
func (r *Repository) Initialize(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(ctx, r.store)
}

func (r *Repository) StartNewSession(ctx context.Context) (domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var session domain.Session
	err := r.update(ctx, func() ([]domain.Session, *domain.Session, error) {
		if r.currentID != "" {
			return nil, nil, fmt.Errorf("%w: session %s is still open", apperrors.ErrActiveSessionExists, r.currentID)
		}
		session = domain.New(r.uniqueID(r.idGen.New()), r.clock.Now())
		return append(cloneAll(r.sessions), session), &session, nil
	})
	if err != nil {
		return domain.Session{}, err
	}
	r.logger.Info("session started", "session_id", session.ID)
	return session.Clone(), nil
}

func (r *Repository) EndCurrentSession(ctx context.Context, input EndInput) (domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var closed domain.Session
	err := r.update(ctx, func() ([]domain.Session, *domain.Session, error) {
		idx := r.currentIndex()
		if idx < 0 {
			return nil, nil, apperrors.ErrNoActiveSession
		}
		next := cloneAll(r.sessions)
		if err := next[idx].Complete(r.clock.Now(), input.Clicks, input.Elapsed, input.Smoothness); err != nil {
			return nil, nil, err
		}
		closed = next[idx]
		return next, nil, nil
	})
	if err != nil {
		return domain.Session{}, err
	}
	r.logger.Info("session ended",
		"session_id", closed.ID,
		"clicks", closed.TotalClicks,
		"duration_ms", closed.Duration.Milliseconds(),
		"final_upm", closed.FinalUPM,
	)
	return closed.Clone(), nil
}

func (r *Repository) AddNote(ctx context.Context, note domain.Note) (domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var current domain.Session
	err := r.update(ctx, func() ([]domain.Session, *domain.Session, error) {
		idx := r.currentIndex()
		if idx < 0 {
			return nil, nil, apperrors.ErrNoActiveSession
		}
		next := cloneAll(r.sessions)
		if err := next[idx].AddNote(note); err != nil {
			return nil, nil, err
		}
		current = next[idx]
		return next, &current, nil
	})
	if err != nil {
		return domain.Session{}, err
	}
	logging.FromContext(logging.WithSessionID(ctx, current.ID), r.logger).Debug("note added", "timestamp_ms", note.TimestampMs)
	return current.Clone(), nil
}

// Current returns the open session or ErrNoActiveSession.
func (r *Repository) Current(ctx context.Context) (domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.load(ctx, r.store); err != nil {
		return domain.Session{}, err
	}
	idx := r.currentIndex()
	if idx < 0 {
		return domain.Session{}, apperrors.ErrNoActiveSession
	}
	return r.sessions[idx].Clone(), nil
}

// AllSessions lists every session, most recently started first.
func (r *Repository) AllSessions(ctx context.Context) ([]domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.load(ctx, r.store); err != nil {
		return nil, err
	}
	out := cloneAll(r.sessions)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartTime.After(out[j].StartTime)
	})
	return out, nil
}

func (r *Repository) FindByID(ctx context.Context, sessionID string) (domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.load(ctx, r.store); err != nil {
		return domain.Session{}, err
	}
	for _, s := range r.sessions {
		if s.ID == sessionID {
			return s.Clone(), nil
		}
	}
	return domain.Session{}, fmt.Errorf("%w: session %s", apperrors.ErrNotFound, sessionID)
}

// update reloads state, asks change for the next list and open session, and
// persists both. Memory follows only once the store has accepted the write.
func (r *Repository) update(ctx context.Context, change func() ([]domain.Session, *domain.Session, error)) error {
	var (
		next    []domain.Session
		current *domain.Session
	)
	apply := func(store sessionout.KVStore) error {
		if err := r.load(ctx, store); err != nil {
			return err
		}
		var err error
		next, current, err = change()
		if err != nil {
			return err
		}
		return r.persist(ctx, store, next, current)
	}

	tx, ok := r.store.(sessionout.Transactor)
	if !ok {
		if err := apply(r.store); err != nil {
			return err
		}
	} else {
		var applyErr error
		err := tx.Transact(ctx, func(store sessionout.KVStore) error {
			applyErr = apply(store)
			return applyErr
		})
		if applyErr != nil {
			return applyErr
		}
		if err != nil {
			r.logger.Error("store transaction failed", "error", err)
			return fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
		}
	}

	r.sessions = next
	r.currentID = ""
	if current != nil {
		r.currentID = current.ID
	}
	return nil
}

func (r *Repository) load(ctx context.Context, store sessionout.KVStore) error {
	sessions, err := r.loadSessions(ctx, store)
	if err != nil {
		return err
	}
	current, err := r.loadCurrent(ctx, store)
	if err != nil {
		return err
	}
	currentID := ""
	if current != nil {
		replaced := false
		for i := range sessions {
			if sessions[i].ID == current.ID {
				sessions[i] = *current
				replaced = true
				break
			}
		}
		if !replaced {
			sessions = append(sessions, *current)
		}
		currentID = current.ID
	}
	r.sessions = sessions
	r.currentID = currentID
	r.recoverOpenSessions()
	r.logger.Debug("sessions loaded", "count", len(r.sessions), "open", r.currentID)
	return nil
}

func (r *Repository) loadSessions(ctx context.Context, store sessionout.KVStore) ([]domain.Session, error) {
	raw, ok, err := store.Get(ctx, SessionsKey)
	if err != nil {
		return nil, fmt.Errorf("%w: load sessions: %v", apperrors.ErrPersistence, err)
	}
	if !ok || raw == "" {
		return []domain.Session{}, nil
	}
	decoded, skipped, err := domain.DecodeSessionList([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: load sessions: %v", apperrors.ErrPersistence, err)
	}
	for _, skipErr := range skipped {
		r.logger.Warn("skipping malformed session", "error", skipErr)
	}

	seen := make(map[string]bool, len(decoded))
	out := make([]domain.Session, 0, len(decoded))
	for _, s := range decoded {
		if seen[s.ID] {
			r.logger.Warn("skipping duplicate session", "session_id", s.ID)
			continue
		}
		seen[s.ID] = true
		out = append(out, s)
	}
	return out, nil
}

func (r *Repository) loadCurrent(ctx context.Context, store sessionout.KVStore) (*domain.Session, error) {
	raw, ok, err := store.Get(ctx, CurrentSessionKey)
	if err != nil {
		return nil, fmt.Errorf("%w: load current session: %v", apperrors.ErrPersistence, err)
	}
	if !ok || raw == "" {
		return nil, nil
	}
	current := domain.Session{}
	if err := json.Unmarshal([]byte(raw), &current); err != nil {
		r.logger.Warn("ignoring malformed current session", "error", err)
		return nil, nil
	}
	if current.IsComplete() {
		r.logger.Warn("ignoring completed session stored as current", "session_id", current.ID)
		return nil, nil
	}
	return &current, nil
}

// recoverOpenSessions restores the single-open-session invariant after a
// crash between the two writes of a mutation: the newest open session
// becomes current and any older open ones are closed where they began.
func (r *Repository) recoverOpenSessions() {
	newest := -1
	if r.currentID != "" {
		newest = r.currentIndex()
	}
	if newest < 0 {
		for i, s := range r.sessions {
			if s.IsComplete() {
				continue
			}
			if newest < 0 || s.StartTime.After(r.sessions[newest].StartTime) {
				newest = i
			}
		}
		if newest < 0 {
			return
		}
		r.currentID = r.sessions[newest].ID
		r.logger.Warn("adopted open session without current pointer", "session_id", r.currentID)
	}
	for i := range r.sessions {
		s := &r.sessions[i]
		if i == newest || s.IsComplete() {
			continue
		}
		if err := s.Complete(s.StartTime, s.TotalClicks, s.Duration, s.SmoothnessMetrics); err != nil {
			r.logger.Warn("could not close stray open session", "session_id", s.ID, "error", err)
			continue
		}
		r.logger.Warn("closed stray open session", "session_id", s.ID)
	}
}

func (r *Repository) persist(ctx context.Context, store sessionout.KVStore, sessions []domain.Session, current *domain.Session) error {
	payload, err := domain.EncodeSessionList(sessions)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}
	if err := store.Set(ctx, SessionsKey, string(payload)); err != nil {
		r.logger.Error("persist sessions failed", "error", err)
		return fmt.Errorf("%w: save sessions: %v", apperrors.ErrPersistence, err)
	}
	if current == nil {
		if err := store.Remove(ctx, CurrentSessionKey); err != nil {
			r.logger.Error("clear current session failed", "error", err)
			return fmt.Errorf("%w: clear current session: %v", apperrors.ErrPersistence, err)
		}
		return nil
	}
	encoded, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("%w: encode current session: %v", apperrors.ErrPersistence, err)
	}
	if err := store.Set(ctx, CurrentSessionKey, string(encoded)); err != nil {
		r.logger.Error("persist current session failed", "error", err)
		return fmt.Errorf("%w: save current session: %v", apperrors.ErrPersistence, err)
	}
	return nil
}

func (r *Repository) currentIndex() int {
	if r.currentID == "" {
		return -1
	}
	for i, s := range r.sessions {
		if s.ID == r.currentID {
			return i
		}
	}
	return -1
}

func (r *Repository) uniqueID(base string) string {
	taken := make(map[string]bool, len(r.sessions))
	for _, s := range r.sessions {
		taken[s.ID] = true
	}
	if !taken[base] {
		return base
	}
	for n := 2; ; n++ {
		candidate := base + "-" + strconv.Itoa(n)
		if !taken[candidate] {
			return candidate
		}
	}
}

func cloneAll(sessions []domain.Session) []domain.Session {
	out := make([]domain.Session, len(sessions))
	for i, s := range sessions {
		out[i] = s.Clone()
	}
	return out
}
