package service

import (
	"log/slog"
	"sync"

	"cadence/internal/modules/timer/domain"
	timerout "cadence/internal/modules/timer/port/out"
	"cadence/internal/platform/logging"
	"cadence/internal/platform/throughput"
)

// TimerService drives one WorkSession. Every operation and every metrics
// push is serialized on a single lock, so subscribers must not call back
// into the service from inside their callback.
type TimerService struct {
	mu      sync.Mutex
	session *domain.WorkSession
	ticks   timerout.TickSource
	logger  *slog.Logger

	tick    timerout.TickHandle
	tickGen uint64

	subscriber func(domain.Metrics)
	subGen     uint64
}

func NewTimerService(session *domain.WorkSession, ticks timerout.TickSource, logger *slog.Logger) *TimerService {
	return &TimerService{session: session, ticks: ticks, logger: logging.OrDiscard(logger)}
}

func (s *TimerService) Start() domain.Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.Start()
	if s.tick == nil {
		s.startTicking()
	}
	s.logger.Debug("timer started", "elapsed_ms", s.session.Elapsed().Milliseconds())
	return s.emitLocked()
}

func (s *TimerService) Pause() domain.Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.Pause()
	s.stopTicking()
	s.logger.Debug("timer paused", "elapsed_ms", s.session.Elapsed().Milliseconds())
	return s.emitLocked()
}

func (s *TimerService) Click() domain.Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.RecordClick()
	return s.emitLocked()
}

// Reset zeroes the session and restarts it with a fresh tick handle.
func (s *TimerService) Reset() domain.Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTicking()
	s.session.Reset(true)
	s.startTicking()
	s.logger.Debug("timer reset")
	return s.emitLocked()
}

func (s *TimerService) Current() domain.Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe replaces any previous subscriber. The returned func detaches
// this subscription only; it is a no-op once another one has replaced it.
func (s *TimerService) Subscribe(fn func(domain.Metrics)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subGen++
	gen := s.subGen
	s.subscriber = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.subGen == gen {
			s.subscriber = nil
		}
	}
}

func (s *TimerService) ClearSubscriber() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subGen++
	s.subscriber = nil
}

// Close halts ticking and drops the subscriber. No callback runs after
// Close returns.
func (s *TimerService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTicking()
	s.subGen++
	s.subscriber = nil
}

func (s *TimerService) startTicking() {
	if !s.session.Running() {
		return
	}
	s.tickGen++
	gen := s.tickGen
	s.tick = s.ticks.Start(func() { s.handleTick(gen) })
}

func (s *TimerService) stopTicking() {
	if s.tick != nil {
		s.tick.Stop()
		s.tick = nil
	}
	s.tickGen++
}

// handleTick drops ticks from handles that were stopped while the tick was
// waiting for the lock.
func (s *TimerService) handleTick(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.tickGen || s.tick == nil || !s.session.Running() {
		return
	}
	s.emitLocked()
}

func (s *TimerService) emitLocked() domain.Metrics {
	m := s.snapshotLocked()
	if s.subscriber != nil {
		s.subscriber(m)
	}
	return m
}

func (s *TimerService) snapshotLocked() domain.Metrics {
	elapsed := s.session.Elapsed()
	clicks := s.session.Clicks()
	return domain.Metrics{
		Elapsed:        elapsed,
		UnitsPerMinute: throughput.PerMinute(clicks, elapsed),
		Running:        s.session.Running(),
		Clicks:         clicks,
		Smoothness:     s.session.Smoothness(),
		Rewards:        s.session.Rewards(),
	}
}
