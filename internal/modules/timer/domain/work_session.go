package domain

import (
	"time"

	"cadence/internal/platform/clock"
)

type State int

const (
	StateIdle State = iota
	StateRunning
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	default:
		return "idle"
	}
}

const DefaultWindowSize = 10

// WorkSession is the live timer and tap state of the session being worked on.
// Elapsed time is banked on every pause so resume cycles neither lose nor
// double count time. It owns no timers.
type WorkSession struct {
	clock      clock.Clock
	calculator Calculator
	rewards    RewardSystem
	windowSize int

	state       State
	startedAt   time.Time
	accumulated time.Duration
	clicks      int
	recent      []time.Time
	smoothness  Smoothness
	reward      Rewards
}

func NewWorkSession(clk clock.Clock, calculator Calculator, rewards RewardSystem, windowSize int) *WorkSession {
	if windowSize < 2 {
		windowSize = DefaultWindowSize
	}
	return &WorkSession{
		clock:      clk,
		calculator: calculator,
		rewards:    rewards,
		windowSize: windowSize,
		recent:     make([]time.Time, 0, windowSize),
	}
}

// Start anchors a new run segment. No-op while running.
func (w *WorkSession) Start() {
	if w.state == StateRunning {
		return
	}
	w.state = StateRunning
	w.startedAt = w.clock.Now()
}

// Pause banks the current segment. No-op unless running.
func (w *WorkSession) Pause() {
	if w.state != StateRunning {
		return
	}
	w.accumulated += w.segment(w.clock.Now())
	w.startedAt = time.Time{}
	w.state = StatePaused
}

// RecordClick counts a tap in any state and rescores the tap window.
func (w *WorkSession) RecordClick() {
	w.clicks++
	if len(w.recent) == w.windowSize {
		copy(w.recent, w.recent[1:])
		w.recent = w.recent[:len(w.recent)-1]
	}
	w.recent = append(w.recent, w.clock.Now())
	w.smoothness = w.calculator.FromTimestamps(w.recent)
	w.reward = w.rewards.Calculate(w.smoothness)
}

// Reset returns to Idle with every counter, the tap window and the derived
// scores zeroed, then optionally starts a fresh run.
func (w *WorkSession) Reset(autoStart bool) {
	w.state = StateIdle
	w.startedAt = time.Time{}
	w.accumulated = 0
	w.clicks = 0
	w.recent = w.recent[:0]
	w.smoothness = Smoothness{}
	w.reward = Rewards{}
	if autoStart {
		w.Start()
	}
}

func (w *WorkSession) Elapsed() time.Duration {
	if w.state != StateRunning {
		return w.accumulated
	}
	return w.accumulated + w.segment(w.clock.Now())
}

func (w *WorkSession) segment(now time.Time) time.Duration {
	d := now.Sub(w.startedAt)
	if d < 0 {
		return 0
	}
	return d
}

func (w *WorkSession) State() State { return w.state }

func (w *WorkSession) Running() bool { return w.state == StateRunning }

func (w *WorkSession) Clicks() int { return w.clicks }

func (w *WorkSession) Smoothness() Smoothness { return w.smoothness }

func (w *WorkSession) Rewards() Rewards { return w.reward }

// RecentClicks returns a copy of the tap window, oldest first.
func (w *WorkSession) RecentClicks() []time.Time {
	out := make([]time.Time, len(w.recent))
	copy(out, w.recent)
	return out
}

// Metrics is one consistent reading of the session.
type Metrics struct {
	Elapsed        time.Duration
	UnitsPerMinute float64
	Running        bool
	Clicks         int
	Smoothness     Smoothness
	Rewards        Rewards
}
