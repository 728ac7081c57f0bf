package out

import (
	"sync"
	"time"

	timerout "cadence/internal/modules/timer/port/out"
)

// IntervalTickSource ticks on a wall-clock interval from its own goroutine.
type IntervalTickSource struct {
	interval time.Duration
}

func NewIntervalTickSource(interval time.Duration) timerout.TickSource {
	return &IntervalTickSource{interval: interval}
}

func (s *IntervalTickSource) Start(onTick func()) timerout.TickHandle {
	h := &intervalHandle{done: make(chan struct{})}
	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-h.done:
				return
			case <-ticker.C:
				select {
				case <-h.done:
					return
				default:
				}
				onTick()
			}
		}
	}()
	return h
}

type intervalHandle struct {
	once sync.Once
	done chan struct{}
}

func (h *intervalHandle) Stop() {
	h.once.Do(func() { close(h.done) })
}

// ManualTickSource only ticks when Fire is called. Useful for polling
// front ends and for tests.
type ManualTickSource struct {
	mu      sync.Mutex
	nextID  int
	handles map[int]func()
}

func NewManualTickSource() *ManualTickSource {
	return &ManualTickSource{handles: map[int]func(){}}
}

func (s *ManualTickSource) Start(onTick func()) timerout.TickHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.handles[s.nextID] = onTick
	return &manualHandle{source: s, id: s.nextID}
}

// Fire delivers one tick to every live handle.
func (s *ManualTickSource) Fire() {
	s.mu.Lock()
	callbacks := make([]func(), 0, len(s.handles))
	for _, fn := range s.handles {
		callbacks = append(callbacks, fn)
	}
	s.mu.Unlock()
	for _, fn := range callbacks {
		fn()
	}
}

// Active reports how many handles have not been stopped.
func (s *ManualTickSource) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}

type manualHandle struct {
	source *ManualTickSource
	id     int
}

func (h *manualHandle) Stop() {
	h.source.mu.Lock()
	defer h.source.mu.Unlock()
	delete(h.source.handles, h.id)
}
