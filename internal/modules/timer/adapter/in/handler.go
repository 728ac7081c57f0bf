package in

import (
	"context"

	"cadence/internal/modules/timer/dto"
	timerin "cadence/internal/modules/timer/port/in"
)

// TUIHandler is the timer surface offered to the play screen.
type TUIHandler struct {
	usecase timerin.Usecase
}

func NewTUIHandler(usecase timerin.Usecase) TUIHandler {
	return TUIHandler{usecase: usecase}
}

func (h TUIHandler) Start() dto.MetricsSnapshot { return h.usecase.StartTimer() }

func (h TUIHandler) Pause() dto.MetricsSnapshot { return h.usecase.PauseTimer() }

// Toggle pauses a running timer and resumes a stopped one.
func (h TUIHandler) Toggle() dto.MetricsSnapshot {
	if h.usecase.CurrentMetrics().Running {
		return h.usecase.PauseTimer()
	}
	return h.usecase.StartTimer()
}

func (h TUIHandler) Tap() dto.MetricsSnapshot { return h.usecase.IncrementClicks() }

func (h TUIHandler) Reset() dto.MetricsSnapshot { return h.usecase.ResetSession() }

func (h TUIHandler) Current() dto.MetricsSnapshot { return h.usecase.CurrentMetrics() }

func (h TUIHandler) Updates(ctx context.Context) <-chan dto.MetricsSnapshot {
	return h.usecase.Updates(ctx)
}

func (h TUIHandler) Close() { h.usecase.Close() }
