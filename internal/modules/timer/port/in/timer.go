package in

import (
	"context"

	"cadence/internal/modules/timer/dto"
)

type Usecase interface {
	StartTimer() dto.MetricsSnapshot
	PauseTimer() dto.MetricsSnapshot
	IncrementClicks() dto.MetricsSnapshot
	ResetSession() dto.MetricsSnapshot
	CurrentMetrics() dto.MetricsSnapshot
	OnMetricsUpdate(fn func(dto.MetricsSnapshot)) (unsubscribe func())
	ClearMetricsUpdateCallback()
	Updates(ctx context.Context) <-chan dto.MetricsSnapshot
	Close()
}
