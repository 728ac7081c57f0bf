package usecase

import (
	"context"

	"cadence/internal/modules/timer/domain"
	"cadence/internal/modules/timer/dto"
	timerin "cadence/internal/modules/timer/port/in"
	"cadence/internal/modules/timer/service"
)

type Interactor struct {
	svc *service.TimerService
}

func NewInteractor(svc *service.TimerService) timerin.Usecase {
	return &Interactor{svc: svc}
}

func (i *Interactor) StartTimer() dto.MetricsSnapshot { return toSnapshot(i.svc.Start()) }

func (i *Interactor) PauseTimer() dto.MetricsSnapshot { return toSnapshot(i.svc.Pause()) }

func (i *Interactor) IncrementClicks() dto.MetricsSnapshot { return toSnapshot(i.svc.Click()) }

func (i *Interactor) ResetSession() dto.MetricsSnapshot { return toSnapshot(i.svc.Reset()) }

func (i *Interactor) CurrentMetrics() dto.MetricsSnapshot { return toSnapshot(i.svc.Current()) }

func (i *Interactor) OnMetricsUpdate(fn func(dto.MetricsSnapshot)) func() {
	return i.svc.Subscribe(func(m domain.Metrics) { fn(toSnapshot(m)) })
}

func (i *Interactor) ClearMetricsUpdateCallback() { i.svc.ClearSubscriber() }

// Updates subscribes a one-slot channel that always holds the latest
// snapshot. The channel closes after ctx is done.
func (i *Interactor) Updates(ctx context.Context) <-chan dto.MetricsSnapshot {
	ch := make(chan dto.MetricsSnapshot, 1)
	unsubscribe := i.OnMetricsUpdate(func(m dto.MetricsSnapshot) {
		select {
		case ch <- m:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- m:
		default:
		}
	})
	go func() {
		<-ctx.Done()
		unsubscribe()
		close(ch)
	}()
	return ch
}

func (i *Interactor) Close() { i.svc.Close() }

func toSnapshot(m domain.Metrics) dto.MetricsSnapshot {
	return dto.MetricsSnapshot{
		ElapsedMs:      m.Elapsed.Milliseconds(),
		UnitsPerMinute: m.UnitsPerMinute,
		Running:        m.Running,
		Clicks:         m.Clicks,
		Smoothness: dto.SmoothnessOutput{
			Consistency:     m.Smoothness.Consistency,
			Rhythm:          m.Smoothness.Rhythm,
			FlowState:       m.Smoothness.FlowState,
			CriticalSuccess: m.Smoothness.CriticalSuccess,
			CriticalFailure: m.Smoothness.CriticalFailure,
		},
		Rewards: dto.RewardsOutput{
			Experience:        m.Rewards.Experience,
			AchievementPoints: m.Rewards.AchievementPoints,
			FlowBonus:         m.Rewards.FlowBonus,
			StreakMultiplier:  m.Rewards.StreakMultiplier,
		},
	}
}
