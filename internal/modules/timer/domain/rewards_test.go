package domain_test

import (
	"testing"

	"cadence/internal/modules/timer/domain"
)

func TestRewardsBaselineForZeroMetrics(t *testing.T) {
	t.Parallel()
	got := domain.NewRewardSystem(domain.DefaultFlowThreshold).Calculate(domain.Smoothness{})
	want := domain.Rewards{Experience: 1, AchievementPoints: 0, FlowBonus: 0, StreakMultiplier: 1}
	if got != want {
		t.Fatalf("expected baseline %+v, got %+v", want, got)
	}
}

func TestRewardsPerfectFlow(t *testing.T) {
	t.Parallel()
	got := domain.NewRewardSystem(domain.DefaultFlowThreshold).Calculate(domain.Smoothness{
		Consistency: 100, Rhythm: 100, FlowState: 100, CriticalSuccess: 4,
	})
	if got.StreakMultiplier != 2.0 || got.FlowBonus != 50 {
		t.Fatalf("unexpected flow rewards %+v", got)
	}
	if got.Experience != 120 {
		t.Fatalf("expected (10+50)*2 experience, got %d", got.Experience)
	}
	if got.AchievementPoints != 120 {
		t.Fatalf("expected 50+30+40 points, got %d", got.AchievementPoints)
	}
}

func TestRewardsStreakSteps(t *testing.T) {
	t.Parallel()
	rs := domain.NewRewardSystem(domain.DefaultFlowThreshold)
	steps := map[int]float64{0: 1, 49: 1, 50: 1.25, 79: 1.25, 80: 1.5, 94: 1.5, 95: 2}
	for flow, want := range steps {
		got := rs.Calculate(domain.Smoothness{FlowState: flow})
		if got.StreakMultiplier != want {
			t.Fatalf("flow %d: expected multiplier %v, got %v", flow, want, got.StreakMultiplier)
		}
		if flow < domain.DefaultFlowThreshold && got.FlowBonus != 0 {
			t.Fatalf("flow %d below threshold must not award a bonus", flow)
		}
	}
}

func TestRewardsMonotonicInConsistencyAndNonNegative(t *testing.T) {
	t.Parallel()
	rs := domain.NewRewardSystem(domain.DefaultFlowThreshold)
	for _, rhythm := range []int{0, 40, 100} {
		for _, flow := range []int{0, 60, 85, 100} {
			for _, successes := range []int{0, 3} {
				prev := domain.Rewards{}
				for consistency := 0; consistency <= 100; consistency++ {
					got := rs.Calculate(domain.Smoothness{
						Consistency: consistency, Rhythm: rhythm, FlowState: flow, CriticalSuccess: successes,
					})
					if got.Experience < 0 || got.AchievementPoints < 0 || got.FlowBonus < 0 || got.StreakMultiplier < 1 {
						t.Fatalf("negative reward at c=%d r=%d f=%d: %+v", consistency, rhythm, flow, got)
					}
					if consistency > 0 && (got.Experience < prev.Experience || got.AchievementPoints < prev.AchievementPoints || got.FlowBonus < prev.FlowBonus) {
						t.Fatalf("rewards decreased at c=%d r=%d f=%d: %+v after %+v", consistency, rhythm, flow, got, prev)
					}
					prev = got
				}
			}
		}
	}
}

func TestRewardsClampOutOfRangeInput(t *testing.T) {
	t.Parallel()
	got := domain.NewRewardSystem(domain.DefaultFlowThreshold).Calculate(domain.Smoothness{
		Consistency: -50, Rhythm: -10, FlowState: -1, CriticalSuccess: -3,
	})
	if got.Experience < 0 || got.AchievementPoints < 0 || got.FlowBonus < 0 {
		t.Fatalf("rewards must never be negative, got %+v", got)
	}
}
