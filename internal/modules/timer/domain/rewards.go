package domain

import "math"

type Rewards struct {
	Experience        int
	AchievementPoints int
	FlowBonus         int
	StreakMultiplier  float64
}

const DefaultFlowThreshold = 80

// RewardSystem turns smoothness into game points.
type RewardSystem struct {
	FlowThreshold int
}

func NewRewardSystem(flowThreshold int) RewardSystem {
	return RewardSystem{FlowThreshold: flowThreshold}
}

func (r RewardSystem) Calculate(s Smoothness) Rewards {
	consistency := float64(boundScore(s.Consistency))
	rhythm := float64(boundScore(s.Rhythm))
	flow := boundScore(s.FlowState)
	successes := s.CriticalSuccess
	if successes < 0 {
		successes = 0
	}

	streak := r.streakMultiplier(flow)
	flowBonus := 0
	if flow >= r.FlowThreshold {
		flowBonus = int(math.Round((consistency + rhythm) / 4))
	}
	baseXP := math.Max(1, consistency/10)

	return Rewards{
		Experience:        int(math.Round((baseXP + float64(flowBonus)) * streak)),
		AchievementPoints: int(math.Round(consistency*0.5+float64(flow)*0.3)) + successes*10,
		FlowBonus:         flowBonus,
		StreakMultiplier:  streak,
	}
}

func (r RewardSystem) streakMultiplier(flow int) float64 {
	switch {
	case flow >= 95:
		return 2.0
	case flow >= r.FlowThreshold:
		return 1.5
	case flow >= 50:
		return 1.25
	default:
		return 1.0
	}
}

func boundScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
