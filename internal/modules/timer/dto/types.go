package dto

type SmoothnessOutput struct {
	Consistency     int `json:"consistency"`
	Rhythm          int `json:"rhythm"`
	FlowState       int `json:"flowState"`
	CriticalSuccess int `json:"criticalSuccess"`
	CriticalFailure int `json:"criticalFailure"`
}

type RewardsOutput struct {
	Experience        int     `json:"experience"`
	AchievementPoints int     `json:"achievementPoints"`
	FlowBonus         int     `json:"flowBonus"`
	StreakMultiplier  float64 `json:"streakMultiplier"`
}

// MetricsSnapshot is everything a front end may know about the live timer.
type MetricsSnapshot struct {
	ElapsedMs      int64            `json:"elapsedMs"`
	UnitsPerMinute float64          `json:"unitsPerMinute"`
	Running        bool             `json:"running"`
	Clicks         int              `json:"clicks"`
	Smoothness     SmoothnessOutput `json:"smoothness"`
	Rewards        RewardsOutput    `json:"rewards"`
}
