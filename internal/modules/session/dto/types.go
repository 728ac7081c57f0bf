package dto

import "time"

type SmoothnessMetrics struct {
	Consistency     int
	Rhythm          int
	FlowState       int
	CriticalSuccess int
	CriticalFailure int
}

type NoteInput struct {
	TimestampMs int64
	Text        string
}

type NoteOutput struct {
	TimestampMs int64
	Text        string
}

type EndInput struct {
	SessionID  string
	Clicks     int
	ElapsedMs  int64
	Smoothness SmoothnessMetrics
}

type SessionOutput struct {
	ID          string
	StartTime   time.Time
	EndTime     time.Time
	Complete    bool
	TotalClicks int
	FinalUPM    float64
	DurationMs  int64
	Notes       []NoteOutput
	Smoothness  SmoothnessMetrics
}

type StatsOutput struct {
	Sessions        int
	TotalClicks     int
	TotalDurationMs int64
	AverageUPM      float64
	BestUPM         float64
	BestFlow        int
	Notes           int
}

type ExportInput struct {
	Dir       string
	SessionID string
}

type ExportOutput struct {
	Paths []string
}
