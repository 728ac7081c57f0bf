package timefmt

import (
	"fmt"
	"time"
)

// Clock renders d as MM:SS, or H:MM:SS once it reaches an hour.
func Clock(d time.Duration) string {
	if d < 0 {
		return "00:00"
	}
	total := int64(d / time.Second)
	hours := total / 3600
	minutes := (total / 60) % 60
	seconds := total % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
