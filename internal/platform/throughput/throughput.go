package throughput

import (
	"math"
	"time"
)

// PerMinute is units per minute over elapsed, rounded to one decimal.
// It is 0 whenever elapsed is not positive.
func PerMinute(units int, elapsed time.Duration) float64 {
	if elapsed <= 0 || units <= 0 {
		return 0
	}
	minutes := elapsed.Minutes()
	return math.Round(float64(units)/minutes*10) / 10
}
