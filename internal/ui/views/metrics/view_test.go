package metrics_test

import (
	"strings"
	"testing"

	timerdto "cadence/internal/modules/timer/dto"
	"cadence/internal/ui/views/metrics"
)

func TestRenderShowsClockAndThroughput(t *testing.T) {
	t.Parallel()
	out := metrics.Render(timerdto.MetricsSnapshot{
		ElapsedMs:      1200,
		UnitsPerMinute: 150,
		Running:        true,
		Clicks:         3,
		Smoothness:     timerdto.SmoothnessOutput{Consistency: 91, Rhythm: 120, FlowState: -5},
	}, 60)
	for _, want := range []string{"00:01", "running", "150.0", "consistency", "flow"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestRenderPaused(t *testing.T) {
	t.Parallel()
	out := metrics.Render(timerdto.MetricsSnapshot{}, 0)
	if !strings.Contains(out, "paused") || !strings.Contains(out, "00:00") {
		t.Fatalf("unexpected paused render:\n%s", out)
	}
}
