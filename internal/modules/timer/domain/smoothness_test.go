package domain_test

import (
	"testing"
	"time"

	"cadence/internal/modules/timer/domain"
)

func gapsMs(values ...int) []time.Duration {
	out := make([]time.Duration, 0, len(values))
	for _, v := range values {
		out = append(out, time.Duration(v)*time.Millisecond)
	}
	return out
}

func TestSmoothnessNeedsTwoTimestamps(t *testing.T) {
	t.Parallel()
	calc := domain.NewCalculator(domain.DefaultTuning())
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	if got := calc.FromTimestamps(nil); got != (domain.Smoothness{}) {
		t.Fatalf("empty window must be zero, got %+v", got)
	}
	if got := calc.FromTimestamps([]time.Time{base}); got != (domain.Smoothness{}) {
		t.Fatalf("single tap must be zero, got %+v", got)
	}
	two := calc.FromTimestamps([]time.Time{base, base.Add(250 * time.Millisecond)})
	if two.Consistency != 100 || two.Rhythm != 100 || two.FlowState != 100 {
		t.Fatalf("one even gap should score fully, got %+v", two)
	}
}

func TestSmoothnessEvenTapping(t *testing.T) {
	t.Parallel()
	got := domain.NewCalculator(domain.DefaultTuning()).FromGaps(gapsMs(100, 100, 100, 100))
	want := domain.Smoothness{Consistency: 100, Rhythm: 100, FlowState: 100, CriticalSuccess: 4, CriticalFailure: 0}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestSmoothnessErraticTapping(t *testing.T) {
	t.Parallel()
	got := domain.NewCalculator(domain.DefaultTuning()).FromGaps(gapsMs(100, 10000))
	if got.Consistency > 5 {
		t.Fatalf("expected consistency near zero, got %d", got.Consistency)
	}
	if got.CriticalFailure < 1 {
		t.Fatalf("expected at least one critical failure, got %d", got.CriticalFailure)
	}
	if got.Rhythm != 0 {
		t.Fatalf("only pair is out of band, rhythm should be 0, got %d", got.Rhythm)
	}
}

func TestRhythmSkipsOutOfBandPairs(t *testing.T) {
	t.Parallel()
	got := domain.NewCalculator(domain.DefaultTuning()).FromGaps(gapsMs(100, 100, 1000, 100))
	if got.Rhythm != 100 {
		t.Fatalf("out-of-band pairs must not drag rhythm down, got %d", got.Rhythm)
	}
	edge := domain.NewCalculator(domain.DefaultTuning()).FromGaps(gapsMs(100, 200))
	if edge.Rhythm != 0 {
		t.Fatalf("ratio at band edge should score 0, got %d", edge.Rhythm)
	}
	slower := domain.NewCalculator(domain.DefaultTuning()).FromGaps(gapsMs(200, 100))
	if slower.Rhythm != edge.Rhythm {
		t.Fatalf("halving and doubling should score alike, got %d vs %d", slower.Rhythm, edge.Rhythm)
	}
}

func TestLeniencyForgivesJitter(t *testing.T) {
	t.Parallel()
	strict := domain.NewCalculator(domain.DefaultTuning()).FromGaps(gapsMs(100, 150))
	tuning := domain.DefaultTuning()
	tuning.Leniency = 0.5
	lenient := domain.NewCalculator(tuning).FromGaps(gapsMs(100, 150))
	if strict.Consistency != 80 || lenient.Consistency != 90 {
		t.Fatalf("expected 80 strict and 90 lenient, got %d and %d", strict.Consistency, lenient.Consistency)
	}
}

func TestSmoothnessDeterministicAndZeroGaps(t *testing.T) {
	t.Parallel()
	calc := domain.NewCalculator(domain.DefaultTuning())
	gaps := gapsMs(120, 90, 130, 110, 95)
	if calc.FromGaps(gaps) != calc.FromGaps(gaps) {
		t.Fatalf("calculator must be deterministic")
	}
	if got := calc.FromGaps(gapsMs(0, 0, 0)); got != (domain.Smoothness{}) {
		t.Fatalf("simultaneous taps carry no signal, got %+v", got)
	}
}
