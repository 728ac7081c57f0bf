package domain

import (
	"math"
	"time"
)

// Smoothness describes how regular a run of taps was. Consistency, Rhythm and
// FlowState are within 0..100; the critical counts are bounded by the number
// of gaps in the window.
type Smoothness struct {
	Consistency     int
	Rhythm          int
	FlowState       int
	CriticalSuccess int
	CriticalFailure int
}

// Tuning holds the calculator's knobs. Leniency scales the coefficient of
// variation: lower values forgive more jitter.
type Tuning struct {
	Leniency       float64
	SuccessBand    float64
	FailureBand    float64
	RhythmMinRatio float64
	RhythmMaxRatio float64
}

func DefaultTuning() Tuning {
	return Tuning{
		Leniency:       1.0,
		SuccessBand:    0.10,
		FailureBand:    0.50,
		RhythmMinRatio: 0.5,
		RhythmMaxRatio: 2.0,
	}
}

// Calculator is pure: it never reads the clock.
type Calculator struct {
	tuning Tuning
}

func NewCalculator(tuning Tuning) Calculator {
	return Calculator{tuning: tuning}
}

// Gaps turns consecutive timestamps into the intervals between them.
func Gaps(timestamps []time.Time) []time.Duration {
	if len(timestamps) < 2 {
		return nil
	}
	out := make([]time.Duration, 0, len(timestamps)-1)
	for i := 1; i < len(timestamps); i++ {
		out = append(out, timestamps[i].Sub(timestamps[i-1]))
	}
	return out
}

func (c Calculator) FromTimestamps(timestamps []time.Time) Smoothness {
	return c.FromGaps(Gaps(timestamps))
}

func (c Calculator) FromGaps(gaps []time.Duration) Smoothness {
	if len(gaps) == 0 {
		return Smoothness{}
	}
	ms := make([]float64, len(gaps))
	sum := 0.0
	for i, gap := range gaps {
		v := float64(gap) / float64(time.Millisecond)
		if v < 0 {
			v = 0
		}
		ms[i] = v
		sum += v
	}
	n := float64(len(ms))
	mean := sum / n
	if mean <= 0 {
		return Smoothness{}
	}
	variance := 0.0
	for _, v := range ms {
		variance += (v - mean) * (v - mean)
	}
	stdDev := math.Sqrt(variance / n)
	cv := stdDev / mean * 100

	consistency := clampScore(math.Round(100 - cv*c.tuning.Leniency))
	rhythm := consistency
	if len(ms) > 1 {
		rhythm = c.rhythm(ms)
	}

	out := Smoothness{
		Consistency: consistency,
		Rhythm:      rhythm,
		FlowState:   int(math.Round(float64(consistency+rhythm) / 2)),
	}
	for _, v := range ms {
		deviation := math.Abs(v - mean)
		if deviation <= mean*c.tuning.SuccessBand {
			out.CriticalSuccess++
		}
		if deviation > mean*c.tuning.FailureBand {
			out.CriticalFailure++
		}
	}
	return out
}

// rhythm averages per-pair scores; pairs whose ratio leaves the band are
// skipped rather than scored as zero.
func (c Calculator) rhythm(ms []float64) int {
	total := 0.0
	counted := 0
	for i := 1; i < len(ms); i++ {
		if ms[i-1] <= 0 {
			continue
		}
		ratio := ms[i] / ms[i-1]
		if ratio < c.tuning.RhythmMinRatio || ratio > c.tuning.RhythmMaxRatio || ratio <= 0 {
			continue
		}
		edge := c.tuning.RhythmMaxRatio
		if ratio < 1 {
			edge = 1 / c.tuning.RhythmMinRatio
		}
		deviation := math.Abs(math.Log(ratio)) / math.Log(edge)
		total += 100 * (1 - deviation)
		counted++
	}
	if counted == 0 {
		return 0
	}
	return clampScore(math.Round(total / float64(counted)))
}

func clampScore(v float64) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return int(v)
}
