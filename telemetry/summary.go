package telemetry

import (
	"slices"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Summary describes a frame-time distribution in milliseconds.
type Summary struct {
	Frames int
	Mean   float64
	StdDev float64
	P50    float64
	P95    float64
	Min    float64
	Max    float64
}

// Summarize computes the distribution of durations.
func Summarize(durations []time.Duration) Summary {
	if len(durations) == 0 {
		return Summary{}
	}

	ms := make([]float64, len(durations))
	for i, d := range durations {
		ms[i] = float64(d) / float64(time.Millisecond)
	}
	slices.Sort(ms)

	mean, std := stat.MeanStdDev(ms, nil)
	if len(ms) == 1 {
		std = 0
	}
	return Summary{
		Frames: len(ms),
		Mean:   mean,
		StdDev: std,
		P50:    stat.Quantile(0.5, stat.Empirical, ms, nil),
		P95:    stat.Quantile(0.95, stat.Empirical, ms, nil),
		Min:    ms[0],
		Max:    ms[len(ms)-1],
	}
}
