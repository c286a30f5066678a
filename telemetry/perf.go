// Package telemetry records per-frame phase timings, writes them as CSV
// and summarizes frame-time distributions.
package telemetry

import (
	"log/slog"
	"time"
)

// Phase names of one frame.
const (
	PhaseAdvance  = "advance"
	PhaseClear    = "clear"
	PhaseRender   = "render"
	PhaseReadBack = "readback"
)

// FrameSample holds timing data for a single frame.
type FrameSample struct {
	Frame    int
	Duration time.Duration
	Phases   map[string]time.Duration
}

// PerfCollector tracks frame timings over a rolling window and keeps the
// most recent completed sample.
type PerfCollector struct {
	windowSize    int
	samples       []FrameSample
	writeIndex    int
	sampleCount   int
	frames        int
	currentPhases map[string]time.Duration
	frameStart    time.Time
	phaseStart    time.Time
	lastPhase     string
	last          FrameSample
}

// NewPerfCollector creates a collector averaging over windowSize frames.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 60
	}
	return &PerfCollector{
		windowSize:    windowSize,
		samples:       make([]FrameSample, windowSize),
		currentPhases: make(map[string]time.Duration),
	}
}

// StartFrame begins timing a new frame.
func (p *PerfCollector) StartFrame() {
	p.frameStart = time.Now()
	p.currentPhases = make(map[string]time.Duration)
	p.lastPhase = ""
}

// StartPhase begins timing phase, ending the previous one.
func (p *PerfCollector) StartPhase(phase string) {
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}
	p.phaseStart = now
	p.lastPhase = phase
}

// EndFrame finishes the current frame and records its sample.
func (p *PerfCollector) EndFrame() FrameSample {
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
		p.lastPhase = ""
	}

	sample := FrameSample{
		Frame:    p.frames,
		Duration: now.Sub(p.frameStart),
		Phases:   p.currentPhases,
	}
	p.frames++
	p.last = sample

	p.samples[p.writeIndex] = sample
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
	return sample
}

// Frames returns the number of completed frames.
func (p *PerfCollector) Frames() int {
	return p.frames
}

// Durations returns the frame durations in the window, oldest first.
func (p *PerfCollector) Durations() []time.Duration {
	out := make([]time.Duration, 0, p.sampleCount)
	start := 0
	if p.sampleCount == p.windowSize {
		start = p.writeIndex
	}
	for i := range p.sampleCount {
		out = append(out, p.samples[(start+i)%p.windowSize].Duration)
	}
	return out
}

// PerfStats holds aggregated statistics over the window.
type PerfStats struct {
	AvgFrame time.Duration
	MinFrame time.Duration
	MaxFrame time.Duration
	PhaseAvg map[string]time.Duration
	PhasePct map[string]float64
	FPS      float64
}

// Stats aggregates the current window.
func (p *PerfCollector) Stats() PerfStats {
	if p.sampleCount == 0 {
		return PerfStats{
			PhaseAvg: make(map[string]time.Duration),
			PhasePct: make(map[string]float64),
		}
	}

	var total, minF, maxF time.Duration
	phaseSum := make(map[string]time.Duration)
	for i := range p.sampleCount {
		s := p.samples[i]
		total += s.Duration
		if i == 0 || s.Duration < minF {
			minF = s.Duration
		}
		if s.Duration > maxF {
			maxF = s.Duration
		}
		for phase, d := range s.Phases {
			phaseSum[phase] += d
		}
	}

	avg := total / time.Duration(p.sampleCount)
	phaseAvg := make(map[string]time.Duration, len(phaseSum))
	phasePct := make(map[string]float64, len(phaseSum))
	for phase, sum := range phaseSum {
		phaseAvg[phase] = sum / time.Duration(p.sampleCount)
		if avg > 0 {
			phasePct[phase] = float64(phaseAvg[phase]) / float64(avg) * 100
		}
	}

	var fps float64
	if avg > 0 {
		fps = float64(time.Second) / float64(avg)
	}
	return PerfStats{
		AvgFrame: avg,
		MinFrame: minF,
		MaxFrame: maxF,
		PhaseAvg: phaseAvg,
		PhasePct: phasePct,
		FPS:      fps,
	}
}

// LogStats logs the statistics at Info level.
func (s PerfStats) LogStats(l *slog.Logger) {
	attrs := []any{
		"avg_frame_us", s.AvgFrame.Microseconds(),
		"min_frame_us", s.MinFrame.Microseconds(),
		"max_frame_us", s.MaxFrame.Microseconds(),
		"fps", int(s.FPS),
	}
	for _, phase := range []string{PhaseAdvance, PhaseClear, PhaseRender, PhaseReadBack} {
		if pct, ok := s.PhasePct[phase]; ok {
			attrs = append(attrs, phase+"_pct", int(pct))
		}
	}
	l.Info("perf", attrs...)
}
