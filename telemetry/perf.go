package telemetry

import (
	"log/slog"
	"time"
)

// Phase identifies one stage of a simulation step.
type Phase uint8

// Step phases, in execution order.
const (
	PhaseMovement Phase = iota
	PhaseForage
	PhaseAging
	PhasePheromone
	PhaseSpawn
	PhaseActivity
	PhaseTelemetry
	numPhases
)

var phaseNames = [numPhases]string{
	"movement", "forage", "aging", "pheromone", "spawn", "activity", "telemetry",
}

func (p Phase) String() string {
	if p < numPhases {
		return phaseNames[p]
	}
	return "unknown"
}

// PhaseTimes holds one duration per phase.
type PhaseTimes [numPhases]time.Duration

// tickTiming is the timing of a single step.
type tickTiming struct {
	total  time.Duration
	phases PhaseTimes
}

// PerfCollector keeps step timings for the last N ticks, the latest frame
// time, and the pheromone worker's dispatch counters.
type PerfCollector struct {
	ring   []tickTiming
	next   int
	filled int

	cur        tickTiming
	tickStart  time.Time
	phaseStart time.Time
	phase      Phase
	inPhase    bool

	lastFrame time.Time
	frame     time.Duration

	fieldSent, fieldDropped int
}

// NewPerfCollector creates a collector averaging over windowSize ticks.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 60
	}
	return &PerfCollector{ring: make([]tickTiming, windowSize)}
}

// StartTick begins timing a step.
func (p *PerfCollector) StartTick() {
	p.tickStart = time.Now()
	p.cur = tickTiming{}
	p.inPhase = false
}

// StartPhase closes the running phase, if any, and starts timing phase.
func (p *PerfCollector) StartPhase(phase Phase) {
	now := time.Now()
	p.closePhase(now)
	p.phase, p.phaseStart, p.inPhase = phase, now, true
}

func (p *PerfCollector) closePhase(now time.Time) {
	if p.inPhase && p.phase < numPhases {
		p.cur.phases[p.phase] += now.Sub(p.phaseStart)
	}
	p.inPhase = false
}

// EndTick closes the running phase and stores the step in the ring.
func (p *PerfCollector) EndTick() {
	now := time.Now()
	p.closePhase(now)
	p.cur.total = now.Sub(p.tickStart)

	p.ring[p.next] = p.cur
	p.next = (p.next + 1) % len(p.ring)
	if p.filled < len(p.ring) {
		p.filled++
	}
}

// RecordFrame measures the time since the previous call (graphical mode).
func (p *PerfCollector) RecordFrame() {
	now := time.Now()
	if !p.lastFrame.IsZero() {
		p.frame = now.Sub(p.lastFrame)
	}
	p.lastFrame = now
}

// RecordFieldWorker stores the async pheromone worker's cumulative dispatch
// and drop counts.
func (p *PerfCollector) RecordFieldWorker(dispatched, dropped int) {
	p.fieldSent, p.fieldDropped = dispatched, dropped
}

// PerfStats summarises the collector window.
type PerfStats struct {
	AvgTick, MinTick, MaxTick time.Duration

	PhaseAvg PhaseTimes
	PhasePct [numPhases]float64

	TicksPerSecond float64

	FrameDuration time.Duration
	FPS           float64

	// Async pheromone updates since the run started. Zero when the field
	// updates synchronously.
	FieldDispatched int
	FieldDropped    int
}

// FieldDropRate is the share of async pheromone updates dropped because a
// request was still in flight.
func (s PerfStats) FieldDropRate() float64 {
	n := s.FieldDispatched + s.FieldDropped
	if n == 0 {
		return 0
	}
	return float64(s.FieldDropped) / float64(n)
}

// Stats aggregates the window.
func (p *PerfCollector) Stats() PerfStats {
	s := PerfStats{
		FrameDuration:   p.frame,
		FieldDispatched: p.fieldSent,
		FieldDropped:    p.fieldDropped,
	}
	if p.frame > 0 {
		s.FPS = float64(time.Second) / float64(p.frame)
	}
	if p.filled == 0 {
		return s
	}

	var total time.Duration
	var phaseSum PhaseTimes
	for i, t := range p.ring[:p.filled] {
		total += t.total
		if i == 0 || t.total < s.MinTick {
			s.MinTick = t.total
		}
		s.MaxTick = max(s.MaxTick, t.total)
		for ph, d := range t.phases {
			phaseSum[ph] += d
		}
	}

	n := time.Duration(p.filled)
	s.AvgTick = total / n
	for ph := range phaseSum {
		s.PhaseAvg[ph] = phaseSum[ph] / n
		if s.AvgTick > 0 {
			s.PhasePct[ph] = 100 * float64(s.PhaseAvg[ph]) / float64(s.AvgTick)
		}
	}
	if s.AvgTick > 0 {
		s.TicksPerSecond = float64(time.Second) / float64(s.AvgTick)
	}
	return s
}

// LogStats writes the window as one "perf" line, skipping phases under 0.1%.
func (s PerfStats) LogStats() {
	attrs := []any{
		"avg_tick_us", s.AvgTick.Microseconds(),
		"max_tick_us", s.MaxTick.Microseconds(),
		"ticks_per_sec", int(s.TicksPerSecond),
	}
	if s.FPS > 0 {
		attrs = append(attrs, "fps", int(s.FPS))
	}
	if s.FieldDispatched+s.FieldDropped > 0 {
		attrs = append(attrs, "field_sent", s.FieldDispatched, "field_dropped", s.FieldDropped)
	}
	for ph, pct := range s.PhasePct {
		if pct > 0.1 {
			attrs = append(attrs, Phase(ph).String()+"_pct", float64(int(pct*10))/10)
		}
	}
	slog.Info("perf", attrs...)
}

// LogValue implements slog.LogValuer.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_tick_us", s.AvgTick.Microseconds()),
		slog.Int64("min_tick_us", s.MinTick.Microseconds()),
		slog.Int64("max_tick_us", s.MaxTick.Microseconds()),
		slog.Float64("ticks_per_sec", s.TicksPerSecond),
		slog.Int("field_dispatched", s.FieldDispatched),
		slog.Int("field_dropped", s.FieldDropped),
	}
	if s.FPS > 0 {
		attrs = append(attrs, slog.Float64("fps", s.FPS))
	}
	for ph, pct := range s.PhasePct {
		attrs = append(attrs, slog.Float64(Phase(ph).String()+"_pct", pct))
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is one row of perf.csv.
type PerfStatsCSV struct {
	WindowEnd       int32   `csv:"window_end"`
	AvgTickUS       int64   `csv:"avg_tick_us"`
	MinTickUS       int64   `csv:"min_tick_us"`
	MaxTickUS       int64   `csv:"max_tick_us"`
	TicksPerSec     float64 `csv:"ticks_per_sec"`
	FPS             float64 `csv:"fps"`
	FieldDispatched int     `csv:"field_dispatched"`
	FieldDropped    int     `csv:"field_dropped"`
	FieldDropRate   float64 `csv:"field_drop_rate"`
	MovementPct     float64 `csv:"movement_pct"`
	ForagePct       float64 `csv:"forage_pct"`
	AgingPct        float64 `csv:"aging_pct"`
	PheromonePct    float64 `csv:"pheromone_pct"`
	SpawnPct        float64 `csv:"spawn_pct"`
	ActivityPct     float64 `csv:"activity_pct"`
	TelemetryPct    float64 `csv:"telemetry_pct"`
}

// ToCSV flattens the stats for the window ending at windowEnd.
func (s PerfStats) ToCSV(windowEnd int32) PerfStatsCSV {
	return PerfStatsCSV{
		WindowEnd:       windowEnd,
		AvgTickUS:       s.AvgTick.Microseconds(),
		MinTickUS:       s.MinTick.Microseconds(),
		MaxTickUS:       s.MaxTick.Microseconds(),
		TicksPerSec:     s.TicksPerSecond,
		FPS:             s.FPS,
		FieldDispatched: s.FieldDispatched,
		FieldDropped:    s.FieldDropped,
		FieldDropRate:   s.FieldDropRate(),
		MovementPct:     s.PhasePct[PhaseMovement],
		ForagePct:       s.PhasePct[PhaseForage],
		AgingPct:        s.PhasePct[PhaseAging],
		PheromonePct:    s.PhasePct[PhasePheromone],
		SpawnPct:        s.PhasePct[PhaseSpawn],
		ActivityPct:     s.PhasePct[PhaseActivity],
		TelemetryPct:    s.PhasePct[PhaseTelemetry],
	}
}
