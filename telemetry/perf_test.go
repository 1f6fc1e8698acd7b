package telemetry

import (
	"testing"
	"time"
)

func TestPerfCollector_PhaseTiming(t *testing.T) {
	pc := NewPerfCollector(10)
	for i := 0; i < 5; i++ {
		pc.StartTick()
		pc.StartPhase(PhaseForage)
		time.Sleep(100 * time.Microsecond)
		pc.StartPhase(PhasePheromone)
		time.Sleep(200 * time.Microsecond)
		pc.EndTick()
	}

	stats := pc.Stats()
	if stats.AvgTick <= 0 || stats.TicksPerSecond <= 0 {
		t.Fatalf("avg tick %v, ticks/s %v, want positive", stats.AvgTick, stats.TicksPerSecond)
	}
	if stats.PhaseAvg[PhaseForage] <= 0 || stats.PhaseAvg[PhasePheromone] <= 0 {
		t.Errorf("phase averages = %v, want forage and pheromone tracked", stats.PhaseAvg)
	}
	if stats.PhaseAvg[PhaseMovement] != 0 {
		t.Errorf("movement avg = %v, want 0 for an untimed phase", stats.PhaseAvg[PhaseMovement])
	}
	if stats.PhasePct[PhasePheromone] <= stats.PhasePct[PhaseForage] {
		t.Errorf("pheromone %v%% <= forage %v%%", stats.PhasePct[PhasePheromone], stats.PhasePct[PhaseForage])
	}
	if stats.MinTick > stats.AvgTick || stats.AvgTick > stats.MaxTick {
		t.Errorf("min %v avg %v max %v out of order", stats.MinTick, stats.AvgTick, stats.MaxTick)
	}
}

func TestPerfCollector_RollingWindow(t *testing.T) {
	pc := NewPerfCollector(3)

	pc.StartTick()
	pc.StartPhase(PhaseAging)
	time.Sleep(5 * time.Millisecond)
	pc.EndTick()
	for i := 0; i < 3; i++ {
		pc.StartTick()
		pc.StartPhase(PhaseAging)
		pc.EndTick()
	}

	if stats := pc.Stats(); stats.MaxTick >= 5*time.Millisecond {
		t.Errorf("max tick %v, want the slow tick rotated out", stats.MaxTick)
	}
}

func TestPerfCollector_Empty(t *testing.T) {
	stats := NewPerfCollector(10).Stats()
	if stats.AvgTick != 0 || stats.TicksPerSecond != 0 || stats.FPS != 0 {
		t.Errorf("empty stats = %+v, want zero", stats)
	}
	if stats.FieldDropRate() != 0 {
		t.Errorf("drop rate = %v, want 0 without a worker", stats.FieldDropRate())
	}
}

func TestPerfCollector_FrameTiming(t *testing.T) {
	pc := NewPerfCollector(10)
	pc.RecordFrame()
	time.Sleep(16 * time.Millisecond)
	pc.RecordFrame()

	stats := pc.Stats()
	if stats.FrameDuration < 15*time.Millisecond {
		t.Errorf("frame duration = %v, want >= 15ms", stats.FrameDuration)
	}
	if stats.FPS < 20 || stats.FPS > 70 {
		t.Errorf("fps = %v, want about 60", stats.FPS)
	}
}

func TestPerfCollector_FieldWorkerCounts(t *testing.T) {
	pc := NewPerfCollector(10)
	pc.RecordFieldWorker(3, 1)
	pc.RecordFieldWorker(6, 2)

	stats := pc.Stats()
	if stats.FieldDispatched != 6 || stats.FieldDropped != 2 {
		t.Fatalf("counts = (%d,%d), want (6,2)", stats.FieldDispatched, stats.FieldDropped)
	}
	if got := stats.FieldDropRate(); got != 0.25 {
		t.Errorf("drop rate = %v, want 0.25", got)
	}
	// Reading stats must not consume the counters.
	if again := pc.Stats(); again.FieldDispatched != 6 {
		t.Errorf("second read dispatched = %d, want 6", again.FieldDispatched)
	}
}

func TestPerfStats_ToCSV(t *testing.T) {
	var s PerfStats
	s.AvgTick = 250 * time.Microsecond
	s.TicksPerSecond = 4000
	s.PhasePct[PhaseForage] = 40
	s.PhasePct[PhasePheromone] = 35
	s.FieldDispatched = 9
	s.FieldDropped = 3

	rec := s.ToCSV(600)
	if rec.WindowEnd != 600 || rec.AvgTickUS != 250 {
		t.Errorf("record = %+v", rec)
	}
	if rec.ForagePct != 40 || rec.PheromonePct != 35 || rec.MovementPct != 0 {
		t.Errorf("phase pct = forage %v pheromone %v movement %v", rec.ForagePct, rec.PheromonePct, rec.MovementPct)
	}
	if rec.FieldDispatched != 9 || rec.FieldDropped != 3 || rec.FieldDropRate != 0.25 {
		t.Errorf("field counts = %d/%d rate %v", rec.FieldDispatched, rec.FieldDropped, rec.FieldDropRate)
	}
}

func TestPhase_String(t *testing.T) {
	if PhasePheromone.String() != "pheromone" || Phase(200).String() != "unknown" {
		t.Errorf("names = %q, %q", PhasePheromone.String(), Phase(200).String())
	}
}
