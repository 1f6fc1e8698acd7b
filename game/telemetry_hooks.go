package game

import (
	"log/slog"

	"github.com/pthm-cable/formica/telemetry"
)

// flushTelemetry checks if the stats window should be flushed and handles bookmarks.
func (g *Game) flushTelemetry() {
	if !g.collector.ShouldFlush(g.tick) {
		return
	}

	stats := g.collector.Flush(g.tick, g.sampleColony())
	perfStats := g.perfCollector.Stats()

	if g.statsCallback != nil {
		g.statsCallback(stats)
	}

	if g.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if g.outputManager != nil {
		if err := g.outputManager.WriteStats(stats); err != nil {
			slog.Error("failed to write colony stats", "error", err)
		}
		if err := g.outputManager.WritePerf(perfStats, stats.WindowEndTick); err != nil {
			slog.Error("failed to write perf", "error", err)
		}
	}

	for _, bm := range g.bookmarkDetector.Check(stats) {
		if g.logStats {
			bm.LogBookmark()
		}
		if g.outputManager != nil {
			if err := g.outputManager.WriteBookmark(bm); err != nil {
				slog.Error("failed to write bookmark", "error", err)
			}
		}
	}
}

// sampleColony collects the point-in-time state for a window flush.
func (g *Game) sampleColony() telemetry.ColonyState {
	var s telemetry.ColonyState

	query := g.agentFilter.Query()
	for query.Next() {
		_, _, _, mob, fg, _, age, _ := query.Get()
		if mob.IsPlayer {
			continue
		}
		s.Population++
		if fg.Carrying() {
			s.Carrying++
		}
		s.Ages = append(s.Ages, float64(age.Current))
	}

	fq := g.foodFilter.Query()
	for fq.Next() {
		_, food := fq.Get()
		s.FoodItems++
		s.FoodInWorld += float64(food.Amount)
	}

	nq := g.nestFilter.Query()
	for nq.Next() {
		_, nest := nq.Get()
		s.NestFood = float64(nest.FoodCount)
		nq.Close()
		break
	}

	s.FieldMass = g.field.Total()
	s.FieldMax = g.field.Max()
	return s
}
