package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkFirstDelivery        BookmarkType = "first_delivery"
	BookmarkDeliveryBreakthrough BookmarkType = "delivery_breakthrough"
	BookmarkColonyCrash          BookmarkType = "colony_crash"
	BookmarkColonyRecovery       BookmarkType = "colony_recovery"
	BookmarkFoodExhausted        BookmarkType = "food_exhausted"
	BookmarkStableColony         BookmarkType = "stable_colony"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type"`
	Tick        int32        `csv:"tick"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"description", b.Description,
	)
}

// BookmarkDetector detects colony milestones from successive windows.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	delivered          bool
	hadFood            bool
	recentPopMin       int // minimum population since the last recovery
	recentPopPeak      int // peak population since the last crash
	stableWindowsCount int
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 5 {
		historySize = 5
	}
	return &BookmarkDetector{
		history:      make([]WindowStats, historySize),
		historySize:  historySize,
		recentPopMin: -1,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	if b := bd.checkFirstDelivery(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkFoodExhausted(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	if bd.historyFull || bd.historyIdx > 0 {
		if b := bd.checkDeliveryBreakthrough(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
		if b := bd.checkColonyRecovery(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
		if b := bd.checkColonyCrash(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
		if b := bd.checkStableColony(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
	}

	bd.addToHistory(stats)

	if bd.recentPopMin < 0 || stats.Population < bd.recentPopMin {
		bd.recentPopMin = stats.Population
	}
	if stats.Population > bd.recentPopPeak {
		bd.recentPopPeak = stats.Population
	}

	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

// getHistory returns the recorded windows oldest first.
func (bd *BookmarkDetector) getHistory() []WindowStats {
	if !bd.historyFull {
		return bd.history[:bd.historyIdx]
	}
	out := make([]WindowStats, 0, bd.historySize)
	out = append(out, bd.history[bd.historyIdx:]...)
	return append(out, bd.history[:bd.historyIdx]...)
}

func (bd *BookmarkDetector) checkFirstDelivery(stats WindowStats) *Bookmark {
	if bd.delivered || stats.Deliveries == 0 {
		return nil
	}
	bd.delivered = true
	return &Bookmark{
		Type:        BookmarkFirstDelivery,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("First %d deliveries at %.1fs", stats.Deliveries, stats.SimTimeSec),
	}
}

func (bd *BookmarkDetector) checkFoodExhausted(stats WindowStats) *Bookmark {
	if stats.FoodItems > 0 {
		bd.hadFood = true
		return nil
	}
	if !bd.hadFood {
		return nil
	}
	bd.hadFood = false
	return &Bookmark{
		Type:        BookmarkFoodExhausted,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("No food left in world, nest holds %.0f", stats.NestFood),
	}
}

func (bd *BookmarkDetector) checkDeliveryBreakthrough(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	var total int
	for _, h := range history {
		total += h.Deliveries
	}
	avg := float64(total) / float64(len(history))
	if avg == 0 {
		return nil
	}

	if float64(stats.Deliveries) > avg*2.0 && stats.Deliveries >= 5 {
		return &Bookmark{
			Type:        BookmarkDeliveryBreakthrough,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("%d deliveries is %.1fx average (%.1f)", stats.Deliveries, float64(stats.Deliveries)/avg, avg),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkColonyRecovery(stats WindowStats) *Bookmark {
	if bd.recentPopMin < 1 || bd.recentPopMin > 3 {
		return nil
	}

	if stats.Population >= bd.recentPopMin*3 && stats.Population >= 6 {
		oldMin := bd.recentPopMin
		bd.recentPopMin = stats.Population
		return &Bookmark{
			Type:        BookmarkColonyRecovery,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Colony recovered from %d to %d", oldMin, stats.Population),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkColonyCrash(stats WindowStats) *Bookmark {
	if bd.recentPopPeak == 0 {
		return nil
	}

	drop := 1.0 - float64(stats.Population)/float64(bd.recentPopPeak)
	if drop > 0.30 && stats.Population <= bd.recentPopPeak-5 {
		oldPeak := bd.recentPopPeak
		bd.recentPopPeak = stats.Population
		return &Bookmark{
			Type:        BookmarkColonyCrash,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Colony crashed %.0f%% from peak %d to %d", drop*100, oldPeak, stats.Population),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkStableColony(stats WindowStats) *Bookmark {
	if stats.Population < 5 || stats.Deliveries == 0 {
		bd.stableWindowsCount = 0
		return nil
	}

	history := bd.getHistory()
	if len(history) < 4 {
		return nil
	}
	recent := history[len(history)-4:]

	var sum float64
	for _, h := range recent {
		sum += float64(h.Population)
	}
	mean := sum / 4

	var variance float64
	for _, h := range recent {
		d := float64(h.Population) - mean
		variance += d * d
	}
	variance /= 4

	// CV^2 < 0.04 means CV < 0.2
	if mean > 0 && variance/(mean*mean) < 0.04 {
		bd.stableWindowsCount++
	} else {
		bd.stableWindowsCount = 0
	}

	if bd.stableWindowsCount == 5 {
		return &Bookmark{
			Type:        BookmarkStableColony,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Stable colony of %d agents over 5+ windows", stats.Population),
		}
	}
	return nil
}
