package telemetry

import "testing"

func hasBookmark(bms []Bookmark, typ BookmarkType) bool {
	for _, bm := range bms {
		if bm.Type == typ {
			return true
		}
	}
	return false
}

func TestBookmarkDetector_FirstDelivery(t *testing.T) {
	bd := NewBookmarkDetector(10)

	if bms := bd.Check(WindowStats{WindowEndTick: 600, Population: 20}); hasBookmark(bms, BookmarkFirstDelivery) {
		t.Error("first_delivery before any delivery")
	}
	if bms := bd.Check(WindowStats{WindowEndTick: 1200, Population: 20, Deliveries: 2}); !hasBookmark(bms, BookmarkFirstDelivery) {
		t.Error("expected first_delivery bookmark")
	}
	if bms := bd.Check(WindowStats{WindowEndTick: 1800, Population: 20, Deliveries: 3}); hasBookmark(bms, BookmarkFirstDelivery) {
		t.Error("first_delivery fired twice")
	}
}

func TestBookmarkDetector_DeliveryBreakthrough(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := 0; i < 5; i++ {
		bd.Check(WindowStats{WindowEndTick: int32(i * 600), Population: 20, Deliveries: 2})
	}

	bms := bd.Check(WindowStats{WindowEndTick: 3000, Population: 20, Deliveries: 8})
	if !hasBookmark(bms, BookmarkDeliveryBreakthrough) {
		t.Error("expected delivery_breakthrough bookmark")
	}
}

func TestBookmarkDetector_ColonyCrash(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := 0; i < 5; i++ {
		bd.Check(WindowStats{WindowEndTick: int32(i * 600), Population: 40})
	}

	bms := bd.Check(WindowStats{WindowEndTick: 3000, Population: 20})
	if !hasBookmark(bms, BookmarkColonyCrash) {
		t.Error("expected colony_crash bookmark")
	}
}

func TestBookmarkDetector_ColonyRecovery(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := 0; i < 3; i++ {
		bd.Check(WindowStats{WindowEndTick: int32(i * 600), Population: 2})
	}

	bms := bd.Check(WindowStats{WindowEndTick: 2400, Population: 10})
	if !hasBookmark(bms, BookmarkColonyRecovery) {
		t.Error("expected colony_recovery bookmark")
	}
}

func TestBookmarkDetector_FoodExhausted(t *testing.T) {
	bd := NewBookmarkDetector(10)

	if bms := bd.Check(WindowStats{WindowEndTick: 600, Population: 10}); hasBookmark(bms, BookmarkFoodExhausted) {
		t.Error("food_exhausted fired before any food existed")
	}
	bd.Check(WindowStats{WindowEndTick: 1200, Population: 10, FoodItems: 4})
	if bms := bd.Check(WindowStats{WindowEndTick: 1800, Population: 10}); !hasBookmark(bms, BookmarkFoodExhausted) {
		t.Error("expected food_exhausted bookmark")
	}
	if bms := bd.Check(WindowStats{WindowEndTick: 2400, Population: 10}); hasBookmark(bms, BookmarkFoodExhausted) {
		t.Error("food_exhausted fired again without new food")
	}
}

func TestBookmarkDetector_StableColony(t *testing.T) {
	bd := NewBookmarkDetector(10)

	fired := -1
	for i := 0; i < 12; i++ {
		bms := bd.Check(WindowStats{WindowEndTick: int32(i * 600), Population: 30, Deliveries: 3})
		if hasBookmark(bms, BookmarkStableColony) {
			if fired >= 0 {
				t.Fatalf("stable_colony fired twice (windows %d and %d)", fired, i)
			}
			fired = i
		}
	}
	if fired != 8 {
		t.Errorf("stable_colony fired at window %d, want 8", fired)
	}
}
