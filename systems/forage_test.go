package systems

import (
	"errors"
	"math"
	"testing"

	"github.com/pthm-cable/formica/components"
)

const tick = float32(1.0 / 60.0)

func TestForage_PickupHappensOnce(t *testing.T) {
	f := newColonyFixture(ResetToZero)
	f.addNest(800, 500, 0)
	food := f.addFood(105, 100, 1)
	ant := f.addAgent(100, 100, false)

	ev, err := f.forage.Update(1, tick)
	if err != nil {
		t.Fatal(err)
	}
	if ev.Pickups != 1 {
		t.Fatalf("pickups = %d, want 1", ev.Pickups)
	}
	fg := f.forager(ant)
	if fg.State != components.CarryFood || fg.FoodCarried != 1 {
		t.Fatalf("forager = %+v, want CarryFood with 1 unit", *fg)
	}
	if f.w.Alive(food) {
		t.Error("depleted food entity was not removed")
	}

	// Put more food next to the carrier; it must not pick again.
	f.addFood(100, 102, 3)
	for i := 0; i < 5; i++ {
		ev, err = f.forage.Update(1+float64(i+1)*10, tick)
		if err != nil {
			t.Fatal(err)
		}
		if ev.Pickups != 0 {
			t.Fatalf("tick %d: carrier picked up again", i)
		}
	}
	if fg := f.forager(ant); fg.FoodCarried != 1 {
		t.Errorf("food carried = %d, want 1", fg.FoodCarried)
	}
}

func TestForage_PickupDecrementsAmount(t *testing.T) {
	f := newColonyFixture(ResetToZero)
	f.addNest(800, 500, 0)
	food := f.addFood(100, 100, 3)
	f.addAgent(100, 100, false)

	if _, err := f.forage.Update(1, tick); err != nil {
		t.Fatal(err)
	}
	if !f.w.Alive(food) {
		t.Fatal("food with amount left was removed")
	}
	_, amt := f.foodMap.Get(food)
	if amt.Amount != 2 {
		t.Errorf("food amount = %v, want 2", amt.Amount)
	}
}

func TestForage_TwoAgentsShareLastUnit(t *testing.T) {
	f := newColonyFixture(ResetToZero)
	f.addNest(800, 500, 0)
	f.addFood(100, 100, 1)
	a := f.addAgent(100, 100, false)
	b := f.addAgent(101, 100, false)

	ev, err := f.forage.Update(1, tick)
	if err != nil {
		t.Fatal(err)
	}
	if ev.Pickups != 1 {
		t.Errorf("pickups = %d, want 1 for a single unit", ev.Pickups)
	}
	if f.forager(a).Carrying() == f.forager(b).Carrying() {
		t.Error("exactly one agent should carry the last unit")
	}
}

func TestForage_DeliveryAtNest(t *testing.T) {
	f := newColonyFixture(ResetToZero)
	nest := f.addNest(480, 320, 0)
	ant := f.addAgent(485, 320, false)
	f.forager(ant).Pickup()

	ev, err := f.forage.Update(1, tick)
	if err != nil {
		t.Fatal(err)
	}
	if ev.Deliveries != 1 {
		t.Errorf("deliveries = %d, want 1", ev.Deliveries)
	}
	fg := f.forager(ant)
	if fg.State != components.FindFood || fg.FoodCarried != 0 {
		t.Errorf("forager = %+v, want FindFood with 0 units", *fg)
	}
	if n := f.nestComp.Get(nest); n.FoodCount != 1 {
		t.Errorf("nest food = %v, want 1", n.FoodCount)
	}
	if f.memory(ant).Trail.Active {
		t.Error("trail still active after delivery")
	}
}

func TestForage_CarrierTargetsNestAndLaysTrail(t *testing.T) {
	f := newColonyFixture(ResetToZero)
	f.addNest(480, 320, 0)
	ant := f.addAgent(100, 100, false)
	f.forager(ant).Pickup()
	f.memory(ant).Exploration = components.ExplorationTarget{Active: true, X: 10, Y: 10}

	if _, err := f.forage.Update(1, tick); err != nil {
		t.Fatal(err)
	}
	tgt := f.target(ant)
	if tgt.Type != components.TargetNest || tgt.X != 480 || tgt.Y != 320 {
		t.Errorf("target = %+v, want nest at (480,320)", *tgt)
	}
	if f.memory(ant).Exploration.Active {
		t.Error("exploration bookkeeping not cleared while carrying")
	}
	if got := f.field.Sample(100, 100); !approx(float64(got), float64(tick), 1e-6) {
		t.Errorf("trail deposit = %f, want rate*dt = %f", got, tick)
	}
}

func TestForage_SpawnAtThreshold(t *testing.T) {
	tests := []struct {
		name      string
		policy    ResetPolicy
		start     float32
		wantCount float32
		wantBirth int
	}{
		{"reset below threshold", ResetToZero, 3, 4, 0},
		{"reset at threshold", ResetToZero, 4, 0, 1},
		{"reset above threshold", ResetToZero, 5.5, 0, 1},
		{"decrement at threshold", DecrementByCost, 4, 0, 1},
		{"decrement keeps remainder", DecrementByCost, 5.5, 1.5, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newColonyFixture(tt.policy)
			nest := f.addNest(480, 320, tt.start)
			ant := f.addAgent(480, 320, false)
			f.forager(ant).Pickup()

			ev, err := f.forage.Update(1, tick)
			if err != nil {
				t.Fatal(err)
			}
			if ev.Births != tt.wantBirth || len(f.spawned) != tt.wantBirth {
				t.Fatalf("births = %d (spawned %d), want %d", ev.Births, len(f.spawned), tt.wantBirth)
			}
			if n := f.nestComp.Get(nest); !approx(float64(n.FoodCount), float64(tt.wantCount), 1e-6) {
				t.Errorf("nest food = %v, want %v", n.FoodCount, tt.wantCount)
			}
			for _, e := range f.spawned {
				pos, _, _, mob, fg, _, age, _, _ := f.agent(e)
				if age.Current != 0 || mob.IsPlayer || fg.Carrying() {
					t.Errorf("spawned agent age=%v player=%v carrying=%v", age.Current, mob.IsPlayer, fg.Carrying())
				}
				if pos.X != 480 || pos.Y != 320 {
					t.Errorf("spawned at (%v,%v), want nest", pos.X, pos.Y)
				}
			}
		})
	}
}

func TestForage_PlayerTargetNeverWritten(t *testing.T) {
	f := newColonyFixture(ResetToZero)
	f.addNest(480, 320, 0)
	f.addFood(140, 100, 1) // visible, out of pickup range
	player := f.addAgent(100, 100, true)

	if _, err := f.forage.Update(1, tick); err != nil {
		t.Fatal(err)
	}
	if tgt := f.target(player); tgt.Active {
		t.Errorf("player target written: %+v", *tgt)
	}

	// Player still picks up and delivers by proximity.
	f.addFood(100, 100, 1)
	ev, err := f.forage.Update(2, tick)
	if err != nil {
		t.Fatal(err)
	}
	if ev.Pickups != 1 || !f.forager(player).Carrying() {
		t.Fatal("player should pick up food in range")
	}
	if _, err := f.forage.Update(3, tick); err != nil {
		t.Fatal(err)
	}
	if tgt := f.target(player); tgt.Active {
		t.Errorf("carrying player target written: %+v", *tgt)
	}
}

func TestForage_MissingNest(t *testing.T) {
	f := newColonyFixture(ResetToZero)
	searcher := f.addAgent(100, 100, false)

	if _, err := f.forage.Update(1, tick); err != nil {
		t.Fatalf("searching without a nest should not fail: %v", err)
	}

	carrier := f.addAgent(200, 200, false)
	f.forager(carrier).Pickup()
	_, err := f.forage.Update(2, tick)
	if !errors.Is(err, ErrNoNest) {
		t.Fatalf("err = %v, want ErrNoNest", err)
	}
	if !f.target(searcher).Active {
		t.Error("other agents should still be processed when the nest is missing")
	}
}

func TestForage_PickupCooldown(t *testing.T) {
	// Cooldowns run on simulated seconds passed to Update.
	f := newColonyFixture(ResetToZero)
	f.addNest(800, 500, 0)
	f.addFood(100, 100, 5)
	ant := f.addAgent(100, 100, false)
	mem := f.memory(ant)
	mem.HasPickupAttempt = true
	mem.LastPickupAttempt = 10

	ev, err := f.forage.Update(12, tick)
	if err != nil {
		t.Fatal(err)
	}
	if ev.Pickups != 0 {
		t.Fatal("picked up during cooldown")
	}
	if tgt := f.target(ant); tgt.Type != components.TargetExploration {
		t.Errorf("cooling-down agent target = %v, want exploration", tgt.Type)
	}

	ev, err = f.forage.Update(13.5, tick)
	if err != nil {
		t.Fatal(err)
	}
	if ev.Pickups != 1 {
		t.Fatal("pickup should succeed once the timeout has passed")
	}
	if mem := f.memory(ant); mem.LastPickupAttempt != 13.5 {
		t.Errorf("last pickup = %v, want 13.5", mem.LastPickupAttempt)
	}
}

func TestForage_ApproachesNearestFood(t *testing.T) {
	f := newColonyFixture(ResetToZero)
	f.addNest(800, 500, 0)
	f.addFood(140, 100, 1)
	f.addFood(100, 130, 1)
	ant := f.addAgent(100, 100, false)

	if _, err := f.forage.Update(1, tick); err != nil {
		t.Fatal(err)
	}
	tgt := f.target(ant)
	if tgt.Type != components.TargetFood || tgt.X != 100 || tgt.Y != 130 {
		t.Errorf("target = %+v, want food at (100,130)", *tgt)
	}
}

func TestForage_NearestFoodTieKeepsFirst(t *testing.T) {
	f := newColonyFixture(ResetToZero)
	f.addNest(800, 500, 0)
	f.addFood(130, 100, 1)
	f.addFood(70, 100, 1)
	ant := f.addAgent(100, 100, false)

	if _, err := f.forage.Update(1, tick); err != nil {
		t.Fatal(err)
	}
	if tgt := f.target(ant); tgt.X != 130 {
		t.Errorf("tie resolved to x=%v, want first created food at x=130", tgt.X)
	}
}

func TestForage_FollowsStrongestNeighborCell(t *testing.T) {
	f := newColonyFixture(ResetToZero)
	f.addNest(800, 500, 0)
	ant := f.addAgent(402, 202, false) // cell (100,50) at 0.25 cells/unit

	f.field.Deposit(406, 202, 1)   // cell (101,50), east
	f.field.Deposit(398, 198, 0.5) // cell (99,49), north-west

	if _, err := f.forage.Update(1, tick); err != nil {
		t.Fatal(err)
	}
	tgt := f.target(ant)
	if tgt.Type != components.TargetExploration {
		t.Fatalf("target type = %v, want exploration", tgt.Type)
	}
	step := defaultForageParams().TrailStep
	if !approx(float64(tgt.X), float64(402+step), 1e-4) || !approx(float64(tgt.Y), 202, 1e-4) {
		t.Errorf("target = (%v,%v), want (%v,202)", tgt.X, tgt.Y, 402+step)
	}
	if !f.memory(ant).Exploration.FromTrail {
		t.Error("exploration target should be marked as trail-derived")
	}
}

func TestForage_RandomWaypointRetainedUntilExpired(t *testing.T) {
	f := newColonyFixture(ResetToZero)
	f.addNest(800, 500, 0)
	p := defaultForageParams()
	p.TrailFollowing = false
	f.forage.SetParams(p)
	ant := f.addAgent(480, 320, false)

	if _, err := f.forage.Update(10, tick); err != nil {
		t.Fatal(err)
	}
	first := *f.target(ant)
	if first.Type != components.TargetExploration {
		t.Fatalf("target type = %v, want exploration", first.Type)
	}
	d := distance(480, 320, first.X, first.Y)
	if d < p.ExplorationMinDistance-1e-3 || d > p.ExplorationRadius+1e-3 {
		t.Errorf("waypoint distance %v outside [%v,%v]", d, p.ExplorationMinDistance, p.ExplorationRadius)
	}

	// Not expired, not reached: kept.
	if _, err := f.forage.Update(12, tick); err != nil {
		t.Fatal(err)
	}
	if got := *f.target(ant); got.X != first.X || got.Y != first.Y {
		t.Errorf("waypoint replaced before expiry: %+v -> %+v", first, got)
	}

	// Expired: replaced.
	if _, err := f.forage.Update(10+p.ExplorationTimeout+0.5, tick); err != nil {
		t.Fatal(err)
	}
	if got := f.memory(ant).Exploration.SetAt; got != 10+p.ExplorationTimeout+0.5 {
		t.Errorf("waypoint set at %v, want refresh after expiry", got)
	}
}

func TestForage_RandomWaypointReplacedWhenReached(t *testing.T) {
	f := newColonyFixture(ResetToZero)
	f.addNest(800, 500, 0)
	p := defaultForageParams()
	p.TrailFollowing = false
	f.forage.SetParams(p)
	ant := f.addAgent(480, 320, false)
	f.memory(ant).Exploration = components.ExplorationTarget{Active: true, X: 485, Y: 320, SetAt: 9}

	if _, err := f.forage.Update(10, tick); err != nil {
		t.Fatal(err)
	}
	if got := f.memory(ant).Exploration; got.SetAt != 10 {
		t.Errorf("reached waypoint kept: %+v", got)
	}
}

func TestForage_WaypointsClampedToWorld(t *testing.T) {
	f := newColonyFixture(ResetToZero)
	f.addNest(800, 500, 0)
	p := defaultForageParams()
	p.TrailFollowing = false
	f.forage.SetParams(p)
	ant := f.addAgent(1, 1, false)

	for i := 0; i < 50; i++ {
		now := float64(i) * (p.ExplorationTimeout + 1)
		if _, err := f.forage.Update(now, tick); err != nil {
			t.Fatal(err)
		}
		tgt := f.target(ant)
		if tgt.X < testBounds.MinX || tgt.X > testBounds.MaxX || tgt.Y < testBounds.MinY || tgt.Y > testBounds.MaxY {
			t.Fatalf("waypoint (%v,%v) outside world", tgt.X, tgt.Y)
		}
	}
}

func TestForage_DirectApproachReachesFood(t *testing.T) {
	p := defaultForageParams()
	speed := float32(100)

	for _, d := range []float32{25, 35, 45} {
		f := newColonyFixture(ResetToZero)
		f.addNest(800, 500, 0)
		f.addFood(100+d, 100, 1)
		ant := f.addAgent(100, 100, false)

		limit := int(math.Ceil(float64((d-p.PickupRange)/(speed*tick)))) + 3
		reached := -1
		for i := 0; i < limit; i++ {
			if _, err := f.step(tick); err != nil {
				t.Fatal(err)
			}
			if f.forager(ant).Carrying() {
				reached = i
				break
			}
		}
		if reached < 0 {
			t.Errorf("distance %v: not reached within %d ticks", d, limit)
		}
	}
}

func TestForage_RandomWalkReachesFood(t *testing.T) {
	// Pheromone guidance off: the agent wanders on random waypoints until the
	// food enters detection range, then steers straight to it.
	f := newColonyFixture(ResetToZero)
	small := Bounds{MinX: 0, MinY: 0, MaxX: 300, MaxY: 300}
	f.forage.SetBounds(small)
	f.movement.SetBounds(small)
	p := defaultForageParams()
	p.TrailFollowing = false
	f.forage.SetParams(p)

	f.addNest(10, 10, 0)
	f.addFood(250, 250, 1)
	ant := f.addAgent(20, 20, false)

	// D is about 325; at 100 units/s a direct path takes ~3 s.
	// Allow a generous multiple for the random search.
	const maxTicks = 60 * 120
	for i := 0; i < maxTicks; i++ {
		if _, err := f.step(tick); err != nil {
			t.Fatal(err)
		}
		if f.forager(ant).Carrying() {
			return
		}
	}
	t.Fatalf("agent did not reach food within %d ticks", maxTicks)
}
