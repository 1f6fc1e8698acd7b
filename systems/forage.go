package systems

import (
	"math"
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/formica/components"
	"github.com/pthm-cable/formica/config"
)

// PheromoneAccess is the part of the pheromone field the forage system needs.
type PheromoneAccess interface {
	Deposit(x, y, strength float32)
	CellOf(x, y float32) (int, int)
	SampleCell(gx, gy int) float32
}

// ForageParams holds the forage state machine tuning.
type ForageParams struct {
	DetectionRange         float32
	PickupRange            float32
	PickupTimeout          float64 // Simulated seconds
	NestRadius             float32
	ExplorationRadius      float32
	ExplorationMinDistance float32
	ExplorationTimeout     float64 // Simulated seconds
	ExplorationReached     float32
	TrailFollowing         bool
	TrailStep              float32
}

// ForageParamsFromConfig extracts forage parameters.
func ForageParamsFromConfig(cfg *config.Config) ForageParams {
	f := cfg.Forage
	return ForageParams{
		DetectionRange:         float32(f.DetectionRange),
		PickupRange:            float32(f.PickupRange),
		PickupTimeout:          f.PickupTimeout,
		NestRadius:             float32(f.NestRadius),
		ExplorationRadius:      float32(f.ExplorationRadius),
		ExplorationMinDistance: float32(f.ExplorationMinDistance),
		ExplorationTimeout:     f.ExplorationTargetTimeout,
		ExplorationReached:     float32(f.ExplorationTargetReachedDistance),
		TrailFollowing:         f.TrailFollowing,
		TrailStep:              float32(f.TrailStep),
	}
}

// ForageEvents counts what happened during one forage pass.
type ForageEvents struct {
	Pickups    int
	Deliveries int
	Births     int
	FoodEaten  int // Food items depleted and removed
}

// foodRef is a per-tick snapshot of a food item. amount tracks depletion
// within the tick so later agents see it.
type foodRef struct {
	e      ecs.Entity
	x, y   float32
	amount float32
}

// neighborOffsets are the 8 grid neighbors probed for trail following, in
// fixed order so ties resolve deterministically.
var neighborOffsets = [8][2]int{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

// ForageSystem runs the per-agent FindFood/CarryFood state machine.
type ForageSystem struct {
	world *ecs.World

	agents *ecs.Filter5[
		components.Position,
		components.Mobility,
		components.Forager,
		components.Target,
		components.Memory,
	]
	foodFilter *ecs.Filter2[components.Position, components.Food]
	nestFilter *ecs.Filter2[components.Position, components.Nest]
	foodMap    *ecs.Map1[components.Food]

	field   PheromoneAccess
	deposit DepositPolicy
	nest    *NestAccounting
	rng     *rand.Rand
	params  ForageParams
	bounds  Bounds

	foods      []foodRef
	grid       *FoodGrid
	candidates []int32
}

// NewForageSystem creates a forage system wired to its collaborators.
func NewForageSystem(
	w *ecs.World,
	field PheromoneAccess,
	deposit DepositPolicy,
	nest *NestAccounting,
	rng *rand.Rand,
	params ForageParams,
	bounds Bounds,
) *ForageSystem {
	return &ForageSystem{
		world: w,
		agents: ecs.NewFilter5[
			components.Position,
			components.Mobility,
			components.Forager,
			components.Target,
			components.Memory,
		](w),
		foodFilter: ecs.NewFilter2[components.Position, components.Food](w),
		nestFilter: ecs.NewFilter2[components.Position, components.Nest](w),
		foodMap:    ecs.NewMap1[components.Food](w),
		field:      field,
		deposit:    deposit,
		nest:       nest,
		rng:        rng,
		params:     params,
		bounds:     bounds,
		foods:      make([]foodRef, 0, 64),
		grid:       NewFoodGrid(bounds, params.DetectionRange),
	}
}

// SetBounds replaces the world bounds used to clamp exploration targets.
func (s *ForageSystem) SetBounds(b Bounds) {
	s.bounds = b
}

// SetParams replaces the tuning parameters.
func (s *ForageSystem) SetParams(p ForageParams) {
	s.params = p
}

// Params returns the tuning parameters.
func (s *ForageSystem) Params() ForageParams {
	return s.params
}

// Update runs the state machine for every agent. now is the simulated time
// in seconds. Returns ErrNoNest if a carrying agent is processed while no nest
// exists; other agents in the same pass are still processed.
func (s *ForageSystem) Update(now float64, dt float32) (ForageEvents, error) {
	var ev ForageEvents
	var err error

	s.snapshotFood()

	var nestPos components.Position
	var nest *components.Nest
	nq := s.nestFilter.Query()
	for nq.Next() {
		p, n := nq.Get()
		nestPos, nest = *p, n
		nq.Close()
		break
	}

	query := s.agents.Query()
	for query.Next() {
		pos, mob, fg, tgt, mem := query.Get()

		if fg.Carrying() {
			if nest == nil {
				err = ErrNoNest
				continue
			}
			s.carry(pos, mob, fg, tgt, mem, &nestPos, nest, dt, &ev)
			continue
		}
		s.findFood(pos, mob, fg, tgt, mem, now, &ev)
	}

	// Structural changes happen after iteration.
	for _, f := range s.foods {
		if f.amount <= 0 && s.world.Alive(f.e) {
			s.world.RemoveEntity(f.e)
			ev.FoodEaten++
		}
	}
	if s.nest != nil {
		ev.Births += len(s.nest.Commit())
	}

	return ev, err
}

func (s *ForageSystem) snapshotFood() {
	s.foods = s.foods[:0]
	s.grid.Reset(s.bounds, s.params.DetectionRange)
	query := s.foodFilter.Query()
	for query.Next() {
		pos, food := query.Get()
		s.grid.Insert(len(s.foods), pos.X, pos.Y)
		s.foods = append(s.foods, foodRef{e: query.Entity(), x: pos.X, y: pos.Y, amount: food.Amount})
	}
}

// nearestFood returns the index of the closest food with amount left within
// DetectionRange, or -1. Ties keep the first item in query order.
func (s *ForageSystem) nearestFood(x, y float32) (int, float32) {
	best := -1
	bestSq := float32(math.MaxFloat32)
	s.candidates = s.grid.QueryInto(s.candidates[:0], x, y, s.params.DetectionRange)
	for _, c := range s.candidates {
		i := int(c)
		f := &s.foods[i]
		if f.amount <= 0 {
			continue
		}
		d := distanceSq(x, y, f.x, f.y)
		if d < bestSq || (d == bestSq && i < best) {
			best, bestSq = i, d
		}
	}
	if best < 0 {
		return -1, 0
	}
	return best, float32(math.Sqrt(float64(bestSq)))
}

func (s *ForageSystem) findFood(
	pos *components.Position,
	mob *components.Mobility,
	fg *components.Forager,
	tgt *components.Target,
	mem *components.Memory,
	now float64,
	ev *ForageEvents,
) {
	idx, dist := s.nearestFood(pos.X, pos.Y)
	if idx >= 0 && dist < s.params.DetectionRange {
		food := &s.foods[idx]
		if dist < s.params.PickupRange {
			if s.cooledDown(mem, now) {
				s.pickup(pos, fg, mem, food, now)
				ev.Pickups++
				return
			}
			// Cooling down next to food: keep exploring.
		} else if !mob.IsPlayer {
			*tgt = components.Target{X: food.x, Y: food.y, Type: components.TargetFood, Active: true}
			return
		}
	}

	if mob.IsPlayer {
		return
	}
	s.explore(pos, tgt, mem, now)
}

func (s *ForageSystem) cooledDown(mem *components.Memory, now float64) bool {
	return !mem.HasPickupAttempt || now-mem.LastPickupAttempt > s.params.PickupTimeout
}

func (s *ForageSystem) pickup(
	pos *components.Position,
	fg *components.Forager,
	mem *components.Memory,
	food *foodRef,
	now float64,
) {
	fg.Pickup()
	food.amount--
	if s.foodMap.HasAll(food.e) {
		s.foodMap.Get(food.e).Amount = food.amount
	}
	mem.HasPickupAttempt = true
	mem.LastPickupAttempt = now
	mem.ClearExploration()
	mem.StartTrail(pos.X, pos.Y, now)
}

// explore writes an exploration target: uphill on the pheromone field when
// any neighbor cell is positive, otherwise a retained or fresh random waypoint.
func (s *ForageSystem) explore(
	pos *components.Position,
	tgt *components.Target,
	mem *components.Memory,
	now float64,
) {
	if s.params.TrailFollowing {
		if x, y, ok := s.trailWaypoint(pos.X, pos.Y); ok {
			mem.Exploration = components.ExplorationTarget{Active: true, X: x, Y: y, SetAt: now, FromTrail: true}
			*tgt = components.Target{X: x, Y: y, Type: components.TargetExploration, Active: true}
			return
		}
	}

	ex := &mem.Exploration
	if s.needsNewWaypoint(pos, ex, now) {
		x, y := s.randomWaypoint(pos.X, pos.Y)
		*ex = components.ExplorationTarget{Active: true, X: x, Y: y, SetAt: now}
	}
	*tgt = components.Target{X: ex.X, Y: ex.Y, Type: components.TargetExploration, Active: true}
}

func (s *ForageSystem) needsNewWaypoint(pos *components.Position, ex *components.ExplorationTarget, now float64) bool {
	if !ex.Active {
		return true
	}
	if now-ex.SetAt > s.params.ExplorationTimeout {
		return true
	}
	return distance(pos.X, pos.Y, ex.X, ex.Y) < s.params.ExplorationReached
}

// trailWaypoint probes the 8 neighbor cells and returns a point TrailStep
// away in the direction of the strongest positive one.
func (s *ForageSystem) trailWaypoint(x, y float32) (float32, float32, bool) {
	gx, gy := s.field.CellOf(x, y)
	var best float32
	bestDX, bestDY := 0, 0
	for _, off := range neighborOffsets {
		v := s.field.SampleCell(gx+off[0], gy+off[1])
		if v > best {
			best = v
			bestDX, bestDY = off[0], off[1]
		}
	}
	if best <= 0 {
		return 0, 0, false
	}
	dx, dy := float32(bestDX), float32(bestDY)
	n := velocityMagnitude(dx, dy)
	tx, ty := s.bounds.Clamp(x+dx/n*s.params.TrailStep, y+dy/n*s.params.TrailStep)
	return tx, ty, true
}

// randomWaypoint picks a uniform direction and a distance in
// [ExplorationMinDistance, ExplorationRadius], clamped to the world.
func (s *ForageSystem) randomWaypoint(x, y float32) (float32, float32) {
	angle := s.rng.Float64() * 2 * math.Pi
	span := s.params.ExplorationRadius - s.params.ExplorationMinDistance
	d := s.params.ExplorationMinDistance + float32(s.rng.Float64())*span
	return s.bounds.Clamp(
		x+float32(math.Cos(angle))*d,
		y+float32(math.Sin(angle))*d,
	)
}

func (s *ForageSystem) carry(
	pos *components.Position,
	mob *components.Mobility,
	fg *components.Forager,
	tgt *components.Target,
	mem *components.Memory,
	nestPos *components.Position,
	nest *components.Nest,
	dt float32,
	ev *ForageEvents,
) {
	if !mob.IsPlayer {
		*tgt = components.Target{X: nestPos.X, Y: nestPos.Y, Type: components.TargetNest, Active: true}
		mem.ClearExploration()
	}

	if s.deposit != nil {
		s.field.Deposit(pos.X, pos.Y, s.deposit.Amount(&mem.Trail, dt))
		mem.Trail.Started = true
		mem.Trail.Elapsed += dt
	}

	if distance(pos.X, pos.Y, nestPos.X, nestPos.Y) >= s.params.NestRadius {
		return
	}
	fg.Drop()
	mem.EndTrail()
	ev.Deliveries++
	if s.nest != nil {
		s.nest.Deliver(nest, nestPos.X, nestPos.Y)
	} else {
		nest.FoodCount++
	}
}
