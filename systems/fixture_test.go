package systems

import (
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/formica/components"
	"github.com/pthm-cable/formica/config"
)

// colonyFixture is a small world wired the same way the game wires it.
type colonyFixture struct {
	w        *ecs.World
	field    *PheromoneField
	nest     *NestAccounting
	forage   *ForageSystem
	movement *MovementSystem
	aging    *AgingSystem

	agentMap *ecs.Map9[
		components.Position,
		components.Velocity,
		components.AgentID,
		components.Mobility,
		components.Forager,
		components.Target,
		components.Age,
		components.Memory,
		components.Activity,
	]
	foodMap  *ecs.Map2[components.Position, components.Food]
	nestMap  *ecs.Map2[components.Position, components.Nest]
	nestComp *ecs.Map1[components.Nest]

	nextID  uint32
	spawned []ecs.Entity
	now     float64
}

func defaultForageParams() ForageParams {
	cfg, err := config.Defaults()
	if err != nil {
		panic(err)
	}
	return ForageParamsFromConfig(cfg)
}

func newColonyFixture(policy ResetPolicy) *colonyFixture {
	w := ecs.NewWorld()
	f := &colonyFixture{
		w: w,
		agentMap: ecs.NewMap9[
			components.Position,
			components.Velocity,
			components.AgentID,
			components.Mobility,
			components.Forager,
			components.Target,
			components.Age,
			components.Memory,
			components.Activity,
		](w),
		foodMap:  ecs.NewMap2[components.Position, components.Food](w),
		nestMap:  ecs.NewMap2[components.Position, components.Nest](w),
		nestComp: ecs.NewMap1[components.Nest](w),
	}
	f.field = NewPheromoneField(960, 640, 0, 0, 0.25, testParams())
	f.nest = NewNestAccounting(5, policy, f)
	f.forage = NewForageSystem(w, f.field, FlatDeposit{Rate: 1}, f.nest, rand.New(rand.NewSource(7)), defaultForageParams(), testBounds)
	f.movement = NewMovementSystem(w, testBounds)
	f.aging = NewAgingSystem(w, 1)
	return f
}

// SpawnAgent implements AgentFactory.
func (f *colonyFixture) SpawnAgent(x, y float32) ecs.Entity {
	e := f.addAgent(x, y, false)
	f.spawned = append(f.spawned, e)
	return e
}

func (f *colonyFixture) addAgent(x, y float32, player bool) ecs.Entity {
	f.nextID++
	return f.agentMap.NewEntity(
		&components.Position{X: x, Y: y},
		&components.Velocity{},
		&components.AgentID{ID: f.nextID},
		&components.Mobility{Speed: 100, IsPlayer: player},
		&components.Forager{},
		&components.Target{},
		&components.Age{Current: 0, Max: 60},
		&components.Memory{},
		&components.Activity{},
	)
}

func (f *colonyFixture) addFood(x, y, amount float32) ecs.Entity {
	return f.foodMap.NewEntity(&components.Position{X: x, Y: y}, &components.Food{Amount: amount})
}

func (f *colonyFixture) addNest(x, y, count float32) ecs.Entity {
	return f.nestMap.NewEntity(&components.Position{X: x, Y: y}, &components.Nest{FoodCount: count})
}

func (f *colonyFixture) agent(e ecs.Entity) (
	*components.Position,
	*components.Velocity,
	*components.AgentID,
	*components.Mobility,
	*components.Forager,
	*components.Target,
	*components.Age,
	*components.Memory,
	*components.Activity,
) {
	return f.agentMap.Get(e)
}

func (f *colonyFixture) forager(e ecs.Entity) *components.Forager {
	_, _, _, _, fg, _, _, _, _ := f.agentMap.Get(e)
	return fg
}

func (f *colonyFixture) target(e ecs.Entity) *components.Target {
	_, _, _, _, _, tgt, _, _, _ := f.agentMap.Get(e)
	return tgt
}

func (f *colonyFixture) memory(e ecs.Entity) *components.Memory {
	_, _, _, _, _, _, _, mem, _ := f.agentMap.Get(e)
	return mem
}

// step runs movement then forage, advancing the fixture clock by dt.
func (f *colonyFixture) step(dt float32) (ForageEvents, error) {
	f.now += float64(dt)
	f.movement.Update(dt)
	return f.forage.Update(f.now, dt)
}
