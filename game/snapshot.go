package game

import "github.com/pthm-cable/formica/components"

// AgentView is a read-only copy of one agent.
type AgentView struct {
	ID       uint32
	X, Y     float32
	VX, VY   float32
	State    components.RoleState
	Activity components.ActivityKind
	Timer    int32
	Age      float32
	MaxAge   float32
	IsPlayer bool
	Target   components.Target
}

// FoodView is a read-only copy of one food item.
type FoodView struct {
	X, Y   float32
	Amount float32
}

// NestView is a read-only copy of the nest.
type NestView struct {
	X, Y      float32
	FoodCount float32
}

// Snapshot is the world state between two ticks.
type Snapshot struct {
	Tick    int32
	SimTime float64
	Agents  []AgentView
	Foods   []FoodView
	Nest    *NestView
}

// HUDState holds the values shown in the viewer's status line.
type HUDState struct {
	ColonyFood    float32
	FoodInWorld   float32
	FoodItems     int
	AntCount      int
	Carrying      int
	Speed         float64
	SpawnInterval float64
	Tick          int32
	SimTime       float64
	Paused        bool
}

// Snapshot copies agents, food and the nest out of the world.
func (g *Game) Snapshot() Snapshot {
	s := Snapshot{Tick: g.tick, SimTime: g.simTime}

	query := g.agentFilter.Query()
	for query.Next() {
		pos, vel, id, mob, fg, tgt, age, act := query.Get()
		s.Agents = append(s.Agents, AgentView{
			ID:       id.ID,
			X:        pos.X,
			Y:        pos.Y,
			VX:       vel.X,
			VY:       vel.Y,
			State:    fg.State,
			Activity: act.Current,
			Timer:    act.Timer,
			Age:      age.Current,
			MaxAge:   age.Max,
			IsPlayer: mob.IsPlayer,
			Target:   *tgt,
		})
	}

	fq := g.foodFilter.Query()
	for fq.Next() {
		pos, food := fq.Get()
		s.Foods = append(s.Foods, FoodView{X: pos.X, Y: pos.Y, Amount: food.Amount})
	}

	nq := g.nestFilter.Query()
	for nq.Next() {
		pos, nest := nq.Get()
		s.Nest = &NestView{X: pos.X, Y: pos.Y, FoodCount: nest.FoodCount}
		nq.Close()
		break
	}

	return s
}

// HUD summarizes the colony for display.
func (g *Game) HUD() HUDState {
	h := HUDState{
		Speed:         g.cfg.Physics.SpeedMultiplier,
		SpawnInterval: g.cfg.Food.SpawnInterval,
		Tick:          g.tick,
		SimTime:       g.simTime,
		Paused:        g.paused,
	}

	query := g.agentFilter.Query()
	for query.Next() {
		_, _, _, _, fg, _, _, _ := query.Get()
		h.AntCount++
		if fg.Carrying() {
			h.Carrying++
		}
	}

	fq := g.foodFilter.Query()
	for fq.Next() {
		_, food := fq.Get()
		h.FoodItems++
		h.FoodInWorld += food.Amount
	}

	nq := g.nestFilter.Query()
	for nq.Next() {
		_, nest := nq.Get()
		h.ColonyFood = nest.FoodCount
		nq.Close()
		break
	}

	return h
}
