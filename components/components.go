// Package components defines ECS components for the colony simulation.
package components

// Position represents an entity's world position.
type Position struct {
	X, Y float32
}

// Velocity represents an entity's velocity in world units per second.
type Velocity struct {
	X, Y float32
}

// AgentID is a stable identifier assigned at creation. ark entity handles are
// recycled after removal, so logs and snapshots use this instead.
type AgentID struct {
	ID uint32
}

// Mobility holds per-agent movement parameters.
type Mobility struct {
	Speed    float32
	IsPlayer bool
}

// RoleState is an agent's current objective.
type RoleState uint8

const (
	FindFood RoleState = iota
	CarryFood
)

func (s RoleState) String() string {
	switch s {
	case FindFood:
		return "find_food"
	case CarryFood:
		return "carry_food"
	default:
		return "unknown"
	}
}

// Forager holds the role-state. State and FoodCarried only change together
// through Pickup and Drop, so CarryFood holds exactly when FoodCarried is 1.
type Forager struct {
	State       RoleState
	FoodCarried uint8
}

// Pickup switches to CarryFood with one unit in hand.
func (f *Forager) Pickup() {
	f.State = CarryFood
	f.FoodCarried = 1
}

// Drop switches back to FindFood with empty hands.
func (f *Forager) Drop() {
	f.State = FindFood
	f.FoodCarried = 0
}

// Carrying reports whether the agent holds food.
func (f *Forager) Carrying() bool {
	return f.State == CarryFood
}

// TargetType identifies what a target point refers to.
type TargetType uint8

const (
	TargetFood TargetType = iota
	TargetNest
	TargetExploration
)

func (t TargetType) String() string {
	switch t {
	case TargetFood:
		return "food"
	case TargetNest:
		return "nest"
	case TargetExploration:
		return "exploration"
	default:
		return "unknown"
	}
}

// Target is the point a non-player agent steers toward.
// Active is false until the forage system writes the first target.
type Target struct {
	X, Y   float32
	Type   TargetType
	Active bool
}

// Age tracks lifetime in age units.
type Age struct {
	Current float32
	Max     float32
}

// Expired reports whether the agent has reached its maximum age.
func (a *Age) Expired() bool {
	return a.Current >= a.Max
}

// ExplorationTarget is the active waypoint used when no food is visible.
type ExplorationTarget struct {
	Active    bool
	X, Y      float32
	SetAt     float64 // Simulated seconds
	FromTrail bool    // Chosen from the pheromone field rather than at random
}

// TrailState is the bookkeeping for pheromone laid between pickup and nest.
type TrailState struct {
	Active           bool
	Started          bool    // At least one deposit made since pickup
	Elapsed          float32 // Seconds since pickup, advanced per deposit
	PickupX, PickupY float32
	PickupTime       float64
}

// Memory is the per-agent side state owned by the forage system. It lives on
// the entity, so removing the agent clears it.
type Memory struct {
	HasPickupAttempt  bool
	LastPickupAttempt float64 // Simulated seconds
	Exploration       ExplorationTarget
	Trail             TrailState
}

// ClearExploration drops the exploration waypoint.
func (m *Memory) ClearExploration() {
	m.Exploration = ExplorationTarget{}
}

// StartTrail records a pickup at (x, y).
func (m *Memory) StartTrail(x, y float32, now float64) {
	m.Trail = TrailState{Active: true, PickupX: x, PickupY: y, PickupTime: now}
}

// EndTrail marks the trail inactive.
func (m *Memory) EndTrail() {
	m.Trail.Active = false
	m.Trail.Started = false
	m.Trail.Elapsed = 0
}

// ActivityKind is a display classification derived from the role-state and motion.
type ActivityKind uint8

const (
	ActivityIdle ActivityKind = iota
	ActivityExploring
	ActivityFollowingTrail
	ActivityApproachingFood
	ActivityCarrying
	ActivityPlayerControlled
)

func (k ActivityKind) String() string {
	switch k {
	case ActivityIdle:
		return "idle"
	case ActivityExploring:
		return "exploring"
	case ActivityFollowingTrail:
		return "following_trail"
	case ActivityApproachingFood:
		return "approaching_food"
	case ActivityCarrying:
		return "carrying"
	case ActivityPlayerControlled:
		return "player"
	default:
		return "unknown"
	}
}

// Activity holds the display classification and ticks spent in it.
type Activity struct {
	Current  ActivityKind
	Previous ActivityKind
	Timer    int32
}

// Food is a food source. Removed when Amount reaches 0.
type Food struct {
	Amount float32
}

// Nest accumulates delivered food.
type Nest struct {
	FoodCount float32
}
