package systems

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/formica/components"
)

// ActivitySystem classifies what each agent is doing for display.
type ActivitySystem struct {
	filter *ecs.Filter6[
		components.Velocity,
		components.Mobility,
		components.Forager,
		components.Target,
		components.Memory,
		components.Activity,
	]
}

// NewActivitySystem creates an activity system.
func NewActivitySystem(w *ecs.World) *ActivitySystem {
	return &ActivitySystem{
		filter: ecs.NewFilter6[
			components.Velocity,
			components.Mobility,
			components.Forager,
			components.Target,
			components.Memory,
			components.Activity,
		](w),
	}
}

// Update reclassifies every agent and advances the per-activity tick timer.
func (s *ActivitySystem) Update() {
	query := s.filter.Query()
	for query.Next() {
		vel, mob, fg, tgt, mem, act := query.Get()
		next := Classify(vel, mob, fg, tgt, mem)
		if next != act.Current {
			act.Previous = act.Current
			act.Current = next
			act.Timer = 0
			continue
		}
		act.Timer++
	}
}

// Classify derives the display activity from role-state and motion.
func Classify(
	vel *components.Velocity,
	mob *components.Mobility,
	fg *components.Forager,
	tgt *components.Target,
	mem *components.Memory,
) components.ActivityKind {
	switch {
	case mob.IsPlayer:
		return components.ActivityPlayerControlled
	case fg.Carrying():
		return components.ActivityCarrying
	case vel.X == 0 && vel.Y == 0:
		return components.ActivityIdle
	case tgt.Active && tgt.Type == components.TargetFood:
		return components.ActivityApproachingFood
	case mem.Exploration.Active && mem.Exploration.FromTrail:
		return components.ActivityFollowingTrail
	case mem.Exploration.Active:
		return components.ActivityExploring
	default:
		return components.ActivityIdle
	}
}
