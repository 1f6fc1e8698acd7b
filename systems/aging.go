package systems

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/formica/components"
)

// AgingSystem advances agent age and removes expired non-player agents.
type AgingSystem struct {
	world  *ecs.World
	filter *ecs.Filter2[components.Age, components.Mobility]
	idMap  *ecs.Map1[components.AgentID]

	Rate float32 // Age units per second

	expired []ecs.Entity
}

// NewAgingSystem creates an aging system advancing age by rate per second.
func NewAgingSystem(w *ecs.World, rate float32) *AgingSystem {
	return &AgingSystem{
		world:   w,
		filter:  ecs.NewFilter2[components.Age, components.Mobility](w),
		idMap:   ecs.NewMap1[components.AgentID](w),
		Rate:    rate,
		expired: make([]ecs.Entity, 0, 16),
	}
}

// Update ages every agent by Rate*dt. Player agents are clamped at their max
// age and never removed. Returns the ids of removed agents.
func (s *AgingSystem) Update(dt float32) []uint32 {
	s.expired = s.expired[:0]

	query := s.filter.Query()
	for query.Next() {
		age, mob := query.Get()
		age.Current += s.Rate * dt
		if !age.Expired() {
			continue
		}
		if mob.IsPlayer {
			age.Current = age.Max
			continue
		}
		s.expired = append(s.expired, query.Entity())
	}

	if len(s.expired) == 0 {
		return nil
	}
	removed := make([]uint32, 0, len(s.expired))
	for _, e := range s.expired {
		if s.idMap.HasAll(e) {
			removed = append(removed, s.idMap.Get(e).ID)
		}
		s.world.RemoveEntity(e)
	}
	return removed
}
