// Package systems contains ECS systems for the colony simulation.
package systems

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/formica/components"
)

// MovementSystem steers agents toward their targets and integrates positions.
type MovementSystem struct {
	filter    *ecs.Filter2[components.Position, components.Velocity]
	mobMap    *ecs.Map1[components.Mobility]
	targetMap *ecs.Map1[components.Target]
	bounds    Bounds
}

// NewMovementSystem creates a movement system over the given world bounds.
func NewMovementSystem(w *ecs.World, bounds Bounds) *MovementSystem {
	return &MovementSystem{
		filter:    ecs.NewFilter2[components.Position, components.Velocity](w),
		mobMap:    ecs.NewMap1[components.Mobility](w),
		targetMap: ecs.NewMap1[components.Target](w),
		bounds:    bounds,
	}
}

// SetBounds replaces the world bounds, e.g. after a resize.
func (s *MovementSystem) SetBounds(b Bounds) {
	s.bounds = b
}

// Bounds returns the current world bounds.
func (s *MovementSystem) Bounds() Bounds {
	return s.bounds
}

// Update runs one movement step.
func (s *MovementSystem) Update(dt float32) {
	query := s.filter.Query()
	for query.Next() {
		pos, vel := query.Get()
		e := query.Entity()

		if s.mobMap.HasAll(e) && s.targetMap.HasAll(e) {
			mob := s.mobMap.Get(e)
			if !mob.IsPlayer {
				Steer(pos, vel, s.targetMap.Get(e), mob.Speed)
			}
		}

		Integrate(pos, vel, s.bounds, dt)
	}
}

// Steer overwrites velocity with the unit vector toward an active target
// scaled by speed. Velocity is left alone when the agent sits on the target.
func Steer(pos *components.Position, vel *components.Velocity, tgt *components.Target, speed float32) {
	if !tgt.Active {
		return
	}
	dx := tgt.X - pos.X
	dy := tgt.Y - pos.Y
	dist := velocityMagnitude(dx, dy)
	if dist <= 0 {
		return
	}
	vel.X = dx / dist * speed
	vel.Y = dy / dist * speed
}

// Integrate advances position by velocity*dt and clamps each axis to the
// bounds. A clamped axis has its velocity zeroed.
func Integrate(pos *components.Position, vel *components.Velocity, b Bounds, dt float32) {
	pos.X += vel.X * dt
	pos.Y += vel.Y * dt

	if pos.X < b.MinX {
		pos.X = b.MinX
		vel.X = 0
	} else if pos.X > b.MaxX {
		pos.X = b.MaxX
		vel.X = 0
	}
	if pos.Y < b.MinY {
		pos.Y = b.MinY
		vel.Y = 0
	} else if pos.Y > b.MaxY {
		pos.Y = b.MaxY
		vel.Y = 0
	}
}
