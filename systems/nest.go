package systems

import (
	"errors"
	"fmt"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/formica/components"
	"github.com/pthm-cable/formica/config"
)

// ErrNoNest is returned when a carrying agent is processed and no nest exists.
var ErrNoNest = errors.New("no nest entity in world")

// ResetPolicy decides what happens to the nest food count after a spawn.
type ResetPolicy uint8

const (
	// ResetToZero sets the count back to 0.
	ResetToZero ResetPolicy = iota
	// DecrementByCost subtracts the spawn cost and keeps the remainder.
	DecrementByCost
)

// ParseResetPolicy converts a config name into a ResetPolicy.
func ParseResetPolicy(name string) (ResetPolicy, error) {
	switch name {
	case config.ResetToZero:
		return ResetToZero, nil
	case config.DecrementByCost:
		return DecrementByCost, nil
	}
	return 0, fmt.Errorf("unknown reset policy %q", name)
}

// AgentFactory creates a fresh non-player agent.
type AgentFactory interface {
	SpawnAgent(x, y float32) ecs.Entity
}

// NestAccounting credits deliveries and triggers reproduction at the threshold.
// Spawns are queued so they can be created after query iteration ends.
type NestAccounting struct {
	SpawnCost float32
	Policy    ResetPolicy

	factory AgentFactory
	queued  []spawnRequest
}

type spawnRequest struct {
	x, y float32
}

// NewNestAccounting creates nest accounting that spawns through factory.
func NewNestAccounting(spawnCost float32, policy ResetPolicy, factory AgentFactory) *NestAccounting {
	return &NestAccounting{
		SpawnCost: spawnCost,
		Policy:    policy,
		factory:   factory,
	}
}

// Deliver adds one unit to the nest at (x, y) and queues at most one spawn if
// the count reaches the spawn cost. Returns whether a spawn was queued.
func (n *NestAccounting) Deliver(nest *components.Nest, x, y float32) bool {
	nest.FoodCount++
	if nest.FoodCount < n.SpawnCost {
		return false
	}
	switch n.Policy {
	case DecrementByCost:
		nest.FoodCount -= n.SpawnCost
	default:
		nest.FoodCount = 0
	}
	n.queued = append(n.queued, spawnRequest{x: x, y: y})
	return true
}

// Pending returns the number of queued spawns.
func (n *NestAccounting) Pending() int {
	return len(n.queued)
}

// Commit creates every queued agent and returns the new entities.
// Must not be called while a query is iterating.
func (n *NestAccounting) Commit() []ecs.Entity {
	if len(n.queued) == 0 {
		return nil
	}
	spawned := make([]ecs.Entity, 0, len(n.queued))
	for _, req := range n.queued {
		spawned = append(spawned, n.factory.SpawnAgent(req.x, req.y))
	}
	n.queued = n.queued[:0]
	return spawned
}
