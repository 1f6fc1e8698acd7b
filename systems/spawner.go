package systems

import (
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/formica/config"
)

// FoodCreator places a food item in the world.
type FoodCreator interface {
	CreateFood(x, y float32) ecs.Entity
}

// FoodSpawner drops food on a fixed interval, around cluster points when
// configured or uniformly over the world otherwise.
type FoodSpawner struct {
	Interval float32 // Seconds; 0 disables
	Spread   float32 // Gaussian sigma around a cluster point

	clusters []config.PointConfig
	bounds   Bounds
	creator  FoodCreator
	rng      *rand.Rand

	acc float32
}

// NewFoodSpawner creates a spawner from the food config.
func NewFoodSpawner(cfg config.FoodConfig, bounds Bounds, creator FoodCreator, rng *rand.Rand) *FoodSpawner {
	return &FoodSpawner{
		Interval: float32(cfg.SpawnInterval),
		Spread:   float32(cfg.ClusterSpread),
		clusters: append([]config.PointConfig(nil), cfg.Clusters...),
		bounds:   bounds,
		creator:  creator,
		rng:      rng,
	}
}

// SetBounds replaces the world bounds.
func (s *FoodSpawner) SetBounds(b Bounds) {
	s.bounds = b
}

// Update advances the timer and spawns every food item that came due.
// Returns how many were spawned.
func (s *FoodSpawner) Update(dt float32) int {
	if s.Interval <= 0 {
		return 0
	}
	s.acc += dt
	n := 0
	for s.acc >= s.Interval {
		s.acc -= s.Interval
		x, y := s.Point()
		s.creator.CreateFood(x, y)
		n++
	}
	return n
}

// Point picks the next spawn location.
func (s *FoodSpawner) Point() (float32, float32) {
	if len(s.clusters) == 0 {
		return s.bounds.MinX + s.rng.Float32()*(s.bounds.MaxX-s.bounds.MinX),
			s.bounds.MinY + s.rng.Float32()*(s.bounds.MaxY-s.bounds.MinY)
	}
	c := s.clusters[s.rng.Intn(len(s.clusters))]
	return s.bounds.Clamp(
		float32(c.X)+float32(s.rng.NormFloat64())*s.Spread,
		float32(c.Y)+float32(s.rng.NormFloat64())*s.Spread,
	)
}
