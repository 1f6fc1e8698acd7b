package game

import (
	"log/slog"
	"math"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/formica/components"
)

// spawnInitialColony creates the nest, the starting agents, the player and
// the initial food.
func (g *Game) spawnInitialColony() {
	cfg := g.cfg

	nx, ny := g.bounds().Clamp(float32(cfg.Nest.X), float32(cfg.Nest.Y))
	g.CreateNest(nx, ny)

	maxAge := float32(cfg.Ant.MaxAge)
	radius := float64(cfg.Ant.SpawnRadius)
	for i := 0; i < cfg.Ant.InitialCount; i++ {
		angle := g.rng.Float64() * 2 * math.Pi
		dist := g.rng.Float64() * radius
		x := nx + float32(math.Cos(angle)*dist)
		y := ny + float32(math.Sin(angle)*dist)
		// Jitter initial ages so the founders do not all expire together
		age := g.rng.Float32() * float32(cfg.Ant.InitialAgeJitter) * maxAge
		g.spawnAgent(x, y, age, false)
	}

	if cfg.Ant.Player {
		g.spawnAgent(nx+float32(cfg.Forage.NestRadius)*2, ny, 0, true)
	}

	b := g.bounds()
	for i := 0; i < cfg.Food.InitialCount; i++ {
		x := b.MinX + g.rng.Float32()*(b.MaxX-b.MinX)
		y := b.MinY + g.rng.Float32()*(b.MaxY-b.MinY)
		g.CreateFood(x, y)
	}

	slog.Info("colony_spawn",
		"seed", g.rngSeed,
		"agents", cfg.Ant.InitialCount,
		"player", cfg.Ant.Player,
		"food", cfg.Food.InitialCount,
		"nest_x", nx,
		"nest_y", ny,
	)
}

// SpawnAgent creates a newborn non-player agent at (x, y). It implements
// systems.AgentFactory for nest reproduction.
func (g *Game) SpawnAgent(x, y float32) ecs.Entity {
	return g.spawnAgent(x, y, 0, false)
}

func (g *Game) spawnAgent(x, y, age float32, player bool) ecs.Entity {
	cfg := g.cfg
	g.nextID++

	x, y = g.bounds().Clamp(x, y)
	pos := components.Position{X: x, Y: y}
	vel := components.Velocity{}
	id := components.AgentID{ID: g.nextID}
	mob := components.Mobility{Speed: float32(cfg.Ant.Speed), IsPlayer: player}
	fg := components.Forager{}
	tgt := components.Target{}
	ag := components.Age{Current: age, Max: float32(cfg.Ant.MaxAge)}
	mem := components.Memory{}
	act := components.Activity{}
	if player {
		act.Current = components.ActivityPlayerControlled
	}

	return g.agentMap.NewEntity(&pos, &vel, &id, &mob, &fg, &tgt, &ag, &mem, &act)
}

// CreateFood places a food item with the configured amount, clamped to the
// world bounds. It implements systems.FoodCreator.
func (g *Game) CreateFood(x, y float32) ecs.Entity {
	x, y = g.bounds().Clamp(x, y)
	pos := components.Position{X: x, Y: y}
	food := components.Food{Amount: float32(g.cfg.Food.Amount)}
	return g.foodMap.NewEntity(&pos, &food)
}

// AddFood places food from outside the tick loop and counts it as spawned.
func (g *Game) AddFood(x, y float32) ecs.Entity {
	g.collector.RecordFoodSpawned(1)
	return g.CreateFood(x, y)
}

// CreateNest places the nest at (x, y), clamped to the world. The nest is a
// singleton: if one exists it is moved and keeps its store, otherwise a new
// nest with an empty store is created.
func (g *Game) CreateNest(x, y float32) ecs.Entity {
	x, y = g.bounds().Clamp(x, y)

	query := g.nestFilter.Query()
	for query.Next() {
		pos, _ := query.Get()
		pos.X, pos.Y = x, y
		e := query.Entity()
		query.Close()
		return e
	}

	pos := components.Position{X: x, Y: y}
	nest := components.Nest{}
	return g.nestMap.NewEntity(&pos, &nest)
}

// RemoveNests deletes every nest entity. Carrying agents then report
// systems.ErrNoNest on the next step.
func (g *Game) RemoveNests() int {
	var nests []ecs.Entity
	query := g.nestFilter.Query()
	for query.Next() {
		nests = append(nests, query.Entity())
	}
	for _, e := range nests {
		g.world.RemoveEntity(e)
	}
	return len(nests)
}
