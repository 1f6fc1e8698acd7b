// Package game drives the colony simulation: it owns the ECS world, wires the
// systems together and runs them in a fixed phase order.
package game

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/formica/components"
	"github.com/pthm-cable/formica/config"
	"github.com/pthm-cable/formica/systems"
	"github.com/pthm-cable/formica/telemetry"
)

// Options configures a Game.
type Options struct {
	Config         *config.Config // nil = config.Cfg(); the game keeps its own copy
	Seed           int64          // 0 = time-based
	LogStats       bool
	StatsWindowSec float64 // 0 = config value
	OutputDir      string  // empty disables CSV output
	StepsPerUpdate int     // Headless ticks per UpdateHeadless call
	StatsCallback  func(telemetry.WindowStats)
}

// Game holds the complete simulation state.
type Game struct {
	cfg     *config.Config
	world   *ecs.World
	rng     *rand.Rand
	rngSeed int64

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
	agentFilter *ecs.Filter8[
		components.Position,
		components.Velocity,
		components.AgentID,
		components.Mobility,
		components.Forager,
		components.Target,
		components.Age,
		components.Activity,
	]
	playerFilter *ecs.Filter2[components.Velocity, components.Mobility]
	foodMap      *ecs.Map2[components.Position, components.Food]
	foodFilter   *ecs.Filter2[components.Position, components.Food]
	nestMap      *ecs.Map2[components.Position, components.Nest]
	nestFilter   *ecs.Filter2[components.Position, components.Nest]

	// Systems
	field    *systems.PheromoneField
	nest     *systems.NestAccounting
	movement *systems.MovementSystem
	forage   *systems.ForageSystem
	aging    *systems.AgingSystem
	activity *systems.ActivitySystem
	spawner  *systems.FoodSpawner

	// Telemetry
	collector        *telemetry.Collector
	perfCollector    *telemetry.PerfCollector
	bookmarkDetector *telemetry.BookmarkDetector
	outputManager    *telemetry.OutputManager
	logStats         bool
	statsCallback    func(telemetry.WindowStats)

	// State
	tick           int32
	simTime        float64
	stepCarry      float64
	stepsPerUpdate int
	paused         bool
	haltErr        error
	nextID         uint32
}

// NewGameWithOptions creates a colony from the given options: a nest, the
// initial agents and food, and an optional player agent.
func NewGameWithOptions(opts Options) (*Game, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Cfg()
	}
	// Speed changes and resizes mutate the game's config, never the caller's.
	cfg = cfg.Clone()

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	statsWindow := cfg.Telemetry.StatsWindow
	if opts.StatsWindowSec > 0 {
		statsWindow = opts.StatsWindowSec
	}

	stepsPerUpdate := opts.StepsPerUpdate
	if stepsPerUpdate < 1 {
		stepsPerUpdate = 1
	}

	world := ecs.NewWorld()
	g := &Game{
		cfg:     cfg,
		world:   world,
		rng:     rand.New(rand.NewSource(seed)),
		rngSeed: seed,
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
		](world),
		agentFilter: ecs.NewFilter8[
			components.Position,
			components.Velocity,
			components.AgentID,
			components.Mobility,
			components.Forager,
			components.Target,
			components.Age,
			components.Activity,
		](world),
		playerFilter:     ecs.NewFilter2[components.Velocity, components.Mobility](world),
		foodMap:          ecs.NewMap2[components.Position, components.Food](world),
		foodFilter:       ecs.NewFilter2[components.Position, components.Food](world),
		nestMap:          ecs.NewMap2[components.Position, components.Nest](world),
		nestFilter:       ecs.NewFilter2[components.Position, components.Nest](world),
		collector:        telemetry.NewCollector(statsWindow, cfg.Derived.DT32),
		perfCollector:    telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow),
		bookmarkDetector: telemetry.NewBookmarkDetector(10),
		logStats:         opts.LogStats,
		statsCallback:    opts.StatsCallback,
		stepsPerUpdate:   stepsPerUpdate,
	}

	if err := g.wireSystems(); err != nil {
		return nil, err
	}

	om, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		g.field.Close()
		return nil, err
	}
	g.outputManager = om
	if err := om.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config", "error", err)
	}

	g.spawnInitialColony()

	return g, nil
}

// wireSystems builds the systems and injects their collaborators.
func (g *Game) wireSystems() error {
	cfg := g.cfg
	bounds := g.bounds()

	field, err := systems.NewPheromoneFieldFromConfig(cfg)
	if err != nil {
		return err
	}
	g.field = field

	policy, err := systems.ParseResetPolicy(cfg.Nest.ResetPolicy)
	if err != nil {
		field.Close()
		return err
	}
	deposit, err := systems.NewDepositPolicy(cfg)
	if err != nil {
		field.Close()
		return err
	}

	g.nest = systems.NewNestAccounting(float32(cfg.Nest.SpawnCost), policy, g)
	g.movement = systems.NewMovementSystem(g.world, bounds)
	g.forage = systems.NewForageSystem(g.world, field, deposit, g.nest, g.rng, systems.ForageParamsFromConfig(cfg), bounds)
	g.aging = systems.NewAgingSystem(g.world, float32(cfg.Ant.AgeIncrement))
	g.activity = systems.NewActivitySystem(g.world)
	g.spawner = systems.NewFoodSpawner(cfg.Food, bounds, g, g.rng)
	return nil
}

func (g *Game) bounds() systems.Bounds {
	d := g.cfg.Derived
	return systems.Bounds{MinX: d.WorldMinX, MinY: d.WorldMinY, MaxX: d.WorldMaxX, MaxY: d.WorldMaxY}
}

// Update runs speed_multiplier fixed-dt steps, carrying the fractional
// remainder to the next call. Does nothing while paused.
func (g *Game) Update() {
	g.perfCollector.RecordFrame()
	if g.paused {
		return
	}

	g.stepCarry += g.cfg.Physics.SpeedMultiplier
	steps := int(g.stepCarry)
	g.stepCarry -= float64(steps)

	for i := 0; i < steps; i++ {
		if err := g.Step(); err != nil {
			g.halt(err)
			return
		}
	}
}

// UpdateHeadless runs StepsPerUpdate steps without frame timing.
func (g *Game) UpdateHeadless() error {
	if g.paused {
		if g.haltErr != nil {
			return g.haltErr
		}
		return nil
	}
	for i := 0; i < g.stepsPerUpdate; i++ {
		if err := g.Step(); err != nil {
			g.halt(err)
			return err
		}
	}
	return nil
}

// halt pauses the simulation after a step error.
func (g *Game) halt(err error) {
	g.paused = true
	g.haltErr = err
	if errors.Is(err, systems.ErrNoNest) {
		slog.Error("nest_missing", "tick", g.tick, "sim_time", g.simTime)
		return
	}
	slog.Error("step failed", "tick", g.tick, "error", err)
}

// Step advances the simulation by one fixed dt: movement, forage, aging and
// pheromone, then the food spawner, activity classification and telemetry.
func (g *Game) Step() error {
	dt := g.cfg.Derived.DT32
	g.simTime += float64(dt)
	g.tick++

	g.perfCollector.StartTick()
	defer g.perfCollector.EndTick()

	g.perfCollector.StartPhase(telemetry.PhaseMovement)
	g.movement.Update(dt)

	g.perfCollector.StartPhase(telemetry.PhaseForage)
	ev, err := g.forage.Update(g.simTime, dt)
	g.collector.RecordPickups(ev.Pickups)
	g.collector.RecordDeliveries(ev.Deliveries)
	g.collector.RecordBirths(ev.Births)
	if err != nil {
		return fmt.Errorf("forage at tick %d: %w", g.tick, err)
	}

	g.perfCollector.StartPhase(telemetry.PhaseAging)
	removed := g.aging.Update(dt)
	g.collector.RecordDeaths(len(removed))

	g.perfCollector.StartPhase(telemetry.PhasePheromone)
	g.field.Update(dt)
	if fw := g.field.Worker(); fw != nil {
		g.perfCollector.RecordFieldWorker(fw.Counts())
	}

	g.perfCollector.StartPhase(telemetry.PhaseSpawn)
	g.collector.RecordFoodSpawned(g.spawner.Update(dt))

	g.perfCollector.StartPhase(telemetry.PhaseActivity)
	g.activity.Update()

	g.perfCollector.StartPhase(telemetry.PhaseTelemetry)
	g.flushTelemetry()

	return nil
}

// SetPlayerVelocity overrides the velocity of every player agent.
func (g *Game) SetPlayerVelocity(vx, vy float32) {
	query := g.playerFilter.Query()
	for query.Next() {
		vel, mob := query.Get()
		if mob.IsPlayer {
			vel.X, vel.Y = vx, vy
		}
	}
}

// ResizeWorld changes the world size, keeping its origin. Movement and
// exploration bounds follow, the pheromone grid is reallocated zeroed, and
// the nest, food and agents are pulled inside the new bounds.
func (g *Game) ResizeWorld(width, height float64) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("resize world: size must be positive, got %vx%v", width, height)
	}
	g.cfg.World.Width = width
	g.cfg.World.Height = height
	if err := g.cfg.Recompute(); err != nil {
		return fmt.Errorf("resize world: %w", err)
	}

	b := g.bounds()
	g.movement.SetBounds(b)
	g.forage.SetBounds(b)
	g.spawner.SetBounds(b)
	g.field.Resize(float32(width), float32(height))
	g.clampEntities(b)

	slog.Info("world_resized", "width", width, "height", height)
	return nil
}

// clampEntities moves every positioned entity, and every agent's target and
// exploration waypoint, inside b.
func (g *Game) clampEntities(b systems.Bounds) {
	nq := g.nestFilter.Query()
	for nq.Next() {
		pos, _ := nq.Get()
		pos.X, pos.Y = b.Clamp(pos.X, pos.Y)
	}

	fq := g.foodFilter.Query()
	for fq.Next() {
		pos, _ := fq.Get()
		pos.X, pos.Y = b.Clamp(pos.X, pos.Y)
	}

	aq := g.agentFilter.Query()
	for aq.Next() {
		pos, _, _, _, _, tgt, _, _ := aq.Get()
		pos.X, pos.Y = b.Clamp(pos.X, pos.Y)
		tgt.X, tgt.Y = b.Clamp(tgt.X, tgt.Y)
		_, _, _, _, _, _, _, mem, _ := g.agentMap.Get(aq.Entity())
		ex := &mem.Exploration
		ex.X, ex.Y = b.Clamp(ex.X, ex.Y)
	}
}

// SetPaused pauses or resumes the simulation. Resuming clears a halt error.
func (g *Game) SetPaused(paused bool) {
	g.paused = paused
	if !paused {
		g.haltErr = nil
	}
}

// Paused reports whether the simulation is paused.
func (g *Game) Paused() bool {
	return g.paused
}

// Err returns the error that halted the simulation, if any.
func (g *Game) Err() error {
	return g.haltErr
}

// SetSpeed sets the number of steps per Update call. Fractions carry over.
func (g *Game) SetSpeed(speed float64) {
	if speed < 0 {
		speed = 0
	}
	g.cfg.Physics.SpeedMultiplier = speed
}

// Speed returns the current speed multiplier.
func (g *Game) Speed() float64 {
	return g.cfg.Physics.SpeedMultiplier
}

// Tick returns the number of steps run.
func (g *Game) Tick() int32 {
	return g.tick
}

// SimTime returns simulated seconds elapsed.
func (g *Game) SimTime() float64 {
	return g.simTime
}

// Field returns the pheromone field for read-only display.
func (g *Game) Field() *systems.PheromoneField {
	return g.field
}

// Config returns the active configuration.
func (g *Game) Config() *config.Config {
	return g.cfg
}

// Perf returns the current performance statistics.
func (g *Game) Perf() telemetry.PerfStats {
	return g.perfCollector.Stats()
}

// Totals returns run-wide delivery, birth and death counts.
func (g *Game) Totals() (deliveries, births, deaths int) {
	return g.collector.Totals()
}

// Unload stops the pheromone worker and closes output files.
func (g *Game) Unload() {
	g.field.Close()
	if err := g.outputManager.Close(); err != nil {
		slog.Error("failed to close output", "error", err)
	}
}
