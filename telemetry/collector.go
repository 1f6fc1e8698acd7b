package telemetry

// ColonyState is the point-in-time colony state sampled at a window flush.
type ColonyState struct {
	Population  int
	Carrying    int
	FoodItems   int
	FoodInWorld float64
	NestFood    float64
	FieldMass   float64
	FieldMax    float64
	Ages        []float64
}

// Collector accumulates events within time windows and produces WindowStats.
type Collector struct {
	windowDurationSec   float64
	windowDurationTicks int32
	dt                  float32

	// Current window tracking
	windowStartTick int32

	// Event counters for current window
	pickups     int
	deliveries  int
	births      int
	deaths      int
	foodSpawned int

	// Run totals
	totalDeliveries int
	totalBirths     int
	totalDeaths     int
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(windowDurationSec float64, dt float32) *Collector {
	ticksPerWindow := int32(windowDurationSec / float64(dt))
	if ticksPerWindow < 1 {
		ticksPerWindow = 1
	}

	return &Collector{
		windowDurationSec:   windowDurationSec,
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
	}
}

// RecordPickups records food pickups.
func (c *Collector) RecordPickups(n int) {
	c.pickups += n
}

// RecordDeliveries records food delivered to the nest.
func (c *Collector) RecordDeliveries(n int) {
	c.deliveries += n
	c.totalDeliveries += n
}

// RecordBirths records agents spawned by the nest.
func (c *Collector) RecordBirths(n int) {
	c.births += n
	c.totalBirths += n
}

// RecordDeaths records agents removed by aging.
func (c *Collector) RecordDeaths(n int) {
	c.deaths += n
	c.totalDeaths += n
}

// RecordFoodSpawned records food items placed by the spawner or the user.
func (c *Collector) RecordFoodSpawned(n int) {
	c.foodSpawned += n
}

// Totals returns run-wide delivery, birth and death counts.
func (c *Collector) Totals() (deliveries, births, deaths int) {
	return c.totalDeliveries, c.totalBirths, c.totalDeaths
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush produces a WindowStats and resets counters for the next window.
func (c *Collector) Flush(currentTick int32, state ColonyState) WindowStats {
	elapsed := float64(currentTick-c.windowStartTick) * float64(c.dt)
	var rate float64
	if elapsed > 0 {
		rate = float64(c.deliveries) / elapsed * 60
	}

	ageMean, ageStd, ageP10, ageP50, ageP90 := ComputeAgeStats(state.Ages)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * float64(c.dt),

		Population:  state.Population,
		Carrying:    state.Carrying,
		FoodItems:   state.FoodItems,
		FoodInWorld: state.FoodInWorld,
		NestFood:    state.NestFood,

		Pickups:     c.pickups,
		Deliveries:  c.deliveries,
		Births:      c.births,
		Deaths:      c.deaths,
		FoodSpawned: c.foodSpawned,

		DeliveryRate: rate,

		FieldMass: state.FieldMass,
		FieldMax:  state.FieldMax,

		AgeMean: ageMean,
		AgeStd:  ageStd,
		AgeP10:  ageP10,
		AgeP50:  ageP50,
		AgeP90:  ageP90,
	}

	// Reset for next window
	c.windowStartTick = currentTick
	c.pickups = 0
	c.deliveries = 0
	c.births = 0
	c.deaths = 0
	c.foodSpawned = 0

	return stats
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int32 {
	return c.windowDurationTicks
}
