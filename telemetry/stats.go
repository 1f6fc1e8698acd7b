// Package telemetry provides colony statistics, milestones and CSV output.
package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	WindowStartTick int32   `csv:"-"`
	WindowEndTick   int32   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Colony state at window end
	Population  int     `csv:"population"`
	Carrying    int     `csv:"carrying"`
	FoodItems   int     `csv:"food_items"`
	FoodInWorld float64 `csv:"food_in_world"`
	NestFood    float64 `csv:"nest_food"`

	// Events during window
	Pickups     int `csv:"pickups"`
	Deliveries  int `csv:"deliveries"`
	Births      int `csv:"births"`
	Deaths      int `csv:"deaths"`
	FoodSpawned int `csv:"food_spawned"`

	// Deliveries per simulated minute over the window
	DeliveryRate float64 `csv:"delivery_rate"`

	// Pheromone field
	FieldMass float64 `csv:"field_mass"`
	FieldMax  float64 `csv:"field_max"`

	// Age distribution (sampled at window end)
	AgeMean float64 `csv:"age_mean"`
	AgeStd  float64 `csv:"age_std"`
	AgeP10  float64 `csv:"age_p10"`
	AgeP50  float64 `csv:"age_p50"`
	AgeP90  float64 `csv:"age_p90"`
}

// ComputeAgeStats calculates mean, sample standard deviation and empirical
// quantiles of agent ages.
func ComputeAgeStats(values []float64) (mean, std, p10, p50, p90 float64) {
	n := len(values)
	if n == 0 {
		return 0, 0, 0, 0, 0
	}
	if n == 1 {
		return values[0], 0, values[0], values[0], values[0]
	}

	mean, std = stat.MeanStdDev(values, nil)

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	p10 = stat.Quantile(0.10, stat.Empirical, sorted, nil)
	p50 = stat.Quantile(0.50, stat.Empirical, sorted, nil)
	p90 = stat.Quantile(0.90, stat.Empirical, sorted, nil)

	return mean, std, p10, p50, p90
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartTick)),
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("population", s.Population),
		slog.Int("carrying", s.Carrying),
		slog.Int("food_items", s.FoodItems),
		slog.Float64("food_in_world", s.FoodInWorld),
		slog.Float64("nest_food", s.NestFood),
		slog.Int("pickups", s.Pickups),
		slog.Int("deliveries", s.Deliveries),
		slog.Int("births", s.Births),
		slog.Int("deaths", s.Deaths),
		slog.Int("food_spawned", s.FoodSpawned),
		slog.Float64("delivery_rate", s.DeliveryRate),
		slog.Float64("field_mass", s.FieldMass),
		slog.Float64("field_max", s.FieldMax),
		slog.Float64("age_mean", s.AgeMean),
		slog.Float64("age_std", s.AgeStd),
		slog.Float64("age_p50", s.AgeP50),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats", "window", s)
}
