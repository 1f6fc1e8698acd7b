package main

import (
	"github.com/pthm-cable/formica/config"
)

// ParamSpec defines a single tunable parameter.
type ParamSpec struct {
	Name string  // Short name used in the log
	Path string  // Config path
	Min  float64 // Lower bound
	Max  float64 // Upper bound
}

// ParamVector holds the set of tunable pheromone parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the pheromone parameter set.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			{Name: "decay_rate", Path: "pheromone.decay_rate", Min: 0.001, Max: 0.5},
			{Name: "diffusion_rate", Path: "pheromone.diffusion_rate", Min: 0, Max: 0.5},
			{Name: "deposit_rate", Path: "pheromone.deposit_rate", Min: 0.05, Max: 5},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// Normalize converts raw parameter values to the [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// ApplyToConfig writes clamped values into cfg. Order matches Specs.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)
	cfg.Pheromone.DecayRate = clamped[0]
	cfg.Pheromone.DiffusionRate = clamped[1]
	cfg.Pheromone.DepositRate = clamped[2]
}

// ExtractFromConfig reads the current parameter values from cfg.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return []float64{
		cfg.Pheromone.DecayRate,
		cfg.Pheromone.DiffusionRate,
		cfg.Pheromone.DepositRate,
	}
}
