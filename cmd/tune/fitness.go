package main

import (
	"fmt"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/formica/config"
	"github.com/pthm-cable/formica/game"
)

// FitnessEvaluator runs headless colonies and scores a parameter vector.
type FitnessEvaluator struct {
	params     *ParamVector
	maxTicks   int32
	seeds      []int64
	baseConfig *config.Config

	mu       sync.Mutex
	lastRate float64
	lastStd  float64
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxTicks int32, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:     params,
		maxTicks:   maxTicks,
		seeds:      seeds,
		baseConfig: baseCfg,
	}
}

// LastRate returns the mean delivery rate and its spread across seeds from
// the most recent Evaluate call.
func (fe *FitnessEvaluator) LastRate() (mean, std float64) {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastRate, fe.lastStd
}

// Evaluate returns the negative mean deliveries per simulated minute across
// all seeds (lower is better). Runs that fail score zero deliveries.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	rates := make([]float64, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			rate, err := fe.runColony(x, s)
			if err != nil {
				rate = 0
			}
			rates[idx] = rate
		}(i, seed)
	}
	wg.Wait()

	mean, std := stat.MeanStdDev(rates, nil)
	if len(rates) < 2 {
		std = 0
	}
	fe.mu.Lock()
	fe.lastRate, fe.lastStd = mean, std
	fe.mu.Unlock()

	return -mean
}

// runColony runs one seed for maxTicks and returns deliveries per simulated
// minute. A halted colony scores what it delivered before halting.
func (fe *FitnessEvaluator) runColony(x []float64, seed int64) (float64, error) {
	cfg := fe.baseConfig.Clone()
	fe.params.ApplyToConfig(cfg, x)
	cfg.Pheromone.Async = false
	if err := cfg.Recompute(); err != nil {
		return 0, fmt.Errorf("seed %d: %w", seed, err)
	}

	g, err := game.NewGameWithOptions(game.Options{Config: cfg, Seed: seed})
	if err != nil {
		return 0, fmt.Errorf("seed %d: %w", seed, err)
	}
	defer g.Unload()

	for g.Tick() < fe.maxTicks {
		if err := g.Step(); err != nil {
			break
		}
	}
	return deliveryRate(g), nil
}

func deliveryRate(g *game.Game) float64 {
	minutes := g.SimTime() / 60
	if minutes <= 0 {
		return 0
	}
	deliveries, _, _ := g.Totals()
	return float64(deliveries) / minutes
}
